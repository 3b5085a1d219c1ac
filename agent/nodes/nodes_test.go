package plannernode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

const testTimezone = "Asia/Kolkata"

type fakeNLU struct {
	intent       contractx.Intent
	patch        statex.SlotPatch
	response     string
	respondCalls int
}

func (f *fakeNLU) Classify(context.Context, string, statex.Phase) contractx.Intent {
	return f.intent
}

func (f *fakeNLU) Extract(context.Context, string, []statex.Message) statex.SlotPatch {
	return f.patch
}

func (f *fakeNLU) Respond(context.Context, statex.Phase, string, string) string {
	f.respondCalls++
	return f.response
}

type fakeInvoker struct {
	result    any
	lastTool  string
	lastArgs  map[string]any
	connected bool
}

func (f *fakeInvoker) CallTool(_ context.Context, name string, args map[string]any) any {
	f.lastTool = name
	f.lastArgs = args
	return f.result
}

func (f *fakeInvoker) Connected() bool { return f.connected }

func testState(t *testing.T, phase statex.Phase) *GraphState {
	t.Helper()

	now, err := time.Parse(time.RFC3339, "2025-07-14T09:00:00Z")
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	sess := statex.NewSession("s1", now)
	sess.Phase = phase
	return &GraphState{
		SessionID: "s1",
		Text:      "hello there",
		Now:       now,
		Session:   sess,
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	if _, err := ValidateRequest(GraphInput{SessionID: " ", Text: "hi"}, time.Now); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("error = %v, want ErrInvalidSession", err)
	}
	if _, err := ValidateRequest(GraphInput{SessionID: "s1", Text: "  "}, time.Now); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("error = %v, want ErrInvalidMessage", err)
	}

	in, err := ValidateRequest(GraphInput{SessionID: " s1 ", Text: " hi "}, time.Now)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if in.SessionID != "s1" || in.Text != "hi" {
		t.Fatalf("trimmed input = %q %q", in.SessionID, in.Text)
	}
}

func TestRouteAfterClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		phase  statex.Phase
		intent contractx.Intent
		want   string
	}{
		{"confirmation while confirming", statex.PhaseConfirming, contractx.IntentConfirmation, NodeCreateMeeting},
		{"stray confirmation while idle", statex.PhaseIdle, contractx.IntentConfirmation, NodeGeneralReply},
		{"denial any phase", statex.PhaseConfirming, contractx.IntentDenial, NodeGeneralReply},
		{"new request", statex.PhaseIdle, contractx.IntentNewRequest, NodeExtractDetails},
		{"modification", statex.PhaseConfirming, contractx.IntentModification, NodeExtractDetails},
		{"general", statex.PhaseCollecting, contractx.IntentGeneral, NodeGeneralReply},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := testState(t, tt.phase)
			in.Intent = tt.intent
			got, err := RouteAfterClassify(in)
			if err != nil {
				t.Fatalf("RouteAfterClassify() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("RouteAfterClassify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDetailsMergesAndDefaults(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseIdle)
	in.Session.Slots.Title = "Review"

	nlu := &fakeNLU{patch: statex.SlotPatch{StartTime: "23:30", Date: "2025-07-15"}}
	out, err := ExtractDetails(context.Background(), in, nlu, testTimezone)
	if err != nil {
		t.Fatalf("ExtractDetails() error = %v", err)
	}

	slots := out.Session.Slots
	if slots.Title != "Review" {
		t.Fatalf("Title = %q, want preserved", slots.Title)
	}
	if slots.EndTime != "00:30" {
		t.Fatalf("EndTime = %q, want wrapped 00:30", slots.EndTime)
	}
	if slots.Timezone != testTimezone {
		t.Fatalf("Timezone = %q, want default", slots.Timezone)
	}
	if out.Session.Phase != statex.PhaseCollecting {
		t.Fatalf("Phase = %q, want collecting", out.Session.Phase)
	}
}

func TestCheckCompleteness(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseCollecting)
	if _, err := CheckCompleteness(in); err != nil {
		t.Fatalf("CheckCompleteness() error = %v", err)
	}
	if in.Intent != contractx.IntentIncomplete {
		t.Fatalf("Intent = %s, want incomplete", in.Intent)
	}

	in.Session.Slots = statex.MeetingSlots{
		Title: "Review", Date: "2025-07-15", StartTime: "15:00",
		Participants: []string{"a@example.com"},
	}
	if _, err := CheckCompleteness(in); err != nil {
		t.Fatalf("CheckCompleteness() error = %v", err)
	}
	if in.Intent != contractx.IntentComplete {
		t.Fatalf("Intent = %s, want complete", in.Intent)
	}
}

func TestAskMissingListsQuestionsInOrder(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseCollecting)
	in.Session.Slots.Date = "2025-07-15"

	out, err := AskMissing(in, testTimezone)
	if err != nil {
		t.Fatalf("AskMissing() error = %v", err)
	}

	reply := out.Reply
	wantOrder := []string{
		fieldQuestions[statex.FieldTitle],
		fieldQuestions[statex.FieldStartTime],
		fieldQuestions[statex.FieldParticipants],
	}
	last := -1
	for _, q := range wantOrder {
		idx := strings.Index(reply, q)
		if idx < 0 {
			t.Fatalf("reply missing question %q:\n%s", q, reply)
		}
		if idx < last {
			t.Fatalf("questions out of order in reply:\n%s", reply)
		}
		last = idx
	}
	if !strings.Contains(reply, "So far I have") {
		t.Fatalf("reply missing collected summary:\n%s", reply)
	}
	if out.Session.Phase != statex.PhaseCollecting {
		t.Fatalf("Phase = %q, want collecting", out.Session.Phase)
	}
}

func TestPresentConfirmationAsksYesNo(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseCollecting)
	in.Session.Slots = statex.MeetingSlots{
		Title: "Review", Date: "2025-07-15", StartTime: "15:00", EndTime: "16:00",
		Participants: []string{"a@example.com"},
	}

	out, err := PresentConfirmation(in, testTimezone)
	if err != nil {
		t.Fatalf("PresentConfirmation() error = %v", err)
	}
	if !strings.Contains(out.Reply, "(yes / no)") {
		t.Fatalf("reply missing yes/no question:\n%s", out.Reply)
	}
	if !strings.Contains(out.Reply, "Review") || !strings.Contains(out.Reply, "a@example.com") {
		t.Fatalf("reply missing slot summary:\n%s", out.Reply)
	}
	if out.Session.Phase != statex.PhaseConfirming {
		t.Fatalf("Phase = %q, want confirming", out.Session.Phase)
	}
}

func TestCreateMeetingSuccess(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseConfirming)
	in.Session.Slots = statex.MeetingSlots{
		Date: "2025-07-15", StartTime: "15:00",
		Participants: []string{"a@example.com"},
	}

	invoker := &fakeInvoker{result: map[string]any{
		"id":        "evt_1",
		"link":      "https://cal.example/evt_1",
		"meet_link": "https://meet.example/abc",
		"organizer": "boss@example.com",
	}}

	out, err := CreateMeeting(context.Background(), in, invoker, "fallback@example.com", testTimezone)
	if err != nil {
		t.Fatalf("CreateMeeting() error = %v", err)
	}

	if invoker.lastTool != contractx.ToolCreateMeeting {
		t.Fatalf("tool = %q, want create_meeting", invoker.lastTool)
	}
	if invoker.lastArgs["title"] != "Meeting" {
		t.Fatalf("title arg = %v, want default Meeting", invoker.lastArgs["title"])
	}
	if invoker.lastArgs["end_time"] != "15:00" {
		t.Fatalf("end_time arg = %v, want start time fallback", invoker.lastArgs["end_time"])
	}

	if out.Session.Phase != statex.PhaseCreated {
		t.Fatalf("Phase = %q, want created", out.Session.Phase)
	}
	for _, want := range []string{"https://meet.example/abc", "https://cal.example/evt_1", "boss@example.com"} {
		if !strings.Contains(out.Reply, want) {
			t.Fatalf("reply missing %q:\n%s", want, out.Reply)
		}
	}
}

func TestCreateMeetingToolErrorEntersErrorPhase(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseConfirming)
	in.Session.Slots = statex.MeetingSlots{
		Title: "Review", Date: "2025-07-15", StartTime: "15:00",
		Participants: []string{"a@example.com"},
	}

	invoker := &fakeInvoker{result: map[string]any{"error": "calendar exploded"}}
	out, err := CreateMeeting(context.Background(), in, invoker, "fallback@example.com", testTimezone)
	if err != nil {
		t.Fatalf("CreateMeeting() error = %v", err)
	}
	if out.Session.Phase != statex.PhaseError {
		t.Fatalf("Phase = %q, want error", out.Session.Phase)
	}
	if !strings.Contains(out.Reply, "calendar exploded") {
		t.Fatalf("reply missing tool error:\n%s", out.Reply)
	}
}

func TestGeneralReplyDenialClearsDraft(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseConfirming)
	in.Intent = contractx.IntentDenial
	in.Session.Slots = statex.MeetingSlots{Title: "Review", Date: "2025-07-15"}

	nlu := &fakeNLU{}
	out, err := GeneralReply(context.Background(), in, nlu)
	if err != nil {
		t.Fatalf("GeneralReply() error = %v", err)
	}
	if out.Session.Phase != statex.PhaseIdle {
		t.Fatalf("Phase = %q, want idle", out.Session.Phase)
	}
	if out.Session.Slots.HasAny() {
		t.Fatalf("Slots = %+v, want cleared", out.Session.Slots)
	}
	if nlu.respondCalls != 0 {
		t.Fatal("denial must not call the responder")
	}
}

func TestGeneralReplyGreetingSkipsModel(t *testing.T) {
	t.Parallel()

	in := testState(t, statex.PhaseIdle)
	in.Text = "Hey"
	in.Intent = contractx.IntentGeneral

	nlu := &fakeNLU{response: "should not be used"}
	out, err := GeneralReply(context.Background(), in, nlu)
	if err != nil {
		t.Fatalf("GeneralReply() error = %v", err)
	}
	if nlu.respondCalls != 0 {
		t.Fatal("greeting must not call the responder")
	}
	if !strings.Contains(out.Reply, "meeting planner") {
		t.Fatalf("reply = %q, want greeting text", out.Reply)
	}
}

func TestGeneralReplyWeakModelOutputFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
	}{
		{"empty", ""},
		{"too short", "ok"},
		{"diagnostic echo", "User sent a message about nothing"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := testState(t, statex.PhaseIdle)
			in.Text = "tell me something interesting"
			in.Intent = contractx.IntentGeneral

			out, err := GeneralReply(context.Background(), in, &fakeNLU{response: tt.response})
			if err != nil {
				t.Fatalf("GeneralReply() error = %v", err)
			}
			if out.Reply != fallbackReply {
				t.Fatalf("Reply = %q, want fallback", out.Reply)
			}
		})
	}
}

func TestSaveSessionResetsAfterCreate(t *testing.T) {
	t.Parallel()

	store := statex.NewInMemoryStore()
	in := testState(t, statex.PhaseCreated)
	in.Reply = "🎉 done"
	in.Session.Slots = statex.MeetingSlots{Title: "Review", Date: "2025-07-15"}

	out, err := SaveSession(context.Background(), in, store)
	if err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	// the caller sees the phase the turn ended in
	if out.FinalPhase != statex.PhaseCreated {
		t.Fatalf("FinalPhase = %q, want created", out.FinalPhase)
	}
	if out.FinalSlots.Title != "Review" {
		t.Fatalf("FinalSlots = %+v, want pre-reset slots", out.FinalSlots)
	}

	// but the stored session is ready for the next request
	stored, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stored.Phase != statex.PhaseIdle || stored.Slots.HasAny() {
		t.Fatalf("stored session = phase %q slots %+v, want reset", stored.Phase, stored.Slots)
	}
	if len(stored.Messages) == 0 || stored.Messages[len(stored.Messages)-1].Role != statex.RoleAssistant {
		t.Fatalf("assistant reply not recorded: %+v", stored.Messages)
	}
}

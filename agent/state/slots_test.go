package state

import (
	"reflect"
	"testing"
)

func TestMergeNonEmptyOverwritesOnly(t *testing.T) {
	t.Parallel()

	slots := MeetingSlots{
		Title:        "Sprint review",
		Date:         "2025-07-15",
		Participants: []string{"a@example.com"},
	}

	slots.Merge(SlotPatch{
		Date:      "2025-07-16",
		StartTime: "15:00",
	})

	if slots.Title != "Sprint review" {
		t.Fatalf("Title = %q, want unchanged", slots.Title)
	}
	if slots.Date != "2025-07-16" {
		t.Fatalf("Date = %q, want 2025-07-16", slots.Date)
	}
	if slots.StartTime != "15:00" {
		t.Fatalf("StartTime = %q, want 15:00", slots.StartTime)
	}
	if !reflect.DeepEqual(slots.Participants, []string{"a@example.com"}) {
		t.Fatalf("Participants = %v, want unchanged", slots.Participants)
	}
}

func TestMergeEmptyPatchIsNoop(t *testing.T) {
	t.Parallel()

	slots := MeetingSlots{Title: "Standup", Date: "2025-07-15", StartTime: "09:00"}
	before := slots.Clone()

	slots.Merge(SlotPatch{})

	if !reflect.DeepEqual(slots, before) {
		t.Fatalf("slots changed by empty patch: %+v", slots)
	}
}

func TestApplyDefaultsDerivesEndTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"afternoon", "15:00", "16:00"},
		{"half past", "09:30", "10:30"},
		{"midnight wrap", "23:30", "00:30"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slots := MeetingSlots{StartTime: tt.start}
			slots.ApplyDefaults("Asia/Kolkata")
			if slots.EndTime != tt.want {
				t.Fatalf("EndTime = %q, want %q", slots.EndTime, tt.want)
			}
		})
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	slots := MeetingSlots{StartTime: "15:00", EndTime: "17:00", Timezone: "UTC"}
	slots.ApplyDefaults("Asia/Kolkata")

	if slots.EndTime != "17:00" {
		t.Fatalf("EndTime = %q, want explicit 17:00", slots.EndTime)
	}
	if slots.Timezone != "UTC" {
		t.Fatalf("Timezone = %q, want explicit UTC", slots.Timezone)
	}
}

func TestApplyDefaultsSetsTimezone(t *testing.T) {
	t.Parallel()

	slots := MeetingSlots{}
	slots.ApplyDefaults("Asia/Kolkata")
	if slots.Timezone != "Asia/Kolkata" {
		t.Fatalf("Timezone = %q, want Asia/Kolkata", slots.Timezone)
	}
}

func TestMissingFixedOrder(t *testing.T) {
	t.Parallel()

	slots := MeetingSlots{Date: "2025-07-15"}
	got := slots.Missing()
	want := []string{FieldTitle, FieldStartTime, FieldParticipants}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
}

func TestMissingNeverIncludesOptionalFields(t *testing.T) {
	t.Parallel()

	slots := MeetingSlots{
		Title:        "Review",
		Date:         "2025-07-15",
		StartTime:    "15:00",
		Participants: []string{"a@example.com"},
	}
	if got := slots.Missing(); len(got) != 0 {
		t.Fatalf("Missing() = %v, want empty", got)
	}
	if !slots.Complete() {
		t.Fatal("Complete() = false, want true")
	}
}

func TestSessionResetClearsDraftKeepsLog(t *testing.T) {
	t.Parallel()

	now := mustTime(t, "2025-07-15T10:00:00Z")
	sess := NewSession("s1", now)
	sess.AppendMessage(RoleUser, "schedule a meeting")
	sess.Slots = MeetingSlots{Title: "Review", Date: "2025-07-15"}
	sess.Phase = PhaseCreated

	sess.Reset(now)

	if sess.Phase != PhaseIdle {
		t.Fatalf("Phase = %q, want idle", sess.Phase)
	}
	if sess.Slots.HasAny() {
		t.Fatalf("Slots = %+v, want empty", sess.Slots)
	}
	if len(sess.Messages) != 1 {
		t.Fatalf("Messages = %d entries, want log preserved", len(sess.Messages))
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	t.Parallel()

	sess := NewSession("s1", mustTime(t, "2025-07-15T10:00:00Z"))
	sess.Slots.Participants = []string{"a@example.com"}
	sess.AppendMessage(RoleUser, "hi")

	clone := sess.Clone()
	clone.Slots.Participants[0] = "b@example.com"
	clone.Messages[0].Content = "changed"

	if sess.Slots.Participants[0] != "a@example.com" {
		t.Fatal("clone shares participants slice")
	}
	if sess.Messages[0].Content != "hi" {
		t.Fatal("clone shares messages slice")
	}
}

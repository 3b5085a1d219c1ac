package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

func newRulesOnlyProvider(t *testing.T) *Provider {
	t.Helper()

	provider, err := New(context.Background(), nil, nil, "",
		WithClock(func() time.Time { return fixedNow(t) }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return provider
}

func TestProviderClassifyWithoutModel(t *testing.T) {
	t.Parallel()

	p := newRulesOnlyProvider(t)

	if got := p.Classify(context.Background(), "schedule a review meeting", statex.PhaseIdle); got != contractx.IntentNewRequest {
		t.Fatalf("Classify() = %s, want new_request", got)
	}
	// undecidable message degrades to general instead of erroring
	if got := p.Classify(context.Background(), "what a lovely morning", statex.PhaseIdle); got != contractx.IntentGeneral {
		t.Fatalf("Classify() = %s, want general", got)
	}
}

func TestProviderExtractWithoutModel(t *testing.T) {
	t.Parallel()

	p := newRulesOnlyProvider(t)

	patch := p.Extract(context.Background(), "schedule a sync with raj@gmail.com tomorrow at 3pm", nil)
	if patch.Date != "2025-07-15" {
		t.Fatalf("Date = %q, want 2025-07-15", patch.Date)
	}
	if patch.StartTime != "15:00" {
		t.Fatalf("StartTime = %q, want 15:00", patch.StartTime)
	}
	if len(patch.Participants) != 1 || patch.Participants[0] != "raj@gmail.com" {
		t.Fatalf("Participants = %v, want [raj@gmail.com]", patch.Participants)
	}
}

func TestProviderRespondWithoutModel(t *testing.T) {
	t.Parallel()

	p := newRulesOnlyProvider(t)
	if got := p.Respond(context.Background(), statex.PhaseIdle, "casual chat", "{}"); got != "" {
		t.Fatalf("Respond() = %q, want empty for caller fallback", got)
	}
}

func TestOverlayModelWinsRulesFillGaps(t *testing.T) {
	t.Parallel()

	rules := statex.SlotPatch{
		Title:     "residue title",
		Date:      "2025-07-15",
		StartTime: "15:00",
	}
	model := statex.SlotPatch{
		Title:        "Project Review",
		Participants: []string{"raj@gmail.com"},
	}

	merged := overlay(rules, model)
	if merged.Title != "Project Review" {
		t.Fatalf("Title = %q, want model value", merged.Title)
	}
	if merged.Date != "2025-07-15" || merged.StartTime != "15:00" {
		t.Fatalf("rule values lost: %+v", merged)
	}
	if len(merged.Participants) != 1 {
		t.Fatalf("Participants = %v, want model value", merged.Participants)
	}
}

func TestNormalizePatchDropsMalformedFields(t *testing.T) {
	t.Parallel()

	got := normalizePatch(statex.SlotPatch{
		Title:     "Sync",
		Date:      "next tuesday",
		StartTime: "3pm",
		EndTime:   "16:00",
	})
	if got.Date != "" {
		t.Fatalf("date = %q, want dropped", got.Date)
	}
	if got.StartTime != "" {
		t.Fatalf("start_time = %q, want dropped", got.StartTime)
	}
	if got.EndTime != "16:00" || got.Title != "Sync" {
		t.Fatalf("well-formed fields must survive: %+v", got)
	}

	clean := normalizePatch(statex.SlotPatch{Date: "2025-07-15", StartTime: "09:00", EndTime: "23:59"})
	if clean.Date != "2025-07-15" || clean.StartTime != "09:00" || clean.EndTime != "23:59" {
		t.Fatalf("clean patch changed: %+v", clean)
	}
}

type fakeChatModel struct {
	reply string
}

func (f *fakeChatModel) Generate(context.Context, []*schema.Message, ...einomodel.Option) (*schema.Message, error) {
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func newModelProvider(t *testing.T, reply string) *Provider {
	t.Helper()

	provider, err := New(context.Background(), &fakeChatModel{reply: reply}, nil, "",
		WithClock(func() time.Time { return fixedNow(t) }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return provider
}

func TestProviderClassifyThroughGraph(t *testing.T) {
	t.Parallel()

	p := newModelProvider(t, "confirmation")

	// rules cannot decide this message, so the classifier graph must
	intent := p.Classify(context.Background(), "what do you think about the weather today", statex.PhaseIdle)
	if intent != contractx.IntentConfirmation {
		t.Fatalf("intent = %q, want the graph's answer", intent)
	}
}

func TestProviderRespondThroughGraph(t *testing.T) {
	t.Parallel()

	p := newModelProvider(t, "Happy to help you plan meetings!")

	got := p.Respond(context.Background(), statex.PhaseIdle, "smalltalk", "{}")
	if got != "Happy to help you plan meetings!" {
		t.Fatalf("Respond() = %q", got)
	}
}

func TestProviderExtractThroughGraph(t *testing.T) {
	t.Parallel()

	p := newModelProvider(t,
		`{"title":"Board Sync","date":"2025-07-15","start_time":"15:00","end_time":null,"timezone":null,"participants":["a@b.com"],"description":null}`)

	patch := p.Extract(context.Background(), "hello there", nil)
	if patch.Title != "Board Sync" || patch.Date != "2025-07-15" || patch.StartTime != "15:00" {
		t.Fatalf("patch = %+v", patch)
	}
	if patch.EndTime != "" {
		t.Fatalf("end_time = %q, want empty for null", patch.EndTime)
	}
	if len(patch.Participants) != 1 || patch.Participants[0] != "a@b.com" {
		t.Fatalf("participants = %v", patch.Participants)
	}
}

func TestRenderHistoryWindow(t *testing.T) {
	t.Parallel()

	if got := renderHistory(nil); got != "(none)" {
		t.Fatalf("renderHistory(nil) = %q", got)
	}

	var history []statex.Message
	for i := 0; i < 8; i++ {
		history = append(history,
			statex.Message{Role: statex.RoleUser, Content: fmt.Sprintf("u%d", i)})
	}
	history = append(history, statex.Message{Role: statex.RoleAssistant, Content: "done"})

	got := renderHistory(history)
	lines := strings.Split(got, "\n")
	if len(lines) != 6 {
		t.Fatalf("window = %d lines, want 6:\n%s", len(lines), got)
	}
	if lines[0] != "USER: u3" {
		t.Fatalf("first line = %q", lines[0])
	}
	if lines[5] != "ASSISTANT: done" {
		t.Fatalf("last line = %q", lines[5])
	}
}

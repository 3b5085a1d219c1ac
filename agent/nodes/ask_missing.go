package plannernode

import (
	"fmt"
	"strings"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

var fieldQuestions = map[string]string{
	statex.FieldTitle:        "What should the meeting title be?",
	statex.FieldDate:         "Which date? (e.g. 2025-07-15 or 'tomorrow')",
	statex.FieldStartTime:    "What time should it start? (e.g. 15:00 or 3 PM)",
	statex.FieldParticipants: "Please share participant email(s) — comma-separated.",
}

// AskMissing composes the reply listing every still-empty required field,
// one question per field, in a stable order.
func AskMissing(in *GraphState, defaultTimezone string) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	missing := in.Session.Slots.Missing()
	questions := make([]string, 0, len(missing))
	for _, f := range missing {
		q, ok := fieldQuestions[f]
		if !ok {
			q = fmt.Sprintf("Please provide: %s", f)
		}
		questions = append(questions, q)
	}

	var b strings.Builder
	b.WriteString("I need a few more details to schedule your meeting.\n\n")
	if details := formatDetails(in.Session.Slots, defaultTimezone); details != "" {
		fmt.Fprintf(&b, "**So far I have:**\n%s\n\n", details)
	}
	b.WriteString("**Still needed:**\n")
	for i, q := range questions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("• " + q)
	}

	in.Reply = b.String()
	in.Session.Phase = statex.PhaseCollecting
	return in, nil
}

package plannernode

import (
	"fmt"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

// PresentConfirmation shows the full summary and asks for an explicit
// yes/no before anything touches the calendar.
func PresentConfirmation(in *GraphState, defaultTimezone string) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Reply = fmt.Sprintf(
		"✅ I have all the details! Here's the meeting summary:\n\n%s\n\n**Shall I go ahead and create this meeting? (yes / no)**",
		formatDetails(in.Session.Slots, defaultTimezone),
	)
	in.Session.Phase = statex.PhaseConfirming
	return in, nil
}

package plannernode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/calplan/calplan/agent/contract"
)

// CheckCompleteness rewrites the intent to one of the derived values used
// for routing after extraction.
func CheckCompleteness(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	missing := in.Session.Slots.Missing()
	log.Info().Str("session_id", in.SessionID).Strs("missing", missing).Msg("completeness checked")

	if len(missing) > 0 {
		in.Intent = contractx.IntentIncomplete
	} else {
		in.Intent = contractx.IntentComplete
	}
	return in, nil
}

package plannernode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

// ExtractDetails merges whatever the message yields into the session's
// slots and moves the conversation to collecting. Defaults (timezone, a
// one-hour end time) are applied after the merge so they never mask a
// value the user actually gave.
func ExtractDetails(ctx context.Context, in *GraphState, nlu contractx.NLUProvider, defaultTimezone string) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	patch := nlu.Extract(ctx, in.Text, in.Session.Messages)
	in.Session.Slots.Merge(patch)
	in.Session.Slots.ApplyDefaults(defaultTimezone)
	in.Session.Phase = statex.PhaseCollecting

	log.Info().
		Str("session_id", in.SessionID).
		Interface("meeting_info", in.Session.Slots).
		Msg("meeting details extracted")
	return in, nil
}

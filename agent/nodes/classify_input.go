package plannernode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/calplan/calplan/agent/contract"
)

func ClassifyInput(ctx context.Context, in *GraphState, nlu contractx.NLUProvider) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Intent = nlu.Classify(ctx, in.Text, in.Session.Phase)
	log.Info().
		Str("session_id", in.SessionID).
		Str("intent", string(in.Intent)).
		Str("phase", string(in.Session.Phase)).
		Msg("intent classified")
	return in, nil
}

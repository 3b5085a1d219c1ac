package plannernode

import (
	"context"
	"fmt"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

// SaveSession records the reply on the log and persists the session. The
// phase and slots the turn ended in are captured first: a created meeting
// resets the session to idle on disk so the next request starts clean, but
// the caller still sees "created".
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Session.AppendMessage(statex.RoleAssistant, in.Reply)
	in.FinalPhase = in.Session.Phase
	in.FinalSlots = in.Session.Slots.Clone()

	if in.Session.Phase == statex.PhaseCreated {
		in.Session.Reset(in.Now)
	}

	in.Session.Touch(in.Now)
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", in.SessionID, err)
	}
	return in, nil
}

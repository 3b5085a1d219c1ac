package plannernode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

// LoadSession fetches or creates the session and records the inbound user
// message on its log.
func LoadSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := loadOrCreateSession(ctx, store, in.SessionID, in.Now)
	if err != nil {
		return nil, err
	}
	sess.AppendMessage(statex.RoleUser, in.Text)

	in.Session = sess
	return in, nil
}

func loadOrCreateSession(ctx context.Context, store statex.Store, sessionID string, now time.Time) (*statex.Session, error) {
	sess, err := store.Load(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, statex.ErrSessionNotFound) {
		return nil, err
	}

	return statex.NewSession(sessionID, now), nil
}

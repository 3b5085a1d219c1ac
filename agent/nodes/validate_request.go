package plannernode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	SessionID string
	Reply     string
	Phase     statex.Phase
	Slots     statex.MeetingSlots
}

// GraphState is the working record threaded through one turn of the
// planning graph. FinalPhase and FinalSlots are captured by SaveSession
// before any after-create reset, so the caller sees the phase the turn
// actually ended in.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session *statex.Session
	Intent  contractx.Intent

	Reply      string
	FinalPhase statex.Phase
	FinalSlots statex.MeetingSlots
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}

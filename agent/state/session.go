package state

import (
	"errors"
	"time"
)

// Phase is the coarse conversational state of a session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseConfirming Phase = "confirming"
	PhaseCreated    Phase = "created"
	PhaseError      Phase = "error"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a session's append-only conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var (
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

// Session is the persistent per-conversation record: the message log, the
// meeting being assembled, and the current phase.
type Session struct {
	ID       string       `json:"session_id"`
	Messages []Message    `json:"messages,omitempty"`
	Slots    MeetingSlots `json:"meeting_info"`
	Phase    Phase        `json:"phase"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Phase:     PhaseIdle,
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendMessage adds one entry to the conversation log. The log is
// append-only; nothing ever rewrites earlier entries.
func (s *Session) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// LastUserMessage returns the content of the most recent user entry.
func (s *Session) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Reset clears the assembled meeting and returns the session to idle. The
// message log is kept; only slot data and phase are dropped. Used after a
// successful creation and after an explicit cancellation.
func (s *Session) Reset(now time.Time) {
	s.Slots = MeetingSlots{}
	s.Phase = PhaseIdle
	s.Touch(now)
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing their internal state to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Slots = s.Slots.Clone()
	return &out
}

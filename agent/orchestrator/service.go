package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/calplan/calplan/agent/contract"
	nodex "github.com/calplan/calplan/agent/nodes"
	statex "github.com/calplan/calplan/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	DefaultTimezone string
	OrganizerEmail  string
}

// TurnResult is what one conversational turn hands back to the transport
// layer.
type TurnResult struct {
	SessionID string
	Reply     string
	Phase     statex.Phase
	Slots     statex.MeetingSlots
}

// Orchestrator runs the per-turn planning graph. Turns for the same session
// are serialized; turns for different sessions run concurrently.
type Orchestrator struct {
	store statex.Store
	nlu   contractx.NLUProvider
	tools contractx.ToolInvoker
	locks *statex.TurnLocks

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	defaultTimezone string
	organizerEmail  string

	now func() time.Time
}

func New(
	store statex.Store,
	nlu contractx.NLUProvider,
	tools contractx.ToolInvoker,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if nlu == nil {
		return nil, errors.New("nlu provider is required")
	}
	if tools == nil {
		return nil, errors.New("tool invoker is required")
	}

	defaultTimezone := strings.TrimSpace(cfg.DefaultTimezone)
	if defaultTimezone == "" {
		defaultTimezone = "Asia/Kolkata"
	}
	organizerEmail := strings.TrimSpace(cfg.OrganizerEmail)
	if organizerEmail == "" {
		organizerEmail = "planner@localhost"
	}

	o := &Orchestrator{
		store:           store,
		nlu:             nlu,
		tools:           tools,
		locks:           statex.NewTurnLocks(),
		defaultTimezone: defaultTimezone,
		organizerEmail:  organizerEmail,
		now:             time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user message and returns the single reply for it.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, text string) (*TurnResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidMessage
	}

	release := o.locks.Acquire(strings.TrimSpace(sessionID))
	defer release()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		SessionID: out.SessionID,
		Reply:     out.Reply,
		Phase:     out.Phase,
		Slots:     out.Slots,
	}, nil
}

package contract

import (
	"context"

	statex "github.com/calplan/calplan/agent/state"
)

// NLUProvider is the natural-language collaborator. Implementations never
// fail outward: classification degrades to IntentGeneral, extraction to an
// empty patch, and generation to an empty string.
type NLUProvider interface {
	Classify(ctx context.Context, message string, phase statex.Phase) Intent
	Extract(ctx context.Context, message string, history []statex.Message) statex.SlotPatch
	Respond(ctx context.Context, phase statex.Phase, situation string, slotSnapshot string) string
}

// ToolInvoker reaches the out-of-process calendar provider. CallTool returns
// the decoded tool payload: a JSON object as map[string]any or a JSON array
// as []any. Every failure path yields a map carrying an "error" key; the
// call never panics and never returns nil.
type ToolInvoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) any
	Connected() bool
}

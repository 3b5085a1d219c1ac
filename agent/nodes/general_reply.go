package plannernode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

var greetings = []string{"hi", "hello", "hey", "hola", "namaste", "hii", "hiii", "yo", "sup"}

const (
	greetingReply = "Hey! 👋 I'm your meeting planner. Just tell me what meeting you want — like:\n\n" +
		"\"Schedule a meeting with raj@gmail.com tomorrow at 3 PM about project review\"\n\n" +
		"Or just share details one by one, I'll guide you!"

	cancelReply = "No problem! Meeting cancelled. Let me know whenever you want to schedule something. 😊"

	fallbackReply = "I'm here to help schedule meetings! 📅 Just tell me the title, date, time, and participants."
)

// GeneralReply handles everything outside the scheduling flow: denials wipe
// the draft, greetings get a canned intro with no model call, and the rest
// goes through the responder with the canned text as a floor.
func GeneralReply(ctx context.Context, in *GraphState, nlu contractx.NLUProvider) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if in.Intent == contractx.IntentDenial {
		in.Reply = cancelReply
		in.Session.Slots = statex.MeetingSlots{}
		in.Session.Phase = statex.PhaseIdle
		return in, nil
	}

	lower := strings.ToLower(strings.TrimSpace(in.Text))
	for _, g := range greetings {
		if lower == g || strings.HasPrefix(lower, g) {
			in.Reply = greetingReply
			return in, nil
		}
	}

	snapshot, _ := json.Marshal(in.Session.Slots)
	resp := nlu.Respond(ctx, in.Session.Phase,
		"User is chatting casually. Respond naturally and remind them you can schedule meetings.",
		string(snapshot))

	if resp == "" || strings.Contains(resp, "User sent") || len(resp) < 5 {
		resp = fallbackReply
	}

	in.Reply = resp
	return in, nil
}

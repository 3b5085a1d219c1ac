package plannernode

import (
	"fmt"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

// Node names used as branch targets in the planning graph.
const (
	NodeExtractDetails      = "extract_details"
	NodeCreateMeeting       = "create_meeting"
	NodeGeneralReply        = "general_reply"
	NodeAskMissing          = "ask_missing"
	NodePresentConfirmation = "present_confirmation"
)

// RouteAfterClassify picks the branch for a freshly classified intent. A
// confirmation only creates the meeting when the session is actually
// waiting on one; a stray "yes" in any other phase is small talk.
func RouteAfterClassify(in *GraphState) (string, error) {
	if in == nil || in.Session == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	switch {
	case in.Intent == contractx.IntentConfirmation && in.Session.Phase == statex.PhaseConfirming:
		return NodeCreateMeeting, nil
	case in.Intent == contractx.IntentDenial:
		return NodeGeneralReply, nil
	case in.Intent == contractx.IntentNewRequest, in.Intent == contractx.IntentModification:
		return NodeExtractDetails, nil
	default:
		return NodeGeneralReply, nil
	}
}

// RouteAfterCompleteness routes on the derived intent set by
// CheckCompleteness.
func RouteAfterCompleteness(in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if in.Intent == contractx.IntentComplete {
		return NodePresentConfirmation, nil
	}
	return NodeAskMissing, nil
}

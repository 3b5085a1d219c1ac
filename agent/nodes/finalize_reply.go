package plannernode

import (
	"fmt"
	"strings"

	contractx "github.com/calplan/calplan/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		SessionID: in.SessionID,
		Reply:     reply,
		Phase:     in.FinalPhase,
		Slots:     in.FinalSlots,
	}, nil
}

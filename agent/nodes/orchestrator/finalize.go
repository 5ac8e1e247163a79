package orchestratornode

import (
	"fmt"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	return GraphOutput{
		ConversationID: in.ConversationID,
		Responses:      in.Responses,
		Context:        in.Context,
	}, nil
}

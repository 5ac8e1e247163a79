package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

// AppendHistory logs the user's message followed by one record per response.
func AppendHistory(
	ctx context.Context,
	in *GraphState,
	history statex.HistoryStore,
	newID func() string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	msgs := make([]statex.Message, 0, len(in.Responses)+1)
	msgs = append(msgs, statex.Message{
		ID:             newID(),
		ConversationID: in.ConversationID,
		Response:       contractx.AgentResponse{Agent: contractx.AgentTypeUser, Content: in.Text},
		CreatedAt:      in.Now,
	})
	for _, resp := range in.Responses {
		msgs = append(msgs, statex.Message{
			ID:             newID(),
			ConversationID: in.ConversationID,
			Response:       resp,
			CreatedAt:      in.Now,
		})
	}

	if err := history.AppendMessages(ctx, in.ConversationID, msgs); err != nil {
		return nil, fmt.Errorf("%w: append history: %v", contractx.ErrPersistence, err)
	}
	return in, nil
}

package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

// SaveContext upserts the conversation with the merged context.
func SaveContext(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	conv := *in.Conversation
	conv.Context = in.Context.Clone()
	conv.Touch(in.Now)
	if err := store.Save(ctx, &conv); err != nil {
		return nil, fmt.Errorf("%w: save conversation: %v", contractx.ErrPersistence, err)
	}
	in.Conversation = &conv
	return in, nil
}

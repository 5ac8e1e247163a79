package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

// LoadContext loads or creates the conversation and overlays the caller's
// stored business profile on its context.
func LoadContext(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	profiles statex.ProfileStore,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv, err := loadOrCreateConversation(ctx, store, in)
	if err != nil {
		return nil, err
	}

	prior := conv.Context
	if profiles != nil {
		p, err := profiles.LoadProfile(ctx, in.UserID)
		switch {
		case err == nil:
			prior = prior.Merge(p.Patch())
		case errors.Is(err, contractx.ErrNotFound):
		default:
			log.Warn().Err(err).Str("user_id", in.UserID).Msg("business profile unavailable, continuing without it")
		}
	}

	in.Conversation = conv
	in.Prior = prior
	return in, nil
}

func loadOrCreateConversation(ctx context.Context, store statex.Store, in *GraphState) (*statex.Conversation, error) {
	conv, err := store.Load(ctx, in.ConversationID)
	if err == nil {
		if !conv.OwnedBy(in.UserID) {
			return nil, fmt.Errorf("%w: conversation %s", contractx.ErrForbidden, in.ConversationID)
		}
		return conv, nil
	}
	if !errors.Is(err, contractx.ErrNotFound) {
		return nil, fmt.Errorf("%w: load conversation: %v", contractx.ErrPersistence, err)
	}
	return statex.NewConversation(in.ConversationID, in.UserID, in.Now), nil
}

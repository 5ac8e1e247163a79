package state

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

// TieredStore reads conversations through a cache in front of a primary store.
// The primary is the source of truth; cache failures are logged and never returned.
type TieredStore struct {
	cache   Store
	primary Store
}

var _ Store = (*TieredStore)(nil)

func NewTieredStore(cache, primary Store) *TieredStore {
	return &TieredStore{cache: cache, primary: primary}
}

func (s *TieredStore) Load(ctx context.Context, conversationID string) (*Conversation, error) {
	if s.cache != nil {
		c, err := s.cache.Load(ctx, conversationID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, contractx.ErrNotFound) {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("context cache read failed")
		}
	}

	c, err := s.primary.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, c)
	return c, nil
}

func (s *TieredStore) Save(ctx context.Context, c *Conversation) error {
	if err := s.primary.Save(ctx, c); err != nil {
		return err
	}
	s.fill(ctx, c)
	return nil
}

func (s *TieredStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.primary.Delete(ctx, conversationID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, conversationID); err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("context cache delete failed")
		}
	}
	return nil
}

func (s *TieredStore) fill(ctx context.Context, c *Conversation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, c); err != nil {
		log.Warn().Err(err).Str("conversation_id", c.ID).Msg("context cache write failed")
	}
}

package state

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps conversations, history, profiles and notifications in process.
// It backs local runs and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	conversations map[string]*Conversation
	messages      map[string][]Message
	profiles      map[string]*Profile
	notifications map[string][]Notification
}

var (
	_ Store             = (*MemoryStore)(nil)
	_ HistoryStore      = (*MemoryStore)(nil)
	_ ProfileStore      = (*MemoryStore)(nil)
	_ NotificationStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		conversations: map[string]*Conversation{},
		messages:      map[string][]Message{},
		profiles:      map[string]*Profile{},
		notifications: map[string][]Notification{},
	}
}

func (s *MemoryStore) Load(_ context.Context, conversationID string) (*Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConversation
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return cloneConversation(c), nil
}

func (s *MemoryStore) Save(_ context.Context, c *Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = cloneConversation(c)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	return nil
}

func (s *MemoryStore) AppendMessages(_ context.Context, conversationID string, msgs []Message) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		m.ConversationID = conversationID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now().UTC()
		}
		s.messages[conversationID] = append(s.messages[conversationID], m)
	}
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]Message(nil), all...), nil
}

func (s *MemoryStore) LoadProfile(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneProfile(p)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = s.now().UTC()
	}
	s.profiles[p.UserID] = stored
	return nil
}

func (s *MemoryStore) ListProfiles(_ context.Context, limit int) ([]Profile, error) {
	return s.listProfiles(limit, func(*Profile) bool { return true }), nil
}

func (s *MemoryStore) ListProfilesWithPlaceID(_ context.Context, limit int) ([]Profile, error) {
	return s.listProfiles(limit, func(p *Profile) bool { return strings.TrimSpace(p.MapsPlaceID) != "" }), nil
}

func (s *MemoryStore) listProfiles(limit int, keep func(*Profile) bool) []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Profile, 0, len(ids))
	for _, id := range ids {
		p := s.profiles[id]
		if !keep(p) {
			continue
		}
		out = append(out, *cloneProfile(p))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *MemoryStore) AddNotification(_ context.Context, n *Notification) error {
	if n == nil || strings.TrimSpace(n.UserID) == "" {
		return ErrInvalidUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *n
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.notifications[n.UserID] = append(s.notifications[n.UserID], stored)
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, userID string, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.notifications[userID]
	out := make([]Notification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[userID]
	for i := range list {
		if list[i].ID == notificationID {
			list[i].Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

var (
	ErrConversationNotFound = fmt.Errorf("conversation: %w", contractx.ErrNotFound)
	ErrProfileNotFound      = fmt.Errorf("profile: %w", contractx.ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification: %w", contractx.ErrNotFound)
	ErrNilConversation      = errors.New("conversation is nil")
	ErrInvalidConversation  = errors.New("conversation id is empty")
	ErrInvalidUser          = errors.New("user id is empty")
)

// Conversation is the persisted per-conversation record: owner plus the accreted business context.
type Conversation struct {
	ID        string                    `json:"id"`
	UserID    string                    `json:"userId"`
	Context   contractx.BusinessContext `json:"context"`
	Version   int                       `json:"version"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

func NewConversation(id, userID string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		UserID:    userID,
		Version:   1,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Touch bumps the version and update time before a save.
func (c *Conversation) Touch(now time.Time) {
	c.Version++
	c.UpdatedAt = now.UTC()
}

func (c *Conversation) Validate() error {
	if c == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(c.ID) == "" {
		return ErrInvalidConversation
	}
	if strings.TrimSpace(c.UserID) == "" {
		return ErrInvalidUser
	}
	return nil
}

// OwnedBy reports whether userID may read or write the conversation.
func (c *Conversation) OwnedBy(userID string) bool {
	return c != nil && c.UserID == userID
}

// Message is one entry in a conversation log: the user's text or one agent response.
type Message struct {
	ID             string                  `json:"id"`
	ConversationID string                  `json:"conversationId"`
	Response       contractx.AgentResponse `json:"response"`
	CreatedAt      time.Time               `json:"createdAt"`
}

// Profile holds the stored business fields used to seed a new conversation's context.
type Profile struct {
	UserID       string              `json:"userId"`
	BusinessName string              `json:"businessName,omitempty"`
	BusinessType string              `json:"businessType,omitempty"`
	Location     *contractx.Location `json:"location,omitempty"`
	MapsPlaceID  string              `json:"mapsPlaceId,omitempty"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Patch returns the profile's non-empty fields as a context patch.
func (p Profile) Patch() contractx.ContextPatch {
	var patch contractx.ContextPatch
	if v := strings.TrimSpace(p.BusinessName); v != "" {
		patch.BusinessName = &v
	}
	if v := strings.TrimSpace(p.BusinessType); v != "" {
		patch.BusinessType = &v
	}
	if p.Location != nil {
		loc := *p.Location
		patch.Location = &loc
	}
	return patch
}

const (
	NotificationPromoSuggestion = "promo_suggestion"
	NotificationReviewAlert     = "review_alert"
)

type Notification struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"userId"`
	Type      string                  `json:"type"`
	Title     string                  `json:"title"`
	Data      contractx.AgentResponse `json:"data"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Store persists conversation records.
type Store interface {
	Load(ctx context.Context, conversationID string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, conversationID string) error
}

// HistoryStore is the append-only message log of a conversation.
type HistoryStore interface {
	AppendMessages(ctx context.Context, conversationID string, msgs []Message) error
	// ListMessages returns up to limit of the most recent messages, oldest first.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

type ProfileStore interface {
	LoadProfile(ctx context.Context, userID string) (*Profile, error)
	SaveProfile(ctx context.Context, p *Profile) error
	ListProfiles(ctx context.Context, limit int) ([]Profile, error)
	ListProfilesWithPlaceID(ctx context.Context, limit int) ([]Profile, error)
}

type NotificationStore interface {
	AddNotification(ctx context.Context, n *Notification) error
	// ListNotifications returns the user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

func cloneConversation(c *Conversation) *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Context = c.Context.Clone()
	return &out
}

func cloneProfile(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	out := *p
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	return &out
}

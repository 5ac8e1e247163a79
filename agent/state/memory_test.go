package state

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

func TestMemoryStoreConversationRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	conv := NewConversation("conv-1", "user-1", time.Now())
	conv.Context.Goals = []string{"naik omzet"}
	if err := store.Save(ctx, conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the caller's copy must not leak into the stored record.
	conv.Context.Goals[0] = "changed"

	got, err := store.Load(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Context.Goals[0] != "naik omzet" {
		t.Fatalf("stored goals mutated: %v", got.Context.Goals)
	}

	if err := store.Delete(ctx, "conv-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "conv-1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Load() after delete error = %v", err)
	}
}

func TestMemoryStoreSaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilConversation) {
		t.Fatalf("Save(nil) error = %v", err)
	}
	if err := store.Save(context.Background(), &Conversation{ID: "x"}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("Save(no user) error = %v", err)
	}
}

func TestMemoryStoreListMessagesReturnsMostRecentOldestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	var msgs []Message
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		msgs = append(msgs, Message{ID: id, Response: contractx.AgentResponse{Agent: contractx.AgentTypeUser, Content: id}})
	}
	if err := store.AppendMessages(ctx, "conv-1", msgs); err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}

	got, err := store.ListMessages(ctx, "conv-1", 2)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "m3" || got[1].ID != "m4" {
		t.Fatalf("ListMessages() = %+v", got)
	}
	if got[0].ConversationID != "conv-1" || got[0].CreatedAt.IsZero() {
		t.Fatalf("message not stamped: %+v", got[0])
	}
}

func TestMemoryStoreProfiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	for _, p := range []*Profile{
		{UserID: "u2", BusinessName: "Kopi Dua", MapsPlaceID: "place-2"},
		{UserID: "u1", BusinessName: "Kopi Satu"},
		{UserID: "u3", BusinessName: "Kopi Tiga", MapsPlaceID: "place-3"},
	} {
		if err := store.SaveProfile(ctx, p); err != nil {
			t.Fatalf("SaveProfile() error = %v", err)
		}
	}

	all, _ := store.ListProfiles(ctx, 2)
	if len(all) != 2 || all[0].UserID != "u1" || all[1].UserID != "u2" {
		t.Fatalf("ListProfiles() = %+v", all)
	}
	withPlace, _ := store.ListProfilesWithPlaceID(ctx, 0)
	if len(withPlace) != 2 || withPlace[0].UserID != "u2" || withPlace[1].UserID != "u3" {
		t.Fatalf("ListProfilesWithPlaceID() = %+v", withPlace)
	}
	if _, err := store.LoadProfile(ctx, "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("LoadProfile() error = %v", err)
	}
}

func TestMemoryStoreNotifications(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []string{"n1", "n2"} {
		if err := store.AddNotification(ctx, &Notification{ID: id, UserID: "u1", Type: NotificationPromoSuggestion}); err != nil {
			t.Fatalf("AddNotification() error = %v", err)
		}
	}

	got, _ := store.ListNotifications(ctx, "u1", 0)
	if len(got) != 2 || got[0].ID != "n2" {
		t.Fatalf("ListNotifications() = %+v", got)
	}

	if err := store.MarkNotificationRead(ctx, "u1", "n1"); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	got, _ = store.ListNotifications(ctx, "u1", 0)
	if !got[1].Read || got[0].Read {
		t.Fatalf("read flags = %v %v", got[0].Read, got[1].Read)
	}
	if err := store.MarkNotificationRead(ctx, "u2", "n1"); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("MarkNotificationRead() other user error = %v", err)
	}
}

func TestProfilePatch(t *testing.T) {
	t.Parallel()

	p := Profile{UserID: "u1", BusinessName: " Kopi Ani ", Location: &contractx.Location{Address: "Bandung"}}
	patch := p.Patch()
	if patch.BusinessName == nil || *patch.BusinessName != "Kopi Ani" {
		t.Fatalf("BusinessName = %v", patch.BusinessName)
	}
	if patch.BusinessType != nil {
		t.Fatalf("empty BusinessType must be absent, got %q", *patch.BusinessType)
	}
	if patch.Location == p.Location {
		t.Fatal("Location must be copied")
	}
}

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

func newRecordingServer(t *testing.T, reply string, got *[]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestCache(t *testing.T, server *httptest.Server, cfg RedisCacheConfig) *RedisCache {
	t.Helper()
	cfg.URL = server.URL
	cfg.Token = "token"
	cache, err := NewRedisCache(cfg, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	return cache
}

func TestRedisCacheKey(t *testing.T) {
	t.Parallel()

	cache := &RedisCache{}
	got, err := cache.key("abc")
	if err != nil {
		t.Fatalf("key() error = %v", err)
	}
	if got != "vistara:conv:abc" {
		t.Fatalf("key() = %q, want %q", got, "vistara:conv:abc")
	}

	custom := &RedisCache{prefix: "test:"}
	if got, _ := custom.key("abc"); got != "test:abc" {
		t.Fatalf("key() = %q, want %q", got, "test:abc")
	}

	if _, err := cache.key("   "); !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("key() error = %v, want ErrInvalidConversation", err)
	}
}

func TestNewRedisCacheValidates(t *testing.T) {
	t.Parallel()

	cases := []RedisCacheConfig{
		{Token: "token"},
		{URL: "not a url", Token: "token"},
		{URL: "https://redis.example.com"},
		{URL: "https://redis.example.com", Token: "token", TTL: -time.Second},
	}
	for _, cfg := range cases {
		if _, err := NewRedisCache(cfg); err == nil {
			t.Fatalf("NewRedisCache(%+v) succeeded, want error", cfg)
		}
	}
	if (RedisCacheConfig{}).Enabled() {
		t.Fatal("empty config should be disabled")
	}
}

func TestExpirySeconds(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]int64{
		90 * time.Minute:        5400,
		1500 * time.Millisecond: 2,
		time.Millisecond:        1,
	}
	for ttl, want := range cases {
		if got := expirySeconds(ttl); got != want {
			t.Fatalf("expirySeconds(%v) = %d, want %d", ttl, got, want)
		}
	}
}

func TestRedisCacheSaveSetsTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := newRecordingServer(t, `{"result":"OK"}`, &gotCommand)

	store := newTestCache(t, server, RedisCacheConfig{TTL: 90 * time.Minute})

	conv := NewConversation("conv-1", "user-1", time.Now())
	conv.Context.BusinessName = "Toko Ani"
	if err := store.Save(context.Background(), conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" || gotCommand[1] != "vistara:conv:conv-1" {
		t.Fatalf("unexpected command head: %#v", gotCommand[:2])
	}
	var saved Conversation
	if err := json.Unmarshal([]byte(gotCommand[2].(string)), &saved); err != nil {
		t.Fatalf("decode saved payload: %v", err)
	}
	if saved.Context.BusinessName != "Toko Ani" {
		t.Fatalf("saved context = %+v", saved.Context)
	}
	if gotCommand[3] != "EX" || gotCommand[4] != float64(5400) {
		t.Fatalf("unexpected ttl args: %#v", gotCommand[3:])
	}
}

func TestRedisCacheLoad(t *testing.T) {
	t.Parallel()

	seed := NewConversation("conv-2", "user-1", time.Now())
	seed.Context = contractx.BusinessContext{BusinessName: "Kopi Senja", Goals: []string{"buka cabang"}}
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	server := newRecordingServer(t, fmt.Sprintf(`{"result":%s}`, encoded), &gotCommand)

	store := newTestCache(t, server, RedisCacheConfig{})

	conv, err := store.Load(context.Background(), "conv-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if conv.UserID != "user-1" || conv.Context.BusinessName != "Kopi Senja" || len(conv.Context.Goals) != 1 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
	if gotCommand[0] != "GET" || gotCommand[1] != "vistara:conv:conv-2" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestRedisCacheLoadMissing(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := newRecordingServer(t, `{"result":null}`, &gotCommand)

	store := newTestCache(t, server, RedisCacheConfig{})

	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrConversationNotFound) || !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrConversationNotFound", err)
	}
}

func TestRedisCacheErrorReply(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := newRecordingServer(t, `{"error":"WRONGPASS invalid token"}`, &gotCommand)

	store := newTestCache(t, server, RedisCacheConfig{})

	if err := store.Delete(context.Background(), "conv-3"); err == nil {
		t.Fatal("expected error from redis error reply")
	}
	if gotCommand[0] != "DEL" || gotCommand[1] != "vistara:conv:conv-3" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

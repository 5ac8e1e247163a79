package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultCacheKeyPrefix = "vistara:conv:"
	defaultCacheTTL       = 90 * time.Minute
	maxRedisReplyBytes    = 2 << 20
)

// RedisCacheConfig points at an Upstash Redis REST endpoint. An empty URL
// disables the cache tier.
type RedisCacheConfig struct {
	URL       string        `envconfig:"URL"`
	Token     string        `envconfig:"TOKEN"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"10s"`
	TTL       time.Duration `envconfig:"TTL" default:"90m"`
	KeyPrefix string        `envconfig:"KEY_PREFIX"`
}

func (c RedisCacheConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

type RedisCacheOption func(*RedisCache)

func WithHTTPClient(client *http.Client) RedisCacheOption {
	return func(r *RedisCache) {
		if client != nil {
			r.http = client
		}
	}
}

// RedisCache keeps hot conversation records in Upstash Redis with a sliding TTL.
type RedisCache struct {
	endpoint string
	token    string
	prefix   string
	ttl      time.Duration
	http     *http.Client
}

var _ Store = (*RedisCache)(nil)

func NewRedisCache(cfg RedisCacheConfig, opts ...RedisCacheOption) (*RedisCache, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("cache ttl must not be negative")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	r := &RedisCache{
		endpoint: endpoint,
		token:    token,
		prefix:   strings.TrimSpace(cfg.KeyPrefix),
		ttl:      ttl,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

func (r *RedisCache) Load(ctx context.Context, conversationID string) (*Conversation, error) {
	key, err := r.key(conversationID)
	if err != nil {
		return nil, err
	}

	result, err := r.call(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if !result.Exists() || result.Type == gjson.Null {
		return nil, ErrConversationNotFound
	}

	var conv Conversation
	if err := json.Unmarshal([]byte(result.String()), &conv); err != nil {
		return nil, fmt.Errorf("decode cached conversation: %w", err)
	}
	if err := conv.Validate(); err != nil {
		return nil, fmt.Errorf("cached conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

// Save writes c and refreshes its expiry. c is not modified.
func (r *RedisCache) Save(ctx context.Context, c *Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	key, err := r.key(c.ID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	_, err = r.call(ctx, "SET", key, string(payload), "EX", expirySeconds(r.ttl))
	return err
}

func (r *RedisCache) Delete(ctx context.Context, conversationID string) error {
	key, err := r.key(conversationID)
	if err != nil {
		return err
	}
	_, err = r.call(ctx, "DEL", key)
	return err
}

func (r *RedisCache) key(conversationID string) (string, error) {
	if strings.TrimSpace(conversationID) == "" {
		return "", ErrInvalidConversation
	}
	if r.prefix == "" {
		return defaultCacheKeyPrefix + conversationID, nil
	}
	return r.prefix + conversationID, nil
}

// call sends one command as a JSON array and returns the reply's result field.
func (r *RedisCache) call(ctx context.Context, args ...any) (gjson.Result, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("redis %v: %w", args[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRedisReplyBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read redis reply: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("redis %v: status %d: malformed reply", args[0], resp.StatusCode)
	}

	reply := gjson.ParseBytes(raw)
	if msg := reply.Get("error"); msg.Exists() && msg.String() != "" {
		return gjson.Result{}, fmt.Errorf("redis %v: %s", args[0], msg.String())
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return gjson.Result{}, fmt.Errorf("redis %v: status %d", args[0], resp.StatusCode)
	}
	return reply.Get("result"), nil
}

// expirySeconds rounds ttl up to whole seconds, minimum one.
func expirySeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

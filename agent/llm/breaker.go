package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a half-open trial call.
	Timeout time.Duration
	// Interval clears failure counts while closed.
	Interval time.Duration
}

// BreakerModel guards a chat model with a circuit breaker. While open, calls fail
// fast with ErrModelInvoke and never reach the provider.
type BreakerModel struct {
	name    string
	inner   einomodel.BaseChatModel
	breaker *gobreaker.CircuitBreaker[*schema.Message]
}

var _ einomodel.BaseChatModel = (*BreakerModel)(nil)

func NewBreakerModel(name string, inner einomodel.BaseChatModel, cfg BreakerConfig) *BreakerModel {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[*schema.Message](gobreaker.Settings{
		Name:        "llm:" + name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(breaker string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", breaker).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &BreakerModel{name: name, inner: inner, breaker: cb}
}

func (m *BreakerModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	out, err := m.breaker.Execute(func() (*schema.Message, error) {
		return m.inner.Generate(ctx, input, opts...)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: model %q circuit open: %v", contractx.ErrModelInvoke, m.name, err)
		}
		return nil, err
	}
	return out, nil
}

// Stream only guards stream setup; errors read from the stream do not trip the breaker.
func (m *BreakerModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	var sr *schema.StreamReader[*schema.Message]
	_, err := m.breaker.Execute(func() (*schema.Message, error) {
		var streamErr error
		sr, streamErr = m.inner.Stream(ctx, input, opts...)
		return nil, streamErr
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: model %q circuit open: %v", contractx.ErrModelInvoke, m.name, err)
		}
		return nil, err
	}
	return sr, nil
}

func (m *BreakerModel) State() gobreaker.State {
	return m.breaker.State()
}

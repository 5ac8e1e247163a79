package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	nodex "github.com/thoriqalqi/VISTARA/agent/nodes/orchestrator"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
	metricsx "github.com/thoriqalqi/VISTARA/pkg/metrics"
	tracingx "github.com/thoriqalqi/VISTARA/pkg/tracing"
)

const defaultHistoryLimit = 200

type Config struct {
	// HistoryLimit caps History results. Zero uses the default.
	HistoryLimit int
	Metrics      *metricsx.Metrics
}

type Orchestrator struct {
	store    statex.Store
	history  statex.HistoryStore
	profiles statex.ProfileStore
	models   contractx.Registry
	metrics  *metricsx.Metrics
	locks    *statex.KeyedMutex

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	historyLimit int

	now   func() time.Time
	newID func() string
}

func New(
	store statex.Store,
	history statex.HistoryStore,
	profiles statex.ProfileStore,
	models contractx.Registry,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if history == nil {
		return nil, errors.New("history store is required")
	}
	if models == nil {
		return nil, errors.New("agent registry is required")
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	o := &Orchestrator{
		store:        store,
		history:      history,
		profiles:     profiles,
		models:       models,
		metrics:      cfg.Metrics,
		locks:        statex.NewKeyedMutex(),
		historyLimit: historyLimit,
		now:          time.Now,
		newID:        func() string { return ulid.Make().String() },
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Orchestrate routes one message against prior, merges the extraction and
// runs the selected agents. It performs no persistence.
func (o *Orchestrator) Orchestrate(ctx context.Context, message string, prior contractx.BusinessContext) contractx.TurnResult {
	decision := nodex.Route(ctx, o.models.Router(), message, prior)
	merged := nodex.Merge(prior, decision.Extraction, message)
	turn := nodex.Turn{Message: message, SpecificRequest: decision.SpecificRequest, Context: merged}
	return contractx.TurnResult{
		Responses: nodex.Dispatch(ctx, o.models, nodex.Plan(decision.Agents, turn), turn),
		Context:   merged,
	}
}

// HandleMessage runs one persisted chat turn. Turns on the same conversation
// are serialised within this process.
func (o *Orchestrator) HandleMessage(ctx context.Context, in contractx.TurnInput) (out contractx.TurnOutput, err error) {
	ctx, span := tracingx.StartSpan(ctx, "orchestrator.handle_message")
	defer func() {
		tracingx.End(span, err)
		o.metrics.ObserveTurn(turnOutcome(err))
	}()

	if id := strings.TrimSpace(in.ConversationID); id != "" {
		unlock := o.locks.Lock(id)
		defer unlock()
	}

	out, err = o.graphRunner.Invoke(ctx, in)
	if err != nil {
		err = boundaryError(err)
		log.Error().Err(err).
			Str("user_id", in.UserID).
			Str("conversation_id", in.ConversationID).
			Msg("chat turn failed")
		return contractx.TurnOutput{}, err
	}
	span.SetAttributes(
		tracingx.StringAttr("conversation_id", out.ConversationID),
		tracingx.IntAttr("responses", len(out.Responses)),
	)
	return out, nil
}

// History returns the conversation's most recent messages, oldest first.
func (o *Orchestrator) History(ctx context.Context, userID, conversationID string) ([]statex.Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, contractx.ErrUnauthenticated
	}
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("%w: conversation id is required", contractx.ErrInvalidArgument)
	}

	conv, err := o.store.Load(ctx, conversationID)
	if err != nil {
		if errors.Is(err, contractx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load conversation: %v", contractx.ErrPersistence, err)
	}
	if !conv.OwnedBy(userID) {
		return nil, fmt.Errorf("%w: conversation %s", contractx.ErrForbidden, conversationID)
	}

	msgs, err := o.history.ListMessages(ctx, conversationID, o.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", contractx.ErrPersistence, err)
	}
	return msgs, nil
}

var boundaryErrors = []error{
	contractx.ErrUnauthenticated,
	contractx.ErrInvalidArgument,
	contractx.ErrForbidden,
	contractx.ErrPersistence,
}

// boundaryError unwraps the graph's node error chain down to the sentinel a
// caller can act on. Anything else is reported as a persistence failure.
func boundaryError(err error) error {
	for _, target := range boundaryErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
}

func turnOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, contractx.ErrPersistence):
		return "error"
	default:
		return "rejected"
	}
}

package specialist

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	llmx "github.com/thoriqalqi/VISTARA/agent/llm"
	promptx "github.com/thoriqalqi/VISTARA/agent/prompt"
	metricsx "github.com/thoriqalqi/VISTARA/pkg/metrics"
	tracingx "github.com/thoriqalqi/VISTARA/pkg/tracing"
)

// callSpec is the per-call sampling for one prompt.
type callSpec struct {
	name        string
	role        contractx.Role
	temperature float32
	maxTokens   int
}

var (
	callRouter        = callSpec{"router", contractx.RoleRouter, 0.2, 1000}
	callStrategist    = callSpec{"strategist.analyze", contractx.RoleStrategist, 0.3, 2000}
	callSimulation    = callSpec{"strategist.simulate", contractx.RoleStrategist, 0.3, 2000}
	callCollaboration = callSpec{"strategist.collaborate", contractx.RoleStrategist, 0.7, 2000}
	callPromo         = callSpec{"creative.promo", contractx.RoleCreative, 0.7, 1500}
	callApology       = callSpec{"creative.apology", contractx.RoleCreative, 0.5, 1000}
	callBrand         = callSpec{"creative.brand", contractx.RoleCreative, 0.7, 1500}
	callSuppliers     = callSpec{"researcher.suppliers", contractx.RoleResearcher, 0.3, 2000}
	callEvents        = callSpec{"researcher.events", contractx.RoleResearcher, 0.4, 1500}
	callCompetitors   = callSpec{"researcher.competitors", contractx.RoleResearcher, 0.3, 1500}
	callSentiment     = callSpec{"researcher.sentiment", contractx.RoleResearcher, 0.3, 2000}
	callLocation      = callSpec{"researcher.location", contractx.RoleResearcher, 0.3, 2000}
)

// runtime is shared by every invoker: call bounds, sampling overrides, metrics and images.
type runtime struct {
	cfg     llmx.Config
	metrics *metricsx.Metrics
	image   contractx.ImageGenerator
}

func runCall[T any](
	ctx context.Context,
	rt runtime,
	spec callSpec,
	runner compose.Runnable[map[string]any, T],
	vars map[string]any,
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.CallTimeout())
	defer cancel()

	ctx, span := tracingx.StartSpan(ctx, "model."+spec.name)
	start := time.Now()

	out, err := runner.Invoke(ctx, vars, compose.WithChatModelOption(
		einomodel.WithTemperature(rt.cfg.TemperatureFor(spec.role, spec.temperature)),
		einomodel.WithMaxTokens(spec.maxTokens),
	))

	status := "ok"
	if err != nil {
		status = "error"
	}
	rt.metrics.ObserveModelCall(spec.name, status, time.Since(start))
	tracingx.End(span, err)

	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %v", contractx.ErrModelInvoke, spec.name, err)
	}
	return out, nil
}

// attempt runs a best-effort sub-operation. On failure it logs and returns def.
func attempt[T any](ctx context.Context, op string, def T, fn func(context.Context) (T, error)) T {
	out, err := fn(ctx)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("best-effort step failed, continuing with default")
		return def
	}
	return out
}

// imageFrom renders an image prompt and generates it best-effort. A nil
// generator yields an empty reference.
func (rt runtime) imageFrom(ctx context.Context, op string, template string, vars map[string]any) string {
	if rt.image == nil {
		return ""
	}
	return attempt(ctx, op, "", func(ctx context.Context) (string, error) {
		text, err := promptx.Render(ctx, template, vars)
		if err != nil {
			return "", err
		}
		return rt.image.GenerateImage(ctx, text)
	})
}

func (rt runtime) ok(agent contractx.AgentType, variant string, resp contractx.AgentResponse) contractx.AgentResponse {
	rt.metrics.ObserveInvocation(string(agent), variant, "ok")
	return resp
}

// degraded is the never-break-the-chat response: apology text, no data.
func (rt runtime) degraded(agent contractx.AgentType, variant string, err error, apology string) contractx.AgentResponse {
	log.Warn().
		Err(err).
		Str("agent", string(agent)).
		Str("variant", variant).
		Msg("agent invocation degraded")
	rt.metrics.ObserveInvocation(string(agent), variant, "degraded")
	return contractx.AgentResponse{
		Agent:   agent,
		Title:   titleError,
		Content: apology,
	}
}

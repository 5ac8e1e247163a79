package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	parsex "github.com/thoriqalqi/VISTARA/agent/parse"
)

type routerImpl struct {
	rt     runtime
	runner compose.Runnable[map[string]any, parsex.Object]
}

func newRouter(ctx context.Context, rt runtime, chatModel einomodel.BaseChatModel, template string) (*routerImpl, error) {
	runner, err := compileObjectGraph(ctx, chatModel, "", template, "router.structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile router graph: %v", contractx.ErrModelInvoke, err)
	}
	return &routerImpl{rt: rt, runner: runner}, nil
}

func (r *routerImpl) Route(ctx context.Context, req contractx.RoutingRequest) contractx.RoutingDecision {
	prior := ""
	if req.Prior != nil && !req.Prior.IsEmpty() {
		if b, err := json.MarshalIndent(req.Prior, "", "  "); err == nil {
			prior = string(b)
		}
	}

	obj, err := runCall(ctx, r.rt, callRouter, r.runner, map[string]any{
		"message": req.Message,
		"context": prior,
	})
	if err != nil {
		log.Warn().Err(err).Msg("routing call failed, using strategist fallback")
		r.rt.metrics.IncRoutingFallback()
		return contractx.FallbackDecision()
	}

	decision, ok := decisionFromObject(obj)
	if !ok {
		log.Warn().Msg("routing reply had no usable agents, using strategist fallback")
		log.Debug().Str("raw", snippetOf(obj.Raw(), 200)).Msg("unusable routing reply")
		r.rt.metrics.IncRoutingFallback()
		return contractx.FallbackDecision()
	}
	return decision
}

// decisionFromObject reports false when no known agent was listed.
func decisionFromObject(obj parsex.Object) (contractx.RoutingDecision, bool) {
	agents := dedupeAgents(obj.Strings("agents_to_activate"))
	if len(agents) == 0 {
		return contractx.RoutingDecision{}, false
	}

	ext := obj.Object("context_extraction")
	return contractx.RoutingDecision{
		Intent: obj.Str("intent", ""),
		Agents: agents,
		Extraction: contractx.ContextPatch{
			BusinessName:     ext.OptStr("businessName"),
			BusinessType:     ext.OptStr("businessType"),
			CurrentSituation: ext.OptStr("currentSituation"),
			Goals:            nonEmpty(ext.Strings("goals")),
			Challenges:       nonEmpty(ext.Strings("challenges")),
		},
		SpecificRequest: ext.Str("specificRequest", ""),
	}, true
}

// dedupeAgents keeps the first occurrence of each known agent, in order.
func dedupeAgents(raw []string) []contractx.AgentType {
	seen := make(map[contractx.AgentType]struct{}, len(raw))
	out := make([]contractx.AgentType, 0, len(raw))
	for _, s := range raw {
		agent, ok := contractx.ParseAgentType(s)
		if !ok {
			continue
		}
		if _, dup := seen[agent]; dup {
			continue
		}
		seen[agent] = struct{}{}
		out = append(out, agent)
	}
	return out
}

func nonEmpty(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return items
}

func snippetOf(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

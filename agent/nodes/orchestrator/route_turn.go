package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

func RouteTurn(ctx context.Context, in *GraphState, router contractx.Router) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Decision = Route(ctx, router, in.Text, in.Prior)
	return in, nil
}

// Route asks the router for a decision. An empty prior is sent as no context.
// A decision without agents is replaced by the strategist fallback, keeping
// whatever the router extracted.
func Route(ctx context.Context, router contractx.Router, message string, prior contractx.BusinessContext) contractx.RoutingDecision {
	req := contractx.RoutingRequest{Message: message}
	if !prior.IsEmpty() {
		p := prior.Clone()
		req.Prior = &p
	}
	decision := router.Route(ctx, req)
	if len(decision.Agents) == 0 {
		log.Warn().Str("intent", decision.Intent).Msg("router selected no agents, using strategist fallback")
		fallback := contractx.FallbackDecision()
		fallback.Intent = decision.Intent
		fallback.Extraction = decision.Extraction
		fallback.SpecificRequest = decision.SpecificRequest
		decision = fallback
	}
	return decision
}

package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	"golang.org/x/sync/errgroup"
)

// Invocation is one planned agent call for a turn.
type Invocation struct {
	Agent   contractx.AgentType
	Variant Variant
}

// Turn carries what every invoker may read. Invokers never write it.
type Turn struct {
	Message         string
	SpecificRequest string
	Context         contractx.BusinessContext
}

func DispatchAgents(ctx context.Context, in *GraphState, models contractx.Registry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	turn := Turn{
		Message:         in.Text,
		SpecificRequest: in.Decision.SpecificRequest,
		Context:         in.Context,
	}
	in.Responses = Dispatch(ctx, models, Plan(in.Decision.Agents, turn), turn)
	return in, nil
}

// Plan maps the activation list to invocations, keeping list order.
func Plan(agents []contractx.AgentType, turn Turn) []Invocation {
	sig := DetectSignals(turn.Message)
	hasLocation := turn.Context.Location != nil
	out := make([]Invocation, 0, len(agents))
	for _, agent := range agents {
		out = append(out, Invocation{Agent: agent, Variant: SelectVariant(agent, sig, hasLocation)})
	}
	return out
}

// Dispatch runs every invocation concurrently and returns responses in
// invocation order. Invokers never fail, so no sibling is cancelled.
func Dispatch(ctx context.Context, models contractx.Registry, plan []Invocation, turn Turn) []contractx.AgentResponse {
	results := make([]contractx.AgentResponse, len(plan))
	var g errgroup.Group
	for i, inv := range plan {
		g.Go(func() error {
			results[i] = invoke(ctx, models, inv, turn)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func invoke(ctx context.Context, models contractx.Registry, inv Invocation, turn Turn) contractx.AgentResponse {
	bc := turn.Context.Clone()
	switch inv.Variant {
	case VariantReviewReply:
		return models.Creative().RespondToReview(ctx, contractx.Review{
			Rating:   defaultReviewRating,
			Text:     firstNonEmpty(turn.SpecificRequest, turn.Message),
			Reviewer: defaultReviewer,
		})
	case VariantPromo:
		return models.Creative().GeneratePromo(ctx, contractx.PromoEvent{
			Name:    firstNonEmpty(turn.SpecificRequest, defaultPromoName),
			Context: turn.Message,
		}, bc)
	case VariantSuppliers:
		return models.Researcher().FindSuppliers(ctx, firstNonEmpty(turn.SpecificRequest, defaultSupplierProduct), bc.LocationAddress())
	case VariantEvents:
		return models.Researcher().DiscoverEvents(ctx, *bc.Location)
	case VariantCompetitors:
		return models.Researcher().AnalyzeCompetitors(ctx,
			firstNonEmpty(bc.BusinessType, defaultCompetitorType),
			firstNonEmpty(bc.LocationAddress(), defaultCompetitorRegion),
		)
	default:
		return models.Strategist().AnalyzeSituation(ctx, turn.Message, bc)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

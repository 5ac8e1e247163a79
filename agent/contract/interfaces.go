package contract

import "context"

// Router decides which agents a turn activates. It never fails; on any problem it
// returns the strategist-only fallback decision.
type Router interface {
	Route(ctx context.Context, req RoutingRequest) RoutingDecision
}

// Invokers below never return errors. A failed call yields a degraded AgentResponse
// with an apology and no Data.

type Strategist interface {
	AnalyzeSituation(ctx context.Context, message string, bc BusinessContext) AgentResponse
	Simulate(ctx context.Context, in SimulationInput) AgentResponse
	SuggestCollaborations(ctx context.Context, in CollaborationInput) AgentResponse
}

type Creative interface {
	GeneratePromo(ctx context.Context, event PromoEvent, bc BusinessContext) AgentResponse
	RespondToReview(ctx context.Context, review Review) AgentResponse
	GenerateBrandKit(ctx context.Context, in BrandInput) AgentResponse
}

type Researcher interface {
	FindSuppliers(ctx context.Context, product string, location string) AgentResponse
	DiscoverEvents(ctx context.Context, loc Location) AgentResponse
	AnalyzeCompetitors(ctx context.Context, businessType string, location string) AgentResponse
	AnalyzeSentiment(ctx context.Context, text string) AgentResponse
	AnalyzeLocation(ctx context.Context, in LocationInput) AgentResponse
}

type Registry interface {
	Router() Router
	Strategist() Strategist
	Creative() Creative
	Researcher() Researcher
}

// ImageGenerator returns an image reference (data URL or hosted URL) for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

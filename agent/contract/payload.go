package contract

import (
	"encoding/json"
	"fmt"
	"slices"
)

type PayloadKind string

const (
	PayloadMissions      PayloadKind = "missions"
	PayloadSimulation    PayloadKind = "simulation"
	PayloadCollaboration PayloadKind = "collaboration"
	PayloadPromo         PayloadKind = "promo"
	PayloadReviewReply   PayloadKind = "review_reply"
	PayloadBrand         PayloadKind = "brand"
	PayloadResearch      PayloadKind = "research"
	PayloadSentiment     PayloadKind = "sentiment"
	PayloadLocation      PayloadKind = "location"
)

// Payload is the widget data attached to an AgentResponse. Its concrete type depends on the agent.
type Payload interface {
	Kind() PayloadKind
}

var allowedPayloads = map[AgentType][]PayloadKind{
	AgentTypeStrategist: {PayloadMissions, PayloadSimulation, PayloadCollaboration},
	AgentTypeCreative:   {PayloadPromo, PayloadReviewReply, PayloadBrand},
	AgentTypeResearcher: {PayloadResearch, PayloadSentiment, PayloadLocation},
}

func PayloadAllowed(agent AgentType, kind PayloadKind) bool {
	return slices.Contains(allowedPayloads[agent], kind)
}

// AgentResponse is one agent's output for a turn. It is not mutated after construction.
type AgentResponse struct {
	Agent   AgentType
	Title   string
	Content string
	Data    Payload
}

type agentResponseJSON struct {
	Agent    AgentType       `json:"agent"`
	Title    string          `json:"title,omitempty"`
	Content  string          `json:"content"`
	DataKind PayloadKind     `json:"data_kind,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func (r AgentResponse) MarshalJSON() ([]byte, error) {
	out := agentResponseJSON{
		Agent:   r.Agent,
		Title:   r.Title,
		Content: r.Content,
	}
	if r.Data != nil {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", r.Data.Kind(), err)
		}
		out.DataKind = r.Data.Kind()
		out.Data = raw
	}
	return json.Marshal(out)
}

func (r *AgentResponse) UnmarshalJSON(b []byte) error {
	var in agentResponseJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	data, err := DecodePayload(in.Agent, in.DataKind, in.Data)
	if err != nil {
		return err
	}
	*r = AgentResponse{
		Agent:   in.Agent,
		Title:   in.Title,
		Content: in.Content,
		Data:    data,
	}
	return nil
}

// DecodePayload rebuilds a typed payload from its stored kind. Empty kind means no data.
func DecodePayload(agent AgentType, kind PayloadKind, raw json.RawMessage) (Payload, error) {
	if kind == "" {
		return nil, nil
	}
	if !PayloadAllowed(agent, kind) {
		return nil, fmt.Errorf("%w: payload kind=%s not allowed for agent=%s", ErrValidation, kind, agent)
	}

	var p Payload
	switch kind {
	case PayloadMissions:
		p = &MissionPlan{}
	case PayloadSimulation:
		p = &SimulationReport{}
	case PayloadCollaboration:
		p = &CollaborationIdeas{}
	case PayloadPromo:
		p = &PromoAsset{}
	case PayloadReviewReply:
		p = &ReviewReply{}
	case PayloadBrand:
		p = &BrandKit{}
	case PayloadResearch:
		p = &ResearchReport{}
	case PayloadSentiment:
		p = &SentimentReport{}
	case PayloadLocation:
		p = &LocationReport{}
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	return p, nil
}

type Mission struct {
	Priority int    `json:"priority"`
	Title    string `json:"title"`
	Action   string `json:"action"`
	Why      string `json:"why"`
	Deadline string `json:"deadline"`
}

type MissionPlan struct {
	QuickAnalysis  string    `json:"quickAnalysis"`
	DailyMissions  []Mission `json:"dailyMissions"`
	ExpectedImpact string    `json:"expectedImpact"`
}

func (*MissionPlan) Kind() PayloadKind { return PayloadMissions }

type ChartPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
}

type SimulationReport struct {
	BreakEvenPoint   string       `json:"breakEvenPoint"`
	ROI              string       `json:"roi"`
	MarketSaturation string       `json:"marketSaturation"`
	RiskLevel        string       `json:"riskLevel"`
	ChartData        []ChartPoint `json:"chartData"`
	StrategicAdvice  []string     `json:"strategicAdvice"`
}

func (*SimulationReport) Kind() PayloadKind { return PayloadSimulation }

type CollaborationIdea struct {
	PartnerName string `json:"partnerName"`
	PartnerType string `json:"partnerType"`
	Mechanism   string `json:"mechanism"`
	Benefit     string `json:"benefit"`
}

type CollaborationIdeas struct {
	Ideas []CollaborationIdea `json:"ideas"`
}

func (*CollaborationIdeas) Kind() PayloadKind { return PayloadCollaboration }

type PromoAsset struct {
	Type           string `json:"type"`
	Copy           string `json:"copy"`
	VisualConcept  string `json:"visualConcept"`
	TargetAudience string `json:"targetAudience"`
	CallToAction   string `json:"callToAction"`
	PosterURL      string `json:"posterUrl"`
}

func (*PromoAsset) Kind() PayloadKind { return PayloadPromo }

type ReviewReply struct {
	ApologyMessage string `json:"apologyMessage"`
	InternalNote   string `json:"internalNote"`
	UrgencyLevel   string `json:"urgencyLevel"`
	Rating         int    `json:"rating"`
	Reviewer       string `json:"reviewer"`
}

func (*ReviewReply) Kind() PayloadKind { return PayloadReviewReply }

type BrandKit struct {
	Taglines    []string `json:"taglines"`
	Description string   `json:"description"`
	LogoURL     string   `json:"logoUrl"`
}

func (*BrandKit) Kind() PayloadKind { return PayloadBrand }

type Finding struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Actionable  string `json:"actionable"`
	Source      string `json:"source,omitempty"`
	Priority    string `json:"priority"`
}

type ResearchReport struct {
	Focus          string    `json:"focus"` // supplier | event | competitor
	Findings       []Finding `json:"findings"`
	Recommendation string    `json:"recommendation"`
}

func (*ResearchReport) Kind() PayloadKind { return PayloadResearch }

type SentimentReport struct {
	Score             int      `json:"score"`
	Sentiment         string   `json:"sentiment"`
	Summary           string   `json:"summary"`
	ActionableInsight string   `json:"actionableInsight"`
	Keywords          []string `json:"keywords"`
}

func (*SentimentReport) Kind() PayloadKind { return PayloadSentiment }

type LocationReport struct {
	SuitabilityScore   int      `json:"suitabilityScore"`
	EconomicGrade      string   `json:"economicGrade"`
	DemographicFit     string   `json:"demographicFit"`
	CompetitorAnalysis string   `json:"competitorAnalysis"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	Recommendation     string   `json:"recommendation"`
}

func (*LocationReport) Kind() PayloadKind { return PayloadLocation }

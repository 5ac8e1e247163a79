package contract

import "strings"

type AgentType string

const (
	AgentTypeUser       AgentType = "user"
	AgentTypeStrategist AgentType = "strategist"
	AgentTypeCreative   AgentType = "creative"
	AgentTypeResearcher AgentType = "researcher"
)

// Role selects model and sampling overrides in llm.Config. Router is not an agent persona.
type Role string

const (
	RoleRouter     Role = "router"
	RoleStrategist Role = Role(AgentTypeStrategist)
	RoleCreative   Role = Role(AgentTypeCreative)
	RoleResearcher Role = Role(AgentTypeResearcher)
)

// ParseAgentType accepts the persona names the router may emit, case-insensitively.
func ParseAgentType(raw string) (AgentType, bool) {
	switch AgentType(strings.ToLower(strings.TrimSpace(raw))) {
	case AgentTypeStrategist:
		return AgentTypeStrategist, true
	case AgentTypeCreative:
		return AgentTypeCreative, true
	case AgentTypeResearcher:
		return AgentTypeResearcher, true
	default:
		return "", false
	}
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// BusinessContext is the accreted record of known facts about the client's business.
type BusinessContext struct {
	BusinessName     string    `json:"businessName,omitempty"`
	BusinessType     string    `json:"businessType,omitempty"`
	Location         *Location `json:"location,omitempty"`
	CurrentSituation string    `json:"currentSituation,omitempty"`
	Goals            []string  `json:"goals,omitempty"`
	Challenges       []string  `json:"challenges,omitempty"`
}

func (c BusinessContext) IsEmpty() bool {
	return c.BusinessName == "" && c.BusinessType == "" && c.Location == nil &&
		c.CurrentSituation == "" && len(c.Goals) == 0 && len(c.Challenges) == 0
}

func (c BusinessContext) LocationAddress() string {
	if c.Location == nil {
		return ""
	}
	return c.Location.Address
}

// ContextPatch is a partial BusinessContext. A nil field is absent and leaves the prior value alone.
type ContextPatch struct {
	BusinessName     *string   `json:"businessName,omitempty"`
	BusinessType     *string   `json:"businessType,omitempty"`
	Location         *Location `json:"location,omitempty"`
	CurrentSituation *string   `json:"currentSituation,omitempty"`
	Goals            []string  `json:"goals,omitempty"`
	Challenges       []string  `json:"challenges,omitempty"`
}

func (p ContextPatch) IsEmpty() bool {
	return p.BusinessName == nil && p.BusinessType == nil && p.Location == nil &&
		p.CurrentSituation == nil && p.Goals == nil && p.Challenges == nil
}

// Clone returns a deep copy.
func (c BusinessContext) Clone() BusinessContext {
	out := c
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	if c.Goals != nil {
		out.Goals = append([]string(nil), c.Goals...)
	}
	if c.Challenges != nil {
		out.Challenges = append([]string(nil), c.Challenges...)
	}
	return out
}

// Merge overlays every present key of patch onto c. Absent keys keep their prior value.
func (c BusinessContext) Merge(patch ContextPatch) BusinessContext {
	out := c.Clone()
	if patch.BusinessName != nil {
		out.BusinessName = *patch.BusinessName
	}
	if patch.BusinessType != nil {
		out.BusinessType = *patch.BusinessType
	}
	if patch.Location != nil {
		loc := *patch.Location
		out.Location = &loc
	}
	if patch.CurrentSituation != nil {
		out.CurrentSituation = *patch.CurrentSituation
	}
	if patch.Goals != nil {
		out.Goals = append([]string(nil), patch.Goals...)
	}
	if patch.Challenges != nil {
		out.Challenges = append([]string(nil), patch.Challenges...)
	}
	return out
}

// RoutingDecision is produced once per turn and discarded after dispatch.
type RoutingDecision struct {
	Intent          string       `json:"intent"`
	Agents          []AgentType  `json:"agents_to_activate"`
	Extraction      ContextPatch `json:"context_extraction"`
	SpecificRequest string       `json:"specificRequest,omitempty"`
	Fallback        bool         `json:"-"`
}

// FallbackDecision activates the strategist alone with nothing extracted.
func FallbackDecision() RoutingDecision {
	return RoutingDecision{
		Agents:   []AgentType{AgentTypeStrategist},
		Fallback: true,
	}
}

type RoutingRequest struct {
	Message string
	Prior   *BusinessContext
}

// TurnResult is the per-turn outbound contract: ordered responses plus the merged context.
type TurnResult struct {
	Responses []AgentResponse `json:"responses"`
	Context   BusinessContext `json:"updatedContext"`
}

type TurnInput struct {
	UserID         string
	ConversationID string
	Text           string
}

type TurnOutput struct {
	ConversationID string          `json:"conversationId"`
	Responses      []AgentResponse `json:"responses"`
	Context        BusinessContext `json:"updatedContext"`
}

type PromoEvent struct {
	Name    string `json:"name"`
	Date    string `json:"date,omitempty"`
	Context string `json:"context,omitempty"`
}

type Review struct {
	Rating   int    `json:"rating"`
	Text     string `json:"text"`
	Reviewer string `json:"reviewer"`
}

type BrandInput struct {
	Name string `json:"name"`
	Vibe string `json:"vibe"`
}

type LocationInput struct {
	ImageBase64 string    `json:"image"`
	MIMEType    string    `json:"mimeType,omitempty"`
	Description string    `json:"description"`
	Coords      *Location `json:"coords,omitempty"`
}

type SimulationInput struct {
	Price           float64 `json:"price"`
	MarketingBudget float64 `json:"marketingBudget"`
	OperationalCost float64 `json:"operationalCost"`
	BusinessType    string  `json:"businessType"`
}

type CollaborationInput struct {
	Business string `json:"business"`
	Goal     string `json:"goal"`
}

// SpecialDay is one detected calendar occasion.
type SpecialDay struct {
	Name string `json:"name"`
	Date string `json:"date"` // YYYY-MM-DD
}

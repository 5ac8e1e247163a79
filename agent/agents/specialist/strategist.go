package specialist

import (
	"context"
	"fmt"
	"strconv"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	parsex "github.com/thoriqalqi/VISTARA/agent/parse"
	promptx "github.com/thoriqalqi/VISTARA/agent/prompt"
)

type strategistImpl struct {
	rt          runtime
	analyze     compose.Runnable[map[string]any, parsex.Object]
	simulate    compose.Runnable[map[string]any, parsex.Object]
	collaborate compose.Runnable[map[string]any, []parsex.Object]
}

func newStrategist(ctx context.Context, rt runtime, chatModel einomodel.BaseChatModel, prompts promptx.PromptSet) (*strategistImpl, error) {
	analyze, err := compileObjectGraph(ctx, chatModel, prompts.StrategistPersona, prompts.Strategist, "strategist.analyze_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile strategist graph: %v", contractx.ErrModelInvoke, err)
	}
	simulate, err := compileObjectGraph(ctx, chatModel, "", prompts.Simulation, "strategist.simulate_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile simulation graph: %v", contractx.ErrModelInvoke, err)
	}
	collaborate, err := compileIdeasGraph(ctx, chatModel, "", prompts.Collaboration, "strategist.collaborate_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile collaboration graph: %v", contractx.ErrModelInvoke, err)
	}
	return &strategistImpl{rt: rt, analyze: analyze, simulate: simulate, collaborate: collaborate}, nil
}

func (s *strategistImpl) AnalyzeSituation(ctx context.Context, message string, bc contractx.BusinessContext) contractx.AgentResponse {
	const variant = "analyze"
	obj, err := runCall(ctx, s.rt, callStrategist, s.analyze, map[string]any{
		"message":      message,
		"businessName": bc.BusinessName,
		"businessType": bc.BusinessType,
		"situation":    bc.CurrentSituation,
	})
	if err != nil {
		return s.rt.degraded(contractx.AgentTypeStrategist, variant, err, apologyStrategist)
	}

	plan := missionPlanFrom(obj)
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeStrategist,
		Title:   titleStrategicPlan,
		Content: renderMissionPlan(plan),
	}
	if !obj.IsEmpty() {
		resp.Data = plan
	}
	return s.rt.ok(contractx.AgentTypeStrategist, variant, resp)
}

func (s *strategistImpl) Simulate(ctx context.Context, in contractx.SimulationInput) contractx.AgentResponse {
	const variant = "simulate"
	obj, err := runCall(ctx, s.rt, callSimulation, s.simulate, map[string]any{
		"businessType":    in.BusinessType,
		"price":           formatAmount(in.Price),
		"marketingBudget": formatAmount(in.MarketingBudget),
		"operationalCost": formatAmount(in.OperationalCost),
	})
	if err != nil {
		return s.rt.degraded(contractx.AgentTypeStrategist, variant, err, apologySimulation)
	}

	report := simulationFrom(obj)
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeStrategist,
		Title:   titleSimulation,
		Content: renderSimulation(in.BusinessType, report),
	}
	if !obj.IsEmpty() {
		resp.Data = report
	}
	return s.rt.ok(contractx.AgentTypeStrategist, variant, resp)
}

func (s *strategistImpl) SuggestCollaborations(ctx context.Context, in contractx.CollaborationInput) contractx.AgentResponse {
	const variant = "collaborate"
	objs, err := runCall(ctx, s.rt, callCollaboration, s.collaborate, map[string]any{
		"business": in.Business,
		"goal":     in.Goal,
	})
	if err != nil {
		return s.rt.degraded(contractx.AgentTypeStrategist, variant, err, apologyCollaboration)
	}

	ideas := &contractx.CollaborationIdeas{Ideas: make([]contractx.CollaborationIdea, 0, len(objs))}
	for _, o := range objs {
		ideas.Ideas = append(ideas.Ideas, contractx.CollaborationIdea{
			PartnerName: o.Str("partnerName", ""),
			PartnerType: o.Str("partnerType", ""),
			Mechanism:   o.Str("mechanism", ""),
			Benefit:     o.Str("benefit", ""),
		})
	}
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeStrategist,
		Title:   titleCollaboration,
		Content: renderCollaboration(in.Business, ideas),
	}
	if len(ideas.Ideas) > 0 {
		resp.Data = ideas
	}
	return s.rt.ok(contractx.AgentTypeStrategist, variant, resp)
}

func missionPlanFrom(obj parsex.Object) *contractx.MissionPlan {
	plan := &contractx.MissionPlan{
		QuickAnalysis:  obj.Str("quickAnalysis", ""),
		ExpectedImpact: obj.Str("expectedImpact", ""),
	}
	for i, m := range obj.Objects("dailyMissions") {
		plan.DailyMissions = append(plan.DailyMissions, contractx.Mission{
			Priority: m.Int("priority", i+1),
			Title:    m.Str("title", ""),
			Action:   m.Str("action", ""),
			Why:      m.Str("why", ""),
			Deadline: m.Str("deadline", ""),
		})
	}
	return plan
}

func simulationFrom(obj parsex.Object) *contractx.SimulationReport {
	report := &contractx.SimulationReport{
		BreakEvenPoint:   obj.Str("breakEvenPoint", ""),
		ROI:              obj.Str("roi", ""),
		MarketSaturation: obj.Str("marketSaturation", ""),
		RiskLevel:        obj.Str("riskLevel", ""),
		StrategicAdvice:  obj.Strings("strategicAdvice"),
	}
	for i, p := range obj.Objects("chartData") {
		report.ChartData = append(report.ChartData, contractx.ChartPoint{
			Month:   p.Str("month", "Bulan "+strconv.Itoa(i+1)),
			Revenue: p.Float("revenue", 0),
			Cost:    p.Float("cost", 0),
		})
	}
	return report
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

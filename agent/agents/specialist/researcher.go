package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	parsex "github.com/thoriqalqi/VISTARA/agent/parse"
	promptx "github.com/thoriqalqi/VISTARA/agent/prompt"
)

const (
	focusSupplier   = "supplier"
	focusEvent      = "event"
	focusCompetitor = "competitor"
)

type researcherImpl struct {
	rt          runtime
	suppliers   compose.Runnable[map[string]any, parsex.Object]
	events      compose.Runnable[map[string]any, parsex.Object]
	competitors compose.Runnable[map[string]any, parsex.Object]
	sentiment   compose.Runnable[map[string]any, parsex.Object]
	location    compose.Runnable[map[string]any, parsex.Object]
}

func newResearcher(ctx context.Context, rt runtime, chatModel einomodel.BaseChatModel, prompts promptx.PromptSet) (*researcherImpl, error) {
	r := &researcherImpl{rt: rt}
	graphs := []struct {
		dst      *compose.Runnable[map[string]any, parsex.Object]
		persona  string
		template string
		name     string
	}{
		{&r.suppliers, prompts.ResearcherPersona, prompts.Suppliers, "researcher.suppliers_graph"},
		{&r.events, prompts.ResearcherPersona, prompts.Events, "researcher.events_graph"},
		{&r.competitors, prompts.ResearcherPersona, prompts.Competitors, "researcher.competitors_graph"},
		{&r.sentiment, "", prompts.Sentiment, "researcher.sentiment_graph"},
	}
	for _, g := range graphs {
		runner, err := compileObjectGraph(ctx, chatModel, g.persona, g.template, g.name)
		if err != nil {
			return nil, fmt.Errorf("%w: compile %s: %v", contractx.ErrModelInvoke, g.name, err)
		}
		*g.dst = runner
	}

	location, err := compileVisionGraph(ctx, chatModel, "", prompts.Location, "researcher.location_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile location graph: %v", contractx.ErrModelInvoke, err)
	}
	r.location = location
	return r, nil
}

func (r *researcherImpl) FindSuppliers(ctx context.Context, product string, location string) contractx.AgentResponse {
	obj, err := runCall(ctx, r.rt, callSuppliers, r.suppliers, map[string]any{
		"product":  product,
		"location": location,
	})
	if err != nil {
		return r.rt.degraded(contractx.AgentTypeResearcher, focusSupplier, err, apologySuppliers)
	}
	report := researchFrom(obj, focusSupplier)
	return r.research(obj, focusSupplier, report, "Supplier Search - "+product, renderSuppliers(product, report))
}

func (r *researcherImpl) DiscoverEvents(ctx context.Context, loc contractx.Location) contractx.AgentResponse {
	obj, err := runCall(ctx, r.rt, callEvents, r.events, map[string]any{
		"address": loc.Address,
		"lat":     loc.Lat,
		"lng":     loc.Lng,
	})
	if err != nil {
		return r.rt.degraded(contractx.AgentTypeResearcher, focusEvent, err, apologyEvents)
	}
	report := researchFrom(obj, focusEvent)
	return r.research(obj, focusEvent, report, titleEvents, renderEvents(loc.Address, report))
}

func (r *researcherImpl) AnalyzeCompetitors(ctx context.Context, businessType string, location string) contractx.AgentResponse {
	obj, err := runCall(ctx, r.rt, callCompetitors, r.competitors, map[string]any{
		"businessType": businessType,
		"location":     location,
	})
	if err != nil {
		return r.rt.degraded(contractx.AgentTypeResearcher, focusCompetitor, err, apologyCompetitors)
	}
	report := researchFrom(obj, focusCompetitor)
	return r.research(obj, focusCompetitor, report, titleCompetitors, renderCompetitors(businessType, report))
}

func (r *researcherImpl) research(obj parsex.Object, focus string, report *contractx.ResearchReport, title, content string) contractx.AgentResponse {
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeResearcher,
		Title:   title,
		Content: content,
	}
	if !obj.IsEmpty() {
		resp.Data = report
	}
	return r.rt.ok(contractx.AgentTypeResearcher, focus, resp)
}

func (r *researcherImpl) AnalyzeSentiment(ctx context.Context, text string) contractx.AgentResponse {
	const variant = "sentiment"
	obj, err := runCall(ctx, r.rt, callSentiment, r.sentiment, map[string]any{"text": text})
	if err != nil {
		return r.rt.degraded(contractx.AgentTypeResearcher, variant, err, apologySentiment)
	}

	report := &contractx.SentimentReport{
		Score:             clampScore(obj.Int("score", 50)),
		Sentiment:         obj.Str("sentiment", ""),
		Summary:           obj.Str("summary", ""),
		ActionableInsight: obj.Str("actionableInsight", ""),
		Keywords:          obj.Strings("keywords"),
	}
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeResearcher,
		Title:   titleSentiment,
		Content: renderSentiment(report),
	}
	if !obj.IsEmpty() {
		resp.Data = report
	}
	return r.rt.ok(contractx.AgentTypeResearcher, variant, resp)
}

func (r *researcherImpl) AnalyzeLocation(ctx context.Context, in contractx.LocationInput) contractx.AgentResponse {
	const variant = "location"
	vars := map[string]any{
		"description": in.Description,
		"coords":      in.Coords != nil,
		"lat":         0.0,
		"lng":         0.0,
		imageURLKey:   imageDataURL(in.ImageBase64, in.MIMEType),
	}
	if in.Coords != nil {
		vars["lat"] = in.Coords.Lat
		vars["lng"] = in.Coords.Lng
	}

	obj, err := runCall(ctx, r.rt, callLocation, r.location, vars)
	if err != nil {
		return r.rt.degraded(contractx.AgentTypeResearcher, variant, err, apologyLocation)
	}

	report := &contractx.LocationReport{
		SuitabilityScore:   clampScore(obj.Int("suitabilityScore", 0)),
		EconomicGrade:      obj.Str("economicGrade", ""),
		DemographicFit:     obj.Str("demographicFit", ""),
		CompetitorAnalysis: obj.Str("competitorAnalysis", ""),
		Strengths:          obj.Strings("strengths"),
		Weaknesses:         obj.Strings("weaknesses"),
		Recommendation:     obj.Str("recommendation", ""),
	}
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeResearcher,
		Title:   titleLocation,
		Content: renderLocation(report),
	}
	if !obj.IsEmpty() {
		resp.Data = report
	}
	return r.rt.ok(contractx.AgentTypeResearcher, variant, resp)
}

func researchFrom(obj parsex.Object, focus string) *contractx.ResearchReport {
	report := &contractx.ResearchReport{
		Focus:          focus,
		Recommendation: obj.Str("recommendation", ""),
	}
	for _, f := range obj.Objects("findings") {
		report.Findings = append(report.Findings, contractx.Finding{
			Type:        f.Str("type", focus),
			Title:       f.Str("title", ""),
			Description: f.Str("description", ""),
			Actionable:  f.Str("actionable", ""),
			Source:      f.Str("source", ""),
			Priority:    strings.ToLower(f.Str("priority", "medium")),
		})
	}
	return report
}

// imageDataURL accepts raw base64 or an existing data URL.
func imageDataURL(image, mimeType string) string {
	image = strings.TrimSpace(image)
	if image == "" || strings.HasPrefix(image, "data:") || strings.HasPrefix(image, "http") {
		return image
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + image
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	parsex "github.com/thoriqalqi/VISTARA/agent/parse"
	promptx "github.com/thoriqalqi/VISTARA/agent/prompt"
	"golang.org/x/sync/errgroup"
)

type creativeImpl struct {
	rt      runtime
	prompts promptx.PromptSet
	promo   compose.Runnable[map[string]any, parsex.Object]
	apology compose.Runnable[map[string]any, parsex.Object]
	brand   compose.Runnable[map[string]any, parsex.Object]
}

func newCreative(ctx context.Context, rt runtime, chatModel einomodel.BaseChatModel, prompts promptx.PromptSet) (*creativeImpl, error) {
	promo, err := compileObjectGraph(ctx, chatModel, prompts.CreativePersona, prompts.Promo, "creative.promo_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile promo graph: %v", contractx.ErrModelInvoke, err)
	}
	apology, err := compileObjectGraph(ctx, chatModel, prompts.CreativePersona, prompts.Apology, "creative.apology_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile apology graph: %v", contractx.ErrModelInvoke, err)
	}
	brand, err := compileObjectGraph(ctx, chatModel, "", prompts.Brand, "creative.brand_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile brand graph: %v", contractx.ErrModelInvoke, err)
	}
	return &creativeImpl{rt: rt, prompts: prompts, promo: promo, apology: apology, brand: brand}, nil
}

const defaultVisualConcept = "Vibrant promotional design"

func (c *creativeImpl) GeneratePromo(ctx context.Context, event contractx.PromoEvent, bc contractx.BusinessContext) contractx.AgentResponse {
	const variant = "promo"
	businessName := orDefault(bc.BusinessName, "Bisnis Anda")
	obj, err := runCall(ctx, c.rt, callPromo, c.promo, map[string]any{
		"businessName": businessName,
		"businessType": orDefault(bc.BusinessType, "UMKM"),
		"eventName":    event.Name,
		"eventDate":    event.Date,
		"eventContext": event.Context,
	})
	if err != nil {
		return c.rt.degraded(contractx.AgentTypeCreative, variant, err, apologyPromo)
	}

	asset := &contractx.PromoAsset{
		Type:           obj.Str("type", "promo"),
		Copy:           obj.Str("copy", ""),
		VisualConcept:  obj.Str("visualConcept", ""),
		TargetAudience: obj.Str("targetAudience", ""),
		CallToAction:   obj.Str("callToAction", ""),
	}
	// The poster does not depend on the copy parsing; an unreadable reply still gets one.
	asset.PosterURL = c.rt.imageFrom(ctx, "creative.poster", c.prompts.Poster, map[string]any{
		"businessName":  businessName,
		"eventName":     event.Name,
		"visualConcept": orDefault(asset.VisualConcept, defaultVisualConcept),
	})

	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeCreative,
		Title:   "Promo Campaign - " + event.Name,
		Content: renderPromo(event.Name, asset),
	}
	if !obj.IsEmpty() || asset.PosterURL != "" {
		resp.Data = asset
	}
	return c.rt.ok(contractx.AgentTypeCreative, variant, resp)
}

func (c *creativeImpl) RespondToReview(ctx context.Context, review contractx.Review) contractx.AgentResponse {
	const variant = "apology"
	review.Reviewer = orDefault(review.Reviewer, "Customer")
	obj, err := runCall(ctx, c.rt, callApology, c.apology, map[string]any{
		"rating":   review.Rating,
		"text":     review.Text,
		"reviewer": review.Reviewer,
	})
	if err != nil {
		return c.rt.degraded(contractx.AgentTypeCreative, variant, err, apologyReview)
	}

	reply := &contractx.ReviewReply{
		ApologyMessage: obj.Str("apologyMessage", ""),
		InternalNote:   obj.Str("internalNote", ""),
		UrgencyLevel:   obj.Str("urgencyLevel", urgencyFor(review.Rating)),
		Rating:         review.Rating,
		Reviewer:       review.Reviewer,
	}
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeCreative,
		Title:   titleReview,
		Content: renderReviewReply(review, reply),
	}
	if !obj.IsEmpty() {
		resp.Data = reply
	}
	return c.rt.ok(contractx.AgentTypeCreative, variant, resp)
}

// GenerateBrandKit runs the copy and the logo concurrently; a logo failure leaves LogoURL empty.
func (c *creativeImpl) GenerateBrandKit(ctx context.Context, in contractx.BrandInput) contractx.AgentResponse {
	const variant = "brand"
	vars := map[string]any{"name": in.Name, "vibe": in.Vibe}

	var (
		obj     parsex.Object
		textErr error
		logoURL string
	)
	var g errgroup.Group
	g.Go(func() error {
		obj, textErr = runCall(ctx, c.rt, callBrand, c.brand, vars)
		return nil
	})
	g.Go(func() error {
		logoURL = c.rt.imageFrom(ctx, "creative.logo", c.prompts.Logo, vars)
		return nil
	})
	_ = g.Wait()

	if textErr != nil {
		return c.rt.degraded(contractx.AgentTypeCreative, variant, textErr, apologyBrand)
	}

	kit := &contractx.BrandKit{
		Taglines:    obj.Strings("taglines"),
		Description: obj.Str("description", ""),
		LogoURL:     logoURL,
	}
	resp := contractx.AgentResponse{
		Agent:   contractx.AgentTypeCreative,
		Title:   "Brand Kit - " + in.Name,
		Content: renderBrandKit(in.Name, kit),
	}
	if !obj.IsEmpty() || logoURL != "" {
		resp.Data = kit
	}
	return c.rt.ok(contractx.AgentTypeCreative, variant, resp)
}

func urgencyFor(rating int) string {
	switch {
	case rating <= 2:
		return "high"
	case rating == 3:
		return "medium"
	default:
		return "low"
	}
}

package orchestratornode

import (
	"strings"
	"unicode"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

// Signals are the keyword cues detected in a lowercased message.
type Signals struct {
	Review   bool
	Supplier bool
	Event    bool
}

// Variant names the concrete invoker an activated agent runs.
type Variant string

const (
	VariantMissionPlan Variant = "mission_plan"
	VariantPromo       Variant = "promo"
	VariantReviewReply Variant = "review_reply"
	VariantSuppliers   Variant = "suppliers"
	VariantEvents      Variant = "events"
	VariantCompetitors Variant = "competitors"
)

var (
	reviewKeywords   = []string{"review", "komplain", "complaint"}
	supplierKeywords = []string{"supplier", "cari", "search"}
	eventKeywords    = []string{"event", "bazar", "bazaar"}
)

const (
	defaultPromoName        = "Event Promo"
	defaultSupplierProduct  = "produk"
	defaultReviewer         = "Customer"
	defaultReviewRating     = 2
	defaultCompetitorType   = "Retail"
	defaultCompetitorRegion = "Indonesia"
)

// DetectSignals matches keywords at word starts, so "reviews" and "bazarnya"
// count while "preview" and "research" do not.
func DetectSignals(message string) Signals {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return Signals{
		Review:   hasKeyword(words, reviewKeywords),
		Supplier: hasKeyword(words, supplierKeywords),
		Event:    hasKeyword(words, eventKeywords),
	}
}

// SelectVariant is the dispatch table. Event discovery needs a location and
// otherwise falls back to competitor analysis so every agent answers.
func SelectVariant(agent contractx.AgentType, sig Signals, hasLocation bool) Variant {
	switch agent {
	case contractx.AgentTypeCreative:
		if sig.Review {
			return VariantReviewReply
		}
		return VariantPromo
	case contractx.AgentTypeResearcher:
		switch {
		case sig.Supplier:
			return VariantSuppliers
		case sig.Event && hasLocation:
			return VariantEvents
		default:
			return VariantCompetitors
		}
	default:
		return VariantMissionPlan
	}
}

func hasKeyword(words, keywords []string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if strings.HasPrefix(w, k) {
				return true
			}
		}
	}
	return false
}

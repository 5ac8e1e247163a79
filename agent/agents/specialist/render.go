package specialist

import (
	"fmt"
	"strings"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

const (
	titleError         = "Error"
	titleStrategicPlan = "Strategic Plan"
	titleSimulation    = "Business Simulation"
	titleCollaboration = "Collaboration Ideas"
	titleReview        = "Review Response"
	titleEvents        = "Local Events Discovery"
	titleCompetitors   = "Competitor Intelligence"
	titleSentiment     = "Sentiment Analysis"
	titleLocation      = "Location Analysis"
)

const (
	apologyStrategist    = "Maaf, sedang ada gangguan dalam analisis strategis. Coba lagi sebentar."
	apologySimulation    = "Maaf, simulasi bisnis mengalami gangguan. Coba lagi sebentar."
	apologyCollaboration = "Maaf, pencarian ide kolaborasi mengalami gangguan. Coba lagi sebentar."
	apologyPromo         = "Maaf, sedang ada gangguan dalam pembuatan kampanye. Coba lagi sebentar."
	apologyReview        = "Maaf, gagal generate response untuk review."
	apologyBrand         = "Maaf, pembuatan brand kit mengalami gangguan. Coba lagi sebentar."
	apologySuppliers     = "Maaf, pencarian supplier mengalami gangguan. Coba lagi sebentar."
	apologyEvents        = "Maaf, pencarian event mengalami gangguan."
	apologyCompetitors   = "Maaf, analisis kompetitor mengalami gangguan."
	apologySentiment     = "Maaf, analisis sentimen mengalami gangguan."
	apologyLocation      = "Maaf, analisis lokasi mengalami gangguan."
)

const (
	placeholder        = "Belum tersedia."
	defaultAnalysis    = "Sedang menganalisis..."
	defaultAudience    = "General audience"
	defaultCTA         = "Kunjungi sekarang!"
	defaultSupplierRec = "Hubungi supplier prioritas tinggi terlebih dahulu."
	noFindings         = "Belum ada temuan yang bisa ditampilkan."
)

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func renderMissionPlan(plan *contractx.MissionPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Analisis Cepat:**\n%s\n\n", orDefault(plan.QuickAnalysis, defaultAnalysis))
	b.WriteString("🎯 **Misi Harian Anda:**\n")
	if len(plan.DailyMissions) == 0 {
		b.WriteString("Belum ada misi yang bisa disusun.\n")
	}
	for i, m := range plan.DailyMissions {
		fmt.Fprintf(&b, "\n%d. **%s**\n", i+1, orDefault(m.Title, "Misi "+fmt.Sprint(i+1)))
		fmt.Fprintf(&b, "   📋 %s\n", orDefault(m.Action, placeholder))
		fmt.Fprintf(&b, "   💡 %s\n", orDefault(m.Why, placeholder))
		fmt.Fprintf(&b, "   ⏰ Deadline: %s\n", orDefault(m.Deadline, "Hari ini"))
	}
	fmt.Fprintf(&b, "\n💰 **Expected Impact:**\n%s", orDefault(plan.ExpectedImpact, placeholder))
	return b.String()
}

func renderSimulation(businessType string, r *contractx.SimulationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 **Simulasi Bisnis: %s**\n\n", orDefault(businessType, "UMKM"))
	fmt.Fprintf(&b, "⏳ **Break-even:** %s\n", orDefault(r.BreakEvenPoint, placeholder))
	fmt.Fprintf(&b, "💹 **ROI:** %s\n", orDefault(r.ROI, placeholder))
	fmt.Fprintf(&b, "🏪 **Kepadatan Pasar:** %s\n", orDefault(r.MarketSaturation, placeholder))
	fmt.Fprintf(&b, "⚠️ **Risiko:** %s\n", orDefault(r.RiskLevel, placeholder))
	b.WriteString("\n🛟 **Saran Strategis:**\n")
	writeNumbered(&b, r.StrategicAdvice)
	return strings.TrimRight(b.String(), "\n")
}

func renderCollaboration(business string, ideas *contractx.CollaborationIdeas) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤝 **Ide Kolaborasi untuk %s**\n", orDefault(business, "Bisnis Anda"))
	if len(ideas.Ideas) == 0 {
		b.WriteString("\nBelum ada ide kolaborasi yang bisa disusun.")
		return b.String()
	}
	for i, idea := range ideas.Ideas {
		fmt.Fprintf(&b, "\n%d. **%s**", i+1, orDefault(idea.PartnerName, "Mitra "+fmt.Sprint(i+1)))
		if idea.PartnerType != "" {
			fmt.Fprintf(&b, " (%s)", idea.PartnerType)
		}
		fmt.Fprintf(&b, "\n   🔧 %s\n   🎁 %s\n", orDefault(idea.Mechanism, placeholder), orDefault(idea.Benefit, placeholder))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPromo(eventName string, p *contractx.PromoAsset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎨 **Kampanye Promo: %s**\n\n", eventName)
	fmt.Fprintf(&b, "%s\n\n", orDefault(p.Copy, placeholder))
	fmt.Fprintf(&b, "🎯 **Target:** %s\n", orDefault(p.TargetAudience, defaultAudience))
	fmt.Fprintf(&b, "💬 **CTA:** %s", orDefault(p.CallToAction, defaultCTA))
	return b.String()
}

func renderReviewReply(review contractx.Review, r *contractx.ReviewReply) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ **Review Alert - Bintang %d**\n\n", review.Rating)
	fmt.Fprintf(&b, "**Reviewer:** %s\n", orDefault(review.Reviewer, "Customer"))
	fmt.Fprintf(&b, "**Review:** \"%s\"\n\n", review.Text)
	fmt.Fprintf(&b, "📝 **Draft Balasan:**\n%s\n\n", orDefault(r.ApologyMessage, placeholder))
	fmt.Fprintf(&b, "🔧 **Action Item:**\n%s", orDefault(r.InternalNote, placeholder))
	return b.String()
}

func renderBrandKit(name string, k *contractx.BrandKit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ **Brand Kit: %s**\n\n", name)
	b.WriteString("🏷️ **Tagline:**\n")
	if len(k.Taglines) == 0 {
		b.WriteString(placeholder + "\n")
	}
	for _, t := range k.Taglines {
		fmt.Fprintf(&b, "• %s\n", t)
	}
	fmt.Fprintf(&b, "\n📖 **Brand Story:**\n%s", orDefault(k.Description, placeholder))
	return b.String()
}

func renderSuppliers(product string, r *contractx.ResearchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **Hasil Pencarian Supplier: %s**\n", product)
	writeFindings(&b, r.Findings, func(int, contractx.Finding) string { return "" })
	fmt.Fprintf(&b, "\n💡 **Rekomendasi:** %s", orDefault(r.Recommendation, defaultSupplierRec))
	return b.String()
}

func renderEvents(address string, r *contractx.ResearchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 **Event Opportunities di %s**\n", orDefault(address, "lokasi Anda"))
	writeFindings(&b, r.Findings, func(_ int, f contractx.Finding) string { return priorityEmoji(f.Priority) + " " })
	fmt.Fprintf(&b, "\n💡 **Rekomendasi:** %s", orDefault(r.Recommendation, placeholder))
	return b.String()
}

func renderCompetitors(businessType string, r *contractx.ResearchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 **Competitor Analysis - %s**\n", businessType)
	writeFindings(&b, r.Findings, func(int, contractx.Finding) string { return "" })
	fmt.Fprintf(&b, "\n🚀 **Strategic Recommendation:**\n%s", orDefault(r.Recommendation, placeholder))
	return b.String()
}

func renderSentiment(r *contractx.SentimentReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💬 **Analisis Sentimen: %s** (%d/100)\n\n", orDefault(r.Sentiment, "Neutral"), r.Score)
	fmt.Fprintf(&b, "%s\n\n", orDefault(r.Summary, placeholder))
	fmt.Fprintf(&b, "🛠️ **Insight:** %s", orDefault(r.ActionableInsight, placeholder))
	if len(r.Keywords) > 0 {
		fmt.Fprintf(&b, "\n\n🔑 **Kata Kunci:** %s", strings.Join(r.Keywords, ", "))
	}
	return b.String()
}

func renderLocation(r *contractx.LocationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📍 **Analisis Lokasi: %s** (skor %d/100)\n\n", orDefault(r.EconomicGrade, "Belum dinilai"), r.SuitabilityScore)
	fmt.Fprintf(&b, "👥 **Demografi:** %s\n", orDefault(r.DemographicFit, placeholder))
	fmt.Fprintf(&b, "⚔️ **Kompetitor:** %s\n\n", orDefault(r.CompetitorAnalysis, placeholder))
	b.WriteString("✅ **Kekuatan:**\n")
	writeBullets(&b, r.Strengths)
	b.WriteString("\n❌ **Kelemahan:**\n")
	writeBullets(&b, r.Weaknesses)
	fmt.Fprintf(&b, "\n🧭 **Rekomendasi:** %s", orDefault(r.Recommendation, placeholder))
	return b.String()
}

func writeFindings(b *strings.Builder, findings []contractx.Finding, prefix func(int, contractx.Finding) string) {
	if len(findings) == 0 {
		fmt.Fprintf(b, "\n%s\n", noFindings)
		return
	}
	for i, f := range findings {
		marker := prefix(i, f)
		if marker == "" {
			marker = fmt.Sprintf("%d. ", i+1)
		}
		fmt.Fprintf(b, "\n%s**%s**\n", marker, orDefault(f.Title, placeholder))
		fmt.Fprintf(b, "   %s\n", orDefault(f.Description, placeholder))
		if f.Actionable != "" {
			fmt.Fprintf(b, "   ✅ %s\n", f.Actionable)
		}
		if f.Source != "" {
			fmt.Fprintf(b, "   📍 Sumber: %s\n", f.Source)
		}
	}
}

func writeNumbered(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString(placeholder + "\n")
		return
	}
	for i, it := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, it)
	}
}

func writeBullets(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString(placeholder + "\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "• %s\n", it)
	}
}

func priorityEmoji(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "high":
		return "⭐"
	case "medium":
		return "✨"
	default:
		return "💫"
	}
}

package orchestratornode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

type call struct {
	method string
	args   []any
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	delay map[string]time.Duration
}

func (r *recorder) record(ctx context.Context, method string, args ...any) {
	if d := r.delay[method]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{method: method, args: args})
}

func (r *recorder) find(method string) (call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.method == method {
			return c, true
		}
	}
	return call{}, false
}

type fakeRegistry struct {
	rec *recorder
}

func (f fakeRegistry) Router() contractx.Router         { return nil }
func (f fakeRegistry) Strategist() contractx.Strategist { return fakeStrategist(f) }
func (f fakeRegistry) Creative() contractx.Creative     { return fakeCreative(f) }
func (f fakeRegistry) Researcher() contractx.Researcher { return fakeResearcher(f) }

type fakeStrategist fakeRegistry

func (f fakeStrategist) AnalyzeSituation(ctx context.Context, message string, bc contractx.BusinessContext) contractx.AgentResponse {
	f.rec.record(ctx, "AnalyzeSituation", message, bc)
	return contractx.AgentResponse{Agent: contractx.AgentTypeStrategist, Title: "Mission Plan"}
}

func (f fakeStrategist) Simulate(ctx context.Context, in contractx.SimulationInput) contractx.AgentResponse {
	return contractx.AgentResponse{Agent: contractx.AgentTypeStrategist}
}

func (f fakeStrategist) SuggestCollaborations(ctx context.Context, in contractx.CollaborationInput) contractx.AgentResponse {
	return contractx.AgentResponse{Agent: contractx.AgentTypeStrategist}
}

type fakeCreative fakeRegistry

func (f fakeCreative) GeneratePromo(ctx context.Context, event contractx.PromoEvent, bc contractx.BusinessContext) contractx.AgentResponse {
	f.rec.record(ctx, "GeneratePromo", event)
	return contractx.AgentResponse{Agent: contractx.AgentTypeCreative, Title: "Promo"}
}

func (f fakeCreative) RespondToReview(ctx context.Context, review contractx.Review) contractx.AgentResponse {
	f.rec.record(ctx, "RespondToReview", review)
	return contractx.AgentResponse{Agent: contractx.AgentTypeCreative, Title: "Review Response"}
}

func (f fakeCreative) GenerateBrandKit(ctx context.Context, in contractx.BrandInput) contractx.AgentResponse {
	return contractx.AgentResponse{Agent: contractx.AgentTypeCreative}
}

type fakeResearcher fakeRegistry

func (f fakeResearcher) FindSuppliers(ctx context.Context, product string, location string) contractx.AgentResponse {
	f.rec.record(ctx, "FindSuppliers", product, location)
	return contractx.AgentResponse{Agent: contractx.AgentTypeResearcher, Title: "Suppliers"}
}

func (f fakeResearcher) DiscoverEvents(ctx context.Context, loc contractx.Location) contractx.AgentResponse {
	f.rec.record(ctx, "DiscoverEvents", loc)
	return contractx.AgentResponse{Agent: contractx.AgentTypeResearcher, Title: "Events"}
}

func (f fakeResearcher) AnalyzeCompetitors(ctx context.Context, businessType string, location string) contractx.AgentResponse {
	f.rec.record(ctx, "AnalyzeCompetitors", businessType, location)
	return contractx.AgentResponse{Agent: contractx.AgentTypeResearcher, Title: "Competitors"}
}

func (f fakeResearcher) AnalyzeSentiment(ctx context.Context, text string) contractx.AgentResponse {
	return contractx.AgentResponse{Agent: contractx.AgentTypeResearcher}
}

func (f fakeResearcher) AnalyzeLocation(ctx context.Context, in contractx.LocationInput) contractx.AgentResponse {
	return contractx.AgentResponse{Agent: contractx.AgentTypeResearcher}
}

func strPtr(s string) *string { return &s }

func TestDetectSignals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		msg  string
		want Signals
	}{
		{"Ada REVIEW jelek dari customer", Signals{Review: true}},
		{"tolong cari supplier kopi", Signals{Supplier: true}},
		{"ada bazar minggu depan?", Signals{Event: true}},
		{"omzet turun drastis bulan ini", Signals{}},
		{"komplain soal event kemarin", Signals{Review: true, Event: true}},
		{"butuh research pasar", Signals{}},
		{"lihat preview menu baru", Signals{}},
		{"banyak reviews buruk, events sepi", Signals{Review: true, Event: true}},
		{"supplier-nya di mana?", Signals{Supplier: true}},
	}
	for _, tc := range cases {
		if got := DetectSignals(tc.msg); got != tc.want {
			t.Errorf("DetectSignals(%q) = %+v, want %+v", tc.msg, got, tc.want)
		}
	}
}

type emptyRouter struct{}

func (emptyRouter) Route(context.Context, contractx.RoutingRequest) contractx.RoutingDecision {
	return contractx.RoutingDecision{
		Intent:     "unclear",
		Extraction: contractx.ContextPatch{BusinessName: strPtr("Kopi Ani")},
	}
}

func TestRouteFallsBackWhenNoAgentSelected(t *testing.T) {
	t.Parallel()

	decision := Route(context.Background(), emptyRouter{}, "halo", contractx.BusinessContext{})

	if len(decision.Agents) != 1 || decision.Agents[0] != contractx.AgentTypeStrategist {
		t.Fatalf("agents = %v, want strategist only", decision.Agents)
	}
	if !decision.Fallback {
		t.Fatal("expected fallback flag")
	}
	if decision.Extraction.BusinessName == nil || *decision.Extraction.BusinessName != "Kopi Ani" {
		t.Fatalf("extraction lost: %+v", decision.Extraction)
	}
	if decision.Intent != "unclear" {
		t.Fatalf("intent = %q", decision.Intent)
	}
}

func TestSelectVariant(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		agent       contractx.AgentType
		sig         Signals
		hasLocation bool
		want        Variant
	}{
		{"strategist", contractx.AgentTypeStrategist, Signals{Review: true}, false, VariantMissionPlan},
		{"creative review", contractx.AgentTypeCreative, Signals{Review: true}, false, VariantReviewReply},
		{"creative default", contractx.AgentTypeCreative, Signals{}, false, VariantPromo},
		{"researcher supplier wins over event", contractx.AgentTypeResearcher, Signals{Supplier: true, Event: true}, true, VariantSuppliers},
		{"researcher event with location", contractx.AgentTypeResearcher, Signals{Event: true}, true, VariantEvents},
		{"researcher event without location", contractx.AgentTypeResearcher, Signals{Event: true}, false, VariantCompetitors},
		{"researcher default", contractx.AgentTypeResearcher, Signals{}, true, VariantCompetitors},
	}
	for _, tc := range cases {
		if got := SelectVariant(tc.agent, tc.sig, tc.hasLocation); got != tc.want {
			t.Errorf("%s: SelectVariant() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDispatchPreservesActivationOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{delay: map[string]time.Duration{
		"AnalyzeSituation":   30 * time.Millisecond,
		"AnalyzeCompetitors": 10 * time.Millisecond,
	}}
	turn := Turn{Message: "bagaimana strategi saya?"}
	plan := Plan([]contractx.AgentType{
		contractx.AgentTypeStrategist,
		contractx.AgentTypeResearcher,
		contractx.AgentTypeCreative,
	}, turn)

	got := Dispatch(context.Background(), fakeRegistry{rec: rec}, plan, turn)
	want := []contractx.AgentType{contractx.AgentTypeStrategist, contractx.AgentTypeResearcher, contractx.AgentTypeCreative}
	if len(got) != len(want) {
		t.Fatalf("responses = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Agent != want[i] {
			t.Fatalf("responses[%d].Agent = %q, want %q", i, got[i].Agent, want[i])
		}
	}
}

func TestDispatchReviewUsesDefaults(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	turn := Turn{Message: "ada review jelek dari customer"}
	Dispatch(context.Background(), fakeRegistry{rec: rec}, Plan([]contractx.AgentType{contractx.AgentTypeCreative}, turn), turn)

	c, ok := rec.find("RespondToReview")
	if !ok {
		t.Fatal("RespondToReview was not called")
	}
	review := c.args[0].(contractx.Review)
	if review.Rating != 2 || review.Reviewer != "Customer" || review.Text != turn.Message {
		t.Fatalf("review = %+v", review)
	}
}

func TestDispatchResearcherVariants(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	loc := &contractx.Location{Lat: -6.2, Lng: 106.8, Address: "Jakarta Selatan"}

	supplier := Turn{Message: "cari supplier", SpecificRequest: "biji kopi", Context: contractx.BusinessContext{Location: loc}}
	Dispatch(context.Background(), fakeRegistry{rec: rec}, Plan([]contractx.AgentType{contractx.AgentTypeResearcher}, supplier), supplier)
	c, ok := rec.find("FindSuppliers")
	if !ok || c.args[0] != "biji kopi" || c.args[1] != "Jakarta Selatan" {
		t.Fatalf("FindSuppliers call = %+v", c)
	}

	events := Turn{Message: "ada event?", Context: contractx.BusinessContext{Location: loc}}
	Dispatch(context.Background(), fakeRegistry{rec: rec}, Plan([]contractx.AgentType{contractx.AgentTypeResearcher}, events), events)
	if c, ok := rec.find("DiscoverEvents"); !ok || c.args[0].(contractx.Location).Address != "Jakarta Selatan" {
		t.Fatalf("DiscoverEvents call = %+v", c)
	}

	noLocation := Turn{Message: "ada event?"}
	Dispatch(context.Background(), fakeRegistry{rec: rec}, Plan([]contractx.AgentType{contractx.AgentTypeResearcher}, noLocation), noLocation)
	if c, ok := rec.find("AnalyzeCompetitors"); !ok || c.args[0] != "Retail" || c.args[1] != "Indonesia" {
		t.Fatalf("AnalyzeCompetitors call = %+v", c)
	}
}

func TestDispatchPromoName(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	turn := Turn{Message: "bikin promo lebaran"}
	Dispatch(context.Background(), fakeRegistry{rec: rec}, Plan([]contractx.AgentType{contractx.AgentTypeCreative}, turn), turn)
	c, ok := rec.find("GeneratePromo")
	if !ok {
		t.Fatal("GeneratePromo was not called")
	}
	event := c.args[0].(contractx.PromoEvent)
	if event.Name != "Event Promo" || event.Context != turn.Message {
		t.Fatalf("event = %+v", event)
	}
}

func TestMergeDefaultsCurrentSituationToMessage(t *testing.T) {
	t.Parallel()

	prior := contractx.BusinessContext{BusinessName: "Toko Ani", CurrentSituation: "lama"}
	got := Merge(prior, contractx.ContextPatch{}, "omzet turun")
	if got.BusinessName != "Toko Ani" || got.CurrentSituation != "omzet turun" {
		t.Fatalf("Merge() = %+v", got)
	}

	got = Merge(prior, contractx.ContextPatch{CurrentSituation: strPtr("sepi")}, "omzet turun")
	if got.CurrentSituation != "sepi" {
		t.Fatalf("CurrentSituation = %q, want extracted value", got.CurrentSituation)
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	newID := func() string { return "generated" }

	if _, err := ValidateRequest(GraphInput{Text: "halo"}, now, newID); !errors.Is(err, contractx.ErrUnauthenticated) {
		t.Fatalf("missing user error = %v", err)
	}
	if _, err := ValidateRequest(GraphInput{UserID: "u1", Text: "  "}, now, newID); !errors.Is(err, contractx.ErrInvalidArgument) {
		t.Fatalf("empty text error = %v", err)
	}

	st, err := ValidateRequest(GraphInput{UserID: "u1", Text: " halo "}, now, newID)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if st.ConversationID != "generated" || st.Text != "halo" || !st.Now.Equal(now()) {
		t.Fatalf("state = %+v", st)
	}
}

func TestLoadContextOverlaysProfileAndChecksOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := statex.NewMemoryStore()
	conv := statex.NewConversation("conv-1", "u1", time.Now())
	conv.Context = contractx.BusinessContext{BusinessName: "Lama", Goals: []string{"a"}}
	if err := store.Save(ctx, conv); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.SaveProfile(ctx, &statex.Profile{UserID: "u1", BusinessName: "Toko Ani"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	st, err := LoadContext(ctx, &GraphState{UserID: "u1", ConversationID: "conv-1"}, store, store)
	if err != nil {
		t.Fatalf("LoadContext() error = %v", err)
	}
	if st.Prior.BusinessName != "Toko Ani" || len(st.Prior.Goals) != 1 {
		t.Fatalf("prior = %+v", st.Prior)
	}

	_, err = LoadContext(ctx, &GraphState{UserID: "intruder", ConversationID: "conv-1"}, store, store)
	if !errors.Is(err, contractx.ErrForbidden) {
		t.Fatalf("foreign conversation error = %v, want ErrForbidden", err)
	}

	st, err = LoadContext(ctx, &GraphState{UserID: "u2", ConversationID: "fresh"}, store, store)
	if err != nil || st.Conversation.UserID != "u2" || !st.Prior.IsEmpty() {
		t.Fatalf("new conversation = %+v, %v", st, err)
	}
}

func TestAppendHistoryWritesUserMessageFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := statex.NewMemoryStore()
	n := 0
	newID := func() string { n++; return string(rune('a' + n - 1)) }

	in := &GraphState{
		ConversationID: "conv-1",
		Text:           "halo",
		Now:            time.Now(),
		Responses: []contractx.AgentResponse{
			{Agent: contractx.AgentTypeStrategist},
			{Agent: contractx.AgentTypeCreative},
		},
	}
	if _, err := AppendHistory(ctx, in, store, newID); err != nil {
		t.Fatalf("AppendHistory() error = %v", err)
	}
	msgs, _ := store.ListMessages(ctx, "conv-1", 0)
	if len(msgs) != 3 || msgs[0].Response.Agent != contractx.AgentTypeUser || msgs[0].Response.Content != "halo" {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[2].Response.Agent != contractx.AgentTypeCreative || msgs[2].ID != "c" {
		t.Fatalf("last message = %+v", msgs[2])
	}
}

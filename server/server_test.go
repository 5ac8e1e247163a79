package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	gotInput contractx.TurnInput
	out      contractx.TurnOutput
	err      error
	history  []statex.Message
}

func (f *fakeChat) HandleMessage(_ context.Context, in contractx.TurnInput) (contractx.TurnOutput, error) {
	f.gotInput = in
	return f.out, f.err
}

func (f *fakeChat) History(_ context.Context, userID, conversationID string) ([]statex.Message, error) {
	if conversationID == "someone-else" {
		return nil, contractx.ErrForbidden
	}
	return f.history, f.err
}

type fakeAgents struct{ calls []string }

func (f *fakeAgents) reply(agent contractx.AgentType, call string) contractx.AgentResponse {
	f.calls = append(f.calls, call)
	return contractx.AgentResponse{Agent: agent, Title: call, Content: "ok"}
}

func (f *fakeAgents) Router() contractx.Router         { return nil }
func (f *fakeAgents) Strategist() contractx.Strategist { return fakeStrategist{f} }
func (f *fakeAgents) Creative() contractx.Creative     { return fakeCreative{f} }
func (f *fakeAgents) Researcher() contractx.Researcher { return fakeResearcher{f} }

type fakeStrategist struct{ f *fakeAgents }

func (s fakeStrategist) AnalyzeSituation(context.Context, string, contractx.BusinessContext) contractx.AgentResponse {
	return s.f.reply(contractx.AgentTypeStrategist, "situation")
}
func (s fakeStrategist) Simulate(context.Context, contractx.SimulationInput) contractx.AgentResponse {
	return s.f.reply(contractx.AgentTypeStrategist, "simulate")
}
func (s fakeStrategist) SuggestCollaborations(context.Context, contractx.CollaborationInput) contractx.AgentResponse {
	return s.f.reply(contractx.AgentTypeStrategist, "collaboration")
}

type fakeCreative struct{ f *fakeAgents }

func (c fakeCreative) GeneratePromo(context.Context, contractx.PromoEvent, contractx.BusinessContext) contractx.AgentResponse {
	return c.f.reply(contractx.AgentTypeCreative, "promo")
}
func (c fakeCreative) RespondToReview(context.Context, contractx.Review) contractx.AgentResponse {
	return c.f.reply(contractx.AgentTypeCreative, "review")
}
func (c fakeCreative) GenerateBrandKit(context.Context, contractx.BrandInput) contractx.AgentResponse {
	return c.f.reply(contractx.AgentTypeCreative, "brand")
}

type fakeResearcher struct{ f *fakeAgents }

func (r fakeResearcher) FindSuppliers(context.Context, string, string) contractx.AgentResponse {
	return r.f.reply(contractx.AgentTypeResearcher, "suppliers")
}
func (r fakeResearcher) DiscoverEvents(context.Context, contractx.Location) contractx.AgentResponse {
	return r.f.reply(contractx.AgentTypeResearcher, "events")
}
func (r fakeResearcher) AnalyzeCompetitors(context.Context, string, string) contractx.AgentResponse {
	return r.f.reply(contractx.AgentTypeResearcher, "competitors")
}
func (r fakeResearcher) AnalyzeSentiment(context.Context, string) contractx.AgentResponse {
	return r.f.reply(contractx.AgentTypeResearcher, "sentiment")
}
func (r fakeResearcher) AnalyzeLocation(_ context.Context, in contractx.LocationInput) contractx.AgentResponse {
	call := "location"
	if in.Coords != nil {
		call = "location+coords"
	}
	return r.f.reply(contractx.AgentTypeResearcher, call)
}

type fakeJob struct {
	runs int
	err  error
}

func (j *fakeJob) Run(context.Context, time.Time) (int, error) {
	j.runs++
	return 2, j.err
}

type fakeReviewJob struct{ runs int }

func (j *fakeReviewJob) Run(context.Context) (int, error) {
	j.runs++
	return 1, nil
}

type fakeVerifier struct {
	gotDestination string
	gotBody        string
}

func (v *fakeVerifier) Verify(signature, destination string, body []byte) error {
	v.gotDestination = destination
	v.gotBody = string(body)
	if signature != "good" {
		return errors.New("bad signature")
	}
	return nil
}

type fixture struct {
	server   *Server
	chat     *fakeChat
	agents   *fakeAgents
	store    *statex.MemoryStore
	events   *fakeJob
	reviews  *fakeReviewJob
	verifier *fakeVerifier
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		chat:     &fakeChat{},
		agents:   &fakeAgents{},
		store:    statex.NewMemoryStore(),
		events:   &fakeJob{},
		reviews:  &fakeReviewJob{},
		verifier: &fakeVerifier{},
	}
	s, err := New(cfg, AuthConfig{JWTSecret: testSecret}, Deps{
		Chat:          f.chat,
		Agents:        f.agents,
		Notifications: f.store,
		Events:        f.events,
		Reviews:       f.reviews,
		Verifier:      f.verifier,
		Gatherer:      prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	f.server = s
	return f
}

func token(t *testing.T, subject string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatRequiresBearerToken(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodPost, "/api/chat", "", map[string]string{"message": "halo"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"halo"}`))
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectedTokenHidesParserError(t *testing.T) {
	f := newFixture(t, Config{})

	for _, header := range []string{"", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"halo"}`))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "malformed")
	}
}

func TestChatPassesUserAndConversation(t *testing.T) {
	f := newFixture(t, Config{})
	f.chat.out = contractx.TurnOutput{
		ConversationID: "conv-1",
		Responses:      []contractx.AgentResponse{{Agent: contractx.AgentTypeStrategist, Content: "Rencana"}},
	}

	rec := f.do(t, http.MethodPost, "/api/chat", "user-1", map[string]string{
		"message":        "Toko saya sepi",
		"conversationId": "conv-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "user-1", f.chat.gotInput.UserID)
	assert.Equal(t, "conv-1", f.chat.gotInput.ConversationID)
	assert.Equal(t, "Toko saya sepi", f.chat.gotInput.Text)

	var out struct {
		ConversationID string `json:"conversationId"`
		Responses      []struct {
			Agent   string `json:"agent"`
			Content string `json:"content"`
		} `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "conv-1", out.ConversationID)
	require.Len(t, out.Responses, 1)
	assert.Equal(t, "strategist", out.Responses[0].Agent)
}

func TestChatMapsBoundaryErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: empty", contractx.ErrInvalidArgument), http.StatusBadRequest},
		{contractx.ErrForbidden, http.StatusForbidden},
		{statex.ErrConversationNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: write", contractx.ErrPersistence), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := newFixture(t, Config{})
		f.chat.err = tc.err

		rec := f.do(t, http.MethodPost, "/api/chat", "user-1", map[string]string{"message": "x"})
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	f := newFixture(t, Config{})
	f.chat.err = fmt.Errorf("%w: dial tcp 10.0.0.1:5432", contractx.ErrPersistence)

	rec := f.do(t, http.MethodPost, "/api/chat", "user-1", map[string]string{"message": "x"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestSpecialistEndpoints(t *testing.T) {
	f := newFixture(t, Config{})
	lat, lng := -6.9, 107.6

	cases := []struct {
		path string
		body any
		call string
	}{
		{"/api/brand", map[string]string{"name": "Kopi Ani", "vibe": "hangat"}, "brand"},
		{"/api/sentiment", map[string]string{"text": "Pelayanan lambat"}, "sentiment"},
		{"/api/location", map[string]any{"image": "aGVsbG8=", "description": "ruko"}, "location"},
		{"/api/location", map[string]any{"image": "aGVsbG8=", "lat": lat, "lng": lng}, "location+coords"},
		{"/api/simulation", map[string]any{"price": 15000, "marketingBudget": 500000, "operationalCost": 2000000, "businessType": "kopi"}, "simulate"},
		{"/api/collaboration", map[string]string{"business": "Kopi Ani", "goal": "naik omzet"}, "collaboration"},
	}
	for _, tc := range cases {
		rec := f.do(t, http.MethodPost, tc.path, "user-1", tc.body)
		require.Equal(t, http.StatusOK, rec.Code, tc.path)
		assert.Contains(t, rec.Body.String(), `"title":"`+tc.call+`"`, tc.path)
	}
	assert.Len(t, f.agents.calls, len(cases))
}

func TestSpecialistEndpointsRejectMissingFields(t *testing.T) {
	f := newFixture(t, Config{})

	cases := []struct {
		path string
		body any
	}{
		{"/api/brand", map[string]string{"name": "Kopi Ani"}},
		{"/api/sentiment", map[string]string{"text": "  "}},
		{"/api/location", map[string]string{"description": "ruko"}},
		{"/api/simulation", map[string]any{"price": 1000}},
		{"/api/simulation", map[string]any{"price": -1, "businessType": "kopi"}},
		{"/api/collaboration", map[string]string{"goal": "naik omzet"}},
	}
	for _, tc := range cases {
		rec := f.do(t, http.MethodPost, tc.path, "user-1", tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.path)
	}
	assert.Empty(t, f.agents.calls)
}

func TestHistoryOwnership(t *testing.T) {
	f := newFixture(t, Config{})
	f.chat.history = []statex.Message{{ID: "m1", Response: contractx.AgentResponse{Agent: contractx.AgentTypeUser, Content: "halo"}}}

	rec := f.do(t, http.MethodGet, "/api/conversations/conv-1/messages", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"halo"`)

	rec = f.do(t, http.MethodGet, "/api/conversations/someone-else/messages", "user-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotificationsListAndMarkRead(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	require.NoError(t, f.store.AddNotification(ctx, &statex.Notification{ID: "n1", UserID: "user-1", Type: statex.NotificationPromoSuggestion, Title: "Promo Idea: Natal"}))
	require.NoError(t, f.store.AddNotification(ctx, &statex.Notification{ID: "n2", UserID: "user-2", Type: statex.NotificationPromoSuggestion, Title: "other"}))

	rec := f.do(t, http.MethodGet, "/api/notifications", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Promo Idea: Natal")
	assert.NotContains(t, rec.Body.String(), "other")

	rec = f.do(t, http.MethodGet, "/api/notifications?limit=zero", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/notifications/n1/read", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/notifications/n2/read", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmptyNotificationsIsArray(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/api/notifications", "nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"notifications":[]}`, rec.Body.String())
}

func TestJobWebhooksRequireSignature(t *testing.T) {
	f := newFixture(t, Config{PublicURL: "https://vistara.example.com/"})

	send := func(path, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"trigger":"cron"}`))
		if signature != "" {
			req.Header.Set("Upstash-Signature", signature)
		}
		rec := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := send("/jobs/detect-events", "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.events.runs)

	rec = send("/jobs/detect-events", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.events.runs)
	assert.Equal(t, "https://vistara.example.com/jobs/detect-events", f.verifier.gotDestination)
	assert.Equal(t, `{"trigger":"cron"}`, f.verifier.gotBody)
	assert.JSONEq(t, `{"job":"detect_events","notifications":2}`, rec.Body.String())

	rec = send("/jobs/monitor-reviews", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.reviews.runs)
}

func TestJobFailureIs500(t *testing.T) {
	f := newFixture(t, Config{})
	f.events.err = errors.New("list profiles: boom")

	req := httptest.NewRequest(http.MethodPost, "/jobs/detect-events", nil)
	req.Header.Set("Upstash-Signature", "good")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "http://example.com/jobs/detect-events", f.verifier.gotDestination)
}

func TestJobsUnmountedWithoutVerifier(t *testing.T) {
	s, err := New(Config{}, AuthConfig{JWTSecret: testSecret}, Deps{
		Chat:          &fakeChat{},
		Agents:        &fakeAgents{},
		Notifications: statex.NewMemoryStore(),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/detect-events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	f := newFixture(t, Config{RatePerMinute: 1, RateBurst: 2})
	body := map[string]string{"text": "bagus"}

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/sentiment", "user-1", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/api/sentiment", "user-1", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sentiment", "user-2", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{}, AuthConfig{}, Deps{
		Chat:          &fakeChat{},
		Agents:        &fakeAgents{},
		Notifications: statex.NewMemoryStore(),
	})
	assert.Error(t, err)
}

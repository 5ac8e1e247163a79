package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

// ChatService runs persisted chat turns.
type ChatService interface {
	HandleMessage(ctx context.Context, in contractx.TurnInput) (contractx.TurnOutput, error)
	History(ctx context.Context, userID, conversationID string) ([]statex.Message, error)
}

type EventJob interface {
	Run(ctx context.Context, now time.Time) (int, error)
}

type ReviewJob interface {
	Run(ctx context.Context) (int, error)
}

// SignatureVerifier authenticates scheduled job deliveries.
type SignatureVerifier interface {
	Verify(signature string, destination string, body []byte) error
}

type Deps struct {
	Chat          ChatService
	Agents        contractx.Registry
	Notifications statex.NotificationStore
	Events        EventJob
	Reviews       ReviewJob
	// Verifier may be nil, which leaves the job webhooks unmounted.
	Verifier SignatureVerifier
	Gatherer prometheus.Gatherer
	Location *time.Location
}

type Server struct {
	cfg    Config
	engine *gin.Engine

	chat          ChatService
	agents        contractx.Registry
	notifications statex.NotificationStore
	events        EventJob
	reviews       ReviewJob
	verifier      SignatureVerifier

	publicURL string
	loc       *time.Location
	now       func() time.Time
}

func New(cfg Config, auth AuthConfig, deps Deps) (*Server, error) {
	if deps.Chat == nil || deps.Agents == nil || deps.Notifications == nil {
		return nil, errors.New("chat service, agents and notifications are required")
	}
	if strings.TrimSpace(auth.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if !cfg.Debug && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:           cfg,
		engine:        gin.New(),
		chat:          deps.Chat,
		agents:        deps.Agents,
		notifications: deps.Notifications,
		events:        deps.Events,
		reviews:       deps.Reviews,
		verifier:      deps.Verifier,
		publicURL:     strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/"),
		loc:           loc,
		now:           time.Now,
	}

	s.engine.Use(recovery(), requestLogger(), cors.New(corsConfig(cfg.AllowedOrigins)))

	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api", requireAuth(auth), rateLimit(cfg.RatePerMinute, cfg.RateBurst))
	api.POST("/chat", s.handleChat)
	api.POST("/brand", s.handleBrand)
	api.POST("/sentiment", s.handleSentiment)
	api.POST("/location", s.handleLocation)
	api.POST("/simulation", s.handleSimulation)
	api.POST("/collaboration", s.handleCollaboration)
	api.GET("/conversations/:id/messages", s.handleHistory)
	api.GET("/notifications", s.handleListNotifications)
	api.POST("/notifications/:id/read", s.handleMarkRead)

	if s.verifier != nil && s.events != nil && s.reviews != nil {
		jobs := s.engine.Group("/jobs", s.verifySignature())
		jobs.POST("/detect-events", s.handleDetectEvents)
		jobs.POST("/monitor-reviews", s.handleMonitorReviews)
	} else {
		log.Info().Msg("job webhooks disabled, no signature verifier configured")
	}

	return s, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

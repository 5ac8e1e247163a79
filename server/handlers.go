package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

const (
	defaultNotificationLimit = 50
	maxWebhookBody           = 64 << 10
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "message is required and must be a string")
		return
	}
	out, err := s.chat.HandleMessage(c.Request.Context(), contractx.TurnInput{
		UserID:         currentUser(c),
		ConversationID: req.ConversationID,
		Text:           req.Message,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type brandRequest struct {
	Name string `json:"name"`
	Vibe string `json:"vibe"`
}

func (s *Server) handleBrand(c *gin.Context) {
	var req brandRequest
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Name) || blank(req.Vibe) {
		abortInvalid(c, "name and vibe are required")
		return
	}
	c.JSON(http.StatusOK, s.agents.Creative().GenerateBrandKit(c.Request.Context(), contractx.BrandInput{
		Name: strings.TrimSpace(req.Name),
		Vibe: strings.TrimSpace(req.Vibe),
	}))
}

type sentimentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSentiment(c *gin.Context) {
	var req sentimentRequest
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Text) {
		abortInvalid(c, "text is required")
		return
	}
	c.JSON(http.StatusOK, s.agents.Researcher().AnalyzeSentiment(c.Request.Context(), req.Text))
}

type locationRequest struct {
	Image       string   `json:"image"`
	MIMEType    string   `json:"mimeType"`
	Description string   `json:"description"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

func (s *Server) handleLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Image) {
		abortInvalid(c, "image is required")
		return
	}
	in := contractx.LocationInput{
		ImageBase64: req.Image,
		MIMEType:    req.MIMEType,
		Description: req.Description,
	}
	if req.Lat != nil && req.Lng != nil {
		in.Coords = &contractx.Location{Lat: *req.Lat, Lng: *req.Lng}
	}
	c.JSON(http.StatusOK, s.agents.Researcher().AnalyzeLocation(c.Request.Context(), in))
}

func (s *Server) handleSimulation(c *gin.Context) {
	var req contractx.SimulationInput
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.BusinessType) {
		abortInvalid(c, "businessType is required")
		return
	}
	if req.Price < 0 || req.MarketingBudget < 0 || req.OperationalCost < 0 {
		abortInvalid(c, "amounts must not be negative")
		return
	}
	c.JSON(http.StatusOK, s.agents.Strategist().Simulate(c.Request.Context(), req))
}

func (s *Server) handleCollaboration(c *gin.Context) {
	var req contractx.CollaborationInput
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Business) || blank(req.Goal) {
		abortInvalid(c, "business and goal are required")
		return
	}
	c.JSON(http.StatusOK, s.agents.Strategist().SuggestCollaborations(c.Request.Context(), req))
}

func (s *Server) handleHistory(c *gin.Context) {
	msgs, err := s.chat.History(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) handleListNotifications(c *gin.Context) {
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortInvalid(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := s.notifications.ListNotifications(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if list == nil {
		list = []statex.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	if err := s.notifications.MarkNotificationRead(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDetectEvents(c *gin.Context) {
	s.runJob(c, "detect_events", func(ctx context.Context) (int, error) {
		return s.events.Run(ctx, s.now().In(s.loc))
	})
}

func (s *Server) handleMonitorReviews(c *gin.Context) {
	s.runJob(c, "monitor_reviews", s.reviews.Run)
}

func (s *Server) runJob(c *gin.Context, name string, run func(ctx context.Context) (int, error)) {
	start := time.Now()
	written, err := run(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Str("job", name).Msg("webhook job failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "job failed"})
		return
	}
	log.Info().Str("job", name).Int("notifications", written).Dur("duration", time.Since(start)).Msg("webhook job completed")
	c.JSON(http.StatusOK, gin.H{"job": name, "notifications": written})
}

// verifySignature checks the QStash signature over the raw body and restores it.
func (s *Server) verifySignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			abortInvalid(c, "unreadable body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := s.verifier.Verify(c.GetHeader("Upstash-Signature"), s.destination(c), body); err != nil {
			log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("rejected unsigned job delivery")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid signature"})
			return
		}
		c.Next()
	}
}

func (s *Server) destination(c *gin.Context) string {
	if s.publicURL != "" {
		return s.publicURL + c.Request.URL.Path
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
	metricsx "github.com/thoriqalqi/VISTARA/pkg/metrics"
)

const (
	defaultUserLimit   = 100
	badReviewThreshold = 2
)

// ReviewSource fetches recent public reviews for a maps place.
type ReviewSource interface {
	RecentReviews(ctx context.Context, placeID string) ([]contractx.Review, error)
}

// NoReviews is the ReviewSource used when no maps integration is configured.
type NoReviews struct{}

func (NoReviews) RecentReviews(context.Context, string) ([]contractx.Review, error) {
	return nil, nil
}

// EventDetectionJob writes one promo suggestion per detected special day for
// each of the first UserLimit profiles.
type EventDetectionJob struct {
	Profiles      statex.ProfileStore
	Notifications statex.NotificationStore
	Creative      contractx.Creative
	Metrics       *metricsx.Metrics
	UserLimit     int
	NewID         func() string
}

// Run returns how many notifications were written. Per-user failures are
// logged and skipped; only listing profiles fails the run.
func (j *EventDetectionJob) Run(ctx context.Context, now time.Time) (int, error) {
	days := DetectSpecialDays(now)
	if len(days) == 0 {
		log.Info().Time("date", now).Msg("no special days detected")
		return 0, nil
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.Name)
	}
	log.Info().Strs("special_days", names).Msg("special days detected")

	profiles, err := j.Profiles.ListProfiles(ctx, limitOr(j.UserLimit, defaultUserLimit))
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	written := 0
	for _, p := range profiles {
		bc := contractx.BusinessContext{BusinessName: p.BusinessName, BusinessType: p.BusinessType}
		for _, day := range days {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			resp := j.Creative.GeneratePromo(ctx, contractx.PromoEvent{Name: day.Name, Date: day.Date}, bc)
			n := &statex.Notification{
				ID:        newIDOr(j.NewID),
				UserID:    p.UserID,
				Type:      statex.NotificationPromoSuggestion,
				Title:     "Promo Idea: " + day.Name,
				Data:      resp,
				CreatedAt: now.UTC(),
			}
			if err := j.Notifications.AddNotification(ctx, n); err != nil {
				log.Warn().Err(err).Str("user_id", p.UserID).Str("special_day", day.Name).Msg("promo notification not saved")
				continue
			}
			j.Metrics.IncNotification(statex.NotificationPromoSuggestion)
			written++
		}
	}
	log.Info().Int("users", len(profiles)).Int("notifications", written).Msg("event detection completed")
	return written, nil
}

// ReviewMonitorJob drafts an apology for each bad review of a linked place.
type ReviewMonitorJob struct {
	Profiles      statex.ProfileStore
	Notifications statex.NotificationStore
	Creative      contractx.Creative
	Reviews       ReviewSource
	Metrics       *metricsx.Metrics
	UserLimit     int
	NewID         func() string
	Now           func() time.Time
}

func (j *ReviewMonitorJob) Run(ctx context.Context) (int, error) {
	profiles, err := j.Profiles.ListProfilesWithPlaceID(ctx, limitOr(j.UserLimit, defaultUserLimit))
	if err != nil {
		return 0, fmt.Errorf("list profiles with place id: %w", err)
	}
	log.Info().Int("businesses", len(profiles)).Msg("review monitoring started")

	source := j.Reviews
	if source == nil {
		source = NoReviews{}
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	written := 0
	for _, p := range profiles {
		reviews, err := source.RecentReviews(ctx, p.MapsPlaceID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", p.UserID).Msg("reviews unavailable")
			continue
		}
		for _, review := range reviews {
			if review.Rating < 1 || review.Rating > badReviewThreshold {
				continue
			}
			if err := ctx.Err(); err != nil {
				return written, err
			}
			if strings.TrimSpace(review.Reviewer) == "" {
				review.Reviewer = "Customer"
			}
			resp := j.Creative.RespondToReview(ctx, review)
			n := &statex.Notification{
				ID:        newIDOr(j.NewID),
				UserID:    p.UserID,
				Type:      statex.NotificationReviewAlert,
				Title:     fmt.Sprintf("Review Alert: %s (%d/5)", review.Reviewer, review.Rating),
				Data:      resp,
				CreatedAt: now().UTC(),
			}
			if err := j.Notifications.AddNotification(ctx, n); err != nil {
				log.Warn().Err(err).Str("user_id", p.UserID).Msg("review notification not saved")
				continue
			}
			j.Metrics.IncNotification(statex.NotificationReviewAlert)
			written++
		}
	}
	log.Info().Int("notifications", written).Msg("review monitoring completed")
	return written, nil
}

func limitOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func newIDOr(fn func() string) string {
	if fn != nil {
		return fn()
	}
	return ulid.Make().String()
}

// Package engine implements campaign dispatch, A/B test delivery and
// winner rollout. All durable state lives in the store: delivery_logs are
// the duplicate-send guard, ab_test_remaining freezes the rollout audience
// at test-send time, and ab_winner marks rollout completion. The engine
// therefore behaves as at-most-once in effect even when the external
// trigger invokes it more than once.
package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mailfleet/mailfleet/internal/deadletter"
	"github.com/mailfleet/mailfleet/internal/mailer"
	"github.com/mailfleet/mailfleet/internal/metrics"
	"github.com/mailfleet/mailfleet/internal/models"
	"github.com/mailfleet/mailfleet/internal/repository"
)

// Config holds engine settings
type Config struct {
	// TrackingBaseURL, when set, enables open/click tracking rewrites on
	// outgoing HTML.
	TrackingBaseURL string
}

// Engine drives scheduled campaign delivery
type Engine struct {
	campaigns   *repository.CampaignRepository
	subscribers *repository.SubscriberRepository
	deliveries  *repository.DeliveryRepository
	remainders  *repository.RemainderRepository
	mailer      mailer.Mailer
	deadLetters *deadletter.Store
	metrics     *metrics.Metrics
	logger      *slog.Logger
	trackingURL string

	now func() time.Time
}

// New creates a new engine. deadLetters may be nil to disable the dead
// letter store; metrics may be nil, in which case a private registry is
// used.
func New(db *sql.DB, m mailer.Mailer, deadLetters *deadletter.Store, mx *metrics.Metrics, logger *slog.Logger, cfg Config) *Engine {
	if mx == nil {
		mx = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		campaigns:   repository.NewCampaignRepository(db),
		subscribers: repository.NewSubscriberRepository(db),
		deliveries:  repository.NewDeliveryRepository(db),
		remainders:  repository.NewRemainderRepository(db),
		mailer:      m,
		deadLetters: deadLetters,
		metrics:     mx,
		logger:      logger.With("component", "engine"),
		trackingURL: cfg.TrackingBaseURL,
		now:         time.Now,
	}
}

// SetClock overrides the engine's clock. Tests use this to make
// scheduling and timestamps deterministic.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Campaigns exposes the campaign repository for collaborators that share
// the engine's store (API handlers, the scheduler worker).
func (e *Engine) Campaigns() *repository.CampaignRepository {
	return e.campaigns
}

// sendToRecipients sends one variant of a campaign to the given
// subscribers and writes a delivery log per accepted recipient as results
// arrive, so partial progress survives a mid-batch failure. Failed
// recipients get no delivery log (a re-run retries them); the failure is
// recorded in the dead letter store instead.
//
// Returns the number of accepted recipients and whether the whole batch
// succeeded. A non-nil error means a persistence failure, not a send
// failure.
func (e *Engine) sendToRecipients(ctx context.Context, c *models.Campaign, subs []models.Subscriber,
	variant models.ABVariant, subject, fromName, phase string, now time.Time) (int, bool, error) {

	if len(subs) == 0 {
		return 0, true, nil
	}

	msgs := make([]*mailer.Message, len(subs))
	logIDs := make([]string, len(subs))
	for i, s := range subs {
		// The delivery log id is generated up front so tracking links in
		// the rendered HTML can reference the row that is written after
		// the send.
		logIDs[i] = uuid.New().String()
		msgs[i] = &mailer.Message{
			FromEmail: c.FromEmail,
			FromName:  fromName,
			To:        s.Email,
			ToName:    s.Name,
			Subject:   subject,
			HTML:      InjectTracking(c.HTML, e.trackingURL, logIDs[i]),
		}
	}

	start := time.Now()
	result := e.mailer.SendBatch(ctx, msgs)
	if n := len(msgs); n > 0 {
		e.metrics.SendDurationSeconds.Observe(time.Since(start).Seconds() / float64(n))
	}

	label := string(variant)
	if label == "" {
		label = "none"
	}

	for i, rr := range result.Results {
		if rr.Err != nil {
			e.metrics.EmailsFailedTotal.WithLabelValues(label).Inc()
			e.recordDeadLetter(c, subs[i], subject, phase, rr.Err)
			continue
		}

		sentAt := now
		log := &models.DeliveryLog{
			ID:           logIDs[i],
			CampaignID:   c.ID,
			SubscriberID: subs[i].ID,
			Status:       models.DeliverySent,
			ABVariant:    variant,
			ProviderID:   rr.ID,
			SentAt:       &sentAt,
		}
		if err := e.deliveries.CreateLog(log); err != nil {
			return result.Sent, false, err
		}
		e.metrics.EmailsSentTotal.WithLabelValues(label).Inc()
	}

	return result.Sent, result.Success, nil
}

func (e *Engine) recordDeadLetter(c *models.Campaign, s models.Subscriber, subject, phase string, sendErr error) {
	if e.deadLetters == nil {
		return
	}
	err := e.deadLetters.Add(deadletter.Entry{
		CampaignID:   c.ID,
		SubscriberID: s.ID,
		Email:        s.Email,
		Subject:      subject,
		Phase:        phase,
		Error:        sendErr.Error(),
	})
	if err != nil {
		e.logger.Error("failed to record dead letter", "campaign_id", c.ID, "subscriber_id", s.ID, "error", err)
	}
}

// variantContent returns the subject and from-name for a variant. Variant
// A is always the campaign's original content; variant B falls back to it
// where no override is set.
func variantContent(c *models.Campaign, v models.ABVariant) (subject, fromName string) {
	subject = c.Subject
	fromName = c.FromName
	if v == models.VariantB {
		if c.ABSubjectB != "" {
			subject = c.ABSubjectB
		}
		if c.ABFromNameB != "" {
			fromName = c.ABFromNameB
		}
	}
	return subject, fromName
}

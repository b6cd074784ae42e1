package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fossabot/hull-customerio/internal/models"
	"github.com/fossabot/hull-customerio/internal/services"
)

// Metric names for inbound callbacks.
const (
	MetricIncomingEvents = "ship.incoming.events"
	MetricErrors         = "ship.errors"
)

// Deduplicator remembers webhook event ids.
type Deduplicator interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
}

// Tracker records events on platform users.
type Tracker interface {
	Track(ctx context.Context, user models.UserIdent, event models.PlatformEvent) error
}

// Metrics counts outcomes.
type Metrics interface {
	Increment(name string, delta int64)
}

// WebhookHandler turns service callbacks into platform events.
type WebhookHandler struct {
	dedup         Deduplicator
	tracker       Tracker
	metrics       Metrics
	tasks         *Tasks
	logger        *slog.Logger
	userIDMapping string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(dedup Deduplicator, tracker Tracker, metrics Metrics, tasks *Tasks, logger *slog.Logger, userIDMapping string) *WebhookHandler {
	return &WebhookHandler{
		dedup:         dedup,
		tracker:       tracker,
		metrics:       metrics,
		tasks:         tasks,
		logger:        logger,
		userIDMapping: userIDMapping,
	}
}

// Receive acknowledges the callback immediately and tracks it in the
// background. Unknown, probe and duplicate callbacks are dropped.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondValidationError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "webhook received", nil)

	if payload.EventID == services.SubscriptionProbeID {
		h.logger.Debug("webhook endpoint subscribed")
		return
	}
	ident, event, ok := services.TranslateWebhook(payload, h.userIDMapping)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	h.tasks.Go(func() {
		h.track(ctx, payload.EventID, ident, event)
	})
}

func (h *WebhookHandler) track(ctx context.Context, eventID string, ident models.UserIdent, event models.PlatformEvent) {
	logr := h.logger.With(
		slog.String("email", ident.Email),
		slog.String("external_id", ident.ExternalID),
		slog.String("event_id", eventID),
	)

	duplicate, err := h.dedup.IsDuplicate(ctx, eventID)
	if err != nil {
		logr.Warn("webhook deduplication unavailable", slog.Any("error", err))
	}
	if duplicate {
		logr.Debug("incoming.event.skip", slog.String("reason", "duplicate event id"))
		return
	}

	if err := h.tracker.Track(ctx, ident, event); err != nil {
		logr.Error("incoming.event.error", slog.String("event", event.Name), slog.Any("error", err))
		h.metrics.Increment(MetricErrors, 1)
		return
	}
	logr.Info("incoming.event.success", slog.String("event", event.Name))
	h.metrics.Increment(MetricIncomingEvents, 1)
}

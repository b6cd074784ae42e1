package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fossabot/hull-customerio/internal/models"
)

// BatchProcessor runs the sync pipeline over a batch of notifications.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, messages []models.UpdateMessage) error
}

// NotifyHandler receives user-update notifications from the platform.
type NotifyHandler struct {
	processor BatchProcessor
	tasks     *Tasks
	logger    *slog.Logger
}

// NewNotifyHandler creates a new NotifyHandler.
func NewNotifyHandler(processor BatchProcessor, tasks *Tasks, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{processor: processor, tasks: tasks, logger: logger}
}

// Notify processes the notifications and responds once every user settled.
// Per-user failures never fail the request.
func (h *NotifyHandler) Notify(c *gin.Context) {
	var req models.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.processor.ProcessBatch(c.Request.Context(), req.Messages); err != nil {
		h.logger.Error("notification batch not processed",
			slog.String("correlation_id", c.GetString("correlation_id")),
			slog.Any("error", err),
		)
	}

	respondSuccess(c, http.StatusOK, "notifications processed", gin.H{
		"messages": len(req.Messages),
	})
}

// Batch acknowledges an export batch right away and processes it in the
// background.
func (h *NotifyHandler) Batch(c *gin.Context) {
	var req models.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	correlationID := c.GetString("correlation_id")
	h.tasks.Go(func() {
		if err := h.processor.ProcessBatch(ctx, req.Messages); err != nil {
			h.logger.Error("export batch not processed",
				slog.String("correlation_id", correlationID),
				slog.Any("error", err),
			)
		}
	})

	respondSuccess(c, http.StatusOK, "batch accepted", gin.H{
		"messages": len(req.Messages),
	})
}

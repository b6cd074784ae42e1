package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fossabot/hull-customerio/internal/models"
)

// StatusReporter produces the connector status report.
type StatusReporter interface {
	Check(ctx context.Context) (models.StatusReport, error)
}

// StatusHandler handles status-related requests.
type StatusHandler struct {
	reporter StatusReporter
	logger   *slog.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(reporter StatusReporter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{reporter: reporter, logger: logger}
}

// GetStatus runs the status check and returns {status, messages}.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	report, err := h.reporter.Check(c.Request.Context())
	if err != nil {
		// the report is still valid when only persisting it failed
		h.logger.Warn("status not recorded", slog.Any("error", err))
	}
	h.logger.Info("connector.status",
		slog.String("status", report.Status),
		slog.Any("messages", report.Messages),
	)
	c.JSON(http.StatusOK, report)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fossabot/hull-customerio/internal/models"
	"github.com/fossabot/hull-customerio/internal/repository"
)

// Status check messages.
const (
	MsgNoSegments         = "No users will be synchronized because of missing whitelisted Segments"
	MsgMissingCredentials = "Missing Credentials"
	MsgInvalidCredentials = "API Credentials are invalid"
)

// AuthChecker reports whether the connector can reach the service.
type AuthChecker interface {
	IsConfigured() bool
	CheckAuth(ctx context.Context) (bool, error)
}

// StatusRecorder persists status-check results.
type StatusRecorder interface {
	SetStatus(connectorID, status string, messages []string) error
	GetStatus(connectorID string) (*repository.ConnectorStatus, error)
}

// StatusChecker computes the connector health report shown on the platform.
type StatusChecker struct {
	connectorID string
	segments    []string
	auth        AuthChecker
	store       StatusRecorder
	redisRepo   *repository.RedisRepository
	cacheTTL    time.Duration
}

// NewStatusChecker creates a new StatusChecker. A nil redisRepo disables
// result caching.
func NewStatusChecker(connectorID string, segments []string, auth AuthChecker, store StatusRecorder, redisRepo *repository.RedisRepository, cacheTTL time.Duration) *StatusChecker {
	return &StatusChecker{
		connectorID: connectorID,
		segments:    segments,
		auth:        auth,
		store:       store,
		redisRepo:   redisRepo,
		cacheTTL:    cacheTTL,
	}
}

func (s *StatusChecker) cacheKey() string {
	return "connector:status:" + s.connectorID
}

// Check runs the status check, records it and returns the report. Results
// are cached briefly so repeated polling does not hit the auth endpoint: Redis
// first, then the recorded status when it is younger than the cache TTL.
func (s *StatusChecker) Check(ctx context.Context) (models.StatusReport, error) {
	var cached models.StatusReport
	if found, err := s.redisRepo.GetJSON(ctx, s.cacheKey(), &cached); err == nil && found {
		return cached, nil
	}
	if report, ok := s.recorded(); ok {
		_ = s.redisRepo.SetJSON(ctx, s.cacheKey(), report, s.cacheTTL)
		return report, nil
	}

	report := s.evaluate(ctx)

	if err := s.store.SetStatus(s.connectorID, report.Status, report.Messages); err != nil {
		return report, fmt.Errorf("record status: %w", err)
	}
	_ = s.redisRepo.SetJSON(ctx, s.cacheKey(), report, s.cacheTTL)
	return report, nil
}

func (s *StatusChecker) recorded() (models.StatusReport, bool) {
	if s.cacheTTL <= 0 {
		return models.StatusReport{}, false
	}
	row, err := s.store.GetStatus(s.connectorID)
	if err != nil || row == nil || time.Since(row.CheckedAt) >= s.cacheTTL {
		return models.StatusReport{}, false
	}
	return models.StatusReport{Status: row.Status, Messages: row.MessageList()}, true
}

func (s *StatusChecker) evaluate(ctx context.Context) models.StatusReport {
	messages := []string{}
	if len(s.segments) == 0 {
		messages = append(messages, MsgNoSegments)
	}

	if !s.auth.IsConfigured() {
		messages = append(messages, MsgMissingCredentials)
	} else {
		ok, err := s.auth.CheckAuth(ctx)
		switch {
		case err != nil:
			messages = append(messages, "Error when trying to connect with Customer.io: "+err.Error())
		case !ok:
			messages = append(messages, MsgInvalidCredentials)
		}
	}

	status := "ok"
	if len(messages) > 0 {
		status = "error"
	}
	return models.StatusReport{Status: status, Messages: messages}
}

package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConnectorStatus is the last status-check result of a connector.
type ConnectorStatus struct {
	ConnectorID string `gorm:"primaryKey"`
	Status      string
	Messages    string
	CheckedAt   time.Time
}

// StatusStore stores and retrieves connector statuses.
type StatusStore struct {
	db *gorm.DB
}

// NewStatusStore creates a new StatusStore.
func NewStatusStore(db *gorm.DB) (*StatusStore, error) {
	// Auto-migrate the schema
	if err := db.AutoMigrate(&ConnectorStatus{}); err != nil {
		return nil, err
	}
	return &StatusStore{db: db}, nil
}

// SetStatus records the outcome of a status check, replacing the previous one.
func (s *StatusStore) SetStatus(connectorID, status string, messages []string) error {
	row := ConnectorStatus{
		ConnectorID: connectorID,
		Status:      status,
		Messages:    strings.Join(messages, "\n"),
		CheckedAt:   time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// GetStatus retrieves the last recorded status of a connector. It returns
// nil when no check was recorded yet.
func (s *StatusStore) GetStatus(connectorID string) (*ConnectorStatus, error) {
	var row ConnectorStatus
	err := s.db.First(&row, "connector_id = ?", connectorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MessageList splits the stored messages back into a list.
func (c *ConnectorStatus) MessageList() []string {
	if c.Messages == "" {
		return []string{}
	}
	return strings.Split(c.Messages, "\n")
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fossabot/hull-customerio/internal/models"
	"github.com/fossabot/hull-customerio/pkg/rabbitmq"
)

func TestPlatformPublisher_RoutesToDeclaredTopology(t *testing.T) {
	p := NewPlatformPublisher(nil, "connector-1")

	assert.Equal(t, rabbitmq.PlatformExchange, p.exchange)
	assert.Equal(t, "connector-1", p.connectorID)

	// message types double as routing keys bound by DeclarePlatformTopology
	assert.Equal(t, "traits", models.PlatformTraits)
	assert.Equal(t, "track", models.PlatformTrack)
}

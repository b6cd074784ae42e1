package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_NilIsAMiss(t *testing.T) {
	ctx := context.Background()

	for name, repo := range map[string]*RedisRepository{"nil repository": nil, "nil client": NewRedisRepository(nil)} {
		t.Run(name, func(t *testing.T) {
			var dest map[string]string
			found, err := repo.GetJSON(ctx, "connector:status:x", &dest)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, repo.SetJSON(ctx, "connector:status:x", map[string]string{"a": "b"}, time.Minute))

			claimed, err := repo.Claim(ctx, "webhook:event:1", time.Minute)
			require.NoError(t, err)
			assert.True(t, claimed)
		})
	}
}

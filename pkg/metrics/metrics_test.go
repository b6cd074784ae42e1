package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_IncrementConcurrently(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment("ship.outgoing.users", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Value("ship.outgoing.users"))
	assert.Zero(t, c.Value("ship.errors"))
}

func TestCollector_HandlerExposesCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := New()
	c.Increment("ship.outgoing.events", 3)

	router := gin.New()
	router.Use(c.GinMiddleware())
	router.GET("/metrics", gin.WrapH(c.Handler()))
	router.GET("/boom", func(ctx *gin.Context) { ctx.Status(http.StatusInternalServerError) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RequestsTotal  int64            `json:"requests_total"`
		RequestsFailed int64            `json:"requests_failed"`
		Counters       map[string]int64 `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.RequestsTotal)
	assert.Equal(t, int64(1), body.RequestsFailed)
	assert.Equal(t, int64(3), body.Counters["ship.outgoing.events"])
}

package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(mw ...app.HandlerFunc) *route.Engine {
	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	engine.Use(mw...)
	engine.GET("/api/v1/analyses/:id", func(ctx context.Context, c *app.RequestContext) {
		if c.Param("id") == "missing" {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		c.JSON(consts.StatusOK, map[string]string{"id": c.Param("id")})
	})
	return engine
}

func TestMetricsBuilder_UsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsBuilder(reg)
	engine := newEngine(m.Build())

	ut.PerformRequest(engine, "GET", "/api/v1/analyses/a-1", nil)
	ut.PerformRequest(engine, "GET", "/api/v1/analyses/a-2", nil)
	ut.PerformRequest(engine, "GET", "/api/v1/analyses/missing", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.counterVec.WithLabelValues("GET", "/api/v1/analyses/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.counterVec.WithLabelValues("GET", "/api/v1/analyses/:id", "404")))

	count, err := testutil.GatherAndCount(reg, "resume_match_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID(), AccessLog())

	w := ut.PerformRequest(engine, "GET", "/api/v1/analyses/a-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	generated := w.Result().Header.Get(HeaderRequestID)
	assert.Len(t, generated, 36)

	w = ut.PerformRequest(engine, "GET", "/api/v1/analyses/a-1", nil, ut.Header{Key: HeaderRequestID, Value: "req-42"})
	assert.Equal(t, "req-42", w.Result().Header.Get(HeaderRequestID))
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tb := NewTokenBucket(60, 2)
	tb.now = func() time.Time { return now }
	tb.lastRefillTime = now

	ok, _ := tb.Allow()
	assert.True(t, ok)
	ok, _ = tb.Allow()
	assert.True(t, ok)
	ok, wait := tb.Allow()
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	now = now.Add(1500 * time.Millisecond)
	ok, _ = tb.Allow()
	assert.True(t, ok)
}

func TestRateLimit(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	engine := newEngine(RateLimit(tb))

	w := ut.PerformRequest(engine, "GET", "/api/v1/analyses/a-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ut.PerformRequest(engine, "GET", "/api/v1/analyses/a-1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Result().Header.Get("Retry-After"))
}

package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/complaint-workflow/internal/config"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 404, entries[1].ContextMap()["status"])

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Requests["/ok|GET|204"])
	assert.Equal(t, int64(1), snap.Requests["/missing|GET|404"])
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordTransition("forward", "open", "forwarded")
	m.RecordTransition("forward", "open", "forwarded")
	m.RecordDelivery("fallback")
	m.RecordError("/complaints", "POST", "CONFLICT")
	m.RecordRequest("/x", "GET", 200, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Transitions["forward|open|forwarded"])
	assert.Equal(t, int64(1), snap.Deliveries["fallback"])
	assert.Equal(t, int64(1), snap.Errors["/complaints|POST|CONFLICT"])
	assert.Equal(t, time.Millisecond, snap.LatencyTotal)

	var nilMetrics *Metrics
	nilMetrics.RecordDelivery("queued")
	assert.Empty(t, nilMetrics.Snapshot().Deliveries)
}

package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sancella/sancella/domain/analytics"
)

func newTestLogger() (Logger, *test.Hook) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	return FromLogrus(base, "sancella-test"), hook
}

func TestStructuredLogger_Fields(t *testing.T) {
	log, hook := newTestLogger()
	ctx := WithCorrelationID(context.Background(), "req-1")

	log.WithFields(map[string]interface{}{"component": "dashboard"}).
		Info(ctx, "dashboard computed", map[string]interface{}{"tasks": 3})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "dashboard computed", entry.Message)
	assert.Equal(t, "sancella-test", entry.Data["service"])
	assert.Equal(t, "dashboard", entry.Data["component"])
	assert.Equal(t, 3, entry.Data["tasks"])
	assert.Equal(t, "req-1", entry.Data["correlation_id"])
	assert.Contains(t, entry.Data["caller"], "structured_logger_test.go")
}

func TestStructuredLogger_Error(t *testing.T) {
	log, hook := newTestLogger()

	log.Error(context.Background(), "repository failed", errors.New("connection refused"), nil)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "connection refused", entry.Data["error"])
	assert.NotContains(t, entry.Data, "correlation_id")
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	log, hook := newTestLogger()

	_ = log.WithFields(map[string]interface{}{"scope": "child"})
	log.Debug(context.Background(), "parent", nil)

	assert.NotContains(t, hook.LastEntry().Data, "scope")
}

func TestLogDiagnostics(t *testing.T) {
	log, hook := newTestLogger()

	LogDiagnostics(context.Background(), log, []analytics.Diagnostic{
		{Stage: analytics.StageDecodeTasks, Index: 2, RecordID: "17", Reason: "invalid timestamp", Severity: analytics.SeverityWarning},
		{Stage: analytics.StageMetrics, Index: -1, Reason: "metrics computation failed: boom", Severity: analytics.SeverityError},
	})

	entries := hook.AllEntries()
	require.Len(t, entries, 2)

	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, "17", entries[0].Data["record_id"])
	assert.Equal(t, "invalid timestamp", entries[0].Data["reason"])

	assert.Equal(t, logrus.ErrorLevel, entries[1].Level)
	assert.Equal(t, "metrics computation failed: boom", entries[1].Data["error"])
}

func TestLogPerformance(t *testing.T) {
	log, hook := newTestLogger()

	LogPerformance(context.Background(), log, "dashboard", 1500*time.Millisecond, nil)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, int64(1500), entry.Data["duration_ms"])
	assert.Equal(t, "dashboard", entry.Data["operation"])
}

func TestNewStructuredLogger_DefaultsToInfo(t *testing.T) {
	log := NewStructuredLogger(LoggerConfig{Level: "nonsense", Format: "json", ServiceName: "svc"})
	sl, ok := log.(*structuredLogger)
	require.True(t, ok)
	assert.Equal(t, logrus.InfoLevel, sl.logger.GetLevel())
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(buf, nil))}
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestWithTenant_TagsRequestLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/capacities?from=2026-10-18", nil)
	c.Status(http.StatusOK)

	l.WithTenant("tenant-a").LogHTTPRequest(c, 3*time.Millisecond)

	entry := lastLine(t, &buf)
	assert.Equal(t, "HTTP Request", entry["msg"])
	assert.Equal(t, "tenant-a", entry["tenant_id"])
	assert.Equal(t, "/api/v1/capacities", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestLogRateLimitExceeded(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.LogRateLimitExceeded(context.Background(), "10.0.0.7", "/api/v1/holds")

	entry := lastLine(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "10.0.0.7", entry["ip"])
	assert.Equal(t, "/api/v1/holds", entry["endpoint"])
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelInfo, getLogLevel(""))
}

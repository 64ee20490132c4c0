package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromSettings(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     slog.Level
		wantFormat    string
		wantErr       bool
	}{
		{"", "", slog.LevelInfo, "text", false},
		{"debug", "json", slog.LevelDebug, "json", false},
		{"WARN", "tint", slog.LevelWarn, "tint", false},
		{"error", "TEXT", slog.LevelError, "text", false},
		{"loud", "text", slog.LevelInfo, "", true},
		{"info", "xml", slog.LevelInfo, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			cfg, err := ConfigFromSettings(tt.level, tt.format, ComponentApp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, cfg.Level)
			assert.Equal(t, tt.wantFormat, cfg.Format)
		})
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentWorker})

	logger.WithComponent(ComponentSheets).InfoContext(context.Background(), "Row appended", "rows", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Row appended", rec["msg"])
	assert.Equal(t, ComponentSheets, rec[FieldComponent])
	assert.EqualValues(t, 1, rec["rows"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "text", Output: &buf})

	logger.InfoContext(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	logger.WarnContext(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestTintHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "tint", Output: &buf})
	logger.ErrorContext(context.Background(), "boom", FieldError, "disk full")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "disk full")
}

func TestContextMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec[FieldRequestID])
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{500, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
		r := httptest.NewRequest(http.MethodGet, "/api/trips", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "10.0.0.1")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, tt.level, rec["level"])
		assert.Equal(t, ComponentHTTP, rec[FieldComponent])
		assert.EqualValues(t, tt.status, rec[FieldStatusCode])
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().WithError(nil).WithUser("").WithRequestID("r")
	assert.Equal(t, LogFields{FieldRequestID: "r"}, f)

	f.WithError(errors.New("x"))
	assert.Len(t, f.ToSlice(), 4)
}

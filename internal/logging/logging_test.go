package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("json", slog.LevelInfo, &buf)
	l.Info("invoice saved", slog.Int("invoice_id", 7))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "invoice saved", rec["msg"])
	assert.EqualValues(t, 7, rec["invoice_id"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("text", slog.LevelWarn, &buf)
	l.Info("dropped")
	assert.Empty(t, buf.String())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestGormBridge(t *testing.T) {
	var buf bytes.Buffer
	l := New("text", slog.LevelDebug, &buf)
	g := Gorm(l, false)
	g.Warn(context.Background(), "slow %s", "query")
	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "component=gorm")
}

package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot.log")
	log, err := NewLogger(LoggingConfig{Level: "info", Format: "json", OutputPath: path})
	require.NoError(t, err)

	ctx := ContextWithJobID(context.Background(), "job-1")
	ctx = ContextWithGenerationID(ctx, "gen-1")
	log.WithContext(ctx).WithFields(zap.String("component", "export-engine")).Info("export job created")
	log.Debug("dropped below info")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"export job created"`)
	assert.Contains(t, out, `"service":"dot"`)
	assert.Contains(t, out, `"job_id":"job-1"`)
	assert.Contains(t, out, `"generation_id":"gen-1"`)
	assert.Contains(t, out, `"component":"export-engine"`)
	assert.Contains(t, out, `"level":"info"`)
	assert.NotContains(t, out, "dropped below info")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot.log")
	log, err := NewLogger(LoggingConfig{Level: "verbose", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.WithJobID("job-2").Info("kept")
	log.Debug("dropped")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id":"job-2"`)
	assert.NotContains(t, string(data), "dropped")
}

func TestWithContextWithoutIDsReturnsSameLogger(t *testing.T) {
	log := NewNop()
	assert.Same(t, log, log.WithContext(context.Background()))
}

func TestDetectFormat(t *testing.T) {
	t.Setenv("KUBERNETES_SERVICE_HOST", "")
	t.Setenv("DOT_ENV", "production")
	assert.Equal(t, "json", DetectFormat())

	t.Setenv("DOT_ENV", "")
	assert.Equal(t, "text", DetectFormat())
}

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogLevels(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{level: "error", expected: []string{"ERROR"}, excluded: []string{"WARN", "INFO", "DEBUG"}},
		{level: "warn", expected: []string{"ERROR", "WARN"}, excluded: []string{"INFO", "DEBUG"}},
		{level: "info", expected: []string{"ERROR", "WARN", "INFO"}, excluded: []string{"DEBUG"}},
		{level: "debug", expected: []string{"ERROR", "WARN", "INFO", "DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(tempDir, tt.level+".log")

			cfg := FileConfig{Path: logFile, MaxSizeMB: 10, MaxBackups: 1, MaxAgeDays: 1}
			require.NoError(t, Init(Options{Level: tt.level, File: cfg, Quiet: true}))

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			require.NoError(t, err)
			logContent := string(content)

			for _, exp := range tt.expected {
				assert.Contains(t, logContent, exp)
			}
			for _, exc := range tt.excluded {
				assert.NotContains(t, logContent, exc, "level %s", tt.level)
			}
		})
	}
}

func TestNamedLoggerTagsOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "named.log")
	require.NoError(t, Init(Options{Level: "info", File: FileConfig{Path: logFile, MaxSizeMB: 1}, Quiet: true}))

	Named("renderer").Info("shadow pass ready")
	Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	line := strings.TrimSpace(string(content))
	assert.Contains(t, line, "renderer")
	assert.Contains(t, line, "shadow pass ready")
}

func TestSubsystemLevels(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "subsystems.log")
	require.NoError(t, Init(Options{
		Level:      "warn",
		Subsystems: map[string]string{"renderer": "debug", "glcore": "error"},
		File:       FileConfig{Path: logFile, MaxSizeMB: 1},
		Quiet:      true,
	}))

	Named("renderer").Debug("cache upload")
	Named("glcore").Warn("sampler fallback")
	Named("glcore").Error("link failed")
	Named("loader").Info("scene loaded")
	Named("loader").Warn("image downscaled")
	Info("global info")
	Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	out := string(content)

	assert.Contains(t, out, "cache upload", "renderer is lowered to debug")
	assert.NotContains(t, out, "sampler fallback", "glcore is raised to error")
	assert.Contains(t, out, "link failed")
	assert.NotContains(t, out, "scene loaded", "unlisted subsystems use the global level")
	assert.Contains(t, out, "image downscaled")
	assert.NotContains(t, out, "global info")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(Options{Level: "loud", Quiet: true}))
	assert.Error(t, Init(Options{Level: "info", Subsystems: map[string]string{"renderer": "verbose"}, Quiet: true}))
}

func TestEmptyLevelMeansInfo(t *testing.T) {
	lvl, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/viewer.log")

	assert.Equal(t, "/tmp/viewer.log", cfg.Path)
	assert.Equal(t, 20, cfg.MaxSizeMB)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 7, cfg.MaxAgeDays)
	assert.True(t, cfg.Compress)
}

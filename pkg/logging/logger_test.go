package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"Warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, JSON: true, Service: "famreport", Output: &buf})
	log.Debug("hidden")
	log.With("run_id", "abc").Info("fit finished", "family", "Poisson")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "fit finished", rec["msg"])
	assert.Equal(t, "famreport", rec["service"])
	assert.Equal(t, "abc", rec["run_id"])
	assert.Equal(t, "Poisson", rec["family"])
}

func TestNew_TextAndQuiet(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: LevelDebug, Output: &buf}).Debug("shown", "k", 1)
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "k=1")

	buf.Reset()
	New(Config{Quiet: true, Output: &buf}).Error("nope")
	assert.Empty(t, buf.String())
}

func TestDefault(t *testing.T) {
	l := Default()
	assert.Equal(t, LevelInfo, l.config.Level)
	assert.Equal(t, "famreport", l.config.Service)
	assert.False(t, l.config.Quiet)
	assert.Nil(t, l.config.Output)
}

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("owner_key", "vendor:a@b.com").Msg("wallet redeemed")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output), "logger output should be valid JSON")

	assert.Equal(t, "wallet redeemed", output["message"])
	assert.Equal(t, "vendor:a@b.com", output["owner_key"])
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, ServiceName, output["service"])
	assert.Contains(t, output, "time")
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
		warnSeen  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"WARN", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var dbg, inf, wrn bytes.Buffer
			dl := NewWithWriter(tt.level, &dbg)
			dl.Debug().Msg("d")
			il := NewWithWriter(tt.level, &inf)
			il.Info().Msg("i")
			wl := NewWithWriter(tt.level, &wrn)
			wl.Warn().Msg("w")

			assert.Equal(t, tt.debugSeen, dbg.Len() > 0)
			assert.Equal(t, tt.infoSeen, inf.Len() > 0)
			assert.Equal(t, tt.warnSeen, wrn.Len() > 0)
		})
	}
}

func TestNew_PrettyMode(t *testing.T) {
	log := New("info", true)
	log.Info().Msg("pretty mode test")
}

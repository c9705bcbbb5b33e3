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

	log.Info().Str("reference", "NIT-900-FAV-1_2").Msg("webhook received")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output), "logger output should be valid JSON")

	assert.Equal(t, "webhook received", output["message"])
	assert.Equal(t, "NIT-900-FAV-1_2", output["reference"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level      string
		debugShown bool
		infoShown  bool
		warnShown  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"WARN", false, false, true},
		{"warning", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var debugBuf, infoBuf, warnBuf bytes.Buffer
			debugLog := NewWithWriter(tt.level, &debugBuf)
			infoLog := NewWithWriter(tt.level, &infoBuf)
			warnLog := NewWithWriter(tt.level, &warnBuf)

			debugLog.Debug().Msg("d")
			infoLog.Info().Msg("i")
			warnLog.Warn().Msg("w")

			assert.Equal(t, tt.debugShown, debugBuf.Len() > 0)
			assert.Equal(t, tt.infoShown, infoBuf.Len() > 0)
			assert.Equal(t, tt.warnShown, warnBuf.Len() > 0)
		})
	}
}

func TestForTransaction_AddsField(t *testing.T) {
	var buf bytes.Buffer
	log := ForTransaction(NewWithWriter("info", &buf), "1234-1610641025-49201")

	log.Info().Msg("resolved")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "1234-1610641025-49201", output["transaction_id"])
}

func TestNew_PrettyMode(t *testing.T) {
	log := New("info", true, "payment-reconciler")
	log.Info().Msg("pretty mode test")
}

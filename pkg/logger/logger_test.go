package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("ruidoso"))
}

func TestSeries_AgregaCampos(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Env: "production", Level: "info", Output: &buf})

	log.Component("ledger").Series("L1", "AGUA").Info().Msg("propagación completada")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ledger", line["component"])
	assert.Equal(t, "L1", line["location_id"])
	assert.Equal(t, "AGUA", line["item_id"])
	assert.Equal(t, "info", line["level"])
}

func TestForMigrate_VerboseSegunNivel(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, New(Config{Level: "info", Output: &buf}).ForMigrate().Verbose())

	ml := New(Config{Level: "debug", Output: &buf}).ForMigrate()
	assert.True(t, ml.Verbose())
	ml.Printf("Start buffering %d/u %s\n", 1, "stock_ledger")
	assert.Contains(t, buf.String(), `"component":"migrate"`)
	assert.Contains(t, buf.String(), "Start buffering 1/u stock_ledger")
}

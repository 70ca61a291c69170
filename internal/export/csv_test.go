package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emryou/solar-log-hub/internal/domain"
)

func TestGenerateCSV_HeaderAndRows(t *testing.T) {
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	samples := []*domain.Sample{
		{Ts: ts, DeviceName: "D1", SensorName: "RAD", SensorType: "radiation", Value: 850, Unit: "W/m²"},
		{Ts: ts.Add(-time.Minute), DeviceName: "D1", SensorName: "T1", SensorType: "temperature", Value: 21.5, Unit: "°C"},
	}

	out := string(GenerateCSV(samples))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,device,sensor,type,value,unit", lines[0])
	assert.Equal(t, "2026-08-30T12:00:00Z,D1,RAD,radiation,850,W/m²", lines[1])
	assert.Equal(t, "2026-08-30T11:59:00Z,D1,T1,temperature,21.5,°C", lines[2])
}

func TestGenerateCSV_MissingOptionalFieldsRenderEmpty(t *testing.T) {
	samples := []*domain.Sample{
		{Ts: time.Unix(0, 0).UTC(), DeviceName: "D1", SensorName: "S1", Value: 1},
	}

	out := string(GenerateCSV(samples))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	// empty type and unit render as empty fields, never "null"
	assert.Equal(t, "1970-01-01T00:00:00Z,D1,S1,,1,", lines[1])
	assert.NotContains(t, out, "null")
}

func TestGenerateCSV_EmptyResult(t *testing.T) {
	out := string(GenerateCSV(nil))
	assert.Equal(t, "timestamp,device,sensor,type,value,unit\n", out)
}

func TestGenerateXLSX_Roundtrip(t *testing.T) {
	samples := []*domain.Sample{
		{Ts: time.Unix(1000, 0).UTC(), DeviceName: "D1", SensorName: "RAD", SensorType: "radiation", Value: 850, Unit: "W/m²"},
	}
	data, err := GenerateXLSX(samples)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx is a zip container
	assert.Equal(t, "PK", string(data[:2]))
}

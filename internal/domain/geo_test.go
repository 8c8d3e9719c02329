package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCoordinates_LargeIntegerEncoding(t *testing.T) {
	c := NormalizeCoordinates(370551454, 221139316)

	assert.Equal(t, 37.0551454, c.Lat)
	assert.Equal(t, 22.1139316, c.Lon)
	assert.True(t, c.InGreece())
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		maxAbs   float64
		expected float64
	}{
		{"already decimal", 37.9838, 90, 37.9838},
		{"small integer", 38, 90, 38},
		{"latitude encoding", 379838000, 90, 37.9838},
		{"longitude encoding", 237275000, 180, 23.7275},
		{"three digit longitude prefix", 1234567, 180, 123.4567},
		{"negative", -370551454, 90, -37.0551454},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDegrees(tt.value, tt.maxAbs))
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		maxAbs   float64
		expected float64
	}{
		{"dot decimal", "37.9838", 90, 37.9838},
		{"comma decimal", "37,9838", 90, 37.9838},
		{"padded", "  23.7275 ", 180, 23.7275},
		{"integer encoding", "370551454", 90, 37.0551454},
		{"integer encoding lon", "221139316", 180, 22.1139316},
		{"in-range integer", "38", 90, 38},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseCoordinate(tt.raw, tt.maxAbs)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseCoordinate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "12.3.4", "1,2,3"} {
		_, err := ParseCoordinate(raw, 90)
		assert.Error(t, err, raw)
	}
}

func TestCoordinates_InGreece(t *testing.T) {
	assert.True(t, Coordinates{Lat: 37.98, Lon: 23.72}.InGreece(), "Athens")
	assert.True(t, Coordinates{Lat: 35.34, Lon: 25.13}.InGreece(), "Heraklion")
	assert.True(t, Coordinates{Lat: 34, Lon: 19}.InGreece(), "envelope corner is inclusive")
	assert.False(t, Coordinates{Lat: 48.85, Lon: 2.35}.InGreece(), "Paris")
	assert.False(t, Coordinates{Lat: 0, Lon: 0}.InGreece(), "null island")
	assert.False(t, Coordinates{Lat: 41.0, Lon: 30.5}.InGreece(), "east of envelope")
}

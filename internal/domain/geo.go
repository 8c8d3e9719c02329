package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Greek bounding envelope. Anything outside is discarded, never stored.
const (
	MinLat = 34.0
	MaxLat = 42.0
	MinLon = 19.0
	MaxLon = 30.0
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InGreece reports whether the point lies within the Greek envelope.
func (c Coordinates) InGreece() bool {
	return c.Lat >= MinLat && c.Lat <= MaxLat && c.Lon >= MinLon && c.Lon <= MaxLon
}

// NormalizeCoordinates normalizes both components of a raw pair.
func NormalizeCoordinates(lat, lon float64) Coordinates {
	return Coordinates{
		Lat: NormalizeDegrees(lat, 90),
		Lon: NormalizeDegrees(lon, 180),
	}
}

// NormalizeDegrees converts a large-integer degree encoding (e.g. 370551454)
// into decimal degrees (37.0551454). The decimal point is placed after the
// longest digit prefix that does not exceed maxAbs. Values already within
// range, or carrying a fractional part, are returned unchanged.
func NormalizeDegrees(v, maxAbs float64) float64 {
	if math.Abs(v) <= maxAbs || v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	normalized, err := shiftDecimal(strconv.FormatFloat(v, 'f', 0, 64), maxAbs)
	if err != nil {
		return v
	}
	return normalized
}

// ParseCoordinate parses a single coordinate component. It accepts a comma
// decimal separator and large-integer encodings.
func ParseCoordinate(raw string, maxAbs float64) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	if strings.ContainsAny(s, ".eE") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse coordinate %q: %w", raw, err)
		}
		return v, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse coordinate %q: %w", raw, err)
	}
	if math.Abs(float64(n)) <= maxAbs {
		return float64(n), nil
	}
	return shiftDecimal(s, maxAbs)
}

// shiftDecimal re-parses an integer digit string with the decimal point moved
// left until the integer part fits within maxAbs. Parsing the rebuilt string
// avoids the rounding noise of repeated float division.
func shiftDecimal(digits string, maxAbs float64) (float64, error) {
	sign := ""
	if strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		sign, digits = digits[:1], digits[1:]
		if sign == "+" {
			sign = ""
		}
	}
	if digits == "" {
		return 0, fmt.Errorf("no digits")
	}

	k := 1
	for k < len(digits) {
		prefix, err := strconv.ParseFloat(digits[:k+1], 64)
		if err != nil || prefix > maxAbs {
			break
		}
		k++
	}

	s := sign + digits[:k]
	if k < len(digits) {
		s += "." + digits[k:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("normalize coordinate %q: %w", digits, err)
	}
	return v, nil
}

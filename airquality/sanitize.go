package airquality

import (
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

const (
	// Decimal places kept after sanitizing (about 1 m).
	coordDecimals = 5
	// More decimals than this looks like a fabricated coordinate.
	suspiciousDecimals = 8
	// Adjustments larger than this are logged.
	adjustLogThreshold = 0.01
	antimeridianEps    = 0.00001
)

// ErrInvalidCoordinates is returned for NaN or infinite coordinates.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// SanitizeCoordinates normalises a coordinate pair before it is sent upstream.
// Values are rounded to 5 decimals, latitude is clamped to ±90, longitude to
// ±180, and +180 is folded onto -180.
func SanitizeCoordinates(lat, lon float64) (float64, float64, error) {
	if !finite(lat) || !finite(lon) {
		return 0, 0, ErrInvalidCoordinates
	}

	if decimals(lat) > suspiciousDecimals || decimals(lon) > suspiciousDecimals {
		slog.Warn("suspicious coordinate precision", "lat", lat, "lon", lon)
	}

	outLat := clampf(roundTo(lat, coordDecimals), -90, 90)
	outLon := clampf(roundTo(lon, coordDecimals), -180, 180)
	if math.Abs(outLon-180) < antimeridianEps {
		outLon = -180
	}

	if math.Abs(outLat-lat) > adjustLogThreshold || math.Abs(outLon-lon) > adjustLogThreshold {
		slog.Info("coordinates adjusted",
			"lat", lat, "lon", lon,
			"sanitized_lat", outLat, "sanitized_lon", outLon,
		)
	}
	return outLat, outLon, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func clampf(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// decimals counts the digits after the point in the shortest representation.
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

package airquality

import (
	"errors"
	"math"
	"testing"
)

func TestSanitizeCoordinates(t *testing.T) {
	tests := []struct {
		name             string
		lat, lon         float64
		wantLat, wantLon float64
	}{
		{"passthrough", 51.5074, -0.1278, 51.5074, -0.1278},
		{"rounds to 5 places", 51.507412345, -0.127812345, 51.50741, -0.12781},
		{"clamps latitude", 95, 10, 90, 10},
		{"clamps negative latitude", -91.5, 10, -90, 10},
		{"clamps longitude", 10, -200, 10, -180},
		{"folds antimeridian", 10, 180, 10, -180},
		{"folds clamped antimeridian", 10, 250, 10, -180},
		{"rounding reaches antimeridian", 10, 179.999999, 10, -180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, err := SanitizeCoordinates(tt.lat, tt.lon)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(lat-tt.wantLat) > 1e-9 || math.Abs(lon-tt.wantLon) > 1e-9 {
				t.Errorf("got (%v, %v), want (%v, %v)", lat, lon, tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestSanitizeCoordinatesRejectsNonFinite(t *testing.T) {
	for _, c := range [][2]float64{
		{math.NaN(), 0},
		{0, math.NaN()},
		{math.Inf(1), 0},
		{0, math.Inf(-1)},
	} {
		if _, _, err := SanitizeCoordinates(c[0], c[1]); !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("SanitizeCoordinates(%v, %v) err = %v", c[0], c[1], err)
		}
	}
}

package airquality

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const stationsCSV = `Name,Lat,Lon,UID
London,51.5074,-0.1278,5724
Paris,48.8566,2.3522,5722
Beijing,39.9042,116.4074,1451
`

func TestLoadStations(t *testing.T) {
	stations, err := LoadStations(strings.NewReader(stationsCSV))
	if err != nil {
		t.Fatalf("LoadStations: %v", err)
	}
	if len(stations) != 3 {
		t.Fatalf("got %d stations, want 3", len(stations))
	}
	if s := stations[2]; s.Name != "Beijing" || s.UID != 1451 || s.Lat != 39.9042 {
		t.Errorf("stations[2] = %+v", s)
	}
}

func TestLoadStationsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	if err := os.WriteFile(path, []byte(stationsCSV), 0644); err != nil {
		t.Fatal(err)
	}
	stations, err := LoadStationsFile(path)
	if err != nil || len(stations) != 3 {
		t.Fatalf("LoadStationsFile = %d, %v", len(stations), err)
	}
	if _, err := LoadStationsFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNearest(t *testing.T) {
	stations, err := LoadStations(strings.NewReader(stationsCSV))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"oxford", 51.752, -1.2577, "London"},
		{"lyon", 45.764, 4.8357, "Paris"},
		{"tianjin", 39.3434, 117.3616, "Beijing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, err := Nearest(stations, tt.lat, tt.lon)
			if err != nil {
				t.Fatal(err)
			}
			if s.Name != tt.want {
				t.Errorf("nearest = %s, want %s", s.Name, tt.want)
			}
		})
	}

	if _, _, err := Nearest(nil, 0, 0); err == nil {
		t.Error("expected error for empty station list")
	}
}

func TestHaversine(t *testing.T) {
	// London to Paris is about 344 km.
	d := Haversine(51.5074, -0.1278, 48.8566, 2.3522)
	if math.Abs(d-343.5) > 2 {
		t.Errorf("London-Paris = %.1f km", d)
	}
	if d := Haversine(10, 20, 10, 20); d != 0 {
		t.Errorf("same point = %v", d)
	}
}

package airquality

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gocarina/gocsv"
)

const earthRadiusKm = 6371.0

// Station is one row of the stations CSV.
type Station struct {
	Name string  `csv:"Name" json:"name"`
	Lat  float64 `csv:"Lat" json:"lat"`
	Lon  float64 `csv:"Lon" json:"lon"`
	UID  int     `csv:"UID" json:"uid"`
}

// LoadStations reads stations from CSV with a Name,Lat,Lon,UID header.
func LoadStations(r io.Reader) ([]Station, error) {
	var stations []Station
	if err := gocsv.Unmarshal(r, &stations); err != nil {
		return nil, fmt.Errorf("parsing stations: %w", err)
	}
	return stations, nil
}

// LoadStationsFile reads stations from a CSV file.
func LoadStationsFile(path string) ([]Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stations: %w", err)
	}
	defer f.Close()
	return LoadStations(f)
}

// Nearest returns the station closest to the given point and its distance
// in kilometres.
func Nearest(stations []Station, lat, lon float64) (Station, float64, error) {
	if len(stations) == 0 {
		return Station{}, 0, errors.New("no stations loaded")
	}
	best, bestDist := 0, math.Inf(1)
	for i, s := range stations {
		if d := Haversine(lat, lon, s.Lat, s.Lon); d < bestDist {
			best, bestDist = i, d
		}
	}
	return stations[best], bestDist, nil
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

package airquality

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

const okFeed = `{
  "status": "ok",
  "data": {
    "aqi": 42,
    "idx": 1451,
    "attributions": [{"url": "http://example.org", "name": "Agency"}],
    "city": {"geo": [39.95, 116.46], "name": "Beijing", "url": "https://aqicn.org/city/beijing"},
    "dominentpol": "pm25",
    "iaqi": {
      "pm25": {"v": 35},
      "pm10": {"v": 18.5},
      "co": {"v": "-"},
      "no2": {"v": 7}
    },
    "time": {"s": "2024-01-01 12:00:00", "tz": "+08:00", "v": 1704110400, "iso": "2024-01-01T12:00:00+08:00"}
  }
}`

func TestDecodeFeed(t *testing.T) {
	feed, err := DecodeFeed([]byte(okFeed))
	if err != nil {
		t.Fatalf("DecodeFeed: %v", err)
	}
	if feed.Data.Idx != 1451 || feed.Data.City.Name != "Beijing" {
		t.Errorf("unexpected data: %+v", feed.Data)
	}

	r := feed.Readings()
	want := Readings{"aqi": 42, "pm25": 35, "pm10": 18.5, "no2": 7}
	if len(r) != len(want) {
		t.Fatalf("readings = %v, want %v", r, want)
	}
	for k, v := range want {
		if r[k] != v {
			t.Errorf("readings[%q] = %v, want %v", k, r[k], v)
		}
	}
	if _, ok := r["co"]; ok {
		t.Error("co reported as \"-\" should be missing")
	}
}

func TestDecodeFeedErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"unknown station", `{"status":"error","data":"Unknown station"}`, ErrStationNotFound},
		{"invalid key", `{"status":"error","data":"Invalid key"}`, ErrUpstream},
		{"over quota", `{"status":"error","data":"Over quota"}`, ErrUpstream},
		{"not json", `<html>`, ErrUpstream},
		{"bad data", `{"status":"ok","data":"nope"}`, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFeed([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValueDash(t *testing.T) {
	var f FeedData
	if err := json.Unmarshal([]byte(`{"aqi":"-"}`), &f); err != nil {
		t.Fatal(err)
	}
	if f.AQI.Valid {
		t.Error("aqi \"-\" should be invalid")
	}
	out, err := json.Marshal(f.AQI)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"-"` {
		t.Errorf("marshal invalid = %s, want \"-\"", out)
	}
}

func TestReadingsClone(t *testing.T) {
	r := Readings{"pm25": 1}
	c := r.Clone()
	c["pm25"] = 2
	if r["pm25"] != 1 {
		t.Error("Clone shares storage")
	}
	if Readings(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

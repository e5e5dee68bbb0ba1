// Package airquality fetches station feeds from the WAQI air-quality API and
// turns them into pollutant readings.
package airquality

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrUpstream is returned when the API fails or answers with a non-ok status.
	ErrUpstream = errors.New("air-quality upstream error")
	// ErrStationNotFound is returned for an unknown station or location.
	ErrStationNotFound = errors.New("station not found")
)

// Readings maps a pollutant key to its value. A missing key means the
// reading is undefined.
type Readings map[string]float64

// Clone returns an independent copy.
func (r Readings) Clone() Readings {
	if r == nil {
		return nil
	}
	out := make(Readings, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Value is a numeric field that the API sometimes reports as "-" or omits.
type Value struct {
	V     float64
	Valid bool
}

// UnmarshalJSON accepts a number; anything else decodes as missing.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	*v = Value{V: f, Valid: true}
	return nil
}

// MarshalJSON writes the number, or "-" when missing.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte(`"-"`), nil
	}
	return json.Marshal(v.V)
}

// Measurement is one entry of the individual AQI map.
type Measurement struct {
	V Value `json:"v"`
}

// City describes the station location.
type City struct {
	Name     string    `json:"name"`
	Geo      []float64 `json:"geo"`
	URL      string    `json:"url"`
	Location string    `json:"location,omitempty"`
}

// Attribution credits a data provider.
type Attribution struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Station string `json:"station,omitempty"`
}

// Time is the measurement timestamp.
type Time struct {
	S   string `json:"s"`
	TZ  string `json:"tz"`
	V   int64  `json:"v"`
	ISO string `json:"iso"`
}

// FeedData is the payload of an ok feed response.
type FeedData struct {
	AQI          Value                  `json:"aqi"`
	Idx          int                    `json:"idx"`
	Attributions []Attribution          `json:"attributions,omitempty"`
	City         City                   `json:"city"`
	DominentPol  string                 `json:"dominentpol"`
	IAQI         map[string]Measurement `json:"iaqi"`
	Time         Time                   `json:"time"`
}

// Feed mirrors a WAQI feed response.
type Feed struct {
	Status string   `json:"status"`
	Data   FeedData `json:"data"`
}

// Readings extracts pollutant values. aqi comes from the overall index and
// every other key from the individual AQI map.
func (f *Feed) Readings() Readings {
	r := make(Readings, len(f.Data.IAQI)+1)
	if f.Data.AQI.Valid {
		r["aqi"] = f.Data.AQI.V
	}
	for key, m := range f.Data.IAQI {
		if key == "aqi" || !m.V.Valid {
			continue
		}
		r[key] = m.V.V
	}
	return r
}

// envelope is decoded first; data is a message string on error.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// DecodeFeed parses a feed response body.
func DecodeFeed(body []byte) (*Feed, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}

	if env.Status != "ok" {
		var msg string
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			msg = string(env.Data)
		}
		if isNotFound(msg) {
			return nil, fmt.Errorf("%w: %s", ErrStationNotFound, msg)
		}
		return nil, fmt.Errorf("%w: status %q: %s", ErrUpstream, env.Status, msg)
	}

	feed := &Feed{Status: env.Status}
	if err := json.Unmarshal(env.Data, &feed.Data); err != nil {
		return nil, fmt.Errorf("%w: decoding feed data: %v", ErrUpstream, err)
	}
	return feed, nil
}

func isNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "unknown station") || strings.Contains(msg, "no station")
}

package airquality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pthm-cable/haze/config"
	"github.com/pthm-cable/haze/metrics"
)

const (
	breakerName = "waqi-api"

	endpointUID    = "feed_uid"
	endpointLatLon = "feed_geo"

	// Concurrent lookups in ByUIDs.
	batchWorkers = 4
	// Upper bound on a feed body.
	maxBodyBytes = 1 << 20
)

// Source looks up the feed for a location.
type Source interface {
	ByLatLon(ctx context.Context, lat, lon float64) (*Feed, error)
}

// Client calls the WAQI feed API behind a circuit breaker.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	cb      *gobreaker.CircuitBreaker[*Feed]
}

// NewClient builds a client from the upstream config section.
func NewClient(cfg config.UpstreamConfig) *Client {
	metrics.SetBreakerState(0)

	bc := cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[*Feed](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			trip := ratio >= bc.FailureRatio
			if trip {
				slog.Warn("opening upstream circuit",
					"failures", counts.TotalFailures,
					"failure_ratio", ratio,
				)
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetBreakerState(stateValue(to))
		},
		// Unknown stations and caller cancellation say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrStationNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		cb:      cb,
	}
}

// ByUID fetches the feed of one station.
func (c *Client) ByUID(ctx context.Context, uid int) (*Feed, error) {
	if uid <= 0 {
		return nil, fmt.Errorf("invalid station uid %d", uid)
	}
	return c.execute(ctx, endpointUID, "@"+strconv.Itoa(uid))
}

// ByLatLon fetches the feed of the station nearest to a coordinate.
// Coordinates are sanitized first.
func (c *Client) ByLatLon(ctx context.Context, lat, lon float64) (*Feed, error) {
	lat, lon, err := SanitizeCoordinates(lat, lon)
	if err != nil {
		return nil, err
	}
	loc := "geo:" + formatCoord(lat) + ";" + formatCoord(lon)
	return c.execute(ctx, endpointLatLon, loc)
}

// ByUIDs fetches several stations. Unknown stations are left out of the
// result; any other failure aborts the batch.
func (c *Client) ByUIDs(ctx context.Context, uids []int) (map[int]*Feed, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seen := make(map[int]bool, len(uids))
	unique := make([]int, 0, len(uids))
	for _, uid := range uids {
		if !seen[uid] {
			seen[uid] = true
			unique = append(unique, uid)
		}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		out      = make(map[int]*Feed, len(unique))
		jobs     = make(chan int)
	)

	workers := min(batchWorkers, len(unique))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for uid := range jobs {
				feed, err := c.ByUID(ctx, uid)
				mu.Lock()
				switch {
				case err == nil:
					out[uid] = feed
				case errors.Is(err, ErrStationNotFound):
				case firstErr == nil:
					firstErr = fmt.Errorf("uid %d: %w", uid, err)
					cancel()
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, uid := range unique {
		select {
		case jobs <- uid:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) execute(ctx context.Context, endpoint, location string) (*Feed, error) {
	start := time.Now()
	feed, err := c.cb.Execute(func() (*Feed, error) {
		return c.fetch(ctx, location)
	})

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
		slog.Warn("upstream request rejected", "endpoint", endpoint, "err", err)
		err = fmt.Errorf("%w: %v", ErrUpstream, err)
	case errors.Is(err, ErrStationNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.RecordUpstream(endpoint, outcome, time.Since(start))
	return feed, err
}

func (c *Client) fetch(ctx context.Context, location string) (*Feed, error) {
	u := c.baseURL + "/feed/" + location + "/?token=" + url.QueryEscape(c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: http status %d", ErrUpstream, resp.StatusCode)
	}
	return DecodeFeed(body)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Command hazeproxy serves air-quality lookups and the station list over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/haze/airquality"
	"github.com/pthm-cable/haze/config"
	"github.com/pthm-cable/haze/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	stationsPath := flag.String("stations", "", "Stations CSV (empty = use config)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *stationsPath); err != nil {
		slog.Error("proxy stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath, stationsPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if cfg.Upstream.Token == "" {
		slog.Warn("no upstream token set; requests will be rejected upstream")
	}

	if stationsPath == "" {
		stationsPath = cfg.Stations.CSVPath
	}
	var stations []airquality.Station
	if stationsPath != "" {
		stations, err = airquality.LoadStationsFile(stationsPath)
		if err != nil {
			return err
		}
		slog.Info("stations loaded", "path", stationsPath, "count", len(stations))
	}

	client := airquality.NewClient(cfg.Upstream)
	srv := server.New(cfg.Server, client, stations).HTTPServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("proxy listening", "addr", srv.Addr, "upstream", cfg.Upstream.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

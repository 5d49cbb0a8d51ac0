// Command harvester runs the GeoPulse aggregation loop and its HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/aggregator"
	"github.com/Adda-Baaj/geopulse/internal/api"
	"github.com/Adda-Baaj/geopulse/internal/config"
	"github.com/Adda-Baaj/geopulse/internal/crawler"
	"github.com/Adda-Baaj/geopulse/internal/logger"
	"github.com/Adda-Baaj/geopulse/internal/sourcestate"
	"github.com/Adda-Baaj/geopulse/internal/store"
	"github.com/Adda-Baaj/geopulse/internal/weather"
	"github.com/Adda-Baaj/geopulse/pkg/geo"
	"github.com/Adda-Baaj/geopulse/pkg/httpclient"
	"github.com/Adda-Baaj/geopulse/pkg/providers"
	"github.com/Adda-Baaj/geopulse/pkg/publishers"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to an optional YAML config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.server.Shutdown(shCtx)
	}()

	log.InfoObj("harvester started", "startup", map[string]any{
		"addr":       cfg.HTTP.Addr,
		"interval":   cfg.Aggregation.Interval.String(),
		"sources":    a.sources,
		"publishers": a.publishers,
		"weather":    cfg.Weather.APIKey != "",
	})
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	log.InfoObj("harvester stopping", "shutdown", nil)
	return nil
}

// app is the wired service. close releases resources in reverse open order.
type app struct {
	server     *http.Server
	scheduler  *aggregator.Scheduler
	sources    int
	publishers int

	log     logger.Logger
	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   func() error
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, fn: fn})
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.WarnObj("close failed", "shutdown", map[string]any{"component": c.name, "error": err.Error()})
		}
	}
	a.closers = nil
}

// build opens storage and wires every component without starting the scheduler or the listener.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *app, err error) {
	a := &app{log: logger.Ensure(log)}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	db, err := store.Open(ctx, cfg.Database.Path, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.onClose("database", db.Close)

	state, err := sourcestate.Open(cfg.State.Path, a.log)
	if err != nil {
		return nil, fmt.Errorf("open source state: %w", err)
	}
	a.onClose("source state", state.Close)

	sources, err := loadSources(cfg.Sources.File)
	if err != nil {
		return nil, err
	}
	a.sources = len(sources.All())

	dispatcher, err := buildDispatcher(ctx, cfg.Publishers.File, a.log)
	if err != nil {
		return nil, err
	}
	a.onClose("publishers", dispatcher.Close)
	a.publishers = dispatcher.Len()

	client := httpclient.NewRestyClient(cfg.Aggregation.RequestTimeout)
	collector := providers.NewCollector(providers.DefaultFetcherRegistry(client), cfg.Aggregation.RequestTimeout, state, a.log)
	geocoder := geo.NewGeocoder(nil)

	deps := aggregator.Deps{
		Collector: collector,
		API: providers.APIConfig{
			BaseURL:  cfg.NewsAPI.BaseURL,
			Key:      cfg.NewsAPI.Key,
			PageSize: cfg.NewsAPI.PageSize,
			Language: cfg.NewsAPI.Language,
		},
		Store:        db,
		Sources:      sources,
		Geocoder:     geocoder,
		Weather:      weather.NewClient(client, cfg.Weather.BaseURL, cfg.Weather.APIKey),
		SweepWorkers: cfg.Aggregation.SweepWorkers,
		Log:          a.log,
	}
	if dispatcher.Len() > 0 {
		deps.Publisher = dispatcher
	}
	if cfg.Aggregation.Enrich {
		deps.Enricher = crawler.NewEnricher(client, a.log)
	}
	pipeline := aggregator.NewPipeline(deps)
	a.scheduler = aggregator.NewScheduler(pipeline, cfg.Aggregation.Interval, a.log)

	srv := api.NewServer(api.Options{
		Store:       db,
		News:        pipeline.News(),
		Aggregation: a.scheduler,
		Health:      state,
		Geocoder:    geocoder,
		Log:         a.log,
	})
	a.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return a, nil
}

func loadSources(path string) (*providers.Sources, error) {
	if path == "" {
		return providers.DefaultSources()
	}
	return providers.LoadSources(path)
}

func buildDispatcher(ctx context.Context, path string, log logger.Logger) (*publishers.Dispatcher, error) {
	if path == "" {
		return publishers.NewDispatcher(nil, log), nil
	}
	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	pubs, err := publishers.DefaultRegistry().BuildAll(ctx, reg.Enabled(), log)
	if err != nil {
		return nil, err
	}
	return publishers.NewDispatcher(pubs, log), nil
}

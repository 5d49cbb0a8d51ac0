package aggregator

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/internal/logger"
	"github.com/Adda-Baaj/geopulse/internal/merge"
	"github.com/Adda-Baaj/geopulse/internal/store"
	"github.com/Adda-Baaj/geopulse/pkg/geo"
	"github.com/Adda-Baaj/geopulse/pkg/providers"
)

// DefaultSweepWorkers bounds concurrent source fetches during the sweep.
const DefaultSweepWorkers = 4

// Store is the persistence the pipeline writes through.
type Store interface {
	DistinctPlaces(ctx context.Context) ([]domain.Place, error)
	UpsertArticles(ctx context.Context, articles []domain.Article) (store.UpsertResult, error)
	SaveWeatherAlerts(ctx context.Context, alerts []domain.WeatherAlert) (int, error)
}

// SourceRegistry lists the configured scrape and feed sources per region.
type SourceRegistry interface {
	ForRegion(region string) []providers.Provider
}

// Publisher emits newly stored articles downstream.
type Publisher interface {
	PublishArticles(ctx context.Context, articles []domain.Article) int
}

// Enricher fills missing article metadata.
type Enricher interface {
	Enrich(ctx context.Context, cfg providers.Provider, articles []domain.Article) []domain.Article
}

// AlertSource returns weather alerts around a point.
type AlertSource interface {
	Enabled() bool
	Alerts(ctx context.Context, lat, lng float64, place domain.Place) ([]domain.WeatherAlert, error)
}

// LocationReport is the outcome for one place.
type LocationReport struct {
	City      string             `json:"city"`
	Country   string             `json:"country"`
	Fetched   int                `json:"fetched"`
	Result    store.UpsertResult `json:"result"`
	Published int                `json:"published"`
	Alerts    int                `json:"alerts"`
	Error     string             `json:"error,omitempty"`
}

// SweepReport is the outcome of the once-per-tick registry sweep.
type SweepReport struct {
	Countries []string           `json:"countries"`
	Sources   int                `json:"sources"`
	Fetched   int                `json:"fetched"`
	Result    store.UpsertResult `json:"result"`
	Published int                `json:"published"`
	Error     string             `json:"error,omitempty"`
}

// TickReport summarizes one tick.
type TickReport struct {
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Skipped    bool             `json:"skipped"`
	Places     int              `json:"places"`
	Locations  []LocationReport `json:"locations"`
	Sweep      SweepReport      `json:"sweep"`
}

// Inserted is the total of new rows across locations and the sweep.
func (r TickReport) Inserted() int {
	n := r.Sweep.Result.Inserted
	for _, loc := range r.Locations {
		n += loc.Result.Inserted
	}
	return n
}

// Pipeline runs one tick. It holds no state between ticks.
type Pipeline struct {
	news      *NewsService
	collector Collector
	store     Store
	sources   SourceRegistry
	geocoder  Resolver
	publisher Publisher
	enricher  Enricher
	weather   AlertSource
	workers   int
	log       logger.Logger
	now       func() time.Time
}

// Deps are the collaborators of a Pipeline. Publisher, Enricher and Weather are optional.
type Deps struct {
	Collector    Collector
	API          providers.APIConfig
	Store        Store
	Sources      SourceRegistry
	Geocoder     Resolver
	Publisher    Publisher
	Enricher     Enricher
	Weather      AlertSource
	SweepWorkers int
	Log          logger.Logger
}

// NewPipeline wires a Pipeline.
func NewPipeline(d Deps) *Pipeline {
	if d.Geocoder == nil {
		d.Geocoder = geo.NewGeocoder(nil)
	}
	if d.SweepWorkers <= 0 {
		d.SweepWorkers = DefaultSweepWorkers
	}
	return &Pipeline{
		news:      NewNewsService(d.Collector, d.API),
		collector: d.Collector,
		store:     d.Store,
		sources:   d.Sources,
		geocoder:  d.Geocoder,
		publisher: d.Publisher,
		enricher:  d.Enricher,
		weather:   d.Weather,
		workers:   d.SweepWorkers,
		log:       logger.Ensure(d.Log),
		now:       time.Now,
	}
}

// News exposes the combined-fetch service used by the read API.
func (p *Pipeline) News() *NewsService { return p.news }

// Run executes one tick: every place in query order, then one sweep over the distinct countries.
// Only failing to list places is returned as an error.
func (p *Pipeline) Run(ctx context.Context) (TickReport, error) {
	report := TickReport{StartedAt: p.now().UTC(), Locations: []LocationReport{}}

	places, err := p.store.DistinctPlaces(ctx)
	if err != nil {
		report.FinishedAt = p.now().UTC()
		return report, err
	}
	report.Places = len(places)
	if len(places) == 0 {
		report.Skipped = true
		p.log.InfoObj("no user locations, skipping tick", "aggregation_skip", nil)
		report.FinishedAt = p.now().UTC()
		return report, nil
	}

	for _, place := range places {
		if ctx.Err() != nil {
			break
		}
		report.Locations = append(report.Locations, p.runLocation(ctx, place))
	}

	if ctx.Err() == nil {
		report.Sweep = p.sweep(ctx, countries(places))
	}
	report.FinishedAt = p.now().UTC()
	return report, nil
}

func (p *Pipeline) runLocation(ctx context.Context, place domain.Place) LocationReport {
	rep := LocationReport{City: place.City, Country: place.Country}

	articles := p.news.LocalNews(ctx, place.City, place.Country, "")
	rep.Fetched = len(articles)
	geotag(articles, p.geocoder, place.City, place.Country)

	res, err := p.store.UpsertArticles(ctx, articles)
	rep.Result = res
	if err != nil {
		rep.Error = err.Error()
		p.log.ErrorObj("persist location batch failed", "aggregation_location_error", map[string]any{
			"city":    place.City,
			"country": place.Country,
			"error":   err,
		})
	}
	rep.Published = p.publish(ctx, res.New)
	rep.Alerts = p.alerts(ctx, place)

	p.log.DebugObj("location aggregated", "aggregation_location", map[string]any{
		"city":       place.City,
		"country":    place.Country,
		"fetched":    rep.Fetched,
		"inserted":   res.Inserted,
		"duplicates": res.Duplicates,
		"errored":    res.Errored,
	})
	return rep
}

func (p *Pipeline) alerts(ctx context.Context, place domain.Place) int {
	if p.weather == nil || !p.weather.Enabled() {
		return 0
	}
	pt := p.geocoder.Resolve(place.City, place.Country)
	if pt.IsUnknown() {
		return 0
	}
	alerts, err := p.weather.Alerts(ctx, pt.Lat, pt.Lng, place)
	if err != nil {
		p.log.WarnObj("weather alerts fetch failed", "weather_error", map[string]any{
			"city":  place.City,
			"error": err,
		})
		return 0
	}
	saved, err := p.store.SaveWeatherAlerts(ctx, alerts)
	if err != nil {
		p.log.ErrorObj("persist weather alerts failed", "weather_store_error", map[string]any{
			"city":  place.City,
			"error": err,
		})
	}
	return saved
}

// sweep fetches every registry source of the given countries with bounded concurrency,
// merges the results in registry order and persists them as one batch.
func (p *Pipeline) sweep(ctx context.Context, countries []string) SweepReport {
	rep := SweepReport{Countries: countries}
	if p.sources == nil || len(countries) == 0 {
		return rep
	}

	type job struct {
		cfg     providers.Provider
		country string
	}
	var jobs []job
	for _, country := range countries {
		for _, cfg := range p.sources.ForRegion(country) {
			jobs = append(jobs, job{cfg: cfg, country: country})
		}
	}
	rep.Sources = len(jobs)
	if len(jobs) == 0 {
		return rep
	}

	results := make([][]domain.Article, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, j := range jobs {
		g.Go(func() error {
			arts := p.collector.Collect(gctx, j.cfg)
			if p.enricher != nil && j.cfg.Kind == providers.KindScrape && len(arts) > 0 {
				arts = p.enricher.Enrich(gctx, j.cfg, arts)
			}
			geotag(arts, p.geocoder, geo.MainCity(j.country), j.country)
			results[i] = arts
			return nil
		})
	}
	_ = g.Wait()

	merged := merge.Merge(results...)
	rep.Fetched = len(merged)

	res, err := p.store.UpsertArticles(ctx, merged)
	rep.Result = res
	if err != nil {
		rep.Error = err.Error()
		p.log.ErrorObj("persist sweep batch failed", "aggregation_sweep_error", map[string]any{
			"countries": countries,
			"error":     err,
		})
	}
	rep.Published = p.publish(ctx, res.New)
	return rep
}

func (p *Pipeline) publish(ctx context.Context, articles []domain.Article) int {
	if p.publisher == nil || len(articles) == 0 {
		return 0
	}
	return p.publisher.PublishArticles(ctx, articles)
}

// countries returns the distinct countries of places in first-seen order.
func countries(places []domain.Place) []string {
	seen := make(map[string]struct{}, len(places))
	var out []string
	for _, pl := range places {
		key := strings.ToLower(strings.TrimSpace(pl.Country))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(pl.Country))
	}
	return out
}

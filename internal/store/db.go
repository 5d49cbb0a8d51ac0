// Package store is the sqlite persistence gateway for articles, user locations, reports and weather alerts.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"

	"github.com/Adda-Baaj/geopulse/pkg/geo"
)

// DefaultMaxOpenConns bounds the connection pool.
const DefaultMaxOpenConns = 10

var registerOnce sync.Once
var registerErr error

// registerFunctions installs haversine_km(lat1, lng1, lat2, lng2) so radius filters run as exact SQL predicates.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("haversine_km", 4,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				vals := make([]float64, len(args))
				for i, arg := range args {
					v, ok := toFloat(arg)
					if !ok {
						return nil, nil
					}
					vals[i] = v
				}
				return geo.Haversine(geo.Point{Lat: vals[0], Lng: vals[1]}, geo.Point{Lat: vals[2], Lng: vals[3]}), nil
			})
	})
	return registerErr
}

func toFloat(v driver.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Store wraps the pooled sqlite handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string, maxOpenConns int) (*Store, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("register sqlite functions: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the datastore is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) clock() time.Time { return s.now().UTC() }

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT 'Unknown',
			provider_id TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			published_at DATETIME NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			latitude REAL,
			longitude REAL,
			created_at DATETIME NOT NULL,
			last_seen_at DATETIME NOT NULL,
			UNIQUE(title, url)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_city ON articles(city COLLATE NOCASE);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_coords ON articles(latitude, longitude);`,
		`CREATE TABLE IF NOT EXISTS user_locations (
			user_id TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_reports (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			report_type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			location_name TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL DEFAULT 'medium',
			image_url TEXT,
			video_url TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			upvotes INTEGER NOT NULL DEFAULT 0,
			verification_count INTEGER NOT NULL DEFAULT 0,
			verified INTEGER NOT NULL DEFAULT 0,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_active ON user_reports(status, expires_at);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_coords ON user_reports(latitude, longitude);`,
		`CREATE TABLE IF NOT EXISTS report_verifications (
			report_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			verification_type TEXT NOT NULL,
			comment TEXT,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (report_id, user_id),
			FOREIGN KEY (report_id) REFERENCES user_reports(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS weather_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(title, city, start_time)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_end ON weather_alerts(end_time);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

const (
	defaultArticleLimit = 20
	maxArticleLimit     = 500
)

// UpsertResult summarizes one persisted batch. Duplicates are an expected outcome, not errors.
type UpsertResult struct {
	Inserted   int              `json:"inserted"`
	Duplicates int              `json:"duplicates"`
	Errored    int              `json:"errored"`
	New        []domain.Article `json:"-"`
	Failures   []ItemFailure    `json:"failures,omitempty"`
}

// ItemFailure records why one article was not written.
type ItemFailure struct {
	Title string `json:"title"`
	Err   string `json:"error"`
}

// Add folds other into r.
func (r *UpsertResult) Add(other UpsertResult) {
	r.Inserted += other.Inserted
	r.Duplicates += other.Duplicates
	r.Errored += other.Errored
	r.New = append(r.New, other.New...)
	r.Failures = append(r.Failures, other.Failures...)
}

const insertArticleSQL = `
	INSERT INTO articles
		(title, description, image_url, source, provider_id, url, published_at, city, country, latitude, longitude, created_at, last_seen_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(title, url) DO NOTHING`

const touchArticleSQL = `UPDATE articles SET last_seen_at = ? WHERE title = ? AND url = ?`

// UpsertArticles writes a batch on one pooled connection, released on every path.
// Content of an existing (title, url) row is never rewritten; only last_seen_at moves.
// The returned error is non-nil only when the connection itself fails; counts cover the items processed so far.
func (s *Store) UpsertArticles(ctx context.Context, articles []domain.Article) (UpsertResult, error) {
	var res UpsertResult
	if len(articles) == 0 {
		return res, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return res, storageErr("acquire connection", err)
	}
	defer conn.Close()

	insert, err := conn.PrepareContext(ctx, insertArticleSQL)
	if err != nil {
		return res, storageErr("prepare insert", err)
	}
	defer insert.Close()

	touch, err := conn.PrepareContext(ctx, touchArticleSQL)
	if err != nil {
		return res, storageErr("prepare touch", err)
	}
	defer touch.Close()

	for _, art := range articles {
		outcome, err := s.upsertOne(ctx, insert, touch, &art)
		switch {
		case err != nil && fatal(err):
			return res, storageErr("upsert articles", err)
		case err != nil:
			res.Errored++
			res.Failures = append(res.Failures, ItemFailure{Title: art.Title, Err: err.Error()})
		case outcome == outcomeInserted:
			res.Inserted++
			res.New = append(res.New, art)
		default:
			res.Duplicates++
		}
	}
	return res, nil
}

type upsertOutcome int

const (
	outcomeInserted upsertOutcome = iota
	outcomeDuplicate
)

func (s *Store) upsertOne(ctx context.Context, insert, touch *sql.Stmt, art *domain.Article) (upsertOutcome, error) {
	art.Title = strings.TrimSpace(art.Title)
	if art.Title == "" {
		return 0, errors.New("title is required")
	}
	now := s.clock()
	if art.PublishedAt.IsZero() {
		art.PublishedAt = now
	}
	if art.Source == "" {
		art.Source = "Unknown"
	}

	result, err := insert.ExecContext(ctx,
		art.Title, art.Description, art.ImageURL, art.Source, art.ProviderID, art.URL,
		art.PublishedAt.UTC(), art.City, art.Country,
		nullFloat(art.Latitude), nullFloat(art.Longitude), now, now,
	)
	if err != nil {
		return 0, err
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		if id, err := result.LastInsertId(); err == nil {
			art.ID = id
		}
		return outcomeInserted, nil
	}

	if _, err := touch.ExecContext(ctx, now, art.Title, art.URL); err != nil {
		return 0, err
	}
	return outcomeDuplicate, nil
}

const articleColumns = `id, title, description, image_url, source, provider_id, url, published_at, city, country, latitude, longitude, last_seen_at`

// ArticlesNear returns articles within radiusKm of (lat, lng), newest first. Unresolved (0,0) rows never match.
func (s *Store) ArticlesNear(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]domain.Article, error) {
	r, err := newRadius(lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}
	where, args := r.predicate()
	args = append(args, clampLimit(limit, defaultArticleLimit, maxArticleLimit))

	return s.queryArticles(ctx, "articles near",
		`SELECT `+articleColumns+` FROM articles WHERE `+where+` ORDER BY published_at DESC, id DESC LIMIT ?`, args...)
}

// ArticlesByCity matches the stored city case-insensitively, newest first.
func (s *Store) ArticlesByCity(ctx context.Context, city string, limit int) ([]domain.Article, error) {
	return s.queryArticles(ctx, "articles by city",
		`SELECT `+articleColumns+` FROM articles WHERE LOWER(city) = LOWER(?) ORDER BY published_at DESC, id DESC LIMIT ?`,
		strings.TrimSpace(city), clampLimit(limit, defaultArticleLimit, maxArticleLimit))
}

// LatestArticles returns the most recent rows regardless of location.
func (s *Store) LatestArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	return s.queryArticles(ctx, "latest articles",
		`SELECT `+articleColumns+` FROM articles ORDER BY published_at DESC, id DESC LIMIT ?`,
		clampLimit(limit, 50, maxArticleLimit))
}

// CountArticles returns the number of stored rows.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, storageErr("count articles", err)
	}
	return n, nil
}

func (s *Store) queryArticles(ctx context.Context, op, query string, args ...any) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	out := []domain.Article{}
	for rows.Next() {
		var (
			a        domain.Article
			lat, lng sql.NullFloat64
			lastSeen sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.ImageURL, &a.Source, &a.ProviderID, &a.URL,
			&a.PublishedAt, &a.City, &a.Country, &lat, &lng, &lastSeen); err != nil {
			return nil, storageErr(op, err)
		}
		if lat.Valid && lng.Valid {
			a.SetCoordinates(lat.Float64, lng.Float64)
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			a.LastSeenAt = &t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

const (
	// ReportTTL is how long a report stays active after creation.
	ReportTTL = 24 * time.Hour
	// VerifiedThreshold is the number of confirmations that marks a report verified.
	VerifiedThreshold = 3

	defaultReportLimit = 50
	maxReportLimit     = 200
)

const reportColumns = `id, user_id, report_type, title, description, latitude, longitude, location_name, city, country,
	severity, COALESCE(image_url, ''), COALESCE(video_url, ''), status, upvotes, verification_count, verified, expires_at, created_at`

// CreateReport stores a new active report expiring after ReportTTL and returns it with its id.
func (s *Store) CreateReport(ctx context.Context, r domain.Report) (domain.Report, error) {
	now := s.clock()
	r.ID = uuid.NewString()
	r.Status = domain.ReportStatusActive
	r.CreatedAt = now
	r.ExpiresAt = now.Add(ReportTTL)
	if strings.TrimSpace(r.Severity) == "" {
		r.Severity = domain.SeverityMedium
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_reports
			(id, user_id, report_type, title, description, latitude, longitude, location_name, city, country,
			 severity, image_url, video_url, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Type, r.Title, r.Description, r.Latitude, r.Longitude, r.LocationName, r.City, r.Country,
		r.Severity, nullString(r.ImageURL), nullString(r.VideoURL), r.Status, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return domain.Report{}, storageErr("create report", err)
	}
	return r, nil
}

// Report returns one report by id regardless of expiry.
func (s *Store) Report(ctx context.Context, id string) (domain.Report, error) {
	reports, err := s.queryReports(ctx, "get report", false, `SELECT `+reportColumns+` FROM user_reports WHERE id = ?`, id)
	if err != nil {
		return domain.Report{}, err
	}
	if len(reports) == 0 {
		return domain.Report{}, ErrNotFound
	}
	return reports[0], nil
}

// ReportsNear returns active reports within radiusKm, newest first, with their distance.
func (s *Store) ReportsNear(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]domain.Report, error) {
	r, err := newRadius(lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}
	dist, distArgs := r.distance()
	where, whereArgs := r.predicate()

	args := append([]any{}, distArgs...)
	args = append(args, s.clock())
	args = append(args, whereArgs...)
	args = append(args, clampLimit(limit, defaultReportLimit, maxReportLimit))

	query := `SELECT ` + reportColumns + `, ` + dist + ` AS distance_km
		FROM user_reports
		WHERE status = 'active' AND expires_at > ? AND ` + where + `
		ORDER BY created_at DESC
		LIMIT ?`
	return s.queryReports(ctx, "reports near", true, query, args...)
}

// ReportsByCity returns active reports for a city, newest first.
func (s *Store) ReportsByCity(ctx context.Context, city string, limit int) ([]domain.Report, error) {
	return s.queryReports(ctx, "reports by city", false, `
		SELECT `+reportColumns+` FROM user_reports
		WHERE LOWER(city) = LOWER(?) AND status = 'active' AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT ?`, strings.TrimSpace(city), s.clock(), clampLimit(limit, defaultReportLimit, maxReportLimit))
}

// TrendingReports ranks active reports by upvotes + 2 * verifications, then recency.
func (s *Store) TrendingReports(ctx context.Context, limit int) ([]domain.Report, error) {
	return s.queryReports(ctx, "trending reports", false, `
		SELECT `+reportColumns+` FROM user_reports
		WHERE status = 'active' AND expires_at > ?
		ORDER BY (upvotes + verification_count * 2) DESC, created_at DESC
		LIMIT ?`, s.clock(), clampLimit(limit, 20, maxReportLimit))
}

// VerifyReport records one user's verdict (replacing any earlier one) and recomputes the confirmation count.
func (s *Store) VerifyReport(ctx context.Context, v domain.Verification) (domain.Report, error) {
	switch v.Type {
	case domain.VerificationConfirm, domain.VerificationDispute:
	default:
		return domain.Report{}, fmt.Errorf("%w: verification type %q", ErrInvalidQuery, v.Type)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Report{}, storageErr("verify report", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_reports WHERE id = ?`, v.ReportID).Scan(&exists); err != nil {
		return domain.Report{}, storageErr("verify report", err)
	}
	if exists == 0 {
		return domain.Report{}, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO report_verifications (report_id, user_id, verification_type, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(report_id, user_id) DO UPDATE SET
			verification_type = excluded.verification_type,
			comment = excluded.comment`,
		v.ReportID, v.UserID, v.Type, nullString(v.Comment), s.clock()); err != nil {
		return domain.Report{}, storageErr("verify report", err)
	}

	var confirms int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM report_verifications WHERE report_id = ? AND verification_type = ?`,
		v.ReportID, domain.VerificationConfirm).Scan(&confirms); err != nil {
		return domain.Report{}, storageErr("verify report", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE user_reports SET verification_count = ?, verified = ? WHERE id = ?`,
		confirms, boolInt(confirms >= VerifiedThreshold), v.ReportID); err != nil {
		return domain.Report{}, storageErr("verify report", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Report{}, storageErr("verify report", err)
	}

	return s.Report(ctx, v.ReportID)
}

// UpvoteReport increments the upvote counter.
func (s *Store) UpvoteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_reports SET upvotes = upvotes + 1 WHERE id = ?`, id)
	if err != nil {
		return storageErr("upvote report", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryReports(ctx context.Context, op string, withDistance bool, query string, args ...any) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	out := []domain.Report{}
	for rows.Next() {
		var (
			r        domain.Report
			verified int
			distance float64
		)
		dest := []any{&r.ID, &r.UserID, &r.Type, &r.Title, &r.Description, &r.Latitude, &r.Longitude,
			&r.LocationName, &r.City, &r.Country, &r.Severity, &r.ImageURL, &r.VideoURL, &r.Status,
			&r.Upvotes, &r.VerificationCount, &verified, &r.ExpiresAt, &r.CreatedAt}
		if withDistance {
			dest = append(dest, &distance)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, storageErr(op, err)
		}
		r.Verified = verified != 0
		if withDistance {
			d := distance
			r.DistanceKm = &d
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

// SaveUserLocation upserts the single location row of a user.
func (s *Store) SaveUserLocation(ctx context.Context, loc domain.UserLocation) error {
	now := s.clock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_locations (user_id, latitude, longitude, city, country, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			city = excluded.city,
			country = excluded.country,
			updated_at = excluded.updated_at`,
		strings.TrimSpace(loc.UserID), loc.Latitude, loc.Longitude,
		strings.TrimSpace(loc.City), strings.TrimSpace(loc.Country), now, now)
	return storageErr("save user location", err)
}

// UserLocation returns the stored location of userID or ErrNotFound.
func (s *Store) UserLocation(ctx context.Context, userID string) (domain.UserLocation, error) {
	var loc domain.UserLocation
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, latitude, longitude, city, country, updated_at
		FROM user_locations WHERE user_id = ?`, strings.TrimSpace(userID)).
		Scan(&loc.UserID, &loc.Latitude, &loc.Longitude, &loc.City, &loc.Country, &loc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserLocation{}, ErrNotFound
	}
	if err != nil {
		return domain.UserLocation{}, storageErr("get user location", err)
	}
	return loc, nil
}

// DeleteUserLocation removes the row of userID; deleting a missing row is not an error.
func (s *Store) DeleteUserLocation(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_locations WHERE user_id = ?`, strings.TrimSpace(userID))
	return storageErr("delete user location", err)
}

// DistinctPlaces returns each known (city, country) once, in the order they were first saved.
// Rows with an empty or "Unknown" city or country are skipped.
func (s *Store) DistinctPlaces(ctx context.Context) ([]domain.Place, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT city, country
		FROM user_locations
		WHERE TRIM(city) <> '' AND TRIM(country) <> ''
			AND LOWER(city) <> 'unknown' AND LOWER(country) <> 'unknown'
		GROUP BY city, country
		ORDER BY MIN(created_at), city`)
	if err != nil {
		return nil, storageErr("distinct places", err)
	}
	defer rows.Close()

	var out []domain.Place
	for rows.Next() {
		var p domain.Place
		if err := rows.Scan(&p.City, &p.Country); err != nil {
			return nil, storageErr("distinct places", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("distinct places", err)
	}
	return out, nil
}

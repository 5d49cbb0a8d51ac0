package store

import (
	"context"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

// SaveWeatherAlerts inserts alerts, ignoring ones already stored for the same title, city and start time.
// It returns how many rows were new.
func (s *Store) SaveWeatherAlerts(ctx context.Context, alerts []domain.WeatherAlert) (int, error) {
	if len(alerts) == 0 {
		return 0, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, storageErr("acquire connection", err)
	}
	defer conn.Close()

	now := s.clock()
	inserted := 0
	for _, a := range alerts {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO weather_alerts
				(alert_type, severity, title, description, latitude, longitude, city, country, source, start_time, end_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(title, city, start_time) DO NOTHING`,
			a.AlertType, a.Severity, a.Title, a.Description, a.Latitude, a.Longitude, a.City, a.Country, a.Source,
			a.StartTime.UTC(), a.EndTime.UTC(), now)
		if err != nil {
			return inserted, storageErr("save weather alert", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// ActiveAlertsNear returns alerts whose window has not ended, most severe first, then latest start.
func (s *Store) ActiveAlertsNear(ctx context.Context, lat, lng, radiusKm float64) ([]domain.WeatherAlert, error) {
	r, err := newRadius(lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}
	where, whereArgs := r.predicate()
	args := append([]any{s.clock()}, whereArgs...)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_type, severity, title, description, latitude, longitude, city, country, source, start_time, end_time
		FROM weather_alerts
		WHERE end_time > ? AND `+where+`
		ORDER BY CASE severity
			WHEN 'extreme' THEN 4
			WHEN 'severe' THEN 3
			WHEN 'moderate' THEN 2
			ELSE 1 END DESC,
			start_time DESC`, args...)
	if err != nil {
		return nil, storageErr("active alerts near", err)
	}
	defer rows.Close()

	out := []domain.WeatherAlert{}
	for rows.Next() {
		var a domain.WeatherAlert
		if err := rows.Scan(&a.ID, &a.AlertType, &a.Severity, &a.Title, &a.Description, &a.Latitude, &a.Longitude,
			&a.City, &a.Country, &a.Source, &a.StartTime, &a.EndTime); err != nil {
			return nil, storageErr("active alerts near", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("active alerts near", err)
	}
	return out, nil
}

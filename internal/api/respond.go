package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// list writes the {success, count, timestamp, <key>} envelope plus any extra fields.
func (s *Server) list(w http.ResponseWriter, key string, items any, count int, extra map[string]any) {
	body := map[string]any{
		"success":   true,
		"count":     count,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		key:         items,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) ok(w http.ResponseWriter, body map[string]any) {
	body["success"] = true
	body["timestamp"] = s.now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err *AppError) {
	if err.Code == ErrCodeInternal {
		s.log.ErrorObj("request failed", "api_error", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err.Error(),
		})
	}
	writeJSON(w, err.status(), errorEnvelope{Success: false, Error: err})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return &AppError{Code: ErrCodeValidation, Message: "invalid JSON body", Err: err}
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, *AppError) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validationError(key + " must be a non-negative integer")
	}
	return n, nil
}

func queryFloat(r *http.Request, key string) (float64, bool, *AppError) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, validationError(key + " must be a number")
	}
	return f, true, nil
}

// point reads the required lat/lng pair and an optional radius.
func point(r *http.Request, defRadius float64) (lat, lng, radius float64, appErr *AppError) {
	lat, okLat, appErr := queryFloat(r, "lat")
	if appErr != nil {
		return 0, 0, 0, appErr
	}
	lng, okLng, appErr := queryFloat(r, "lng")
	if appErr != nil {
		return 0, 0, 0, appErr
	}
	if !okLat || !okLng {
		return 0, 0, 0, validationError("lat and lng are required")
	}
	radius, okRadius, appErr := queryFloat(r, "radius")
	if appErr != nil {
		return 0, 0, 0, appErr
	}
	if !okRadius {
		radius = defRadius
	}
	return lat, lng, radius, nil
}

// Package api holds the helpers shared by the HTTP handlers: JSON responses,
// the error to status mapping and the date format accepted in request bodies.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError maps a service error to its status. Persistence and unknown
// failures are logged in full and reported as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errs.ErrNoMainWallet):
		http.Error(w, "no main wallet: load /api/v1/data once to provision it", http.StatusConflict)
	case errors.Is(err, errs.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Decode reads a JSON body into v and writes a 400 on failure.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

// Date accepts either 2006-01-02 or RFC 3339 in JSON and always encodes as
// RFC 3339.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	t, err := ParseDate(s)
	if err != nil {
		return err
	}

	d.Time = t

	return nil
}

// ParseDate parses a date-only or RFC 3339 timestamp. Date-only values are UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	return time.Parse(time.RFC3339, s)
}

// DateParam reads an optional date query parameter.
func DateParam(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	t, err := ParseDate(s)
	if err != nil {
		return nil, errs.Invalid(name, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}

	return &t, nil
}

// Time returns the wrapped time of an optional Date.
func Time(d *Date) *time.Time {
	if d == nil {
		return nil
	}

	return &d.Time
}

// TimeOrZero is Time without the pointer.
func TimeOrZero(d *Date) time.Time {
	if d == nil {
		return time.Time{}
	}

	return d.Time
}

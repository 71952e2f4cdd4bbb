package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/yourorg/appraisal-api/attom"
	"github.com/yourorg/appraisal-api/internal/store"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

// ErrBadRequest marks request validation failures.
var ErrBadRequest = errors.New("invalid input")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// Error writes {"error": code, "detail": detail} with status.
func Error(w http.ResponseWriter, req *http.Request, status int, code, detail string) {
	render.Status(req, status)
	render.JSON(w, req, map[string]any{"error": code, "detail": detail})
}

// Fail maps a handler error onto a status code and error body.
func Fail(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, valuation.ErrInvalidInput):
		Error(w, req, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, store.ErrReference):
		Error(w, req, http.StatusBadRequest, "invalid_reference", err.Error())
	case errors.Is(err, store.ErrNotFound):
		Error(w, req, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrConflict):
		Error(w, req, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, attom.ErrDailyLimitExceeded):
		Error(w, req, http.StatusTooManyRequests, "provider_quota", "daily quota reached")
	default:
		slog.ErrorContext(req.Context(), "request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		Error(w, req, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Decode reads a JSON body of at most 1MB into dst. Unknown fields are rejected.
func Decode(req *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// DecodeOrFail decodes the body and writes a 400 invalid_json on failure.
func DecodeOrFail(w http.ResponseWriter, req *http.Request, dst any) bool {
	if err := Decode(req, dst); err != nil {
		Error(w, req, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func queryInt(req *http.Request, key string, def int) int {
	v := req.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return i
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01"}

// parseDate accepts YYYY-MM-DD, RFC 3339 or YYYY-MM. Empty input returns nil.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, badRequest("%s must be a date (YYYY-MM-DD), got %q", field, s)
}

func nonNegative(field string, v float64) error {
	if v < 0 {
		return badRequest("%s must not be negative", field)
	}
	return nil
}

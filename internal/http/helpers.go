package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"peatracker/internal/core"
	"peatracker/internal/log"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeValidationError reports input the domain rejected.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Validation failed",
		log.FieldPath, r.URL.Path, log.FieldError, err.Error())
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// pathDate parses the named path segment as a YYYY-MM-DD date.
func pathDate(r *http.Request, name string) (core.Date, error) {
	return core.ParseDate(r.PathValue(name))
}

// queryRange parses the required start and end query parameters.
func queryRange(r *http.Request) (core.Date, core.Date, error) {
	q := r.URL.Query()
	start, err := core.ParseDate(strings.TrimSpace(q.Get("start")))
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("start: %w", err)
	}
	end, err := core.ParseDate(strings.TrimSpace(q.Get("end")))
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

// queryYearMonth extracts year and month, defaulting to the month of today.
func queryYearMonth(r *http.Request, today core.Date) (year, month int, err error) {
	year, month = today.Year(), today.Month()

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil || month < 1 || month > 12 {
			return 0, 0, fmt.Errorf("invalid month %q", v)
		}
	}
	return year, month, nil
}

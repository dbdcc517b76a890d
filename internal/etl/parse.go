package etl

import (
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}

var timeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339}

// ParseDate parses a date cell against the layouts the trackers publish.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTime parses a timestamp cell, falling back to plain date layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return ParseDate(s)
}

// parseInt parses a strictly integral cell.
func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

// parseNumber parses a numeric cell. Boolean literals count as numbers and
// coerce to 1/0, which covers flag-like columns published as TRUE/FALSE.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	switch strings.ToLower(s) {
	case "true", "t", "yes":
		return 1, true
	case "false", "f", "no":
		return 0, true
	}
	return 0, false
}

// ParseFloat64Or parses a numeric cell, returning def if parsing fails.
func ParseFloat64Or(s string, def float64) float64 {
	if v, ok := parseNumber(s); ok {
		return v
	}
	return def
}

// ParseInt64Or parses an integral cell, tolerating float-formatted values
// ("633.0"), returning def if parsing fails.
func ParseInt64Or(s string, def int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return def
}

// sanitizeUTF8 replaces invalid UTF-8 byte sequences (e.g., Latin-1 data)
// with empty strings so they cannot poison the columnar output.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

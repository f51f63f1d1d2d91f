package models

import (
	"strconv"
)

// ─── shared formatting helpers (package-private) ────────────────────────

func itoa64(v int64) string { return strconv.FormatInt(v, 10) }
func ftoa(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// ─── shared parsing helpers ─────────────────────────────────────────────

func atoi64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
func atof(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// CSVRowWriter is the interface every loggable model must satisfy.
type CSVRowWriter interface {
	CSVHeader() []string
	CSVRow() []string
}

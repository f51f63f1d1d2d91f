package models

import (
	"strings"

	"github.com/golang/geo/r3"
)

// LinearRecord is the fusion output for one sample: gravity-compensated
// acceleration plus the fused orientation it was computed with.
type LinearRecord struct {
	Generation  int64     `json:"generation"`
	TimestampNs int64     `json:"timestamp_ns"`
	Linear      r3.Vector `json:"linear_acceleration"` // m/s²
	Azimuth     float64   `json:"azimuth"`             // rad
	Pitch       float64   `json:"pitch"`               // rad
	Roll        float64   `json:"roll"`                // rad
}

// Fields returns the exported text columns in fixed order:
//
//	generation timestamp linear_x linear_y linear_z
func (r *LinearRecord) Fields() []string {
	return []string{
		itoa64(r.Generation),
		itoa64(r.TimestampNs),
		ftoa(r.Linear.X, 6),
		ftoa(r.Linear.Y, 6),
		ftoa(r.Linear.Z, 6),
	}
}

// String is the single-space separated text form of Fields.
func (r LinearRecord) String() string {
	return strings.Join(r.Fields(), " ")
}

// CSVHeader returns the CSV columns; orientation follows the text columns.
func (LinearRecord) CSVHeader() []string {
	return []string{
		"generation", "timestamp_ns",
		"linear_x", "linear_y", "linear_z",
		"azimuth", "pitch", "roll",
	}
}

func (r *LinearRecord) CSVRow() []string {
	return append(r.Fields(),
		ftoa(r.Azimuth, 6), ftoa(r.Pitch, 6), ftoa(r.Roll, 6))
}

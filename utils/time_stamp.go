package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NowNano returns the current time as nanoseconds since Unix epoch.
func NowNano() int64 {
	return time.Now().UnixNano()
}

// NanoToDuration converts a nanosecond timestamp delta to a time.Duration.
func NanoToDuration(ns int64) time.Duration {
	return time.Duration(ns)
}

// SessionName returns a unique session directory name:
//
//	<prefix>_YYYYMMDD_HHMMSS_<8 hex chars>
//
// The uuid suffix keeps two sessions started within the same second apart.
func SessionName(prefix string) string {
	id := uuid.NewString()
	return fmt.Sprintf("%s_%s_%s", prefix, time.Now().Format("20060102_150405"), id[:8])
}

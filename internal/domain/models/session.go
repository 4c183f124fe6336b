package models

import "time"

// Session is the short-lived credential pair captured from the booking
// backend's warm-up response. It is scoped to a single aggregation run and
// must never be persisted or logged in full.
type Session struct {
	CSRFToken  string
	SessionID  string
	AcquiredAt time.Time
}

package ports

import (
	"context"
	"time"

	"github.com/ggonzalez94/court-reservations/internal/domain/models"
)

// VenueRegistry lists the partner venues, in a stable order that is
// preserved all the way through aggregation.
type VenueRegistry interface {
	Venues(ctx context.Context) ([]models.Venue, error)
}

// SessionProvider performs the warm-up request against the booking backend
// and captures the credential cookies. The returned session is owned by one
// aggregation run and must be discarded after use.
type SessionProvider interface {
	Acquire(ctx context.Context) (models.Session, error)
}

// ScheduleSource fetches the schedule of one venue for one calendar day and
// duration. Implementations must require a session acquired first.
type ScheduleSource interface {
	GetTimes(ctx context.Context, session models.Session, establishmentID int64, day time.Time, durationMinutes int) ([]models.ScheduleEntry, error)
}

// SnapshotCache keys aggregate snapshots by calendar day and duration.
// Get returns domain errors.ErrSnapshotNotFound on a miss or expired entry.
type SnapshotCache interface {
	Get(ctx context.Context, day time.Time, durationMinutes int) (models.AggregateSnapshot, error)
	Set(ctx context.Context, day time.Time, durationMinutes int, snapshot models.AggregateSnapshot, ttl time.Duration) error
}

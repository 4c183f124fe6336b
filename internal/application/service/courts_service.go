package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	derr "github.com/ggonzalez94/court-reservations/internal/domain/errors"
	"github.com/ggonzalez94/court-reservations/internal/domain/models"
	"github.com/ggonzalez94/court-reservations/internal/domain/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultMaxConcurrentFetches = 4

type CourtsService struct {
	log                  *zap.Logger
	registry             ports.VenueRegistry
	sessions             ports.SessionProvider
	source               ports.ScheduleSource
	cache                ports.SnapshotCache
	cacheTTL             time.Duration
	maxConcurrentFetches int
}

func NewCourtsService(log *zap.Logger, registry ports.VenueRegistry, sessions ports.SessionProvider, source ports.ScheduleSource, cache ports.SnapshotCache, cacheTTL time.Duration, maxConcurrentFetches int) *CourtsService {
	if log == nil {
		log = zap.NewNop()
	}
	if maxConcurrentFetches <= 0 {
		maxConcurrentFetches = defaultMaxConcurrentFetches
	}

	return &CourtsService{
		log:                  log,
		registry:             registry,
		sessions:             sessions,
		source:               source,
		cache:                cache,
		cacheTTL:             cacheTTL,
		maxConcurrentFetches: maxConcurrentFetches,
	}
}

// GetAvailableCourts answers which venues have open padel courts starting
// exactly at the requested instant. The per-venue schedules for the
// instant's calendar day are served from cache when fresh; otherwise a
// session is acquired and every registered venue is queried.
func (s *CourtsService) GetAvailableCourts(ctx context.Context, instant time.Time, durationMinutes int) ([]models.CourtAvailability, error) {
	const op = "service.GetAvailableCourts"
	tracer := otel.Tracer("courts-api/service")
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	local := instant.In(models.BusinessLocation())
	span.SetAttributes(
		attribute.String("courts.date", local.Format("2006-01-02")),
		attribute.Int("courts.duration_minutes", durationMinutes),
	)

	logger := s.log.With(
		zap.String("op", op),
		zap.Time("instant", local),
		zap.Int("duration_minutes", durationMinutes),
	)

	snapshot, ok := s.cachedSnapshot(ctx, logger, span, local, durationMinutes)
	if !ok {
		collected, err := s.collectSnapshot(ctx, logger, span, local, durationMinutes)
		if err != nil {
			span.SetStatus(otelcodes.Error, "snapshot collection failed")
			return nil, err
		}
		snapshot = collected
	}

	results := SelectAvailableAtTime(snapshot, local)
	span.SetAttributes(attribute.Int("courts.results_count", len(results)))
	span.SetStatus(otelcodes.Ok, "ok")
	logger.Info("availability resolved", zap.Int("results_count", len(results)))
	return results, nil
}

func (s *CourtsService) cachedSnapshot(ctx context.Context, logger *zap.Logger, span trace.Span, day time.Time, durationMinutes int) (models.AggregateSnapshot, bool) {
	if s.cache == nil {
		return models.AggregateSnapshot{}, false
	}

	snapshot, err := s.cache.Get(ctx, day, durationMinutes)
	if err == nil {
		logger.Info("snapshot cache hit")
		span.AddEvent("snapshot.cache.hit")
		return snapshot, true
	}
	if errors.Is(err, derr.ErrSnapshotNotFound) {
		logger.Info("snapshot cache miss")
		span.AddEvent("snapshot.cache.miss")
		return models.AggregateSnapshot{}, false
	}

	// A broken cache only makes the request slower, never unavailable.
	logger.Warn("snapshot cache read failed", zap.Error(err))
	span.RecordError(err)
	return models.AggregateSnapshot{}, false
}

func (s *CourtsService) collectSnapshot(ctx context.Context, logger *zap.Logger, span trace.Span, day time.Time, durationMinutes int) (models.AggregateSnapshot, error) {
	venues, err := s.registry.Venues(ctx)
	if err != nil {
		logger.Error("failed to load venue registry", zap.Error(err))
		span.RecordError(err)
		return models.AggregateSnapshot{}, fmt.Errorf("load venue registry: %w", err)
	}
	if len(venues) == 0 {
		return models.AggregateSnapshot{}, derr.ErrNoVenues
	}

	session, err := s.sessions.Acquire(ctx)
	if err != nil {
		logger.Error("session acquisition failed", zap.Error(err))
		span.RecordError(err)
		return models.AggregateSnapshot{}, fmt.Errorf("acquire session: %w", err)
	}
	logger.Info("session acquired", zap.Int("csrf_token_len", len(session.CSRFToken)))

	snapshot := s.fanOut(ctx, span, session, venues, day, durationMinutes)

	// A run cut short by cancellation holds partial venue data; it is
	// neither served nor cached.
	if err := ctx.Err(); err != nil {
		logger.Warn("aggregation aborted", zap.Error(err))
		span.RecordError(err)
		return models.AggregateSnapshot{}, err
	}

	if s.cache != nil && snapshot.HasSchedule() {
		if err := s.cache.Set(ctx, day, durationMinutes, snapshot, s.cacheTTL); err != nil {
			logger.Warn("snapshot cache write failed", zap.Error(err))
			span.RecordError(err)
		}
	}

	return snapshot, nil
}

// fanOut queries every venue with bounded concurrency. Each goroutine
// writes only its own slot of the pre-sized slice, so the output keeps
// registry order and no venue failure touches its siblings.
func (s *CourtsService) fanOut(ctx context.Context, span trace.Span, session models.Session, venues []models.Venue, day time.Time, durationMinutes int) models.AggregateSnapshot {
	snapshots := make([]models.VenueSnapshot, len(venues))

	sem := make(chan struct{}, s.maxConcurrentFetches)
	var wg sync.WaitGroup

	for i, venue := range venues {
		snapshots[i] = models.VenueSnapshot{
			EstablishmentID: venue.EstablishmentID,
			Name:            venue.Name,
			BookingLink:     venue.BookingLink,
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, venue models.Venue) {
			defer wg.Done()
			defer func() { <-sem }()

			entries, err := s.source.GetTimes(ctx, session, venue.EstablishmentID, day, durationMinutes)
			if err != nil {
				s.log.Warn("venue fetch failed",
					zap.Int64("establishment_id", venue.EstablishmentID),
					zap.String("venue", venue.Name),
					zap.Error(err),
				)
				span.AddEvent(
					"snapshot.venue_error",
					trace.WithAttributes(attribute.Int64("courts.establishment_id", venue.EstablishmentID)),
				)
				return
			}
			snapshots[idx].Schedule = entries
		}(i, venue)
	}

	wg.Wait()
	return models.AggregateSnapshot{Venues: snapshots}
}

// SelectAvailableAtTime projects a snapshot onto the exact requested
// instant. Only schedule entries whose start equals the instant are
// considered; a request landing inside a window but not at its start is
// treated as unavailable. Venues without a matching entry are omitted.
func SelectAvailableAtTime(snapshot models.AggregateSnapshot, instant time.Time) []models.CourtAvailability {
	results := make([]models.CourtAvailability, 0, len(snapshot.Venues))
	for _, venue := range snapshot.Venues {
		for _, entry := range venue.Schedule {
			if !entry.Start.Equal(instant) {
				continue
			}

			count := 0
			for _, field := range entry.Fields {
				if field.Bookable() {
					count++
				}
			}
			results = append(results, models.CourtAvailability{
				EstablishmentID:         venue.EstablishmentID,
				Name:                    venue.Name,
				NumberOfAvailableCourts: count,
				ReservationLink:         venue.BookingLink,
			})
		}
	}
	return results
}

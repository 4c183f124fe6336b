package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	derr "github.com/ggonzalez94/court-reservations/internal/domain/errors"
	"github.com/ggonzalez94/court-reservations/internal/domain/models"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	venues []models.Venue
	err    error
	calls  int
}

func (r *fakeRegistry) Venues(ctx context.Context) ([]models.Venue, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.venues, nil
}

type fakeSessions struct {
	session models.Session
	err     error
	calls   int
}

func (s *fakeSessions) Acquire(ctx context.Context) (models.Session, error) {
	s.calls++
	if s.err != nil {
		return models.Session{}, s.err
	}
	return s.session, nil
}

type fakeSource struct {
	mu      sync.Mutex
	entries map[int64][]models.ScheduleEntry
	errs    map[int64]error
	calls   []int64
}

func (f *fakeSource) GetTimes(ctx context.Context, session models.Session, establishmentID int64, day time.Time, durationMinutes int) ([]models.ScheduleEntry, error) {
	f.mu.Lock()
	f.calls = append(f.calls, establishmentID)
	f.mu.Unlock()

	if err := f.errs[establishmentID]; err != nil {
		return nil, err
	}
	return f.entries[establishmentID], nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type cacheRecord struct {
	snapshot  models.AggregateSnapshot
	expiresAt time.Time
}

type fakeCache struct {
	mu       sync.Mutex
	stored   map[string]cacheRecord
	now      func() time.Time
	getErr   error
	setErr   error
	setCalls int
	lastTTL  time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: map[string]cacheRecord{}, now: time.Now}
}

func cacheKey(day time.Time, durationMinutes int) string {
	return fmt.Sprintf("%s:%d", day.In(models.BusinessLocation()).Format("2006-01-02"), durationMinutes)
}

func (c *fakeCache) seed(day time.Time, durationMinutes int, snapshot models.AggregateSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[cacheKey(day, durationMinutes)] = cacheRecord{snapshot: snapshot}
}

func (c *fakeCache) Get(ctx context.Context, day time.Time, durationMinutes int) (models.AggregateSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return models.AggregateSnapshot{}, c.getErr
	}
	record, ok := c.stored[cacheKey(day, durationMinutes)]
	if !ok {
		return models.AggregateSnapshot{}, derr.ErrSnapshotNotFound
	}
	if !record.expiresAt.IsZero() && c.now().After(record.expiresAt) {
		return models.AggregateSnapshot{}, derr.ErrSnapshotNotFound
	}
	return record.snapshot, nil
}

func (c *fakeCache) Set(ctx context.Context, day time.Time, durationMinutes int, snapshot models.AggregateSnapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	c.lastTTL = ttl
	if c.setErr != nil {
		return c.setErr
	}
	c.stored[cacheKey(day, durationMinutes)] = cacheRecord{
		snapshot:  snapshot,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func testVenues() []models.Venue {
	return []models.Venue{
		{EstablishmentID: 479, Name: "PadelBo", BookingLink: "https://clubs.reva.la/club-padelbo"},
		{EstablishmentID: 496, Name: "Costanera Sur", BookingLink: "https://clubs.reva.la/costanera-padel-club-sur"},
		{EstablishmentID: 489, Name: "Costanera Norte", BookingLink: "https://clubs.reva.la/costanera-padel-club-norte"},
		{EstablishmentID: 498, Name: "Padel Lounge", BookingLink: "https://clubs.reva.la/padel-lounge"},
		{EstablishmentID: 510, Name: "Santa Cruz Padel Club", BookingLink: "https://clubs.reva.la/santa-cruz-padel-club"},
	}
}

func entryAt(start time.Time, fields ...models.FieldSlot) models.ScheduleEntry {
	return models.ScheduleEntry{Start: start, End: start.Add(time.Hour), Fields: fields}
}

func TestGetAvailableCourts_CacheHitSkipsUpstream(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	cache := newFakeCache()
	cache.seed(instant, 60, models.AggregateSnapshot{
		Venues: []models.VenueSnapshot{
			{
				EstablishmentID: 479,
				Name:            "PadelBo",
				BookingLink:     "https://clubs.reva.la/club-padelbo",
				Schedule: []models.ScheduleEntry{
					entryAt(instant, models.FieldSlot{FieldID: 1, Size: "doble", Available: true}),
				},
			},
		},
	})

	registry := &fakeRegistry{venues: testVenues()}
	sessions := &fakeSessions{}
	source := &fakeSource{}
	svc := NewCourtsService(zap.NewNop(), registry, sessions, source, cache, 5*time.Minute, 4)

	results, err := svc.GetAvailableCourts(context.Background(), instant, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].EstablishmentID != 479 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if sessions.calls != 0 {
		t.Fatalf("session provider should not run on cache hit, calls=%d", sessions.calls)
	}
	if source.callCount() != 0 {
		t.Fatalf("schedule source should not run on cache hit, calls=%d", source.callCount())
	}
	if registry.calls != 0 {
		t.Fatalf("registry should not be consulted on cache hit, calls=%d", registry.calls)
	}
}

func TestGetAvailableCourts_CollectsFiltersAndCaches(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	venues := testVenues()

	source := &fakeSource{
		entries: map[int64][]models.ScheduleEntry{
			479: {
				entryAt(instant,
					models.FieldSlot{FieldID: 1, Size: "doble", Available: true},
					models.FieldSlot{FieldID: 2, Size: "doble", Available: true},
					models.FieldSlot{FieldID: 3, Size: "doble", Available: true},
					models.FieldSlot{FieldID: 4, Size: "doble", Available: false},
				),
			},
		},
	}
	cache := newFakeCache()
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: venues}, &fakeSessions{}, source, cache, 5*time.Minute, 4)

	results, err := svc.GetAvailableCourts(context.Background(), instant, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one venue with availability, got %d", len(results))
	}
	got := results[0]
	if got.EstablishmentID != 479 || got.Name != "PadelBo" {
		t.Fatalf("unexpected venue: %+v", got)
	}
	if got.NumberOfAvailableCourts != 3 {
		t.Fatalf("unexpected court count: %d", got.NumberOfAvailableCourts)
	}
	if got.ReservationLink != "https://clubs.reva.la/club-padelbo" {
		t.Fatalf("unexpected reservation link: %s", got.ReservationLink)
	}
	if source.callCount() != len(venues) {
		t.Fatalf("expected one fetch per venue, got %d", source.callCount())
	}
	if cache.setCalls != 1 {
		t.Fatalf("expected one cache write, got %d", cache.setCalls)
	}
	if cache.lastTTL != 5*time.Minute {
		t.Fatalf("unexpected ttl: %s", cache.lastTTL)
	}

	known := map[int64]bool{}
	for _, v := range venues {
		known[v.EstablishmentID] = true
	}
	for _, r := range results {
		if !known[r.EstablishmentID] {
			t.Fatalf("result references unknown establishment %d", r.EstablishmentID)
		}
	}
}

func TestGetAvailableCourts_PartialVenueFailure(t *testing.T) {
	instant := time.Date(2024, 6, 1, 18, 0, 0, 0, models.BusinessLocation())

	source := &fakeSource{
		entries: map[int64][]models.ScheduleEntry{
			496: {entryAt(instant, models.FieldSlot{FieldID: 9, Size: "doble", Available: true})},
		},
		errs: map[int64]error{
			479: errors.New("connection reset"),
		},
	}
	cache := newFakeCache()
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: testVenues()}, &fakeSessions{}, source, cache, 5*time.Minute, 4)

	results, err := svc.GetAvailableCourts(context.Background(), instant, 60)
	if err != nil {
		t.Fatalf("one venue failing must not fail the request: %v", err)
	}
	if len(results) != 1 || results[0].EstablishmentID != 496 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if cache.setCalls != 1 {
		t.Fatalf("snapshot with surviving schedules should be cached, setCalls=%d", cache.setCalls)
	}

	cached := cache.stored[cacheKey(instant, 60)].snapshot
	if len(cached.Venues) != len(testVenues()) {
		t.Fatalf("snapshot must keep a slot per venue, got %d", len(cached.Venues))
	}
	if cached.Venues[0].EstablishmentID != 479 || len(cached.Venues[0].Schedule) != 0 {
		t.Fatalf("failed venue should have an empty schedule: %+v", cached.Venues[0])
	}
}

func TestGetAvailableCourts_EmptyRoundNotCached(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	source := &fakeSource{}
	cache := newFakeCache()
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: testVenues()}, &fakeSessions{}, source, cache, 5*time.Minute, 4)

	results, err := svc.GetAvailableCourts(context.Background(), instant, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
	if cache.setCalls != 0 {
		t.Fatalf("fully empty round must not be cached, setCalls=%d", cache.setCalls)
	}
}

func TestGetAvailableCourts_CacheReadFailureFallsBackToLive(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	source := &fakeSource{
		entries: map[int64][]models.ScheduleEntry{
			479: {entryAt(instant, models.FieldSlot{FieldID: 1, Size: "doble", Available: true})},
		},
	}
	cache := newFakeCache()
	cache.getErr = errors.New("redis: connection refused")
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: testVenues()}, &fakeSessions{}, source, cache, 5*time.Minute, 4)

	results, err := svc.GetAvailableCourts(context.Background(), instant, 60)
	if err != nil {
		t.Fatalf("cache outage must degrade, not fail: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestGetAvailableCourts_SessionFailureIsFatal(t *testing.T) {
	sessions := &fakeSessions{err: fmt.Errorf("%w: warm-up status: 503", derr.ErrSessionAcquisition)}
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: testVenues()}, sessions, &fakeSource{}, newFakeCache(), 5*time.Minute, 4)

	_, err := svc.GetAvailableCourts(context.Background(), time.Now().Add(time.Hour), 60)
	if !errors.Is(err, derr.ErrSessionAcquisition) {
		t.Fatalf("expected ErrSessionAcquisition, got %v", err)
	}
}

func TestGetAvailableCourts_NoVenues(t *testing.T) {
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{}, &fakeSessions{}, &fakeSource{}, newFakeCache(), 5*time.Minute, 4)

	_, err := svc.GetAvailableCourts(context.Background(), time.Now().Add(time.Hour), 60)
	if !errors.Is(err, derr.ErrNoVenues) {
		t.Fatalf("expected ErrNoVenues, got %v", err)
	}
}

func TestGetAvailableCourts_SameDayDifferentInstantReusesSnapshot(t *testing.T) {
	morning := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	evening := time.Date(2024, 6, 1, 19, 0, 0, 0, models.BusinessLocation())

	source := &fakeSource{
		entries: map[int64][]models.ScheduleEntry{
			479: {
				entryAt(morning, models.FieldSlot{FieldID: 1, Size: "doble", Available: true}),
				entryAt(evening,
					models.FieldSlot{FieldID: 1, Size: "doble", Available: true},
					models.FieldSlot{FieldID: 2, Size: "doble", Available: true},
				),
			},
		},
	}
	cache := newFakeCache()
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: testVenues()}, &fakeSessions{}, source, cache, 5*time.Minute, 4)

	first, err := svc.GetAvailableCourts(context.Background(), morning, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 1 || first[0].NumberOfAvailableCourts != 1 {
		t.Fatalf("unexpected morning results: %+v", first)
	}

	fetchesAfterFirst := source.callCount()
	second, err := svc.GetAvailableCourts(context.Background(), evening, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.callCount() != fetchesAfterFirst {
		t.Fatalf("second request on the same day must reuse the snapshot, fetches=%d", source.callCount())
	}
	if len(second) != 1 || second[0].NumberOfAvailableCourts != 2 {
		t.Fatalf("unexpected evening results: %+v", second)
	}
}

type blockingSource struct{}

func (b *blockingSource) GetTimes(ctx context.Context, session models.Session, establishmentID int64, day time.Time, durationMinutes int) ([]models.ScheduleEntry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGetAvailableCourts_RequestTimeoutFailsWholeRequest(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	cache := newFakeCache()
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: testVenues()}, &fakeSessions{}, &blockingSource{}, cache, 5*time.Minute, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results, err := svc.GetAvailableCourts(ctx, instant, 60)
	if err == nil {
		t.Fatalf("timed-out aggregation must fail the whole request, got %+v", results)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if cache.setCalls != 0 {
		t.Fatalf("a truncated snapshot must not be cached, setCalls=%d", cache.setCalls)
	}
}

func TestGetAvailableCourts_ExpiredSnapshotRecomputed(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	current := time.Date(2024, 6, 1, 6, 0, 0, 0, models.BusinessLocation())

	source := &fakeSource{
		entries: map[int64][]models.ScheduleEntry{
			479: {entryAt(instant, models.FieldSlot{FieldID: 1, Size: "doble", Available: true})},
		},
	}
	cache := newFakeCache()
	cache.now = func() time.Time { return current }
	svc := NewCourtsService(zap.NewNop(), &fakeRegistry{venues: testVenues()}, &fakeSessions{}, source, cache, 5*time.Minute, 4)

	if _, err := svc.GetAvailableCourts(context.Background(), instant, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetchesPerRound := source.callCount()

	current = current.Add(4 * time.Minute)
	if _, err := svc.GetAvailableCourts(context.Background(), instant, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.callCount() != fetchesPerRound {
		t.Fatalf("fresh snapshot must be served from cache, fetches=%d", source.callCount())
	}

	current = current.Add(2 * time.Minute)
	if _, err := svc.GetAvailableCourts(context.Background(), instant, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.callCount() != 2*fetchesPerRound {
		t.Fatalf("expired snapshot must trigger a full recompute, fetches=%d", source.callCount())
	}
}

func TestSelectAvailableAtTime_ExactInstantOnly(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	snapshot := models.AggregateSnapshot{
		Venues: []models.VenueSnapshot{
			{
				EstablishmentID: 479,
				Schedule: []models.ScheduleEntry{
					entryAt(instant.Add(-time.Hour), models.FieldSlot{FieldID: 1, Size: "doble", Available: true}),
				},
			},
		},
	}

	// The request lands inside the entry's window but not at its start.
	results := SelectAvailableAtTime(snapshot, instant.Add(-30*time.Minute))
	if len(results) != 0 {
		t.Fatalf("containment must not match, got %+v", results)
	}

	results = SelectAvailableAtTime(snapshot, instant.Add(-time.Hour))
	if len(results) != 1 {
		t.Fatalf("exact start must match, got %+v", results)
	}
}

func TestSelectAvailableAtTime_ExcludedCategoryNeverCounted(t *testing.T) {
	instant := time.Date(2024, 6, 1, 7, 0, 0, 0, models.BusinessLocation())
	snapshot := models.AggregateSnapshot{
		Venues: []models.VenueSnapshot{
			{
				EstablishmentID: 479,
				Schedule: []models.ScheduleEntry{
					entryAt(instant,
						models.FieldSlot{FieldID: 1, Size: "doble", Available: true},
						models.FieldSlot{FieldID: 2, Size: "futbol", Available: true},
					),
				},
			},
		},
	}

	results := SelectAvailableAtTime(snapshot, instant)
	if len(results) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].NumberOfAvailableCourts != 1 {
		t.Fatalf("football field must not be counted, got %d", results[0].NumberOfAvailableCourts)
	}
}

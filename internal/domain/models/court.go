package models

import (
	"strings"
	"time"
)

// Size tag the facility operator uses for the five-a-side football fields
// that share the same schedule feed as the padel courts.
const footballSizeTag = "futbol"

type Venue struct {
	EstablishmentID int64  `json:"establishment_id"`
	Name            string `json:"name"`
	BookingLink     string `json:"booking_link"`
}

type FieldSlot struct {
	FieldID   int64  `json:"field_id"`
	Size      string `json:"size"`
	Available bool   `json:"available"`
}

// IsExcludedCategory reports whether a size tag marks a non-padel field.
func IsExcludedCategory(size string) bool {
	return strings.EqualFold(strings.TrimSpace(size), footballSizeTag)
}

// Bookable reports whether the field counts toward padel availability.
func (f FieldSlot) Bookable() bool {
	return f.Available && !IsExcludedCategory(f.Size)
}

type ScheduleEntry struct {
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Fields []FieldSlot `json:"fields"`
}

type VenueSnapshot struct {
	EstablishmentID int64           `json:"establishment_id"`
	Name            string          `json:"name"`
	BookingLink     string          `json:"booking_link"`
	Schedule        []ScheduleEntry `json:"schedule"`
}

// AggregateSnapshot holds one aggregation round across every registered
// venue for a single (date, duration) pair. It is the unit stored in cache.
type AggregateSnapshot struct {
	Venues []VenueSnapshot `json:"venues"`
}

// HasSchedule reports whether at least one venue came back with entries.
// A round where every venue is empty is treated as a failed fetch and is
// not worth caching.
func (s AggregateSnapshot) HasSchedule() bool {
	for _, venue := range s.Venues {
		if len(venue.Schedule) > 0 {
			return true
		}
	}
	return false
}

type CourtAvailability struct {
	EstablishmentID         int64
	Name                    string
	NumberOfAvailableCourts int
	ReservationLink         string
}

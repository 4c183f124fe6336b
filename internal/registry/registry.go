package registry

import (
	"context"

	"github.com/ggonzalez94/court-reservations/internal/domain/models"
)

const clubsBaseURL = "https://clubs.reva.la"

// Static serves the embedded partner venue list. It is the default
// registry when no database is configured.
type Static struct {
	venues []models.Venue
}

func NewStatic() *Static {
	return &Static{venues: defaultVenues()}
}

func NewStaticWithVenues(venues []models.Venue) *Static {
	return &Static{venues: venues}
}

func (s *Static) Venues(_ context.Context) ([]models.Venue, error) {
	venues := make([]models.Venue, len(s.venues))
	copy(venues, s.venues)
	return venues, nil
}

func defaultVenues() []models.Venue {
	return []models.Venue{
		{EstablishmentID: 479, Name: "PadelBo", BookingLink: clubsBaseURL + "/club-padelbo"},
		{EstablishmentID: 496, Name: "Costanera Sur", BookingLink: clubsBaseURL + "/costanera-padel-club-sur"},
		{EstablishmentID: 489, Name: "Costanera Norte", BookingLink: clubsBaseURL + "/costanera-padel-club-norte"},
		{EstablishmentID: 498, Name: "Padel Lounge", BookingLink: clubsBaseURL + "/padel-lounge"},
		{EstablishmentID: 510, Name: "Santa Cruz Padel Club", BookingLink: clubsBaseURL + "/santa-cruz-padel-club"},
		{EstablishmentID: 518, Name: "Costanera Central", BookingLink: clubsBaseURL + "/costanera-padel-club-central"},
		{EstablishmentID: 519, Name: "Cape Padel", BookingLink: clubsBaseURL + "/cape-padel"},
	}
}

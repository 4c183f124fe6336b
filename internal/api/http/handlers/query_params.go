package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ggonzalez94/court-reservations/internal/domain/models"
)

const minDurationMinutes = 60

// parseCourtsQuery validates the date and duration query parameters and
// fills in their defaults: the next top-of-hour in the business timezone
// and 60 minutes.
func parseCourtsQuery(r *http.Request, now time.Time) (time.Time, int, []validationDetail) {
	var details []validationDetail

	instant := nextTopOfHour(now)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		switch {
		case err != nil:
			details = append(details, validationDetail{
				Field:   "date",
				Message: "must be a valid ISO-8601 timestamp",
			})
		case parsed.Before(now):
			details = append(details, validationDetail{
				Field:   "date",
				Message: "must not be in the past",
			})
		default:
			instant = parsed.In(models.BusinessLocation())
		}
	}

	duration := minDurationMinutes
	if raw := strings.TrimSpace(r.URL.Query().Get("duration")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			details = append(details, validationDetail{
				Field:   "duration",
				Message: "must be an integer number of minutes",
			})
		case parsed < minDurationMinutes:
			details = append(details, validationDetail{
				Field:   "duration",
				Message: "must be at least 60 minutes",
			})
		default:
			duration = parsed
		}
	}

	return instant, duration, details
}

func nextTopOfHour(now time.Time) time.Time {
	local := now.In(models.BusinessLocation())
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, local.Location()).Add(time.Hour)
}

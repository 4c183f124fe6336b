package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	derr "github.com/ggonzalez94/court-reservations/internal/domain/errors"
	"github.com/ggonzalez94/court-reservations/internal/domain/models"
	"go.uber.org/zap"
)

type CourtsFinder interface {
	GetAvailableCourts(ctx context.Context, instant time.Time, durationMinutes int) ([]models.CourtAvailability, error)
}

type CourtsHandler struct {
	log     *zap.Logger
	courts  CourtsFinder
	timeout time.Duration
	now     func() time.Time
}

type getCourtsResponse struct {
	Date     string          `json:"date"`
	Duration int             `json:"duration"`
	Courts   []courtResponse `json:"courts"`
}

type courtResponse struct {
	EstablishmentID         int64  `json:"establishmentId"`
	Name                    string `json:"name"`
	NumberOfAvailableCourts int    `json:"numberOfAvailableCourts"`
	ReservationLink         string `json:"reservationLink"`
}

func NewCourtsHandler(log *zap.Logger, courts CourtsFinder, timeout time.Duration) *CourtsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}

	return &CourtsHandler{
		log:     log,
		courts:  courts,
		timeout: timeout,
		now:     time.Now,
	}
}

func (h *CourtsHandler) GetCourts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	instant, duration, details := parseCourtsQuery(r, h.now())
	if len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	availabilities, err := h.courts.GetAvailableCourts(ctx, instant, duration)
	if err != nil {
		h.log.Error("get available courts failed", zap.Error(err))
		writeError(w, mapHTTPStatus(err), "could not retrieve court availability")
		return
	}

	courts := make([]courtResponse, 0, len(availabilities))
	for _, availability := range availabilities {
		courts = append(courts, courtResponse{
			EstablishmentID:         availability.EstablishmentID,
			Name:                    availability.Name,
			NumberOfAvailableCourts: availability.NumberOfAvailableCourts,
			ReservationLink:         availability.ReservationLink,
		})
	}

	writeJSON(w, http.StatusOK, getCourtsResponse{
		Date:     instant.Format(time.RFC3339),
		Duration: duration,
		Courts:   courts,
	})
}

func mapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, derr.ErrSessionAcquisition), errors.Is(err, derr.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

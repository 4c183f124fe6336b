package mappers

import (
	"fmt"
	"time"

	"github.com/ggonzalez94/court-reservations/internal/domain/models"
	"github.com/ggonzalez94/court-reservations/internal/infrastructures/reva/dto"
)

// ToScheduleEntries maps the upstream get-times payload to domain schedule
// entries, anchoring zoneless timestamps in the business timezone and
// dropping the football fields that share the facility's schedule feed.
// Blocks with an unparseable window are skipped rather than failing the
// whole venue.
func ToScheduleEntries(blocks []dto.TimeBlock) []models.ScheduleEntry {
	entries := make([]models.ScheduleEntry, 0, len(blocks))
	for _, block := range blocks {
		start, err := parseScheduleTime(block.Start)
		if err != nil {
			continue
		}
		end, err := parseScheduleTime(block.End)
		if err != nil {
			continue
		}

		fields := make([]models.FieldSlot, 0, len(block.Fields))
		for _, field := range block.Fields {
			if models.IsExcludedCategory(field.Size) {
				continue
			}
			fields = append(fields, models.FieldSlot{
				FieldID:   field.FieldID,
				Size:      field.Size,
				Available: field.Available,
			})
		}

		entries = append(entries, models.ScheduleEntry{
			Start:  start,
			End:    end,
			Fields: fields,
		})
	}

	return entries
}

func parseScheduleTime(value string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, value, models.BusinessLocation())
		if err == nil {
			return t, nil
		}
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(models.BusinessLocation()), nil
	}

	return time.Time{}, fmt.Errorf("unsupported datetime format: %q", value)
}

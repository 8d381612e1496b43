package handlers

import (
	"time"

	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/timezone"
)

// locationFor resolves the provider's display timezone. Scheduling itself is
// done in UTC; the timezone only shapes date parsing on list endpoints.
func locationFor(provider *models.Provider) *time.Location {
	if provider != nil {
		return timezone.Location(provider.Timezone)
	}
	return time.UTC
}

func parseDateIn(provider *models.Provider, dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, locationFor(provider))
}

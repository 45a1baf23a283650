package market

import (
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// newYorkLocation handles EST/EDT automatically.
var newYorkLocation = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback to EST fixed zone if tzdata is unavailable (e.g., minimal container)
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// isUSMarketHours reports whether t falls within regular US trading hours:
// 09:30 up to 16:00 New York time, Monday to Friday. Holidays are not modelled.
func isUSMarketHours(t time.Time) bool {
	ny := t.In(newYorkLocation)
	weekday := ny.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}
	hour, min, _ := ny.Clock()
	minuteOfDay := hour*60 + min
	// 09:30 = 570, 16:00 = 960
	return minuteOfDay >= 570 && minuteOfDay < 960
}

// GetMarketStatus reports whether the US market is open at now
func (s *Service) GetMarketStatus(now time.Time) models.MarketStatus {
	if now.IsZero() {
		now = s.now()
	}
	return models.MarketStatus{
		IsOpen:   isUSMarketHours(now),
		Timezone: newYorkLocation.String(),
		Now:      now.In(newYorkLocation),
		Opens:    "09:30",
		Closes:   "16:00",
	}
}

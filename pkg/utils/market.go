package utils

import (
	"fmt"
	"time"
)

// IndiaLocation is the timezone Kite sessions and exchange hours follow.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// SessionExpiry returns when a Kite access token issued at now stops
// working: the next 6 AM IST.
func SessionExpiry(now time.Time) time.Time {
	ist := now.In(IndiaLocation)
	expiry := time.Date(ist.Year(), ist.Month(), ist.Day(), 6, 0, 0, 0, IndiaLocation)
	if !ist.Before(expiry) {
		expiry = expiry.AddDate(0, 0, 1)
	}
	return expiry
}

// FormatRemaining renders a duration as "5h 20m", or "expired" when d is not
// positive.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

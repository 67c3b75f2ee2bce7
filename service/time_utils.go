package service

import (
	"time"
)

// StartOfToday returns local midnight in the given location. Daily limits and
// payout caps reset at this boundary.
func StartOfToday(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

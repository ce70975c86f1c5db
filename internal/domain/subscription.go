package domain

import "time"

// Subscription is a chat that receives the daily free-time digest
type Subscription struct {
	ID           int64
	ChatID       int64
	Weeks        int
	DayStartHour int
	DayEndHour   int
	CreatedAt    time.Time
}

// Window returns the subscription's working window on top of base.
// Hours set to -1 keep the base boundary
func (s *Subscription) Window(base Window) Window {
	return base.WithHours(s.DayStartHour, s.DayEndHour)
}

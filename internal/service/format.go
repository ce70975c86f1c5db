package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/freetime/internal/domain"
)

// FormatClock renders t on a 12-hour clock with lowercase am/pm and without
// ":00" for whole hours: 8am, 1:30pm, 12am
func FormatClock(t domain.TimeOfDay) string {
	suffix := "am"
	if t.Hour >= 12 {
		suffix = "pm"
	}
	hour := t.Hour % 12
	if hour == 0 {
		hour = 12
	}
	if t.Minute == 0 {
		return fmt.Sprintf("%d%s", hour, suffix)
	}
	return fmt.Sprintf("%d:%02d%s", hour, t.Minute, suffix)
}

// FormatInterval renders a free interval as "8am-10:30am"
func FormatInterval(f domain.FreeInterval) string {
	return FormatClock(f.Start) + "-" + FormatClock(f.End)
}

// FormatDay renders one day as "(Mon) Jan 02, 8am-10am, 11am-5pm".
// It returns false for a day without free time
func FormatDay(a domain.DayAvailability) (string, bool) {
	if len(a.Free) == 0 {
		return "", false
	}

	slots := make([]string, 0, len(a.Free))
	for _, f := range a.Free {
		slots = append(slots, FormatInterval(f))
	}

	header := a.Day.Time(time.UTC).Format("(Mon) Jan 02,")
	return header + " " + strings.Join(slots, ", "), true
}

// FormatAvailability renders one line per day that has free time
func FormatAvailability(days []domain.DayAvailability) []string {
	var lines []string
	for _, a := range days {
		if line, ok := FormatDay(a); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

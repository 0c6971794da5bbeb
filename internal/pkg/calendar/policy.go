package calendar

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Policy answers whether a civil date is a rest day.
type Policy interface {
	IsRestDay(date time.Time) bool
}

// WeeklyPolicy treats fixed weekdays and an explicit holiday list as rest days.
type WeeklyPolicy struct {
	restDays map[time.Weekday]struct{}
	holidays map[string]struct{}
}

func NewWeeklyPolicy(restDays []time.Weekday, holidays []time.Time) *WeeklyPolicy {
	p := &WeeklyPolicy{
		restDays: make(map[time.Weekday]struct{}, len(restDays)),
		holidays: make(map[string]struct{}, len(holidays)),
	}
	for _, d := range restDays {
		p.restDays[d] = struct{}{}
	}
	for _, h := range holidays {
		p.holidays[h.Format(dateLayout)] = struct{}{}
	}
	return p
}

func (p *WeeklyPolicy) IsRestDay(date time.Time) bool {
	if _, ok := p.restDays[date.Weekday()]; ok {
		return true
	}
	_, ok := p.holidays[date.Format(dateLayout)]
	return ok
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekdays accepts full or three-letter English weekday names.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		found := false
		for full, wd := range weekdayNames {
			if name == full || name == full[:3] {
				days = append(days, wd)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown weekday %q", raw)
		}
	}
	return days, nil
}

// ParseHolidays parses YYYY-MM-DD dates.
func ParseHolidays(values []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(values))
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

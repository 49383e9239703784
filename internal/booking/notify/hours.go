package notify

import "time"

// Clock answers the two night-time questions the dispatcher asks. It is
// injected so tests and deployments can pin their own business hours.
type Clock interface {
	IsNight(t time.Time) bool
	NextBusinessTime(t time.Time) time.Time
}

// BusinessHours treats [NightStart, NightEnd) as night, measured from local
// midnight in Location. NightStart may be later than NightEnd, in which case
// the night wraps past midnight.
type BusinessHours struct {
	Location   *time.Location
	NightStart time.Duration
	NightEnd   time.Duration
}

// DefaultBusinessHours is 22:00 to 07:00 Stockholm time.
func DefaultBusinessHours() BusinessHours {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		loc = time.UTC
	}
	return BusinessHours{Location: loc, NightStart: 22 * time.Hour, NightEnd: 7 * time.Hour}
}

func (b BusinessHours) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

// IsNight reports whether t falls inside the night window.
func (b BusinessHours) IsNight(t time.Time) bool {
	local := t.In(b.location())
	offset := local.Sub(midnight(local))
	if b.NightStart > b.NightEnd {
		return offset >= b.NightStart || offset < b.NightEnd
	}
	return offset >= b.NightStart && offset < b.NightEnd
}

// NextBusinessTime returns t unchanged during the day, otherwise the end of
// the current night.
func (b BusinessHours) NextBusinessTime(t time.Time) time.Time {
	if !b.IsNight(t) {
		return t
	}
	local := t.In(b.location())
	day := midnight(local)
	next := day.Add(b.NightEnd)
	if !next.After(local) {
		next = day.AddDate(0, 0, 1).Add(b.NightEnd)
	}
	return next
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

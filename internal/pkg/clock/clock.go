package clock

import "time"

// Clock supplies the current instant and the zone attendance days are keyed in.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// New returns a wall clock reporting times in loc.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Location() *time.Location {
	return c.loc
}

// Today returns midnight of the current local day.
func Today(c Clock) time.Time {
	return StartOfDay(c.Now(), c.Location())
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// MonthRange returns the first and last calendar day of the month.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// Fixed is a Clock frozen at a single instant. Set moves it.
type Fixed struct {
	T   time.Time
	Loc *time.Location
}

func (f *Fixed) Now() time.Time {
	return f.T.In(f.Location())
}

func (f *Fixed) Location() *time.Location {
	if f.Loc == nil {
		return time.UTC
	}
	return f.Loc
}

func (f *Fixed) Set(t time.Time) {
	f.T = t
}

func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}

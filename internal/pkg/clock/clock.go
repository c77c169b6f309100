package clock

import "time"

// Clock supplies the current instant and the company timezone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

// New returns a wall clock bound to the named IANA timezone. Unknown names fall back to UTC.
func New(timezone string) Clock {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &realClock{loc: loc}
}

func (c *realClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c *realClock) Location() *time.Location { return c.loc }

// FixedClock always returns the same instant. Used by tests and replays.
type FixedClock struct {
	T   time.Time
	Loc *time.Location
}

func Fixed(t time.Time) *FixedClock {
	return &FixedClock{T: t, Loc: t.Location()}
}

func (c *FixedClock) Now() time.Time           { return c.T.In(c.Loc) }
func (c *FixedClock) Location() *time.Location { return c.Loc }

// Set moves the fixed clock to t.
func (c *FixedClock) Set(t time.Time) { c.T = t }

// DateOf returns the calendar date of t in loc, at midnight UTC so it compares cleanly with DATE columns.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date for c.
func Today(c Clock) time.Time {
	return DateOf(c.Now(), c.Location())
}

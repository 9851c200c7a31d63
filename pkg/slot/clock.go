package slot

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrOutsideWindow is returned when an instant floors to a slot that is not
// fully contained in the clinic's open window.
var ErrOutsideWindow = errors.New("instant is outside the clinic open window")

var clockTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Key identifies one bookable slot: the clinic-local date plus the slot's
// start instant. Two appointments share a slot iff their keys are equal.
type Key struct {
	Date  string    `json:"date"`
	Start time.Time `json:"start"`
}

// ID returns the stable identifier used as the ledger row key.
func (k Key) ID() string {
	return fmt.Sprintf("%s_%s", k.Date, k.Start.UTC().Format("15:04"))
}

// Clock maps wall-clock instants to slot boundaries inside a fixed daily
// open window. All math happens in the clinic's time zone so callers in
// different zones agree on slot identity.
type Clock struct {
	loc         *time.Location
	windowStart time.Duration
	windowEnd   time.Duration
	granularity time.Duration
}

func NewClock(timeZone, windowStart, windowEnd string, granularity time.Duration) (*Clock, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic time zone %q: %w", timeZone, err)
	}

	start, err := parseClockTime(windowStart)
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	end, err := parseClockTime(windowEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}

	if granularity <= 0 {
		return nil, fmt.Errorf("granularity must be positive, got %s", granularity)
	}
	if end-start < granularity {
		return nil, fmt.Errorf("open window %s-%s does not fit a single %s slot", windowStart, windowEnd, granularity)
	}

	return &Clock{
		loc:         loc,
		windowStart: start,
		windowEnd:   end,
		granularity: granularity,
	}, nil
}

func parseClockTime(s string) (time.Duration, error) {
	if !clockTimeRegex.MatchString(s) {
		return 0, fmt.Errorf("%q is not in HH:MM format", s)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, err
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}

func (c *Clock) Granularity() time.Duration {
	return c.granularity
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// SlotFor floors an instant to its containing slot boundary. An instant
// exactly on a boundary maps to that boundary. Instants whose floored slot
// starts before the window opens, or whose slot would end after the window
// closes, yield ErrOutsideWindow. Offsets come from wall-clock components
// rather than elapsed time since midnight, so the window stays pinned to
// wall-clock hours on daylight saving transition days.
func (c *Clock) SlotFor(t time.Time) (Key, error) {
	local := t.In(c.loc)

	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	floored := offset - offset%c.granularity

	if floored < c.windowStart || floored+c.granularity > c.windowEnd {
		return Key{}, ErrOutsideWindow
	}

	return Key{
		Date:  local.Format("2006-01-02"),
		Start: c.wallClockInstant(local, floored).UTC(),
	}, nil
}

// wallClockInstant resolves a wall-clock offset on the given day to an
// instant in the clinic zone.
func (c *Clock) wallClockInstant(day time.Time, offset time.Duration) time.Time {
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		int(offset/time.Hour),
		int(offset%time.Hour/time.Minute),
		int(offset%time.Minute/time.Second),
		0, c.loc,
	)
}

// EnumerateSlots lists every slot of the given date, ordered by start time.
// The last slot is the one whose end coincides with or precedes window end.
func (c *Clock) EnumerateSlots(date time.Time) []Key {
	local := date.In(c.loc)
	day := local.Format("2006-01-02")

	var keys []Key
	for off := c.windowStart; off+c.granularity <= c.windowEnd; off += c.granularity {
		keys = append(keys, Key{
			Date:  day,
			Start: c.wallClockInstant(local, off).UTC(),
		})
	}
	return keys
}

// EnumerateRange lists slots starting in [start, end), possibly spanning
// several dates, ordered by start time.
func (c *Clock) EnumerateRange(start, end time.Time) []Key {
	if !start.Before(end) {
		return nil
	}

	var keys []Key
	day := start.In(c.loc)
	for {
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
		if !midnight.Before(end) {
			break
		}
		for _, k := range c.EnumerateSlots(midnight) {
			if !k.Start.Before(start) && k.Start.Before(end) {
				keys = append(keys, k)
			}
		}
		day = midnight.AddDate(0, 0, 1)
	}
	return keys
}

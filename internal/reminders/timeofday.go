package reminders

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	return TimeOfDay(h*60 + m), nil
}

// At returns the UTC time of day of t.
func At(t time.Time) TimeOfDay {
	u := t.UTC()
	return TimeOfDay(u.Hour()*60 + u.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// QuietWindow is a daily window during which reminders are not delivered.
// Start is inclusive and End is exclusive. A window whose start is after its
// end wraps past midnight; equal bounds describe an empty window.
type QuietWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// ParseQuietWindow builds a window from nullable "HH:MM" bounds. Both bounds
// must be present for a window to exist.
func ParseQuietWindow(start, end *string) (*QuietWindow, error) {
	if start == nil || end == nil || *start == "" || *end == "" {
		return nil, nil
	}

	s, err := ParseTimeOfDay(*start)
	if err != nil {
		return nil, err
	}
	e, err := ParseTimeOfDay(*end)
	if err != nil {
		return nil, err
	}
	return &QuietWindow{Start: s, End: e}, nil
}

// Contains reports whether t falls inside the window, evaluated in UTC.
func (w QuietWindow) Contains(t time.Time) bool {
	now := At(t)
	switch {
	case w.Start == w.End:
		return false
	case w.Start < w.End:
		return now >= w.Start && now < w.End
	default:
		return now >= w.Start || now < w.End
	}
}

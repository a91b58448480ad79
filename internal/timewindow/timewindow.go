// Package timewindow resolves and validates the time range a digest run
// covers. All timestamps are normalized to UTC.
package timewindow

import (
	"fmt"
	"time"
)

// DefaultDays is the lookback used when neither side of the window is given.
const DefaultDays = 7

// clockSkewBuffer tolerates slightly-ahead clocks when rejecting future end
// times.
const clockSkewBuffer = time.Hour

// Window is a time range, inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the window. The fetch step uses
// this to filter; the scorer clamps instead.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// String formats the window for reports, e.g. "2025-01-01 -> 2025-01-08".
func (w Window) String() string {
	return fmt.Sprintf("%s -> %s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// Validate rejects windows that cannot describe a real fetch: start must
// precede end, and end must not sit in the future beyond clock skew.
func (w Window) Validate(now time.Time) error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("window start %s must be before end %s",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	if w.End.After(now.Add(clockSkewBuffer)) {
		return fmt.Errorf("window end %s cannot be in the future", w.End.Format(time.RFC3339))
	}
	return nil
}

// Resolve determines the window from optional start/end strings.
// Priority: explicit arguments, then the default lookback of days ending now
// (or anchored to whichever side was given). An empty days falls back to
// DefaultDays.
func Resolve(startArg, endArg string, days int, now time.Time) (Window, error) {
	if days <= 0 {
		days = DefaultDays
	}
	lookback := time.Duration(days) * 24 * time.Hour
	now = now.UTC()

	var start, end time.Time
	var err error

	if startArg != "" {
		if start, err = ParseTimestamp(startArg); err != nil {
			return Window{}, err
		}
	}
	if endArg != "" {
		if end, err = ParseTimestamp(endArg); err != nil {
			return Window{}, err
		}
	}

	switch {
	case start.IsZero() && end.IsZero():
		end = now
		start = end.Add(-lookback)
	case start.IsZero():
		start = end.Add(-lookback)
	case end.IsZero():
		end = start.Add(lookback)
		if end.After(now) {
			end = now
		}
	}

	w := Window{Start: start, End: end}
	if err := w.Validate(now); err != nil {
		return Window{}, err
	}
	return w, nil
}

// timestampLayouts are accepted input formats, tried in order. Dates without
// a time component mean midnight UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601-ish timestamp and normalizes it to UTC.
// Inputs without timezone information are assumed to be UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

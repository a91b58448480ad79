package timewindow

import (
	"testing"
	"time"
)

var now = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-01T00:00:00Z", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T06:30:00+02:00", time.Date(2025, 1, 1, 4, 30, 0, 0, time.UTC)},
		{"2025-01-01T08:15:00", time.Date(2025, 1, 1, 8, 15, 0, 0, time.UTC)},
		{"2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday-ish"); err == nil {
		t.Error("want error for unparseable timestamp")
	}
}

func TestResolveDefaults(t *testing.T) {
	w, err := Resolve("", "", 0, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !w.End.Equal(now) {
		t.Errorf("end = %v, want now", w.End)
	}
	if want := now.Add(-7 * 24 * time.Hour); !w.Start.Equal(want) {
		t.Errorf("start = %v, want %v", w.Start, want)
	}
}

func TestResolveAnchoring(t *testing.T) {
	// Only end given: look back N days from it.
	w, err := Resolve("", "2025-01-10T00:00:00Z", 3, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Errorf("start = %v, want %v", w.Start, want)
	}

	// Only start given: go forward, capped at now.
	w, err = Resolve("2025-01-14T00:00:00Z", "", 7, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !w.End.Equal(now) {
		t.Errorf("end = %v, want capped at now", w.End)
	}

	// Both given: taken as-is.
	w, err = Resolve("2025-01-01T00:00:00Z", "2025-01-08T00:00:00Z", 7, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w.Duration() != 7*24*time.Hour {
		t.Errorf("duration = %v, want 168h", w.Duration())
	}
}

func TestResolveRejectsInvalidWindows(t *testing.T) {
	if _, err := Resolve("2025-01-08T00:00:00Z", "2025-01-01T00:00:00Z", 7, now); err == nil {
		t.Error("want error for start after end")
	}
	if _, err := Resolve("2025-02-01T00:00:00Z", "2025-02-08T00:00:00Z", 7, now); err == nil {
		t.Error("want error for end in the future")
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}

	if !w.Contains(w.Start) || !w.Contains(w.End) {
		t.Error("boundaries should be contained")
	}
	if w.Contains(w.Start.Add(-time.Second)) {
		t.Error("before start should not be contained")
	}
	if w.Contains(w.End.Add(time.Second)) {
		t.Error("after end should not be contained")
	}
}

func TestWindowString(t *testing.T) {
	w := Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	if got := w.String(); got != "2025-01-01 -> 2025-01-08" {
		t.Errorf("String() = %q", got)
	}
}

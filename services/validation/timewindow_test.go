package validation

import "testing"

func TestWithinWindow(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		start    string
		end      string
		expected bool
	}{
		{"inside window", "09:05", "09:00", "09:10", true},
		{"at window start", "09:00", "09:00", "09:10", true},
		{"at window end", "09:10", "09:00", "09:10", true},
		{"after window", "09:11", "09:00", "09:10", false},
		{"before window", "08:59", "09:00", "09:10", false},
		{"malformed current", "9am", "09:00", "09:10", false},
		{"malformed start", "09:05", "start", "09:10", false},
		{"hour out of range", "25:00", "09:00", "09:10", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := WithinWindow(tc.current, tc.start, tc.end); got != tc.expected {
				t.Fatalf("WithinWindow(%q, %q, %q) = %v, want %v",
					tc.current, tc.start, tc.end, got, tc.expected)
			}
		})
	}
}

func TestAddMinutes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		minutes  int
		expected string
	}{
		{"no rollover", "09:00", 10, "09:10"},
		{"hour rollover", "09:55", 10, "10:05"},
		{"exact hour boundary", "09:50", 10, "10:00"},
		{"checkout grace", "17:00", 5, "17:05"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := AddMinutes(tc.input, tc.minutes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("AddMinutes(%q, %d) = %q, want %q", tc.input, tc.minutes, got, tc.expected)
			}
		})
	}
}

func TestAddMinutesInvalid(t *testing.T) {
	if _, err := AddMinutes("invalid", 10); err == nil {
		t.Fatal("expected error for malformed time")
	}
	if _, err := AddMinutes("09:00", -600); err == nil {
		t.Fatal("expected error when rolling before midnight")
	}
}

func TestGraceWindow(t *testing.T) {
	w, err := GraceWindow("09:55", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Start != "09:55" || w.End != "10:05" {
		t.Fatalf("unexpected window %v", w)
	}
	if w.String() != "09:55 - 10:05" {
		t.Fatalf("unexpected window string %q", w.String())
	}
}

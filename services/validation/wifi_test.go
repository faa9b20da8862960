package validation

import "testing"

func TestWifiTrusted(t *testing.T) {
	tests := []struct {
		name     string
		trusted  []string
		detected []string
		expected bool
	}{
		{"no trusted set configured", nil, []string{"CC:DD"}, true},
		{"empty trusted set", []string{}, nil, true},
		{"no overlap", []string{"AA:BB"}, []string{"CC:DD"}, false},
		{"overlap among many", []string{"AA:BB"}, []string{"AA:BB", "CC:DD"}, true},
		{"nothing detected", []string{"AA:BB"}, nil, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := WifiTrusted(tc.trusted, tc.detected); got != tc.expected {
				t.Fatalf("WifiTrusted(%v, %v) = %v, want %v",
					tc.trusted, tc.detected, got, tc.expected)
			}
		})
	}
}

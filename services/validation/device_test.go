package validation

import "testing"

func strPtr(s string) *string { return &s }

func TestMatchDevice(t *testing.T) {
	tests := []struct {
		name     string
		bound    *string
		reported string
		expected DeviceResult
	}{
		{"matched", strPtr("device-a"), "device-a", DeviceMatched},
		{"mismatch", strPtr("device-a"), "device-b", DeviceMismatch},
		{"never bound", nil, "device-a", DeviceNotLinked},
		{"bound empty string", strPtr(""), "device-a", DeviceNotLinked},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := MatchDevice(tc.bound, tc.reported)
			if got != tc.expected {
				t.Fatalf("MatchDevice = %v, want %v", got, tc.expected)
			}
			if got.Matched() != (tc.expected == DeviceMatched) {
				t.Fatalf("Matched() inconsistent for %v", got)
			}
		})
	}
}

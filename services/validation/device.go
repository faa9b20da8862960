package validation

// DeviceResult classifies a reported device identifier against the account's
// bound one. Binding itself happens in account management; this is read-only.
type DeviceResult int

const (
	// DeviceMatched means the account's bound device equals the reported one.
	DeviceMatched DeviceResult = iota
	// DeviceNotLinked means the account has no bound device yet. Still a hard
	// failure for attendance, but reported as "not yet linked" rather than a
	// mismatch.
	DeviceNotLinked
	// DeviceMismatch means the account is bound to a different device.
	DeviceMismatch
)

// Matched reports whether the device check passed.
func (r DeviceResult) Matched() bool {
	return r == DeviceMatched
}

// MatchDevice compares the account's bound device identifier (nil when no
// device was ever linked) against the identifier reported by the client.
func MatchDevice(bound *string, reported string) DeviceResult {
	if bound == nil || *bound == "" {
		return DeviceNotLinked
	}
	if *bound != reported {
		return DeviceMismatch
	}
	return DeviceMatched
}

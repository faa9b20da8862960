package validation

// WifiTrusted reports whether at least one detected network identifier is in
// the location's trusted set. A location with no trusted set configured has
// no wireless requirement, so an empty trusted set always passes.
func WifiTrusted(trusted, detected []string) bool {
	if len(trusted) == 0 {
		return true
	}
	known := make(map[string]struct{}, len(trusted))
	for _, id := range trusted {
		known[id] = struct{}{}
	}
	for _, id := range detected {
		if _, ok := known[id]; ok {
			return true
		}
	}
	return false
}

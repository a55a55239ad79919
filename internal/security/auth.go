package security

// CheckAuthentication is the entire trust boundary for the tool surface.
// With no configured token every presented value is accepted; otherwise the
// presented token must match exactly. Plain equality, not constant-time.
func CheckAuthentication(configured, presented string) bool {
	if configured == "" {
		return true
	}
	return presented == configured
}

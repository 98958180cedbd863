package melcloud

import "fmt"

// AuthenticationError covers rejected credentials and rejected sessions.
// The coordinator retries a call once after reauthentication when it sees
// one of these; a second occurrence is fatal.
type AuthenticationError struct {
	StatusCode int
	Reason     string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("melcloud: authentication rejected (%d): %s", e.StatusCode, e.Reason)
	}
	return "melcloud: authentication rejected: " + e.Reason
}

// APIError covers transport failures, 5xx responses and malformed bodies.
type APIError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("melcloud: api error (%d): %s", e.StatusCode, e.Reason)
	}
	return "melcloud: api error: " + e.Reason
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError is raised locally, before any network call, for values
// outside the hardcoded safe bounds, invalid enums, or unmet capability
// preconditions.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("melcloud: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

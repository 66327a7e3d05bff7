package device

import "errors"

var (
	// ErrDeviceNotFound indicates missing device by id.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrAlertNotFound indicates missing alert by id.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrBackendUnavailable marks transport-level failures talking to the data backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrQuery marks malformed queries and errors reported by the backend itself.
	ErrQuery = errors.New("query error")
	// ErrReadingUnavailable marks a per-device reading lookup that failed or found nothing.
	// It is absorbed by the reading fetcher and never reaches store callers.
	ErrReadingUnavailable = errors.New("reading unavailable")
	// ErrRefreshUnconfirmed means a mutation succeeded but the follow-up refresh failed.
	ErrRefreshUnconfirmed = errors.New("change applied but refresh failed")
)

// ValidationError describes an invalid user-supplied field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	return "invalid " + e.Field + ": " + e.Reason
}

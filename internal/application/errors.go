package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist or is
	// owned by someone else. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique resource is created twice.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when authentication inputs do not match a known account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token has passed its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was explicitly revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrStaleSession is returned when a session refers to an account that no
	// longer exists, detected before attempting a dependent write.
	ErrStaleSession = errors.New("application: stale session")
	// ErrNoAttendees is returned when invite dispatch is requested for an event
	// with an empty attendee list.
	ErrNoAttendees = errors.New("application: event has no attendees")
	// ErrEventWriteFailed wraps unexpected persistence failures during event writes.
	ErrEventWriteFailed = errors.New("application: event write failed")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

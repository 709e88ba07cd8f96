package models

import "github.com/pkg/errors"

// Error taxonomy shared by all services. Matched with errors.Is; wrap with
// errors.Wrap/Wrapf to add call-site context.
var (
	ErrInvalidCoordinate    = errors.New("invalid coordinate")
	ErrInvalidRadius        = errors.New("invalid radius")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyAcknowledged  = errors.New("alert already acknowledged")
	ErrDisconnected         = errors.New("disconnected")
	ErrTimeout              = errors.New("timeout")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrAlertRecordingFailed = errors.New("alert recording failed")
)

// Retryable reports whether repeating the same call unchanged can succeed.
// Validation and conflict errors are terminal; infrastructure errors are not.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrDisconnected),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrStoreUnavailable):
		return true
	default:
		return false
	}
}

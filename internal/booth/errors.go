package booth

import "errors"

var (
	// ErrBusy is returned when another operation holds the camera.
	ErrBusy = errors.New("camera busy: another operation is in progress")

	// ErrCircuitOpen is returned while repeated session failures keep the camera fenced off.
	ErrCircuitOpen = errors.New("camera unavailable: circuit breaker is open")

	// ErrTooManyRequests is returned when the half-open breaker already has a probe in flight.
	ErrTooManyRequests = errors.New("camera unavailable: too many requests while circuit is half-open")
)

// Unavailable reports whether err means the camera is fenced off by the breaker.
func Unavailable(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

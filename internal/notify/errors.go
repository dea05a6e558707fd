package notify

import "errors"

var (
	// ErrNotConnected is returned when publishing while the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial broker connection fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish is not acknowledged in time.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)

package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
)

// ErrTimedOut is returned when a waiting phase ends without a new file.
// When the phase was cut short the cause is wrapped alongside it.
var ErrTimedOut = errors.New("timed out waiting for file")

// EventSource is the part of a camera handle the waiting phases poll.
type EventSource interface {
	WaitForEvent(timeout time.Duration) (device.Event, error)
}

// WaitForFile polls src up to maxAttempts times, each poll bounded by
// timeout, and returns the first added file. It also returns the number of
// poll calls issued.
//
// CaptureComplete, Timeout and Other events use up one attempt each.
// A failed poll, or a malformed event, ends the phase at once.
// ctx is checked between polls; a running poll cannot be interrupted.
func WaitForFile(ctx context.Context, src EventSource, timeout time.Duration, maxAttempts int) (device.Locator, int, error) {
	polls := 0
	for polls < maxAttempts {
		select {
		case <-ctx.Done():
			return device.Locator{}, polls, fmt.Errorf("%w: %w", ErrTimedOut, ctx.Err())
		default:
		}

		polls++
		debug.Verbose("capture: poll %d/%d (timeout %v)", polls, maxAttempts, timeout)

		ev, err := src.WaitForEvent(timeout)
		if err != nil {
			perr := device.Wrap(device.EventPollError, "wait for event", err)
			debug.Warn("capture: %v", perr)
			return device.Locator{}, polls, fmt.Errorf("%w: %w", ErrTimedOut, perr)
		}

		switch e := ev.(type) {
		case device.FileAdded:
			if e.Locator.IsZero() {
				perr := device.Wrap(device.EventPollError, "wait for event", errors.New("file added event without a file name"))
				debug.Warn("capture: %v", perr)
				return device.Locator{}, polls, fmt.Errorf("%w: %w", ErrTimedOut, perr)
			}
			debug.Event(polls, maxAttempts, e.String())
			return e.Locator, polls, nil
		case device.CaptureComplete:
			debug.Event(polls, maxAttempts, e.String())
		case device.Timeout:
			debug.Verbose("capture: no event (poll %d/%d)", polls, maxAttempts)
		case device.Other:
			debug.Event(polls, maxAttempts, e.String())
		case nil:
			perr := device.Wrap(device.EventPollError, "wait for event", errors.New("empty event"))
			debug.Warn("capture: %v", perr)
			return device.Locator{}, polls, fmt.Errorf("%w: %w", ErrTimedOut, perr)
		}
	}
	return device.Locator{}, polls, ErrTimedOut
}

// Package notify announces capture results to the outside world.
package notify

import (
	"context"
	"time"

	"github.com/cjeanneret/boothcam/internal/logic/capture"
)

// Publisher receives every finished capture.
type Publisher interface {
	Publish(ctx context.Context, id string, res capture.Result) error
	Close() error
}

// CaptureEvent is the payload published for one capture.
type CaptureEvent struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Outcome   string         `json:"outcome"`
	Polls     int            `json:"polls"`
	Result    capture.Result `json:"result"`
}

// NewCaptureEvent stamps res with id and the current time.
func NewCaptureEvent(id string, res capture.Result, now time.Time) CaptureEvent {
	return CaptureEvent{
		ID:        id,
		Timestamp: now.UTC().Format(time.RFC3339),
		Outcome:   res.Outcome.Final.String(),
		Polls:     res.Outcome.Polls,
		Result:    res,
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) Publish(context.Context, string, capture.Result) error { return nil }
func (Noop) Close() error                                          { return nil }

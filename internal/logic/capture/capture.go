// Package capture fires the camera, recovers the image file when the camera
// misreports the capture, and moves the file off the device.
package capture

import (
	"context"
	"time"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
)

// DefaultOutputDir is where captured files land when no directory is set.
const DefaultOutputDir = "/tmp"

// Result is the externally visible outcome of one capture attempt.
type Result struct {
	Success       bool            `json:"success"`
	LocalPath     string          `json:"local_path,omitempty"`
	DeviceLocator *device.Locator `json:"device_locator,omitempty"`
	Error         string          `json:"error,omitempty"`

	Outcome   Outcome       `json:"-"`
	DeleteErr error         `json:"-"`
	Duration  time.Duration `json:"-"`
}

// Failure builds an unsuccessful result from err.
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Options configure one capture run.
type Options struct {
	OutputDir string
	Policy    Policy
	// Trigger replaces the handle's own trigger capture in the trigger phase.
	Trigger Trigger
	// ID tags narration.
	ID string
}

// Handle is what Run needs from a device handle.
type Handle interface {
	Camera
	Storage
}

// Run captures an image with h and transfers it to opts.OutputDir.
// It never panics on device failures; every failure is reported in the
// returned result.
func Run(ctx context.Context, h Handle, opts Options) Result {
	start := time.Now()
	dir := opts.OutputDir
	if dir == "" {
		dir = DefaultOutputDir
	}

	debug.Section("Capture " + opts.ID)

	out, err := NewOrchestrator(h, opts.Trigger, opts.Policy, opts.ID).Run(ctx)
	if err != nil {
		debug.Error(err)
		res := Failure(err)
		res.Outcome = out
		res.Duration = time.Since(start)
		return res
	}

	loc := out.Locator
	t, err := Transfer(h, loc, dir)
	if err != nil {
		debug.Error(err)
		res := Failure(err)
		res.Outcome = out
		res.DeleteErr = t.DeleteErr
		res.Duration = time.Since(start)
		return res
	}

	res := Result{
		Success:       true,
		LocalPath:     t.LocalPath,
		DeviceLocator: &loc,
		Outcome:       out,
		DeleteErr:     t.DeleteErr,
		Duration:      time.Since(start),
	}
	debug.Info("capture: done via %s in %v (%d polls, %d trigger calls)",
		out.Final, res.Duration.Round(time.Millisecond), out.Polls, out.TriggerCalls)
	return res
}

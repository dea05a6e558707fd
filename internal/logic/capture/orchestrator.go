package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
)

// State is a step of the capture state machine.
type State int

const (
	Idle State = iota
	Capturing
	DirectSuccess
	NeedsFallback
	FallbackWaiting
	FallbackFileFound
	NeedsTrigger
	TriggerWaiting
	TriggerFileFound
	Exhausted
	Done
)

var stateNames = [...]string{
	Idle:              "Idle",
	Capturing:         "Capturing",
	DirectSuccess:     "DirectSuccess",
	NeedsFallback:     "NeedsFallback",
	FallbackWaiting:   "FallbackWaiting",
	FallbackFileFound: "FallbackFileFound",
	NeedsTrigger:      "NeedsTrigger",
	TriggerWaiting:    "TriggerWaiting",
	TriggerFileFound:  "TriggerFileFound",
	Exhausted:         "Exhausted",
	Done:              "Done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Found reports whether s is a state that carries a file locator.
func (s State) Found() bool {
	return s == DirectSuccess || s == FallbackFileFound || s == TriggerFileFound
}

// Policy bounds each waiting phase.
type Policy struct {
	PollTimeout  time.Duration // per poll call
	PollAttempts int           // poll calls per phase
}

// DefaultPolicy waits about 10 seconds per phase.
func DefaultPolicy() Policy {
	return Policy{PollTimeout: 200 * time.Millisecond, PollAttempts: 50}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.PollTimeout <= 0 {
		p.PollTimeout = d.PollTimeout
	}
	if p.PollAttempts <= 0 {
		p.PollAttempts = d.PollAttempts
	}
	return p
}

// Trigger fires the shutter without expecting a file locator back.
type Trigger interface {
	TriggerCapture() error
}

// Camera is the part of a device handle the orchestrator drives.
type Camera interface {
	EventSource
	Trigger
	Capture() (device.Locator, error)
}

// Outcome describes how the capture phase ended.
type Outcome struct {
	Locator      device.Locator
	Final        State // DirectSuccess, FallbackFileFound, TriggerFileFound or Exhausted
	Polls        int
	TriggerCalls int
}

// Orchestrator runs the capture state machine against one camera.
type Orchestrator struct {
	camera  Camera
	trigger Trigger
	policy  Policy
	op      string
}

// NewOrchestrator returns an orchestrator for cam. A nil trig uses the
// camera's own trigger capture. op tags the narration of this run.
func NewOrchestrator(cam Camera, trig Trigger, p Policy, op string) *Orchestrator {
	if trig == nil {
		trig = cam
	}
	return &Orchestrator{camera: cam, trigger: trig, policy: p.withDefaults(), op: op}
}

// Run fires the shutter and finds the resulting file.
//
// The direct capture always wins when it succeeds. After a failed direct
// capture the camera is polled for an added file; if none shows up the
// secondary trigger is fired and the camera is polled again. The returned
// error is a *device.Error of kind ExhaustionError when no file appeared.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	var (
		out   Outcome
		cause error
	)

	state := Idle
	for state != Done {
		var next State

		switch state {
		case Idle:
			next = Capturing

		case Capturing:
			debug.Live("capture: trying direct capture...")
			loc, err := o.camera.Capture()
			switch {
			case err == nil && !loc.IsZero():
				debug.Live("capture: direct capture succeeded: %s", loc)
				out.Locator = loc
				next = DirectSuccess
			case err == nil:
				debug.Warn("capture: direct capture returned no file name")
				next = NeedsFallback
			default:
				debug.Warn("capture: %v - shutter may have fired anyway", device.Wrap(device.CaptureError, "capture", err))
				next = NeedsFallback
			}

		case NeedsFallback:
			debug.Live("capture: waiting for file event from camera...")
			next = FallbackWaiting

		case FallbackWaiting:
			loc, polls, err := WaitForFile(ctx, o.camera, o.policy.PollTimeout, o.policy.PollAttempts)
			out.Polls += polls
			switch {
			case err == nil:
				out.Locator = loc
				next = FallbackFileFound
			case ctx.Err() != nil:
				cause = ctx.Err()
				next = Exhausted
			default:
				next = NeedsTrigger
			}

		case NeedsTrigger:
			debug.Live("capture: no file event, trying trigger capture...")
			out.TriggerCalls++
			if err := o.trigger.TriggerCapture(); err != nil {
				debug.Warn("capture: %v", device.Wrap(device.TriggerError, "trigger capture", err))
			}
			next = TriggerWaiting

		case TriggerWaiting:
			loc, polls, err := WaitForFile(ctx, o.camera, o.policy.PollTimeout, o.policy.PollAttempts)
			out.Polls += polls
			switch {
			case err == nil:
				out.Locator = loc
				next = TriggerFileFound
			default:
				if ctx.Err() != nil {
					cause = ctx.Err()
				}
				next = Exhausted
			}

		case DirectSuccess, FallbackFileFound, TriggerFileFound, Exhausted:
			out.Final = state
			next = Done

		case Done:
		}

		debug.Transition(o.op, state.String(), next.String())
		state = next
	}

	if out.Final != Exhausted {
		return out, nil
	}

	out.Locator = device.Locator{}
	if cause != nil {
		return out, &device.Error{
			Kind:    device.ExhaustionError,
			Op:      "capture cancelled",
			Message: cause.Error(),
			Err:     errors.Join(device.ErrNoFile, cause),
		}
	}
	return out, &device.Error{Kind: device.ExhaustionError, Err: device.ErrNoFile}
}

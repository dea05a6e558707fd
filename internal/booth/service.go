// Package booth runs camera operations against a device library, one at a
// time, opening a fresh session for each.
package booth

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
	"github.com/cjeanneret/boothcam/internal/logic/capture"
	"github.com/cjeanneret/boothcam/internal/logic/settings"
	"github.com/cjeanneret/boothcam/internal/metrics"
	"github.com/cjeanneret/boothcam/internal/notify"
)

const publishTimeout = 5 * time.Second

// Options configure a Service.
type Options struct {
	OutputDir string
	Policy    capture.Policy
	// Trigger replaces the camera's own trigger in the trigger phase.
	Trigger   capture.Trigger
	Breaker   BreakerConfig
	Notifier  notify.Publisher
	Callbacks device.Callbacks
}

// Service serializes camera operations.
type Service struct {
	lib      device.Library
	opts     Options
	sem      *semaphore.Weighted
	breaker  *breaker[*device.Session]
	notifier notify.Publisher
	active   atomic.Int32
}

// New creates a service for lib.
func New(lib device.Library, opts Options) *Service {
	if opts.OutputDir == "" {
		opts.OutputDir = capture.DefaultOutputDir
	}
	if opts.Callbacks.Error == nil && opts.Callbacks.Status == nil && opts.Callbacks.Message == nil {
		opts.Callbacks = device.NarrationCallbacks()
	}
	n := opts.Notifier
	if n == nil {
		n = notify.Noop{}
	}
	return &Service{
		lib:      lib,
		opts:     opts,
		sem:      semaphore.NewWeighted(1),
		breaker:  newBreaker[*device.Session]("session-"+lib.Name(), opts.Breaker),
		notifier: n,
	}
}

// Library names the backing device library.
func (s *Service) Library() string { return s.lib.Name() }

// OutputDir is where captured files are saved.
func (s *Service) OutputDir() string { return s.opts.OutputDir }

// Active is the number of operations holding the camera (0 or 1).
func (s *Service) Active() int { return int(s.active.Load()) }

// BreakerState reports the session breaker state.
func (s *Service) BreakerState() string { return s.breaker.state() }

func (s *Service) acquire() error {
	if !s.sem.TryAcquire(1) {
		metrics.BusyReject()
		debug.Warn("booth: rejected, camera busy")
		return ErrBusy
	}
	s.active.Add(1)
	return nil
}

func (s *Service) release() {
	s.active.Add(-1)
	s.sem.Release(1)
}

func (s *Service) open() (*device.Session, error) {
	sess, err := execute(s.breaker, func() (*device.Session, error) {
		return device.Open(s.lib, s.opts.Callbacks)
	})
	if err != nil {
		if Unavailable(err) {
			debug.Warn("booth: %v", err)
		} else {
			metrics.SessionFailure(device.KindOf(err).String())
		}
		return nil, err
	}
	return sess, nil
}

func closeSession(sess *device.Session) {
	if err := sess.Close(); err != nil {
		debug.Warn("booth: close session: %v", err)
	}
}

// Capture takes one picture and saves it under OutputDir.
// Device failures are reported in the result. The error is non-nil only when
// the camera could not be reached at all: ErrBusy, ErrCircuitOpen or
// ErrTooManyRequests.
func (s *Service) Capture(ctx context.Context) (capture.Result, error) {
	if err := s.acquire(); err != nil {
		return capture.Failure(err), err
	}
	defer s.release()

	id := uuid.NewString()
	start := time.Now()
	debug.Verbose("booth: capture %s", id)

	sess, err := s.open()
	if err != nil {
		res := capture.Failure(err)
		res.Duration = time.Since(start)
		s.record(res)
		if Unavailable(err) {
			return res, err
		}
		s.publish(ctx, id, res)
		return res, nil
	}

	res := capture.Run(ctx, sess.Handle(), capture.Options{
		OutputDir: s.opts.OutputDir,
		Policy:    s.opts.Policy,
		Trigger:   s.opts.Trigger,
		ID:        id,
	})
	closeSession(sess)

	s.record(res)
	s.publish(ctx, id, res)
	return res, nil
}

// Settings reads the camera settings tree and serializes the catalog entries
// the camera exposes.
func (s *Service) Settings(ctx context.Context) (map[string]settings.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	sess, err := s.open()
	if err != nil {
		return nil, err
	}
	defer closeSession(sess)

	root, err := sess.Handle().ConfigTree()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	out := settings.Serialize(root, settings.Catalog)
	debug.Verbose("booth: %d of %d settings present", len(out), len(settings.Catalog))
	return out, nil
}

// outcomeLabel maps a result to its metrics outcome.
func outcomeLabel(res capture.Result) string {
	if !res.Success {
		if res.Outcome.Final == capture.Exhausted {
			return metrics.OutcomeExhausted
		}
		return metrics.OutcomeError
	}
	switch res.Outcome.Final {
	case capture.DirectSuccess:
		return metrics.OutcomeDirect
	case capture.FallbackFileFound:
		return metrics.OutcomeFallback
	case capture.TriggerFileFound:
		return metrics.OutcomeTrigger
	}
	return metrics.OutcomeError
}

func (s *Service) record(res capture.Result) {
	metrics.Capture(outcomeLabel(res), res.Outcome.Polls, res.Outcome.TriggerCalls, res.Duration)
	if res.DeleteErr != nil {
		metrics.DeletionFailure()
	}
}

func (s *Service) publish(ctx context.Context, id string, res capture.Result) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.notifier.Publish(pctx, id, res); err != nil {
		debug.Warn("booth: publish %s: %v", id, err)
	}
}

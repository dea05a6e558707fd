package booth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/boothcam/internal/device"
	"github.com/cjeanneret/boothcam/internal/device/simulated"
	"github.com/cjeanneret/boothcam/internal/logic/capture"
	"github.com/cjeanneret/boothcam/internal/metrics"
)

type recordingNotifier struct {
	mu      sync.Mutex
	ids     []string
	results []capture.Result
	err     error
}

func (n *recordingNotifier) Publish(_ context.Context, id string, res capture.Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	n.results = append(n.results, res)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

type countingTrigger struct{ calls int }

func (t *countingTrigger) TriggerCapture() error {
	t.calls++
	return nil
}

func newService(t *testing.T, quirk simulated.Quirk, opts Options) (*Service, *simulated.Library) {
	t.Helper()
	lib := simulated.New(simulated.Options{Quirk: quirk, Image: []byte("jpeg")})
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	opts.Policy = capture.Policy{PollTimeout: time.Millisecond, PollAttempts: 10}
	return New(lib, opts), lib
}

func TestCapture_Success(t *testing.T) {
	n := &recordingNotifier{}
	s, lib := newService(t, simulated.QuirkCaptureError, Options{Notifier: n})

	res, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, capture.FallbackFileFound, res.Outcome.Final)
	assert.FileExists(t, res.LocalPath)
	assert.Empty(t, lib.Files())
	assert.Equal(t, 0, s.Active())

	require.Len(t, n.ids, 1)
	assert.NotEmpty(t, n.ids[0])
	assert.True(t, n.results[0].Success)
}

func TestCapture_ExhaustedIsAResult(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newService(t, simulated.QuirkSilent, Options{Notifier: n})

	res, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "capture fired but no file retrieved", res.Error)
	assert.Len(t, n.results, 1)
}

func TestCapture_ExternalTrigger(t *testing.T) {
	trig := &countingTrigger{}
	s, _ := newService(t, simulated.QuirkSilent, Options{Trigger: trig})

	res, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, trig.calls)
	assert.Equal(t, 1, res.Outcome.TriggerCalls)
}

func TestCapture_Busy(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newService(t, simulated.QuirkNone, Options{Notifier: n})

	require.NoError(t, s.acquire())
	assert.Equal(t, 1, s.Active())

	res, err := s.Capture(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, res.Success)
	assert.Equal(t, ErrBusy.Error(), res.Error)

	_, err = s.Settings(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	s.release()
	res, err = s.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, n.results, 1, "rejected captures are not published")
}

func TestCapture_BreakerOpensAfterSessionFailures(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newService(t, simulated.QuirkNoCamera, Options{
		Notifier: n,
		Breaker:  BreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute},
	})
	assert.Equal(t, "closed", s.BreakerState())

	for i := 0; i < 2; i++ {
		res, err := s.Capture(context.Background())
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "init camera: Unknown model (code -105)", res.Error)
	}
	assert.Equal(t, "open", s.BreakerState())

	res, err := s.Capture(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, Unavailable(err))
	assert.Equal(t, ErrCircuitOpen.Error(), res.Error)
	assert.Len(t, n.results, 2)
}

func TestCapture_BreakerDisabled(t *testing.T) {
	s, _ := newService(t, simulated.QuirkNoCamera, Options{})
	for i := 0; i < 5; i++ {
		_, err := s.Capture(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, "closed", s.BreakerState())
}

func TestCapture_PublishFailureIgnored(t *testing.T) {
	s, _ := newService(t, simulated.QuirkNone, Options{Notifier: &recordingNotifier{err: errors.New("broker down")}})
	res, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestSettings(t *testing.T) {
	s, _ := newService(t, simulated.QuirkNone, Options{})

	got, err := s.Settings(context.Background())
	require.NoError(t, err)
	require.Contains(t, got, "iso")
	assert.Equal(t, "400", got["iso"].Value)
	assert.NotContains(t, got, "shutterspeed2")
	assert.Equal(t, 0, s.Active())
}

func TestSettings_NoCamera(t *testing.T) {
	s, _ := newService(t, simulated.QuirkNoCamera, Options{})

	_, err := s.Settings(context.Background())
	require.Error(t, err)
	assert.Equal(t, device.InitializationError, device.KindOf(err))
}

func TestSettings_Cancelled(t *testing.T) {
	s, _ := newService(t, simulated.QuirkNone, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Settings(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	s := New(simulated.New(simulated.Options{}), Options{})
	assert.Equal(t, capture.DefaultOutputDir, s.OutputDir())
	assert.Equal(t, "simulated", s.Library())
	assert.NotNil(t, s.opts.Callbacks.Error)
}

func TestOutcomeLabel(t *testing.T) {
	cases := []struct {
		name string
		res  capture.Result
		want string
	}{
		{"direct", capture.Result{Success: true, Outcome: capture.Outcome{Final: capture.DirectSuccess}}, metrics.OutcomeDirect},
		{"fallback", capture.Result{Success: true, Outcome: capture.Outcome{Final: capture.FallbackFileFound}}, metrics.OutcomeFallback},
		{"trigger", capture.Result{Success: true, Outcome: capture.Outcome{Final: capture.TriggerFileFound}}, metrics.OutcomeTrigger},
		{"exhausted", capture.Result{Outcome: capture.Outcome{Final: capture.Exhausted}}, metrics.OutcomeExhausted},
		{"transfer_failed", capture.Result{Outcome: capture.Outcome{Final: capture.DirectSuccess}}, metrics.OutcomeError},
		{"session_failed", capture.Failure(errors.New("init camera")), metrics.OutcomeError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, outcomeLabel(tc.res))
		})
	}
}

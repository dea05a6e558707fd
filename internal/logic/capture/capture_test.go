package capture

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/boothcam/internal/device"
)

// scriptedCamera replays a fixed script and records every call.
type scriptedCamera struct {
	captureLoc device.Locator
	captureErr error
	triggerErr error

	// events maps a 1-based poll number to the event it returns.
	// Unlisted polls time out.
	events  map[int]device.Event
	pollErr map[int]error

	fetchErr  error
	saveErr   error
	deleteErr error
	data      []byte

	polls   int
	calls   []string
	fetched []device.Locator
	deleted []device.Locator
	closed  int

	onPoll func(n int)
}

func (c *scriptedCamera) Capture() (device.Locator, error) {
	c.calls = append(c.calls, "capture")
	return c.captureLoc, c.captureErr
}

func (c *scriptedCamera) TriggerCapture() error {
	c.calls = append(c.calls, "trigger")
	return c.triggerErr
}

func (c *scriptedCamera) WaitForEvent(time.Duration) (device.Event, error) {
	c.polls++
	c.calls = append(c.calls, "poll")
	if c.onPoll != nil {
		c.onPoll(c.polls)
	}
	if err, ok := c.pollErr[c.polls]; ok {
		return nil, err
	}
	if ev, ok := c.events[c.polls]; ok {
		return ev, nil
	}
	return device.Timeout{}, nil
}

func (c *scriptedCamera) Fetch(loc device.Locator) (device.File, error) {
	c.calls = append(c.calls, "fetch")
	c.fetched = append(c.fetched, loc)
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return &scriptedFile{cam: c}, nil
}

func (c *scriptedCamera) Delete(loc device.Locator) error {
	c.calls = append(c.calls, "delete")
	c.deleted = append(c.deleted, loc)
	return c.deleteErr
}

func (c *scriptedCamera) triggerCalls() int {
	n := 0
	for _, call := range c.calls {
		if call == "trigger" {
			n++
		}
	}
	return n
}

type scriptedFile struct{ cam *scriptedCamera }

func (f *scriptedFile) Save(path string) error {
	f.cam.calls = append(f.cam.calls, "save")
	if f.cam.saveErr != nil {
		return f.cam.saveErr
	}
	return os.WriteFile(path, f.cam.data, 0o644)
}

func (f *scriptedFile) Close() error {
	f.cam.closed++
	return nil
}

func added(folder, name string) device.Event {
	return device.FileAdded{Locator: device.Locator{Folder: folder, Name: name}}
}

var errCapture = &device.LibError{Code: -1, Text: "Unspecified error"}

func fastPolicy() Policy {
	return Policy{PollTimeout: time.Millisecond, PollAttempts: 50}
}

func TestRun_DirectSuccess(t *testing.T) {
	dir := t.TempDir()
	cam := &scriptedCamera{
		captureLoc: device.Locator{Folder: "/store/1", Name: "IMG01.JPG"},
		data:       []byte("jpeg"),
	}

	res := Run(context.Background(), cam, Options{OutputDir: dir, Policy: fastPolicy()})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, filepath.Join(dir, "IMG01.JPG"), res.LocalPath)
	require.NotNil(t, res.DeviceLocator)
	assert.Equal(t, device.Locator{Folder: "/store/1", Name: "IMG01.JPG"}, *res.DeviceLocator)
	assert.Equal(t, 0, cam.polls)
	assert.Equal(t, DirectSuccess, res.Outcome.Final)
	assert.Equal(t, []string{"capture", "fetch", "save", "delete"}, cam.calls)

	got, err := os.ReadFile(res.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(got))
}

func TestRun_FallbackFindsFile(t *testing.T) {
	cam := &scriptedCamera{
		captureErr: errCapture,
		events: map[int]device.Event{
			2: device.CaptureComplete{},
			7: added("/store/1", "IMG02.JPG"),
		},
	}

	res := Run(context.Background(), cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 7, cam.polls)
	assert.Equal(t, 0, cam.triggerCalls())
	assert.Equal(t, FallbackFileFound, res.Outcome.Final)
	assert.Equal(t, 7, res.Outcome.Polls)
	assert.Equal(t, []device.Locator{{Folder: "/store/1", Name: "IMG02.JPG"}}, cam.deleted)
}

func TestRun_TriggerFindsFile(t *testing.T) {
	cam := &scriptedCamera{
		captureErr: errCapture,
		triggerErr: errors.New("trigger not supported"),
		events:     map[int]device.Event{53: added("/store/1", "IMG03.JPG")},
	}

	res := Run(context.Background(), cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 53, cam.polls)
	assert.Equal(t, 1, cam.triggerCalls())
	assert.Equal(t, "trigger", cam.calls[51], "trigger fires after the 50 fallback polls")
	assert.Equal(t, TriggerFileFound, res.Outcome.Final)
	assert.Equal(t, 1, res.Outcome.TriggerCalls)
}

func TestRun_FallbackPollErrorStillTriggers(t *testing.T) {
	cam := &scriptedCamera{
		captureErr: errCapture,
		pollErr:    map[int]error{3: &device.LibError{Code: -7, Text: "I/O problem"}},
		events:     map[int]device.Event{5: added("/store/1", "IMG10.JPG")},
	}

	res := Run(context.Background(), cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 5, cam.polls)
	assert.Equal(t, 1, cam.triggerCalls())
	assert.Equal(t, "trigger", cam.calls[4], "trigger fires right after the failed poll")
	assert.Equal(t, TriggerFileFound, res.Outcome.Final)
	assert.Equal(t, 5, res.Outcome.Polls)
	assert.Equal(t, []device.Locator{{Folder: "/store/1", Name: "IMG10.JPG"}}, cam.deleted)
}

func TestRun_FallbackPollErrorLeavesFullTriggerBudget(t *testing.T) {
	cam := &scriptedCamera{
		captureErr: errCapture,
		pollErr:    map[int]error{3: &device.LibError{Code: -7, Text: "I/O problem"}},
	}

	res := Run(context.Background(), cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

	assert.False(t, res.Success)
	assert.Equal(t, "capture fired but no file retrieved", res.Error)
	assert.Equal(t, 3+50, cam.polls)
	assert.Equal(t, 1, cam.triggerCalls())
	assert.Equal(t, Exhausted, res.Outcome.Final)
}

func TestRun_Exhausted(t *testing.T) {
	cam := &scriptedCamera{captureErr: errCapture}

	res := Run(context.Background(), cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

	assert.False(t, res.Success)
	assert.Equal(t, "capture fired but no file retrieved", res.Error)
	assert.Empty(t, res.LocalPath)
	assert.Nil(t, res.DeviceLocator)
	assert.Equal(t, 100, cam.polls)
	assert.Equal(t, 1, cam.triggerCalls())
	assert.Empty(t, cam.fetched)
	assert.Empty(t, cam.deleted)
	assert.Equal(t, Exhausted, res.Outcome.Final)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"capture fired but no file retrieved"}`, string(raw))
}

func TestRun_SeparateTrigger(t *testing.T) {
	cam := &scriptedCamera{
		captureErr: errCapture,
		events:     map[int]device.Event{51: added("/store/1", "IMG04.JPG")},
	}
	remote := &countingTrigger{}

	res := Run(context.Background(), cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy(), Trigger: remote})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 0, cam.triggerCalls())
}

type countingTrigger struct{ calls int }

func (c *countingTrigger) TriggerCapture() error {
	c.calls++
	return nil
}

func TestRun_DownloadFailureStillDeletes(t *testing.T) {
	cases := []struct {
		name string
		cam  *scriptedCamera
		want string
	}{
		{
			name: "fetch",
			cam: &scriptedCamera{
				captureLoc: device.Locator{Folder: "/store/1", Name: "IMG05.JPG"},
				fetchErr:   &device.LibError{Code: -7, Text: "I/O problem"},
			},
			want: "download: I/O problem (code -7)",
		},
		{
			name: "save",
			cam: &scriptedCamera{
				captureLoc: device.Locator{Folder: "/store/1", Name: "IMG05.JPG"},
				saveErr:    errors.New("disk full"),
			},
			want: "save file: disk full",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Run(context.Background(), tc.cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

			assert.False(t, res.Success)
			assert.Equal(t, tc.want, res.Error)
			assert.Len(t, tc.cam.deleted, 1)
			assert.Equal(t, "delete", tc.cam.calls[len(tc.cam.calls)-1])
		})
	}
}

func TestRun_DeleteFailureIsNotSurfaced(t *testing.T) {
	cam := &scriptedCamera{
		captureLoc: device.Locator{Folder: "/store/1", Name: "IMG06.JPG"},
		deleteErr:  errors.New("read-only storage"),
	}

	res := Run(context.Background(), cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	require.Error(t, res.DeleteErr)
	assert.Equal(t, device.DeletionError, device.KindOf(res.DeleteErr))
	assert.Equal(t, 1, cam.closed)
}

func TestRun_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cam := &scriptedCamera{captureErr: errCapture}
	cam.onPoll = func(n int) {
		if n == 5 {
			cancel()
		}
	}

	res := Run(ctx, cam, Options{OutputDir: t.TempDir(), Policy: fastPolicy()})

	assert.False(t, res.Success)
	assert.Equal(t, "capture cancelled: context canceled", res.Error)
	assert.Equal(t, 5, cam.polls)
	assert.Equal(t, 0, cam.triggerCalls())
	assert.Equal(t, Exhausted, res.Outcome.Final)
}

func TestRun_DefaultOutputDir(t *testing.T) {
	cam := &scriptedCamera{
		captureLoc: device.Locator{Folder: "/store/1", Name: "boothcam-test-default-dir.jpg"},
	}
	t.Cleanup(func() { _ = os.Remove(filepath.Join(DefaultOutputDir, "boothcam-test-default-dir.jpg")) })

	res := Run(context.Background(), cam, Options{Policy: fastPolicy()})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, filepath.Join(DefaultOutputDir, "boothcam-test-default-dir.jpg"), res.LocalPath)
}

func TestTransfer_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	cam := &scriptedCamera{}

	tr, err := Transfer(cam, device.Locator{Folder: "/store/1", Name: "../../etc/IMG07.JPG"}, dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "IMG07.JPG"), tr.LocalPath)
}

func TestTransfer_InvalidName(t *testing.T) {
	cam := &scriptedCamera{}

	_, err := Transfer(cam, device.Locator{Folder: "/store/1", Name: ".."}, t.TempDir())

	require.Error(t, err)
	assert.Equal(t, device.TransferError, device.KindOf(err))
	assert.Empty(t, cam.fetched)
	assert.Empty(t, cam.deleted, "a file that was never downloaded must stay on the camera")
}

func TestTransfer_OutputDirUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cam := &scriptedCamera{}

	_, err := Transfer(cam, device.Locator{Folder: "/store/1", Name: "IMG09.JPG"}, filepath.Join(blocker, "photos"))

	require.Error(t, err)
	assert.Equal(t, device.TransferError, device.KindOf(err))
	assert.Contains(t, err.Error(), "create output dir")
	assert.Empty(t, cam.calls, "neither fetch nor delete may run")
}

func TestTransfer_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "IMG08.JPG"), []byte("old"), 0o644))
	cam := &scriptedCamera{data: []byte("new")}

	tr, err := Transfer(cam, device.Locator{Folder: "/store/1", Name: "IMG08.JPG"}, dir)
	require.NoError(t, err)

	got, err := os.ReadFile(tr.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

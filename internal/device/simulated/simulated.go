// Package simulated is an in-memory camera for development and tests.
// Quirks reproduce the capture behaviours seen on real bodies.
package simulated

import (
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
	"github.com/cjeanneret/boothcam/internal/logic/settings"
)

// Quirk selects how the simulated camera reacts to a capture.
type Quirk string

const (
	// QuirkNone: the direct capture returns the file.
	QuirkNone Quirk = "none"
	// QuirkCaptureError: the direct capture reports an error, the file
	// shows up as an event a few polls later.
	QuirkCaptureError Quirk = "capture_error"
	// QuirkNeedsTrigger: the direct capture fails and nothing happens
	// until a trigger capture is issued.
	QuirkNeedsTrigger Quirk = "needs_trigger"
	// QuirkSilent: no file ever appears.
	QuirkSilent Quirk = "silent"
	// QuirkNoCamera: initialization fails as if no camera was attached.
	QuirkNoCamera Quirk = "no_camera"
)

// ParseQuirk validates a quirk name. Empty means QuirkNone.
func ParseQuirk(s string) (Quirk, error) {
	switch q := Quirk(s); q {
	case "":
		return QuirkNone, nil
	case QuirkNone, QuirkCaptureError, QuirkNeedsTrigger, QuirkSilent, QuirkNoCamera:
		return q, nil
	}
	return "", fmt.Errorf("unknown simulated camera quirk %q", s)
}

// Library result codes, as reported by the real library.
var (
	errUnspecified = &device.LibError{Code: -1, Text: "Unspecified error"}
	errNoModel     = &device.LibError{Code: -105, Text: "Unknown model"}
	errNotFound    = &device.LibError{Code: -108, Text: "File not found"}
)

// Options configure a simulated camera.
type Options struct {
	Quirk Quirk
	// Folder is where captured files are stored on the camera.
	Folder string
	// EventDelay is the number of polls before an added file is reported.
	EventDelay int
	// PollLatency is how long a poll blocks, capped by the poll timeout.
	PollLatency time.Duration
	// Image is the content of every captured file.
	Image []byte
	// Tree builds the settings snapshot. Nil uses DefaultTree.
	Tree func() *settings.Node
}

// Library is a simulated camera backend. It is safe for concurrent use;
// storage survives across sessions like a real memory card.
type Library struct {
	opts Options

	mu      sync.Mutex
	counter int
	files   map[device.Locator][]byte
	pending *pendingFile
}

type pendingFile struct {
	loc   device.Locator
	polls int
}

// New returns a simulated library.
func New(opts Options) *Library {
	if opts.Quirk == "" {
		opts.Quirk = QuirkNone
	}
	if opts.Folder == "" {
		opts.Folder = "/store_00010001/DCIM/100BOOTH"
	}
	if opts.EventDelay <= 0 {
		opts.EventDelay = 3
	}
	if opts.Image == nil {
		opts.Image = placeholderJPEG
	}
	if opts.Tree == nil {
		opts.Tree = DefaultTree
	}
	return &Library{opts: opts, files: make(map[device.Locator][]byte)}
}

func (l *Library) Name() string { return "simulated" }

func (l *Library) NewContext(cb device.Callbacks) (device.Context, error) {
	debug.Trace("simulated: new context")
	return &simContext{lib: l, cb: cb}, nil
}

// Files returns the locators currently stored on the camera.
func (l *Library) Files() []device.Locator {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]device.Locator, 0, len(l.files))
	for loc := range l.files {
		out = append(out, loc)
	}
	return out
}

// store adds a new file and returns its locator. Caller holds l.mu.
func (l *Library) store() device.Locator {
	l.counter++
	loc := device.Locator{Folder: l.opts.Folder, Name: fmt.Sprintf("IMG_%04d.JPG", l.counter)}
	l.files[loc] = l.opts.Image
	return loc
}

type simContext struct {
	lib *Library
	cb  device.Callbacks
}

func (c *simContext) NewHandle() (device.Handle, error) {
	return &handle{lib: c.lib, cb: c.cb}, nil
}

func (c *simContext) Release() error {
	debug.Trace("simulated: release context")
	return nil
}

type handle struct {
	lib *Library
	cb  device.Callbacks
}

func (h *handle) status(msg string) {
	if h.cb.Status != nil {
		h.cb.Status(msg)
	}
}

func (h *handle) fail(msg string) {
	if h.cb.Error != nil {
		h.cb.Error(msg)
	}
}

func (h *handle) Init() error {
	h.status("Detecting camera")
	if h.lib.opts.Quirk == QuirkNoCamera {
		h.fail("No camera found on any port")
		return errNoModel
	}
	return nil
}

func (h *handle) Exit() error { return nil }
func (h *handle) Free() error { return nil }

func (h *handle) Capture() (device.Locator, error) {
	l := h.lib
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.opts.Quirk {
	case QuirkNone:
		return l.store(), nil
	case QuirkCaptureError:
		l.pending = &pendingFile{loc: l.store(), polls: l.opts.EventDelay}
		h.fail("Capture failed: Perhaps no auto-focus?")
		return device.Locator{}, errUnspecified
	case QuirkNeedsTrigger, QuirkSilent, QuirkNoCamera:
	}
	h.fail("Capture failed")
	return device.Locator{}, errUnspecified
}

func (h *handle) TriggerCapture() error {
	l := h.lib
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.opts.Quirk == QuirkSilent {
		return nil
	}
	l.pending = &pendingFile{loc: l.store(), polls: l.opts.EventDelay}
	return nil
}

func (h *handle) WaitForEvent(timeout time.Duration) (device.Event, error) {
	l := h.lib
	if d := min(l.opts.PollLatency, timeout); d > 0 {
		time.Sleep(d)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending == nil {
		return device.Timeout{}, nil
	}
	l.pending.polls--
	switch {
	case l.pending.polls > 1:
		return device.Timeout{}, nil
	case l.pending.polls == 1:
		return device.CaptureComplete{}, nil
	}
	loc := l.pending.loc
	l.pending = nil
	return device.FileAdded{Locator: loc}, nil
}

func (h *handle) Fetch(loc device.Locator) (device.File, error) {
	l := h.lib
	l.mu.Lock()
	defer l.mu.Unlock()

	data, ok := l.files[loc]
	if !ok {
		return nil, errNotFound
	}
	return &file{name: path.Base(loc.Name), data: data}, nil
}

func (h *handle) Delete(loc device.Locator) error {
	l := h.lib
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.files[loc]; !ok {
		return errNotFound
	}
	delete(l.files, loc)
	return nil
}

func (h *handle) ConfigTree() (*settings.Node, error) {
	return h.lib.opts.Tree(), nil
}

type file struct {
	name string
	data []byte
}

func (f *file) Save(localPath string) error {
	debug.Verbose("simulated: saving %s (%d bytes) to %s", f.name, len(f.data), localPath)
	return os.WriteFile(localPath, f.data, 0o644)
}

func (f *file) Close() error { return nil }

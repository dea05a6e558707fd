// Package device defines the contract consumed from a camera-control library
// and the session that owns a camera handle for the length of one operation.
package device

import (
	"path"
	"time"

	"github.com/cjeanneret/boothcam/internal/logic/settings"
)

// Locator identifies a file resident on the camera's own storage.
type Locator struct {
	Folder string `json:"folder"`
	Name   string `json:"name"`
}

// String returns folder/name.
func (l Locator) String() string {
	return path.Join(l.Folder, l.Name)
}

// IsZero reports whether l carries no file name.
func (l Locator) IsZero() bool {
	return l.Name == ""
}

// Callbacks receive diagnostic text emitted by the library while a context
// is alive. Nil fields are ignored.
type Callbacks struct {
	Error   func(msg string)
	Status  func(msg string)
	Message func(msg string)
}

// Library is the entry point of a camera-control backend.
type Library interface {
	// NewContext allocates a library context wired to cb.
	NewContext(cb Callbacks) (Context, error)
	// Name identifies the backend in narration ("gphoto2", "simulated").
	Name() string
}

// Context carries the library callbacks. It outlives every handle created
// from it.
type Context interface {
	NewHandle() (Handle, error)
	Release() error
}

// Handle is a live connection to one camera.
// All calls block until the underlying transport operation finishes.
type Handle interface {
	Init() error
	Exit() error
	Free() error

	// Capture fires the shutter and returns where the image was stored.
	Capture() (Locator, error)
	// TriggerCapture fires the shutter without waiting for a file.
	TriggerCapture() error
	// WaitForEvent blocks for at most timeout and returns the next event.
	WaitForEvent(timeout time.Duration) (Event, error)

	Fetch(loc Locator) (File, error)
	Delete(loc Locator) error

	// ConfigTree returns an owned snapshot of the camera settings.
	ConfigTree() (*settings.Node, error)
}

// File is a downloaded camera file held in library memory until closed.
type File interface {
	Save(localPath string) error
	Close() error
}

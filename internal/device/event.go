package device

import "fmt"

// Event is a notification returned by Handle.WaitForEvent.
// The set of implementations is closed: FileAdded, CaptureComplete, Timeout
// and Other.
type Event interface {
	isEvent()
	String() string
}

// FileAdded reports a new file on the camera storage.
type FileAdded struct {
	Locator Locator
}

// CaptureComplete reports that the camera finished an exposure.
type CaptureComplete struct{}

// Timeout reports that nothing happened within the poll timeout.
type Timeout struct{}

// Other is any event type the capture logic does not act on.
type Other struct {
	Code int
}

func (FileAdded) isEvent()       {}
func (CaptureComplete) isEvent() {}
func (Timeout) isEvent()         {}
func (Other) isEvent()           {}

func (e FileAdded) String() string     { return "file_added " + e.Locator.String() }
func (CaptureComplete) String() string { return "capture_complete" }
func (Timeout) String() string         { return "timeout" }
func (e Other) String() string         { return fmt.Sprintf("other(%d)", e.Code) }

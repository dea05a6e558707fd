package device

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure by the capture phase it happened in.
type ErrorKind int

const (
	// ContextError: context or handle allocation failed.
	ContextError ErrorKind = iota + 1
	// InitializationError: the camera handshake failed.
	InitializationError
	// CaptureError: the direct capture call failed. Recovered by fallback.
	CaptureError
	// TriggerError: the secondary trigger failed. Logged only.
	TriggerError
	// EventPollError: the poll call failed. Ends the current waiting phase.
	EventPollError
	// TransferError: download or save failed.
	TransferError
	// DeletionError: removing the file from the camera failed. Logged only.
	DeletionError
	// ExhaustionError: no file appeared in any waiting phase.
	ExhaustionError
)

func (k ErrorKind) String() string {
	switch k {
	case ContextError:
		return "context"
	case InitializationError:
		return "initialization"
	case CaptureError:
		return "capture"
	case TriggerError:
		return "trigger"
	case EventPollError:
		return "event_poll"
	case TransferError:
		return "transfer"
	case DeletionError:
		return "deletion"
	case ExhaustionError:
		return "exhaustion"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Surfaced reports whether errors of this kind end up in a capture result.
// The other kinds are recovered or logged where they happen.
func (k ErrorKind) Surfaced() bool {
	switch k {
	case ContextError, InitializationError, TransferError, ExhaustionError:
		return true
	case CaptureError, TriggerError, EventPollError, DeletionError:
	}
	return false
}

var (
	ErrContextCreation = errors.New("failed to create context")
	ErrHandleCreation  = errors.New("failed to create camera")
	ErrInitialization  = errors.New("failed to init camera")
	ErrNoFile          = errors.New("capture fired but no file retrieved")
)

// Error is a classified device failure.
type Error struct {
	Kind    ErrorKind
	Op      string
	Code    int    // library result code, 0 when not applicable
	Message string // library text for Code
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	var s string
	switch {
	case e.Op != "" && msg != "":
		s = e.Op + ": " + msg
	case e.Op != "":
		s = e.Op
	default:
		s = msg
	}
	if e.Code != 0 {
		s = fmt.Sprintf("%s (code %d)", s, e.Code)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err. Library result codes carried by a *LibError are
// copied onto the returned error.
func Wrap(kind ErrorKind, op string, err error) *Error {
	e := &Error{Kind: kind, Op: op, Err: err}
	var le *LibError
	if errors.As(err, &le) {
		e.Code = le.Code
		e.Message = le.Text
	}
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// LibError is a negative result code returned by the camera library.
type LibError struct {
	Code int
	Text string
}

func (e *LibError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Text, e.Code)
}

package device

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/boothcam/internal/debug"
)

// Session owns a context and an initialized handle. Other components borrow
// the handle for one operation and must not keep it after Close.
type Session struct {
	lib    Library
	ctx    Context
	handle Handle
}

// Open creates a context wired to cb, then creates and initializes a handle.
// On failure everything allocated so far is released before returning.
func Open(lib Library, cb Callbacks) (s *Session, err error) {
	debug.Verbose("session: opening %s context", lib.Name())

	ctx, cerr := lib.NewContext(cb)
	if cerr != nil {
		return nil, Wrap(ContextError, "create context", fmt.Errorf("%w: %w", ErrContextCreation, cerr))
	}
	if ctx == nil {
		return nil, Wrap(ContextError, "create context", ErrContextCreation)
	}
	defer func() {
		if err != nil {
			if rerr := ctx.Release(); rerr != nil {
				debug.Warn("session: release context after failed open: %v", rerr)
			}
		}
	}()

	h, herr := ctx.NewHandle()
	if herr != nil {
		return nil, Wrap(ContextError, "create camera", fmt.Errorf("%w: %w", ErrHandleCreation, herr))
	}
	if h == nil {
		return nil, Wrap(ContextError, "create camera", ErrHandleCreation)
	}
	defer func() {
		if err != nil {
			if ferr := h.Free(); ferr != nil {
				debug.Warn("session: free handle after failed open: %v", ferr)
			}
		}
	}()

	debug.Info("session: initializing camera...")
	if ierr := h.Init(); ierr != nil {
		return nil, Wrap(InitializationError, "init camera", fmt.Errorf("%w: %w", ErrInitialization, ierr))
	}

	debug.Live("session: camera ready")
	return &Session{lib: lib, ctx: ctx, handle: h}, nil
}

// Handle returns the initialized handle.
func (s *Session) Handle() Handle {
	return s.handle
}

// Close exits and frees the handle, then releases the context.
// It must be called exactly once.
func (s *Session) Close() error {
	var errs []error
	if err := s.handle.Exit(); err != nil {
		errs = append(errs, fmt.Errorf("exit camera: %w", err))
	}
	if err := s.handle.Free(); err != nil {
		errs = append(errs, fmt.Errorf("free camera: %w", err))
	}
	if err := s.ctx.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release context: %w", err))
	}
	debug.Verbose("session: closed %s session", s.lib.Name())
	return errors.Join(errs...)
}

// NarrationCallbacks routes library diagnostics to the debug narration.
func NarrationCallbacks() Callbacks {
	return Callbacks{
		Error:   func(msg string) { debug.Callback("error", msg) },
		Status:  func(msg string) { debug.Callback("status", msg) },
		Message: func(msg string) { debug.Callback("message", msg) },
	}
}

// Package release fires a camera through its wired remote release socket.
package release

import (
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/hw/gpio"
)

// Release drives a 3-pin remote release cable (Nikon MC-DC1 style):
// - GND: connected to Raspberry Pi ground
// - FOCUS: half-press (activate by setting to LOW)
// - SHUTTER: full press (activate by setting to LOW)
//
// Trigger sequence:
// 1. FOCUS to LOW (half-press)
// 2. Wait for autofocus to complete
// 3. SHUTTER to LOW (full press)
// 4. Hold for a moment
// 5. Set SHUTTER and FOCUS back to HIGH
//
// The camera stays connected over USB; the resulting file is picked up
// from the USB event stream.
type Release struct {
	mu           sync.Mutex
	gpio         gpio.Driver
	focusPin     int
	shutterPin   int
	focusDelay   time.Duration // time for autofocus
	shutterDelay time.Duration // shutter hold time
}

// Config holds the wiring of the release cable.
type Config struct {
	FocusPin     int
	ShutterPin   int
	FocusDelay   time.Duration
	ShutterDelay time.Duration
}

// New configures both lines as outputs and parks them HIGH (inactive).
func New(g gpio.Driver, cfg Config) (*Release, error) {
	if cfg.FocusPin == cfg.ShutterPin {
		return nil, fmt.Errorf("focus and shutter must use different pins (both %d)", cfg.FocusPin)
	}

	for _, pin := range []int{cfg.FocusPin, cfg.ShutterPin} {
		if err := g.SetupPin(pin, gpio.Output); err != nil {
			return nil, fmt.Errorf("setup pin %d: %w", pin, err)
		}
		if err := g.WritePin(pin, gpio.High); err != nil {
			return nil, fmt.Errorf("park pin %d: %w", pin, err)
		}
	}

	return &Release{
		gpio:         g,
		focusPin:     cfg.FocusPin,
		shutterPin:   cfg.ShutterPin,
		focusDelay:   cfg.FocusDelay,
		shutterDelay: cfg.ShutterDelay,
	}, nil
}

// TriggerCapture presses the release: FOCUS -> wait for AF -> SHUTTER -> hold -> release.
func (r *Release) TriggerCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	debug.Printf("Release: triggering shot (focus=%d, shutter=%d)", r.focusPin, r.shutterPin)

	debug.Verbose("Release: activating FOCUS (pin %d -> LOW)", r.focusPin)
	if err := r.gpio.WritePin(r.focusPin, gpio.Low); err != nil {
		return err
	}

	debug.Verbose("Release: waiting for autofocus (%v)", r.focusDelay)
	time.Sleep(r.focusDelay)

	debug.Verbose("Release: activating SHUTTER (pin %d -> LOW)", r.shutterPin)
	if err := r.gpio.WritePin(r.shutterPin, gpio.Low); err != nil {
		// Release FOCUS on error
		_ = r.gpio.WritePin(r.focusPin, gpio.High)
		return err
	}

	debug.Verbose("Release: holding shutter (%v)", r.shutterDelay)
	time.Sleep(r.shutterDelay)

	debug.Verbose("Release: releasing SHUTTER (pin %d -> HIGH)", r.shutterPin)
	if err := r.gpio.WritePin(r.shutterPin, gpio.High); err != nil {
		_ = r.gpio.WritePin(r.focusPin, gpio.High)
		return err
	}

	debug.Verbose("Release: releasing FOCUS (pin %d -> HIGH)", r.focusPin)
	if err := r.gpio.WritePin(r.focusPin, gpio.High); err != nil {
		return err
	}

	debug.Live("Release: shot triggered")
	return nil
}

// Close releases the GPIO driver.
func (r *Release) Close() error {
	return r.gpio.Close()
}

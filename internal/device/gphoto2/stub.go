//go:build !gphoto2

package gphoto2

import "github.com/cjeanneret/boothcam/internal/device"

// Library is unavailable in this build.
type Library struct{}

// New always fails with ErrNotCompiled.
func New() (*Library, error) {
	return nil, ErrNotCompiled
}

func (*Library) Name() string { return "gphoto2" }

func (*Library) NewContext(device.Callbacks) (device.Context, error) {
	return nil, ErrNotCompiled
}

// Package gphoto2 binds the device contract to libgphoto2.
//
// The binding needs cgo and the libgphoto2 development headers and is only
// compiled with the gphoto2 build tag:
//
//	go build -tags gphoto2 ./cmd/boothcam
//
// Without the tag, New returns ErrNotCompiled.
package gphoto2

import "errors"

// ErrNotCompiled is returned when the binary was built without libgphoto2.
var ErrNotCompiled = errors.New("gphoto2 support not compiled in (build with -tags gphoto2)")

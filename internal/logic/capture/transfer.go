package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
)

// Storage is the part of a device handle used to move files off the camera.
type Storage interface {
	Fetch(loc device.Locator) (device.File, error)
	Delete(loc device.Locator) error
}

// Transferred describes a finished transfer.
type Transferred struct {
	LocalPath string
	// DeleteErr is the cleanup failure, if any. It never fails the transfer.
	DeleteErr error
}

// LocalPath returns where a camera file lands in dir. Any directory part of
// the camera name is dropped.
func LocalPath(dir string, loc device.Locator) (string, error) {
	name := filepath.Base(loc.Name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid camera file name %q", loc.Name)
	}
	return filepath.Join(dir, name), nil
}

// Transfer downloads loc into dir and then removes it from the camera.
// The removal runs exactly once after the download attempt, whatever its
// outcome. A file whose local destination cannot be prepared is not
// downloaded and stays on the camera. An existing local file of the same
// name is overwritten.
func Transfer(st Storage, loc device.Locator, dir string) (t Transferred, err error) {
	debug.Live("capture: got file %s, downloading...", loc)

	local, err := LocalPath(dir, loc)
	if err != nil {
		return t, device.Wrap(device.TransferError, "download", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return t, device.Wrap(device.TransferError, "create output dir", err)
	}

	defer func() {
		debug.Verbose("capture: deleting %s from camera", loc)
		if derr := st.Delete(loc); derr != nil {
			t.DeleteErr = device.Wrap(device.DeletionError, "delete file", derr)
			debug.Warn("capture: %v", t.DeleteErr)
		}
	}()

	f, err := st.Fetch(loc)
	if err != nil {
		return t, device.Wrap(device.TransferError, "download", err)
	}
	if f == nil {
		return t, device.Wrap(device.TransferError, "download", errors.New("no file returned"))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			debug.Verbose("capture: release camera file: %v", cerr)
		}
	}()

	if err := f.Save(local); err != nil {
		return t, device.Wrap(device.TransferError, "save file", err)
	}

	debug.Info("capture: saved %s", local)
	t.LocalPath = local
	return t, nil
}

//go:build gphoto2

package gphoto2

/*
#cgo pkg-config: libgphoto2
#include <stdint.h>
#include <stdlib.h>
#include <gphoto2/gphoto2.h>

void boothcam_set_callbacks(GPContext *context, uintptr_t data);
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"time"
	"unsafe"

	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
	"github.com/cjeanneret/boothcam/internal/logic/settings"
)

// Library talks to cameras through libgphoto2.
type Library struct{}

// New returns the libgphoto2 backend.
func New() (*Library, error) {
	return &Library{}, nil
}

func (*Library) Name() string { return "gphoto2" }

func (*Library) NewContext(cb device.Callbacks) (device.Context, error) {
	ctx := C.gp_context_new()
	if ctx == nil {
		return nil, device.ErrContextCreation
	}
	h := cgo.NewHandle(cb)
	C.boothcam_set_callbacks(ctx, C.uintptr_t(h))
	return &gpContext{ctx: ctx, cb: h}, nil
}

//export goContextCallback
func goContextCallback(kind C.int, text *C.char, data C.uintptr_t) {
	cb, ok := cgo.Handle(data).Value().(device.Callbacks)
	if !ok {
		return
	}
	msg := C.GoString(text)
	switch kind {
	case 0:
		if cb.Error != nil {
			cb.Error(msg)
		}
	case 1:
		if cb.Status != nil {
			cb.Status(msg)
		}
	default:
		if cb.Message != nil {
			cb.Message(msg)
		}
	}
}

func check(ret C.int) error {
	if ret >= C.GP_OK {
		return nil
	}
	return &device.LibError{Code: int(ret), Text: C.GoString(C.gp_result_as_string(ret))}
}

type gpContext struct {
	ctx *C.GPContext
	cb  cgo.Handle
}

func (c *gpContext) NewHandle() (device.Handle, error) {
	var cam *C.Camera
	if err := check(C.gp_camera_new(&cam)); err != nil {
		return nil, err
	}
	return &camera{cam: cam, ctx: c.ctx}, nil
}

func (c *gpContext) Release() error {
	C.gp_context_unref(c.ctx)
	c.cb.Delete()
	return nil
}

type camera struct {
	cam *C.Camera
	ctx *C.GPContext
}

func (c *camera) Init() error {
	return check(C.gp_camera_init(c.cam, c.ctx))
}

func (c *camera) Exit() error {
	return check(C.gp_camera_exit(c.cam, c.ctx))
}

func (c *camera) Free() error {
	return check(C.gp_camera_free(c.cam))
}

func (c *camera) Capture() (device.Locator, error) {
	var path C.CameraFilePath
	if err := check(C.gp_camera_capture(c.cam, C.GP_CAPTURE_IMAGE, &path, c.ctx)); err != nil {
		return device.Locator{}, err
	}
	return locatorOf(&path), nil
}

func (c *camera) TriggerCapture() error {
	return check(C.gp_camera_trigger_capture(c.cam, c.ctx))
}

// WaitForEvent copies the event payload into Go values and frees it
// before returning.
func (c *camera) WaitForEvent(timeout time.Duration) (device.Event, error) {
	var (
		typ  C.CameraEventType
		data unsafe.Pointer
	)
	ret := C.gp_camera_wait_for_event(c.cam, C.int(timeout.Milliseconds()), &typ, &data, c.ctx)
	if data != nil {
		defer C.free(data)
	}
	if err := check(ret); err != nil {
		return nil, err
	}

	switch typ {
	case C.GP_EVENT_FILE_ADDED:
		if data == nil {
			return nil, errors.New("file added event without payload")
		}
		return device.FileAdded{Locator: locatorOf((*C.CameraFilePath)(data))}, nil
	case C.GP_EVENT_CAPTURE_COMPLETE:
		return device.CaptureComplete{}, nil
	case C.GP_EVENT_TIMEOUT:
		return device.Timeout{}, nil
	case C.GP_EVENT_UNKNOWN:
		if data != nil {
			debug.Trace("gphoto2: unknown event: %s", C.GoString((*C.char)(data)))
		}
	}
	return device.Other{Code: int(typ)}, nil
}

func (c *camera) Fetch(loc device.Locator) (device.File, error) {
	var f *C.CameraFile
	if err := check(C.gp_file_new(&f)); err != nil {
		return nil, err
	}

	folder := C.CString(loc.Folder)
	defer C.free(unsafe.Pointer(folder))
	name := C.CString(loc.Name)
	defer C.free(unsafe.Pointer(name))

	if err := check(C.gp_camera_file_get(c.cam, folder, name, C.GP_FILE_TYPE_NORMAL, f, c.ctx)); err != nil {
		C.gp_file_free(f)
		return nil, err
	}
	return &cameraFile{f: f}, nil
}

func (c *camera) Delete(loc device.Locator) error {
	folder := C.CString(loc.Folder)
	defer C.free(unsafe.Pointer(folder))
	name := C.CString(loc.Name)
	defer C.free(unsafe.Pointer(name))

	return check(C.gp_camera_file_delete(c.cam, folder, name, c.ctx))
}

// ConfigTree copies the widget tree into an owned settings tree and frees
// the widgets.
func (c *camera) ConfigTree() (*settings.Node, error) {
	var root *C.CameraWidget
	if err := check(C.gp_camera_get_config(c.cam, &root, c.ctx)); err != nil {
		return nil, err
	}
	defer C.gp_widget_free(root)

	return convert(root), nil
}

type cameraFile struct {
	f *C.CameraFile
}

func (f *cameraFile) Save(localPath string) error {
	p := C.CString(localPath)
	defer C.free(unsafe.Pointer(p))
	return check(C.gp_file_save(f.f, p))
}

func (f *cameraFile) Close() error {
	return check(C.gp_file_free(f.f))
}

func locatorOf(p *C.CameraFilePath) device.Locator {
	return device.Locator{
		Folder: C.GoString(&p.folder[0]),
		Name:   C.GoString(&p.name[0]),
	}
}

func convert(w *C.CameraWidget) *settings.Node {
	var name, label *C.char
	C.gp_widget_get_name(w, &name)
	C.gp_widget_get_label(w, &label)

	n := &settings.Node{Name: goString(name), Label: goString(label)}

	var typ C.CameraWidgetType
	C.gp_widget_get_type(w, &typ)
	switch typ {
	case C.GP_WIDGET_TEXT:
		n.Kind = settings.KindText
		n.Value = settings.Text(widgetString(w))
	case C.GP_WIDGET_RADIO:
		n.Kind = settings.KindRadio
		n.Value = settings.Choice{Current: widgetString(w), Choices: widgetChoices(w)}
	case C.GP_WIDGET_MENU:
		n.Kind = settings.KindMenu
		n.Value = settings.Choice{Current: widgetString(w), Choices: widgetChoices(w)}
	case C.GP_WIDGET_RANGE:
		var v, lo, hi, step C.float
		C.gp_widget_get_value(w, unsafe.Pointer(&v))
		C.gp_widget_get_range(w, &lo, &hi, &step)
		n.Kind = settings.KindRange
		n.Value = settings.Range{Value: float64(v), Min: float64(lo), Max: float64(hi), Step: float64(step)}
	case C.GP_WIDGET_TOGGLE:
		var v C.int
		C.gp_widget_get_value(w, unsafe.Pointer(&v))
		n.Kind = settings.KindToggle
		n.Value = settings.Toggle(v != 0)
	case C.GP_WIDGET_DATE:
		var v C.int
		C.gp_widget_get_value(w, unsafe.Pointer(&v))
		n.Kind = settings.KindDate
		n.Value = settings.Date(v)
	default:
		n.Kind = settings.KindUnknown
	}

	count := int(C.gp_widget_count_children(w))
	for i := 0; i < count; i++ {
		var child *C.CameraWidget
		if C.gp_widget_get_child(w, C.int(i), &child) != C.GP_OK || child == nil {
			continue
		}
		n.Children = append(n.Children, convert(child))
	}
	return n
}

func widgetString(w *C.CameraWidget) string {
	var s *C.char
	if C.gp_widget_get_value(w, unsafe.Pointer(&s)) != C.GP_OK {
		return ""
	}
	return goString(s)
}

func widgetChoices(w *C.CameraWidget) []string {
	count := int(C.gp_widget_count_choices(w))
	if count <= 0 {
		return nil
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var s *C.char
		if C.gp_widget_get_choice(w, C.int(i), &s) == C.GP_OK {
			out = append(out, goString(s))
		}
	}
	return out
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

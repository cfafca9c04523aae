package drm

import (
	"os"
	"unsafe"

	"github.com/gilvbp/egl-wayland/ioctl"
	"github.com/pkg/errors"
)

type (
	syncobjCreate struct {
		handle uint32
		flags  uint32
	}

	syncobjDestroy struct {
		handle uint32
		pad    uint32
	}

	syncobjHandle struct {
		handle uint32
		flags  uint32
		fd     int32
		pad    uint32
	}
)

// SyncobjCreate creates a sync object on the device and returns its handle.
func SyncobjCreate(file *os.File, flags uint32) (uint32, error) {
	args := &syncobjCreate{flags: flags}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLSyncobjCreate), uintptr(unsafe.Pointer(args)))
	if err != nil {
		return 0, errors.Wrap(err, "DRM_IOCTL_SYNCOBJ_CREATE")
	}
	return args.handle, nil
}

func SyncobjDestroy(file *os.File, handle uint32) error {
	err := ioctl.Do(file.Fd(), uintptr(IOCTLSyncobjDestroy),
		uintptr(unsafe.Pointer(&syncobjDestroy{handle: handle})))
	return errors.Wrap(err, "DRM_IOCTL_SYNCOBJ_DESTROY")
}

// SyncobjHandleToFD exports a sync object as a file descriptor owned by the
// caller.
func SyncobjHandleToFD(file *os.File, handle uint32) (int, error) {
	args := &syncobjHandle{handle: handle, fd: -1}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLSyncobjHandleToFD), uintptr(unsafe.Pointer(args)))
	if err != nil {
		return -1, errors.Wrap(err, "DRM_IOCTL_SYNCOBJ_HANDLE_TO_FD")
	}
	return int(args.fd), nil
}

// Syncobjs is the sync object allocator used by the explicit sync probe.
type Syncobjs interface {
	// Supported reports whether the driver behind file has sync objects.
	Supported(file *os.File) bool
	Create(file *os.File) (uint32, error)
	ExportFD(file *os.File, handle uint32) (int, error)
	Destroy(file *os.File, handle uint32) error
}

// KernelSyncobjs implements Syncobjs with the DRM ioctls.
type KernelSyncobjs struct{}

func (KernelSyncobjs) Supported(file *os.File) bool { return HasSyncObj(file) }

func (KernelSyncobjs) Create(file *os.File) (uint32, error) { return SyncobjCreate(file, 0) }

func (KernelSyncobjs) ExportFD(file *os.File, handle uint32) (int, error) {
	return SyncobjHandleToFD(file, handle)
}

func (KernelSyncobjs) Destroy(file *os.File, handle uint32) error {
	return SyncobjDestroy(file, handle)
}

var _ Syncobjs = KernelSyncobjs{}

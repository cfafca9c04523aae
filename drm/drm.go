package drm

import (
	"bytes"
	"os"
	"unsafe"

	"github.com/gilvbp/egl-wayland/ioctl"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const driPath = "/dev/dri"

type (
	version struct {
		Major   int32
		Minor   int32
		Patch   int32
		namelen int64
		name    uintptr
		datelen int64
		date    uintptr
		desclen int64
		desc    uintptr
	}

	// Version of DRM driver
	Version struct {
		Major, Minor, Patch int32
		Name                string // Name of the driver (eg.: nvidia-drm)
		Date                string
		Desc                string
	}
)

// Open opens a device node read/write. The descriptor is not inherited by
// child processes.
func Open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open DRM device %s", path)
	}
	return f, nil
}

func GetVersion(file *os.File) (Version, error) {
	var (
		name, date, desc []byte
	)

	version := &version{}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLVersion),
		uintptr(unsafe.Pointer(version)))
	if err != nil {
		return Version{}, errors.Wrap(err, "DRM_IOCTL_VERSION")
	}

	if version.namelen > 0 {
		name = make([]byte, version.namelen+1)
		version.name = uintptr(unsafe.Pointer(&name[0]))
	}
	if version.datelen > 0 {
		date = make([]byte, version.datelen+1)
		version.date = uintptr(unsafe.Pointer(&date[0]))
	}
	if version.desclen > 0 {
		desc = make([]byte, version.desclen+1)
		version.desc = uintptr(unsafe.Pointer(&desc[0]))
	}

	err = ioctl.Do(file.Fd(), uintptr(IOCTLVersion),
		uintptr(unsafe.Pointer(version)))
	if err != nil {
		return Version{}, errors.Wrap(err, "DRM_IOCTL_VERSION")
	}

	return Version{
		Major: version.Major,
		Minor: version.Minor,
		Patch: version.Patch,
		Name:  trimmed(name, version.namelen),
		Date:  trimmed(date, version.datelen),
		Desc:  trimmed(desc, version.desclen),
	}, nil
}

// trimmed cuts buf to the length the kernel reported and drops C NUL bytes.
func trimmed(buf []byte, n int64) string {
	if int64(len(buf)) > n {
		buf = buf[:n]
	}
	return string(bytes.Trim(buf, "\x00"))
}

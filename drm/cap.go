package drm

import (
	"os"
	"unsafe"

	"github.com/gilvbp/egl-wayland/ioctl"
	"github.com/pkg/errors"
)

type (
	capability struct {
		cap uint64
		val uint64
	}
)

const (
	CapDumbBuffer = iota + 1
	CapVBlankHighCRTC
	CapDumbPreferredDepth
	CapDumbPreferShadow
	CapPrime
	CapTimestampMonotonic
	CapAsyncPageFlip
	CapCursorWidth
	CapCursorHeight

	CapAddFB2Modifiers = 0x10
	CapPageFlipTarget  = 0x11
	CapCRTCInVBlank    = 0x12
	CapSyncObj         = 0x13
	CapSyncObjTimeline = 0x14
)

// GetCap reads a driver capability value.
func GetCap(file *os.File, c uint64) (uint64, error) {
	cap := &capability{cap: c}
	err := ioctl.Do(file.Fd(), uintptr(IOCTLGetCap), uintptr(unsafe.Pointer(cap)))
	if err != nil {
		return 0, errors.Wrapf(err, "DRM_IOCTL_GET_CAP %#x", c)
	}
	return cap.val, nil
}

// HasSyncObj reports whether the driver implements DRM sync objects, the
// kernel side of explicit synchronization.
func HasSyncObj(file *os.File) bool {
	val, err := GetCap(file, CapSyncObj)
	if err != nil {
		return false
	}
	return val != 0
}

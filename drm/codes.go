package drm

import (
	"unsafe"

	"github.com/gilvbp/egl-wayland/ioctl"
)

const IOCTLBase = 'd'

var (
	// DRM_IOWR(0x00, struct drm_version)
	IOCTLVersion = ioctl.IOWR(IOCTLBase, 0x00, unsafe.Sizeof(version{}))

	// DRM_IOWR(0x0c, struct drm_get_cap)
	IOCTLGetCap = ioctl.IOWR(IOCTLBase, 0x0c, unsafe.Sizeof(capability{}))

	// DRM_IOWR(0xBF, struct drm_syncobj_create)
	IOCTLSyncobjCreate = ioctl.IOWR(IOCTLBase, 0xBF, unsafe.Sizeof(syncobjCreate{}))

	// DRM_IOWR(0xC0, struct drm_syncobj_destroy)
	IOCTLSyncobjDestroy = ioctl.IOWR(IOCTLBase, 0xC0, unsafe.Sizeof(syncobjDestroy{}))

	// DRM_IOWR(0xC1, struct drm_syncobj_handle)
	IOCTLSyncobjHandleToFD = ioctl.IOWR(IOCTLBase, 0xC1, unsafe.Sizeof(syncobjHandle{}))
)

package eglwayland

import (
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/pkg/errors"
)

var (
	// ErrNotSupported means the platform does not apply to the compositor,
	// eg. it offers neither EGLStreams nor dma-buf. No EGL error is set.
	ErrNotSupported = errors.New("eglwayland: compositor not supported")

	// ErrNotOnDevice means the compositor renders on a device this driver
	// does not handle. No EGL error is set.
	ErrNotOnDevice = errors.New("eglwayland: compositor is not on a supported device")

	// ErrUnknownDisplay is returned for a Display that was destroyed or does
	// not belong to the directory.
	ErrUnknownDisplay = egl.NewError(egl.BadDisplay, "display", errors.New("unknown display"))
)

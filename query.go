package eglwayland

import (
	"github.com/gilvbp/egl-wayland/egl"
)

// StringName selects a platform query string.
type StringName int

const (
	ClientExtensions StringName = iota
	DisplayExtensions
)

// QueryString returns the extensions the platform exposes. Client
// extensions depend on the EGL version only. Display extensions depend on
// what the device display of dpy supports; a nil dpy gives the client
// extensions.
func QueryString(driver egl.Driver, dpy *Display, name StringName) (string, bool) {
	switch name {
	case ClientExtensions:
		return clientExtensions(driver), true
	case DisplayExtensions:
		if dpy == nil {
			return clientExtensions(driver), true
		}
		return dpy.displayExtensions()
	}
	return "", false
}

func clientExtensions(driver egl.Driver) string {
	major, minor := driver.Version()
	if major > 1 || (major == 1 && minor >= 5) {
		return "EGL_KHR_platform_wayland EGL_EXT_platform_wayland EGL_EXT_explicit_device"
	}
	return "EGL_EXT_platform_wayland"
}

func (d *Display) displayExtensions() (string, bool) {
	leave, err := d.enter()
	if err != nil {
		return "", false
	}
	defer leave()

	exts, ok := d.driver.QueryString(d.dev.Display, egl.Extensions)
	if !ok {
		return "", false
	}
	has := func(name string) bool { return egl.FindExtension(name, exts) }

	if !has("EGL_KHR_stream") || !has("EGL_KHR_stream_producer_eglsurface") {
		return "", false
	}
	switch {
	case has("EGL_KHR_stream_cross_process_fd"):
		return "EGL_EXT_present_opaque EGL_WL_bind_wayland_display EGL_WL_wayland_eglstream", true
	case has("EGL_NV_stream_consumer_eglimage") && has("EGL_MESA_image_dma_buf_export"):
		return "EGL_EXT_present_opaque EGL_WL_bind_wayland_display", true
	}
	return "", false
}

// QueryDisplayAttrib answers EGL_DEVICE_EXT and EGL_TRACK_REFERENCES_KHR and
// forwards other attributes to the device display.
func (d *Display) QueryDisplayAttrib(name egl.Int) (egl.Attrib, error) {
	const op = "QueryDisplayAttrib"

	leave, err := d.enter()
	if err != nil {
		return 0, err
	}
	defer leave()

	if d.initCount == 0 {
		return 0, egl.NewError(egl.NotInitialized, op, nil)
	}

	switch name {
	case egl.DeviceExt:
		return egl.Attrib(d.dev.Device), nil
	case egl.TrackReferencesKHR:
		if d.trackRefs {
			return egl.Attrib(egl.True), nil
		}
		return egl.Attrib(egl.False), nil
	}

	v, ok := d.driver.QueryDisplayAttrib(d.dev.Display, name)
	if !ok {
		return 0, egl.DriverError(d.driver, egl.BadAttribute, op, nil)
	}
	return v, nil
}

// ChooseConfig picks configs on the device display. Windows are backed by
// EGLStreams there, so window configs are asked for as stream configs.
func (d *Display) ChooseConfig(attribs []egl.Int, configSize int) ([]egl.Config, error) {
	leave, err := d.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	list := append(egl.StreamSurfaceAttribs(attribs), egl.None)
	configs, ok := d.driver.ChooseConfig(d.dev.Display, list, configSize)
	if !ok {
		return nil, egl.DriverError(d.driver, egl.BadAttribute, "ChooseConfig", nil)
	}
	return configs, nil
}

// GetConfigAttrib reads a config attribute, reporting stream configs as
// window capable.
func (d *Display) GetConfigAttrib(config egl.Config, attribute egl.Int) (egl.Int, error) {
	leave, err := d.enter()
	if err != nil {
		return 0, err
	}
	defer leave()

	v, ok := d.driver.GetConfigAttrib(d.dev.Display, config, attribute)
	if !ok {
		return 0, egl.DriverError(d.driver, egl.BadAttribute, "GetConfigAttrib", nil)
	}
	if attribute == egl.SurfaceType {
		v = egl.WindowSurfaceType(v)
	}
	return v, nil
}

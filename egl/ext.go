package egl

import "strings"

// FindExtension reports whether name appears as a whole token in the space
// separated extension string exts.
func FindExtension(name, exts string) bool {
	if name == "" {
		return false
	}
	for _, e := range strings.Fields(exts) {
		if e == name {
			return true
		}
	}
	return false
}

// StreamSurfaceAttribs rewrites a config attribute list for the driver, which
// exposes window-capable configs as EGLStream producers: WINDOW_BIT in
// SURFACE_TYPE becomes STREAM_BIT_KHR, and a missing SURFACE_TYPE defaults to
// STREAM_BIT_KHR instead of EGL's default WINDOW_BIT. The list may or may not
// be None terminated; the result is not.
func StreamSurfaceAttribs(attribs []Int) []Int {
	out := make([]Int, 0, len(attribs)+2)
	hasSurfaceType := false

	for i := 0; i+1 < len(attribs) && attribs[i] != None; i += 2 {
		name, value := attribs[i], attribs[i+1]
		if name == SurfaceType {
			hasSurfaceType = true
			if value != DontCare && value&WindowBit != 0 {
				value = value&^WindowBit | StreamBitKHR
			}
		}
		out = append(out, name, value)
	}

	if !hasSurfaceType {
		out = append(out, SurfaceType, StreamBitKHR)
	}
	return out
}

// WindowSurfaceType maps a SURFACE_TYPE value reported by the driver back to
// what the application sees: only stream-capable configs support windows.
func WindowSurfaceType(value Int) Int {
	if value&StreamBitKHR != 0 {
		return value | WindowBit
	}
	return value &^ WindowBit
}

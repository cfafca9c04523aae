package egl

type (
	Int    int32
	Enum   uint32
	Attrib int64

	// Opaque driver handles.
	Display uintptr
	Device  uintptr
	Config  uintptr
	Sync    uintptr
)

const (
	NoDisplay Display = 0
	NoDevice  Device  = 0
	NoSync    Sync    = 0
)

const (
	False Int = 0
	True  Int = 1

	DontCare Int = -1
	None     Int = 0x3038

	SurfaceType Int = 0x3033
	Extensions  Int = 0x3055

	WindowBit    Int = 0x0004
	StreamBitKHR Int = 0x0800

	SyncStatus Int = 0x30F1
	Signaled   Int = 0x30F2

	DeviceExt                Int = 0x322C
	DRMDeviceFileExt         Int = 0x3233
	DRMRenderNodeFileExt     Int = 0x3377
	TrackReferencesKHR       Int = 0x3352
	SyncNativeFenceFDAndroid Int = 0x3145
)

const (
	PlatformDeviceExt  Enum = 0x313F
	PlatformWaylandExt Enum = 0x31D8

	SyncNativeFenceAndroid Enum = 0x3144
)

// Driver is the capability table of the underlying EGL driver. Results that
// EGL signals with a NULL or EGL_FALSE come back as ok == false.
type Driver interface {
	// Version is the EGL version implemented by the client library.
	Version() (major, minor int)
	// SupportsDisplayReference reports EGL_KHR_display_reference.
	SupportsDisplayReference() bool

	GetPlatformDisplay(platform Enum, device Device, attribs []Attrib) Display
	Initialize(dpy Display) (major, minor Int, ok bool)
	Terminate(dpy Display) bool
	QueryString(dpy Display, name Int) (string, bool)
	QueryDeviceString(dev Device, name Int) (string, bool)
	QueryDevices() ([]Device, bool)
	QueryDisplayAttrib(dpy Display, name Int) (Attrib, bool)
	ChooseConfig(dpy Display, attribs []Int, configSize int) ([]Config, bool)
	GetConfigAttrib(dpy Display, config Config, attribute Int) (Int, bool)
	CreateSync(dpy Display, typ Enum, attribs []Attrib) Sync
	DestroySync(dpy Display, sync Sync) bool
	SwapInterval(dpy Display, interval Int) bool
	GetError() Int
}

package device

import (
	"sync"

	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/sirupsen/logrus"
)

// Extensions are the device display extensions the platform depends on.
// They are read once, on first initialization.
type Extensions struct {
	Stream                   bool // EGL_KHR_stream
	StreamAttrib             bool // EGL_NV_stream_attrib
	StreamCrossProcessFD     bool // EGL_KHR_stream_cross_process_fd
	StreamRemote             bool // EGL_NV_stream_remote
	StreamProducerEGLSurface bool // EGL_KHR_stream_producer_eglsurface
	StreamFIFOSynchronous    bool // EGL_NV_stream_fifo_synchronous
	StreamSync               bool // EGL_NV_stream_sync
	StreamFlush              bool // EGL_NV_stream_flush
	StreamConsumerEGLImage   bool // EGL_NV_stream_consumer_eglimage
	ImageDmaBufExport        bool // EGL_MESA_image_dma_buf_export
	NativeFenceSync          bool // EGL_ANDROID_native_fence_sync
}

func parseExtensions(exts string) Extensions {
	has := func(name string) bool { return egl.FindExtension(name, exts) }
	return Extensions{
		Stream:                   has("EGL_KHR_stream"),
		StreamAttrib:             has("EGL_NV_stream_attrib"),
		StreamCrossProcessFD:     has("EGL_KHR_stream_cross_process_fd"),
		StreamRemote:             has("EGL_NV_stream_remote"),
		StreamProducerEGLSurface: has("EGL_KHR_stream_producer_eglsurface"),
		StreamFIFOSynchronous:    has("EGL_NV_stream_fifo_synchronous"),
		StreamSync:               has("EGL_NV_stream_sync"),
		StreamFlush:              has("EGL_NV_stream_flush"),
		StreamConsumerEGLImage:   has("EGL_NV_stream_consumer_eglimage"),
		ImageDmaBufExport:        has("EGL_MESA_image_dma_buf_export"),
		NativeFenceSync:          has("EGL_ANDROID_native_fence_sync"),
	}
}

// Connection is the internal EGL display of one device.
type Connection struct {
	Driver  egl.Driver
	Device  egl.Device
	Display egl.Display

	// Device numbers of the primary and render nodes.
	DevID       drm.DevID
	RenderDevID drm.DevID

	log logrus.FieldLogger

	mu           sync.Mutex
	initCount    int
	major, minor egl.Int
	exts         Extensions
}

// Initialize initializes the native display on first use and counts the
// call.
func (c *Connection) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initCount == 0 {
		major, minor, ok := c.Driver.Initialize(c.Display)
		if !ok {
			return egl.DriverError(c.Driver, egl.NotInitialized, "initialize device display", ErrNativeInit)
		}
		c.major, c.minor = major, minor

		exts, _ := c.Driver.QueryString(c.Display, egl.Extensions)
		c.exts = parseExtensions(exts)

		c.log.WithFields(logrus.Fields{
			"version":    [2]egl.Int{major, minor},
			"extensions": exts,
		}).Debug("initialized device display")
	}

	c.initCount++
	return nil
}

// Terminate undoes one Initialize. The native display is terminated when
// the last one is undone; if that fails the count is left as it was.
func (c *Connection) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initCount == 0 {
		return nil
	}
	if c.initCount == 1 {
		if !c.Driver.Terminate(c.Display) {
			return egl.DriverError(c.Driver, egl.BadDisplay, "terminate device display", ErrNativeTerminate)
		}
		c.log.Debug("terminated device display")
	}
	c.initCount--
	return nil
}

func (c *Connection) forceTerminate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initCount > 0 {
		if !c.Driver.Terminate(c.Display) {
			c.log.WithField("init_count", c.initCount).Warn("terminating device display failed")
		}
		c.initCount = 0
	}
}

// InitCount is the number of Initialize calls not undone yet.
func (c *Connection) InitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initCount
}

// Version is the EGL version reported by the first Initialize.
func (c *Connection) Version() (major, minor egl.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.major, c.minor
}

// Extensions returns the cached extension flags, which are all false before
// the first Initialize.
func (c *Connection) Extensions() Extensions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exts
}

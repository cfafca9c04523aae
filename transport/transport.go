package transport

// Interface names of the globals the platform binds.
const (
	StreamDisplayInterface    = "wl_eglstream_display"
	StreamControllerInterface = "wl_eglstream_controller"
	DmaBufInterface           = "zwp_linux_dmabuf_v1"
	PresentationInterface     = "wp_presentation"
	SyncobjManagerInterface   = "wp_linux_drm_syncobj_manager_v1"
	DRMInterface              = "wl_drm"
)

// wl_eglstream_display capability bits.
const (
	CapStreamFD     int32 = 1 << 0
	CapStreamInet   int32 = 1 << 1
	CapStreamSocket int32 = 1 << 2
)

// TrancheFlagScanout marks a dma-buf feedback tranche usable for direct
// scanout.
const TrancheFlagScanout uint32 = 1

type (
	// Proxy is any bound protocol object.
	Proxy interface {
		Destroy()
	}

	// Queue is a private event queue. Proxies created through a Registry
	// obtained for a queue dispatch their events on it.
	Queue interface {
		Destroy()
	}

	// Conn is a client connection to a compositor.
	Conn interface {
		CreateQueue() (Queue, error)
		// Registry returns a registry whose events go to q.
		Registry(q Queue) (Registry, error)
		// Roundtrip blocks until the compositor processed every request sent
		// so far and every resulting event on q was dispatched.
		Roundtrip(q Queue) error
		DispatchPending() error
		Disconnect() error
	}

	// Connector opens connections. An empty name means the default socket.
	Connector interface {
		Connect(name string) (Conn, error)
	}

	RegistryListener interface {
		Global(name uint32, iface string, version uint32)
		GlobalRemove(name uint32)
	}

	Registry interface {
		Proxy
		AddListener(l RegistryListener) error

		BindStreamDisplay(name, version uint32) (StreamDisplay, error)
		BindStreamController(name, version uint32) (Proxy, error)
		BindDmaBuf(name, version uint32) (DmaBuf, error)
		BindPresentation(name, version uint32) (Proxy, error)
		BindSyncobjManager(name, version uint32) (Proxy, error)
		BindDRM(name, version uint32) (DRM, error)
	}

	StreamDisplayListener interface {
		Caps(caps int32)
		// SwapIntervalOverride asks for interval on the surface whose stream
		// is backed by resource.
		SwapIntervalOverride(interval int32, resource Proxy)
	}

	StreamDisplay interface {
		Proxy
		AddListener(l StreamDisplayListener) error
	}

	DmaBufListener interface {
		Format(format uint32)
		Modifier(format, modifierHi, modifierLo uint32)
	}

	DmaBuf interface {
		Proxy
		Version() uint32
		AddListener(l DmaBufListener) error
		GetDefaultFeedback() (DmaBufFeedback, error)
	}

	// FeedbackListener receives zwp_linux_dmabuf_feedback_v1 events. Device
	// arguments carry a dev_t in host byte order. FormatTable hands over fd;
	// the listener must close it.
	FeedbackListener interface {
		Done()
		FormatTable(fd int, size uint32)
		MainDevice(dev []byte)
		TrancheDone()
		TrancheTargetDevice(dev []byte)
		TrancheFormats(indices []uint16)
		TrancheFlags(flags uint32)
	}

	DmaBufFeedback interface {
		Proxy
		AddListener(l FeedbackListener) error
	}

	DRMListener interface {
		// Device names the DRM node the compositor renders with.
		Device(name string)
	}

	DRM interface {
		Proxy
		AddListener(l DRMListener) error
	}
)

// Modifier joins the two halves of a modifier as sent on the wire.
func Modifier(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

package eglwayland

import (
	"os"
	"sync"

	"github.com/gilvbp/egl-wayland/device"
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/gilvbp/egl-wayland/feedback"
	"github.com/gilvbp/egl-wayland/formats"
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errNoPresentation = errors.New("compositor offers neither wl_eglstream_display nor zwp_linux_dmabuf_v1")

// StreamCaps are the stream transports the compositor accepts.
type StreamCaps struct {
	FD     bool
	Inet   bool
	Socket bool
}

// Display is an EGLDisplay of the Wayland platform.
type Display struct {
	ID uuid.UUID

	dir             *Directory
	driver          egl.Driver
	conn            transport.Conn
	ownsConn        bool
	trackRefs       bool
	requestedDevice egl.Device
	primeOffload    bool
	log             logrus.FieldLogger

	// Guarded by dir.mu.
	refCount int
	freed    bool

	mu        sync.Mutex
	dev       *device.Connection
	drmFile   *os.File
	initCount int

	nativeFenceSync bool
	explicitSync    bool
	caps            StreamCaps

	formats  formats.Set
	feedback *feedback.Feedback
	surfaces []Surface

	queue            transport.Queue
	registry         transport.Registry
	streamDisplay    transport.StreamDisplay
	streamCtl        transport.Proxy
	streamCtlVersion uint32
	dmaBuf           transport.DmaBuf
	dmaBufVersion    uint32
	presentation     transport.Proxy
	syncobjManager   transport.Proxy
}

// enter acquires d and locks it. The returned function undoes both.
func (d *Display) enter() (func(), error) {
	if d == nil || d.dir.Acquire(d) == nil {
		return nil, ErrUnknownDisplay
	}
	d.mu.Lock()
	if d.dev == nil {
		d.mu.Unlock()
		d.dir.Release(d)
		return nil, ErrUnknownDisplay
	}
	return func() {
		d.mu.Unlock()
		d.dir.Release(d)
	}, nil
}

// Initialize initializes the display and returns the EGL version. Calls on
// an initialized display return at once, and are counted when the display
// was created with EGL_TRACK_REFERENCES_KHR.
func (d *Display) Initialize() (major, minor egl.Int, err error) {
	leave, err := d.enter()
	if err != nil {
		return 0, 0, err
	}
	defer leave()

	if d.initCount > 0 {
		major, minor = d.dev.Version()
		if d.trackRefs {
			d.initCount++
		}
		return major, minor, nil
	}

	if err := d.dev.Initialize(); err != nil {
		return 0, 0, err
	}

	d.nativeFenceSync = d.dev.Extensions().NativeFenceSync
	d.checkDriverSyncSupport()

	// From here on failures unwind through terminate. No surface can
	// exist before the first Initialize succeeds.
	d.initCount = 1
	if err := d.bindGlobals(); err != nil {
		d.terminate(teardownUnwind)
		return 0, 0, egl.NewError(egl.BadAlloc, "Initialize", err)
	}

	// No surface exists yet to reconcile the first feedback with.
	d.feedback.MarkConsumed()

	major, minor = d.dev.Version()
	d.log.WithFields(logrus.Fields{
		"version":       [2]egl.Int{major, minor},
		"explicit_sync": d.explicitSync,
	}).Debug("initialized display")
	return major, minor, nil
}

// bindGlobals binds the compositor's globals through a private queue and
// listens to the presentation protocol, preferring EGLStreams.
func (d *Display) bindGlobals() error {
	q, err := d.conn.CreateQueue()
	if err != nil {
		return errors.Wrap(err, "create queue")
	}
	d.queue = q

	reg, err := d.conn.Registry(q)
	if err != nil {
		return errors.Wrap(err, "get registry")
	}
	d.registry = reg

	if err := reg.AddListener(displayGlobals{d}); err != nil {
		return errors.Wrap(err, "add registry listener")
	}
	if err := d.conn.Roundtrip(q); err != nil {
		return errors.Wrap(err, "roundtrip")
	}

	switch {
	case d.streamDisplay != nil:
		if err := d.streamDisplay.AddListener(streamEvents{d}); err != nil {
			return errors.Wrap(err, "listen to wl_eglstream_display")
		}
	case d.dmaBuf != nil:
		if err := d.dmaBuf.AddListener(dmaBufEvents{d}); err != nil {
			return errors.Wrap(err, "listen to zwp_linux_dmabuf_v1")
		}
		if d.dmaBufVersion >= 4 {
			fb, err := d.dmaBuf.GetDefaultFeedback()
			if err != nil {
				return errors.Wrap(err, "get default feedback")
			}
			if err := d.feedback.Register(fb); err != nil {
				fb.Destroy()
				return err
			}
		}
	default:
		return errNoPresentation
	}

	// Catch events caused by binding, such as the stream caps.
	if err := d.conn.Roundtrip(q); err != nil {
		return errors.Wrap(err, "roundtrip")
	}
	return nil
}

// Terminate undoes one Initialize. The display is torn down when the last
// one is undone; if the driver fails to terminate the device display, the
// display stays initialized and Terminate can be retried.
func (d *Display) Terminate() error {
	leave, err := d.enter()
	if err != nil {
		return err
	}
	surfaces, err := d.terminate(teardownCounted)
	leave()

	destroySurfaces(surfaces)
	return err
}

// teardown is how terminate treats the initialization count, driver
// failures and the protocol objects.
type teardown int

const (
	// teardownCounted undoes one Initialize and stops at a driver failure.
	teardownCounted teardown = iota
	// teardownUnwind rolls back a failed Initialize.
	teardownUnwind
	// teardownGlobal ignores the count and leaves the protocol objects of
	// connections the application owns alone, since they may already be
	// gone.
	teardownGlobal
)

// terminate needs d.mu. It returns the surfaces of a torn down display,
// which the caller destroys once it holds no lock.
func (d *Display) terminate(mode teardown) ([]Surface, error) {
	if d.initCount == 0 {
		return nil, nil
	}
	if d.initCount > 1 && mode == teardownCounted {
		d.initCount--
		return nil, nil
	}

	if err := d.dev.Terminate(); err != nil {
		if mode == teardownCounted {
			return nil, err
		}
		d.log.WithError(err).Warn("terminating device display failed, tearing down anyway")
	}
	d.initCount = 0

	surfaces := d.surfaces
	d.surfaces = nil

	if mode != teardownGlobal || d.ownsConn {
		d.formats.Reset()
		d.feedback.Destroy()

		if d.registry != nil {
			d.registry.Destroy()
			d.registry = nil
		}
		if d.streamDisplay != nil {
			d.streamDisplay.Destroy()
			d.streamDisplay = nil
		}
		if d.streamCtl != nil {
			d.streamCtl.Destroy()
			d.streamCtl = nil
		}
		if d.presentation != nil {
			d.presentation.Destroy()
			d.presentation = nil
		}
		if d.syncobjManager != nil {
			d.syncobjManager.Destroy()
			d.syncobjManager = nil
		}
		if d.dmaBuf != nil {
			d.dmaBuf.Destroy()
			d.dmaBuf = nil
		}
		// Only once every proxy on it is gone.
		if d.queue != nil {
			d.queue.Destroy()
			d.queue = nil
		}
	}

	d.log.WithField("global", mode == teardownGlobal).Debug("terminated display")
	return surfaces, nil
}

// Dispatch delivers the events the compositor sent to this display, such
// as dma-buf feedback updates and swap interval overrides.
func (d *Display) Dispatch() error {
	leave, err := d.enter()
	if err != nil {
		return err
	}
	defer leave()

	if d.initCount == 0 {
		return egl.NewError(egl.NotInitialized, "Dispatch", nil)
	}
	return errors.Wrap(d.conn.Roundtrip(d.queue), "roundtrip")
}

type displayGlobals struct{ d *Display }

func (g displayGlobals) Global(name uint32, iface string, version uint32) {
	d := g.d
	log := d.log.WithFields(logrus.Fields{"interface": iface, "version": version})

	var err error
	switch iface {
	case transport.StreamDisplayInterface:
		d.streamDisplay, err = d.registry.BindStreamDisplay(name, 1)
	case transport.StreamControllerInterface:
		v := uint32(1)
		if version > 1 {
			v = 2
		}
		d.streamCtl, err = d.registry.BindStreamController(name, v)
		d.streamCtlVersion = version
	case transport.DmaBufInterface:
		d.dmaBufVersion = version
		if version < 3 {
			log.Debug("skipping dma-buf global older than version 3")
			return
		}
		d.dmaBuf, err = d.registry.BindDmaBuf(name, min(version, 4))
	case transport.PresentationInterface:
		d.presentation, err = d.registry.BindPresentation(name, version)
	case transport.SyncobjManagerInterface:
		if !d.nativeFenceSync || !d.explicitSync {
			return
		}
		d.syncobjManager, err = d.registry.BindSyncobjManager(name, 1)
	default:
		return
	}

	if err != nil {
		log.WithError(err).Warn("cannot bind global")
		return
	}
	log.Debug("bound global")
}

func (displayGlobals) GlobalRemove(uint32) {}

type streamEvents struct{ d *Display }

func (s streamEvents) Caps(caps int32) {
	s.d.caps = StreamCaps{
		FD:     caps&transport.CapStreamFD != 0,
		Inet:   caps&transport.CapStreamInet != 0,
		Socket: caps&transport.CapStreamSocket != 0,
	}
}

func (s streamEvents) SwapIntervalOverride(interval int32, resource transport.Proxy) {
	s.d.overrideSwapInterval(egl.Int(interval), resource)
}

type dmaBufEvents struct{ d *Display }

// Format is ignored, formats only count with a modifier.
func (dmaBufEvents) Format(uint32) {}

func (e dmaBufEvents) Modifier(format, hi, lo uint32) {
	e.d.formats.Add(format, transport.Modifier(hi, lo))
}

// InitCount is the number of Initialize calls not undone yet.
func (d *Display) InitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initCount
}

// RefCount is the number of references held on d, including the
// directory's own.
func (d *Display) RefCount() int {
	d.dir.mu.Lock()
	defer d.dir.mu.Unlock()
	return d.refCount
}

// Freed reports whether the last reference was released.
func (d *Display) Freed() bool {
	d.dir.mu.Lock()
	defer d.dir.mu.Unlock()
	return d.freed
}

// Device returns the EGL device the display renders on, or NoDevice once
// the display was destroyed.
func (d *Display) Device() egl.Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return egl.NoDevice
	}
	return d.dev.Device
}

// PrimeRenderOffload reports whether the display renders on another device
// than the compositor.
func (d *Display) PrimeRenderOffload() bool { return d.primeOffload }

// ExplicitSync reports whether the driver supports explicit sync.
func (d *Display) ExplicitSync() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.explicitSync
}

func (d *Display) StreamCaps() StreamCaps {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

// Formats returns a copy of the formats announced by zwp_linux_dmabuf_v1
// before version 4.
func (d *Display) Formats() *formats.Set {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.formats.Clone()
}

// ConsumeFeedback returns the tranches of the default dma-buf feedback when
// a cycle completed since the last call.
func (d *Display) ConsumeFeedback() ([]feedback.Tranche, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.feedback == nil {
		return nil, false
	}
	return d.feedback.Consume()
}

// Bindings tells which compositor globals a Display bound.
type Bindings struct {
	StreamDisplay    bool
	StreamController bool
	DmaBuf           bool
	Presentation     bool
	SyncobjManager   bool
	Feedback         bool

	// Versions the compositor advertised.
	StreamControllerVersion uint32
	DmaBufVersion           uint32
}

func (d *Display) Bindings() Bindings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Bindings{
		StreamDisplay:           d.streamDisplay != nil,
		StreamController:        d.streamCtl != nil,
		DmaBuf:                  d.dmaBuf != nil,
		Presentation:            d.presentation != nil,
		SyncobjManager:          d.syncobjManager != nil,
		Feedback:                d.feedback != nil && d.feedback.Registered(),
		StreamControllerVersion: d.streamCtlVersion,
		DmaBufVersion:           d.dmaBufVersion,
	}
}

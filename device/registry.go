package device

import (
	"sync"

	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrCreateDisplay   = errors.New("device: cannot create device display")
	ErrDeviceQuery     = errors.New("device: cannot resolve device nodes")
	ErrNativeInit      = errors.New("device: native initialize failed")
	ErrNativeTerminate = errors.New("device: native terminate failed")
)

// Registry holds the connections of every driver. The zero value is not
// usable; use NewRegistry.
type Registry struct {
	mu      sync.Mutex
	entries []*Connection

	log  logrus.FieldLogger
	stat func(path string) (drm.DevID, error)
}

type Option func(*Registry)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Registry) { r.log = log }
}

// WithStat replaces the function that maps device node paths to device
// numbers.
func WithStat(stat func(path string) (drm.DevID, error)) Option {
	return func(r *Registry) { r.stat = stat }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:  logrus.StandardLogger(),
		stat: drm.DevIDOf,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// GetOrCreate returns the connection for (driver, dev), creating its native
// display on first use. A failed creation leaves the registry unchanged.
func (r *Registry) GetOrCreate(driver egl.Driver, dev egl.Device) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.entries {
		if c.Driver == driver && c.Device == dev {
			return c, nil
		}
	}

	var attribs []egl.Attrib
	if driver.SupportsDisplayReference() {
		// Keep other users of the same device display from terminating it
		// under us.
		attribs = []egl.Attrib{egl.Attrib(egl.TrackReferencesKHR), egl.Attrib(egl.True), egl.Attrib(egl.None)}
	}

	dpy := driver.GetPlatformDisplay(egl.PlatformDeviceExt, dev, attribs)
	if dpy == egl.NoDisplay {
		return nil, errors.Wrapf(ErrCreateDisplay, "device %#x", dev)
	}

	primary, err := r.nodeID(driver, dev, egl.DRMDeviceFileExt)
	if err != nil {
		return nil, err
	}
	render, err := r.nodeID(driver, dev, egl.DRMRenderNodeFileExt)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		Driver:      driver,
		Device:      dev,
		Display:     dpy,
		DevID:       primary,
		RenderDevID: render,
		log: r.log.WithFields(logrus.Fields{
			"device": dev,
			"dev_id": primary,
		}),
	}
	r.entries = append(r.entries, c)

	c.log.WithField("render_dev_id", render).Debug("created device display")
	return c, nil
}

func (r *Registry) nodeID(driver egl.Driver, dev egl.Device, name egl.Int) (drm.DevID, error) {
	path, ok := driver.QueryDeviceString(dev, name)
	if !ok {
		return 0, errors.Wrapf(ErrDeviceQuery, "query %#x of device %#x", name, dev)
	}
	id, err := r.stat(path)
	if err != nil {
		return 0, errors.Wrapf(ErrDeviceQuery, "%v", err)
	}
	return id, nil
}

// Len is the number of connections of driver.
func (r *Registry) Len(driver egl.Driver) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.entries {
		if c.Driver == driver {
			n++
		}
	}
	return n
}

// DestroyAll terminates and removes every connection of driver, regardless
// of their initialization counts.
func (r *Registry) DestroyAll(driver egl.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, c := range r.entries {
		if c.Driver != driver {
			kept = append(kept, c)
			continue
		}
		c.forceTerminate()
	}
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = kept
}

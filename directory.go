package eglwayland

import (
	"os"
	"sync"

	"github.com/gilvbp/egl-wayland/config"
	"github.com/gilvbp/egl-wayland/device"
	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/gilvbp/egl-wayland/feedback"
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Directory owns the Displays of a process. Its lock serializes creation,
// lookup and teardown of Displays; each Display has its own lock for its
// state.
type Directory struct {
	mu       sync.Mutex
	displays []*Display

	cfg       config.Config
	cfgFile   string
	devices   *device.Registry
	connector transport.Connector
	resolver  drm.Resolver
	syncobjs  drm.Syncobjs
	openNode  func(path string) (*os.File, error)
	log       logrus.FieldLogger
}

type Option func(*Directory)

// WithConfig sets the configuration. The default is config.FromEnv.
func WithConfig(cfg config.Config) Option {
	return func(d *Directory) { d.cfg = cfg }
}

// WithConfigFile reads the configuration from a YAML file, overlaid with
// the environment. It takes precedence over WithConfig. A file that cannot
// be read or parsed is logged and the environment is used alone.
func WithConfigFile(path string) Option {
	return func(d *Directory) { d.cfgFile = path }
}

// WithConnector sets how default connections are opened when the
// application passes none.
func WithConnector(c transport.Connector) Option {
	return func(d *Directory) { d.connector = c }
}

// WithResolver sets the device identity resolver. The default reads sysfs.
// A nil resolver disables dma-buf feedback device discovery.
func WithResolver(r drm.Resolver) Option {
	return func(d *Directory) { d.resolver = r }
}

func WithSyncobjs(s drm.Syncobjs) Option {
	return func(d *Directory) { d.syncobjs = s }
}

func WithDevices(r *device.Registry) Option {
	return func(d *Directory) { d.devices = r }
}

// WithNodeOpener replaces drm.Open for opening the primary device node.
func WithNodeOpener(open func(path string) (*os.File, error)) Option {
	return func(d *Directory) { d.openNode = open }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Directory) { d.log = log }
}

func NewDirectory(opts ...Option) *Directory {
	d := &Directory{
		cfg:      config.FromEnv(),
		resolver: drm.SysfsResolver{},
		syncobjs: drm.KernelSyncobjs{},
		openNode: drm.Open,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.cfgFile != "" {
		cfg, err := config.Load(d.cfgFile)
		if err != nil {
			d.log.WithError(err).Warn("ignoring platform config file")
			cfg = config.FromEnv()
		}
		d.cfg = cfg
	}
	if d.devices == nil {
		d.devices = device.NewRegistry(device.WithLogger(d.log))
	}
	return d
}

// Config returns the configuration the directory was built with.
func (dir *Directory) Config() config.Config { return dir.cfg }

// IsValidNativeDisplay reports whether native can be used with this
// platform: Wayland was asked for explicitly, or native is a Wayland
// connection.
func (dir *Directory) IsValidNativeDisplay(native any) bool {
	if dir.cfg.WaylandPlatform() {
		return true
	}
	_, ok := native.(transport.Conn)
	return ok
}

// GetPlatformDisplay returns the Display for conn, creating it if needed.
// A nil conn means a connection to the default compositor, owned by the
// Display. attribs is a None terminated list of name/value pairs accepting
// EGL_TRACK_REFERENCES_KHR and EGL_DEVICE_EXT.
//
// ErrNotSupported and ErrNotOnDevice report that the platform does not
// apply; other errors carry an EGL error code.
func (dir *Directory) GetPlatformDisplay(driver egl.Driver, platform egl.Enum, conn transport.Conn, attribs []egl.Attrib) (*Display, error) {
	const op = "GetPlatformDisplay"

	if platform != egl.PlatformWaylandExt {
		return nil, egl.NewError(egl.BadParameter, op, errors.Errorf("platform %#x", uint32(platform)))
	}

	trackRefs := false
	requested := egl.NoDevice
	for i := 0; i < len(attribs) && attribs[i] != egl.Attrib(egl.None); i += 2 {
		name := attribs[i]
		if i+1 >= len(attribs) {
			return nil, egl.NewError(egl.BadAttribute, op, errors.Errorf("attribute %#x has no value", name))
		}
		value := attribs[i+1]

		switch egl.Int(name) {
		case egl.TrackReferencesKHR:
			if value != egl.Attrib(egl.True) && value != egl.Attrib(egl.False) {
				return nil, egl.NewError(egl.BadAttribute, op, errors.Errorf("EGL_TRACK_REFERENCES_KHR value %d", value))
			}
			trackRefs = value == egl.Attrib(egl.True)
		case egl.DeviceExt:
			requested = egl.Device(value)
			if requested == egl.NoDevice {
				return nil, egl.NewError(egl.BadDevice, op, errors.New("EGL_NO_DEVICE_EXT requested"))
			}
		default:
			return nil, egl.NewError(egl.BadAttribute, op, errors.Errorf("attribute %#x", name))
		}
	}

	return dir.lookupOrCreate(driver, conn, requested, trackRefs)
}

func (dir *Directory) lookupOrCreate(driver egl.Driver, conn transport.Conn, requested egl.Device, trackRefs bool) (*Display, error) {
	const op = "GetPlatformDisplay"

	dir.mu.Lock()
	defer dir.mu.Unlock()

	for _, d := range dir.displays {
		if d.driver == driver &&
			(d.conn == conn || (conn == nil && d.ownsConn)) &&
			d.trackRefs == trackRefs &&
			d.requestedDevice == requested {
			return d, nil
		}
	}

	d := &Display{
		ID:              uuid.New(),
		dir:             dir,
		driver:          driver,
		conn:            conn,
		trackRefs:       trackRefs,
		requestedDevice: requested,
	}
	d.log = dir.log.WithField("display", d.ID)

	if d.conn == nil {
		if dir.connector == nil {
			return nil, egl.NewError(egl.BadAlloc, op, errors.New("no default connection available"))
		}
		c, err := dir.connector.Connect("")
		if err != nil {
			return nil, egl.NewError(egl.BadAlloc, op, errors.Wrap(err, "connect to compositor"))
		}
		d.conn = c
		d.ownsConn = true
		if err := c.DispatchPending(); err != nil {
			d.log.WithError(err).Debug("dispatching pending events")
		}
	}

	if err := dir.setup(d); err != nil {
		if d.ownsConn {
			d.conn.Disconnect()
		}
		return nil, err
	}

	d.refCount = 1
	d.feedback = feedback.New(d.log)
	dir.displays = append(dir.displays, d)

	d.log.WithFields(logrus.Fields{
		"device":        d.dev.Device,
		"dev_id":        d.dev.DevID,
		"prime_offload": d.primeOffload,
	}).Debug("created display")
	return d, nil
}

// setup finds the compositor's device and the EGL device to render on.
func (dir *Directory) setup(d *Display) error {
	const op = "GetPlatformDisplay"

	protocols, err := dir.probeServer(d.conn, d.log)
	if err != nil {
		return egl.NewError(egl.BadAlloc, op, err)
	}

	onVendor := dir.checkVendor(&protocols, d.log)
	if !dir.cfg.PrimeRenderOffload && d.requestedDevice == egl.NoDevice && !onVendor {
		return errors.Wrapf(ErrNotOnDevice, "compositor renders on %s", protocols.drmName)
	}
	if !protocols.hasStream && !protocols.hasDmaBuf {
		return errors.Wrap(ErrNotSupported, "neither wl_eglstream_display nor zwp_linux_dmabuf_v1 offered")
	}

	dev, err := dir.selectDevice(d, protocols.drmName)
	if err != nil {
		return err
	}

	conn, err := dir.devices.GetOrCreate(d.driver, dev)
	if err != nil {
		return egl.NewError(egl.BadAlloc, op, err)
	}

	primary, ok := d.driver.QueryDeviceString(dev, egl.DRMDeviceFileExt)
	if !ok {
		return egl.NewError(egl.BadAlloc, op, errors.Wrapf(device.ErrDeviceQuery, "device %#x", dev))
	}
	f, err := dir.openNode(primary)
	if err != nil {
		return egl.NewError(egl.BadAlloc, op, err)
	}

	d.dev = conn
	d.drmFile = f
	return nil
}

// selectDevice picks the EGL device: the requested one, else the one the
// compositor renders with. With render offload any device will do.
func (dir *Directory) selectDevice(d *Display, serverNode string) (egl.Device, error) {
	devs, ok := d.driver.QueryDevices()
	if !ok || len(devs) == 0 {
		return egl.NoDevice, errors.Wrap(ErrNotSupported, "no EGL devices")
	}

	renderNode := func(dev egl.Device) string {
		node, _ := d.driver.QueryDeviceString(dev, egl.DRMRenderNodeFileExt)
		return node
	}

	if d.requestedDevice != egl.NoDevice {
		for _, dev := range devs {
			if dev == d.requestedDevice {
				d.primeOffload = renderNode(dev) != serverNode
				return dev, nil
			}
		}
		return egl.NoDevice, egl.NewError(egl.BadDevice, "GetPlatformDisplay", errors.Errorf("device %#x is not an EGL device", d.requestedDevice))
	}

	for _, dev := range devs {
		if node := renderNode(dev); node != "" && node == serverNode {
			return dev, nil
		}
	}
	if dir.cfg.PrimeRenderOffload {
		d.primeOffload = true
		return devs[0], nil
	}
	return egl.NoDevice, errors.Wrapf(ErrNotSupported, "no EGL device renders on %s", serverNode)
}

// Acquire takes a reference on d if it is still in the directory, and
// returns nil otherwise.
func (dir *Directory) Acquire(d *Display) *Display {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	for _, live := range dir.displays {
		if live == d {
			d.refCount++
			return d
		}
	}
	return nil
}

// Release drops a reference taken by Acquire. The last one closes the
// device node.
func (dir *Directory) Release(d *Display) {
	dir.mu.Lock()
	defer dir.mu.Unlock()
	dir.unref(d)
}

func (dir *Directory) unref(d *Display) {
	if d.refCount <= 0 {
		d.log.Warn("display released more often than acquired")
		return
	}
	d.refCount--
	if d.refCount > 0 {
		return
	}

	if d.drmFile != nil {
		d.drmFile.Close()
		d.drmFile = nil
	}
	d.freed = true
	d.log.Debug("freed display")
}

// Len is the number of Displays in the directory.
func (dir *Directory) Len() int {
	dir.mu.Lock()
	defer dir.mu.Unlock()
	return len(dir.displays)
}

// DestroyAll tears down every Display of driver, ignoring initialization
// counts, then the device displays of driver. Displays still referenced
// elsewhere are freed on their last Release. Surfaces are destroyed last,
// outside the directory lock.
func (dir *Directory) DestroyAll(driver egl.Driver) error {
	surfaces, err := dir.destroyAll(driver)
	destroySurfaces(surfaces)
	return err
}

func (dir *Directory) destroyAll(driver egl.Driver) ([]Surface, error) {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	var firstErr error
	var surfaces []Surface
	kept := dir.displays[:0]
	removed := []*Display{}
	for _, d := range dir.displays {
		if d.driver != driver {
			kept = append(kept, d)
			continue
		}
		removed = append(removed, d)
	}
	for i := len(kept); i < len(dir.displays); i++ {
		dir.displays[i] = nil
	}
	dir.displays = kept

	for _, d := range removed {
		d.mu.Lock()
		ss, _ := d.terminate(teardownGlobal)
		surfaces = append(surfaces, ss...)
		if d.ownsConn {
			if err := d.conn.Disconnect(); err != nil && firstErr == nil {
				firstErr = errors.Wrap(err, "disconnect")
			}
		}
		d.dev = nil
		d.mu.Unlock()

		dir.unref(d)
	}

	dir.devices.DestroyAll(driver)
	return surfaces, firstErr
}

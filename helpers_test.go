package eglwayland_test

import (
	"os"
	"testing"

	eglwayland "github.com/gilvbp/egl-wayland"
	"github.com/gilvbp/egl-wayland/config"
	"github.com/gilvbp/egl-wayland/device"
	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/gilvbp/egl-wayland/egl/mocks"
	"github.com/gilvbp/egl-wayland/formats"
	"github.com/gilvbp/egl-wayland/internal/fakewl"
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const (
	dev0 egl.Device  = 0x100
	dev1 egl.Device  = 0x200
	dpy0 egl.Display = 0x1000
	dpy1 egl.Display = 0x2000

	fourccXR24 uint32 = 0x34325258
	fourccAR24 uint32 = 0x34325241

	streamExts = "EGL_KHR_stream EGL_KHR_stream_producer_eglsurface EGL_KHR_stream_cross_process_fd"
	dmaBufExts = "EGL_KHR_stream EGL_KHR_stream_producer_eglsurface EGL_NV_stream_consumer_eglimage EGL_MESA_image_dma_buf_export"
)

var (
	nvidiaGPU = drm.Identity{
		DevID:       drm.MakeDevID(226, 128),
		PrimaryNode: "/dev/dri/card0",
		RenderNode:  "/dev/dri/renderD128",
		Bus:         "pci",
		VendorID:    drm.VendorNVIDIA,
		DriverName:  "nvidia-drm",
	}
	intelGPU = drm.Identity{
		DevID:       drm.MakeDevID(226, 129),
		PrimaryNode: "/dev/dri/card1",
		RenderNode:  "/dev/dri/renderD129",
		Bus:         "pci",
		VendorID:    0x8086,
		DriverName:  "i915",
	}

	deviceNodes = map[egl.Device][2]string{
		dev0: {"/dev/dri/card0", "/dev/dri/renderD128"},
		dev1: {"/dev/dri/card1", "/dev/dri/renderD129"},
	}
	deviceDisplays = map[egl.Device]egl.Display{dev0: dpy0, dev1: dpy1}

	formatTable = []formats.Entry{
		{Format: fourccXR24, Modifier: formats.ModifierLinear},
		{Format: fourccAR24, Modifier: formats.ModifierLinear},
		{Format: fourccXR24, Modifier: 0x0300000000000014},
	}
)

// resolver knows the devices by node path and by device number.
type resolver struct {
	idents []drm.Identity
}

func (r resolver) LookupDevID(id drm.DevID) (drm.Identity, error) {
	for _, ident := range r.idents {
		if ident.DevID == id {
			return ident, nil
		}
	}
	return drm.Identity{}, drm.ErrNoDevice
}

func (r resolver) Identify(path string) (drm.Identity, error) {
	for _, ident := range r.idents {
		if ident.PrimaryNode == path || ident.RenderNode == path {
			return ident, nil
		}
	}
	return drm.Identity{}, errors.Wrapf(drm.ErrNoDevice, "%s", path)
}

func stat(path string) (drm.DevID, error) {
	for _, ident := range []drm.Identity{nvidiaGPU, intelGPU} {
		switch path {
		case ident.RenderNode:
			return ident.DevID, nil
		case ident.PrimaryNode:
			return drm.MakeDevID(226, ident.DevID.Minor()-128), nil
		}
	}
	return 0, errors.Errorf("stat %s: no such file or directory", path)
}

// syncobjs hands out the read end of a pipe as the exported fence, so a
// test can tell whether it was closed by writing to the other end.
type syncobjs struct {
	t          *testing.T
	noSyncobj  bool
	createErr  error
	created    int
	destroyed  int
	writeEnd   int
	exportedFD int
}

func (s *syncobjs) Supported(*os.File) bool { return !s.noSyncobj }

func (s *syncobjs) Create(*os.File) (uint32, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.created++
	return 7, nil
}

func (s *syncobjs) ExportFD(_ *os.File, handle uint32) (int, error) {
	var p [2]int
	require.NoError(s.t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	s.exportedFD, s.writeEnd = p[0], p[1]
	s.t.Cleanup(func() { unix.Close(s.writeEnd) })
	return p[0], nil
}

func (s *syncobjs) Destroy(_ *os.File, handle uint32) error {
	s.destroyed++
	return nil
}

// fenceClosed reports whether the exported fence fd was closed.
func (s *syncobjs) fenceClosed() bool {
	_, err := unix.Write(s.writeEnd, []byte{0})
	return errors.Is(err, unix.EPIPE)
}

type env struct {
	t        *testing.T
	comp     *fakewl.Compositor
	driver   *mocks.Driver
	devices  *device.Registry
	syncobjs *syncobjs
	dir      *eglwayland.Directory
	logs     *test.Hook
}

type envOptions struct {
	cfg      config.Config
	exts     string
	devices  []egl.Device
	server   drm.Identity
	resolver *resolver

	// dmaBuf is the advertised zwp_linux_dmabuf_v1 version, 4 when zero.
	dmaBuf   uint32
	noDmaBuf bool

	// expect registers driver expectations ahead of the defaults, so they
	// take precedence.
	expect func(d *mocks.Driver)
}

// newEnv sets up a compositor on an NVIDIA GPU offering dma-buf with
// feedback, and a driver with one device on the same GPU.
func newEnv(t *testing.T, o envOptions) *env {
	t.Helper()

	if o.exts == "" {
		o.exts = dmaBufExts
	}
	if o.devices == nil {
		o.devices = []egl.Device{dev0}
	}
	if o.server.DevID == 0 {
		o.server = nvidiaGPU
	}
	if o.resolver == nil {
		o.resolver = &resolver{idents: []drm.Identity{nvidiaGPU, intelGPU}}
	}

	if o.dmaBuf == 0 {
		o.dmaBuf = 4
	}

	comp := fakewl.New()
	if !o.noDmaBuf {
		comp.AddGlobal(transport.DmaBufInterface, o.dmaBuf)
	}
	comp.Feedback = &fakewl.Advertisement{
		Table:      formatTable,
		MainDevice: o.server.DevID,
		Tranches: []fakewl.Tranche{
			{Target: o.server.DevID, Flags: transport.TrancheFlagScanout, Indices: []uint16{0, 2}},
		},
	}

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	e := &env{
		t:        t,
		comp:     comp,
		driver:   mocks.NewDriver(t),
		devices:  device.NewRegistry(device.WithLogger(log), device.WithStat(stat)),
		syncobjs: &syncobjs{t: t},
		logs:     hook,
	}
	if o.expect != nil {
		o.expect(e.driver)
	}
	expectDriver(e.driver, o.exts, o.devices)

	e.dir = eglwayland.NewDirectory(
		eglwayland.WithConfig(o.cfg),
		eglwayland.WithConnector(comp),
		eglwayland.WithResolver(o.resolver),
		eglwayland.WithSyncobjs(e.syncobjs),
		eglwayland.WithDevices(e.devices),
		eglwayland.WithNodeOpener(func(string) (*os.File, error) { return os.Open(os.DevNull) }),
		eglwayland.WithLogger(log),
	)
	return e
}

// expectDriver allows the calls every display makes on a working driver.
// Tests count the ones they care about.
func expectDriver(d *mocks.Driver, exts string, devs []egl.Device) {
	d.On("QueryDevices").Return(devs, true).Maybe()
	d.On("SupportsDisplayReference").Return(false).Maybe()
	for dev, nodes := range deviceNodes {
		dpy := deviceDisplays[dev]
		d.On("QueryDeviceString", dev, egl.DRMDeviceFileExt).Return(nodes[0], true).Maybe()
		d.On("QueryDeviceString", dev, egl.DRMRenderNodeFileExt).Return(nodes[1], true).Maybe()
		d.On("GetPlatformDisplay", egl.PlatformDeviceExt, dev, mock.Anything).Return(dpy).Maybe()
		d.On("Initialize", dpy).Return(egl.Int(1), egl.Int(5), true).Maybe()
		d.On("QueryString", dpy, egl.Extensions).Return(exts, true).Maybe()
		d.On("Terminate", dpy).Return(true).Maybe()
	}
}

func (e *env) display(conn transport.Conn, attribs ...egl.Attrib) *eglwayland.Display {
	e.t.Helper()
	if len(attribs) > 0 {
		attribs = append(attribs, egl.Attrib(egl.None))
	}
	d, err := e.dir.GetPlatformDisplay(e.driver, egl.PlatformWaylandExt, conn, attribs)
	require.NoError(e.t, err)
	return d
}

func trackReferences() []egl.Attrib {
	return []egl.Attrib{egl.Attrib(egl.TrackReferencesKHR), egl.Attrib(egl.True)}
}

type surface struct {
	resource     transport.Proxy
	swapInterval egl.Int
	destroyed    int
}

func (s *surface) StreamResource() transport.Proxy { return s.resource }
func (s *surface) SetSwapInterval(i egl.Int)       { s.swapInterval = i }
func (s *surface) Destroy()                        { s.destroyed++ }

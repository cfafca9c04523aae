package eglwayland

import (
	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var errNoServerDevice = errors.New("compositor did not name its DRM device")

// serverProtocols is what the compositor offers, learned before any
// Display exists.
type serverProtocols struct {
	hasStream bool
	hasDmaBuf bool
	drmName   string
}

type probe struct {
	serverProtocols
	reg      transport.Registry
	resolver drm.Resolver
	log      logrus.FieldLogger

	dmaBuf transport.DmaBuf
	wlDRM  transport.DRM

	mainDevice    drm.DevID
	hasMainDevice bool
}

func (p *probe) Global(name uint32, iface string, version uint32) {
	log := p.log.WithFields(logrus.Fields{"interface": iface, "version": version})

	switch iface {
	case transport.StreamDisplayInterface:
		p.hasStream = true
	case transport.DmaBufInterface:
		if version < 3 {
			return
		}
		p.hasDmaBuf = true
		if version >= 4 && p.dmaBuf == nil {
			d, err := p.reg.BindDmaBuf(name, 4)
			if err != nil {
				log.WithError(err).Warn("cannot bind global")
				return
			}
			p.dmaBuf = d
		}
	case transport.DRMInterface:
		if version < 2 || p.wlDRM != nil {
			return
		}
		d, err := p.reg.BindDRM(name, 2)
		if err != nil {
			log.WithError(err).Warn("cannot bind global")
			return
		}
		p.wlDRM = d
		if err := d.AddListener(p); err != nil {
			log.WithError(err).Warn("cannot listen to wl_drm")
		}
	}
}

func (p *probe) GlobalRemove(uint32) {}

// Device is the wl_drm device event.
func (p *probe) Device(name string) { p.drmName = name }

// probeFeedback only looks for the main device of the default feedback.
type probeFeedback struct{ p *probe }

func (f probeFeedback) MainDevice(dev []byte) {
	if id, ok := drm.DevIDFromBytes(dev); ok {
		f.p.mainDevice, f.p.hasMainDevice = id, true
	}
}

func (f probeFeedback) Done() {
	if !f.p.hasMainDevice {
		return
	}
	ident, err := f.p.resolver.LookupDevID(f.p.mainDevice)
	if err != nil {
		f.p.log.WithError(err).WithField("dev_id", f.p.mainDevice).Debug("cannot resolve main device")
		return
	}
	if ident.RenderNode != "" {
		f.p.drmName = ident.RenderNode
	}
}

func (probeFeedback) FormatTable(fd int, size uint32) { unix.Close(fd) }
func (probeFeedback) TrancheDone()                    {}
func (probeFeedback) TrancheTargetDevice(dev []byte)  {}
func (probeFeedback) TrancheFormats(indices []uint16) {}
func (probeFeedback) TrancheFlags(flags uint32)       {}

// probeServer lists the compositor's globals on a private queue and finds
// the DRM node it renders with, from dma-buf feedback when available and
// from wl_drm otherwise.
func (dir *Directory) probeServer(conn transport.Conn, log logrus.FieldLogger) (serverProtocols, error) {
	q, err := conn.CreateQueue()
	if err != nil {
		return serverProtocols{}, errors.Wrap(err, "create probe queue")
	}
	defer q.Destroy()

	reg, err := conn.Registry(q)
	if err != nil {
		return serverProtocols{}, errors.Wrap(err, "get registry")
	}
	defer reg.Destroy()

	p := &probe{reg: reg, resolver: dir.resolver, log: log}
	defer func() {
		if p.dmaBuf != nil {
			p.dmaBuf.Destroy()
		}
		if p.wlDRM != nil {
			p.wlDRM.Destroy()
		}
	}()

	if err := reg.AddListener(p); err != nil {
		return serverProtocols{}, errors.Wrap(err, "add registry listener")
	}
	if err := conn.Roundtrip(q); err != nil {
		return serverProtocols{}, errors.Wrap(err, "roundtrip")
	}
	// Events caused by binding, such as wl_drm.device.
	if err := conn.Roundtrip(q); err != nil {
		return serverProtocols{}, errors.Wrap(err, "roundtrip")
	}

	if p.dmaBuf != nil && dir.resolver != nil {
		fb, err := p.dmaBuf.GetDefaultFeedback()
		if err == nil {
			if err := fb.AddListener(probeFeedback{p}); err == nil {
				if err := conn.Roundtrip(q); err != nil {
					log.WithError(err).Debug("default feedback roundtrip")
				}
			}
			fb.Destroy()
		}
	}

	if p.drmName == "" {
		return p.serverProtocols, errNoServerDevice
	}
	log.WithFields(logrus.Fields{
		"eglstream": p.hasStream,
		"dmabuf":    p.hasDmaBuf,
		"drm_node":  p.drmName,
	}).Debug("probed compositor")
	return p.serverProtocols, nil
}

var nvidiaDrivers = []string{"nvidia-drm", "tegra-udrm", "tegra"}

// checkVendor reports whether the compositor's device is an NVIDIA one.
// It also moves drmName to the device's render node.
func (dir *Directory) checkVendor(protocols *serverProtocols, log logrus.FieldLogger) bool {
	if dir.resolver == nil {
		return false
	}

	ident, err := dir.resolver.Identify(protocols.drmName)
	if err != nil {
		log.WithError(err).WithField("drm_node", protocols.drmName).Debug("cannot identify compositor device")
		return false
	}
	if ident.RenderNode != "" {
		protocols.drmName = ident.RenderNode
	}

	if ident.IsPCI() && ident.VendorID == drm.VendorNVIDIA {
		return true
	}
	for _, name := range nvidiaDrivers {
		if ident.DriverName == name {
			return true
		}
	}
	return false
}

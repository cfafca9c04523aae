package drm

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VendorNVIDIA is the PCI vendor id of NVIDIA devices.
const VendorNVIDIA = 0x10de

// ErrNoDevice is returned when no DRM device exists for a device number.
var ErrNoDevice = errors.New("drm: no such device")

// Identity describes the device behind a DRM node.
type Identity struct {
	DevID       DevID
	PrimaryNode string // /dev/dri/cardN, if any
	RenderNode  string // /dev/dri/renderDN, if any
	Bus         string // subsystem name, eg. "pci" or "platform"
	VendorID    uint16 // PCI vendor, zero off PCI
	DriverName  string // DRM_IOCTL_VERSION name, if the node could be opened
}

// IsPCI reports whether the device sits on the PCI bus.
func (id Identity) IsPCI() bool { return id.Bus == "pci" }

// Resolver maps device numbers and node paths to device identities.
type Resolver interface {
	LookupDevID(id DevID) (Identity, error)
	Identify(path string) (Identity, error)
}

// SysfsResolver resolves identities through /sys/dev/char, like libdrm's
// drmGetDeviceFromDevId. Empty roots mean the real /sys and /dev/dri.
type SysfsResolver struct {
	SysRoot string
	DevRoot string
}

var _ Resolver = SysfsResolver{}

func (r SysfsResolver) sysRoot() string {
	if r.SysRoot == "" {
		return "/sys"
	}
	return r.SysRoot
}

func (r SysfsResolver) devRoot() string {
	if r.DevRoot == "" {
		return driPath
	}
	return r.DevRoot
}

// LookupDevID finds the nodes, bus and vendor of the device id belongs to.
func (r SysfsResolver) LookupDevID(id DevID) (Identity, error) {
	devDir := filepath.Join(r.sysRoot(), "dev", "char", id.String(), "device")

	nodes, err := os.ReadDir(filepath.Join(devDir, "drm"))
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, errors.Wrapf(ErrNoDevice, "device %s", id)
		}
		return Identity{}, errors.Wrapf(err, "read drm nodes of %s", id)
	}

	ident := Identity{DevID: id}
	for _, n := range nodes {
		name := n.Name()
		switch {
		case strings.HasPrefix(name, "renderD"):
			ident.RenderNode = filepath.Join(r.devRoot(), name)
		case strings.HasPrefix(name, "card"):
			ident.PrimaryNode = filepath.Join(r.devRoot(), name)
		}
	}

	if sub, err := os.Readlink(filepath.Join(devDir, "subsystem")); err == nil {
		ident.Bus = filepath.Base(sub)
	}
	if ident.IsPCI() {
		raw, err := os.ReadFile(filepath.Join(devDir, "vendor"))
		if err == nil {
			v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 0, 16)
			if err == nil {
				ident.VendorID = uint16(v)
			}
		}
	}

	return ident, nil
}

// Identify resolves the device behind the node at path. The driver name is
// filled in when the node can be opened; failing that is not an error.
func (r SysfsResolver) Identify(path string) (Identity, error) {
	id, err := DevIDOf(path)
	if err != nil {
		return Identity{}, err
	}

	ident, err := r.LookupDevID(id)
	if err != nil && !errors.Is(err, ErrNoDevice) {
		return Identity{}, err
	}
	ident.DevID = id

	f, err := Open(path)
	if err != nil {
		return ident, nil
	}
	defer f.Close()
	if v, err := GetVersion(f); err == nil {
		ident.DriverName = v.Name
	}
	return ident, nil
}

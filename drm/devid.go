package drm

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DevID is a device number (dev_t) identifying a DRM node.
type DevID uint64

// DevIDSize is the size of a dev_t as carried in wayland arrays.
const DevIDSize = 8

// DevIDOf stats path and returns the device number of the node it names.
func DevIDOf(path string) (DevID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	return DevID(st.Rdev), nil
}

// DevIDFromBytes decodes a dev_t sent by the compositor. The second result
// is false when the payload does not have the size of a dev_t.
func DevIDFromBytes(b []byte) (DevID, bool) {
	if len(b) != DevIDSize {
		return 0, false
	}
	return DevID(binary.NativeEndian.Uint64(b)), true
}

// Bytes encodes id the way the compositor sends it.
func (id DevID) Bytes() []byte {
	b := make([]byte, DevIDSize)
	binary.NativeEndian.PutUint64(b, uint64(id))
	return b
}

func (id DevID) Major() uint32 { return unix.Major(uint64(id)) }
func (id DevID) Minor() uint32 { return unix.Minor(uint64(id)) }

func (id DevID) String() string {
	return fmt.Sprintf("%d:%d", id.Major(), id.Minor())
}

// MakeDevID builds a device number from its major and minor parts.
func MakeDevID(major, minor uint32) DevID {
	return DevID(unix.Mkdev(major, minor))
}

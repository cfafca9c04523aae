package formats

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// EntrySize is the size of a format table entry: a u32 format, 4 bytes of
// padding and a u64 modifier, in host byte order.
const EntrySize = 16

// ErrTableSize is returned for a table whose byte size is not a whole number
// of entries.
var ErrTableSize = errors.New("formats: table size is not a multiple of the entry size")

// Entry is one (format, modifier) pair of a format table.
type Entry struct {
	Format   uint32
	Modifier uint64
}

// Table is a read-only format table mapped from a compositor supplied file
// descriptor. A nil *Table is an empty table.
type Table struct {
	data []byte
}

// MapTable maps size bytes of fd privately and read-only. The caller keeps
// ownership of fd and may close it once MapTable returns. The size is
// checked before anything is mapped.
func MapTable(fd int, size uint32) (*Table, error) {
	if size%EntrySize != 0 {
		return nil, errors.Wrapf(ErrTableSize, "%d bytes", size)
	}
	if size == 0 {
		return &Table{}, nil
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "mmap format table")
	}
	return &Table{data: data}, nil
}

// Len is the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.data) / EntrySize
}

// Entry returns entry i, or false when i is out of range.
func (t *Table) Entry(i int) (Entry, bool) {
	if i < 0 || i >= t.Len() {
		return Entry{}, false
	}
	e := t.data[i*EntrySize : (i+1)*EntrySize]
	return Entry{
		Format:   binary.NativeEndian.Uint32(e[0:4]),
		Modifier: binary.NativeEndian.Uint64(e[8:16]),
	}, true
}

// Close unmaps the table. Later calls, and calls on nil or empty tables,
// do nothing.
func (t *Table) Close() error {
	if t == nil || t.data == nil {
		return nil
	}
	data := t.data
	t.data = nil
	return errors.Wrap(unix.Munmap(data), "munmap format table")
}

// EncodeTable lays entries out the way compositors write format tables.
func EncodeTable(entries ...Entry) []byte {
	buf := make([]byte, len(entries)*EntrySize)
	for i, e := range entries {
		binary.NativeEndian.PutUint32(buf[i*EntrySize:], e.Format)
		binary.NativeEndian.PutUint64(buf[i*EntrySize+8:], e.Modifier)
	}
	return buf
}

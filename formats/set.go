// Package formats keeps the dma-buf formats and modifiers a compositor
// accepts, and reads the format table it shares through a file descriptor.
package formats

// Well known modifiers.
const (
	ModifierLinear  uint64 = 0
	ModifierInvalid uint64 = 0x00ffffffffffffff
)

// Format is a fourcc code and the modifiers supported with it, in arrival
// order.
type Format struct {
	Code      uint32
	Modifiers []uint64
}

// Set maps format codes to modifier sets. It only grows until Reset; views
// returned by Formats stay valid while it grows but not across Reset.
// The zero value is an empty set. A Set is not safe for concurrent use.
type Set struct {
	formats []Format
}

// Add records the (format, modifier) pair. Adding a known pair is a no-op.
func (s *Set) Add(format uint32, modifier uint64) {
	for i := range s.formats {
		f := &s.formats[i]
		if f.Code != format {
			continue
		}
		for _, m := range f.Modifiers {
			if m == modifier {
				return
			}
		}
		f.Modifiers = append(f.Modifiers, modifier)
		return
	}

	s.formats = append(s.formats, Format{Code: format, Modifiers: []uint64{modifier}})
}

// Has reports whether the pair was added.
func (s *Set) Has(format uint32, modifier uint64) bool {
	for _, m := range s.Modifiers(format) {
		if m == modifier {
			return true
		}
	}
	return false
}

// Modifiers returns the modifiers of format, or nil.
func (s *Set) Modifiers(format uint32) []uint64 {
	for _, f := range s.formats {
		if f.Code == format {
			return f.Modifiers
		}
	}
	return nil
}

// Formats returns the formats in arrival order.
func (s *Set) Formats() []Format { return s.formats }

// Len is the number of distinct formats.
func (s *Set) Len() int { return len(s.formats) }

// Empty reports whether nothing was added since the last Reset.
func (s *Set) Empty() bool { return len(s.formats) == 0 }

// Reset drops every entry.
func (s *Set) Reset() {
	for i := range s.formats {
		s.formats[i].Modifiers = nil
	}
	s.formats = nil
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	c := &Set{formats: make([]Format, len(s.formats))}
	for i, f := range s.formats {
		c.formats[i] = Format{
			Code:      f.Code,
			Modifiers: append([]uint64(nil), f.Modifiers...),
		}
	}
	return c
}

package eglwayland

import (
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/gilvbp/egl-wayland/transport"
)

// Surface is a window surface created on a Display. Surfaces are destroyed
// with the display.
type Surface interface {
	// StreamResource is the compositor object backing the surface's stream,
	// or nil.
	StreamResource() transport.Proxy
	SetSwapInterval(interval egl.Int)
	// Destroy is called when the display is torn down, after the surface
	// was removed from it and with no lock of the display held.
	Destroy()
}

func (d *Display) AddSurface(s Surface) error {
	leave, err := d.enter()
	if err != nil {
		return err
	}
	defer leave()

	if d.initCount == 0 {
		return egl.NewError(egl.NotInitialized, "AddSurface", nil)
	}
	d.surfaces = append(d.surfaces, s)
	return nil
}

// RemoveSurface forgets s without destroying it. It reports whether s was
// registered.
func (d *Display) RemoveSurface(s Surface) bool {
	leave, err := d.enter()
	if err != nil {
		return false
	}
	defer leave()

	for i, cur := range d.surfaces {
		if cur == s {
			d.surfaces = append(d.surfaces[:i], d.surfaces[i+1:]...)
			return true
		}
	}
	return false
}

// Surfaces is the number of registered surfaces.
func (d *Display) Surfaces() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.surfaces)
}

func destroySurfaces(surfaces []Surface) {
	for _, s := range surfaces {
		s.Destroy()
	}
}

func (d *Display) overrideSwapInterval(interval egl.Int, resource transport.Proxy) {
	for _, s := range d.surfaces {
		if r := s.StreamResource(); r == nil || r != resource {
			continue
		}
		if d.driver.SwapInterval(d.dev.Display, interval) {
			s.SetSwapInterval(interval)
		}
		return
	}
}

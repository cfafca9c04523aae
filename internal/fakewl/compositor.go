// Package fakewl is an in-memory compositor implementing the transport
// interfaces for tests.
//
// Events are queued when the compositor would send them and dispatched by
// Roundtrip on the queue they belong to. Like a real compositor, events
// caused by requests made while dispatching arrive in the next round trip.
package fakewl

import (
	"sync"

	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/formats"
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Object names counted by Destroyed besides the global interfaces.
const (
	QueueObject    = "wl_event_queue"
	RegistryObject = "wl_registry"
	FeedbackObject = "zwp_linux_dmabuf_feedback_v1"
)

var ErrDisconnected = errors.New("fakewl: connection closed")

type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Modifier is a format/modifier pair announced by zwp_linux_dmabuf_v1
// before version 4.
type Modifier struct {
	Format   uint32
	Modifier uint64
}

type Tranche struct {
	Target  drm.DevID
	Flags   uint32
	Indices []uint16
}

// Advertisement is one dma-buf feedback cycle. A nil Table sends no
// format_table event.
type Advertisement struct {
	Table      []formats.Entry
	MainDevice drm.DevID
	Tranches   []Tranche
}

type Compositor struct {
	// Set before connecting.
	DRMDevice     string // wl_drm device event
	Modifiers     []Modifier
	Feedback      *Advertisement // sent to every new default feedback
	StreamCaps    int32          // sent on wl_eglstream_display bind when non-zero
	ConnectErr    error
	RoundtripErr  error
	FailBind      map[string]error
	FailQueue     bool
	FailListeners bool

	mu          sync.Mutex
	globals     []Global
	nextName    uint32
	bound       map[string]uint32
	destroyed   map[string]int
	roundtrips  int
	connects    int
	disconnects int

	streamDisplays []*StreamDisplay
	feedbacks      []*Feedback
}

var _ transport.Connector = (*Compositor)(nil)

func New() *Compositor {
	return &Compositor{
		nextName:  1,
		bound:     make(map[string]uint32),
		destroyed: make(map[string]int),
	}
}

// AddGlobal announces a global and returns its name.
func (c *Compositor) AddGlobal(iface string, version uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := c.nextName
	c.nextName++
	c.globals = append(c.globals, Global{Name: name, Interface: iface, Version: version})
	return name
}

func (c *Compositor) Connect(name string) (transport.Conn, error) {
	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}
	return c.NewConn(), nil
}

// NewConn returns a connection as the application would have made it.
func (c *Compositor) NewConn() *Conn {
	c.mu.Lock()
	c.connects++
	c.mu.Unlock()

	conn := &Conn{comp: c}
	conn.def = &Queue{conn: conn}
	return conn
}

// Bound returns the version the interface was last bound at.
func (c *Compositor) Bound(iface string) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.bound[iface]
	return v, ok
}

// Destroyed counts Destroy calls on objects of iface.
func (c *Compositor) Destroyed(iface string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed[iface]
}

func (c *Compositor) Roundtrips() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundtrips
}

func (c *Compositor) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *Compositor) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// OverrideSwapInterval sends swapinterval_override from every live
// wl_eglstream_display.
func (c *Compositor) OverrideSwapInterval(interval int32, resource transport.Proxy) {
	c.mu.Lock()
	sds := append([]*StreamDisplay(nil), c.streamDisplays...)
	c.mu.Unlock()

	for _, sd := range sds {
		sd := sd
		sd.post(func() {
			if l := sd.listener; l != nil {
				l.SwapIntervalOverride(interval, resource)
			}
		})
	}
}

// Advertise sends a feedback cycle to every live default feedback.
func (c *Compositor) Advertise(adv Advertisement) {
	c.mu.Lock()
	fbs := append([]*Feedback(nil), c.feedbacks...)
	c.mu.Unlock()

	for _, fb := range fbs {
		fb.advertise(adv)
	}
}

func (c *Compositor) countDestroy(iface string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed[iface]++
}

func (c *Compositor) bind(name uint32, iface string, version uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.FailBind[iface]; err != nil {
		return err
	}
	for _, g := range c.globals {
		if g.Name != name {
			continue
		}
		if g.Interface != iface {
			return errors.Errorf("fakewl: global %d is %s, not %s", name, g.Interface, iface)
		}
		if version == 0 || version > g.Version {
			return errors.Errorf("fakewl: cannot bind %s version %d, have %d", iface, version, g.Version)
		}
		c.bound[iface] = version
		return nil
	}
	return errors.Errorf("fakewl: no global %d", name)
}

// memfdTable writes entries to a memfd the way compositors
// share format tables.
func memfdTable(entries []formats.Entry) (int, uint32) {
	data := formats.EncodeTable(entries...)
	fd, err := unix.MemfdCreate("format-table", unix.MFD_CLOEXEC)
	if err != nil {
		panic(errors.Wrap(err, "fakewl: memfd_create"))
	}
	if _, err := unix.Write(fd, data); err != nil {
		unix.Close(fd)
		panic(errors.Wrap(err, "fakewl: write format table"))
	}
	return fd, uint32(len(data))
}

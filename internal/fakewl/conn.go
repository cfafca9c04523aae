package fakewl

import (
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/pkg/errors"
)

type Conn struct {
	comp         *Compositor
	def          *Queue
	disconnected bool
}

var _ transport.Conn = (*Conn)(nil)

type Queue struct {
	conn   *Conn
	events []func()
}

func (q *Queue) Destroy() {
	q.conn.comp.countDestroy(QueueObject)
	q.conn.comp.mu.Lock()
	q.events = nil
	q.conn.comp.mu.Unlock()
}

func (q *Queue) post(ev func()) {
	q.conn.comp.mu.Lock()
	q.events = append(q.events, ev)
	q.conn.comp.mu.Unlock()
}

func (q *Queue) take() []func() {
	q.conn.comp.mu.Lock()
	defer q.conn.comp.mu.Unlock()
	evs := q.events
	q.events = nil
	return evs
}

func (c *Conn) queue(q transport.Queue) *Queue {
	if q == nil {
		return c.def
	}
	return q.(*Queue)
}

func (c *Conn) CreateQueue() (transport.Queue, error) {
	if c.disconnected {
		return nil, ErrDisconnected
	}
	if c.comp.FailQueue {
		return nil, errors.New("fakewl: cannot create queue")
	}
	return &Queue{conn: c}, nil
}

func (c *Conn) Registry(q transport.Queue) (transport.Registry, error) {
	if c.disconnected {
		return nil, ErrDisconnected
	}

	r := &Registry{proxy: proxy{comp: c.comp, queue: c.queue(q), iface: RegistryObject}}

	c.comp.mu.Lock()
	globals := append([]Global(nil), c.comp.globals...)
	c.comp.mu.Unlock()

	for _, g := range globals {
		g := g
		r.post(func() {
			if r.listener != nil {
				r.listener.Global(g.Name, g.Interface, g.Version)
			}
		})
	}
	return r, nil
}

func (c *Conn) Roundtrip(q transport.Queue) error {
	if c.disconnected {
		return ErrDisconnected
	}
	if err := c.comp.RoundtripErr; err != nil {
		return err
	}

	c.comp.mu.Lock()
	c.comp.roundtrips++
	c.comp.mu.Unlock()

	for _, ev := range c.queue(q).take() {
		ev()
	}
	return nil
}

func (c *Conn) DispatchPending() error {
	if c.disconnected {
		return ErrDisconnected
	}
	for _, ev := range c.def.take() {
		ev()
	}
	return nil
}

func (c *Conn) Disconnect() error {
	if c.disconnected {
		return ErrDisconnected
	}
	c.disconnected = true

	c.comp.mu.Lock()
	c.comp.disconnects++
	c.comp.mu.Unlock()
	return nil
}

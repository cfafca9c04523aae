package fakewl

import (
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/pkg/errors"
)

var errListener = errors.New("fakewl: cannot add listener")

type proxy struct {
	comp      *Compositor
	queue     *Queue
	iface     string
	destroyed bool
}

func (p *proxy) Destroy() {
	p.destroyed = true
	p.comp.countDestroy(p.iface)
}

// post queues an event, dropped if the object is gone when it is
// dispatched.
func (p *proxy) post(ev func()) {
	p.queue.post(func() {
		if !p.destroyed {
			ev()
		}
	})
}

func (p *proxy) addListener() error {
	if p.comp.FailListeners {
		return errListener
	}
	return nil
}

func (p *proxy) child(iface string) proxy {
	return proxy{comp: p.comp, queue: p.queue, iface: iface}
}

// Resource stands for a compositor side object, such as the wl_buffer
// backing a stream.
type Resource struct {
	Destroyed bool
}

func (r *Resource) Destroy() { r.Destroyed = true }

type Registry struct {
	proxy
	listener transport.RegistryListener
}

var _ transport.Registry = (*Registry)(nil)

func (r *Registry) AddListener(l transport.RegistryListener) error {
	if err := r.addListener(); err != nil {
		return err
	}
	if r.listener != nil {
		return errors.New("fakewl: registry listener already set")
	}
	r.listener = l
	return nil
}

func (r *Registry) BindStreamDisplay(name, version uint32) (transport.StreamDisplay, error) {
	if err := r.comp.bind(name, transport.StreamDisplayInterface, version); err != nil {
		return nil, err
	}
	sd := &StreamDisplay{proxy: r.child(transport.StreamDisplayInterface)}
	if caps := r.comp.StreamCaps; caps != 0 {
		sd.post(func() {
			if sd.listener != nil {
				sd.listener.Caps(caps)
			}
		})
	}

	r.comp.mu.Lock()
	r.comp.streamDisplays = append(r.comp.streamDisplays, sd)
	r.comp.mu.Unlock()
	return sd, nil
}

func (r *Registry) BindStreamController(name, version uint32) (transport.Proxy, error) {
	if err := r.comp.bind(name, transport.StreamControllerInterface, version); err != nil {
		return nil, err
	}
	p := r.child(transport.StreamControllerInterface)
	return &p, nil
}

func (r *Registry) BindDmaBuf(name, version uint32) (transport.DmaBuf, error) {
	if err := r.comp.bind(name, transport.DmaBufInterface, version); err != nil {
		return nil, err
	}
	d := &DmaBuf{proxy: r.child(transport.DmaBufInterface), version: version}
	if version < 4 {
		for _, m := range r.comp.Modifiers {
			m := m
			d.post(func() {
				if d.listener != nil {
					d.listener.Format(m.Format)
					d.listener.Modifier(m.Format, uint32(m.Modifier>>32), uint32(m.Modifier))
				}
			})
		}
	}
	return d, nil
}

func (r *Registry) BindPresentation(name, version uint32) (transport.Proxy, error) {
	if err := r.comp.bind(name, transport.PresentationInterface, version); err != nil {
		return nil, err
	}
	p := r.child(transport.PresentationInterface)
	return &p, nil
}

func (r *Registry) BindSyncobjManager(name, version uint32) (transport.Proxy, error) {
	if err := r.comp.bind(name, transport.SyncobjManagerInterface, version); err != nil {
		return nil, err
	}
	p := r.child(transport.SyncobjManagerInterface)
	return &p, nil
}

func (r *Registry) BindDRM(name, version uint32) (transport.DRM, error) {
	if err := r.comp.bind(name, transport.DRMInterface, version); err != nil {
		return nil, err
	}
	d := &DRM{proxy: r.child(transport.DRMInterface)}
	if dev := r.comp.DRMDevice; dev != "" {
		d.post(func() {
			if d.listener != nil {
				d.listener.Device(dev)
			}
		})
	}
	return d, nil
}

type StreamDisplay struct {
	proxy
	listener transport.StreamDisplayListener
}

func (sd *StreamDisplay) AddListener(l transport.StreamDisplayListener) error {
	if err := sd.addListener(); err != nil {
		return err
	}
	sd.listener = l
	return nil
}

type DmaBuf struct {
	proxy
	version  uint32
	listener transport.DmaBufListener
}

func (d *DmaBuf) Version() uint32 { return d.version }

func (d *DmaBuf) AddListener(l transport.DmaBufListener) error {
	if err := d.addListener(); err != nil {
		return err
	}
	d.listener = l
	return nil
}

func (d *DmaBuf) GetDefaultFeedback() (transport.DmaBufFeedback, error) {
	if d.version < 4 {
		return nil, errors.Errorf("fakewl: get_default_feedback needs version 4, bound %d", d.version)
	}
	fb := &Feedback{proxy: d.child(FeedbackObject)}
	if adv := d.comp.Feedback; adv != nil {
		fb.advertise(*adv)
	}

	d.comp.mu.Lock()
	d.comp.feedbacks = append(d.comp.feedbacks, fb)
	d.comp.mu.Unlock()
	return fb, nil
}

type Feedback struct {
	proxy
	listener transport.FeedbackListener
}

func (fb *Feedback) AddListener(l transport.FeedbackListener) error {
	if err := fb.addListener(); err != nil {
		return err
	}
	fb.listener = l
	return nil
}

func (fb *Feedback) advertise(adv Advertisement) {
	fb.post(func() {
		l := fb.listener
		if l == nil {
			return
		}
		if adv.Table != nil {
			l.FormatTable(memfdTable(adv.Table))
		}
		l.MainDevice(adv.MainDevice.Bytes())
		for _, t := range adv.Tranches {
			l.TrancheTargetDevice(t.Target.Bytes())
			l.TrancheFlags(t.Flags)
			l.TrancheFormats(t.Indices)
			l.TrancheDone()
		}
		l.Done()
	})
}

type DRM struct {
	proxy
	listener transport.DRMListener
}

func (d *DRM) AddListener(l transport.DRMListener) error {
	if err := d.addListener(); err != nil {
		return err
	}
	d.listener = l
	return nil
}

// Package feedback tracks the dma-buf feedback a compositor advertises: the
// main device and the preference ordered tranches of formats and modifiers
// it can import, each tied to a target device.
//
// The compositor resends the whole advertisement whenever it changes. Old
// tranches are dropped on the first event of the new cycle rather than on
// done, so a completed snapshot stays readable until then.
package feedback

import (
	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/formats"
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// State of an advertisement cycle.
type State int

const (
	Idle State = iota
	Accumulating
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Tranche is a set of formats and modifiers usable on one target device.
type Tranche struct {
	TargetDevice drm.DevID
	Scanout      bool
	Formats      formats.Set
}

// Feedback accumulates feedback events into tranches. Events must be
// delivered from a single goroutine at a time, which is the case when they
// come from round trips on the queue of one display.
type Feedback struct {
	log   logrus.FieldLogger
	proxy transport.DmaBufFeedback

	table      *formats.Table
	tranches   []Tranche
	working    Tranche
	mainDevice drm.DevID

	state      State
	unconsumed bool
}

var _ transport.FeedbackListener = (*Feedback)(nil)

// New returns an idle Feedback. A nil logger means the standard logger.
func New(log logrus.FieldLogger) *Feedback {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Feedback{log: log}
}

// Register listens to proxy. The Feedback owns proxy from then on and
// destroys it in Destroy.
func (f *Feedback) Register(proxy transport.DmaBufFeedback) error {
	if err := proxy.AddListener(f); err != nil {
		return errors.Wrap(err, "add dma-buf feedback listener")
	}
	f.proxy = proxy
	return nil
}

// Registered reports whether a protocol object is attached.
func (f *Feedback) Registered() bool { return f.proxy != nil }

// beginEvent starts a new cycle on the first event after done.
func (f *Feedback) beginEvent() {
	switch f.state {
	case Complete:
		f.resetTranches()
		f.state = Accumulating
	case Idle:
		f.state = Accumulating
	}
}

func (f *Feedback) resetTranches() {
	f.working.Formats.Reset()
	f.working = Tranche{}
	for i := range f.tranches {
		f.tranches[i].Formats.Reset()
	}
	f.tranches = nil
}

func (f *Feedback) devID(event string, dev []byte) (drm.DevID, bool) {
	id, ok := drm.DevIDFromBytes(dev)
	if !ok {
		f.log.WithFields(logrus.Fields{
			"event": event,
			"size":  len(dev),
		}).Warn("ignoring malformed dma-buf feedback device")
	}
	return id, ok
}

func (f *Feedback) MainDevice(dev []byte) {
	f.beginEvent()
	if id, ok := f.devID("main_device", dev); ok {
		f.mainDevice = id
	}
}

func (f *Feedback) TrancheTargetDevice(dev []byte) {
	f.beginEvent()
	if id, ok := f.devID("tranche_target_device", dev); ok {
		f.working.TargetDevice = id
	}
}

func (f *Feedback) TrancheFlags(flags uint32) {
	f.beginEvent()
	if flags&transport.TrancheFlagScanout != 0 {
		f.working.Scanout = true
	}
}

// TrancheFormats adds the table entries at indices to the working tranche.
// Indices past the end of the table are skipped.
func (f *Feedback) TrancheFormats(indices []uint16) {
	f.beginEvent()

	skipped := 0
	for _, i := range indices {
		e, ok := f.table.Entry(int(i))
		if !ok {
			skipped++
			continue
		}
		f.working.Formats.Add(e.Format, e.Modifier)
	}
	if skipped > 0 {
		f.log.WithFields(logrus.Fields{
			"skipped":    skipped,
			"table_size": f.table.Len(),
		}).Warn("dma-buf feedback format index out of range")
	}
}

func (f *Feedback) TrancheDone() {
	f.tranches = append(f.tranches, f.working)
	f.working = Tranche{}
}

// FormatTable maps the table the following tranche_formats events index
// into, replacing any previous one. fd is closed in every case; a table that
// cannot be mapped reads as empty.
func (f *Feedback) FormatTable(fd int, size uint32) {
	defer unix.Close(fd)

	if err := f.table.Close(); err != nil {
		f.log.WithError(err).Warn("unmapping previous format table")
	}
	f.table = nil

	table, err := formats.MapTable(fd, size)
	if err != nil {
		f.log.WithError(err).WithField("size", size).Warn("cannot map dma-buf format table")
		return
	}
	f.table = table
}

func (f *Feedback) Done() {
	f.state = Complete
	f.unconsumed = true

	f.log.WithFields(logrus.Fields{
		"main_device": f.mainDevice,
		"tranches":    len(f.tranches),
	}).Debug("dma-buf feedback complete")
}

// State returns where the current cycle is.
func (f *Feedback) State() State { return f.state }

// MainDeviceID returns the last reported main device.
func (f *Feedback) MainDeviceID() drm.DevID { return f.mainDevice }

// Tranches returns the committed tranches in preference order. The slice is
// only valid until the next cycle starts.
func (f *Feedback) Tranches() []Tranche { return f.tranches }

// TableLen is the number of entries in the mapped format table.
func (f *Feedback) TableLen() int { return f.table.Len() }

// Unconsumed reports whether a completed cycle has not been consumed yet.
func (f *Feedback) Unconsumed() bool { return f.unconsumed }

// MarkConsumed clears the unconsumed flag without reading the tranches.
func (f *Feedback) MarkConsumed() { f.unconsumed = false }

// Consume returns a copy of the tranches of a completed cycle that was not
// consumed yet, and marks it consumed.
func (f *Feedback) Consume() ([]Tranche, bool) {
	if !f.unconsumed {
		return nil, false
	}
	f.unconsumed = false

	out := make([]Tranche, len(f.tranches))
	for i, t := range f.tranches {
		out[i] = Tranche{
			TargetDevice: t.TargetDevice,
			Scanout:      t.Scanout,
			Formats:      *t.Formats.Clone(),
		}
	}
	return out, true
}

// Destroy drops the tranches, unmaps the format table and destroys the
// protocol object. The Feedback is idle afterwards and can be registered
// again.
func (f *Feedback) Destroy() {
	f.resetTranches()
	if err := f.table.Close(); err != nil {
		f.log.WithError(err).Warn("unmapping format table")
	}
	f.table = nil
	if f.proxy != nil {
		f.proxy.Destroy()
		f.proxy = nil
	}
	f.mainDevice = 0
	f.state = Idle
	f.unconsumed = false
}

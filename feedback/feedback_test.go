package feedback_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gilvbp/egl-wayland/drm"
	"github.com/gilvbp/egl-wayland/feedback"
	"github.com/gilvbp/egl-wayland/formats"
	"github.com/gilvbp/egl-wayland/transport"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const (
	fourccXR24 uint32 = 0x34325258
	fourccAR24 uint32 = 0x34325241
	fourccNV12 uint32 = 0x3231564e
)

var table = []formats.Entry{
	{Format: fourccXR24, Modifier: formats.ModifierLinear},
	{Format: fourccAR24, Modifier: formats.ModifierLinear},
	{Format: fourccXR24, Modifier: 0x0300000000000014},
	{Format: fourccNV12, Modifier: formats.ModifierInvalid},
}

var (
	mainDev   = drm.MakeDevID(226, 0)
	targetDev = drm.MakeDevID(226, 128)
	otherDev  = drm.MakeDevID(226, 129)
)

// tableFD returns a fresh descriptor for a file holding entries. The
// receiver of the format_table event owns and closes it.
func tableFD(t *testing.T, entries ...formats.Entry) (int, uint32) {
	t.Helper()

	data := formats.EncodeTable(entries...)
	path := filepath.Join(t.TempDir(), "table")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	return fd, uint32(len(data))
}

func newFeedback() (*feedback.Feedback, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return feedback.New(log), hook
}

func sendTranche(fb *feedback.Feedback, target drm.DevID, flags uint32, indices ...uint16) {
	fb.TrancheTargetDevice(target.Bytes())
	fb.TrancheFlags(flags)
	fb.TrancheFormats(indices)
	fb.TrancheDone()
}

func TestCycle(t *testing.T) {
	fb, _ := newFeedback()
	defer fb.Destroy()
	assert.Equal(t, feedback.Idle, fb.State())

	fb.FormatTable(tableFD(t, table...))
	fb.MainDevice(mainDev.Bytes())
	assert.Equal(t, feedback.Accumulating, fb.State())
	sendTranche(fb, targetDev, transport.TrancheFlagScanout, 0, 2)
	fb.Done()

	assert.Equal(t, feedback.Complete, fb.State())
	assert.True(t, fb.Unconsumed())
	assert.Equal(t, mainDev, fb.MainDeviceID())
	assert.Equal(t, len(table), fb.TableLen())

	tranches := fb.Tranches()
	require.Len(t, tranches, 1)
	assert.Equal(t, targetDev, tranches[0].TargetDevice)
	assert.True(t, tranches[0].Scanout)
	assert.Equal(t, []formats.Format{
		{Code: fourccXR24, Modifiers: []uint64{formats.ModifierLinear, 0x0300000000000014}},
	}, tranches[0].Formats.Formats())

	// The first event of the next cycle drops the previous tranches.
	fb.MainDevice(otherDev.Bytes())
	assert.Equal(t, feedback.Accumulating, fb.State())
	assert.Empty(t, fb.Tranches())
	assert.Equal(t, otherDev, fb.MainDeviceID())

	sendTranche(fb, otherDev, 0, 1)
	fb.Done()

	tranches = fb.Tranches()
	require.Len(t, tranches, 1)
	assert.Equal(t, otherDev, tranches[0].TargetDevice)
	assert.False(t, tranches[0].Scanout)
	assert.True(t, tranches[0].Formats.Has(fourccAR24, formats.ModifierLinear))
	assert.False(t, tranches[0].Formats.Has(fourccXR24, formats.ModifierLinear))
}

func TestTrancheOrder(t *testing.T) {
	fb, _ := newFeedback()
	defer fb.Destroy()

	fb.FormatTable(tableFD(t, table...))
	fb.MainDevice(mainDev.Bytes())
	sendTranche(fb, targetDev, transport.TrancheFlagScanout, 0)
	sendTranche(fb, mainDev, 0, 0, 1, 2, 3)
	fb.Done()

	tranches := fb.Tranches()
	require.Len(t, tranches, 2)
	assert.Equal(t, targetDev, tranches[0].TargetDevice)
	assert.Equal(t, 1, tranches[0].Formats.Len())
	assert.Equal(t, mainDev, tranches[1].TargetDevice)
	assert.False(t, tranches[1].Scanout, "flags must not leak into the next tranche")
	assert.Equal(t, 3, tranches[1].Formats.Len())
}

func TestOutOfRangeIndexSkipped(t *testing.T) {
	fb, hook := newFeedback()
	defer fb.Destroy()

	fb.FormatTable(tableFD(t, table...))
	fb.MainDevice(mainDev.Bytes())
	fb.TrancheTargetDevice(targetDev.Bytes())
	fb.TrancheFormats([]uint16{0, 4, 65535, 3})
	fb.TrancheDone()
	fb.Done()

	tranches := fb.Tranches()
	require.Len(t, tranches, 1)
	assert.Equal(t, []formats.Format{
		{Code: fourccXR24, Modifiers: []uint64{formats.ModifierLinear}},
		{Code: fourccNV12, Modifiers: []uint64{formats.ModifierInvalid}},
	}, tranches[0].Formats.Formats())

	require.NotNil(t, findEntry(hook, logrus.WarnLevel))
	assert.Equal(t, 2, findEntry(hook, logrus.WarnLevel).Data["skipped"])
}

func TestNoTable(t *testing.T) {
	fb, _ := newFeedback()
	defer fb.Destroy()

	fb.MainDevice(mainDev.Bytes())
	sendTranche(fb, targetDev, 0, 0, 1)
	fb.Done()

	tranches := fb.Tranches()
	require.Len(t, tranches, 1)
	assert.True(t, tranches[0].Formats.Empty())
}

func TestFormatTableOddSize(t *testing.T) {
	fb, _ := newFeedback()
	defer fb.Destroy()

	fd, size := tableFD(t, table...)
	fb.FormatTable(fd, size-3)
	assert.Equal(t, 0, fb.TableLen())

	// The descriptor was closed regardless.
	assert.ErrorIs(t, unix.Close(fd), unix.EBADF)
}

func TestFormatTableReplaced(t *testing.T) {
	fb, _ := newFeedback()
	defer fb.Destroy()

	fb.FormatTable(tableFD(t, table...))
	fb.MainDevice(mainDev.Bytes())
	sendTranche(fb, targetDev, 0, 0)
	fb.Done()

	fb.FormatTable(tableFD(t, formats.Entry{Format: fourccNV12, Modifier: 7}))
	assert.Equal(t, 1, fb.TableLen())

	// Committed tranches keep their values.
	require.Len(t, fb.Tranches(), 1)
	assert.True(t, fb.Tranches()[0].Formats.Has(fourccXR24, formats.ModifierLinear))

	fb.MainDevice(mainDev.Bytes())
	sendTranche(fb, targetDev, 0, 0, 1)
	fb.Done()
	require.Len(t, fb.Tranches(), 1)
	assert.Equal(t, []formats.Format{{Code: fourccNV12, Modifiers: []uint64{7}}},
		fb.Tranches()[0].Formats.Formats())
}

func TestMalformedDevice(t *testing.T) {
	fb, hook := newFeedback()
	defer fb.Destroy()

	fb.MainDevice(mainDev.Bytes())
	fb.MainDevice([]byte{1, 2, 3})
	fb.TrancheTargetDevice(nil)
	fb.TrancheDone()

	assert.Equal(t, mainDev, fb.MainDeviceID())
	require.Len(t, fb.Tranches(), 1)
	assert.Equal(t, drm.DevID(0), fb.Tranches()[0].TargetDevice)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestConsume(t *testing.T) {
	fb, _ := newFeedback()
	defer fb.Destroy()

	_, ok := fb.Consume()
	assert.False(t, ok)

	fb.FormatTable(tableFD(t, table...))
	fb.MainDevice(mainDev.Bytes())
	sendTranche(fb, targetDev, transport.TrancheFlagScanout, 0)
	fb.Done()

	got, ok := fb.Consume()
	require.True(t, ok)
	assert.False(t, fb.Unconsumed())
	require.Len(t, got, 1)

	_, ok = fb.Consume()
	assert.False(t, ok)

	// The copy survives the next cycle.
	fb.MainDevice(mainDev.Bytes())
	assert.True(t, got[0].Formats.Has(fourccXR24, formats.ModifierLinear))

	fb.Done()
	fb.MarkConsumed()
	assert.False(t, fb.Unconsumed())
}

type fakeProxy struct {
	listener  transport.FeedbackListener
	destroyed int
}

func (p *fakeProxy) AddListener(l transport.FeedbackListener) error {
	p.listener = l
	return nil
}

func (p *fakeProxy) Destroy() { p.destroyed++ }

func TestRegisterDestroy(t *testing.T) {
	fb, _ := newFeedback()
	proxy := &fakeProxy{}
	require.NoError(t, fb.Register(proxy))
	assert.Same(t, fb, proxy.listener)

	proxy.listener.FormatTable(tableFD(t, table...))
	proxy.listener.MainDevice(mainDev.Bytes())
	proxy.listener.TrancheFormats([]uint16{1})
	proxy.listener.TrancheDone()
	proxy.listener.Done()

	fb.Destroy()
	assert.Equal(t, 1, proxy.destroyed)
	assert.Equal(t, feedback.Idle, fb.State())
	assert.Empty(t, fb.Tranches())
	assert.Equal(t, 0, fb.TableLen())
	assert.False(t, fb.Unconsumed())

	fb.Destroy()
	assert.Equal(t, 1, proxy.destroyed)
}

func findEntry(hook *test.Hook, level logrus.Level) *logrus.Entry {
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			return e
		}
	}
	return nil
}

package drm_test

import (
	"os"
	"testing"

	"github.com/gilvbp/egl-wayland/drm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncobjOnRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "card")
	require.NoError(t, err)
	defer f.Close()

	var s drm.Syncobjs = drm.KernelSyncobjs{}

	assert.False(t, s.Supported(f))
	_, err = s.Create(f)
	assert.Error(t, err)
	fd, err := s.ExportFD(f, 1)
	assert.Error(t, err)
	assert.Equal(t, -1, fd)
	assert.Error(t, s.Destroy(f, 1))
}

func TestSyncobjRoundTrip(t *testing.T) {
	f := requireCard(t)
	if !drm.HasSyncObj(f) {
		t.Skip("driver has no sync objects")
	}

	handle, err := drm.SyncobjCreate(f, 0)
	require.NoError(t, err)

	fd, err := drm.SyncobjHandleToFD(f, handle)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fd, 0)
	os.NewFile(uintptr(fd), "syncobj").Close()

	require.NoError(t, drm.SyncobjDestroy(f, handle))
}

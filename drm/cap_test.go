package drm_test

import (
	"os"
	"testing"

	"github.com/gilvbp/egl-wayland/drm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCap(t *testing.T) {
	file := requireCard(t)

	for cap, capval := range cardInfo.capabilities {
		ccap, err := drm.GetCap(file, cap)
		require.NoError(t, err)
		assert.Equal(t, capval, ccap, "capability %d differs", cap)
	}
}

func TestHasSyncObj(t *testing.T) {
	file := requireCard(t)
	assert.Equal(t, cardInfo.capabilities[drm.CapSyncObj] != 0, drm.HasSyncObj(file))
}

func TestCapsOnRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "card")
	require.NoError(t, err)
	defer f.Close()

	_, err = drm.GetCap(f, drm.CapSyncObj)
	assert.Error(t, err)
	assert.False(t, drm.HasSyncObj(f))
}

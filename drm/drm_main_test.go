package drm_test

import (
	"os"
	"testing"

	"github.com/gilvbp/egl-wayland/drm"
)

type (
	cardDetail struct {
		capabilities map[uint64]uint64
	}
)

var (
	cards = map[string]cardDetail{
		"i915": {
			capabilities: map[uint64]uint64{
				drm.CapDumbBuffer:         1,
				drm.CapDumbPreferredDepth: 24,
				drm.CapPrime:              3,
				drm.CapTimestampMonotonic: 1,
				drm.CapSyncObj:            1,
			},
		},
		"nvidia-drm": {
			capabilities: map[uint64]uint64{
				drm.CapDumbBuffer:      1,
				drm.CapPrime:           3,
				drm.CapSyncObj:         1,
				drm.CapAddFB2Modifiers: 1,
			},
		},
	}

	// set by TestMain when the machine has a card we know about
	card     *os.File
	cardName string
	cardInfo cardDetail
)

func TestMain(m *testing.M) {
	if f, err := drm.Open("/dev/dri/card0"); err == nil {
		if v, err := drm.GetVersion(f); err == nil {
			if info, ok := cards[v.Name]; ok {
				card, cardName, cardInfo = f, v.Name, info
			}
		}
	}

	code := m.Run()
	if card != nil {
		card.Close()
	}
	os.Exit(code)
}

func requireCard(t *testing.T) *os.File {
	t.Helper()
	if card == nil {
		t.Skip("no known DRM card available")
	}
	return card
}

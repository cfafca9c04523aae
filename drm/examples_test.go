package drm_test

import (
	"fmt"

	"github.com/gilvbp/egl-wayland/drm"
)

func ExampleDevIDFromBytes() {
	// Compositors send device numbers as the raw bytes of a dev_t, for
	// instance in the main_device event of dma-buf feedback.
	payload := drm.MakeDevID(226, 128).Bytes()

	id, ok := drm.DevIDFromBytes(payload)
	if !ok {
		fmt.Println("not a dev_t")
		return
	}
	fmt.Println(id)

	// Output: 226:128
}

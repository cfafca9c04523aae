// Package eglwayland is the client side of an EGL platform for Wayland.
//
// A Directory hands out one Display per Wayland connection and requested
// device. Displays present either through EGLStreams (wl_eglstream_display)
// or through dma-buf (zwp_linux_dmabuf_v1), rendering on an internal EGL
// device display shared with every other Display on the same device.
//
// Two counters govern a Display: its reference count, which keeps the
// object alive while calls are using it, and its initialization count,
// which decides when the driver and compositor resources are released.
package eglwayland

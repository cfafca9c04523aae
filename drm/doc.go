// Package drm talks to the kernel DRM (Direct Rendering Manager) device nodes
// that back a Wayland compositor's GPU: it resolves device identities
// (dev_t of the primary and render nodes), reads the driver version and
// capabilities, and manages DRM sync objects.
//
// Device identity resolution follows libdrm: a dev_t reported by the
// compositor is looked up under /sys/dev/char to find the render node and the
// PCI vendor of the device behind it.
package drm

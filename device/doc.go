// Package device keeps one internal EGL display per EGL device. Every
// Wayland display rendering on a device shares that device's connection,
// which counts initializations so the native display is initialized once
// and terminated when its last user goes away.
package device

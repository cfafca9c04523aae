// Package egl holds the EGL vocabulary shared by the Wayland platform: the
// driver capability table the platform calls into, the enums it passes
// around, and the EGL error codes reported to applications.
//
// Nothing here links against libEGL; the embedding driver provides a Driver
// implementation.
package egl

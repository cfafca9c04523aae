package eglwayland

import (
	"github.com/gilvbp/egl-wayland/egl"
	"golang.org/x/sys/unix"
)

// checkDriverSyncSupport finds out whether the driver supports explicit
// sync. There is no version to check; drivers that do reject a native fence
// created from a valid fd together with a sync status.
func (d *Display) checkDriverSyncSupport() {
	if d.dir.cfg.DisableExplicitSync || !d.nativeFenceSync || d.drmFile == nil {
		return
	}

	syncobjs := d.dir.syncobjs
	if !syncobjs.Supported(d.drmFile) {
		d.log.Debug("driver has no sync objects, no explicit sync")
		return
	}
	handle, err := syncobjs.Create(d.drmFile)
	if err != nil {
		d.log.WithError(err).Debug("cannot create syncobj, no explicit sync")
		return
	}
	defer func() {
		if err := syncobjs.Destroy(d.drmFile, handle); err != nil {
			d.log.WithError(err).Debug("destroying probe syncobj")
		}
	}()

	fd, err := syncobjs.ExportFD(d.drmFile, handle)
	if err != nil {
		d.log.WithError(err).Debug("cannot export syncobj, no explicit sync")
		return
	}

	dpy := d.dev.Display
	attribs := []egl.Attrib{
		egl.Attrib(egl.SyncNativeFenceFDAndroid), egl.Attrib(fd),
		egl.Attrib(egl.SyncStatus), egl.Attrib(egl.Signaled),
		egl.Attrib(egl.None),
	}
	sync := d.driver.CreateSync(dpy, egl.SyncNativeFenceAndroid, attribs)
	if sync != egl.NoSync {
		// The sync took the fd.
		d.driver.DestroySync(dpy, sync)
		return
	}

	unix.Close(fd)
	if d.driver.GetError() == egl.BadAttribute {
		d.explicitSync = true
	}
}

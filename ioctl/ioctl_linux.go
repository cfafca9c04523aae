// Package ioctl encodes Linux ioctl request numbers and issues them.
package ioctl

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Request layout (generic architectures, see include/uapi/asm-generic/ioctl.h):
//
//  bits    meaning
//  31-30	direction: 00 none, 01 write, 10 read, 11 read/write
//  29-16	size of the argument struct
//  15-8	driver type, 'd' for DRM
//  7-0	function number
//
// 0x82187201 is a read with arg length 0x218, type 'r', function 1:
//
// #define VFAT_IOCTL_READDIR_BOTH         _IOR('r', 1, struct dirent [2])

const (
	None  = uint8(0x0)
	Write = uint8(0x1)
	Read  = uint8(0x2)

	maxSize = 1<<14 - 1
)

// NewCode builds a request number. It panics on values that cannot be encoded,
// since request numbers are compile-time constants of the callers.
func NewCode(typ uint8, sz uint16, uniq, fn uint8) uint32 {
	if typ > Write|Read {
		panic(fmt.Errorf("invalid ioctl direction: %d", typ))
	}
	if sz > maxSize {
		panic(fmt.Errorf("invalid ioctl size: %d", sz))
	}

	return uint32(typ)<<30 | uint32(sz)<<16 | uint32(uniq)<<8 | uint32(fn)
}

// IOWR is NewCode(Read|Write, ...).
func IOWR(uniq, fn uint8, sz uintptr) uint32 {
	return NewCode(Read|Write, uint16(sz), uniq, fn)
}

// Do issues the request on fd, restarting it when interrupted the same way
// libdrm's drmIoctl does.
func Do(fd, cmd, ptr uintptr) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, ptr)
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return errno
		}
	}
}

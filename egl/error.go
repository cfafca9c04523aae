package egl

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	Success           Int = 0x3000
	NotInitialized    Int = 0x3001
	BadAccess         Int = 0x3002
	BadAlloc          Int = 0x3003
	BadAttribute      Int = 0x3004
	BadConfig         Int = 0x3005
	BadContext        Int = 0x3006
	BadCurrentSurface Int = 0x3007
	BadDisplay        Int = 0x3008
	BadMatch          Int = 0x3009
	BadNativePixmap   Int = 0x300A
	BadNativeWindow   Int = 0x300B
	BadParameter      Int = 0x300C
	BadSurface        Int = 0x300D
	BadDevice         Int = 0x322B
)

var codeNames = map[Int]string{
	Success:           "EGL_SUCCESS",
	NotInitialized:    "EGL_NOT_INITIALIZED",
	BadAccess:         "EGL_BAD_ACCESS",
	BadAlloc:          "EGL_BAD_ALLOC",
	BadAttribute:      "EGL_BAD_ATTRIBUTE",
	BadConfig:         "EGL_BAD_CONFIG",
	BadContext:        "EGL_BAD_CONTEXT",
	BadCurrentSurface: "EGL_BAD_CURRENT_SURFACE",
	BadDisplay:        "EGL_BAD_DISPLAY",
	BadMatch:          "EGL_BAD_MATCH",
	BadNativePixmap:   "EGL_BAD_NATIVE_PIXMAP",
	BadNativeWindow:   "EGL_BAD_NATIVE_WINDOW",
	BadParameter:      "EGL_BAD_PARAMETER",
	BadSurface:        "EGL_BAD_SURFACE",
	BadDevice:         "EGL_BAD_DEVICE_EXT",
}

// CodeName returns the EGL name of an error code.
func CodeName(code Int) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("EGL error %#x", int32(code))
}

// Error is a failure reported to the application with an EGL error code.
type Error struct {
	Code Int
	Op   string
	Err  error
}

// NewError wraps err (which may be nil) with an error code.
func NewError(code Int, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := "egl: " + e.Op + ": " + CodeName(e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code, so
// errors.Is(err, &egl.Error{Code: egl.BadAlloc}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Code == e.Code
}

// CodeOf extracts the error code carried by err. Nil errors and errors
// without a code report Success: they set no error on the calling thread.
func CodeOf(err error) Int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Success
}

// DriverError builds the error of a failed driver call from the code the
// driver has pending, or fallback when it reports none.
func DriverError(d Driver, fallback Int, op string, err error) *Error {
	code := d.GetError()
	if code == Success {
		code = fallback
	}
	return NewError(code, op, err)
}

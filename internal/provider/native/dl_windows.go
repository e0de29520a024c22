//go:build windows

package native

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// cLong matches the 32-bit Windows LONG.
type cLong = int32

func openLibrary(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	return uintptr(h), err
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func closeLibrary(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

func callProc(fn uintptr, args ...uintptr) uintptr {
	r, _, _ := syscall.SyscallN(fn, args...)
	return r
}

func newCallback(fn func(msg unsafe.Pointer, kind uintptr) uintptr) uintptr {
	return windows.NewCallback(fn)
}

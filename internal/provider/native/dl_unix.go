//go:build darwin || linux

package native

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// cLong matches C long on LP64 platforms.
type cLong = int64

func openLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeLibrary(handle uintptr) error {
	return purego.Dlclose(handle)
}

func callProc(fn uintptr, args ...uintptr) uintptr {
	r, _, _ := purego.SyscallN(fn, args...)
	return r
}

func newCallback(fn func(msg unsafe.Pointer, kind uintptr) uintptr) uintptr {
	return purego.NewCallback(fn)
}

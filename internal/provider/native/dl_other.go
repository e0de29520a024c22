//go:build !darwin && !linux && !windows

package native

import (
	"unsafe"

	"github.com/pkg/errors"
)

type cLong = int64

var errUnsupported = errors.New("loading provider libraries is not supported on this platform")

func openLibrary(string) (uintptr, error) { return 0, errUnsupported }

func lookupSymbol(uintptr, string) (uintptr, error) { return 0, errUnsupported }

func closeLibrary(uintptr) error { return nil }

func callProc(uintptr, ...uintptr) uintptr { return 0 }

func newCallback(func(msg unsafe.Pointer, kind uintptr) uintptr) uintptr { return 0 }

package native

import (
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingLibraryFails(t *testing.T) {
	a := assert.New(t)

	// given
	path := filepath.Join(t.TempDir(), "does-not-exist.so")

	// when
	lib, err := Open(path)

	// then
	a.Error(err)
	a.Nil(lib)
	a.Contains(err.Error(), path)
}

func TestOpener_MissingLibraryReturnsNilInterface(t *testing.T) {
	lib, err := Opener{}.Open(filepath.Join(t.TempDir(), "nope.so"))
	require.Error(t, err)
	assert.Nil(t, lib)
}

func TestGoString_StopsAtTerminator(t *testing.T) {
	a := assert.New(t)

	a.Equal("abc", goString([]byte{'a', 'b', 'c', 0, 'd'}))
	a.Equal("abc", goString([]byte("abc")))
	a.Equal("", goString(make([]byte, 8)))
}

func TestBufferFrom_TruncatesToCapacity(t *testing.T) {
	a := assert.New(t)

	var args cargs
	defer args.release()

	// when
	b := args.bufferFrom("abcdef", 3)

	// then
	a.Len(b, 4)
	a.Equal("abc", goString(b))
	a.Equal(byte(0), b[3])
}

func TestRelease_IsIdempotentOnUnloadedLibrary(t *testing.T) {
	lib := &Library{}
	assert.NoError(t, lib.Release())
	assert.NoError(t, lib.Release())
}

func TestCString_CopiesUpToTerminator(t *testing.T) {
	a := assert.New(t)

	// given
	msg := []byte("checked in\x00trailing")

	// when
	got := cString(unsafe.Pointer(&msg[0]))

	// then
	a.Equal("checked in", got)
}

package scc

import "github.com/pkg/errors"

// Options is the per-command (or per-file, for Add) option word.
type Options int32

const (
	KeepCheckedOut Options = 0x1000
)

// OpenFlags controls SccOpenProject.
type OpenFlags int32

const (
	OpenCreateIfNew OpenFlags = 0x0001
	OpenSilent      OpenFlags = 0x0002

	// OpenSilentExisting is the only mode the host opens projects with.
	OpenSilentExisting = OpenSilent &^ OpenCreateIfNew
)

// DiffFlags controls SccDiff.
type DiffFlags int32

const (
	DiffIgnoreCase  DiffFlags = 0x0002
	DiffIgnoreSpace DiffFlags = 0x0004
	DiffQDContents  DiffFlags = 0x0010
	DiffQDChecksum  DiffFlags = 0x0020
	DiffQDTime      DiffFlags = 0x0040
)

// Fixed buffer sizes from the contract, excluding the terminating NUL.
const (
	NameLen     = 31
	AuxLabelLen = 31
	UserLen     = 31
	PrjPathLen  = 300
	MaxPath     = 260
)

// WindowHandle is the host's opaque UI handle passed through to the provider.
type WindowHandle uintptr

// Valid reports whether a handle was supplied.
func (h WindowHandle) Valid() bool { return h != 0 }

// CheckLen fails with ErrValueTooLong when value does not fit a buffer of max bytes.
func CheckLen(field, value string, max int) error {
	if len(value) > max {
		return errors.Wrapf(ErrValueTooLong, "%s is %d bytes, limit %d", field, len(value), max)
	}
	return nil
}

package scc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Host-level failures. Provider-reported failures are *ProviderError.
var (
	ErrNoProviderSelected   = errors.New("no source control provider selected")
	ErrProviderNotInstalled = errors.New("source control provider is not installed")
	ErrProviderLookupFailed = errors.New("source control provider library could not be located")
	ErrProviderFailedToLoad = errors.New("source control provider library failed to load")
	ErrFailedToInitialize   = errors.New("source control provider failed to initialize")
	ErrNotLoaded            = errors.New("source control provider is not loaded")
	ErrMissingFiles         = errors.New("no files given")
	ErrInvalidHandle        = errors.New("invalid window handle")
	ErrNoDirectory          = errors.New("no directory given")
	ErrDiffError            = errors.New("provider reported no differences but could not show a diff")
	ErrUnknownCommand       = errors.New("unknown command")
	ErrValueTooLong         = errors.New("value exceeds provider buffer length")
)

// ProviderError is a provider return code in the error range, annotated with
// the entry point that produced it and any text the provider emitted.
type ProviderError struct {
	Op     string
	Code   ReturnCode
	Detail string
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s (%s)", e.Op, e.Code.Text(), e.Code)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// CodeOf extracts the provider return code carried by err, if any.
func CodeOf(err error) (ReturnCode, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return OK, false
}

// Is matches another *ProviderError with the same code. An empty Op in the
// target matches any entry point.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	return ok && t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
}

// RC returns an errors.Is target matching any provider failure with code.
func RC(code ReturnCode) error {
	return &ProviderError{Code: code}
}

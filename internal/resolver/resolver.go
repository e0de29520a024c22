// Package resolver turns host configuration into the path of the provider
// library to load.
package resolver

import (
	"log/slog"
	"strings"

	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
)

// NoProvider is the configured provider name meaning "no provider chosen".
const NoProvider = "None"

// ErrNotFound is returned by lookups for a missing key or value.
var ErrNotFound = errors.New("not found")

// Descriptor identifies the provider library to load.
type Descriptor struct {
	ProviderName string
	LibraryPath  string
}

// Lookup is the read-only configuration/registry collaborator.
type Lookup interface {
	// SelectedProvider returns the provider name chosen in host configuration.
	SelectedProvider() (string, error)
	// ProviderKey returns the registration key of an installed provider.
	ProviderKey(name string) (string, error)
	// LibraryPath returns the library path stored under a registration key.
	LibraryPath(key string) (string, error)
}

// Enumerator lists installed providers.
type Enumerator interface {
	InstalledProviders() ([]string, error)
}

// Resolver produces a Descriptor from a Lookup, or from the debug override
// when one is set.
type Resolver struct {
	lookup    Lookup
	validator PathValidator
	debugPath string
}

// New creates a resolver. allowedDirs, when non-empty, restricts the library
// paths the registry may point at; the debug override is not restricted.
func New(lookup Lookup, allowedDirs []string) *Resolver {
	return &Resolver{lookup: lookup, validator: NewPathValidator(allowedDirs)}
}

// SetDebugOverride sets the library path used instead of normal resolution.
// An empty path clears it.
func (r *Resolver) SetDebugOverride(path string) {
	if path == "" {
		slog.Info("clearing debug provider library")
	} else {
		slog.Info("using debug provider library", "path", path)
	}
	r.debugPath = path
}

// DebugOverride returns the current debug library path, if any.
func (r *Resolver) DebugOverride() string {
	return r.debugPath
}

// Resolve returns the library to load.
func (r *Resolver) Resolve() (Descriptor, error) {
	if r.debugPath != "" {
		slog.Debug("resolve: debug override", "path", r.debugPath)
		return Descriptor{LibraryPath: r.debugPath}, nil
	}
	if r.lookup == nil {
		return Descriptor{}, scc.ErrNoProviderSelected
	}

	name, err := r.lookup.SelectedProvider()
	if err != nil {
		return Descriptor{}, errors.Wrap(scc.ErrNoProviderSelected, err.Error())
	}
	name = strings.TrimSpace(name)
	slog.Debug("resolve: selected provider", "name", name)
	if name == "" || strings.EqualFold(name, NoProvider) {
		return Descriptor{}, scc.ErrNoProviderSelected
	}

	key, err := r.lookup.ProviderKey(name)
	if err != nil || key == "" {
		return Descriptor{}, errors.Wrapf(scc.ErrProviderNotInstalled, "provider %q", name)
	}
	slog.Debug("resolve: provider key", "key", key)

	path, err := r.lookup.LibraryPath(key)
	if err != nil || path == "" {
		return Descriptor{}, errors.Wrapf(scc.ErrProviderLookupFailed, "provider %q key %q", name, key)
	}
	if !r.validator.IsAllowed(path) {
		return Descriptor{}, errors.Wrapf(scc.ErrProviderLookupFailed, "library %q is outside the allowed directories", path)
	}
	slog.Debug("resolve: library path", "path", path)

	return Descriptor{ProviderName: name, LibraryPath: path}, nil
}

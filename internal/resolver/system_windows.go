//go:build windows

package resolver

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows/registry"
)

const (
	installedProvidersKey = `Software\SourceCodeControlProvider\InstalledSCCProviders`
	serverPathValue       = "SCCServerPath"
	maxDisplayNameLen     = 128
)

// SystemLookup reads provider registrations from HKEY_LOCAL_MACHINE. The
// selected provider still comes from host configuration.
type SystemLookup struct {
	Selected string
}

// NewSystemLookup returns a registry-backed lookup.
func NewSystemLookup(selected string) (*SystemLookup, error) {
	return &SystemLookup{Selected: selected}, nil
}

func (s *SystemLookup) SelectedProvider() (string, error) {
	return s.Selected, nil
}

func (s *SystemLookup) ProviderKey(name string) (string, error) {
	return readString(installedProvidersKey, name)
}

func (s *SystemLookup) LibraryPath(key string) (string, error) {
	return readString(key, serverPathValue)
}

func (s *SystemLookup) InstalledProviders() ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, installedProvidersKey, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "opening installed providers key")
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, errors.Wrap(err, "enumerating installed providers")
	}
	for i, n := range names {
		if len(n) > maxDisplayNameLen {
			names[i] = "<name too long>"
		}
	}
	return names, nil
}

func readString(path, value string) (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		return "", errors.Wrapf(ErrNotFound, "registry key %q: %v", path, err)
	}
	defer k.Close()

	v, _, err := k.GetStringValue(value)
	if err != nil {
		return "", errors.Wrapf(ErrNotFound, "registry value %q\\%q: %v", path, value, err)
	}
	return v, nil
}

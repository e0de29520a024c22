package resolver

import (
	"sort"

	"github.com/pkg/errors"
)

// StaticLookup serves provider registrations from configuration. Installed
// maps provider names to registration keys and Keys maps registration keys to
// library paths, mirroring the two-step registry layout.
type StaticLookup struct {
	Selected  string
	Installed map[string]string
	Keys      map[string]string
}

var (
	_ Lookup     = (*StaticLookup)(nil)
	_ Enumerator = (*StaticLookup)(nil)
)

func (s *StaticLookup) SelectedProvider() (string, error) {
	return s.Selected, nil
}

func (s *StaticLookup) ProviderKey(name string) (string, error) {
	key, ok := s.Installed[name]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "installed provider %q", name)
	}
	return key, nil
}

func (s *StaticLookup) LibraryPath(key string) (string, error) {
	path, ok := s.Keys[key]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "provider key %q", key)
	}
	return path, nil
}

func (s *StaticLookup) InstalledProviders() ([]string, error) {
	names := make([]string, 0, len(s.Installed))
	for name := range s.Installed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

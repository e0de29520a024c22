//go:build !windows

package resolver

import "github.com/pkg/errors"

// SystemLookup is only available on Windows.
type SystemLookup struct {
	Selected string
}

// NewSystemLookup fails outside Windows; use StaticLookup instead.
func NewSystemLookup(selected string) (*SystemLookup, error) {
	return nil, errors.New("system provider registry is only available on windows")
}

func (s *SystemLookup) SelectedProvider() (string, error) { return s.Selected, nil }

func (s *SystemLookup) ProviderKey(string) (string, error) { return "", ErrNotFound }

func (s *SystemLookup) LibraryPath(string) (string, error) { return "", ErrNotFound }

func (s *SystemLookup) InstalledProviders() ([]string, error) { return nil, nil }

// Package store persists directory-to-project bindings.
package store

import (
	"github.com/TheLazyLemur/scchost/internal/project"
	"github.com/pkg/errors"
)

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverYAML   = "yaml"
	DriverMemory = "memory"
)

// Store is a project.Store that holds resources until closed.
type Store interface {
	project.Store
	Close() error
}

// Open creates the store named by driver at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverYAML:
		return NewFile(path)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, errors.Errorf("unknown bindings driver %q", driver)
	}
}

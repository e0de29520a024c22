package project

// Record is a persisted directory binding. ProjectName and AuxPath hold
// placeholder values, never empty strings.
type Record struct {
	Directory   string
	ProjectName string
	AuxPath     string
}

// Store persists directory bindings across sessions.
type Store interface {
	// Load returns the saved binding for dir; ok is false when there is none.
	Load(dir string) (rec Record, ok bool, err error)
	Save(rec Record) error
}

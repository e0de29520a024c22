package store

import (
	"sync"

	"github.com/TheLazyLemur/scchost/internal/project"
)

// Memory keeps bindings for the life of the process.
type Memory struct {
	mu   sync.RWMutex
	recs map[string]project.Record
}

func NewMemory() *Memory {
	return &Memory{recs: map[string]project.Record{}}
}

func (m *Memory) Load(dir string) (project.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[dir]
	return rec, ok, nil
}

func (m *Memory) Save(rec project.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Directory] = rec
	return nil
}

func (m *Memory) Close() error { return nil }

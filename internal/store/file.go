package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheLazyLemur/scchost/internal/project"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	ProjectName string    `yaml:"project_name"`
	AuxPath     string    `yaml:"aux_path"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

type fileDoc struct {
	Bindings map[string]fileEntry `yaml:"bindings"`
}

// File stores bindings in a single YAML document keyed by directory.
type File struct {
	path string

	mu     sync.RWMutex
	recs   map[string]fileEntry
	loaded bool
}

// NewFile creates a file store at path, creating its parent directory.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("bindings path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating bindings directory")
	}
	return &File{path: path}, nil
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) Load(dir string) (project.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureLoaded(); err != nil {
		return project.Record{}, false, err
	}
	e, ok := f.recs[dir]
	if !ok {
		return project.Record{}, false, nil
	}
	return project.Record{Directory: dir, ProjectName: e.ProjectName, AuxPath: e.AuxPath}, true, nil
}

func (f *File) Save(rec project.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureLoaded(); err != nil {
		return err
	}
	f.recs[rec.Directory] = fileEntry{ProjectName: rec.ProjectName, AuxPath: rec.AuxPath, UpdatedAt: time.Now()}

	data, err := yaml.Marshal(fileDoc{Bindings: f.recs})
	if err != nil {
		return errors.Wrap(err, "marshaling bindings")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "writing bindings file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "replacing bindings file")
	}
	return nil
}

// Reload rereads the backing file.
func (f *File) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	return f.ensureLoaded()
}

// Watch reloads the store whenever the backing file changes on disk, until
// ctx is done. onChange, if set, runs after every successful reload.
func (f *File) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating bindings watcher")
	}
	// The directory is watched so that atomic replaces are seen.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return errors.Wrap(err, "watching bindings directory")
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(f.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
					continue
				}
				if err := f.Reload(); err != nil {
					slog.Warn("reloading bindings", "path", f.path, "error", err)
					continue
				}
				slog.Debug("bindings reloaded", "path", f.path)
				if onChange != nil {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("bindings watcher", "error", err)
			}
		}
	}()
	return nil
}

func (f *File) Close() error { return nil }

// ensureLoaded must be called with mu held.
func (f *File) ensureLoaded() error {
	if f.loaded {
		return nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.recs = map[string]fileEntry{}
			f.loaded = true
			return nil
		}
		return errors.Wrap(err, "reading bindings file")
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "unmarshaling bindings")
	}
	if doc.Bindings == nil {
		doc.Bindings = map[string]fileEntry{}
	}
	f.recs = doc.Bindings
	f.loaded = true
	return nil
}

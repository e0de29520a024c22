// Package project associates working directories with provider projects.
// At most one directory is bound at a time; binding a different directory
// closes the provider's current project first.
package project

import (
	"log/slog"

	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
)

// Session is the part of the provider session the cache needs.
type Session interface {
	Library() (provider.Library, error)
	User() string
}

// Binding outcomes reported to an Observer.
const (
	ResultHit      = "hit"
	ResultSaved    = "saved"
	ResultNone     = "none"
	ResultPrompted = "prompted"
	ResultCanceled = "canceled"
	ResultFailed   = "failed"
)

// Observer is told the outcome of every bind attempt.
type Observer interface {
	ObserveBinding(result string)
}

// Cache is the single-entry directory binding cache.
type Cache struct {
	session  Session
	store    Store
	observer Observer

	// bound is the directory whose project is open in the provider; empty when unbound.
	bound string
}

// NewCache creates an unbound cache.
func NewCache(session Session, store Store, observer Observer) *Cache {
	return &Cache{session: session, store: store, observer: observer}
}

// Bound returns the bound directory.
func (c *Cache) Bound() (string, bool) {
	return c.bound, c.bound != ""
}

func (c *Cache) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveBinding(result)
	}
}

// OpenFromSaved binds dir using its persisted binding. It reports false with
// no error when nothing is saved for dir, leaving the cache untouched.
func (c *Cache) OpenFromSaved(hwnd scc.WindowHandle, dir string) (bool, error) {
	if dir == c.bound && dir != "" {
		slog.Debug("binding: already in this folder", "dir", dir)
		c.observe(ResultHit)
		return true, nil
	}

	lib, err := c.session.Library()
	if err != nil {
		return false, err
	}

	rec, ok, err := c.store.Load(dir)
	if err != nil {
		c.observe(ResultFailed)
		return false, errors.Wrapf(err, "loading saved project for %s", dir)
	}
	if !ok {
		slog.Debug("binding: no project stored", "dir", dir)
		c.observe(ResultNone)
		return false, nil
	}

	projectName := rec.ProjectName
	if projectName == "" {
		projectName = dir
	}
	projectName, auxPath := FromStored(projectName, rec.AuxPath)

	if err := checkLens(dir, projectName, auxPath); err != nil {
		c.observe(ResultFailed)
		return false, err
	}

	c.closeProvider(lib)
	rc := lib.OpenProject(hwnd, c.openRequest(dir, projectName, auxPath))
	if !rc.IsSuccess() {
		slog.Debug("binding: opening saved project failed", "dir", dir, "code", rc)
		c.observe(ResultFailed)
		return false, openError(rc, lib)
	}

	c.bound = dir
	slog.Debug("binding: current working folder", "dir", dir, "project", projectName)
	c.observe(ResultSaved)
	return true, nil
}

// PromptAndBind asks the provider to pick a project for the directory of path,
// opens it and persists the choice. A user cancel is reported as scc.Canceled
// with no error and leaves the cache untouched.
func (c *Cache) PromptAndBind(hwnd scc.WindowHandle, path string) (scc.Status, error) {
	lib, err := c.session.Library()
	if err != nil {
		return scc.Status{}, err
	}

	dir := Dir(path)
	if err := scc.CheckLen("directory", dir, scc.MaxPath); err != nil {
		return scc.Status{}, err
	}
	slog.Debug("binding: prompting for project", "dir", dir)

	picked, rc := lib.GetProjPath(hwnd, c.session.User(), dir, false)
	st := scc.Translate(rc)
	if st.IsCanceled() {
		slog.Debug("binding: project selection canceled", "dir", dir)
		c.observe(ResultCanceled)
		return st, nil
	}
	if !rc.IsSuccess() {
		c.observe(ResultFailed)
		return st, &scc.ProviderError{Op: "SccGetProjPath", Code: rc, Detail: lib.LastMessage()}
	}

	storedName, storedAux := ToStored(picked.ProjectName, picked.AuxPath)
	slog.Debug("binding: project selected", "project", storedName, "aux", storedAux, "new", picked.New)
	if err := checkLens(dir, picked.ProjectName, picked.AuxPath); err != nil {
		c.observe(ResultFailed)
		return scc.Status{}, err
	}

	c.closeProvider(lib)
	rc = lib.OpenProject(hwnd, c.openRequest(dir, picked.ProjectName, picked.AuxPath))
	st = scc.Translate(rc)
	if !rc.IsSuccess() {
		c.observe(ResultFailed)
		return st, openError(rc, lib)
	}

	if err := c.store.Save(Record{Directory: dir, ProjectName: storedName, AuxPath: storedAux}); err != nil {
		slog.Warn("saving project binding", "dir", dir, "error", err)
	}
	c.bound = dir
	slog.Debug("binding: current working folder", "dir", dir, "project", storedName)
	c.observe(ResultPrompted)
	return st, nil
}

// Close closes the provider's open project, if a provider is loaded.
func (c *Cache) Close() {
	if lib, err := c.session.Library(); err == nil {
		c.closeProvider(lib)
	}
}

// Invalidate forgets the binding without calling the provider.
func (c *Cache) Invalidate() {
	if c.bound != "" {
		slog.Debug("binding: invalidated", "dir", c.bound)
	}
	c.bound = ""
}

// Reset returns the cache to the unbound state, for use after the provider is unloaded.
func (c *Cache) Reset() {
	c.bound = ""
}

func (c *Cache) closeProvider(lib provider.Library) {
	slog.Debug("binding: closing current project")
	if rc := lib.CloseProject(); rc.IsError() {
		slog.Debug("binding: close project", "code", rc)
	}
	c.bound = ""
}

func (c *Cache) openRequest(dir, projectName, auxPath string) provider.OpenRequest {
	return provider.OpenRequest{
		User:        c.session.User(),
		ProjectName: projectName,
		LocalPath:   dir,
		AuxPath:     auxPath,
		Flags:       scc.OpenSilentExisting,
	}
}

func openError(rc scc.ReturnCode, lib provider.Library) error {
	return &scc.ProviderError{Op: "SccOpenProject", Code: rc, Detail: lib.LastMessage()}
}

func checkLens(dir, projectName, auxPath string) error {
	if err := scc.CheckLen("directory", dir, scc.MaxPath); err != nil {
		return err
	}
	if err := scc.CheckLen("project name", projectName, scc.PrjPathLen); err != nil {
		return err
	}
	return scc.CheckLen("auxiliary path", auxPath, scc.PrjPathLen)
}

// Package dispatch routes host commands through the provider session:
// preconditions, project binding, optional confirmation, the provider call
// and return code translation.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/TheLazyLemur/scchost/internal/confirm"
	"github.com/TheLazyLemur/scchost/internal/project"
	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/resolver"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
)

// Session is the provider session the dispatcher drives.
type Session interface {
	EnsureLoaded(hwnd scc.WindowHandle) error
	Unload() error
	Library() (provider.Library, error)
	Capabilities() scc.Capability
	CommentLimit() int
	CheckoutCommentLimit() int
}

// Binder associates directories with provider projects.
type Binder interface {
	OpenFromSaved(hwnd scc.WindowHandle, dir string) (bool, error)
	PromptAndBind(hwnd scc.WindowHandle, path string) (scc.Status, error)
	Invalidate()
	Reset()
}

// DebugOverrider sets the library path that bypasses provider resolution.
type DebugOverrider interface {
	SetDebugOverride(path string)
}

// Observer is told about every dispatched command.
type Observer interface {
	ObserveCommand(command, outcome string, d time.Duration)
	ObserveUnload()
}

// Dispatcher executes commands one at a time. It is not safe for concurrent
// use; callers serialise access.
type Dispatcher struct {
	session   Session
	binder    Binder
	confirmer confirm.Confirmer
	providers resolver.Enumerator
	override  DebugOverrider
	observer  Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfirmer sets the confirmation step. The default approves everything.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(d *Dispatcher) { d.confirmer = c }
}

// WithEnumerator sets the source for EnumerateProviders.
func WithEnumerator(e resolver.Enumerator) Option {
	return func(d *Dispatcher) { d.providers = e }
}

// WithDebugOverrider sets the target of SetDebugOverride.
func WithDebugOverrider(o DebugOverrider) Option {
	return func(d *Dispatcher) { d.override = o }
}

// WithObserver registers a command observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

func New(session Session, binder Binder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		session:   session,
		binder:    binder,
		confirmer: confirm.Always{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ExecuteNamed parses name and executes the command.
func (d *Dispatcher) ExecuteNamed(ctx context.Context, name string, req Request) (Outcome, error) {
	cmd, err := ParseCommand(name)
	if err != nil {
		return Outcome{}, err
	}
	return d.Execute(ctx, cmd, req)
}

// Execute runs one command. A user cancel is reported through
// Outcome.Status with a nil error.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command, req Request) (Outcome, error) {
	start := time.Now()
	slog.Debug("dispatching command", "command", cmd, "files", len(req.Files), "quiet", req.Quiet)

	out, err := d.run(ctx, cmd, req)
	if code, ok := scc.CodeOf(err); ok && (code == scc.ProjNotOpen || code == scc.UnknownProject) {
		slog.Debug("provider no longer has the project open", "code", code)
		d.binder.Invalidate()
	}
	if err != nil {
		slog.Debug("command failed", "command", cmd, "error", err)
	}
	if d.observer != nil {
		d.observer.ObserveCommand(cmd.String(), outcomeLabel(out, err), time.Since(start))
	}
	return out, err
}

// Close unloads the provider. It is safe to call repeatedly.
func (d *Dispatcher) Close() error {
	return d.unload()
}

func outcomeLabel(out Outcome, err error) string {
	switch {
	case err != nil:
		return "error"
	case out.Declined:
		return "declined"
	default:
		return out.Status.Kind.String()
	}
}

func (d *Dispatcher) run(ctx context.Context, cmd Command, req Request) (Outcome, error) {
	switch cmd {
	case EnumerateProviders:
		return d.enumerateProviders()
	case QueryCapability:
		return d.queryCapability(req)
	case RunProviderUI:
		return d.runProviderUI(req)
	case Register:
		return d.register(req)
	case Unload:
		return Outcome{Status: scc.Success}, d.unload()
	case SetDebugOverride:
		return d.setDebugOverride(req)
	}
	if !cmd.FileScoped() {
		return Outcome{}, errors.Wrapf(scc.ErrUnknownCommand, "%d", int(cmd))
	}

	lib, err := d.prepare(cmd, req)
	if err != nil {
		return Outcome{}, err
	}
	if cmd == Status {
		return d.status(lib, req)
	}

	st, err := d.bind(req)
	if err != nil {
		return Outcome{Status: st}, err
	}
	if st.IsCanceled() {
		slog.Debug("project selection canceled", "command", cmd)
		return Outcome{Status: st}, nil
	}

	switch cmd {
	case Add, Get, Checkout, Checkin, Uncheckout, Remove:
		return d.mutate(ctx, cmd, lib, req)
	case IsDiff:
		return d.isDiff(lib, req)
	case ShowDiff:
		return d.showDiff(lib, req)
	case History:
		return d.reloadProbe(lib, "SccHistory", lib.History(req.Window, req.Files, 0))
	default:
		return d.reloadProbe(lib, "SccProperties", lib.Properties(req.Window, req.Files[0]))
	}
}

// prepare checks the request and makes sure a provider is loaded.
func (d *Dispatcher) prepare(cmd Command, req Request) (provider.Library, error) {
	if len(req.Files) == 0 {
		return nil, errors.Wrapf(scc.ErrMissingFiles, "%s", cmd)
	}
	if !req.Window.Valid() {
		return nil, errors.Wrapf(scc.ErrInvalidHandle, "%s", cmd)
	}
	for _, f := range req.Files {
		if err := scc.CheckLen("file name", f, scc.MaxPath); err != nil {
			return nil, err
		}
	}
	if err := d.session.EnsureLoaded(req.Window); err != nil {
		return nil, err
	}
	return d.session.Library()
}

// bind opens the saved project for the first file's directory, prompting
// when there is none or it no longer opens.
func (d *Dispatcher) bind(req Request) (scc.Status, error) {
	dir := project.Dir(req.Files[0])
	ok, err := d.binder.OpenFromSaved(req.Window, dir)
	if err == nil && ok {
		return scc.Success, nil
	}
	if err != nil {
		slog.Debug("saved project did not open, prompting", "dir", dir, "error", err)
	}
	return d.binder.PromptAndBind(req.Window, req.Files[0])
}

func (d *Dispatcher) confirmed(ctx context.Context, cmd Command, req Request) (bool, error) {
	if req.Quiet {
		return true, nil
	}
	ok, err := d.confirmer.Confirm(ctx, confirm.Request{
		Command:      cmd.String(),
		Files:        req.Files,
		Capabilities: d.session.Capabilities(),
		CommentLimit: d.commentLimit(cmd),
	})
	if err != nil {
		return false, errors.Wrap(err, "confirming command")
	}
	return ok, nil
}

func (d *Dispatcher) commentLimit(cmd Command) int {
	if cmd == Checkout {
		return d.session.CheckoutCommentLimit()
	}
	return d.session.CommentLimit()
}

func (d *Dispatcher) mutate(ctx context.Context, cmd Command, lib provider.Library, req Request) (Outcome, error) {
	ok, err := d.confirmed(ctx, cmd, req)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		slog.Debug("command declined", "command", cmd)
		return Outcome{Declined: true}, nil
	}

	if limit := d.commentLimit(cmd); limit > 0 && cmd != Get && cmd != Uncheckout {
		if err := scc.CheckLen("comment", req.Comment, limit); err != nil {
			return Outcome{}, err
		}
	}

	var opts scc.Options
	if req.KeepCheckedOut {
		opts = scc.KeepCheckedOut
	}

	var rc scc.ReturnCode
	var op string
	switch cmd {
	case Add:
		perFile := make([]scc.Options, len(req.Files))
		for i := range perFile {
			perFile[i] = opts
		}
		op, rc = "SccAdd", lib.Add(req.Window, req.Files, req.Comment, perFile)
	case Get:
		op, rc = "SccGet", lib.Get(req.Window, req.Files, 0)
	case Checkout:
		op, rc = "SccCheckout", lib.Checkout(req.Window, req.Files, req.Comment, opts)
	case Checkin:
		op, rc = "SccCheckin", lib.Checkin(req.Window, req.Files, req.Comment, opts)
	case Uncheckout:
		op, rc = "SccUncheckout", lib.Uncheckout(req.Window, req.Files, 0)
	default:
		op, rc = "SccRemove", lib.Remove(req.Window, req.Files, req.Comment, 0)
	}

	st := scc.Translate(rc)
	return Outcome{NeedsReload: cmd != Remove, Status: st}, st.Err(op, lib.LastMessage())
}

func (d *Dispatcher) isDiff(lib provider.Library, req Request) (Outcome, error) {
	rc := lib.Diff(req.Window, req.Files[0], scc.DiffQDChecksum)
	// Discard the provider text so it is not reported with the next command.
	_ = lib.LastMessage()
	return Outcome{Status: scc.Success, Differs: rc == scc.FileDiffers}, nil
}

func (d *Dispatcher) showDiff(lib provider.Library, req Request) (Outcome, error) {
	file := req.Files[0]
	rc := lib.Diff(req.Window, file, scc.DiffQDChecksum)
	switch rc {
	case scc.FileDiffers:
		st := scc.Translate(lib.Diff(req.Window, file, scc.DiffIgnoreSpace))
		return Outcome{Status: st, Differs: true}, st.Err("SccDiff", lib.LastMessage())
	case scc.OK:
		return Outcome{Status: scc.Success}, errors.Wrapf(scc.ErrDiffError, "%s", file)
	default:
		// Some providers report equal files after a graphical merge with a
		// non-specific error. Nothing is shown for those.
		slog.Debug("quick diff returned no difference", "file", file, "code", rc)
		// Discard the provider text so it is not reported with the next command.
		_ = lib.LastMessage()
		return Outcome{Status: scc.Success}, nil
	}
}

func (d *Dispatcher) reloadProbe(lib provider.Library, op string, rc scc.ReturnCode) (Outcome, error) {
	st := scc.Translate(rc)
	return Outcome{NeedsReload: rc == scc.ReloadFile, Status: st}, st.Err(op, lib.LastMessage())
}

func (d *Dispatcher) status(lib provider.Library, req Request) (Outcome, error) {
	dir := project.Dir(req.Files[0])
	ok, err := d.binder.OpenFromSaved(req.Window, dir)
	if err != nil || !ok {
		statuses := make([]scc.FileStatus, len(req.Files))
		for i, f := range req.Files {
			statuses[i] = scc.StatusNoHostProject
			slog.Debug("no project for file", "file", f, "error", err)
		}
		return Outcome{Status: scc.Success, FileStatus: statuses}, nil
	}

	// The per-file array is returned whatever the provider's code says.
	statuses, rc := lib.QueryInfo(req.Files)
	if msg := lib.LastMessage(); rc != scc.OK {
		slog.Debug("query info returned non-success", "code", rc, "message", msg)
	}
	for i, f := range req.Files {
		if i < len(statuses) {
			slog.Debug("file status", "file", f, "status", statuses[i])
		}
	}
	return Outcome{Status: scc.Success, FileStatus: statuses}, nil
}

func (d *Dispatcher) enumerateProviders() (Outcome, error) {
	if d.providers == nil {
		return Outcome{Status: scc.Success, Providers: []string{}}, nil
	}
	names, err := d.providers.InstalledProviders()
	if err != nil {
		return Outcome{}, errors.Wrap(err, "enumerating providers")
	}
	if names == nil {
		names = []string{}
	}
	return Outcome{Status: scc.Success, Providers: names}, nil
}

func (d *Dispatcher) queryCapability(req Request) (Outcome, error) {
	if err := d.session.EnsureLoaded(req.Window); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: scc.Success, Capabilities: d.session.Capabilities()}, nil
}

func (d *Dispatcher) runProviderUI(req Request) (Outcome, error) {
	if !req.Window.Valid() {
		return Outcome{}, errors.Wrapf(scc.ErrInvalidHandle, "%s", RunProviderUI)
	}
	if err := d.session.EnsureLoaded(req.Window); err != nil {
		return Outcome{}, err
	}
	lib, err := d.session.Library()
	if err != nil {
		return Outcome{}, err
	}
	st := scc.Translate(lib.RunScc(req.Window, nil))
	return Outcome{Status: st}, st.Err("SccRunScc", lib.LastMessage())
}

func (d *Dispatcher) register(req Request) (Outcome, error) {
	if !req.Window.Valid() {
		return Outcome{}, errors.Wrapf(scc.ErrInvalidHandle, "%s", Register)
	}
	if len(req.Files) == 0 || req.Files[0] == "" {
		return Outcome{}, scc.ErrNoDirectory
	}
	if err := d.session.EnsureLoaded(req.Window); err != nil {
		return Outcome{}, err
	}

	st, err := d.binder.PromptAndBind(req.Window, req.Files[0])
	if err != nil {
		return Outcome{Status: st}, err
	}
	if st.IsCanceled() {
		slog.Debug("register canceled", "path", req.Files[0])
		return Outcome{Status: st}, nil
	}
	return Outcome{Status: scc.Success}, nil
}

func (d *Dispatcher) unload() error {
	d.binder.Reset()
	err := d.session.Unload()
	if d.observer != nil {
		d.observer.ObserveUnload()
	}
	if err != nil {
		return errors.Wrap(err, "unloading provider")
	}
	return nil
}

func (d *Dispatcher) setDebugOverride(req Request) (Outcome, error) {
	if d.override == nil {
		return Outcome{}, errors.New("debug override is not available")
	}
	if err := d.unload(); err != nil {
		return Outcome{}, err
	}
	d.override.SetDebugOverride(req.DebugLibrary)
	return Outcome{Status: scc.Success}, nil
}

// Package session holds the single provider session of the process: the
// loaded library, its opaque context and the capabilities it reported.
package session

import (
	"log/slog"
	"os"

	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/resolver"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultCallerName is passed to SccInitialize when none is configured.
const DefaultCallerName = "scchost"

// Resolver produces the descriptor of the library to load.
type Resolver interface {
	Resolve() (resolver.Descriptor, error)
}

// LoadObserver is told about every load attempt.
type LoadObserver interface {
	ObserveLoad(err error)
}

// Session is the process-wide provider session. It is not safe for concurrent
// use; callers serialise commands.
type Session struct {
	opener   provider.Opener
	resolver Resolver
	observer LoadObserver

	callerName string
	user       string

	// lib is non-nil exactly when a provider is loaded and initialised.
	lib        provider.Library
	info       provider.InitInfo
	descriptor resolver.Descriptor
	id         string
	log        *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithCallerName sets the caller identity handed to the provider.
func WithCallerName(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.callerName = name
		}
	}
}

// WithUser sets the user name used when opening projects. Names that do not
// fit the provider's user buffer are dropped.
func WithUser(user string) Option {
	return func(s *Session) {
		s.user = fitUser(user)
	}
}

// WithLoadObserver registers an observer for load attempts.
func WithLoadObserver(o LoadObserver) Option {
	return func(s *Session) { s.observer = o }
}

// New creates an unloaded session. The user name defaults to $USER.
func New(opener provider.Opener, res Resolver, opts ...Option) *Session {
	s := &Session{
		opener:     opener,
		resolver:   res,
		callerName: DefaultCallerName,
		user:       fitUser(os.Getenv("USER")),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func fitUser(user string) string {
	if len(user) > scc.UserLen {
		return ""
	}
	return user
}

// EnsureLoaded resolves and loads the provider unless one is already loaded.
func (s *Session) EnsureLoaded(hwnd scc.WindowHandle) error {
	if s.lib != nil {
		return nil
	}

	d, err := s.resolver.Resolve()
	if err != nil {
		s.observe(err)
		return err
	}
	err = s.load(d, hwnd)
	s.observe(err)
	return err
}

func (s *Session) observe(err error) {
	if s.observer != nil {
		s.observer.ObserveLoad(err)
	}
}

func (s *Session) load(d resolver.Descriptor, hwnd scc.WindowHandle) error {
	s.log.Debug("loading provider library", "path", d.LibraryPath, "provider", d.ProviderName)

	lib, err := s.opener.Open(d.LibraryPath)
	if err != nil {
		s.log.Debug("provider library failed to load", "path", d.LibraryPath, "error", err)
		return errors.Wrapf(scc.ErrProviderFailedToLoad, "%s: %v", d.LibraryPath, err)
	}

	info, rc := lib.Initialize(hwnd, s.callerName)
	if rc.IsError() {
		s.log.Debug("provider failed to initialize", "path", d.LibraryPath, "code", rc)
		if rerr := lib.Release(); rerr != nil {
			s.log.Warn("releasing provider after failed initialize", "error", rerr)
		}
		return errors.Wrapf(scc.ErrFailedToInitialize, "%s returned %s", d.LibraryPath, rc)
	}

	s.lib = lib
	s.info = info
	s.descriptor = d
	s.id = uuid.NewString()
	s.log = slog.Default().With("session", s.id)
	s.log.Info("provider loaded",
		"provider", info.ProviderName,
		"path", d.LibraryPath,
		"capabilities", info.Capabilities.String(),
		"checkoutCommentLimit", info.CheckoutCommentLimit,
		"commentLimit", info.CommentLimit,
	)
	return nil
}

// Unload closes any open project, uninitialises the provider and frees the
// library. It is a no-op when nothing is loaded.
func (s *Session) Unload() error {
	if s.lib == nil {
		return nil
	}
	lib := s.lib
	defer s.reset()

	s.log.Debug("unloading provider library")
	if rc := lib.CloseProject(); rc.IsError() {
		s.log.Debug("closing project during unload", "code", rc)
	}
	if rc := lib.Uninitialize(); rc.IsError() {
		s.log.Debug("uninitializing provider", "code", rc)
	}
	return lib.Release()
}

func (s *Session) reset() {
	s.lib = nil
	s.info = provider.InitInfo{}
	s.descriptor = resolver.Descriptor{}
	s.id = ""
	s.log = slog.Default()
}

// Loaded reports whether a provider is loaded and initialised.
func (s *Session) Loaded() bool { return s.lib != nil }

// Library returns the loaded provider.
func (s *Session) Library() (provider.Library, error) {
	if s.lib == nil {
		return nil, scc.ErrNotLoaded
	}
	return s.lib, nil
}

// ID identifies the current load; empty when unloaded.
func (s *Session) ID() string { return s.id }

// Logger returns a logger tagged with the session id.
func (s *Session) Logger() *slog.Logger { return s.log }

// User is the user name passed to project operations.
func (s *Session) User() string { return s.user }

// Info returns what the provider reported from Initialize.
func (s *Session) Info() provider.InitInfo { return s.info }

// Descriptor returns the descriptor of the loaded library.
func (s *Session) Descriptor() resolver.Descriptor { return s.descriptor }

// Capabilities returns the provider capability mask.
func (s *Session) Capabilities() scc.Capability { return s.info.Capabilities }

// CommentLimit is the maximum comment length for most commands.
func (s *Session) CommentLimit() int { return s.info.CommentLimit }

// CheckoutCommentLimit is the maximum comment length for checkout.
func (s *Session) CheckoutCommentLimit() int { return s.info.CheckoutCommentLimit }

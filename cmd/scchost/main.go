package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TheLazyLemur/scchost/internal/config"
	"github.com/TheLazyLemur/scchost/internal/confirm"
	"github.com/TheLazyLemur/scchost/internal/dispatch"
	"github.com/TheLazyLemur/scchost/internal/logging"
	"github.com/TheLazyLemur/scchost/internal/metrics"
	"github.com/TheLazyLemur/scchost/internal/project"
	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/provider/native"
	"github.com/TheLazyLemur/scchost/internal/resolver"
	"github.com/TheLazyLemur/scchost/internal/session"
	"github.com/TheLazyLemur/scchost/internal/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A signal cancels the command instead of killing the process, so the
	// provider is still unloaded once its current call returns. A second
	// signal exits immediately.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	return newRootCmd(rootOptions{}).ExecuteContext(ctx)
}

// rootOptions carries the persistent flags and the pieces tests replace.
type rootOptions struct {
	configPath string
	verbose    bool

	opener    provider.Opener
	confirmer confirm.Confirmer
	logOut    io.Writer
	// wrapLog lets serve fan log records out before the default logger is set.
	wrapLog func(slog.Handler) slog.Handler
}

func newRootCmd(opts rootOptions) *cobra.Command {
	o := &opts
	root := &cobra.Command{
		Use:   "scchost",
		Short: "Drive a source control provider library",
		Long: `scchost loads the configured source control provider library and runs
commands against it for files in the working tree.

Examples:
  # List installed providers
  scchost providers

  # Check in two files with a comment
  scchost exec checkin --comment "fix build" src/a.m src/b.m

  # Serve the websocket bridge for an editor
  scchost serve`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "trace every provider call")

	root.AddCommand(
		newExecCmd(o),
		newProvidersCmd(o),
		newCapabilityCmd(o),
		newRegisterCmd(o),
		newStatusCmd(o),
		newServeCmd(o),
	)
	return root
}

// lookup is a provider registry that can also list what is installed.
type lookup interface {
	resolver.Lookup
	resolver.Enumerator
}

// app is one wired host: session, binding cache and dispatcher.
type app struct {
	cfg        *config.Config
	log        *logging.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	store      store.Store
	session    *session.Session
	cache      *project.Cache
	dispatcher *dispatch.Dispatcher
}

func newApp(o *rootOptions) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}

	lg, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	out := o.logOut
	if out == nil {
		out = os.Stderr
	}
	var handler slog.Handler = lg.Handler(out, cfg.Log.Format)
	if o.wrapLog != nil {
		handler = o.wrapLog(handler)
	}
	slog.SetDefault(slog.New(handler))
	if o.verbose {
		lg.SetVerbose(true)
	}

	providers, err := newLookup(cfg)
	if err != nil {
		return nil, err
	}
	res := resolver.New(providers, cfg.Registry.AllowedDirs)
	if cfg.DebugLibrary != "" {
		res.SetDebugOverride(cfg.DebugLibrary)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	opener := o.opener
	if opener == nil {
		opener = native.Opener{}
	}
	sess := session.New(opener, res,
		session.WithCallerName(cfg.CallerName),
		session.WithUser(cfg.User),
		session.WithLoadObserver(m),
	)

	st, err := store.Open(cfg.Bindings.Driver, cfg.Bindings.Path)
	if err != nil {
		return nil, errors.Wrap(err, "opening binding store")
	}
	cache := project.NewCache(sess, st, m)

	confirmer := o.confirmer
	if confirmer == nil {
		confirmer, err = confirm.New(cfg.Confirm)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	d := dispatch.New(sess, cache,
		dispatch.WithConfirmer(confirmer),
		dispatch.WithEnumerator(providers),
		dispatch.WithDebugOverrider(res),
		dispatch.WithObserver(m),
	)

	slog.Debug("host ready",
		"provider", cfg.Provider,
		"registry", cfg.Registry.Source,
		"bindings", cfg.Bindings.Driver,
		"session", sess.ID(),
	)

	return &app{
		cfg:        cfg,
		log:        lg,
		registry:   reg,
		metrics:    m,
		store:      st,
		session:    sess,
		cache:      cache,
		dispatcher: d,
	}, nil
}

func newLookup(cfg *config.Config) (lookup, error) {
	if cfg.Registry.Source == config.SourceSystem {
		sys, err := resolver.NewSystemLookup(cfg.Provider)
		if err != nil {
			return nil, err
		}
		return sys, nil
	}
	static := &resolver.StaticLookup{
		Selected:  cfg.Provider,
		Installed: make(map[string]string, len(cfg.Registry.Providers)),
		Keys:      make(map[string]string, len(cfg.Registry.Providers)),
	}
	for _, p := range cfg.Registry.Providers {
		static.Installed[p.Name] = p.Key
		if p.Library != "" {
			static.Keys[p.Key] = p.Library
		}
	}
	return static, nil
}

// Close unloads the provider and closes the binding store.
func (a *app) Close() error {
	err := a.dispatcher.Close()
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "closing binding store")
	}
	return err
}

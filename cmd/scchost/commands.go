package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TheLazyLemur/scchost/internal/bridge"
	"github.com/TheLazyLemur/scchost/internal/dispatch"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// defaultWindow stands in for a host window when running from a terminal.
const defaultWindow = 1

type execFlags struct {
	comment        string
	window         uint64
	quiet          bool
	keepCheckedOut bool
	debugLibrary   string
	json           bool
}

func (f *execFlags) request(files []string) (dispatch.Request, error) {
	abs, err := absPaths(files)
	if err != nil {
		return dispatch.Request{}, err
	}
	return dispatch.Request{
		Files:          abs,
		Comment:        f.comment,
		Window:         scc.WindowHandle(f.window),
		Quiet:          f.quiet,
		KeepCheckedOut: f.keepCheckedOut,
		DebugLibrary:   f.debugLibrary,
	}, nil
}

func newExecCmd(o *rootOptions) *cobra.Command {
	f := &execFlags{}
	cmd := &cobra.Command{
		Use:   "exec <command> [file...]",
		Short: "Run one host command",
		Long: `Run one host command against the configured provider.

Commands: ` + strings.Join(dispatch.Names(), ", ") + `

Examples:
  # Check out a file and leave a comment
  scchost exec checkout --comment "refactor" src/a.m

  # Ask whether a file differs from the controlled version
  scchost exec isdiff src/a.m

  # Load a provider library directly for debugging
  SCCHOST_DEBUG_LIBRARY=./libfakescc.so scchost exec capability

setdebugoverride only lasts for the process that runs it, so it is useful
through the serve bridge. Set debug_library in the config file to keep an
override across runs.`,
		Args: cobra.MinimumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveDefault
			}
			return dispatch.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := dispatch.ParseCommand(args[0])
			if err != nil {
				return err
			}
			req, err := f.request(args[1:])
			if err != nil {
				return err
			}
			return runCommand(cmd, o, command, req, f.json)
		},
	}
	addExecFlags(cmd, f)
	cmd.Flags().StringVar(&f.comment, "comment", "", "comment passed to add, checkout, checkin and remove")
	cmd.Flags().BoolVar(&f.quiet, "quiet", false, "skip the confirmation step")
	cmd.Flags().BoolVar(&f.keepCheckedOut, "keep-checked-out", false, "keep files checked out after add or checkin")
	cmd.Flags().StringVar(&f.debugLibrary, "debug-library", "", "library path for setdebugoverride; empty clears it (this process only)")
	return cmd
}

func addExecFlags(cmd *cobra.Command, f *execFlags) {
	cmd.Flags().Uint64Var(&f.window, "window", defaultWindow, "host window handle passed to the provider")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
}

func newProvidersCmd(o *rootOptions) *cobra.Command {
	f := &execFlags{}
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List installed providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd, o, dispatch.EnumerateProviders, dispatch.Request{}, f.json)
		},
	}
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	return cmd
}

func newCapabilityCmd(o *rootOptions) *cobra.Command {
	f := &execFlags{}
	cmd := &cobra.Command{
		Use:   "capability",
		Short: "Load the provider and print its capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd, o, dispatch.QueryCapability, dispatch.Request{Window: scc.WindowHandle(f.window)}, f.json)
		},
	}
	addExecFlags(cmd, f)
	return cmd
}

func newRegisterCmd(o *rootOptions) *cobra.Command {
	f := &execFlags{}
	cmd := &cobra.Command{
		Use:   "register <dir>",
		Short: "Bind a directory to a provider project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(args)
			if err != nil {
				return err
			}
			return runCommand(cmd, o, dispatch.Register, req, f.json)
		},
	}
	addExecFlags(cmd, f)
	return cmd
}

func newStatusCmd(o *rootOptions) *cobra.Command {
	f := &execFlags{}
	cmd := &cobra.Command{
		Use:   "status <file...>",
		Short: "Print the provider status of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(args)
			if err != nil {
				return err
			}
			return runCommand(cmd, o, dispatch.Status, req, f.json)
		},
	}
	addExecFlags(cmd, f)
	return cmd
}

func runCommand(cmd *cobra.Command, o *rootOptions, command dispatch.Command, req dispatch.Request, asJSON bool) error {
	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.dispatcher.Execute(cmd.Context(), command, req)
	if asJSON {
		if perr := json.NewEncoder(cmd.OutOrStdout()).Encode(bridge.NewResult(command.String(), out, err)); perr != nil {
			return perr
		}
		return err
	}
	if err != nil {
		return err
	}
	printOutcome(cmd.OutOrStdout(), command, req, out)
	return nil
}

func printOutcome(w io.Writer, command dispatch.Command, req dispatch.Request, out dispatch.Outcome) {
	switch command {
	case dispatch.EnumerateProviders:
		names := append([]string(nil), out.Providers...)
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return
	case dispatch.QueryCapability:
		fmt.Fprintln(w, out.Capabilities)
		return
	case dispatch.Status:
		for i, file := range req.Files {
			if i < len(out.FileStatus) {
				fmt.Fprintf(w, "%s\t%s\n", file, out.FileStatus[i])
			}
		}
		return
	case dispatch.IsDiff:
		fmt.Fprintf(w, "differs: %t\n", out.Differs)
		return
	}

	switch {
	case out.Declined:
		fmt.Fprintln(w, "declined")
	default:
		fmt.Fprintln(w, out.Status)
	}
	if out.NeedsReload {
		fmt.Fprintln(w, "reload: "+strings.Join(req.Files, " "))
	}
}

func absPaths(files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	abs := make([]string, len(files))
	for i, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %q", f)
		}
		abs[i] = p
	}
	return abs, nil
}

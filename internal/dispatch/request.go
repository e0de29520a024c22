package dispatch

import "github.com/TheLazyLemur/scchost/internal/scc"

// Request is the host's command payload. It is read-only to the dispatcher.
type Request struct {
	Files          []string         `json:"files,omitempty"`
	Comment        string           `json:"comment,omitempty"`
	Window         scc.WindowHandle `json:"window,omitempty"`
	Quiet          bool             `json:"quiet,omitempty"`
	KeepCheckedOut bool             `json:"keep_checked_out,omitempty"`
	// DebugLibrary is the library path for SetDebugOverride; empty clears it.
	DebugLibrary string `json:"debug_library,omitempty"`
}

// Outcome is the result of one command.
type Outcome struct {
	// NeedsReload tells the host to reload the target files. For mutating
	// commands it only means the provider call was attempted.
	NeedsReload bool       `json:"needs_reload"`
	Status      scc.Status `json:"-"`
	// Declined is set when the confirmation step stopped the command.
	Declined bool `json:"declined,omitempty"`

	Differs      bool             `json:"differs,omitempty"`
	FileStatus   []scc.FileStatus `json:"file_status,omitempty"`
	Capabilities scc.Capability   `json:"capabilities,omitempty"`
	Providers    []string         `json:"providers,omitempty"`
}

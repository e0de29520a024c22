// Package provider defines the host-side view of a loaded source control
// provider library: one method per plugin entry point.
package provider

import "github.com/TheLazyLemur/scchost/internal/scc"

// InitInfo is what SccInitialize fills in.
type InitInfo struct {
	ProviderName         string
	Capabilities         scc.Capability
	AuxPathLabel         string
	CheckoutCommentLimit int
	CommentLimit         int
}

// OpenRequest carries the SccOpenProject arguments.
type OpenRequest struct {
	User        string
	ProjectName string
	LocalPath   string
	AuxPath     string
	Comment     string
	Flags       scc.OpenFlags
}

// ProjectPath is what SccGetProjPath returns after prompting the user.
type ProjectPath struct {
	User        string
	ProjectName string
	LocalPath   string
	AuxPath     string
	New         bool
}

// Library is a loaded provider. The opaque provider context created by
// Initialize lives inside the implementation and is never exposed.
type Library interface {
	Initialize(hwnd scc.WindowHandle, callerName string) (InitInfo, scc.ReturnCode)
	Uninitialize() scc.ReturnCode

	OpenProject(hwnd scc.WindowHandle, req OpenRequest) scc.ReturnCode
	GetProjPath(hwnd scc.WindowHandle, user, localPath string, allowChangePath bool) (ProjectPath, scc.ReturnCode)
	CloseProject() scc.ReturnCode

	Get(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode
	Checkout(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode
	Checkin(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode
	Uncheckout(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode
	Add(hwnd scc.WindowHandle, files []string, comment string, perFile []scc.Options) scc.ReturnCode
	Remove(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode
	Diff(hwnd scc.WindowHandle, file string, flags scc.DiffFlags) scc.ReturnCode
	History(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode
	Properties(hwnd scc.WindowHandle, file string) scc.ReturnCode
	QueryInfo(files []string) ([]scc.FileStatus, scc.ReturnCode)
	RunScc(hwnd scc.WindowHandle, files []string) scc.ReturnCode

	// LastMessage returns the most recent text the provider emitted through
	// its text-out callback and clears it.
	LastMessage() string

	// Release frees the library handle. It must be called after Uninitialize.
	Release() error
}

// Opener loads a provider library from disk.
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Library, error)

func (f OpenerFunc) Open(path string) (Library, error) { return f(path) }

// Package providertest provides a scriptable in-memory provider library.
package providertest

import (
	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/scc"
)

// Call records one entry point invocation.
type Call struct {
	Op      string
	Files   []string
	Comment string
	Opts    scc.Options
	PerFile []scc.Options
	Diff    scc.DiffFlags
	Open    provider.OpenRequest
}

var _ provider.Library = (*Fake)(nil)

// Fake is a provider.Library whose return codes are set by the test.
// Codes default to scc.OK.
type Fake struct {
	Info   provider.InitInfo
	InitRC scc.ReturnCode

	OpenRC     scc.ReturnCode
	ProjPath   provider.ProjectPath
	ProjPathRC scc.ReturnCode

	// RC overrides the return code of the named entry point, keyed by the
	// method name ("Get", "Checkin", ...).
	RC map[string]scc.ReturnCode
	// DiffRC is keyed by the flags passed to Diff.
	DiffRC map[scc.DiffFlags]scc.ReturnCode

	Statuses []scc.FileStatus
	Message  string

	ReleaseErr error

	Calls       []Call
	Initialized bool
	Released    bool
}

// New returns a fake advertising the given capabilities.
func New(caps scc.Capability) *Fake {
	return &Fake{
		Info: provider.InitInfo{
			ProviderName:         "Fake SCC",
			Capabilities:         caps,
			AuxPathLabel:         "Server",
			CheckoutCommentLimit: 64,
			CommentLimit:         128,
		},
		RC:     map[string]scc.ReturnCode{},
		DiffRC: map[scc.DiffFlags]scc.ReturnCode{},
	}
}

// Count returns how many times op was invoked.
func (f *Fake) Count(op string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the invoked entry point names in order.
func (f *Fake) Ops() []string {
	ops := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Last returns the most recent call to op.
func (f *Fake) Last(op string) (Call, bool) {
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Op == op {
			return f.Calls[i], true
		}
	}
	return Call{}, false
}

func (f *Fake) record(c Call) scc.ReturnCode {
	f.Calls = append(f.Calls, c)
	if f.RC == nil {
		return scc.OK
	}
	return f.RC[c.Op]
}

func (f *Fake) Initialize(hwnd scc.WindowHandle, callerName string) (provider.InitInfo, scc.ReturnCode) {
	f.Calls = append(f.Calls, Call{Op: "Initialize", Comment: callerName})
	if f.InitRC.IsError() {
		return provider.InitInfo{}, f.InitRC
	}
	f.Initialized = true
	f.Released = false
	return f.Info, f.InitRC
}

func (f *Fake) Uninitialize() scc.ReturnCode {
	f.Initialized = false
	return f.record(Call{Op: "Uninitialize"})
}

func (f *Fake) OpenProject(hwnd scc.WindowHandle, req provider.OpenRequest) scc.ReturnCode {
	f.Calls = append(f.Calls, Call{Op: "OpenProject", Open: req})
	return f.OpenRC
}

func (f *Fake) GetProjPath(hwnd scc.WindowHandle, user, localPath string, allowChangePath bool) (provider.ProjectPath, scc.ReturnCode) {
	f.Calls = append(f.Calls, Call{Op: "GetProjPath", Files: []string{localPath}})
	p := f.ProjPath
	p.User = user
	p.LocalPath = localPath
	return p, f.ProjPathRC
}

func (f *Fake) CloseProject() scc.ReturnCode {
	return f.record(Call{Op: "CloseProject"})
}

func (f *Fake) Get(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode {
	return f.record(Call{Op: "Get", Files: files, Opts: opts})
}

func (f *Fake) Checkout(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode {
	return f.record(Call{Op: "Checkout", Files: files, Comment: comment, Opts: opts})
}

func (f *Fake) Checkin(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode {
	return f.record(Call{Op: "Checkin", Files: files, Comment: comment, Opts: opts})
}

func (f *Fake) Uncheckout(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode {
	return f.record(Call{Op: "Uncheckout", Files: files, Opts: opts})
}

func (f *Fake) Add(hwnd scc.WindowHandle, files []string, comment string, perFile []scc.Options) scc.ReturnCode {
	return f.record(Call{Op: "Add", Files: files, Comment: comment, PerFile: perFile})
}

func (f *Fake) Remove(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode {
	return f.record(Call{Op: "Remove", Files: files, Comment: comment, Opts: opts})
}

func (f *Fake) Diff(hwnd scc.WindowHandle, file string, flags scc.DiffFlags) scc.ReturnCode {
	f.Calls = append(f.Calls, Call{Op: "Diff", Files: []string{file}, Diff: flags})
	return f.DiffRC[flags]
}

func (f *Fake) History(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode {
	return f.record(Call{Op: "History", Files: files, Opts: opts})
}

func (f *Fake) Properties(hwnd scc.WindowHandle, file string) scc.ReturnCode {
	return f.record(Call{Op: "Properties", Files: []string{file}})
}

func (f *Fake) QueryInfo(files []string) ([]scc.FileStatus, scc.ReturnCode) {
	rc := f.record(Call{Op: "QueryInfo", Files: files})
	out := make([]scc.FileStatus, len(files))
	copy(out, f.Statuses)
	return out, rc
}

func (f *Fake) RunScc(hwnd scc.WindowHandle, files []string) scc.ReturnCode {
	return f.record(Call{Op: "RunScc", Files: files})
}

func (f *Fake) LastMessage() string {
	msg := f.Message
	f.Message = ""
	return msg
}

func (f *Fake) Release() error {
	f.Released = true
	return f.ReleaseErr
}

// Opener hands out Lib, or fails with Err.
type Opener struct {
	Lib   *Fake
	Err   error
	Paths []string
}

func (o *Opener) Open(path string) (provider.Library, error) {
	o.Paths = append(o.Paths, path)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Lib, nil
}

// Package native loads a provider shared library into the process and calls
// its entry points directly. Every entry point is resolved when the library is
// opened; a library missing any of them is rejected.
package native

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
)

const (
	procInitialize   = "SccInitialize"
	procUninitialize = "SccUninitialize"
	procOpenProject  = "SccOpenProject"
	procGetProjPath  = "SccGetProjPath"
	procCloseProject = "SccCloseProject"
	procGet          = "SccGet"
	procCheckout     = "SccCheckout"
	procCheckin      = "SccCheckin"
	procUncheckout   = "SccUncheckout"
	procAdd          = "SccAdd"
	procRemove       = "SccRemove"
	procDiff         = "SccDiff"
	procHistory      = "SccHistory"
	procProperties   = "SccProperties"
	procQueryInfo    = "SccQueryInfo"
	procRunScc       = "SccRunScc"
)

var requiredProcs = []string{
	procInitialize, procUninitialize, procOpenProject, procGetProjPath,
	procCloseProject, procGet, procCheckout, procCheckin, procUncheckout,
	procAdd, procRemove, procDiff, procHistory, procProperties,
	procQueryInfo, procRunScc,
}

var _ provider.Library = (*Library)(nil)

// Library is a provider shared library mapped into the process.
type Library struct {
	handle uintptr
	procs  map[string]uintptr
	// ctx is the provider's opaque context, populated by Initialize.
	ctx uintptr

	mu   sync.Mutex
	text string
}

// Opener opens libraries with Open.
type Opener struct{}

func (Opener) Open(path string) (provider.Library, error) {
	lib, err := Open(path)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// Open maps the library at path and resolves every required entry point.
func Open(path string) (*Library, error) {
	handle, err := openLibrary(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	procs := make(map[string]uintptr, len(requiredProcs))
	for _, name := range requiredProcs {
		addr, err := lookupSymbol(handle, name)
		if err != nil || addr == 0 {
			if cerr := closeLibrary(handle); cerr != nil {
				slog.Debug("closing partially loaded library", "path", path, "error", cerr)
			}
			if err == nil {
				err = errors.New("symbol address is nil")
			}
			return nil, errors.Wrapf(err, "resolving %s in %s", name, path)
		}
		procs[name] = addr
	}

	lib := &Library{handle: handle, procs: procs}
	textSinkTarget.Store(lib)
	return lib, nil
}

func (l *Library) call(name string, args ...uintptr) scc.ReturnCode {
	if l.handle == 0 {
		return scc.InitializeFailed
	}
	r := callProc(l.procs[name], args...)
	return scc.ReturnCode(int32(r))
}

func (l *Library) Initialize(hwnd scc.WindowHandle, callerName string) (provider.InitInfo, scc.ReturnCode) {
	var a cargs
	defer a.release()

	var ctx uintptr
	var caps, chkLen, cmtLen cLong
	name := a.buffer(scc.NameLen)
	auxLabel := a.buffer(scc.AuxLabelLen)

	rc := l.call(procInitialize,
		a.ptr(unsafe.Pointer(&ctx)),
		uintptr(hwnd),
		a.str(callerName),
		a.bytes(name),
		a.ptr(unsafe.Pointer(&caps)),
		a.bytes(auxLabel),
		a.ptr(unsafe.Pointer(&chkLen)),
		a.ptr(unsafe.Pointer(&cmtLen)),
	)
	if rc.IsError() {
		return provider.InitInfo{}, rc
	}
	l.ctx = ctx
	return provider.InitInfo{
		ProviderName:         goString(name),
		Capabilities:         scc.Capability(caps),
		AuxPathLabel:         goString(auxLabel),
		CheckoutCommentLimit: int(chkLen),
		CommentLimit:         int(cmtLen),
	}, rc
}

func (l *Library) Uninitialize() scc.ReturnCode {
	rc := l.call(procUninitialize, l.ctx)
	l.ctx = 0
	return rc
}

func (l *Library) OpenProject(hwnd scc.WindowHandle, req provider.OpenRequest) scc.ReturnCode {
	var a cargs
	defer a.release()

	user := a.bufferFrom(req.User, scc.UserLen)
	proj := a.bufferFrom(req.ProjectName, scc.PrjPathLen)
	aux := a.bufferFrom(req.AuxPath, scc.PrjPathLen)

	return l.call(procOpenProject,
		l.ctx,
		uintptr(hwnd),
		a.bytes(user),
		a.bytes(proj),
		a.str(req.LocalPath),
		a.bytes(aux),
		a.str(req.Comment),
		textOutCallback(),
		uintptr(req.Flags),
	)
}

func (l *Library) GetProjPath(hwnd scc.WindowHandle, user, localPath string, allowChangePath bool) (provider.ProjectPath, scc.ReturnCode) {
	var a cargs
	defer a.release()

	userBuf := a.bufferFrom(user, scc.UserLen)
	proj := a.buffer(scc.PrjPathLen)
	local := a.bufferFrom(localPath, scc.MaxPath)
	aux := a.buffer(scc.PrjPathLen)
	var isNew int32

	rc := l.call(procGetProjPath,
		l.ctx,
		uintptr(hwnd),
		a.bytes(userBuf),
		a.bytes(proj),
		a.bytes(local),
		a.bytes(aux),
		boolArg(allowChangePath),
		a.ptr(unsafe.Pointer(&isNew)),
	)
	return provider.ProjectPath{
		User:        goString(userBuf),
		ProjectName: goString(proj),
		LocalPath:   goString(local),
		AuxPath:     goString(aux),
		New:         isNew != 0,
	}, rc
}

func (l *Library) CloseProject() scc.ReturnCode {
	return l.call(procCloseProject, l.ctx)
}

func (l *Library) Get(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procGet, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files), uintptr(opts), 0)
}

func (l *Library) Checkout(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procCheckout, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files), a.str(comment), uintptr(opts), 0)
}

func (l *Library) Checkin(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procCheckin, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files), a.str(comment), uintptr(opts), 0)
}

func (l *Library) Uncheckout(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procUncheckout, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files), uintptr(opts), 0)
}

func (l *Library) Add(hwnd scc.WindowHandle, files []string, comment string, perFile []scc.Options) scc.ReturnCode {
	var a cargs
	defer a.release()

	flags := make([]cLong, len(files))
	for i := range flags {
		if i < len(perFile) {
			flags[i] = cLong(perFile[i])
		}
	}
	return l.call(procAdd, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files), a.str(comment), a.longs(flags), 0)
}

func (l *Library) Remove(hwnd scc.WindowHandle, files []string, comment string, opts scc.Options) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procRemove, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files), a.str(comment), uintptr(opts), 0)
}

func (l *Library) Diff(hwnd scc.WindowHandle, file string, flags scc.DiffFlags) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procDiff, l.ctx, uintptr(hwnd), a.str(file), uintptr(flags), 0)
}

func (l *Library) History(hwnd scc.WindowHandle, files []string, opts scc.Options) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procHistory, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files), uintptr(opts), 0)
}

func (l *Library) Properties(hwnd scc.WindowHandle, file string) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procProperties, l.ctx, uintptr(hwnd), a.str(file))
}

func (l *Library) QueryInfo(files []string) ([]scc.FileStatus, scc.ReturnCode) {
	var a cargs
	defer a.release()

	raw := make([]cLong, len(files))
	rc := l.call(procQueryInfo, l.ctx, uintptr(len(files)), a.strs(files), a.longs(raw))
	status := make([]scc.FileStatus, len(raw))
	for i, v := range raw {
		status[i] = scc.FileStatus(v)
	}
	return status, rc
}

func (l *Library) RunScc(hwnd scc.WindowHandle, files []string) scc.ReturnCode {
	var a cargs
	defer a.release()
	return l.call(procRunScc, l.ctx, uintptr(hwnd), uintptr(len(files)), a.strs(files))
}

func (l *Library) LastMessage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := l.text
	l.text = ""
	return msg
}

func (l *Library) appendText(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.text != "" {
		l.text += "\n"
	}
	l.text += msg
}

func (l *Library) Release() error {
	if l.handle == 0 {
		return nil
	}
	textSinkTarget.CompareAndSwap(l, nil)
	err := closeLibrary(l.handle)
	l.handle = 0
	l.ctx = 0
	return errors.Wrap(err, "freeing provider library")
}

// Text-out message types the host keeps; status and cancel polling messages are dropped.
const (
	msgInfo    = 1
	msgWarning = 2
	msgError   = 3
)

var (
	textSinkTarget atomic.Pointer[Library]
	textOutOnce    sync.Once
	textOutAddr    uintptr
)

// textOutCallback returns the process-wide text-out procedure. Callbacks
// cannot be freed, so exactly one is created and routed to the open library.
func textOutCallback() uintptr {
	textOutOnce.Do(func() {
		textOutAddr = newCallback(func(msg unsafe.Pointer, kind uintptr) uintptr {
			lib := textSinkTarget.Load()
			if lib == nil || msg == nil {
				return 0
			}
			switch int32(kind) {
			case msgInfo, msgWarning, msgError:
				lib.appendText(cString(msg))
			}
			return 0
		})
	})
	return textOutAddr
}

// cargs keeps every buffer handed to the provider pinned until the call returns.
type cargs struct {
	pinner runtime.Pinner
}

func (a *cargs) release() { a.pinner.Unpin() }

func (a *cargs) ptr(p unsafe.Pointer) uintptr {
	a.pinner.Pin(p)
	return uintptr(p)
}

func (a *cargs) str(s string) uintptr {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return a.bytes(b)
}

func (a *cargs) bytes(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return a.ptr(unsafe.Pointer(&b[0]))
}

// buffer allocates an output buffer holding n bytes plus the terminator.
func (a *cargs) buffer(n int) []byte {
	return make([]byte, n+1)
}

// bufferFrom allocates an in/out buffer of n bytes initialised with s.
func (a *cargs) bufferFrom(s string, n int) []byte {
	b := make([]byte, n+1)
	copy(b[:n], s)
	return b
}

func (a *cargs) strs(ss []string) uintptr {
	if len(ss) == 0 {
		return 0
	}
	ptrs := make([]uintptr, len(ss))
	for i, s := range ss {
		ptrs[i] = a.str(s)
	}
	return a.ptr(unsafe.Pointer(&ptrs[0]))
}

func (a *cargs) longs(v []cLong) uintptr {
	if len(v) == 0 {
		return 0
	}
	return a.ptr(unsafe.Pointer(&v[0]))
}

func boolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

func goString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// cString copies a NUL-terminated string owned by the provider.
func cString(p unsafe.Pointer) string {
	var out []byte
	for i := 0; i < scc.PrjPathLen*4; i++ {
		c := *(*byte)(unsafe.Add(p, i))
		if c == 0 {
			break
		}
		out = append(out, c)
	}
	return string(out)
}

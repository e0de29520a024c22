package session

import (
	"testing"

	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/provider/providertest"
	"github.com/TheLazyLemur/scchost/internal/resolver"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	d     resolver.Descriptor
	err   error
	calls int
}

func (r *staticResolver) Resolve() (resolver.Descriptor, error) {
	r.calls++
	return r.d, r.err
}

type countingObserver struct {
	ok, failed int
}

func (o *countingObserver) ObserveLoad(err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func newFixture() (*providertest.Fake, *providertest.Opener, *staticResolver) {
	lib := providertest.New(scc.CapDiff | scc.CapHistory)
	return lib, &providertest.Opener{Lib: lib}, &staticResolver{d: resolver.Descriptor{ProviderName: "Fake SCC", LibraryPath: "/opt/fake.so"}}
}

func assertEmpty(t *testing.T, s *Session) {
	t.Helper()
	a := assert.New(t)
	a.False(s.Loaded())
	a.Empty(s.ID())
	a.Equal(provider.InitInfo{}, s.Info())
	a.Equal(resolver.Descriptor{}, s.Descriptor())
	_, err := s.Library()
	a.ErrorIs(err, scc.ErrNotLoaded)
}

func TestEnsureLoaded_PopulatesSession(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	lib, opener, res := newFixture()
	obs := &countingObserver{}
	s := New(opener, res, WithCallerName("MATLAB"), WithUser("alice"), WithLoadObserver(obs))

	// when
	err := s.EnsureLoaded(scc.WindowHandle(1))

	// then
	r.NoError(err)
	a.True(s.Loaded())
	a.NotEmpty(s.ID())
	a.Equal(scc.CapDiff|scc.CapHistory, s.Capabilities())
	a.Equal(64, s.CheckoutCommentLimit())
	a.Equal(128, s.CommentLimit())
	a.Equal("alice", s.User())
	a.Equal([]string{"/opt/fake.so"}, opener.Paths)
	init, ok := lib.Last("Initialize")
	r.True(ok)
	a.Equal("MATLAB", init.Comment)
	a.Equal(1, obs.ok)
}

func TestEnsureLoaded_IsIdempotent(t *testing.T) {
	// given
	lib, opener, res := newFixture()
	s := New(opener, res)
	require.NoError(t, s.EnsureLoaded(scc.WindowHandle(1)))

	// when
	err := s.EnsureLoaded(scc.WindowHandle(1))

	// then
	require.NoError(t, err)
	assert.Equal(t, 1, res.calls)
	assert.Equal(t, 1, lib.Count("Initialize"))
	assert.Len(t, opener.Paths, 1)
}

func TestEnsureLoaded_OpenFailureLeavesEmptySession(t *testing.T) {
	// given
	_, opener, res := newFixture()
	opener.Err = errors.New("dlopen: no such file")
	obs := &countingObserver{}
	s := New(opener, res, WithLoadObserver(obs))

	// when
	err := s.EnsureLoaded(scc.WindowHandle(1))

	// then
	assert.ErrorIs(t, err, scc.ErrProviderFailedToLoad)
	assert.Contains(t, err.Error(), "no such file")
	assertEmpty(t, s)
	assert.Equal(t, 1, obs.failed)
}

func TestEnsureLoaded_InitializeFailureReleasesLibrary(t *testing.T) {
	a := assert.New(t)

	// given
	lib, opener, res := newFixture()
	lib.InitRC = scc.InitializeFailed
	s := New(opener, res)

	// when
	err := s.EnsureLoaded(scc.WindowHandle(1))

	// then
	a.ErrorIs(err, scc.ErrFailedToInitialize)
	a.True(lib.Released)
	assertEmpty(t, s)
}

func TestEnsureLoaded_RetriesAfterFailure(t *testing.T) {
	// given
	lib, opener, res := newFixture()
	lib.InitRC = scc.InitializeFailed
	s := New(opener, res)
	require.Error(t, s.EnsureLoaded(scc.WindowHandle(1)))

	// when
	lib.InitRC = scc.OK
	err := s.EnsureLoaded(scc.WindowHandle(1))

	// then
	require.NoError(t, err)
	assert.Equal(t, 2, res.calls)
	assert.True(t, s.Loaded())
}

func TestEnsureLoaded_ResolveFailureNeverOpens(t *testing.T) {
	// given
	_, opener, res := newFixture()
	res.err = scc.ErrNoProviderSelected
	s := New(opener, res)

	// when
	err := s.EnsureLoaded(scc.WindowHandle(1))

	// then
	assert.ErrorIs(t, err, scc.ErrNoProviderSelected)
	assert.Empty(t, opener.Paths)
	assertEmpty(t, s)
}

func TestUnload_WhenNotLoadedIsNoop(t *testing.T) {
	_, opener, res := newFixture()
	s := New(opener, res)

	assert.NoError(t, s.Unload())
	assert.NoError(t, s.Unload())
	assertEmpty(t, s)
}

func TestUnload_TearsDownInOrder(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	lib, opener, res := newFixture()
	s := New(opener, res)
	r.NoError(s.EnsureLoaded(scc.WindowHandle(1)))

	// when
	err := s.Unload()

	// then
	r.NoError(err)
	a.Equal([]string{"Initialize", "CloseProject", "Uninitialize"}, lib.Ops())
	a.True(lib.Released)
	assertEmpty(t, s)
}

func TestUnload_TwiceSameAsOnce(t *testing.T) {
	// given
	lib, opener, res := newFixture()
	s := New(opener, res)
	require.NoError(t, s.EnsureLoaded(scc.WindowHandle(1)))

	// when
	require.NoError(t, s.Unload())
	require.NoError(t, s.Unload())

	// then
	assert.Equal(t, 1, lib.Count("Uninitialize"))
	assert.Equal(t, 1, lib.Count("CloseProject"))
	assertEmpty(t, s)
}

func TestUnload_ReleaseErrorStillResets(t *testing.T) {
	// given
	lib, opener, res := newFixture()
	lib.ReleaseErr = errors.New("busy")
	s := New(opener, res)
	require.NoError(t, s.EnsureLoaded(scc.WindowHandle(1)))

	// when
	err := s.Unload()

	// then
	assert.Error(t, err)
	assertEmpty(t, s)
}

func TestWithUser_DropsOversizedName(t *testing.T) {
	_, opener, res := newFixture()
	s := New(opener, res, WithUser("this-user-name-is-far-too-long-for-the-buffer"))

	assert.Empty(t, s.User())
}

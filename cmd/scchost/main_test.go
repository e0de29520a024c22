package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TheLazyLemur/scchost/internal/bridge"
	"github.com/TheLazyLemur/scchost/internal/confirm"
	"github.com/TheLazyLemur/scchost/internal/dispatch"
	"github.com/TheLazyLemur/scchost/internal/provider"
	"github.com/TheLazyLemur/scchost/internal/provider/providertest"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
provider: Fake SCC
user: alice
registry:
  providers:
    - name: Fake SCC
      key: Software\Fake
      library: /opt/fake.so
    - name: Another SCC
      key: Software\Another
bindings:
  driver: yaml
  path: %BINDINGS%
bridge:
  token: secret
`

func writeTestConfig(t *testing.T) (configPath, bindingsPath string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	bindingsPath = filepath.Join(dir, "bindings.yaml")
	configPath = filepath.Join(dir, "config.yaml")
	body := strings.ReplaceAll(testConfig, "%BINDINGS%", bindingsPath)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return configPath, bindingsPath
}

func newFake() (*providertest.Fake, *providertest.Opener) {
	lib := providertest.New(scc.CapDiff | scc.CapHistory)
	lib.ProjPath = provider.ProjectPath{ProjectName: "$/proj", AuxPath: "srv"}
	return lib, &providertest.Opener{Lib: lib}
}

func execute(t *testing.T, opts rootOptions, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), opts, args...)
}

func executeContext(t *testing.T, ctx context.Context, opts rootOptions, args ...string) (string, error) {
	t.Helper()
	opts.logOut = io.Discard
	if opts.confirmer == nil {
		opts.confirmer = confirm.Always{}
	}
	cmd := newRootCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestProviders_ListsConfiguredProviders(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	lib, opener := newFake()

	// when
	out, err := execute(t, rootOptions{opener: opener}, "--config", cfgPath, "providers")

	// then
	r.NoError(err)
	a.Equal("Another SCC\nFake SCC\n", out)
	a.Empty(lib.Calls)
}

func TestExec_CheckinBindsAndPersists(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	cfgPath, bindingsPath := writeTestConfig(t)
	lib, opener := newFake()
	work := t.TempDir()
	file := filepath.Join(work, "a.m")
	r.NoError(os.WriteFile(file, []byte("x = 1;"), 0o600))

	// when
	out, err := execute(t, rootOptions{opener: opener},
		"--config", cfgPath, "exec", "checkin", "--comment", "fix", file)

	// then
	r.NoError(err)
	a.Contains(out, "success")
	a.Contains(out, "reload: "+file)
	call, ok := lib.Last("Checkin")
	r.True(ok)
	a.Equal([]string{file}, call.Files)
	a.Equal("fix", call.Comment)
	a.Equal(1, lib.Count("GetProjPath"))

	data, err := os.ReadFile(bindingsPath)
	r.NoError(err)
	a.Contains(string(data), work)
	a.Contains(string(data), "proj")
}

func TestExec_SecondRunReusesSavedBinding(t *testing.T) {
	r := require.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	file := filepath.Join(t.TempDir(), "a.m")
	_, first := newFake()
	_, err := execute(t, rootOptions{opener: first}, "--config", cfgPath, "exec", "get", file)
	r.NoError(err)

	// when
	lib, second := newFake()
	_, err = execute(t, rootOptions{opener: second}, "--config", cfgPath, "exec", "get", file)

	// then
	r.NoError(err)
	assert.Equal(t, 0, lib.Count("GetProjPath"))
	assert.Equal(t, 1, lib.Count("Get"))
}

func TestExec_JSONReportsProviderError(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	lib, opener := newFake()
	lib.RC["Checkout"] = scc.FileIsCheckedOut
	file := filepath.Join(t.TempDir(), "a.m")

	// when
	out, err := execute(t, rootOptions{opener: opener},
		"--config", cfgPath, "exec", "checkout", "--json", file)

	// then
	r.Error(err)
	var res bridge.Result
	r.NoError(json.Unmarshal([]byte(out), &res))
	a.Equal("checkout", res.Command)
	a.Equal("error", res.Kind)
	a.Equal(scc.FileIsCheckedOut, res.Code)
}

func TestExec_UnknownCommand(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, opener := newFake()

	_, err := execute(t, rootOptions{opener: opener}, "--config", cfgPath, "exec", "frobnicate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestStatus_UnboundFilesReportNoHostProject(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	lib, opener := newFake()
	file := filepath.Join(t.TempDir(), "a.m")

	// when
	out, err := execute(t, rootOptions{opener: opener}, "--config", cfgPath, "status", file)

	// then
	r.NoError(err)
	a.Equal(file+"\t"+scc.StatusNoHostProject.String()+"\n", out)
	a.Equal(0, lib.Count("QueryInfo"))
}

func TestCapability_PrintsProviderCapabilities(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, opener := newFake()

	out, err := execute(t, rootOptions{opener: opener}, "--config", cfgPath, "capability")

	require.NoError(t, err)
	assert.Equal(t, (scc.CapDiff|scc.CapHistory).String()+"\n", out)
}

func TestExec_MissingConfigFile(t *testing.T) {
	_, err := execute(t, rootOptions{}, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "providers")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestServe_RunsCommandsOverHTTP(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	_, opener := newFake()
	opts := &rootOptions{configPath: cfgPath, opener: opener, confirmer: confirm.Always{}, logOut: io.Discard}
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, opts, "127.0.0.1:0", ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}

	// when
	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/api/command",
		strings.NewReader(`{"command":"enumerateproviders"}`))
	r.NoError(err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	r.NoError(err)
	defer resp.Body.Close()

	// then
	r.Equal(http.StatusOK, resp.StatusCode)
	var res bridge.Result
	r.NoError(json.NewDecoder(resp.Body).Decode(&res))
	a.ElementsMatch([]string{"Fake SCC", "Another SCC"}, res.Outcome.Providers)

	cancel()
	select {
	case err := <-done:
		a.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func indexOf(ops []string, op string) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}

func TestExec_CanceledDuringConfirmationStillUnloads(t *testing.T) {
	a := assert.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	lib, opener := newFake()
	file := filepath.Join(t.TempDir(), "a.m")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupted := confirm.Func(func(ctx context.Context, _ confirm.Request) (bool, error) {
		cancel()
		<-ctx.Done()
		return false, ctx.Err()
	})

	// when
	_, err := executeContext(t, ctx, rootOptions{opener: opener, confirmer: interrupted},
		"--config", cfgPath, "exec", "checkin", "--comment", "fix", file)

	// then
	a.ErrorIs(err, context.Canceled)
	a.Zero(lib.Count("Checkin"))
	a.Contains(lib.Ops(), "Uninitialize")
	a.True(lib.Released)
}

func TestExec_DebugLibraryFromEnvironment(t *testing.T) {
	r := require.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	t.Setenv("SCCHOST_DEBUG_LIBRARY", "/opt/debug.so")
	_, opener := newFake()

	// when
	_, err := execute(t, rootOptions{opener: opener}, "--config", cfgPath, "capability")

	// then
	r.NoError(err)
	assert.Equal(t, []string{"/opt/debug.so"}, opener.Paths)
}

func TestServe_WaitsForRunningCommandBeforeUnload(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	cfgPath, _ := writeTestConfig(t)
	lib, opener := newFake()
	file := filepath.Join(t.TempDir(), "a.m")
	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := confirm.Func(func(context.Context, confirm.Request) (bool, error) {
		close(entered)
		<-release
		return true, nil
	})
	opts := &rootOptions{configPath: cfgPath, opener: opener, confirmer: blocking, logOut: io.Discard}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, opts, "127.0.0.1:0", ready) }()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?token=secret", nil)
	r.NoError(err)
	defer conn.Close()
	r.NoError(conn.WriteJSON(bridge.Message{
		Type:    "command",
		ID:      "1",
		Command: "checkin",
		Request: &dispatch.Request{Files: []string{file}, Comment: "fix", Window: 1},
	}))
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("command never reached confirmation")
	}

	// when
	cancel()

	// then
	select {
	case err := <-done:
		t.Fatalf("serve returned while a command was running: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	a.False(lib.Released)

	close(release)
	select {
	case err := <-done:
		a.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
	ops := lib.Ops()
	checkin, uninit := indexOf(ops, "Checkin"), indexOf(ops, "Uninitialize")
	r.NotEqual(-1, checkin)
	r.NotEqual(-1, uninit)
	a.Less(checkin, uninit)
	a.True(lib.Released)
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("USER", "alice")
}

func TestLoad_Defaults(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	isolate(t)

	// when
	cfg, err := Load("")

	// then
	r.NoError(err)
	a.Equal("scchost", cfg.CallerName)
	a.Equal("alice", cfg.User)
	a.Equal("always", cfg.Confirm)
	a.Equal(SourceConfig, cfg.Registry.Source)
	a.Equal("sqlite", cfg.Bindings.Driver)
	a.True(strings.HasSuffix(cfg.Bindings.Path, filepath.Join("scchost", "bindings.db")))
	a.Equal("info", cfg.Log.Level)
	a.Equal("text", cfg.Log.Format)
	a.Equal("127.0.0.1:7455", cfg.Bridge.Addr)
	a.Empty(cfg.Provider)
}

func TestLoad_File(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	isolate(t)
	path := writeConfig(t, `
provider: Fake SCC
caller_name: MATLAB
confirm: prompt
registry:
  providers:
    - name: Fake SCC
      key: Software\Fake\Scc
      library: /opt/fake.so
    - name: Perforce 2024.1
      key: Software\Perforce
      library: /opt/p4scc.so
  allowed_dirs: [/opt]
bindings:
  driver: yaml
log:
  level: debug
  format: json
bridge:
  token: secret
`)

	// when
	cfg, err := Load(path)

	// then
	r.NoError(err)
	a.Equal("Fake SCC", cfg.Provider)
	a.Equal("MATLAB", cfg.CallerName)
	a.Equal("prompt", cfg.Confirm)
	r.Len(cfg.Registry.Providers, 2)
	a.Equal(ProviderEntry{Name: "Fake SCC", Key: `Software\Fake\Scc`, Library: "/opt/fake.so"}, cfg.Registry.Providers[0])
	a.Equal("Perforce 2024.1", cfg.Registry.Providers[1].Name)
	a.Equal([]string{"/opt"}, cfg.Registry.AllowedDirs)
	a.Equal("yaml", cfg.Bindings.Driver)
	a.True(strings.HasSuffix(cfg.Bindings.Path, "bindings.yaml"))
	a.Equal("debug", cfg.Log.Level)
	a.Equal("json", cfg.Log.Format)
	a.Equal("secret", cfg.Bridge.Token)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	isolate(t)
	path := writeConfig(t, "provider: Fake SCC\nbindings:\n  driver: sqlite\n")
	t.Setenv("SCCHOST_PROVIDER", "Other SCC")
	t.Setenv("SCCHOST_CALLER_NAME", "host")
	t.Setenv("SCCHOST_BINDINGS_DRIVER", "memory")
	t.Setenv("SCCHOST_BRIDGE_ADDR", ":9000")
	t.Setenv("SCCHOST_REGISTRY_ALLOWED_DIRS", "/opt, /usr/lib ,")

	// when
	cfg, err := Load(path)

	// then
	r.NoError(err)
	a.Equal("Other SCC", cfg.Provider)
	a.Equal("host", cfg.CallerName)
	a.Equal("memory", cfg.Bindings.Driver)
	a.Empty(cfg.Bindings.Path)
	a.Equal(":9000", cfg.Bridge.Addr)
	a.Equal([]string{"/opt", "/usr/lib"}, cfg.Registry.AllowedDirs)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening config file")
}

func TestLoad_RejectsLargeFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "provider: x\n"+strings.Repeat("#", maxConfigFileSize))

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "larger than")
}

func TestLoad_InvalidValues(t *testing.T) {
	for name, body := range map[string]string{
		"source":    "registry:\n  source: ldap\n",
		"driver":    "bindings:\n  driver: postgres\n",
		"confirm":   "confirm: sometimes\n",
		"level":     "log:\n  level: trace\n",
		"format":    "log:\n  format: xml\n",
		"unnamed":   "registry:\n  providers:\n    - key: k\n",
		"duplicate": "registry:\n  providers:\n    - {name: a, key: k}\n    - {name: a, key: j}\n",
	} {
		t.Run(name, func(t *testing.T) {
			isolate(t)

			_, err := Load(writeConfig(t, body))

			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestEnvKey(t *testing.T) {
	a := assert.New(t)

	for in, want := range map[string]string{
		"SCCHOST_PROVIDER":        "provider",
		"SCCHOST_DEBUG_LIBRARY":   "debug_library",
		"SCCHOST_BINDINGS_PATH":   "bindings.path",
		"SCCHOST_LOG_LEVEL":       "log.level",
		"SCCHOST_BRIDGE_TOKEN":    "bridge.token",
		"SCCHOST_REGISTRY_SOURCE": "registry.source",
	} {
		key, _ := envKey(in, "v")
		a.Equal(want, key, in)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"stopmo/internal/config"
	"stopmo/internal/session"
	"stopmo/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	stills     string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("STOPMO_CAPTURE_DIR", "")
	t.Setenv("STOPMO_CAMERA_DEVICE", "")
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Capture.PromptForFolder = false
	cfg.Camera.Device = filepath.Join(testsupport.BaseDir(cfg), "video0")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		stills:     testsupport.WriteStills(t, 3, 96, 72),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// holdSessionLock takes the session lock as another process would.
func holdSessionLock(t *testing.T, env *cliTestEnv) {
	t.Helper()
	lock, err := session.AcquireLock(env.cfg.SessionLockPath())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"concierge/internal/records"
	"concierge/internal/store"
)

type cliTestEnv struct {
	dataDir    string
	logDir     string
	bind       string
	configPath string
}

// setupCLITestEnv writes a config whose status API points at bind. An empty
// bind selects an address nothing listens on.
func setupCLITestEnv(t *testing.T, bind string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", base)
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("CONCIERGE_API_TOKEN", "")

	if bind == "" {
		bind = closedAddr(t)
	}
	env := &cliTestEnv{
		dataDir:    filepath.Join(base, "data"),
		logDir:     filepath.Join(base, "logs"),
		bind:       bind,
		configPath: filepath.Join(base, "config.toml"),
	}
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n\n[api]\nbind = %q\n", env.dataDir, env.logDir, env.bind)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) seed(t *testing.T, collection records.Collection) {
	t.Helper()
	st, err := store.OpenJSON(e.dataDir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	defer st.Close()
	if err := st.Save(context.Background(), collection); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

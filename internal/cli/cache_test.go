package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Adirelle/docker-graph/pkg/cache"
	"github.com/Adirelle/docker-graph/pkg/errors"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return New(io.Discard, log.InfoLevel)
}

func TestCacheDirDefault(t *testing.T) {
	c := testCLI(t)
	dir, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if !strings.HasSuffix(dir, "docker-graph") {
		t.Errorf("cacheDir() = %q, should end with 'docker-graph'", dir)
	}
}

func TestCacheDirConfigured(t *testing.T) {
	c := testCLI(t)
	c.Config.Cache.Dir = "/var/cache/graphs"
	dir, err := c.cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/var/cache/graphs" {
		t.Errorf("cacheDir() = %q", dir)
	}
}

func TestCachePathCommand(t *testing.T) {
	c := testCLI(t)
	dir := t.TempDir()
	writeTestConfig(t, "[cache]\ndir = \""+dir+"\"\n")

	var out bytes.Buffer
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "path"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
}

func TestCacheClear(t *testing.T) {
	c := testCLI(t)
	dir := t.TempDir()
	c.Config.Cache.Dir = dir

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = fc.Set(ctx, "a", []byte("1"), time.Hour)
	_ = fc.Set(ctx, "b", []byte("2"), time.Hour)

	root := c.RootCommand()
	root.SetArgs([]string{"cache", "clear", "--config", writeTestConfig(t, "[cache]\ndir = \""+dir+"\"\n")})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, hit, _ := fc.Get(ctx, "a"); hit {
		t.Error("entries should be removed")
	}
}

func TestFileCacheRejectsOtherBackends(t *testing.T) {
	c := testCLI(t)
	c.Config.Cache.Backend = cache.BackendRedis
	if _, err := c.fileCache(); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("fileCache() error = %v, want UNSUPPORTED", err)
	}
}

// writeTestConfig writes the default config file under XDG_CONFIG_HOME and
// returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "docker-graph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/umlstream/pkg/config"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// echoBackend answers every invocation with its argv and the input it read.
type echoBackend struct {
	mu    sync.Mutex
	calls int
}

func (b *echoBackend) Exec(ctx context.Context, argv []string) (*plantuml.Process, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		src, _ := io.ReadAll(inR)
		io.WriteString(outW, strings.Join(argv, " ")+"|"+string(src))
		outW.Close()
	}()
	wait := func() error {
		<-done
		return nil
	}
	return plantuml.NewProcess(inW, outR, wait, nil), nil
}

func (b *echoBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// newTestCLI returns a CLI whose config keeps all state under a temp dir.
func newTestCLI(t *testing.T, backend plantuml.Launcher) (*CLI, string) {
	t.Helper()
	t.Setenv(config.EnvCache, "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf("[cache]\ndir = %q\n", filepath.Join(dir, "cache"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	prev := uiOut
	uiOut = io.Discard
	t.Cleanup(func() { uiOut = prev })

	c := New(io.Discard, LogInfo)
	c.ConfigPath = cfgPath
	c.launcher = backend
	return c, dir
}

// execute runs the root command with args and stdin, returning stdout.
func execute(t *testing.T, c *CLI, stdin string, args ...string) (string, error) {
	t.Helper()
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	want := []string{"generate", "encode", "encode-file", "decode", "serve", "preview", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	cmd, _, err := root.Find([]string{"render"})
	if err != nil || cmd.Name() != "generate" {
		t.Error("render should alias generate")
	}
}

func TestRootCommandKeepsConfigPath(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.ConfigPath = "/etc/umlstream.toml"
	c.RootCommand()
	if c.ConfigPath != "/etc/umlstream.toml" {
		t.Errorf("ConfigPath = %q after building commands", c.ConfigPath)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug output at info level")
	}
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug output missing after SetLogLevel")
	}
}

func TestCacheDir(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = "/var/cache/uml"
	dir, err := cacheDir(cfg)
	if err != nil || dir != "/var/cache/uml" {
		t.Errorf("cacheDir() = %q, %v", dir, err)
	}

	dir, err = cacheDir(config.Default())
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Errorf("cacheDir() = %q, should end with %q", dir, appName)
	}
}

func TestNewClientInstallsTemplates(t *testing.T) {
	c, dir := newTestCLI(t, &echoBackend{})
	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatal(err)
	}

	client, err := c.newClient(cfg)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	path := client.Templates().Resolve(plantuml.TemplateClassic)
	if !strings.HasPrefix(path, filepath.Join(dir, "cache", "templates")) {
		t.Errorf("classic template at %q, want under the cache dir", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("template not written: %v", err)
	}
}

func TestCachePathCommand(t *testing.T) {
	c, dir := newTestCLI(t, &echoBackend{})
	out, err := execute(t, c, "", "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != filepath.Join(dir, "cache") {
		t.Errorf("cache path = %q", out)
	}
}

func TestCacheClearCommand(t *testing.T) {
	backend := &echoBackend{}
	c, _ := newTestCLI(t, backend)

	if _, err := execute(t, c, "A -> B", "generate", "-f", "svg"); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, c, "", "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, err := execute(t, c, "A -> B", "generate", "-f", "svg"); err != nil {
		t.Fatal(err)
	}
	if backend.count() != 2 {
		t.Errorf("backend calls = %d, want 2 after clearing", backend.count())
	}
}

func TestCacheInfoCommand(t *testing.T) {
	c, dir := newTestCLI(t, &echoBackend{})

	out, err := execute(t, c, "", "cache", "info")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "entries: 0") || !strings.Contains(out, filepath.Join(dir, "cache")) {
		t.Errorf("empty cache info = %q", out)
	}

	if _, err := execute(t, c, "A -> B", "generate", "-f", "svg"); err != nil {
		t.Fatal(err)
	}
	out, _ = execute(t, c, "", "cache", "info")
	if !strings.Contains(out, "entries: 1") {
		t.Errorf("cache info after a render = %q", out)
	}

	// Nothing has expired yet.
	if _, err := execute(t, c, "", "cache", "clear", "--expired"); err != nil {
		t.Fatal(err)
	}
	out, _ = execute(t, c, "", "cache", "info")
	if !strings.Contains(out, "entries: 1") {
		t.Errorf("clear --expired removed a live entry: %q", out)
	}
}

func TestDisplayURL(t *testing.T) {
	tests := []struct {
		addr, want string
	}{
		{":8080", "http://localhost:8080"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000"},
	}
	for _, tt := range tests {
		if got := displayURL(tt.addr); got != tt.want {
			t.Errorf("displayURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestCompletionScripts(t *testing.T) {
	c, _ := newTestCLI(t, &echoBackend{})
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := execute(t, c, "", "completion", shell)
		if err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out, appName) {
			t.Errorf("completion %s script does not mention %s", shell, appName)
		}
	}
	if _, err := execute(t, c, "", "completion", "tcsh"); err == nil {
		t.Error("completion tcsh should fail")
	}
}

func TestFlagCompletion(t *testing.T) {
	tests := []struct {
		args []string
		want []string
		not  []string
	}{
		{[]string{"generate", "--format", "s"}, []string{"svg"}, []string{"png"}},
		{[]string{"generate", "--config", ""}, []string{"classic", "monochrome"}, nil},
		{[]string{"preview", "x.puml", "--format", ""}, []string{"ascii", "unicode"}, []string{"svg"}},
	}
	c, _ := newTestCLI(t, &echoBackend{})
	for _, tt := range tests {
		out, err := execute(t, c, "", append([]string{cobra.ShellCompRequestCmd}, tt.args...)...)
		if err != nil {
			t.Fatalf("complete %v: %v", tt.args, err)
		}
		lines := strings.Split(out, "\n")
		for _, w := range tt.want {
			if !slices.Contains(lines, w) {
				t.Errorf("complete %v = %q, missing %s", tt.args, out, w)
			}
		}
		for _, n := range tt.not {
			if slices.Contains(lines, n) {
				t.Errorf("complete %v = %q, should not offer %s", tt.args, out, n)
			}
		}
	}
}

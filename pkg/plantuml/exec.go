package plantuml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
)

// Defaults for ExecLauncher.
const (
	DefaultJava      = "java"
	DefaultBinary    = "plantuml"
	DefaultWaitDelay = 5 * time.Second

	// stderrTail bounds the backend diagnostics kept for error messages.
	stderrTail = 4096
)

// ExecLauncher starts a fresh backend process for every call.
//
// With Jar set, the command is `Java -Djava.awt.headless=true JVMArgs...
// -jar Jar argv...`; otherwise Binary (a plantuml wrapper script) is run
// with argv.
type ExecLauncher struct {
	Java    string   // java executable, default "java"
	Jar     string   // path to plantuml.jar
	Binary  string   // wrapper executable used when Jar is empty, default "plantuml"
	JVMArgs []string // extra JVM arguments, e.g. -Xmx512m
	Env     []string // extra environment, appended to the parent's
	Dir     string   // working directory; relative !include paths resolve here

	// WaitDelay bounds how long Wait lingers on stderr after the process
	// exits or is killed.
	WaitDelay time.Duration

	Logger *log.Logger
}

// command returns the executable and arguments for argv.
func (l *ExecLauncher) command(argv []string) (string, []string) {
	if l.Jar == "" {
		bin := l.Binary
		if bin == "" {
			bin = DefaultBinary
		}
		return bin, append([]string(nil), argv...)
	}

	java := l.Java
	if java == "" {
		java = DefaultJava
	}
	args := make([]string, 0, len(l.JVMArgs)+3+len(argv))
	args = append(args, "-Djava.awt.headless=true")
	args = append(args, l.JVMArgs...)
	args = append(args, "-jar", l.Jar)
	args = append(args, argv...)
	return java, args
}

// Validate checks that the backend executable and jar are available.
func (l *ExecLauncher) Validate() error {
	name, _ := l.command(nil)
	if _, err := exec.LookPath(name); err != nil {
		return umlerrors.Wrap(umlerrors.ErrCodeBackendUnavailable, err, "%s not found", name)
	}
	if l.Jar != "" {
		if _, err := os.Stat(l.Jar); err != nil {
			return umlerrors.Wrap(umlerrors.ErrCodeBackendUnavailable, err, "plantuml jar")
		}
	}
	return nil
}

// Exec starts the backend with argv.
func (l *ExecLauncher) Exec(ctx context.Context, argv []string) (*Process, error) {
	name, args := l.command(argv)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = l.Dir
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	// stdout goes through an os.Pipe rather than StdoutPipe: cmd.Wait must
	// not close the read side before the caller has drained it.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, err
	}
	stdoutW.Close()

	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Debug("started backend", "cmd", name, "argv", argv, "pid", cmd.Process.Pid)

	wait := func() error {
		err := cmd.Wait()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return umlerrors.Wrap(umlerrors.ErrCodeTimeout, ctxErr, "backend interrupted")
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return &umlerrors.ExitError{Code: ee.ExitCode(), Stderr: stderr.String(), Err: err}
		}
		return err
	}
	kill := func() error {
		return cmd.Process.Kill()
	}

	return NewProcess(stdin, &eofCloser{ReadCloser: stdoutR}, wait, kill), nil
}

// eofCloser closes the underlying reader when it reports EOF so an
// output stream read to the end does not hold a descriptor.
type eofCloser struct {
	io.ReadCloser
	once sync.Once
}

func (r *eofCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err == io.EOF {
		r.Close()
	}
	return n, err
}

func (r *eofCloser) Close() error {
	var err error
	r.once.Do(func() { err = r.ReadCloser.Close() })
	return err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

var _ Launcher = (*ExecLauncher)(nil)

package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/BjornMelin/codex-sdk-agents/internal/cli"
	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
	"github.com/BjornMelin/codex-sdk-agents/internal/procattr"
)

const (
	// maxScanTokenSize bounds a single stdout line; longer lines are dropped.
	// Aggregated command output and file diffs can be large, so this is well
	// above bufio's default.
	maxScanTokenSize = 32 * 1024 * 1024
	// initialScanBufferSize is the stdout reader's buffer.
	initialScanBufferSize = 64 * 1024
	// maxStderrTailSize caps the stderr kept for error reports. Older lines
	// are dropped first.
	maxStderrTailSize = 64 * 1024

	gracefulExitTimeout = 500 * time.Millisecond
	interruptTimeout    = 500 * time.Millisecond
	killTimeout         = 2 * time.Second
	// waitDelay bounds how long Wait blocks on pipes after the process is gone.
	waitDelay = 2 * time.Second
)

// AppServerTransport implements config.Transport over a `codex app-server`
// child process.
type AppServerTransport struct {
	log      *slog.Logger
	settings config.TransportSettings
	discover func(ctx context.Context) (string, error)

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	// writeMu serializes stdin writes; mu guards the state below and is
	// never held across a blocking write.
	writeMu     sync.Mutex
	mu          sync.Mutex
	started     bool
	reading     bool
	closing     bool
	stdinClosed bool

	stderrWg   sync.WaitGroup
	stderrTail stderrTail

	waitOnce sync.Once
	exited   chan struct{}
	waitErr  error
}

// Compile-time verification that AppServerTransport implements config.Transport.
var _ config.Transport = (*AppServerTransport)(nil)

// NewAppServerTransport creates a transport for settings. The codex binary
// is discovered in Start, using settings.CodexPath when set.
func NewAppServerTransport(settings config.TransportSettings) *AppServerTransport {
	log := settings.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "appserver_transport")

	return &AppServerTransport{
		log:      log,
		settings: settings,
		discover: func(ctx context.Context) (string, error) {
			return cli.NewDiscoverer(&cli.Config{
				CliPath: settings.CodexPath,
				Logger:  log,
			}).Discover(ctx)
		},
		exited: make(chan struct{}),
	}
}

// NewTransport is the default config.TransportFactory.
func NewTransport(settings config.TransportSettings) (config.Transport, error) {
	return NewAppServerTransport(settings), nil
}

// Start discovers codex and spawns `codex app-server`.
//
// ctx bounds the lifetime of the process: when it is cancelled the whole
// process group is killed.
//
// Returns CLINotFoundError if the binary cannot be located, or
// CLIConnectionError if the process fails to start.
func (t *AppServerTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	if t.closing {
		return errors.ErrTransportNotConnected
	}

	t.log.Info("Starting codex app-server")

	codexPath, err := t.discover(ctx)
	if err != nil {
		return fmt.Errorf("discover codex: %w", err)
	}

	cwd := t.settings.Cwd
	if cwd == "" {
		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	spec := cli.BuildCommand(codexPath, cwd, t.settings.Env, nil)
	t.log.Debug("Built app-server command", "path", spec.Path, "args", spec.Args, "cwd", spec.Dir)

	//nolint:gosec // G204: the binary path is discovered or set by the caller
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.WaitDelay = waitDelay
	procattr.Set(cmd)
	cmd.Cancel = func() error {
		return procattr.KillGroup(cmd.Process)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.CLIConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.CLIConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.CLIConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start codex app-server", "error", err)

		return &errors.CLIConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr
	t.started = true

	// Drain stderr from the start so a chatty server never blocks on it.
	t.stderrWg.Go(t.readStderr)

	t.log.Info("codex app-server started", "pid", cmd.Process.Pid)

	return nil
}

func (t *AppServerTransport) readStderr() {
	scanner := bufio.NewScanner(t.stderr)
	scanner.Buffer(make([]byte, 4096), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()

		t.log.Debug("codex stderr", "line", line)
		t.stderrTail.add(line)

		if t.settings.Stderr != nil {
			t.settings.Stderr(line)
		}
	}

	if err := scanner.Err(); err != nil {
		t.log.Debug("Stderr scanner error", "error", err)

		// Keep the pipe drained so the child never blocks on stderr.
		_, _ = io.Copy(io.Discard, t.stderr)
	}
}

// ReadMessages streams stdout lines until the process exits.
//
// Blank lines are skipped. Lines are copied, so receivers may keep them.
// When the process exits with a non-zero status outside Close, a
// ProcessError carrying the stderr tail is sent on the error channel.
// Both channels are closed when reading completes.
func (t *AppServerTransport) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errs := make(chan error, 2)

	t.mu.Lock()
	if !t.started || t.reading || t.closing {
		t.mu.Unlock()

		close(lines)
		errs <- errors.ErrTransportNotConnected
		close(errs)

		return lines, errs
	}

	t.reading = true
	t.mu.Unlock()

	go func() {
		defer close(errs)
		defer close(lines)
		defer t.log.Debug("ReadMessages goroutine stopped")

		err := scanLines(ctx, t.stdout, lines, maxScanTokenSize, t.log)
		if err != nil && !stderrors.Is(err, context.Canceled) {
			t.log.Error("Error reading app-server output", "error", err)
		}

		if err != nil {
			errs <- err
		}

		t.waitOnce.Do(t.waitProcess)

		if procErr := t.exitError(); procErr != nil {
			errs <- procErr
		}
	}()

	return lines, errs
}

// scanLines copies non-blank lines from r to out until EOF, a read error or
// ctx is done. A line longer than limit is dropped and reading resumes after
// its newline, so one oversized message never ends the stream.
func scanLines(ctx context.Context, r io.Reader, out chan<- []byte, limit int, log *slog.Logger) error {
	reader := bufio.NewReaderSize(r, min(initialScanBufferSize, limit))

	var (
		line    []byte
		dropped int // bytes discarded from the current line
	)

	for {
		chunk, err := reader.ReadSlice('\n')

		if dropped > 0 {
			dropped += len(chunk)
		} else {
			line = append(line, chunk...)

			if len(bytes.TrimSuffix(line, []byte{'\n'})) > limit {
				dropped = len(line)
				line = line[:0]
			}
		}

		switch {
		case err == nil, stderrors.Is(err, io.EOF):
			if dropped > 0 {
				log.Warn("Dropping oversized line from codex app-server", "bytes", dropped, "limit", limit)
			} else if sendErr := sendLine(ctx, line, out); sendErr != nil {
				return sendErr
			}

			if err != nil {
				return nil
			}

			dropped = 0

			if cap(line) > initialScanBufferSize {
				line = nil
			} else {
				line = line[:0]
			}

		case stderrors.Is(err, bufio.ErrBufferFull):
			continue

		default:
			return fmt.Errorf("read stdout: %w", err)
		}
	}
}

// sendLine forwards a copy of raw without its line terminator. Blank lines
// are skipped.
func sendLine(ctx context.Context, raw []byte, out chan<- []byte) error {
	raw = bytes.TrimSuffix(raw, []byte{'\n'})
	raw = bytes.TrimSuffix(raw, []byte{'\r'})

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	select {
	case out <- bytes.Clone(raw):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *AppServerTransport) waitProcess() {
	t.stderrWg.Wait()

	t.waitErr = t.cmd.Wait()
	close(t.exited)

	t.log.Debug("codex app-server exited", "error", t.waitErr)
}

// exitError reports an unexpected non-zero exit. It must be called after
// waitProcess.
func (t *AppServerTransport) exitError() error {
	t.mu.Lock()
	closing := t.closing
	t.mu.Unlock()

	if t.waitErr == nil || closing {
		return nil
	}

	exitCode := -1
	if exitErr, ok := stderrors.AsType[*exec.ExitError](t.waitErr); ok {
		exitCode = exitErr.ExitCode()
	}

	stderr := cleanStderr(t.stderrTail.String())
	t.log.Error("codex app-server exited with error", "exit_code", exitCode, "stderr", stderr)

	return &errors.ProcessError{
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      t.waitErr,
	}
}

// SendMessage writes one envelope to stdin, appending a newline if missing.
//
// Safe for concurrent use. If ctx is cancelled while the write is blocked,
// stdin is closed to unblock it and later calls return ErrStdinClosed.
func (t *AppServerTransport) SendMessage(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	stdin, closed := t.stdin, t.stdinClosed
	t.mu.Unlock()

	if stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if closed {
		return errors.ErrStdinClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if len(data) == 0 || data[len(data)-1] != '\n' {
		framed := make([]byte, len(data)+1)
		copy(framed, data)
		framed[len(data)] = '\n'
		data = framed
	}

	done := make(chan error, 1)

	go func() {
		_, err := stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write to app-server stdin", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")
		t.closeStdin()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

func (t *AppServerTransport) closeStdin() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin != nil && !t.stdinClosed {
		_ = t.stdin.Close()
		t.stdinClosed = true
	}
}

// IsReady reports whether the process is running with stdin open.
func (t *AppServerTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started && !t.closing && !t.stdinClosed
}

// Close stops the app-server. Closing stdin asks it to exit; if it is still
// running after a grace period its process group gets SIGINT and then
// SIGKILL. Safe to call multiple times.
func (t *AppServerTransport) Close() error {
	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()

		return nil
	}

	t.closing = true
	cmd, reading := t.cmd, t.reading

	if t.stdin != nil && !t.stdinClosed {
		_ = t.stdin.Close()
		t.stdinClosed = true
	}
	t.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if !reading {
		go t.waitOnce.Do(t.waitProcess)
	}

	pid := cmd.Process.Pid

	if t.awaitExit(gracefulExitTimeout) {
		t.log.Debug("codex app-server exited after stdin close", "pid", pid)

		return nil
	}

	t.log.Debug("Interrupting codex app-server", "pid", pid)
	_ = procattr.Interrupt(cmd.Process)

	if t.awaitExit(interruptTimeout) {
		return nil
	}

	t.log.Warn("Killing codex app-server", "pid", pid)
	_ = procattr.KillGroup(cmd.Process)

	if !t.awaitExit(killTimeout) {
		return fmt.Errorf("codex app-server (pid %d) did not exit after SIGKILL", pid)
	}

	return nil
}

func (t *AppServerTransport) awaitExit(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.exited:
		return true
	case <-timer.C:
		return false
	}
}

// stderrTail keeps the most recent stderr lines up to maxStderrTailSize bytes.
type stderrTail struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func (s *stderrTail) add(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = append(s.lines, line)
	s.size += len(line) + 1

	for s.size > maxStderrTailSize && len(s.lines) > 1 {
		s.size -= len(s.lines[0]) + 1
		s.lines = s.lines[1:]
	}
}

func (s *stderrTail) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return strings.Join(s.lines, "\n")
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// cleanStderr strips terminal color codes that codex's tracing output
// carries and trims surrounding whitespace.
func cleanStderr(stderr string) string {
	return strings.TrimSpace(ansiEscape.ReplaceAllString(stderr, ""))
}

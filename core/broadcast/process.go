package broadcast

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"LiveFM/logger"
)

// Process is a running encoder.
type Process interface {
	Pid() int
	// Wait blocks until the process exits. It may be called once.
	Wait() error
	Terminate() error
	Kill() error
}

// Launcher starts encoder processes.
type Launcher interface {
	Launch(path string, args []string) (Process, error)
}

// ExecLauncher runs real processes via os/exec.
type ExecLauncher struct {
	// StderrLines bounds the diagnostic tail kept per process.
	StderrLines int
}

// Launch starts path with args. The process is not tied to any context; it
// lives until it exits or is stopped.
func (l ExecLauncher) Launch(path string, args []string) (Process, error) {
	lines := l.StderrLines
	if lines <= 0 {
		lines = 50
	}
	cmd := exec.Command(path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd, tail: newRingBuffer(lines), drained: make(chan struct{})}
	go p.drain(stderr)
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	tail    *ringBuffer
	drained chan struct{}
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) drain(r io.Reader) {
	defer close(p.drained)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		p.tail.Add(line)
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
			logger.Warn("ffmpeg stderr", logger.Int("pid", p.Pid()), logger.String("line", line))
		} else {
			logger.Debug("ffmpeg stderr", logger.Int("pid", p.Pid()), logger.String("line", line))
		}
	}
}

func (p *execProcess) Wait() error {
	// Wait closes the pipe, so drain must finish first.
	<-p.drained
	err := p.cmd.Wait()
	code := 0
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	if err == nil {
		err = errors.New("exited normally")
	}
	return &ExitError{Code: code, Stderr: p.tail.String(), Err: err}
}

func (p *execProcess) Terminate() error {
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// ringBuffer keeps the last n lines.
type ringBuffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newRingBuffer(n int) *ringBuffer {
	return &ringBuffer{lines: make([]string, n)}
}

func (r *ringBuffer) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

// Lines returns the buffered lines oldest first.
func (r *ringBuffer) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]string(nil), r.lines[:r.next]...)
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	return append(out, r.lines[:r.next]...)
}

func (r *ringBuffer) String() string {
	return strings.Join(r.Lines(), "\n")
}

// Package broadcast supervises the ffmpeg process that streams the concat
// playlist to the Icecast ingest mount.
package broadcast

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"LiveFM/core/clock"
	"LiveFM/core/events"
	"LiveFM/logger"
)

// Backend is an encoder strategy. *Supervisor is the continuous
// playlist-concat variant.
type Backend interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Active() bool
}

// Options configures a Supervisor.
type Options struct {
	FFmpegPath   string
	SearchDirs   []string
	PlaylistPath string
	Ingest       Ingest
	Bitrate      string
	SampleRate   int

	RestartBackoff     time.Duration
	RestartMinInterval time.Duration
	StopGrace          time.Duration
	DialTimeout        time.Duration

	Clock     clock.Clock
	Launcher  Launcher
	Dial      DialFunc
	Publisher events.Publisher
}

func (o *Options) setDefaults() {
	if o.Bitrate == "" {
		o.Bitrate = "128k"
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.RestartBackoff <= 0 {
		o.RestartBackoff = 3 * time.Second
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 5 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 3 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Launcher == nil {
		o.Launcher = ExecLauncher{}
	}
}

var errHalted = errors.New("supervisor halted")

// Supervisor owns at most one live encoder process and restarts it when it
// exits unexpectedly.
type Supervisor struct {
	opts Options

	startMu sync.Mutex // serializes start attempts

	mu          sync.Mutex
	proc        Process
	done        chan struct{} // closed when proc has exited
	streaming   bool
	restarting  bool
	lastAttempt time.Time
	halt        chan struct{} // closed by Stop to cancel pending restarts
}

var _ Backend = (*Supervisor)(nil)

// NewSupervisor creates an idle supervisor.
func NewSupervisor(opts Options) *Supervisor {
	opts.setDefaults()
	return &Supervisor{opts: opts, halt: make(chan struct{})}
}

// Args builds the ffmpeg command line for the concat playlist.
func (s *Supervisor) Args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-re",
		"-f", "concat",
		"-safe", "0",
		"-i", s.opts.PlaylistPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", s.opts.Bitrate,
		"-ar", strconv.Itoa(s.opts.SampleRate),
		"-ac", "2",
		"-content_type", "audio/mpeg",
		"-f", "mp3",
		s.opts.Ingest.URL(),
	}
}

// Active reports whether an encoder is currently streaming.
func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Start launches the encoder unless one is already streaming or a restart is
// already scheduled. A missing binary or unreachable ingest fails only this
// attempt.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	pending := s.restarting
	s.mu.Unlock()
	if pending {
		return nil
	}
	return s.start(ctx, nil)
}

// start launches the encoder. halt is non-nil for restarts scheduled by the
// monitor; those skip the throttle and abort once Stop has closed halt.
func (s *Supervisor) start(ctx context.Context, halt chan struct{}) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	fromMonitor := halt != nil
	if fromMonitor {
		select {
		case <-halt:
			return errHalted
		default:
		}
	}

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return nil
	}
	now := s.opts.Clock.Now()
	if !fromMonitor && !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.opts.RestartMinInterval {
		s.mu.Unlock()
		return ErrStartThrottled
	}
	s.lastAttempt = now
	s.mu.Unlock()

	path, err := LocateEncoder(s.opts.FFmpegPath, s.opts.SearchDirs)
	if err != nil {
		return err
	}
	if err := Preflight(ctx, s.opts.Dial, s.opts.Ingest, s.opts.DialTimeout); err != nil {
		return err
	}

	proc, err := s.opts.Launcher.Launch(path, s.Args())
	if err != nil {
		return err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.proc = proc
	s.done = done
	s.streaming = true
	s.restarting = false
	s.mu.Unlock()

	logger.Info("encoder started",
		logger.Int("pid", proc.Pid()),
		logger.String("playlist", s.opts.PlaylistPath),
		logger.String("ingest", s.opts.Ingest.Redacted()))
	s.publish(events.TypeStreamStarted)

	go s.monitor(proc, done)
	return nil
}

// monitor waits for proc to exit and restarts the encoder unless Stop
// claimed the process first.
func (s *Supervisor) monitor(proc Process, done chan struct{}) {
	err := proc.Wait()
	close(done)

	s.mu.Lock()
	if s.proc != proc {
		s.mu.Unlock()
		return
	}
	s.proc = nil
	s.done = nil
	s.streaming = false
	s.restarting = true
	halt := s.halt
	s.mu.Unlock()

	var exitErr *ExitError
	clean := err == nil || (errors.As(err, &exitErr) && exitErr.Code == 0)
	switch {
	case clean:
		// ffmpeg reached the end of the concat playlist.
		logger.Info("playlist finished, restarting encoder", logger.Int("pid", proc.Pid()))
	case exitErr != nil:
		logger.Warn("encoder exited, scheduling restart",
			logger.Int("pid", proc.Pid()),
			logger.Int("code", exitErr.Code),
			logger.String("stderr", exitErr.Stderr))
	default:
		logger.Warn("encoder exited, scheduling restart",
			logger.Int("pid", proc.Pid()),
			logger.ErrorField(err))
	}
	s.publish(events.TypeStreamStopped)

	s.restartLoop(halt, clean)
}

// restartLoop relaunches until a start succeeds or Stop closes halt. After a
// clean exit the first attempt skips the backoff.
func (s *Supervisor) restartLoop(halt chan struct{}, clean bool) {
	backoff := s.opts.RestartBackoff
	if clean {
		backoff = 0
	}
	for {
		select {
		case <-s.opts.Clock.After(s.restartDelay(backoff)):
		case <-halt:
			s.clearRestarting()
			return
		}

		err := s.start(context.Background(), halt)
		if err == nil {
			return
		}
		if errors.Is(err, errHalted) {
			s.clearRestarting()
			return
		}
		logger.Error("encoder restart failed", logger.ErrorField(err))
		backoff = s.opts.RestartBackoff
	}
}

func (s *Supervisor) clearRestarting() {
	s.mu.Lock()
	s.restarting = false
	s.mu.Unlock()
}

// restartDelay is backoff, stretched so consecutive attempts are at least
// RestartMinInterval apart.
func (s *Supervisor) restartDelay(backoff time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	wait := backoff
	if !s.lastAttempt.IsZero() {
		if remaining := s.opts.RestartMinInterval - s.opts.Clock.Now().Sub(s.lastAttempt); remaining > wait {
			wait = remaining
		}
	}
	return wait
}

// Stop terminates the encoder: SIGTERM, then a kill after the grace period.
// Pending restarts are cancelled.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	close(s.halt)
	s.halt = make(chan struct{})
	proc, done := s.proc, s.done
	s.proc, s.done = nil, nil
	wasStreaming := s.streaming
	s.streaming = false
	s.mu.Unlock()

	if proc == nil {
		return nil
	}

	logger.Info("stopping encoder", logger.Int("pid", proc.Pid()))
	if err := proc.Terminate(); err != nil {
		logger.Warn("failed to signal encoder", logger.Int("pid", proc.Pid()), logger.ErrorField(err))
	}

	var err error
	select {
	case <-done:
	case <-s.opts.Clock.After(s.opts.StopGrace):
		logger.Warn("encoder ignored SIGTERM, killing", logger.Int("pid", proc.Pid()))
		if kerr := proc.Kill(); kerr != nil {
			err = kerr
		}
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	case <-ctx.Done():
		proc.Kill()
		err = ctx.Err()
	}

	if wasStreaming {
		s.publish(events.TypeStreamStopped)
	}
	return err
}

func (s *Supervisor) publish(t events.Type) {
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(events.Event{Type: t})
	}
}

// Package radio ties the request queue, acquisition, playlist and encoder
// supervision together into one continuously running station.
package radio

import (
	"context"
	"errors"
	"sync"
	"time"

	"LiveFM/core/audio"
	"LiveFM/core/broadcast"
	"LiveFM/core/clock"
	"LiveFM/core/events"
	"LiveFM/core/playlist"
	"LiveFM/core/queue"
	"LiveFM/core/status"
	"LiveFM/core/utils"
	"LiveFM/logger"
	"LiveFM/model"

	"github.com/google/uuid"
)

// Acquirer resolves a content id into a local artifact.
type Acquirer interface {
	Acquire(ctx context.Context, contentID, title string) (string, error)
}

// ArtifactWriter renders the prepared songs for the encoder.
type ArtifactWriter interface {
	Regenerate(songs []model.PreparedSong) error
	Pending() bool
}

// Options wires an Orchestrator. Acquirer, Writer and Backend are required.
type Options struct {
	Acquirer Acquirer
	Writer   ArtifactWriter
	Backend  broadcast.Backend
	Bus      *events.Bus
	Clock    clock.Clock
	Prober   audio.Prober // optional; fills in unknown durations

	// Changes signals that files disappeared from the media directory.
	Changes <-chan struct{}

	PrefetchDepth int
	PrefetchDelay time.Duration
	RegenInterval time.Duration
	StopTimeout   time.Duration
}

// Orchestrator owns every piece of mutable broadcast state.
type Orchestrator struct {
	opts     Options
	queue    *queue.RequestQueue
	prepared *playlist.Prepared
	tracker  *status.Tracker
	bus      *events.Bus
	clock    clock.Clock
	exists   func(path string) bool

	regenMu     sync.Mutex
	lastVersion uint64
	regenerated bool
	written     []model.PreparedSong // snapshot in the current artifact

	queueMu      sync.Mutex // orders queue changes with their QueueUpdated events
	prefetchWake chan struct{}
}

// New creates an Orchestrator. Nothing runs until Run is called.
func New(opts Options) (*Orchestrator, error) {
	if opts.Acquirer == nil || opts.Writer == nil || opts.Backend == nil {
		return nil, errors.New("radio: acquirer, writer and backend are required")
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus(0)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.PrefetchDepth < 0 {
		opts.PrefetchDepth = 0
	}
	if opts.RegenInterval <= 0 {
		opts.RegenInterval = 5 * time.Second
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 10 * time.Second
	}

	return &Orchestrator{
		opts:         opts,
		queue:        queue.New(),
		prepared:     playlist.NewPrepared(),
		tracker:      status.NewTracker(opts.Bus),
		bus:          opts.Bus,
		clock:        opts.Clock,
		exists:       utils.FileExists,
		prefetchWake: make(chan struct{}, 1),
	}, nil
}

// EnqueueSong queues a request and returns it with its id and timestamp
// filled in. It never blocks on acquisition and performs no validation.
func (o *Orchestrator) EnqueueSong(req model.SongRequest) model.SongRequest {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.EnqueuedAt.IsZero() {
		req.EnqueuedAt = o.clock.Now()
	}

	o.tracker.Begin(req.ContentID, req.Title)
	n := o.enqueue(req)
	logger.Info("song request enqueued",
		logger.String("requestId", req.RequestID),
		logger.String("contentId", req.ContentID),
		logger.String("title", req.Title),
		logger.Int("queueLength", n))

	o.wakePrefetch()
	return req
}

// enqueue and dequeue announce the new queue length on every change,
// including repeats of an id that is already in flight.
func (o *Orchestrator) enqueue(req model.SongRequest) int {
	o.queueMu.Lock()
	defer o.queueMu.Unlock()
	n := o.queue.Enqueue(req)
	o.bus.Publish(events.Event{Type: events.TypeQueueUpdated, Count: n})
	return n
}

func (o *Orchestrator) dequeue() (model.SongRequest, bool) {
	o.queueMu.Lock()
	defer o.queueMu.Unlock()
	req, ok := o.queue.Dequeue()
	if ok {
		o.bus.Publish(events.Event{Type: events.TypeQueueUpdated, Count: o.queue.Len()})
	}
	return req, ok
}

// Run drives the station until ctx is cancelled, then stops the encoder.
func (o *Orchestrator) Run(ctx context.Context) error {
	// An empty station still gets a playable artifact.
	o.regenerate("startup")

	var wg sync.WaitGroup
	playback := o.bus.Subscribe()
	wg.Add(3)
	go func() { defer wg.Done(); o.maintain(ctx) }()
	go func() { defer wg.Done(); o.prefetch(ctx) }()
	go func() { defer wg.Done(); o.playbackClock(ctx, playback) }()

	logger.Info("orchestrator started")

	for {
		select {
		case <-ctx.Done():
			o.shutdown(&wg, playback)
			return nil
		case <-o.queue.Wait():
		}

		for ctx.Err() == nil {
			req, ok := o.dequeue()
			if !ok {
				break
			}
			o.process(ctx, req)
			o.ensureStreaming(ctx)
			o.wakePrefetch()
		}
	}
}

func (o *Orchestrator) shutdown(wg *sync.WaitGroup, playback *events.Subscription) {
	logger.Info("orchestrator shutting down")
	playback.Close()
	wg.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), o.opts.StopTimeout)
	defer cancel()
	if err := o.opts.Backend.Stop(stopCtx); err != nil {
		logger.Error("failed to stop encoder", logger.ErrorField(err))
	}
}

// process prepares one request: Preparing, acquire, then Ready or Failed.
func (o *Orchestrator) process(ctx context.Context, req model.SongRequest) {
	id := req.ContentID
	// A repeat request for a finished id still acquires (that is how a failed
	// song is retried) but its terminal record is left as it is.
	o.transition(id, model.StatePreparing)

	path, err := o.opts.Acquirer.Acquire(ctx, id, req.Title)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("acquisition interrupted by shutdown", logger.String("contentId", id))
			return
		}
		logger.Error("acquisition failed",
			logger.String("contentId", id),
			logger.String("requestId", req.RequestID),
			logger.ErrorField(err))
		o.transition(id, model.StateFailed)
		return
	}

	song := model.PreparedSong{SongRequest: req, Path: path, Duration: req.Duration}
	if song.Duration <= 0 {
		song.Duration = o.probe(ctx, path)
	}

	inserted := o.prepared.Insert(song)
	o.transition(id, model.StateReady)
	if !inserted {
		logger.Debug("song already in playlist", logger.String("contentId", id))
		return
	}
	o.regenerate("song ready")
}

func (o *Orchestrator) probe(ctx context.Context, path string) time.Duration {
	if o.opts.Prober == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	d, err := o.opts.Prober.Duration(ctx, path)
	if err != nil {
		logger.Warn("could not probe duration", logger.String("path", path), logger.ErrorField(err))
		return 0
	}
	return d
}

// transition applies a status change. Repeat requests for a content id find
// the record already ahead of them or terminal, so an invalid move is
// expected and only logged.
func (o *Orchestrator) transition(contentID string, to model.SongState) {
	if err := o.tracker.Transition(contentID, to); err != nil {
		logger.Debug("status transition skipped",
			logger.String("contentId", contentID),
			logger.String("to", string(to)),
			logger.ErrorField(err))
	}
}

// regenerate prunes vanished artifacts and rewrites the playlist.
func (o *Orchestrator) regenerate(reason string) error {
	o.regenMu.Lock()
	defer o.regenMu.Unlock()

	snapshot, removed, version := o.prepared.PruneSnapshot(o.exists)
	for _, s := range removed {
		logger.Warn("artifact vanished, dropping from playlist",
			logger.String("contentId", s.ContentID),
			logger.String("path", s.Path))
	}

	if err := o.opts.Writer.Regenerate(snapshot); err != nil {
		logger.Error("playlist regeneration failed",
			logger.String("reason", reason),
			logger.ErrorField(err))
		return err
	}
	o.lastVersion = version
	o.regenerated = true
	o.written = snapshot

	o.bus.Publish(events.Event{Type: events.TypePlaylistUpdated, Count: len(snapshot)})
	logger.Debug("playlist regenerated",
		logger.String("reason", reason),
		logger.Int("songs", len(snapshot)))
	return nil
}

// needsRegeneration reports whether the artifact is behind Prepared or the
// last swap failed.
func (o *Orchestrator) needsRegeneration() bool {
	o.regenMu.Lock()
	defer o.regenMu.Unlock()
	return !o.regenerated || o.prepared.Version() != o.lastVersion || o.opts.Writer.Pending()
}

func (o *Orchestrator) writtenSnapshot() []model.PreparedSong {
	o.regenMu.Lock()
	defer o.regenMu.Unlock()
	out := make([]model.PreparedSong, len(o.written))
	copy(out, o.written)
	return out
}

// ensureStreaming starts the encoder once there is something to play.
func (o *Orchestrator) ensureStreaming(ctx context.Context) {
	if o.opts.Backend.Active() || o.prepared.Len() == 0 {
		return
	}
	if err := o.opts.Backend.Start(ctx); err != nil {
		if errors.Is(err, broadcast.ErrStartThrottled) {
			logger.Debug("encoder start deferred", logger.ErrorField(err))
			return
		}
		logger.Error("failed to start encoder", logger.ErrorField(err))
	}
}

// maintain regenerates on a fixed interval when something changed, and
// immediately when the media watcher reports a removal.
func (o *Orchestrator) maintain(ctx context.Context) {
	ticker := o.clock.NewTicker(o.opts.RegenInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			o.prepared.Prune(o.exists)
			if o.needsRegeneration() {
				o.regenerate("interval")
			}
			o.ensureStreaming(ctx)
		case <-o.opts.Changes:
			o.regenerate("media removed")
		}
	}
}

func (o *Orchestrator) wakePrefetch() {
	select {
	case o.prefetchWake <- struct{}{}:
	default:
	}
}

// prefetch primes the cache for the next few queued requests. It never
// touches status records.
func (o *Orchestrator) prefetch(ctx context.Context) {
	if o.opts.PrefetchDepth == 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.prefetchWake:
		}

		for i, req := range o.queue.Peek(o.opts.PrefetchDepth) {
			if i > 0 && o.opts.PrefetchDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-o.clock.After(o.opts.PrefetchDelay):
				}
			}
			if _, err := o.opts.Acquirer.Acquire(ctx, req.ContentID, req.Title); err != nil {
				logger.Debug("prefetch failed",
					logger.String("contentId", req.ContentID),
					logger.ErrorField(err))
			}
		}
	}
}

// playbackClock follows encoder launches and walks the launched playlist in
// real time, marking songs Playing and then Completed.
func (o *Orchestrator) playbackClock(ctx context.Context, sub *events.Subscription) {
	var cancel context.CancelFunc = func() {}
	defer func() { cancel() }()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			switch ev.Type {
			case events.TypeStreamStarted:
				cancel()
				var runCtx context.Context
				runCtx, cancel = context.WithCancel(ctx)
				go o.walk(runCtx, o.writtenSnapshot())
			case events.TypeStreamStopped:
				cancel()
			}
		}
	}
}

func (o *Orchestrator) walk(ctx context.Context, songs []model.PreparedSong) {
	for _, s := range songs {
		o.transition(s.ContentID, model.StatePlaying)
		if s.Duration <= 0 {
			logger.Debug("unknown duration, playback clock stops here", logger.String("contentId", s.ContentID))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(s.Duration):
		}
		o.transition(s.ContentID, model.StateCompleted)
	}
}

// Status returns the state of contentID.
func (o *Orchestrator) Status(contentID string) model.SongState {
	return o.tracker.Get(contentID)
}

// Record returns the status record of contentID.
func (o *Orchestrator) Record(contentID string) (model.StatusRecord, bool) {
	return o.tracker.Record(contentID)
}

// Queue returns the pending requests in order.
func (o *Orchestrator) Queue() []model.SongRequest {
	return o.queue.Snapshot()
}

// Playlist returns the prepared songs in order.
func (o *Orchestrator) Playlist() []model.PreparedSong {
	return o.prepared.Snapshot()
}

// Streaming reports whether the encoder is live.
func (o *Orchestrator) Streaming() bool {
	return o.opts.Backend.Active()
}

// Subscribe returns a feed of notifications.
func (o *Orchestrator) Subscribe() *events.Subscription {
	return o.bus.Subscribe()
}

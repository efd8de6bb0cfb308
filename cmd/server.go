package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"LiveFM/cache"
	"LiveFM/core/acquire"
	"LiveFM/core/audio"
	"LiveFM/core/broadcast"
	"LiveFM/core/clock"
	"LiveFM/core/events"
	"LiveFM/core/netease"
	"LiveFM/core/playlist"
	"LiveFM/core/radio"
	"LiveFM/core/ytdlp"
	"LiveFM/db"
	"LiveFM/logger"
	"LiveFM/model"
	"LiveFM/repository"
	"LiveFM/server"
	"LiveFM/storage"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broadcast orchestrator and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	encoder, err := broadcast.LocateEncoder(cfg.FFmpegPath, cfg.FFmpegSearchDirs)
	if err != nil {
		// The supervisor keeps searching on each start attempt.
		logger.Warn("ffmpeg not found yet", logger.ErrorField(err))
		encoder = "ffmpeg"
	}
	processor := audio.NewFFmpegProcessor(encoder, cfg.FFprobePath)

	if err := os.MkdirAll(filepath.Dir(cfg.SilencePath), 0755); err != nil {
		return fmt.Errorf("create silence directory: %w", err)
	}
	err = processor.GenerateSilence(ctx, cfg.SilencePath, audio.SilenceOptions{
		Seconds:    cfg.SilenceSeconds,
		SampleRate: cfg.AudioSampleRate,
		Bitrate:    cfg.AudioBitrate,
	}, false)
	if err != nil {
		return fmt.Errorf("generate silence: %w", err)
	}

	source, err := newSource()
	if err != nil {
		return err
	}

	bus := events.NewBus(128)
	defer bus.Close()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("cleanup failed", logger.ErrorField(err))
			}
		}
	}()

	// Background tasks stop before their connections are closed.
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	var index acquire.Index
	if cfg.RedisHost != "" {
		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		closers = append(closers, cache.CloseRedis)
		index = cache.NewArtifactIndex(cache.RedisClient, cache.DefaultArtifactKey)

		relay := cache.NewEventRelay(cache.RedisClient, cache.DefaultEventChannel)
		sub := bus.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx, sub)
		}()
	}

	contentCache := acquire.NewContentCache(index)
	if n, err := contentCache.Warm(ctx); err != nil {
		logger.Warn("content cache warm-up failed", logger.ErrorField(err))
	} else if n > 0 {
		logger.Info("content cache warmed", logger.Int("entries", n))
	}

	pipelineOpts := []acquire.PipelineOption{acquire.WithMinArtifactBytes(cfg.MinArtifactBytes)}
	if cfg.MinioEndpoint != "" {
		if err := storage.InitMinio(cfg); err != nil {
			return err
		}
		archive := storage.NewArtifactArchive(storage.GetMinioClient(), cfg.MinioBucket, "")
		pipelineOpts = append(pipelineOpts, acquire.WithArchive(archive))
	}

	pipeline, err := acquire.NewPipeline(contentCache, source, cfg.MediaDir, pipelineOpts...)
	if err != nil {
		return err
	}

	writer, err := playlist.NewWriter(cfg.PlaylistPath, cfg.SilencePath)
	if err != nil {
		return err
	}

	watcher, err := playlist.NewWatcher(pipeline.MediaDir())
	if err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()

	ingest := broadcast.Ingest{
		Host:     cfg.IcecastHost,
		Port:     cfg.IcecastPort,
		Mount:    cfg.IcecastMount,
		User:     cfg.IcecastUser,
		Password: cfg.IcecastPassword,
	}
	supervisor := broadcast.NewSupervisor(broadcast.Options{
		FFmpegPath:         cfg.FFmpegPath,
		SearchDirs:         cfg.FFmpegSearchDirs,
		PlaylistPath:       writer.Path(),
		Ingest:             ingest,
		Bitrate:            cfg.AudioBitrate,
		SampleRate:         cfg.AudioSampleRate,
		RestartBackoff:     cfg.RestartBackoff,
		RestartMinInterval: cfg.RestartMinInterval,
		StopGrace:          cfg.StopGrace,
		Clock:              clock.Real(),
		Launcher:           broadcast.ExecLauncher{StderrLines: 50},
		Publisher:          bus,
	})

	orchestrator, err := radio.New(radio.Options{
		Acquirer:      pipeline,
		Writer:        writer,
		Backend:       supervisor,
		Bus:           bus,
		Clock:         clock.Real(),
		Prober:        processor,
		Changes:       watcher.Changes(),
		PrefetchDepth: cfg.PrefetchDepth,
		PrefetchDelay: cfg.PrefetchDelay,
		RegenInterval: cfg.RegenInterval,
		StopTimeout:   cfg.StopGrace + 5*time.Second,
	})
	if err != nil {
		return err
	}

	serverOpts := []server.Option{server.WithListenURL(ingest.ListenURL())}
	if cfg.DBHost != "" {
		if err := db.ConnectGormDB(cfg); err != nil {
			return err
		}
		closers = append(closers, db.CloseGormDB)
		if err := db.AutoMigrateModels(&model.RequestHistory{}); err != nil {
			return err
		}
		recorder := repository.NewHistoryRecorder(repository.NewGormRequestHistoryRepository(db.GormDB))
		sub := bus.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.Run(ctx, sub)
		}()
		serverOpts = append(serverOpts, server.WithHistory(recorder))
	}

	api := server.New(orchestrator, serverOpts...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := api.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
			logger.Error("HTTP server failed", logger.ErrorField(err))
		}
	}()

	logger.Info("LiveFM started",
		logger.String("source", cfg.AudioSource),
		logger.String("ingest", ingest.Redacted()),
		logger.String("playlist", writer.Path()))

	err = orchestrator.Run(ctx)
	logger.Info("LiveFM stopped")
	return err
}

func newSource() (acquire.Source, error) {
	switch cfg.AudioSource {
	case "netease":
		client := netease.NewClient(cfg.NeteaseAPIURL)
		levels := []string{cfg.NeteaseLevel}
		if cfg.NeteaseLevel != "standard" {
			levels = append(levels, "standard")
		}
		client.SetLevels(levels...)
		return netease.NewSource(client), nil
	case "ytdlp":
		return ytdlp.NewSource(cfg.YtDlpPath), nil
	default:
		return nil, fmt.Errorf("unknown audio source %q (want netease or ytdlp)", cfg.AudioSource)
	}
}

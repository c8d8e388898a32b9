package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heimdex/reelquiz/internal/api"
	"github.com/heimdex/reelquiz/internal/catalog"
	"github.com/heimdex/reelquiz/internal/config"
	"github.com/heimdex/reelquiz/internal/db"
	"github.com/heimdex/reelquiz/internal/handoff"
	"github.com/heimdex/reelquiz/internal/logging"
	"github.com/heimdex/reelquiz/internal/playback"
	"github.com/heimdex/reelquiz/internal/probe"
	"github.com/heimdex/reelquiz/internal/sequencer"
	"github.com/heimdex/reelquiz/internal/session"
	"github.com/heimdex/reelquiz/internal/ui"
	"github.com/heimdex/reelquiz/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.ClipsDir(), cfg.PlaylistsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelquiz agent",
		"version", config.Version,
		"commit", config.GitCommit,
		"data_dir", cfg.DataDir(),
		"clips_dir", logging.SanitizePath(cfg.ClipsDir()),
	)

	policy, err := sequencer.ParsePolicy(cfg.WrongAnswerPolicy())
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	instanceID, err := ensureConfigValue(repo, "instance_id", catalog.NewID)
	if err != nil {
		return fmt.Errorf("failed to ensure instance ID: %w", err)
	}

	authToken, err := ensureConfigValue(repo, api.AuthTokenKey, newToken)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  REELQUIZ AGENT v%-24s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Playlists:  %-45s ║\n", truncateLeft(cfg.PlaylistsDir(), 45))
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var prober probe.Prober
	ff, err := probe.NewFFprobe(probe.Config{
		Binary:  cfg.FFprobePath(),
		Timeout: cfg.ProbeTimeout(),
		Logger:  logging.WithComponent(logger, "probe"),
	})
	if err != nil {
		logger.Warn("ffprobe unavailable, clips must declare their durations", "error", err)
		prober = probe.NewStubProber(logger)
	} else {
		prober = probe.NewCachedProber(ff, logger)
	}

	catalogSvc := catalog.NewService(repo, catalog.ServiceOptions{
		ClipsDir: cfg.ClipsDir(),
		Slots:    cfg.ChoiceSlots(),
		Prober:   prober,
	}, logging.WithComponent(logger, "catalog"))

	var notifier handoff.Notifier
	if cfg.HandoffURL() != "" {
		notifier = handoff.NewHTTPNotifier(cfg.HandoffURL(), cfg.HandoffToken(), cfg.HandoffTimeout(), logging.WithComponent(logger, "handoff"))
		logger.Info("handoff enabled", "url", cfg.HandoffURL())
	} else {
		notifier = handoff.NewStubNotifier(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	sessions := session.NewManager(gctx, session.Options{
		TickInterval:  cfg.TickInterval(),
		GraceDelay:    cfg.GraceDelay(),
		FeedbackDelay: cfg.FeedbackDelay(),
		FadeDuration:  cfg.FadeDuration(),
		FadeHold:      cfg.FadeHold(),
		Policy:        policy,
		Fades:         cfg.Fades(),
		Slots:         cfg.ChoiceSlots(),
	}, notifier, logging.WithComponent(logger, "session"))

	runner := catalog.NewRunner(catalogSvc, logging.WithComponent(logger, "import"))

	playlistWatcher := watcher.NewFSWatcher(".json", logging.WithComponent(logger, "watcher"))
	playlistWatcher.OnChange(func(path string, event watcher.EventType) {
		runner.Enqueue(path, event == watcher.EventDelete)
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		CatalogService: catalogSvc,
		PlaybackServer: playback.NewServer(logger),
		Repository:     repo,
		Sessions:       sessions,
		Runner:         runner,
		CORSOrigins:    cfg.CORSOrigins(),
		Logger:         logging.WithComponent(logger, "api"),
		StartTime:      startTime,
		InstanceID:     instanceID,
		Version:        config.Version,
	})

	quitCh := make(chan struct{})

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			CatalogService: catalogSvc,
			Sessions:       sessions,
			Runner:         runner,
			Logger:         logger,
			OnRescan: func() error {
				return playlistWatcher.Scan(cfg.PlaylistsDir())
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		sessions.OnChange = func() { tray.Refresh(gctx) }
		runner.OnImport = func() { tray.Refresh(gctx) }
		go tray.Run()
	}

	g.Go(func() error {
		runner.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return playlistWatcher.Watch(gctx, cfg.PlaylistsDir())
	})
	g.Go(apiServer.Start)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-quitCh:
			logger.Info("quit requested")
		}

		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
		playlistWatcher.Stop()
		return errShutdown
	})

	err = g.Wait()
	sessions.Shutdown()

	if err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// errShutdown cancels the group once the shutdown goroutine has run.
var errShutdown = errors.New("shutdown")

func ensureConfigValue(repo catalog.Repository, key string, generate func() string) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	value := generate()
	if err := repo.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}

func newToken() string {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(tokenBytes)
}

func truncateLeft(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n+3:]
}

package main

import (
	"context"
	"flag"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lookout/internal/alerting"
	"lookout/internal/auth"
	"lookout/internal/config"
	"lookout/internal/detection"
	"lookout/internal/model"
	"lookout/internal/pipeline"
	"lookout/internal/server"
	"lookout/internal/watchlist"
	"lookout/internal/ws"
)

// modelLoadTimeout bounds how long a model load may take before it counts
// as failed.
const modelLoadTimeout = 2 * time.Minute

func main() {
	var (
		listenF = flag.String("listen", "", "Listen address (overrides LISTEN_ADDR)")
		deviceF = flag.String("device", "", "Camera device or stream URL (overrides CAMERA_DEVICE)")
		startF  = flag.Bool("start", false, "Start a monitoring session immediately")
	)
	flag.Parse()

	log.SetPrefix("[lookout] ")
	log.SetFlags(log.Ltime)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *listenF != "" {
		cfg.ListenAddr = *listenF
	}
	if *deviceF != "" {
		cfg.CameraDevice = *deviceF
	}

	store, err := watchlist.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open watchlist store: %v", err)
	}
	defer store.Close()

	logs, err := alerting.NewLogStoreWithDB(store.DB())
	if err != nil {
		log.Fatalf("Failed to open detection log: %v", err)
	}

	authenticator := auth.NewAuthenticator(auth.Settings{
		Enabled:   cfg.AuthEnabled,
		Username:  cfg.AuthUsername,
		Password:  cfg.AuthPassword,
		JWTSecret: cfg.JWTSecret,
		JWTExpiry: cfg.JWTExpiry,
	})

	provider := pipeline.NewFFmpegFrameProvider(cfg.CameraDevice, cfg.CameraFPS, cfg.CameraWidth, cfg.CameraHeight)
	if err := provider.Start(); err != nil {
		log.Fatalf("Failed to start frame capture: %v", err)
	}
	defer provider.Stop()

	bus := pipeline.NewEventBus()
	defer bus.Close()

	hub := ws.NewHub()
	detach := hub.Attach(bus)
	defer detach()

	// A dedicated model session pair serves enrollment, separate from the
	// per-session pairs the pipeline opens and closes.
	enrollDetector, enrollEmbedder := newModelPair(cfg)
	initEnrollmentModels(enrollDetector, enrollEmbedder)
	defer enrollDetector.Close()
	defer enrollEmbedder.Close()

	var notifier alerting.Notifier
	if cfg.TelegramConfigured() {
		notifier = alerting.NewTelegramNotifier(alerting.TelegramConfig{
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramChatID,
		})
		log.Printf("Telegram alerts enabled")
	} else {
		notifier = alerting.LogNotifier{}
		log.Printf("Telegram not configured, alerts go to the log")
	}

	manager := pipeline.NewManager(func() (*pipeline.Session, error) {
		detector, embedder := newModelPair(cfg)

		snapshot, err := store.SnapshotAll()
		if err != nil {
			detector.Close()
			embedder.Close()
			return nil, err
		}

		matcher := watchlist.NewMatcher(detector, embedder, snapshot)

		// Model loading is fatal to session start: the caller hears about a
		// dead inference endpoint instead of a session that drops every frame.
		ctx, cancel := context.WithTimeout(context.Background(), modelLoadTimeout)
		defer cancel()
		if err := matcher.Initialize(ctx); err != nil {
			matcher.Close()
			return nil, err
		}

		return pipeline.NewSession(
			pipeline.SessionConfig{FrameInterval: cfg.FrameInterval, Rotation: cfg.CameraRotation},
			provider,
			matcher,
			alerting.NewDecider(cfg.Mode, cfg.SimilarityThreshold, cfg.AlertCooldown),
			notifier,
			logs,
			bus,
		), nil
	})
	defer manager.StopSession()

	if *startF {
		if err := manager.StartSession(); err != nil {
			log.Printf("Could not start session: %v", err)
		}
	}

	srv := server.New(server.Deps{
		Config:   cfg,
		Store:    store,
		Logs:     logs,
		Auth:     authenticator,
		Hub:      hub,
		Manager:  manager,
		Provider: provider,
		Enroll: func(ctx context.Context, img image.Image) ([]float32, error) {
			return detection.EmbedReference(ctx, enrollDetector, enrollEmbedder, img)
		},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func newModelPair(cfg *config.Config) (*detection.Detector, *detection.Embedder) {
	detSess := model.NewHTTPSession(model.HTTPSessionConfig{
		Endpoint: cfg.DetectorEndpoint,
		Name:     cfg.DetectorModel,
	})
	embSess := model.NewHTTPSession(model.HTTPSessionConfig{
		Endpoint: cfg.EmbedderEndpoint,
		Name:     cfg.EmbedderModel,
	})
	return detection.NewDetector(detSess), detection.NewEmbedder(embSess)
}

// initEnrollmentModels loads the enrollment pair in the background so
// startup never blocks on the inference service. Enrollment requests made
// before loading finishes fail with a not-initialized error; the session
// factory loads its own pair synchronously instead.
func initEnrollmentModels(detector *detection.Detector, embedder *detection.Embedder) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), modelLoadTimeout)
		defer cancel()
		if err := detector.Initialize(ctx); err != nil {
			log.Printf("Face detector failed to load: %v", err)
		}
		if err := embedder.Initialize(ctx); err != nil {
			log.Printf("Face embedder failed to load: %v", err)
		}
	}()
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"lookout/internal/watchlist"
)

// Config is everything the process needs, read from environment variables
// (optionally seeded from a .env file).
type Config struct {
	// Camera capture.
	CameraDevice   string
	CameraFPS      int
	CameraWidth    int
	CameraHeight   int
	CameraRotation int // degrees clockwise: 0, 90, 180 or 270

	// Model inference service.
	DetectorEndpoint string
	DetectorModel    string
	EmbedderEndpoint string
	EmbedderModel    string

	// Matching and alerting.
	Mode                watchlist.FaceType
	SimilarityThreshold float32
	FrameInterval       time.Duration
	AlertCooldown       time.Duration

	// Telegram delivery; both empty means log-only alerts.
	TelegramBotToken string
	TelegramChatID   string

	// Storage.
	DatabasePath string

	// Admin API.
	ListenAddr string

	// Auth.
	AuthEnabled  bool
	AuthUsername string
	AuthPassword string
	JWTSecret    string
	JWTExpiry    time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg := &Config{
		CameraDevice:        getEnv("CAMERA_DEVICE", "/dev/video0"),
		CameraFPS:           getEnvInt("CAMERA_FPS", 15),
		CameraWidth:         getEnvInt("CAMERA_WIDTH", 1280),
		CameraHeight:        getEnvInt("CAMERA_HEIGHT", 720),
		CameraRotation:      getEnvInt("CAMERA_ROTATION", 0),
		DetectorEndpoint:    getEnv("DETECTOR_ENDPOINT", "http://localhost:8500"),
		DetectorModel:       getEnv("DETECTOR_MODEL", "face-detect"),
		EmbedderEndpoint:    getEnv("EMBEDDER_ENDPOINT", "http://localhost:8500"),
		EmbedderModel:       getEnv("EMBEDDER_MODEL", "face-embed"),
		Mode:                watchlist.FaceType(getEnv("WATCH_MODE", string(watchlist.Blacklist))),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.52),
		FrameInterval:       getEnvDuration("FRAME_INTERVAL", 1000*time.Millisecond),
		AlertCooldown:       getEnvDuration("ALERT_COOLDOWN", 60*time.Second),
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      os.Getenv("TELEGRAM_CHAT_ID"),
		DatabasePath:        getEnv("DATABASE_PATH", "lookout.db"),
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		AuthEnabled:         os.Getenv("AUTH_ENABLED") == "true",
		AuthUsername:        getEnv("AUTH_USERNAME", "admin"),
		AuthPassword:        os.Getenv("AUTH_PASSWORD"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTExpiry:           getEnvDuration("JWT_EXPIRY", 24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("invalid WATCH_MODE %q: must be %q or %q", c.Mode, watchlist.Blacklist, watchlist.Whitelist)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1), got %v", c.SimilarityThreshold)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be positive, got %v", c.FrameInterval)
	}
	if c.AlertCooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN must not be negative, got %v", c.AlertCooldown)
	}
	if c.CameraDevice == "" {
		return fmt.Errorf("CAMERA_DEVICE must not be empty")
	}
	switch c.CameraRotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("CAMERA_ROTATION must be 0, 90, 180 or 270, got %d", c.CameraRotation)
	}
	if c.AuthEnabled && c.AuthPassword == "" {
		return fmt.Errorf("AUTH_PASSWORD required when AUTH_ENABLED=true")
	}
	return nil
}

// TelegramConfigured reports whether alert delivery via Telegram is set up.
func (c *Config) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

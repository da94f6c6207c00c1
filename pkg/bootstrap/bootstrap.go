package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"

	shared "github.com/carbonpath/server/pkg"
	"github.com/carbonpath/server/pkg/infrastructure/database"
	infrapubsub "github.com/carbonpath/server/pkg/infrastructure/pubsub"
	infrasentry "github.com/carbonpath/server/pkg/infrastructure/sentry"
	infrastorage "github.com/carbonpath/server/pkg/infrastructure/storage"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID      string
	EnablePublish  bool
	ArtifactBucket string
	ModelObject    string
	StationsObject string

	MovesClientID     string
	MovesClientSecret string

	CarbonBaseURL string
	CarbonAPIKey  string
	// CarbonPacing spaces consecutive carbon-service calls.
	CarbonPacing time.Duration

	// RunDateLimit bounds how many unresolved dates one run may process.
	RunDateLimit int
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}

	limit := 30
	if v := os.Getenv("RUN_DATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	pacing := 50 * time.Millisecond
	if v := os.Getenv("CARBON_PACING_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			pacing = time.Duration(n) * time.Millisecond
		}
	}

	carbonBase := os.Getenv("CARBON_BASE_URL")
	if carbonBase == "" {
		carbonBase = "http://impact.brighterplanet.com"
	}

	return &Config{
		ProjectID:         projectID,
		EnablePublish:     os.Getenv("ENABLE_PUBLISH") == "true",
		ArtifactBucket:    os.Getenv("GCS_ARTIFACT_BUCKET"),
		ModelObject:       envOr("MODEL_OBJECT", "models/gradient_boosting.json"),
		StationsObject:    envOr("STATIONS_OBJECT", "reference/subway_entrances.geojson"),
		MovesClientID:     os.Getenv("MOVES_CLIENT_ID"),
		MovesClientSecret: os.Getenv("MOVES_CLIENT_SECRET"),
		CarbonBaseURL:     carbonBase,
		CarbonAPIKey:      os.Getenv("CARBON_API_KEY"),
		CarbonPacing:      pacing,
		RunDateLimit:      limit,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Service holds initialized dependencies
type Service struct {
	DB     shared.Database
	Store  shared.BlobStore
	Pub    shared.Publisher
	Config *Config
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string) *slog.Logger {
	logLevelStr := os.Getenv("LOG_LEVEL")
	var level slog.Level
	switch strings.ToLower(logLevelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := GetSlogHandlerOptions(level)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler).With("service", serviceName)
}

// InitLogger configures structured logging as the process default
func InitLogger() {
	opts := GetSlogHandlerOptions(slog.LevelInfo)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}

// NewBlobStore initializes a standalone GCS-backed blob store, for tools
// that need artifacts without the full service container.
func NewBlobStore(ctx context.Context) (shared.BlobStore, error) {
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}
	return &infrastorage.StorageAdapter{Client: gcsClient}, nil
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context) (*Service, error) {
	InitLogger()
	cfg := LoadConfig()

	slog.Info("Initializing service", "project_id", cfg.ProjectID)

	if err := infrasentry.Init(infrasentry.Config{
		DSN:         os.Getenv("SENTRY_DSN"),
		Environment: envOr("SENTRY_ENVIRONMENT", "production"),
		Release:     os.Getenv("SENTRY_RELEASE"),
	}, slog.Default()); err != nil {
		slog.Warn("Sentry init failed, continuing without error tracking", "error", err)
	}

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			slog.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		slog.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		slog.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	return &Service{
		DB:     database.NewFirestoreAdapter(fsClient),
		Pub:    pubAdapter,
		Store:  &infrastorage.StorageAdapter{Client: gcsClient},
		Config: cfg,
	}, nil
}

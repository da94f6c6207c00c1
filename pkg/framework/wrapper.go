// Package framework wraps CloudEvent handlers with the cross-cutting
// concerns every function shares: a per-invocation logger, panic capture,
// and a stable execution ID threaded through logs and error reports.
package framework

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/carbonpath/server/pkg/bootstrap"
	infrasentry "github.com/carbonpath/server/pkg/infrastructure/sentry"
	"github.com/carbonpath/server/pkg/types"
)

// FrameworkContext carries the dependencies injected into every handler.
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for a cloud function handler. The returned
// value is logged as the function's outputs on success.
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent decorates a handler with start/finish logging, panic
// recovery and error reporting. Returned errors propagate so the platform
// retries the event.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		execID := uuid.NewString()

		logger := newInvocationLogger(serviceName).With("execution_id", execID)
		if userID := extractUserID(e); userID != "" {
			logger = logger.With("user_id", userID)
		}

		defer infrasentry.RecoverAndCapture(logger)

		logger.Info("Function started", "event_type", e.Type(), "event_id", e.ID())

		fwCtx := &FrameworkContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
		}

		outputs, err := handler(ctx, e, fwCtx)
		if err != nil {
			logger.Error("Function failed", "error", err)
			infrasentry.CaptureException(err, map[string]interface{}{
				"service":      serviceName,
				"execution_id": execID,
			}, logger)
			return err
		}

		logger.Info("Function completed successfully", "outputs", outputs)
		return nil
	}
}

func newInvocationLogger(serviceName string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := bootstrap.GetSlogHandlerOptions(level)
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("service", serviceName)
}

// extractUserID pulls the user_id out of a Pub/Sub-wrapped payload so it can
// annotate every log line of the invocation. Best effort: an event that is
// not a trigger payload simply yields an empty ID.
func extractUserID(e event.Event) string {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Message.Data, &payload); err != nil {
		return ""
	}
	if uid, ok := payload["user_id"].(string); ok {
		return uid
	}
	return ""
}

// Package moves_pipeline is the scheduled entry point of the transport
// pipeline. One invocation processes one user: it resolves which days are
// still unprocessed, rebuilds each day's transports from the tracking
// service, classifies and carbon-annotates them, and persists the results.
package moves_pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	shared "github.com/carbonpath/server/pkg"
	"github.com/carbonpath/server/pkg/bootstrap"
	"github.com/carbonpath/server/pkg/domain/carbon"
	"github.com/carbonpath/server/pkg/domain/classifier"
	"github.com/carbonpath/server/pkg/domain/features"
	"github.com/carbonpath/server/pkg/framework"
	"github.com/carbonpath/server/pkg/geo"
	"github.com/carbonpath/server/pkg/infrastructure/oauth"
	infrapubsub "github.com/carbonpath/server/pkg/infrastructure/pubsub"
	infrasentry "github.com/carbonpath/server/pkg/infrastructure/sentry"
	"github.com/carbonpath/server/pkg/integrations/moves"
	"github.com/carbonpath/server/pkg/pipeline"
	"github.com/carbonpath/server/pkg/types"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error

	// Model and station set are immutable per deployment, so they are
	// loaded once per instance rather than once per invocation.
	artifactOnce sync.Once
	artifactErr  error
	model        *classifier.Classifier
	stations     []geo.Point
)

func init() {
	functions.CloudEvent("RunMovesPipeline", RunMovesPipeline)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx)
	})
	return svc, svcErr
}

func loadArtifacts(ctx context.Context, s *bootstrap.Service) (*classifier.Classifier, []geo.Point, error) {
	artifactOnce.Do(func() {
		bucket := s.Config.ArtifactBucket

		modelData, err := s.Store.Read(ctx, bucket, s.Config.ModelObject)
		if err != nil {
			artifactErr = fmt.Errorf("read model artifact: %w", err)
			return
		}
		model, artifactErr = classifier.Load(modelData)
		if artifactErr != nil {
			return
		}

		stationData, err := s.Store.Read(ctx, bucket, s.Config.StationsObject)
		if err != nil {
			artifactErr = fmt.Errorf("read station reference set: %w", err)
			return
		}
		stations, artifactErr = features.ParseStationPoints(stationData)
	})
	return model, stations, artifactErr
}

// RunMovesPipeline is triggered per user via the pipeline-trigger topic.
func RunMovesPipeline(ctx context.Context, e cloudevents.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	defer infrasentry.Flush(2 * time.Second)
	return framework.WrapCloudEvent("moves-pipeline", svc, pipelineHandler)(ctx, e)
}

func pipelineHandler(ctx context.Context, e cloudevents.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	trigger, err := decodeTrigger(e)
	if err != nil {
		// Malformed triggers are dropped, not retried: redelivery cannot
		// make the payload parse.
		fwCtx.Logger.Error("Dropping malformed trigger", "error", err)
		return map[string]interface{}{"status": "dropped"}, nil
	}

	user, err := fwCtx.Service.DB.GetUser(ctx, trigger.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", trigger.UserID, err)
	}
	if user == nil {
		fwCtx.Logger.Warn("Trigger for unknown user, dropping", "user_id", trigger.UserID)
		return map[string]interface{}{"status": "dropped"}, nil
	}
	if user.Integrations == nil || user.Integrations.Moves == nil || !user.Integrations.Moves.Enabled {
		fwCtx.Logger.Info("User has no active tracking integration, skipping")
		return map[string]interface{}{"status": "skipped"}, nil
	}

	clf, stationSet, err := loadArtifacts(ctx, fwCtx.Service)
	if err != nil {
		return nil, err
	}

	cfg := fwCtx.Service.Config
	tokens := oauth.NewFirestoreTokenSource(fwCtx.Service.DB, user.UserID,
		moves.OAuthConfig(cfg.MovesClientID, cfg.MovesClientSecret, ""))
	fetcher := moves.NewClient(moves.Config{Tokens: tokens})

	estimator := carbon.NewEstimator(carbon.Config{
		BaseURL:         cfg.CarbonBaseURL,
		APIKey:          cfg.CarbonAPIKey,
		MinCallInterval: cfg.CarbonPacing,
	})

	limit := cfg.RunDateLimit
	if trigger.DateLimit > 0 {
		limit = trigger.DateLimit
	}

	orch := pipeline.NewOrchestrator(pipeline.Config{
		DB:        fwCtx.Service.DB,
		Fetcher:   fetcher,
		Model:     clf,
		Carbon:    estimator,
		Stations:  stationSet,
		DateLimit: limit,
		Logger:    fwCtx.Logger,
	})

	result, runErr := orch.Run(ctx, user)
	publishRunSummary(ctx, fwCtx, result)
	if runErr != nil {
		return nil, runErr
	}

	return map[string]interface{}{
		"status":               "SUCCESS",
		"run_id":               result.RunID,
		"dates_with_transport": result.DatesWithTransport,
		"dates_no_transport":   result.DatesNoTransport,
		"dates_failed":         len(result.Failed),
		"transports_persisted": result.TransportsPersisted,
	}, nil
}

// publishRunSummary emits the run report even for aborted runs, so partial
// progress is observable downstream. Publish failures are logged, never
// escalated: losing a summary must not fail the pipeline.
func publishRunSummary(ctx context.Context, fwCtx *framework.FrameworkContext, result *pipeline.RunResult) {
	summary, err := infrapubsub.NewCloudEvent(infrapubsub.EventSourcePipeline, infrapubsub.EventTypeRunSummary, result)
	if err != nil {
		fwCtx.Logger.Error("Failed to build run summary event", "error", err)
		return
	}
	if _, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicRunSummary, summary); err != nil {
		fwCtx.Logger.Error("Failed to publish run summary", "error", err)
	}
}

func decodeTrigger(e cloudevents.Event) (*types.PipelineTrigger, error) {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		return nil, fmt.Errorf("decode pubsub envelope: %w", err)
	}
	var trigger types.PipelineTrigger
	if err := json.Unmarshal(msg.Message.Data, &trigger); err != nil {
		return nil, fmt.Errorf("decode trigger payload: %w", err)
	}
	if trigger.UserID == "" {
		return nil, fmt.Errorf("trigger payload missing user_id")
	}
	return &trigger, nil
}

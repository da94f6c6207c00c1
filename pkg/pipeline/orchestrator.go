package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	shared "github.com/carbonpath/server/pkg"
	"github.com/carbonpath/server/pkg/domain/classifier"
	"github.com/carbonpath/server/pkg/domain/extract"
	"github.com/carbonpath/server/pkg/domain/features"
	"github.com/carbonpath/server/pkg/geo"
	"github.com/carbonpath/server/pkg/infrastructure/database"
	infrasentry "github.com/carbonpath/server/pkg/infrastructure/sentry"
	"github.com/carbonpath/server/pkg/types"
)

// StorylineFetcher is the tracking-service surface the orchestrator needs.
type StorylineFetcher interface {
	FetchStoryline(ctx context.Context, date string, updateSince *time.Time) ([]types.Storyline, error)
}

// Estimator is the carbon-service surface the orchestrator needs.
type Estimator interface {
	Estimate(ctx context.Context, mode string, distanceMeters float64) (float64, error)
}

// FailedDate records a date left unresolved by this run, with the stage that
// failed. No marker is written for it, so a future run retries it.
type FailedDate struct {
	Date  string `json:"date"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// RunResult is the terminal report of one pipeline run.
type RunResult struct {
	RunID               string       `json:"run_id"`
	UserID              string       `json:"user_id"`
	DatesWithTransport  int          `json:"dates_with_transport"`
	DatesNoTransport    int          `json:"dates_no_transport"`
	TransportsPersisted int          `json:"transports_persisted"`
	Failed              []FailedDate `json:"failed,omitempty"`
}

// Orchestrator sequences the pipeline per date for one user. Dates are
// processed sequentially: classification and estimation share one loaded
// model and a rate-limited external service, and per-date failure isolation
// is simplest when one date's outcome cannot race another's.
type Orchestrator struct {
	db       shared.Database
	fetcher  StorylineFetcher
	model    *classifier.Classifier
	carbon   Estimator
	stations []geo.Point
	limit    int
	logger   *slog.Logger
	now      func() time.Time
}

// Config wires an orchestrator. Model and Stations are loaded once per run
// and treated as read-only for its duration.
type Config struct {
	DB       shared.Database
	Fetcher  StorylineFetcher
	Model    *classifier.Classifier
	Carbon   Estimator
	Stations []geo.Point
	// DateLimit bounds how many unresolved dates one run may process. It
	// exists to bound external API load and run duration, not to express
	// concurrency.
	DateLimit int
	Logger    *slog.Logger
	// Now overrides the clock (tests). Nil means time.Now.
	Now func() time.Time
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.DateLimit <= 0 {
		cfg.DateLimit = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		db:       cfg.DB,
		fetcher:  cfg.Fetcher,
		model:    cfg.Model,
		carbon:   cfg.Carbon,
		stations: cfg.Stations,
		limit:    cfg.DateLimit,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// Run executes the pipeline for one user. Per-date failures (fetch, carbon,
// persistence) never abort the run: the date stays unresolved for a later
// run and processing continues. Only classification failures are fatal,
// since without the model no transport can be completed.
func (o *Orchestrator) Run(ctx context.Context, user *types.UserRecord) (*RunResult, error) {
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID, "user_id", user.UserID)
	result := &RunResult{RunID: runID, UserID: user.UserID}

	joinDate, err := civil.ParseDate(user.JoinDate)
	if err != nil {
		return result, fmt.Errorf("parse join date %q: %w", user.JoinDate, err)
	}
	today := civil.DateOf(o.now())

	dates, err := NewGapResolver(o.db).Resolve(ctx, user.UserID, joinDate, today)
	if err != nil {
		return result, fmt.Errorf("resolve date gaps: %w", err)
	}
	logger.Info("Resolved unprocessed dates", "count", len(dates), "limit", o.limit)

	if len(dates) > o.limit {
		dates = dates[:o.limit]
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := o.processDate(ctx, logger, user, runID, date.String(), result); err != nil {
			// Fatal: stop issuing further per-date work.
			return result, err
		}
	}

	logger.Info("Run complete",
		"dates_with_transport", result.DatesWithTransport,
		"dates_no_transport", result.DatesNoTransport,
		"dates_failed", len(result.Failed),
		"transports_persisted", result.TransportsPersisted,
	)
	return result, nil
}

// processDate resolves a single date. A non-nil return aborts the run;
// recoverable failures are recorded on result instead.
func (o *Orchestrator) processDate(ctx context.Context, logger *slog.Logger, user *types.UserRecord, runID, date string, result *RunResult) error {
	logger = logger.With("date", date)

	storylines, err := o.fetcher.FetchStoryline(ctx, date, nil)
	if err != nil {
		o.recordFailure(logger, result, user.UserID, date, "fetch", err)
		return nil
	}

	transports := extract.TransportsFromStorylines(storylines)
	if len(transports) == 0 {
		if err := o.db.MarkNoTransport(ctx, user.UserID, date); err != nil {
			o.recordFailure(logger, result, user.UserID, date, "mark_no_transport", err)
			return nil
		}
		logger.Info("No qualifying transports, marker written")
		result.DatesNoTransport++
		return nil
	}

	lastUpdate := storylineLastUpdate(storylines)

	var records []*types.TransportRecord
	for _, activity := range transports {
		record, err := o.buildRecord(ctx, user.UserID, runID, activity, lastUpdate)
		if err != nil {
			var malformed *features.MalformedTransportError
			if errors.As(err, &malformed) {
				logger.Warn("Skipping malformed transport", "error", err, "start_time", activity.StartTime)
				continue
			}
			var classification *classifier.ClassificationError
			if errors.As(err, &classification) {
				o.recordFailure(logger, result, user.UserID, date, "classify", err)
				return err
			}
			// Carbon-service and other recoverable errors leave the date
			// unresolved; never persist a fabricated value.
			o.recordFailure(logger, result, user.UserID, date, "estimate", err)
			return nil
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		// All candidates were malformed. Not a confirmed-empty date, so no
		// marker: the upstream data may be corrected on a later run.
		o.recordFailure(logger, result, user.UserID, date, "build", fmt.Errorf("all %d transport candidates malformed", len(transports)))
		return nil
	}

	if err := o.db.InsertTransports(ctx, user.UserID, records); err != nil {
		var partial *database.PartialWriteError
		if errors.As(err, &partial) && !partial.TotalFailure() {
			// Subset persisted: the date now counts as resolved, but the
			// failures must surface rather than be discarded.
			logger.Error("Partial transport write", "error", err, "failed", len(partial.Failed))
			infrasentry.CaptureException(err, map[string]interface{}{"user_id": user.UserID, "date": date}, logger)
		} else {
			o.recordFailure(logger, result, user.UserID, date, "persist", err)
			return nil
		}
	}

	logger.Info("Date resolved with transports", "count", len(records))
	result.DatesWithTransport++
	result.TransportsPersisted += len(records)
	return nil
}

// buildRecord turns one transport candidate into a persisted-shape record:
// classified mode, estimated carbon, derived times and geometry. Each stage
// produces a new enriched value; no partial record escapes on error.
func (o *Orchestrator) buildRecord(ctx context.Context, userID, runID string, activity types.Activity, lastUpdate time.Time) (*types.TransportRecord, error) {
	mode, err := o.model.Classify(activity, o.stations)
	if err != nil {
		return nil, err
	}

	carbonKg, err := o.carbon.Estimate(ctx, mode, activity.Distance)
	if err != nil {
		return nil, err
	}

	start, err := types.ParseActivityTime(activity.StartTime)
	if err != nil {
		return nil, &features.MalformedTransportError{Reason: "bad start time", Err: err}
	}
	end, err := types.ParseActivityTime(activity.EndTime)
	if err != nil {
		return nil, &features.MalformedTransportError{Reason: "bad end time", Err: err}
	}

	date := start.Format("2006-01-02")
	geojson := geo.ToFeatureCollection(activity.TrackPoints)
	if lastUpdate.IsZero() {
		lastUpdate = start
	}

	return &types.TransportRecord{
		ID:          fmt.Sprintf("%s_%s", date, start.UTC().Format("150405")),
		UserID:      userID,
		RecordType:  "storyline",
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Distance:    activity.Distance,
		Duration:    activity.Duration,
		Mode:        mode,
		CarbonKg:    carbonKg,
		TrackPoints: activity.TrackPoints,
		GeoJSON:     &geojson,
		LastUpdate:  lastUpdate,
		RunID:       runID,
		CreatedAt:   o.now().UTC(),
	}, nil
}

// storylineLastUpdate returns the service's lastUpdate stamp for the day,
// or the zero time when the payload carries none.
func storylineLastUpdate(storylines []types.Storyline) time.Time {
	for _, s := range storylines {
		if s.LastUpdate == "" {
			continue
		}
		if t, err := types.ParseActivityTime(s.LastUpdate); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (o *Orchestrator) recordFailure(logger *slog.Logger, result *RunResult, userID, date, stage string, err error) {
	logger.Error("Date left unresolved", "stage", stage, "error", err)
	infrasentry.CaptureException(err, map[string]interface{}{
		"user_id": userID,
		"date":    date,
		"stage":   stage,
	}, logger)
	result.Failed = append(result.Failed, FailedDate{Date: date, Stage: stage, Error: err.Error()})
}

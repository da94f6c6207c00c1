// pipeline-runner executes one pipeline run for a single user from the
// command line, against the same Firestore project as the deployed
// function. Useful for backfills and debugging a user's date gaps without
// publishing a trigger message.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/carbonpath/server/pkg/bootstrap"
	"github.com/carbonpath/server/pkg/domain/carbon"
	"github.com/carbonpath/server/pkg/domain/classifier"
	"github.com/carbonpath/server/pkg/domain/features"
	"github.com/carbonpath/server/pkg/infrastructure/database"
	"github.com/carbonpath/server/pkg/infrastructure/oauth"
	"github.com/carbonpath/server/pkg/integrations/moves"
	"github.com/carbonpath/server/pkg/pipeline"
)

func main() {
	userID := flag.String("user", "", "user ID to process (required)")
	limit := flag.Int("limit", 0, "max dates to process this run (0 = configured default)")
	modelPath := flag.String("model", "", "local model artifact path (default: fetch from GCS)")
	stationsPath := flag.String("stations", "", "local station reference set path (default: fetch from GCS)")
	timeout := flag.Duration("timeout", 15*time.Minute, "overall run timeout")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := bootstrap.NewLogger("pipeline-runner")
	cfg := bootstrap.LoadConfig()

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		fatalf("create firestore client: %v", err)
	}
	defer fsClient.Close()
	db := database.NewFirestoreAdapter(fsClient)

	modelData, err := readArtifact(ctx, cfg, *modelPath, cfg.ModelObject)
	if err != nil {
		fatalf("load model: %v", err)
	}
	model, err := classifier.Load(modelData)
	if err != nil {
		fatalf("load model: %v", err)
	}

	stationData, err := readArtifact(ctx, cfg, *stationsPath, cfg.StationsObject)
	if err != nil {
		fatalf("load stations: %v", err)
	}
	stations, err := features.ParseStationPoints(stationData)
	if err != nil {
		fatalf("load stations: %v", err)
	}

	user, err := db.GetUser(ctx, *userID)
	if err != nil {
		fatalf("get user: %v", err)
	}
	if user == nil {
		fatalf("unknown user %q", *userID)
	}
	if user.Integrations == nil || user.Integrations.Moves == nil || !user.Integrations.Moves.Enabled {
		fatalf("user %q has no active tracking integration", *userID)
	}

	tokens := oauth.NewFirestoreTokenSource(db, user.UserID,
		moves.OAuthConfig(cfg.MovesClientID, cfg.MovesClientSecret, ""))

	dateLimit := cfg.RunDateLimit
	if *limit > 0 {
		dateLimit = *limit
	}

	orch := pipeline.NewOrchestrator(pipeline.Config{
		DB:      db,
		Fetcher: moves.NewClient(moves.Config{Tokens: tokens}),
		Model:   model,
		Carbon: carbon.NewEstimator(carbon.Config{
			BaseURL:         cfg.CarbonBaseURL,
			APIKey:          cfg.CarbonAPIKey,
			MinCallInterval: cfg.CarbonPacing,
		}),
		Stations:  stations,
		DateLimit: dateLimit,
		Logger:    logger,
	})

	result, runErr := orch.Run(ctx, user)
	printResult(result)
	if runErr != nil {
		fatalf("run aborted: %v", runErr)
	}
}

// readArtifact prefers a local file so runs can test a candidate model
// before it is uploaded.
func readArtifact(ctx context.Context, cfg *bootstrap.Config, localPath, object string) ([]byte, error) {
	if localPath != "" {
		return os.ReadFile(localPath)
	}
	store, err := bootstrap.NewBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.Read(ctx, cfg.ArtifactBucket, object)
}

func printResult(result *pipeline.RunResult) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", result.RunID)
	fmt.Fprintf(w, "user\t%s\n", result.UserID)
	p.Fprintf(w, "dates with transport\t%d\n", result.DatesWithTransport)
	p.Fprintf(w, "dates without transport\t%d\n", result.DatesNoTransport)
	p.Fprintf(w, "transports persisted\t%d\n", result.TransportsPersisted)
	p.Fprintf(w, "dates failed\t%d\n", len(result.Failed))
	w.Flush()

	for _, f := range result.Failed {
		fmt.Printf("  failed %s at %s: %s\n", f.Date, f.Stage, f.Error)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "pipeline-runner: "+format+"\n", args...)
	os.Exit(1)
}

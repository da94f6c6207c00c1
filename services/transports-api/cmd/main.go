package main

import (
	"context"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"

	"github.com/carbonpath/server/pkg/bootstrap"
	"github.com/carbonpath/server/pkg/infrastructure/database"
	transportsapi "github.com/carbonpath/server/services/transports-api"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.NewLogger("transports-api")

	cfg := bootstrap.LoadConfig()
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Failed to create Firestore client", "error", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	server := transportsapi.NewServer(database.NewFirestoreAdapter(fsClient), logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("Listening", "port", port)
	if err := http.ListenAndServe(":"+port, server.Router()); err != nil {
		logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

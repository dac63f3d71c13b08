package main

import (
	"context"
	"log"

	"github.com/akozlovs/vinotes/internal/server"
	"github.com/akozlovs/vinotes/internal/server/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"telimport/internal/config"
	"telimport/pkg/agent"
	"telimport/pkg/extract"
	"telimport/pkg/seaweed"
	"telimport/pkg/server"
	"telimport/pkg/store"
)

func main() {
	serverMode := flag.Bool("server", false, "run the HTTP API instead of the queue worker")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	blobs := seaweed.NewClient(cfg.SeaweedMaster, cfg.SeaweedVolume)

	extractor, err := extract.NewExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to initialize extractor: %v", err)
	}

	records, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		log.Fatalf("Failed to connect to mongodb: %v", err)
	}

	handler := agent.NewHandler(blobs, extractor, records)

	if *serverMode {
		srv := server.New(records, handler)
		if err := srv.Run(":" + cfg.HTTPPort); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	worker := agent.New(cfg.AMQPURL(), cfg.RequestQueue, cfg.ResponseQueue, handler)
	if err := worker.Start(ctx); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}

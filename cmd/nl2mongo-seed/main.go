// File path: cmd/nl2mongo-seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"nl2mongo/internal/common"
	"nl2mongo/internal/config"
	"nl2mongo/internal/seed"
	"nl2mongo/internal/store"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("seed: .env file not loaded", "error", err)
	}

	events := flag.Int("events", 100, "number of notification events to generate")
	drop := flag.Bool("drop", false, "remove existing documents from the dataset collections first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("seed: config load failed", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	// Seeding only talks to MongoDB; the model settings are not needed here.
	if cfg.MongoURI == "" || cfg.DBName == "" {
		fmt.Println("config error: MONGO_URI and DB_NAME must be set")
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := store.Connect(ctx, cfg.MongoURI, cfg.DBName, cfg.MongoTimeout)
	if err != nil {
		logger.Error("seed: mongodb connection failed", "error", err)
		fmt.Println("mongodb error:", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())

	logger.Info("seed: building dataset", "events", *events, "drop", *drop)
	ds := seed.Build(seed.Options{Events: *events})
	if err := seed.Insert(ctx, st.Database(), ds, *drop); err != nil {
		logger.Error("seed: load failed", "error", err)
		fmt.Println("seed error:", err)
		os.Exit(1)
	}

	total := 0
	for _, docs := range ds.ByCollection() {
		total += len(docs)
	}
	fmt.Printf("Seeded %d documents across %d collections into %s\n",
		total, len(seed.Collections()), st.DatabaseName())
}

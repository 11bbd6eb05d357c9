// File path: cmd/nl2mongo-regen/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"nl2mongo/internal/catalog"
	"nl2mongo/internal/common"
	"nl2mongo/internal/config"
	"nl2mongo/internal/schema"
	"nl2mongo/internal/store"
)

// Offline equivalent of POST /api/generate-schema: regenerates the catalog
// for every collection and persists it, without going through the service.
func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("regen: .env file not loaded", "error", err)
	}

	sampleSize := flag.Int("sample", 100, "documents to sample per collection")
	strategyFlag := flag.String("strategy", "replace", "merge strategy: merge or replace")
	relationships := flag.Bool("relationships", true, "detect cross-collection relationships")
	schemaPath := flag.String("schemas", "", "path to the persisted schema catalog (overrides SCHEMA_PATH)")
	flag.Parse()

	strategy, ok := schema.ParseMergeStrategy(*strategyFlag)
	if !ok {
		fmt.Println("invalid -strategy:", *strategyFlag)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("regen: config load failed", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if cfg.MongoURI == "" || cfg.DBName == "" {
		fmt.Println("config error: MONGO_URI and DB_NAME must be set")
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*schemaPath); trimmed != "" {
		cfg.SchemaPath = trimmed
	}

	ctx := context.Background()
	st, err := store.Connect(ctx, cfg.MongoURI, cfg.DBName, cfg.MongoTimeout)
	if err != nil {
		logger.Error("regen: mongodb connection failed", "error", err)
		fmt.Println("mongodb error:", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())

	cat := catalog.New(cfg.SchemaPath)
	if err := cat.Load(); err != nil {
		logger.Error("regen: catalog load failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}

	generator := schema.NewGenerator(st, st, schema.Config{SampleSize: *sampleSize})
	result, err := generator.Generate(ctx, nil, cat.Snapshot().Collections, schema.GenerateOptions{
		SampleSize:          *sampleSize,
		DetectRelationships: *relationships,
		MergeStrategy:       strategy,
	})
	if err != nil {
		logger.Error("regen: generation failed", "error", err)
		fmt.Println("generation error:", err)
		os.Exit(1)
	}
	if _, err := cat.Replace(result.Collections, result.Relationships); err != nil {
		logger.Error("regen: catalog persist failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}

	fmt.Printf("Analyzed %d collections (%d fields, %d relationships); catalog written to %s\n",
		result.Report.CollectionsAnalyzed, result.Report.TotalFields,
		result.Report.RelationshipsFound, cfg.SchemaPath)
	if len(result.Report.Errors) > 0 {
		names := make([]string, 0, len(result.Report.Errors))
		for name := range result.Report.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %s\n", name, result.Report.Errors[name])
		}
		os.Exit(1)
	}
}

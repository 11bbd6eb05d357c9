// File path: cmd/nl2mongo/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nl2mongo/internal/api"
	"nl2mongo/internal/catalog"
	"nl2mongo/internal/common"
	"nl2mongo/internal/config"
	"nl2mongo/internal/history"
	"nl2mongo/internal/llm"
	"nl2mongo/internal/query"
	"nl2mongo/internal/schema"
	"nl2mongo/internal/store"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("nl2mongo: .env file not loaded", "error", err)
	} else {
		logger.Info("nl2mongo: environment loaded from .env")
	}

	addr := flag.String("addr", "", "listen address (overrides SERVER_ADDR)")
	schemaPath := flag.String("schemas", "", "path to the persisted schema catalog (overrides SCHEMA_PATH)")
	historyPath := flag.String("history", "", "path to the query history database (overrides HISTORY_PATH, empty string in env disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("nl2mongo: config load failed", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*addr); trimmed != "" {
		cfg.ServerAddr = trimmed
	}
	if trimmed := strings.TrimSpace(*schemaPath); trimmed != "" {
		cfg.SchemaPath = trimmed
	}
	if trimmed := strings.TrimSpace(*historyPath); trimmed != "" {
		cfg.HistoryPath = trimmed
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("nl2mongo: invalid configuration", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	cfg.LogSummary(logger)

	st, err := store.Connect(ctx, cfg.MongoURI, cfg.DBName, cfg.MongoTimeout)
	if err != nil {
		logger.Error("nl2mongo: mongodb connection failed", "error", err)
		fmt.Println("mongodb error:", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())

	cat := catalog.New(cfg.SchemaPath)
	if err := cat.Load(); err != nil {
		logger.Error("nl2mongo: catalog load failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}

	provider := llm.NewProvider(llm.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAIHTTPTimeout,
	})
	logger.Info("nl2mongo: llm provider ready", "provider", provider.Name())

	queryCfg := query.Config{
		MaxPipelineStages: cfg.MaxPipelineStages,
		MaxQueryDepth:     cfg.MaxQueryDepth,
		ResultLimit:       cfg.ResultLimit,
	}
	deps := api.Dependencies{
		Backend:   st,
		Catalog:   cat,
		Generator: schema.NewGenerator(st, st, schema.Config{SampleSize: cfg.SampleSize}),
		Converter: query.NewGenerator(provider, query.NewPromptBuilder()),
		Validator: query.NewValidator(queryCfg),
		Executor:  query.NewExecutor(st, queryCfg),
		Provider:  provider,
	}
	if trimmed := strings.TrimSpace(cfg.HistoryPath); trimmed != "" {
		hist, err := history.Open(trimmed)
		if err != nil {
			logger.Error("nl2mongo: history store unavailable", "path", trimmed, "error", err)
			fmt.Println("history error:", err)
			os.Exit(1)
		}
		defer hist.Close()
		deps.History = hist
	} else {
		logger.Info("nl2mongo: history disabled")
	}

	apiCfg := api.DefaultConfig()
	apiCfg.SampleSize = cfg.SampleSize
	server, err := api.NewServer(deps, &apiCfg)
	if err != nil {
		logger.Error("nl2mongo: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	httpServer := &http.Server{Addr: cfg.ServerAddr, Handler: server}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("nl2mongo: server listening", "addr", cfg.ServerAddr, "health", "/healthz")
		fmt.Printf("Serving on %s\n", cfg.ServerAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("nl2mongo: shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("nl2mongo: shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("nl2mongo: server stopped", "error", err)
			fmt.Println("server stopped:", err)
			os.Exit(1)
		}
	}
}

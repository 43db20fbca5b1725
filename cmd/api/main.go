// Package main implements the context-graph API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/contextgraph/context-graph/engine/api"
	"github.com/contextgraph/context-graph/engine/chunk"
	"github.com/contextgraph/context-graph/engine/document"
	"github.com/contextgraph/context-graph/engine/embed"
	"github.com/contextgraph/context-graph/engine/extract"
	"github.com/contextgraph/context-graph/engine/graph"
	"github.com/contextgraph/context-graph/engine/ingest"
	"github.com/contextgraph/context-graph/engine/project"
	"github.com/contextgraph/context-graph/engine/search"
	"github.com/contextgraph/context-graph/engine/semantic"
	"github.com/contextgraph/context-graph/engine/snapshot"
	"github.com/contextgraph/context-graph/pkg/metrics"
	"github.com/contextgraph/context-graph/pkg/mid"
	"github.com/contextgraph/context-graph/pkg/pg"
	"github.com/contextgraph/context-graph/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	PostgresHost    string
	PostgresPort    string
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	QdrantURL       string
	AnthropicKey    string
	OpenAIKey       string
	ExtractionModel string
	EmbeddingModel  string
	EmbeddingDims   int
	ChunkSize       int
	ChunkOverlap    int
	JWTSecret       string
	NATSURL         string
	CORSOrigin      string
}

func loadConfig() Config {
	return Config{
		Port:            envOr("PORT", "8000"),
		PostgresHost:    envOr("POSTGRES_HOST", "localhost"),
		PostgresPort:    envOr("POSTGRES_PORT", "5432"),
		PostgresUser:    envOr("POSTGRES_USER", "postgres"),
		PostgresPass:    envOr("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:      envOr("POSTGRES_DB", "knowledge_graph"),
		QdrantURL:       envOr("QDRANT_URL", "localhost:6334"),
		AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		ExtractionModel: envOr("EXTRACTION_MODEL", "claude-sonnet-4-20250514"),
		EmbeddingModel:  envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDims:   envIntOr("EMBEDDING_DIMENSIONS", 1536),
		ChunkSize:       envIntOr("CHUNK_SIZE", chunk.DefaultSize),
		ChunkOverlap:    envIntOr("CHUNK_OVERLAP", chunk.DefaultOverlap),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		NATSURL:         os.Getenv("NATS_URL"),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func (c Config) postgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Postgres (AGE) ---
	db, err := pg.Connect(ctx, cfg.postgresDSN(), logger)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.EmbeddingDims, logger)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Optional NATS ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("context-graph-api"))
		if err != nil {
			logger.Warn("nats connect failed, events disabled", "err", err)
		} else {
			defer nc.Drain()
		}
	}

	// --- Build engines ---
	chunker, err := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	embedSvc := embed.New(cfg.OpenAIKey, cfg.EmbeddingModel, cfg.EmbeddingDims,
		resilience.NewLimiter(5, 10), logger)
	extractSvc := extract.New(cfg.AnthropicKey, cfg.ExtractionModel,
		resilience.NewBreaker(5, 30*time.Second), logger)
	graphSvc := graph.New(db, logger)

	registry := metrics.NewRegistry()

	snapshotSvc := snapshot.New(db, graphSvc, logger)
	if err := snapshotSvc.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure snapshot table: %w", err)
	}

	projectSvc := project.New(db, graphSvc, vectorStore, logger)
	documentSvc := document.New(db, vectorStore, logger)
	ingestSvc := ingest.New(db, vectorStore, embedSvc, extractSvc, graphSvc,
		chunker, nc, registry, logger)
	searchSvc := search.New(db, vectorStore, embedSvc, registry, logger)

	server := api.New(projectSvc, documentSvc, ingestSvc, graphSvc, searchSvc,
		snapshotSvc, registry, cfg.JWTSecret, logger)

	handler := mid.Chain(server.Routes(),
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("context-graph"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port,
			"extraction", extractSvc.Configured(), "embeddings", embedSvc.Configured())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github/itish2003/finrag/config"
	"github/itish2003/finrag/controller"
	"github/itish2003/finrag/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("FATAL: invalid configuration")
	}
	setupLogger(cfg.Log)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := services.InitTracer(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("FATAL: failed to start tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	embedder, err := services.NewEmbedder(cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("FATAL: failed to create embedder")
	}

	var builder services.IndexBuilder
	switch cfg.Index.Backend {
	case config.BackendChroma:
		chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.Index.ChromaURL))
		if err != nil {
			log.Fatal().Err(err).Msg("FATAL: failed to create chroma client")
		}
		// Ensure we close the client to release its resources
		defer func() {
			if err := chromaClient.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close chroma client")
			}
		}()
		builder = services.NewChromaIndexBuilder(chromaClient, embedder, cfg.Embedding.Timeout)
		log.Info().Str("url", cfg.Index.ChromaURL).Msg("Using chroma index backend")
	default:
		builder = services.NewMemoryIndexBuilder(embedder, cfg.Embedding.Timeout)
		log.Info().Msg("Using in-memory index backend")
	}

	llm, err := services.NewLLM(ctx, cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("FATAL: failed to create LLM client")
	}
	log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("Language model ready")

	ragService := services.NewRAGService(services.Dependencies{
		Session:   services.NewSession(),
		Extractor: services.NewTextExtractor(cfg.UnidocLicenseKey),
		Chunker:   services.NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
		Builder:   builder,
		LLM:       llm,
		TopK:      cfg.Index.TopK,
	})

	if cfg.InboxDir != "" {
		files, err := services.NewInboxFiles(cfg.InboxDir)
		if err != nil {
			log.Fatal().Err(err).Msg("FATAL: failed to prepare inbox")
		}
		watcher := services.NewInboxWatcher(files, ragService)
		go watcher.Run(ctx)
	}

	router := controller.SetupRouter(controller.RouterConfig{
		RAG:         controller.NewRAGController(ragService, cfg.Server.MaxUploadBytes),
		Quiz:        controller.NewQuizController(ragService),
		CORSOrigins: cfg.Server.CORSOrigins,
		ServiceName: cfg.Telemetry.ServiceName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Go Gin backend server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("FATAL: failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

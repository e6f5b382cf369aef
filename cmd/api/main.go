package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moviegrounds/backend/internal/adapters/cache"
	"github.com/moviegrounds/backend/internal/adapters/database"
	"github.com/moviegrounds/backend/internal/api/handlers"
	"github.com/moviegrounds/backend/internal/api/routes"
	"github.com/moviegrounds/backend/internal/application/services"
	"github.com/moviegrounds/backend/internal/infrastructure/clients/ollama"
	"github.com/moviegrounds/backend/internal/infrastructure/clients/sqlite"
	"github.com/moviegrounds/backend/internal/infrastructure/observability"
	"github.com/moviegrounds/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	moviesClient, err := sqlite.NewClient(cfg.Database.MoviesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open movies database")
	}
	defer moviesClient.Close()

	ratingsClient, err := sqlite.NewClient(cfg.Database.RatingsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open ratings database")
	}
	defer ratingsClient.Close()

	movieAdapter, err := database.NewMovieAdapter(ctx, moviesClient, ratingsClient, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize movie adapter")
	}
	defer movieAdapter.Close()

	llmClient, err := ollama.NewClient(&cfg.Ollama)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize ollama client")
	}

	corpusCache := cache.NewCorpusFileCache(cfg.Enrichment.CachePath)

	enrichment := services.NewEnrichmentService(
		movieAdapter,
		llmClient,
		corpusCache,
		cfg.Enrichment.FetchLimit,
		func(p services.ProgressUpdate) {
			logger.Info().
				Int("processed", p.Processed).
				Int("total", p.Total).
				Str("title", p.Title).
				Dur("elapsed", p.Elapsed).
				Dur("eta", p.Remaining).
				Msg("enrichment progress")
		},
	)

	// The corpus and index must be ready before any turn is served; a
	// failure here is fatal rather than degraded.
	corpus, err := enrichment.LoadOrBuildCorpus(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load or build enriched corpus")
	}

	index := services.NewVectorIndexService(llmClient)
	if err := index.Build(ctx, corpus); err != nil {
		logger.Fatal().Err(err).Msg("failed to build similarity index")
	}
	logger.Info().Int("documents", index.Len()).Msg("similarity index built")

	conversations := services.NewConversationService()
	chatService := services.NewChatService(conversations, llmClient, index, movieAdapter)

	chatHandler := handlers.NewChatHandler(chatService)
	movieHandler := handlers.NewMovieHandler(movieAdapter)
	statusHandler := handlers.NewEnrichmentStatusHandler(len(corpus), index.Len())

	router := routes.NewRouter(chatHandler, movieHandler, statusHandler, metrics)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}

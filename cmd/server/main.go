package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yishak-cs/basket-recommender/internal/handlers"
	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/metrics"
	"github.com/yishak-cs/basket-recommender/internal/services"
	"github.com/yishak-cs/basket-recommender/internal/storage"
	"github.com/yishak-cs/basket-recommender/pkg/helper"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logging.Warn().Err(err).Msg("Error loading .env file")
	}

	cfg, err := helper.LoadAppConfigFromEnv()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	met := metrics.New(reg)

	neo4jClient, err := helper.OpenNeo4j(context.Background(), cfg.Neo4j, cfg.DataSource == helper.DataSourceNeo4j)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to Neo4j")
	}
	if neo4jClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := neo4jClient.Close(ctx); err != nil {
				logging.Error().Err(err).Msg("Error closing Neo4j connection")
			}
		}()
	}

	// Model strategies
	store := storage.NewStore(cfg.ModelPath)
	var saveTo *storage.Store
	if cfg.SaveOnBuild {
		saveTo = store
	}
	build := services.NewBuildSource(cfg.DataSource, helper.DatasetLoader(cfg, neo4jClient), saveTo)

	var startup services.ModelSource = services.NewSnapshotSource(store)
	if cfg.ModelSource == helper.ModelSourceBuild {
		startup = build
	}

	// Load the model before accepting traffic
	holder := services.NewModelHolder(met)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if _, err := holder.Reload(ctx, startup); err != nil {
		cancel()
		logging.Fatal().Err(err).Str("source", startup.Name()).Msg("Failed to load model")
	}
	cancel()

	// Initialize services
	recommendationService := services.NewRecommendationService(holder, met)

	opts := handlers.Options{
		DefaultTopN:       cfg.DefaultTopN,
		DefaultPriceRange: cfg.DefaultPriceRange,
		CORSOrigin:        cfg.CORSOrigin,
		Metrics:           met,
	}
	if cfg.EnableRebuild {
		opts.Rebuild = build
	}
	if neo4jClient != nil {
		opts.Dependency = neo4jClient
	}
	apiHandler := handlers.NewAPIHandler(recommendationService, holder, opts)

	// Setup Gin router
	router := gin.Default()
	apiHandler.SetupRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Str("model_source", startup.Name()).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("Shutting down server...")

	// Gracefully shutdown with a timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	logging.Info().Msg("Server exited properly")
}

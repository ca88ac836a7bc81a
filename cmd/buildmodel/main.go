// Command buildmodel builds the association model from the configured
// dataset and saves it as a snapshot for the server to load. With
// NEO4J_SYNC set it also writes the co-occurrence counts back to the graph.
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/yishak-cs/basket-recommender/internal/database"
	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/services"
	"github.com/yishak-cs/basket-recommender/internal/storage"
	"github.com/yishak-cs/basket-recommender/pkg/helper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Warn().Err(err).Msg("Error loading .env file")
	}

	cfg, err := helper.LoadAppConfigFromEnv()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	neo4jClient, err := helper.OpenNeo4j(ctx, cfg.Neo4j, cfg.UsesNeo4j())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to Neo4j")
	}
	if neo4jClient != nil {
		defer neo4jClient.Close(context.Background())
	}

	store := storage.NewStore(cfg.ModelPath)
	src := services.NewBuildSource(cfg.DataSource, helper.DatasetLoader(cfg, neo4jClient), store)

	start := time.Now()
	m, err := src.LoadModel(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Model build failed")
	}

	status := m.Status()
	logging.Info().
		Int("products", status.Products).
		Int("pairs", status.Pairs).
		Int("transactions", status.Transactions).
		Int("categories", status.Categories).
		Dur("took", time.Since(start)).
		Str("path", store.Path()).
		Msg("Model built")

	if !cfg.Neo4jSync {
		return
	}

	sync := database.NewCoOccurrenceSync(neo4jClient)
	if _, err := sync.Sync(ctx, m); err != nil {
		logging.Fatal().Err(err).Msg("Failed to sync co-occurrence to Neo4j")
	}
	graph, err := sync.Status(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to read graph status")
		return
	}
	logging.Info().
		Int("orders", graph.Orders).
		Int("items", graph.Items).
		Int("ordered_along_with", graph.OrderedAlongWith).
		Msg("Graph status")
}

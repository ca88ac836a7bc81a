package helper

import (
	"context"

	database "github.com/yishak-cs/basket-recommender/internal/database"
	"github.com/yishak-cs/basket-recommender/internal/ingest"
)

// DatasetLoader returns the loader for the configured data source. client
// is only used, and must be non-nil, when DATA_SOURCE is neo4j.
func DatasetLoader(cfg AppConfig, client *database.Neo4jClient) ingest.Loader {
	if cfg.DataSource == DataSourceNeo4j {
		return database.NewGraphLoader(client)
	}
	return ingest.NewFileLoader(cfg.SalesPath, cfg.CategoriesPath)
}

// OpenNeo4j connects to the graph store when needed and returns nil otherwise
func OpenNeo4j(ctx context.Context, cfg database.Config, needed bool) (*database.Neo4jClient, error) {
	if !needed {
		return nil, nil
	}
	return database.NewNeo4jClient(ctx, cfg)
}

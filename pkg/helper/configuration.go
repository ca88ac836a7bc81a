package helper

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	database "github.com/yishak-cs/basket-recommender/internal/database"
)

// Model and data source strategies
const (
	ModelSourceSnapshot = "snapshot"
	ModelSourceBuild    = "build"
	DataSourceFiles     = "files"
	DataSourceNeo4j     = "neo4j"
)

// AppConfig is everything both commands read from the environment
type AppConfig struct {
	Port       string `validate:"required,numeric"`
	CORSOrigin string `validate:"required"`

	ModelSource    string `validate:"oneof=snapshot build"`
	ModelPath      string `validate:"required"`
	DataSource     string `validate:"oneof=files neo4j"`
	SalesPath      string `validate:"required_if=DataSource files"`
	CategoriesPath string `validate:"required_if=DataSource files"`
	SaveOnBuild    bool
	EnableRebuild  bool

	DefaultTopN       int     `validate:"gte=0,lte=100"`
	DefaultPriceRange float64 `validate:"gte=0"`

	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal disabled off"`
	LogFormat string `validate:"oneof=json console"`

	Neo4j     database.Config
	Neo4jSync bool
}

// UsesNeo4j reports whether the graph store must be reachable
func (c AppConfig) UsesNeo4j() bool {
	return c.DataSource == DataSourceNeo4j || c.Neo4jSync
}

// LoadConfigFromEnv loads Neo4j configuration from environment variables
func LoadConfigFromEnv() database.Config {
	return database.Config{
		URI:      getEnvOrDefault("NEO4J_URI", ""),
		Username: getEnvOrDefault("NEO4J_USERNAME", "neo4j"),
		Password: getEnvOrDefault("NEO4J_PASSWORD", ""),
		Database: getEnvOrDefault("NEO4J_DATABASE", "neo4j"),
	}
}

// LoadAppConfigFromEnv reads and validates the application configuration
func LoadAppConfigFromEnv() (AppConfig, error) {
	var errs []string

	cfg := AppConfig{
		Port:           getEnvOrDefault("APP_PORT", "8080"),
		CORSOrigin:     getEnvOrDefault("CORS_ORIGIN", "http://localhost:5173"),
		ModelSource:    strings.ToLower(getEnvOrDefault("MODEL_SOURCE", ModelSourceSnapshot)),
		ModelPath:      getEnvOrDefault("MODEL_PATH", "model.json.gz"),
		DataSource:     strings.ToLower(getEnvOrDefault("DATA_SOURCE", DataSourceFiles)),
		SalesPath:      getEnvOrDefault("SALES_PATH", "SALE DATA.csv"),
		CategoriesPath: getEnvOrDefault("CATEGORIES_PATH", "CATEGORIES DATA.xlsx"),
		SaveOnBuild:    getEnvBool("SAVE_ON_BUILD", false, &errs),
		EnableRebuild:  getEnvBool("ENABLE_REBUILD", false, &errs),

		DefaultTopN:       getEnvInt("DEFAULT_TOP_N", 5, &errs),
		DefaultPriceRange: getEnvFloat("DEFAULT_PRICE_RANGE", 0.2, &errs),

		LogLevel:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),

		Neo4j:     LoadConfigFromEnv(),
		Neo4jSync: getEnvBool("NEO4J_SYNC", false, &errs),
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.UsesNeo4j() && cfg.Neo4j.URI == "" {
		return cfg, fmt.Errorf("invalid configuration: NEO4J_URI is required when DATA_SOURCE=neo4j or NEO4J_SYNC is set")
	}
	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool, errs *[]string) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s=%q is not a boolean", key, value))
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int, errs *[]string) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s=%q is not an integer", key, value))
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, errs *[]string) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s=%q is not a number", key, value))
		return defaultValue
	}
	return f
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/metrics"
	"github.com/yishak-cs/basket-recommender/internal/services"
)

// HealthChecker is a dependency checked by GET /api/health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options tune the handler beyond its services
type Options struct {
	DefaultTopN       int
	DefaultPriceRange float64
	// CORSOrigin is the single origin allowed to call /api; "*" allows any
	CORSOrigin string
	// Rebuild enables POST /api/model/rebuild when set
	Rebuild services.ModelSource
	// Dependency, when set, must be healthy for /api/health to report ok
	Dependency HealthChecker
	// Metrics records rejected requests; may be nil
	Metrics *metrics.Metrics
}

// APIHandler handles all API requests
type APIHandler struct {
	recommendationService *services.RecommendationService
	models                *services.ModelHolder
	opts                  Options
	log                   zerolog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(recommendationService *services.RecommendationService, holder *services.ModelHolder, opts Options) *APIHandler {
	return &APIHandler{
		recommendationService: recommendationService,
		models:                holder,
		opts:                  opts,
		log:                   logging.With().Str("component", "api").Logger(),
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes(router *gin.Engine) {
	// global so preflight requests reach it without a matching route
	router.Use(CORS(h.opts.CORSOrigin))

	api := router.Group("/api")
	{
		api.GET("/recommend", h.GetRecommendations)
		api.GET("/health", h.GetHealth)
		api.GET("/model", h.GetModelStatus)
		if h.opts.Rebuild != nil {
			api.POST("/model/rebuild", h.RebuildModel)
		}
	}
}

type recommendQuery struct {
	Product    string   `form:"product"`
	TopN       *int     `form:"topN" binding:"omitempty,gte=0,lte=100"`
	PriceRange *float64 `form:"priceRange" binding:"omitempty,gte=0"`
}

// GetRecommendations handles GET /api/recommend?product=&topN=&priceRange=
func (h *APIHandler) GetRecommendations(c *gin.Context) {
	var q recommendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.opts.Metrics.ObserveRequest(metrics.OutcomeInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}
	if q.Product == "" {
		h.opts.Metrics.ObserveRequest(metrics.OutcomeInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product name is required"})
		return
	}

	topN := h.opts.DefaultTopN
	if q.TopN != nil {
		topN = *q.TopN
	}
	priceRange := h.opts.DefaultPriceRange
	if q.PriceRange != nil {
		priceRange = *q.PriceRange
	}

	recommendations, err := h.recommendationService.Recommend(q.Product, topN, priceRange)
	if err != nil {
		if errors.Is(err, services.ErrNoModel) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded"})
			return
		}
		h.log.Error().Err(err).Str("product", q.Product).Msg("Error getting recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}

// GetHealth reports whether a model is being served and the configured
// dependency answers
func (h *APIHandler) GetHealth(c *gin.Context) {
	if h.models.Current() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "Model not loaded"})
		return
	}
	if h.opts.Dependency != nil {
		if err := h.opts.Dependency.Health(c.Request.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Dependency health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "Dependency unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetModelStatus describes the served model
func (h *APIHandler) GetModelStatus(c *gin.Context) {
	m := h.models.Current()
	if m == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded"})
		return
	}
	c.JSON(http.StatusOK, m.Status())
}

// RebuildModel reloads the model from the configured source and swaps it in
func (h *APIHandler) RebuildModel(c *gin.Context) {
	m, err := h.models.Reload(c.Request.Context(), h.opts.Rebuild)
	if err != nil {
		h.log.Error().Err(err).Str("source", h.opts.Rebuild.Name()).Msg("Model rebuild failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rebuild model"})
		return
	}
	c.JSON(http.StatusOK, m.Status())
}

// CORS allows cross-origin calls to /api from origin only
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}

		requested := c.GetHeader("Origin")
		if requested != "" && (origin == "*" || requested == origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", requested)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

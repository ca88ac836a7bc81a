package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yishak-cs/basket-recommender/internal/association"
	"github.com/yishak-cs/basket-recommender/internal/metrics"
	"github.com/yishak-cs/basket-recommender/internal/models"
	"github.com/yishak-cs/basket-recommender/internal/services"
)

const origin = "http://localhost:5173"

type stubSource struct {
	model *association.Model
	err   error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) LoadModel(ctx context.Context) (*association.Model, error) {
	return s.model, s.err
}

func exampleModel() *association.Model {
	return association.Build([]models.SaleRow{
		{TransactionID: "T1", Product: "milk", Price: 3},
		{TransactionID: "T1", Product: "bread", Price: 2},
		{TransactionID: "T2", Product: "milk", Price: 3},
		{TransactionID: "T2", Product: "bread", Price: 2},
		{TransactionID: "T3", Product: "milk", Price: 3},
		{TransactionID: "T3", Product: "eggs", Price: 4},
	}, []models.CategoryRow{
		{Item: "milk", Category: "dairy"},
		{Item: "bread", Category: "bakery"},
		{Item: "eggs", Category: "dairy"},
	})
}

type stubDependency struct{ err error }

func (s stubDependency) Health(ctx context.Context) error { return s.err }

func newRouter(m *association.Model, rebuild services.ModelSource) (*gin.Engine, *services.ModelHolder) {
	return newRouterWith(m, Options{Rebuild: rebuild})
}

func newRouterWith(m *association.Model, opts Options) (*gin.Engine, *services.ModelHolder) {
	gin.SetMode(gin.TestMode)
	holder := services.NewModelHolder(opts.Metrics)
	if m != nil {
		holder.Swap(m)
	}
	opts.DefaultTopN = services.DefaultTopN
	opts.DefaultPriceRange = services.DefaultPriceRange
	opts.CORSOrigin = origin
	h := NewAPIHandler(services.NewRecommendationService(holder, opts.Metrics), holder, opts)
	router := gin.New()
	h.SetupRoutes(router)
	return router, holder
}

func serve(router *gin.Engine, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}

func TestGetRecommendations(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	w := serve(router, http.MethodGet, "/api/recommend?product=Milk&topN=2&priceRange=0.5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var body struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	decode(t, w, &body)
	want := []models.Recommendation{
		{Product: "eggs", Category: "dairy", AvgPrice: 4, Frequency: 1},
		{Product: "bread", Category: "bakery", AvgPrice: 2, Frequency: 2},
	}
	if len(body.Recommendations) != len(want) {
		t.Fatalf("got %+v, want %+v", body.Recommendations, want)
	}
	for i := range want {
		if body.Recommendations[i] != want[i] {
			t.Errorf("position %d = %+v, want %+v", i, body.Recommendations[i], want[i])
		}
	}
}

func TestGetRecommendations_Defaults(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	// the default band of 20% around 3.0 excludes both partners, so only
	// the category tier contributes
	w := serve(router, http.MethodGet, "/api/recommend?product=milk", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string][]map[string]interface{}
	decode(t, w, &body)
	if recs := body["recommendations"]; len(recs) != 1 || recs[0]["product"] != "eggs" {
		t.Errorf("got %v", body)
	}
}

func TestGetRecommendations_UnknownProduct(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	w := serve(router, http.MethodGet, "/api/recommend?product=nonexistent-item", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Body.String(); got != `{"recommendations":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestGetRecommendations_BadRequests(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"missing product", "/api/recommend", "Product name is required"},
		{"empty product", "/api/recommend?product=", "Product name is required"},
		{"non-numeric topN", "/api/recommend?product=milk&topN=lots", "Invalid query parameters"},
		{"negative topN", "/api/recommend?product=milk&topN=-1", "Invalid query parameters"},
		{"huge topN", "/api/recommend?product=milk&topN=1000", "Invalid query parameters"},
		{"negative priceRange", "/api/recommend?product=milk&priceRange=-0.2", "Invalid query parameters"},
		{"non-numeric priceRange", "/api/recommend?product=milk&priceRange=wide", "Invalid query parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var body map[string]interface{}
			decode(t, w, &body)
			if body["error"] != tt.want {
				t.Errorf("error = %v, want %q", body["error"], tt.want)
			}
		})
	}
}

func TestGetRecommendations_TopNZero(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	w := serve(router, http.MethodGet, "/api/recommend?product=milk&topN=0", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"recommendations":[]}` {
		t.Errorf("status = %d, body = %s", w.Code, w.Body)
	}
}

func TestNoModel(t *testing.T) {
	router, _ := newRouter(nil, nil)

	for _, target := range []string{"/api/recommend?product=milk", "/api/health", "/api/model"} {
		if w := serve(router, http.MethodGet, target, nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", target, w.Code)
		}
	}
}

func TestHealthAndStatus(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	if w := serve(router, http.MethodGet, "/api/health", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	w := serve(router, http.MethodGet, "/api/model", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("model status = %d", w.Code)
	}
	var status models.ModelStatus
	decode(t, w, &status)
	if status.Products != 3 || status.Pairs != 2 || status.Transactions != 6 || status.Categories != 2 {
		t.Errorf("status = %+v", status)
	}
}

func TestRebuildModel(t *testing.T) {
	bigger := association.Build([]models.SaleRow{
		{TransactionID: "1", Product: "tea", Price: 1},
		{TransactionID: "1", Product: "sugar", Price: 1},
		{TransactionID: "1", Product: "lemon", Price: 1},
	}, nil)

	router, holder := newRouter(exampleModel(), stubSource{model: bigger})

	w := serve(router, http.MethodPost, "/api/model/rebuild", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if holder.Current() != bigger {
		t.Error("rebuilt model not served")
	}
	var status models.ModelStatus
	decode(t, w, &status)
	if status.Pairs != 3 {
		t.Errorf("status = %+v", status)
	}
}

func TestRebuildModel_Failure(t *testing.T) {
	served := exampleModel()
	router, holder := newRouter(served, stubSource{err: errors.New("dataset missing")})

	if w := serve(router, http.MethodPost, "/api/model/rebuild", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if holder.Current() != served {
		t.Error("failed rebuild replaced the served model")
	}
}

func TestRebuildModel_Disabled(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	if w := serve(router, http.MethodPost, "/api/model/rebuild", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCORS(t *testing.T) {
	router, _ := newRouter(exampleModel(), nil)

	w := serve(router, http.MethodGet, "/api/recommend?product=milk", map[string]string{"Origin": origin})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
		t.Errorf("allowed origin = %q, want %q", got, origin)
	}

	w = serve(router, http.MethodGet, "/api/recommend?product=milk", map[string]string{"Origin": "http://evil.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}

	w = serve(router, http.MethodOptions, "/api/recommend", map[string]string{"Origin": origin})
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight missing allowed methods")
	}
}

func TestRequestOutcomeMetrics(t *testing.T) {
	met := metrics.New(prometheus.NewRegistry())
	router, _ := newRouterWith(exampleModel(), Options{Metrics: met})

	for _, target := range []string{
		"/api/recommend",
		"/api/recommend?product=milk&topN=lots",
		"/api/recommend?product=milk&priceRange=-1",
		"/api/recommend?product=milk",
	} {
		serve(router, http.MethodGet, target, nil)
	}

	if got := testutil.ToFloat64(met.Requests.WithLabelValues(metrics.OutcomeInvalid)); got != 3 {
		t.Errorf("invalid requests = %v, want 3", got)
	}
	if got := testutil.ToFloat64(met.Requests.WithLabelValues(metrics.OutcomeHit)); got != 1 {
		t.Errorf("hit requests = %v, want 1", got)
	}
}

func TestHealth_Dependency(t *testing.T) {
	healthy, _ := newRouterWith(exampleModel(), Options{Dependency: stubDependency{}})
	if w := serve(healthy, http.MethodGet, "/api/health", nil); w.Code != http.StatusOK {
		t.Errorf("healthy dependency status = %d, want 200", w.Code)
	}

	down, _ := newRouterWith(exampleModel(), Options{Dependency: stubDependency{err: errors.New("no route to host")}})
	w := serve(down, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing dependency status = %d, want 503", w.Code)
	}
	var body map[string]interface{}
	decode(t, w, &body)
	if body["status"] != "unavailable" {
		t.Errorf("body = %v", body)
	}
}

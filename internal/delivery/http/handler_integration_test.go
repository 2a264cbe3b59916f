package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartshop/backend/config"
	"github.com/smartshop/backend/internal/domain"
	"github.com/smartshop/backend/internal/infrastructure/cache"
	"github.com/smartshop/backend/internal/infrastructure/store"
	"github.com/smartshop/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubAdvisor implements domain.PriceAdvisor for testing
type stubAdvisor struct {
	offers     map[string][]domain.StoreOffer
	receipt    []string
	suggestion domain.ListSuggestion
	err        error
}

func (s *stubAdvisor) FetchItemPrices(ctx context.Context, itemName string, loc domain.Location) ([]domain.StoreOffer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.offers[itemName], nil
}

func (s *stubAdvisor) CompareList(ctx context.Context, itemNames []string, loc domain.Location) ([]domain.StoreOffer, error) {
	return nil, s.err
}

func (s *stubAdvisor) ParseReceipt(ctx context.Context, base64PDF string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.receipt, nil
}

func (s *stubAdvisor) SuggestListName(ctx context.Context, itemNames []string) (domain.ListSuggestion, error) {
	return s.suggestion, nil
}

func lisbonOffers() map[string][]domain.StoreOffer {
	return map[string][]domain.StoreOffer{
		"Leite": {
			{ID: "pingo-doce", Name: "Pingo Doce", Lat: 38.73, Lng: -9.14,
				Product: &domain.OfferProduct{Name: "Leite Meio Gordo", Price: 0.79, Unit: "1L", Category: "Laticínios"}},
			{ID: "continente", Name: "Continente", Lat: 38.80, Lng: -9.14,
				Product: &domain.OfferProduct{Name: "Leite Mimosa", Price: 0.89, Unit: "1L", Category: "Laticínios"}},
		},
		"Pão": {
			{ID: "continente", Name: "Continente", Lat: 38.80, Lng: -9.14,
				Product: &domain.OfferProduct{Name: "Pão de Forma", Price: 1.29, Unit: "un", Category: "Padaria"}},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"capacitor://*", "http://localhost:3000"},
		},
	}
}

// setupTestRouter wires a real shopping service over a file store and memory cache
func setupTestRouter(t *testing.T, advisor *stubAdvisor) (*gin.Engine, *usecase.ShoppingService) {
	t.Helper()

	slots, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	offerCache := cache.NewMemoryCache(time.Minute)
	t.Cleanup(offerCache.Close)

	optimizer := usecase.NewOptimizationService(advisor, offerCache, usecase.OptimizerConfig{ChunkDelay: time.Millisecond})
	hub := NewProgressHub()
	t.Cleanup(func() { _ = hub.Close() })

	shopping := usecase.NewShoppingService(context.Background(), slots, advisor, optimizer, usecase.ShoppingServiceConfig{
		OnRunEvent: hub.Publish,
	})

	return SetupRouter(testConfig(), NewHandler(shopping, "test"), hub), shopping
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthCheckEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, &stubAdvisor{})

	t.Run("returns healthy status", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "smartshop-backend", body["service"])
		assert.Equal(t, "test", body["version"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			w := doJSON(router, method, "/health", "")
			assert.Equal(t, http.StatusNotFound, w.Code, method)
		}
	})
}

func TestItemEndpoints(t *testing.T) {
	router, shopping := setupTestRouter(t, &stubAdvisor{})

	w := doJSON(router, http.MethodPost, "/api/v1/items", `{"name":"  Leite "}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)
	assert.Equal(t, "Leite", created["name"])
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	w = doJSON(router, http.MethodPost, "/api/v1/items", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/items", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["items"], 1)

	w = doJSON(router, http.MethodDelete, "/api/v1/items/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/v1/items/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, shopping.Items())

	w = doJSON(router, http.MethodPost, "/api/v1/items/basket", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, shopping.Items(), len(domain.BasicBasket))

	w = doJSON(router, http.MethodDelete, "/api/v1/items", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, shopping.Items())
}

func TestImportReceiptEndpoint(t *testing.T) {
	upload := func(router *gin.Engine, field string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile(field, "receipt.pdf")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/items/receipt", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("appends parsed products", func(t *testing.T) {
		router, shopping := setupTestRouter(t, &stubAdvisor{receipt: []string{"Leite Mimosa 1L", "Café Delta 250g"}})

		w := upload(router, "file", []byte("%PDF-1.4"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"Leite Mimosa 1L", "Café Delta 250g"}, domain.ItemNames(shopping.Items()))
	})

	t.Run("missing file field", func(t *testing.T) {
		router, _ := setupTestRouter(t, &stubAdvisor{})
		w := upload(router, "document", []byte("%PDF-1.4"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("advisor failure is a bad gateway", func(t *testing.T) {
		router, _ := setupTestRouter(t, &stubAdvisor{err: domain.ErrAdvisorFailure})
		w := upload(router, "file", []byte("%PDF-1.4"))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestSavedListEndpoints(t *testing.T) {
	advisor := &stubAdvisor{suggestion: domain.ListSuggestion{Name: "Pequeno Almoço", Icon: domain.IconCoffee}}
	router, shopping := setupTestRouter(t, advisor)

	w := doJSON(router, http.MethodPost, "/api/v1/lists/suggestion", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty list has nothing to name")

	w = doJSON(router, http.MethodPost, "/api/v1/lists", `{"name":"Vazia"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty list cannot be saved")

	_, err := shopping.AddItem(context.Background(), "Café")
	require.NoError(t, err)

	w = doJSON(router, http.MethodPost, "/api/v1/lists/suggestion", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pequeno Almoço", decodeBody(t, w)["name"])

	w = doJSON(router, http.MethodPost, "/api/v1/lists", `{"name":"Pequeno Almoço","icon":"Coffee"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	saved := decodeBody(t, w)
	listID, _ := saved["id"].(string)
	require.NotEmpty(t, listID)
	assert.Equal(t, "Coffee", saved["iconName"])

	w = doJSON(router, http.MethodGet, "/api/v1/lists", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["lists"], 1)

	require.NoError(t, shopping.ClearItems(context.Background()))

	w = doJSON(router, http.MethodPost, "/api/v1/lists/"+listID+"/load", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Café"}, domain.ItemNames(shopping.Items()))

	w = doJSON(router, http.MethodPost, "/api/v1/lists/unknown/load", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/v1/lists/"+listID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/v1/lists/"+listID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOptimizeEndpoint(t *testing.T) {
	t.Run("missing location is a precondition failure", func(t *testing.T) {
		router, shopping := setupTestRouter(t, &stubAdvisor{offers: lisbonOffers()})
		_, err := shopping.AddItem(context.Background(), "Leite")
		require.NoError(t, err)

		w := doJSON(router, http.MethodPost, "/api/v1/optimize", `{"latitude":38.72}`)
		assert.Equal(t, http.StatusPreconditionFailed, w.Code)

		w = doJSON(router, http.MethodPost, "/api/v1/optimize", "")
		assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	})

	t.Run("empty list is a bad request", func(t *testing.T) {
		router, _ := setupTestRouter(t, &stubAdvisor{offers: lisbonOffers()})

		w := doJSON(router, http.MethodPost, "/api/v1/optimize", `{"latitude":38.72,"longitude":-9.14}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no stock is not found", func(t *testing.T) {
		router, shopping := setupTestRouter(t, &stubAdvisor{offers: lisbonOffers()})
		_, err := shopping.AddItem(context.Background(), "Caviar")
		require.NoError(t, err)

		w := doJSON(router, http.MethodPost, "/api/v1/optimize", `{"latitude":38.72,"longitude":-9.14}`)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doJSON(router, http.MethodGet, "/api/v1/state", "")
		require.Equal(t, http.StatusOK, w.Code)
		state := decodeBody(t, w)
		assert.Equal(t, domain.ErrNoNearbyStock.Error(), state["lastError"])
		assert.Equal(t, false, state["hasResult"])
	})

	t.Run("prices the list and serves ranked results", func(t *testing.T) {
		router, shopping := setupTestRouter(t, &stubAdvisor{offers: lisbonOffers()})
		for _, name := range []string{"Leite", "Pão"} {
			_, err := shopping.AddItem(context.Background(), name)
			require.NoError(t, err)
		}

		w := doJSON(router, http.MethodGet, "/api/v1/results", "")
		assert.Equal(t, http.StatusNotFound, w.Code, "no result before the first run")

		w = doJSON(router, http.MethodPost, "/api/v1/optimize", `{"latitude":38.7223,"longitude":-9.1393}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var optimized struct {
			Result     domain.OptimizationResult `json:"result"`
			Categories []string                  `json:"categories"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &optimized))
		require.Len(t, optimized.Result.Markets, 2)
		assert.Equal(t, []string{usecase.AllCategories, "Laticínios", "Padaria"}, optimized.Categories)

		w = doJSON(router, http.MethodGet, "/api/v1/optimize/progress", "")
		require.Equal(t, http.StatusOK, w.Code)
		progress := decodeBody(t, w)
		assert.Equal(t, float64(2), progress["completed"])
		assert.Equal(t, float64(2), progress["total"])
		assert.Equal(t, false, progress["running"])

		w = doJSON(router, http.MethodGet, "/api/v1/results?maxDistance=5", "")
		require.Equal(t, http.StatusOK, w.Code)
		var view struct {
			Markets []domain.Market `json:"markets"`
			Summary domain.Summary  `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		require.Len(t, view.Markets, 1)
		assert.Equal(t, "pingo-doce", view.Markets[0].ID)
		assert.Equal(t, "€", view.Summary.CurrencySymbol)

		w = doJSON(router, http.MethodGet, "/api/v1/results?maxDistance=0", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Empty(t, view.Markets, "a zero radius is not widened to unlimited")

		w = doJSON(router, http.MethodGet, "/api/v1/results?sort=price", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		require.Len(t, view.Markets, 2)
		assert.Equal(t, "pingo-doce", view.Markets[0].ID)

		w = doJSON(router, http.MethodGet, "/api/v1/results?category=padaria", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		require.Len(t, view.Markets, 1)
		assert.Equal(t, "continente", view.Markets[0].ID)
	})

	t.Run("invalid result query parameters", func(t *testing.T) {
		router, _ := setupTestRouter(t, &stubAdvisor{})

		w := doJSON(router, http.MethodGet, "/api/v1/results?sort=name", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		for _, raw := range []string{"far", "-1", "NaN"} {
			w = doJSON(router, http.MethodGet, "/api/v1/results?maxDistance="+raw, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrEmptyList, http.StatusBadRequest},
		{domain.ErrLocationUnavailable, http.StatusPreconditionFailed},
		{domain.ErrItemNotFound, http.StatusNotFound},
		{domain.ErrNoResult, http.StatusNotFound},
		{domain.ErrNoNearbyStock, http.StatusNotFound},
		{domain.ErrRunInProgress, http.StatusConflict},
		{domain.ErrRateLimited, http.StatusBadGateway},
		{domain.ErrMalformedResponse, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, 499},
		{fmt.Errorf("optimize: %w", context.Canceled), 499},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestCORSIntegration(t *testing.T) {
	router, _ := setupTestRouter(t, &stubAdvisor{})

	t.Run("health endpoint allows capacitor origins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "capacitor://localhost")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "capacitor://localhost", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("api preflight for localhost", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/optimize", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestJSONResponses(t *testing.T) {
	router, _ := setupTestRouter(t, &stubAdvisor{})

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/api/v1/state"},
		{http.MethodGet, "/api/v1/items"},
		{http.MethodGet, "/api/v1/lists"},
		{http.MethodGet, "/api/v1/results"},
		{http.MethodPost, "/api/v1/optimize"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			w := doJSON(router, endpoint.method, endpoint.path, "")
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			decodeBody(t, w)
		})
	}
}

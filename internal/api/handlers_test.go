package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfarias/zoomrank/internal/models"
	"github.com/lfarias/zoomrank/internal/storage"
)

type stubRunSource struct {
	run      *storage.Run
	products []*models.Product
	err      error
}

func (s *stubRunSource) LatestRun(ctx context.Context) (*storage.Run, []*models.Product, error) {
	return s.run, s.products, s.err
}

func (s *stubRunSource) GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, []*models.Product, error) {
	if s.run != nil && s.run.ID == id {
		return s.run, s.products, nil
	}
	return nil, nil, storage.ErrRunNotFound
}

func testRun() (*storage.Run, []*models.Product) {
	score := 0.91
	product := models.NewProduct("Notebook A", 3500, 4.5, "https://www.zoom.com.br/a", "Sem filtro")
	product.OccurrenceCount = 3
	product.Score = &score

	return &storage.Run{
		ID:           uuid.New(),
		Query:        "notebook",
		Filters:      []string{"Sem filtro"},
		ProductCount: 1,
		CreatedAt:    time.Now(),
	}, []*models.Product{product}
}

func TestGetLatestRun(t *testing.T) {
	run, products := testRun()
	router := NewRouter(NewHandlers(&stubRunSource{run: run, products: products}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, run.ID, resp.Run.ID)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Notebook A", resp.Products[0].Name)
	require.NotNil(t, resp.Products[0].Score)
	assert.Equal(t, 0.91, *resp.Products[0].Score)
}

func TestGetLatestRunEmpty(t *testing.T) {
	router := NewRouter(NewHandlers(&stubRunSource{err: storage.ErrRunNotFound}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunByID(t *testing.T) {
	run, products := testRun()
	router := NewRouter(NewHandlers(&stubRunSource{run: run, products: products}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, run.Query, resp.Run.Query)
}

func TestGetRunNotFound(t *testing.T) {
	run, products := testRun()
	router := NewRouter(NewHandlers(&stubRunSource{run: run, products: products}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunInvalidID(t *testing.T) {
	router := NewRouter(NewHandlers(&stubRunSource{}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := NewRouter(NewHandlers(&stubRunSource{}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

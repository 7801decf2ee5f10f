package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beautybot/internal/chat"
	"beautybot/internal/embedding/hashing"
	"beautybot/internal/service"
	"beautybot/internal/vectorstore"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "clean_product_info.csv")
	rows := "product_name,highlights,ingredients,primary_category,skin_type,price_usd,out_of_stock\n" +
		"Hydra Serum,great for dry skin,,Serum,,48.0,0\n"
	require.NoError(t, os.WriteFile(catalogPath, []byte(rows), 0o644))

	retrieval := service.NewRetrievalService(service.Config{
		CleanedCatalogPath: catalogPath,
		RawCatalogPath:     filepath.Join(dir, "product_info.csv"),
	}, hashing.NewEncoder(64), vectorstore.NewCache(filepath.Join(dir, "cache")), nil)
	require.NoError(t, retrieval.Initialize(context.Background()))

	chatService := chat.New(retrieval, nil, chat.Options{}, nil)
	return New(Config{DefaultTopK: 3}, retrieval, chatService, nil).Handler()
}

func TestStatusEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status       string `json:"status"`
		RAGAvailable bool   `json:"rag_available"`
		Products     int    `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.RAGAvailable)
	assert.Equal(t, 1, body.Products)
}

func TestSearchEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=dry+skin+serum&k=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []string `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Contains(t, body.Results[0], "Product Name: Hydra Serum")
}

func TestSearchEndpointValidation(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=serum&k=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointValidation(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":""}`))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("not json"))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointWithoutCompleter(t *testing.T) {
	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	handler.ServeHTTP(rec, req)

	// chat service exists but has no completer: it answers with an apology
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID string `json:"session_id"`
		Reply     string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SessionID)
	assert.NotEmpty(t, body.Reply)
}

func TestReindexEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reindex", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status   string `json:"status"`
		Products int    `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Products)
}

func TestRateLimit(t *testing.T) {
	dir := t.TempDir()
	retrieval := service.NewRetrievalService(service.Config{
		CleanedCatalogPath: filepath.Join(dir, "nope.csv"),
		RawCatalogPath:     filepath.Join(dir, "nope_raw.csv"),
	}, hashing.NewEncoder(64), vectorstore.NewCache(filepath.Join(dir, "cache")), nil)
	handler := New(Config{RateLimit: 1}, retrieval, nil, nil).Handler()

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		codes[rec.Code]++
	}
	assert.Positive(t, codes[http.StatusTooManyRequests])
}

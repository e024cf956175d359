package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diewo77/retail-invoices/httpx"
	"github.com/diewo77/retail-invoices/internal/config"
	"github.com/diewo77/retail-invoices/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, gotenbergURL string) *config.Config {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "billing.db"))
	t.Setenv("RECEIPT_DIR", filepath.Join(t.TempDir(), "receipts"))
	t.Setenv("GOTENBERG_URL", gotenbergURL)
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	conn, err := db.Open(cfg.Database, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.EnsureSchema(context.Background(), conn, logger))
	require.NoError(t, db.Seed(context.Background(), conn, logger))

	app, err := NewApp(conn, cfg, logger)
	require.NoError(t, err)
	return app, &logs
}

func fakeGotenberg(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "up"})
	})
	mux.HandleFunc("POST /forms/chromium/convert/html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 receipt"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAppInvoiceLifecycle(t *testing.T) {
	gotenberg := fakeGotenberg(t)
	cfg := testConfig(t, gotenberg.URL)
	app, logs := newTestApp(t, cfg)
	assert.NotContains(t, logs.String(), "gotenberg unreachable")
	srv := httptest.NewServer(withLogging(slog.New(slog.NewTextHandler(io.Discard, nil)), app))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/invoices", "application/json",
		strings.NewReader(`{"supplier_name":"Acme","items":[{"product_name":"Widget","mrp":100,"discount":10}]}`))
	require.NoError(t, err)
	var created struct {
		ID          uint    `json:"id"`
		TotalAmount float64 `json:"total_amount"`
		PDFPath     string  `json:"pdf_path"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 90.0, created.TotalAmount)
	assert.Equal(t, fmt.Sprintf("Invoice_%d.pdf", created.ID), filepath.Base(created.PDFPath))
	assert.FileExists(t, created.PDFPath)

	resp, err = http.Get(fmt.Sprintf("%s/invoices/%d/pdf", srv.URL, created.ID))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.4 receipt", string(body))

	resp, err = http.Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	var summary struct {
		InvoiceCount int64   `json:"invoice_count"`
		RunningTotal float64 `json:"running_total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	assert.EqualValues(t, 1, summary.InvoiceCount)
	assert.Equal(t, 90.0, summary.RunningTotal)
}

func TestAppWithoutGotenberg(t *testing.T) {
	cfg := testConfig(t, "")
	app, logs := newTestApp(t, cfg)
	assert.Contains(t, logs.String(), "GOTENBERG_URL not set")

	req := httptest.NewRequest(http.MethodPost, "/invoices",
		strings.NewReader(`{"supplier_name":"Acme","items":[{"product_id":1,"discount":0}]}`))
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices/1/pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "receipt_unavailable")

	entries, err := os.ReadDir(cfg.Receipt.Dir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestAppWarnsWhenGotenbergDown(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()

	app, logs := newTestApp(t, testConfig(t, url))
	assert.Contains(t, logs.String(), "gotenberg unreachable")

	// the invoice is still stored without a receipt
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/invoices",
		strings.NewReader(`{"supplier_name":"Acme","items":[{"product_id":1,"discount":0}]}`)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"pdf_path":""`)
}

func TestAppUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t, ""))

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/invoices/1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWithRecover(t *testing.T) {
	var logs bytes.Buffer
	h := withRecover(slog.New(slog.NewTextHandler(&logs, nil)), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "boom")
}

package receipt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakePDF = []byte("%PDF-1.7\nfake receipt\n%%EOF")

func sampleReceipt() Receipt {
	return Receipt{
		InvoiceID: 7,
		Date:      time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC),
		Supplier:  "Acme Pharma",
		Lines: []Line{
			{ProductName: "Eno", SKU: "ENO001", MRP: 60, PTR: 52.17, Discount: 10, FinalPrice: 54},
			{ProductName: "Iodex", SKU: "IOD001", MRP: 180, PTR: 156.52, Discount: 12.5, FinalPrice: 157.5},
		},
		Total: 211.5,
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rd, err := NewRenderer("₹", time.UTC)
	require.NoError(t, err)
	return rd
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRender(t *testing.T) {
	html, err := newTestRenderer(t).Render(sampleReceipt())
	require.NoError(t, err)

	assert.Contains(t, html, "<h2>Invoice #7</h2>")
	assert.Contains(t, html, "Date: 01 Feb 2024")
	assert.Contains(t, html, "Supplier: Acme Pharma")
	assert.Contains(t, html, "<td>1</td><td>Eno</td>")
	assert.Contains(t, html, "<td>2</td><td>Iodex</td>")
	assert.Contains(t, html, "₹54.00")
	assert.Contains(t, html, "12.5%")
	assert.Contains(t, html, "Total: ₹211.50")
}

func TestRenderEscapesText(t *testing.T) {
	r := sampleReceipt()
	r.Supplier = `<script>alert("x")</script>`
	r.Lines[0].ProductName = "Tom & Jerry <b>"

	html, err := newTestRenderer(t).Render(r)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Tom &amp; Jerry &lt;b&gt;")
}

func TestRenderUsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	rd, err := NewRenderer("₹", ist)
	require.NoError(t, err)

	r := sampleReceipt()
	r.Date = time.Date(2024, time.January, 31, 20, 0, 0, 0, time.UTC)
	html, err := rd.Render(r)
	require.NoError(t, err)
	assert.Contains(t, html, "Date: 01 Feb 2024")
}

func newGotenberg(t *testing.T, status int) (*httptest.Server, *string) {
	t.Helper()
	var received string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	mux.HandleFunc("POST /forms/chromium/convert/html", func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		if err != nil || part.FormName() != "files" || part.FileName() != "index.html" {
			http.Error(w, "index.html required", http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(part)
		received = string(b)
		if status >= 400 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(fakePDF)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &received
}

func TestGotenbergClient(t *testing.T) {
	srv, received := newGotenberg(t, http.StatusOK)
	c := NewGotenbergClient(srv.URL+"/", time.Second)

	require.NoError(t, c.Ping(context.Background()))
	pdf, err := c.ConvertHTML(context.Background(), "<html>hi</html>")
	require.NoError(t, err)
	assert.Equal(t, fakePDF, pdf)
	assert.Equal(t, "<html>hi</html>", *received)
}

func TestGotenbergClientErrorStatus(t *testing.T) {
	srv, _ := newGotenberg(t, http.StatusServiceUnavailable)
	c := NewGotenbergClient(srv.URL, time.Second)

	assert.Error(t, c.Ping(context.Background()))
	_, err := c.ConvertHTML(context.Background(), "<html></html>")
	assert.Error(t, err)
}

func TestGotenbergClientRejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>error page</html>"))
	}))
	defer srv.Close()

	_, err := NewGotenbergClient(srv.URL, time.Second).ConvertHTML(context.Background(), "<html></html>")
	assert.Error(t, err)
}

func TestGeneratorWritesReceipt(t *testing.T) {
	srv, received := newGotenberg(t, http.StatusOK)
	dir := filepath.Join(t.TempDir(), "receipts")
	g := NewGenerator(newTestRenderer(t), NewGotenbergClient(srv.URL, time.Second), dir, discardLogger())

	path := g.Generate(context.Background(), sampleReceipt())

	require.NotEmpty(t, path)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "Invoice_7.pdf", filepath.Base(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fakePDF, b)
	assert.Contains(t, *received, "Acme Pharma")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

type failingConverter struct{}

func (failingConverter) ConvertHTML(context.Context, string) ([]byte, error) {
	return nil, errors.New("chromium crashed")
}

func TestGeneratorFailureYieldsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	g := NewGenerator(newTestRenderer(t), failingConverter{}, dir, logger)

	assert.Equal(t, "", g.Generate(context.Background(), sampleReceipt()))
	assert.Contains(t, logs.String(), "pdf generation failed")
	assert.NoFileExists(t, filepath.Join(dir, FileName(7)))
}

func TestGeneratorWithoutConverter(t *testing.T) {
	g := NewGenerator(newTestRenderer(t), nil, t.TempDir(), discardLogger())
	assert.Equal(t, "", g.Generate(context.Background(), sampleReceipt()))
}

func TestGeneratorUnwritableDir(t *testing.T) {
	srv, _ := newGotenberg(t, http.StatusOK)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	g := NewGenerator(newTestRenderer(t), NewGotenbergClient(srv.URL, time.Second), filepath.Join(blocker, "receipts"), discardLogger())
	assert.Equal(t, "", g.Generate(context.Background(), sampleReceipt()))
}

func TestGeneratorFailureRemovesStaleReceipt(t *testing.T) {
	srv, _ := newGotenberg(t, http.StatusOK)
	dir := t.TempDir()
	ok := NewGenerator(newTestRenderer(t), NewGotenbergClient(srv.URL, time.Second), dir, discardLogger())
	path := ok.Generate(context.Background(), sampleReceipt())
	require.FileExists(t, path)

	failing := NewGenerator(newTestRenderer(t), failingConverter{}, dir, discardLogger())
	assert.Equal(t, "", failing.Generate(context.Background(), sampleReceipt()))
	assert.NoFileExists(t, path)

	require.NoError(t, os.WriteFile(path, fakePDF, 0o600))
	disabled := NewGenerator(newTestRenderer(t), nil, dir, discardLogger())
	assert.Equal(t, "", disabled.Generate(context.Background(), sampleReceipt()))
	assert.NoFileExists(t, path)
}

package receipt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Converter turns an HTML document into PDF bytes.
type Converter interface {
	ConvertHTML(ctx context.Context, html string) ([]byte, error)
}

// Generator renders receipts and stores them as Invoice_<id>.pdf under dir.
// Failures are logged and reported as an empty path, never as an error.
type Generator struct {
	renderer  *Renderer
	converter Converter
	dir       string
	logger    *slog.Logger
}

// NewGenerator wires a generator. A nil converter disables PDF output.
func NewGenerator(renderer *Renderer, converter Converter, dir string, logger *slog.Logger) *Generator {
	return &Generator{renderer: renderer, converter: converter, dir: dir, logger: logger}
}

// FileName returns the receipt file name for an invoice.
func FileName(invoiceID uint) string {
	return fmt.Sprintf("Invoice_%d.pdf", invoiceID)
}

// Generate writes the receipt for r and returns its absolute path, or "" when
// any step fails. A receipt left from an earlier save of the same invoice is
// removed when no new one can be written.
func (g *Generator) Generate(ctx context.Context, r Receipt) string {
	log := g.logger.With(slog.Uint64("invoice_id", uint64(r.InvoiceID)))
	if g.converter == nil {
		log.Info("pdf conversion disabled, skipping receipt")
		g.removeStale(log, r.InvoiceID)
		return ""
	}
	path, err := g.generate(ctx, r)
	if err != nil {
		log.Warn("pdf generation failed", slog.Any("error", err))
		g.removeStale(log, r.InvoiceID)
		return ""
	}
	log.Info("receipt generated", slog.String("path", path))
	return path
}

func (g *Generator) removeStale(log *slog.Logger, invoiceID uint) {
	path := filepath.Join(g.dir, FileName(invoiceID))
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Info("stale receipt removed", slog.String("path", path))
	case !errors.Is(err, fs.ErrNotExist):
		log.Warn("stale receipt not removed", slog.String("path", path), slog.Any("error", err))
	}
}

func (g *Generator) generate(ctx context.Context, r Receipt) (string, error) {
	html, err := g.renderer.Render(r)
	if err != nil {
		return "", err
	}
	pdf, err := g.converter.ConvertHTML(ctx, html)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	// Write then rename so a reader never sees a truncated receipt.
	tmp, err := os.CreateTemp(dir, ".receipt-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(pdf); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(r.InvoiceID))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}
	return path, nil
}

// Package receipt renders invoice receipts as HTML and converts them to PDF
// files stored in the application's private receipt directory.
package receipt

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Receipt is the structured input of a receipt document.
type Receipt struct {
	InvoiceID uint
	Date      time.Time
	Supplier  string
	Lines     []Line
	Total     float64
}

// Line is one receipt row.
type Line struct {
	ProductName string
	SKU         string
	MRP         float64
	PTR         float64
	Discount    float64
	FinalPrice  float64
}

const documentHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice #{{.InvoiceID}}</title></head>
<body>
<h2>Invoice #{{.InvoiceID}}</h2>
<p>Date: {{date .Date}}</p>
<p>Supplier: {{.Supplier}}</p>
<table border="1" cellspacing="0" cellpadding="5">
<thead><tr><th>Sr</th><th>Product</th><th>SKU</th><th>MRP</th><th>PTR</th><th>Discount %</th><th>Total</th></tr></thead>
<tbody>
{{- range $i, $l := .Lines}}
<tr><td>{{inc $i}}</td><td>{{$l.ProductName}}</td><td>{{$l.SKU}}</td><td>{{money $l.MRP}}</td><td>{{money $l.PTR}}</td><td>{{percent $l.Discount}}</td><td>{{money $l.FinalPrice}}</td></tr>
{{- end}}
</tbody>
</table>
<h3>Total: {{money .Total}}</h3>
</body>
</html>
`

// Renderer turns a Receipt into an HTML document. Every text value is
// escaped by html/template; callers may pass untrusted supplier and product
// names.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer builds a renderer printing amounts with currency and dates in loc.
func NewRenderer(currency string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	p := message.NewPrinter(language.English)
	funcs := template.FuncMap{
		"inc":     func(i int) int { return i + 1 },
		"money":   func(v float64) string { return currency + p.Sprintf("%.2f", v) },
		"percent": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) + "%" },
		"date":    func(t time.Time) string { return t.In(loc).Format("02 Jan 2006") },
	}
	tmpl, err := template.New("receipt").Funcs(funcs).Parse(documentHTML)
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render returns the HTML document for r.
func (rd *Renderer) Render(r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := rd.tmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render receipt %d: %w", r.InvoiceID, err)
	}
	return buf.String(), nil
}

// Package docai defines the document-analysis collaborator contract: a raster
// or PDF page in, positioned text spans with confidence out. Remote providers
// (Azure Document Intelligence and friends) and the local PDF analyzer both
// implement Analyzer.
package docai

import (
	"context"
	"errors"
	"io"
)

// ErrUnsupportedContentType reports a source an Analyzer cannot read.
// Callers treat it as "no spans available", not as a pipeline failure.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Span is a piece of text located on a page, in page units.
type Span struct {
	Text       string  `json:"text"`
	Page       int     `json:"page"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// CenterX returns the horizontal center of the span.
func (s Span) CenterX() float64 { return s.X + s.Width/2 }

// CenterY returns the vertical center of the span.
func (s Span) CenterY() float64 { return s.Y + s.Height/2 }

// Right returns the right edge of the span.
func (s Span) Right() float64 { return s.X + s.Width }

// Page describes one analyzed page.
type Page struct {
	Number int     `json:"number"` // zero-based
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is the raw output of a document analysis run.
type Result struct {
	Pages []Page `json:"pages"`
	Spans []Span `json:"spans"`
}

// PageByNumber returns the page with the given zero-based index.
func (r *Result) PageByNumber(n int) (Page, bool) {
	for _, p := range r.Pages {
		if p.Number == n {
			return p, true
		}
	}
	return Page{}, false
}

// Analyzer analyzes a document and returns positioned text spans.
// Implementations must honor ctx cancellation; a document with no extractable
// text yields a Result with empty Spans, not an error.
type Analyzer interface {
	Analyze(ctx context.Context, source io.ReadSeeker, contentType string) (*Result, error)
}

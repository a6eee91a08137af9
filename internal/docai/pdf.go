package docai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/ledongthuc/pdf"
)

// Letter-sized fallback when a page carries no MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// PDFAnalyzer is a local Analyzer for PDF sources built on ledongthuc/pdf.
// It needs no network collaborator: text runs already carry positions, so it
// assembles them into line-level spans with full confidence. Y coordinates
// are flipped to top-down so all spans share the raster convention.
type PDFAnalyzer struct {
	maxFileSize int64
}

// NewPDFAnalyzer creates a local PDF analyzer with a source size limit.
func NewPDFAnalyzer(maxFileSize int64) *PDFAnalyzer {
	return &PDFAnalyzer{maxFileSize: maxFileSize}
}

// Analyze implements Analyzer for application/pdf sources.
func (a *PDFAnalyzer) Analyze(ctx context.Context, source io.ReadSeeker, contentType string) (*Result, error) {
	if contentType != "application/pdf" {
		return nil, fmt.Errorf("pdf analyzer cannot handle content type %q: %w", contentType, ErrUnsupportedContentType)
	}

	data, err := io.ReadAll(io.LimitReader(source, a.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if int64(len(data)) > a.maxFileSize {
		return nil, fmt.Errorf("source too large: exceeds %d bytes", a.maxFileSize)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	result := &Result{}
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		width, height := pageDimensions(page)
		result.Pages = append(result.Pages, Page{
			Number: pageNum - 1,
			Width:  width,
			Height: height,
		})

		spans := assembleSpans(page.Content().Text, pageNum-1, height)
		result.Spans = append(result.Spans, spans...)
	}

	return result, nil
}

// pageDimensions reads the page MediaBox, falling back to US Letter.
func pageDimensions(page pdf.Page) (width, height float64) {
	defer func() {
		if recover() != nil {
			width, height = defaultPageWidth, defaultPageHeight
		}
	}()

	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return defaultPageWidth, defaultPageHeight
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	width = x1 - x0
	height = y1 - y0
	if width <= 0 || height <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return width, height
}

// assembleSpans merges per-run PDF text fragments into line-level spans.
// ledongthuc/pdf often emits one Text per glyph; the extractor wants whole
// labels like "Date of Birth:", so runs on the same baseline are stitched
// together until a gap wider than the current font size appears.
func assembleSpans(runs []pdf.Text, page int, pageHeight float64) []Span {
	if len(runs) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y // PDF Y grows upward
		}
		return sorted[i].X < sorted[j].X
	})

	var spans []Span
	var buf bytes.Buffer
	var start, end, top, fontSize float64

	flush := func() {
		text := buf.String()
		if text != "" {
			height := fontSize
			if height == 0 {
				height = 12.0
			}
			spans = append(spans, Span{
				Text:       text,
				Page:       page,
				X:          start,
				Y:          pageHeight - top, // flip to top-down
				Width:      end - start,
				Height:     height,
				Confidence: 1.0,
			})
		}
		buf.Reset()
	}

	for i, run := range sorted {
		gapLimit := run.FontSize
		if gapLimit == 0 {
			gapLimit = 12.0
		}
		sameLine := i > 0 && abs(run.Y-top) < gapLimit/2
		if i == 0 || !sameLine || run.X-end > gapLimit {
			flush()
			start, top, fontSize = run.X, run.Y, run.FontSize
			end = run.X
		}
		buf.WriteString(run.S)
		if right := run.X + run.W; right > end {
			end = right
		}
	}
	flush()

	return spans
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package docai

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
)

func run(s string, x, y, w, size float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestAssembleSpansStitchesRunsOnOneLine(t *testing.T) {
	spans := assembleSpans([]pdf.Text{
		run("Na", 50, 700, 14, 10),
		run("me", 64, 700, 14, 10),
		run(":", 78, 700, 3, 10),
	}, 0, 792)

	if len(spans) != 1 {
		t.Fatalf("expected 1 stitched span, got %d", len(spans))
	}
	s := spans[0]
	if s.Text != "Name:" {
		t.Errorf("expected stitched text 'Name:', got %q", s.Text)
	}
	if s.X != 50 {
		t.Errorf("expected span to start at the first run, got x=%f", s.X)
	}
	if s.Width != 31 {
		t.Errorf("expected width to cover all runs, got %f", s.Width)
	}
	if s.Y != 92 {
		t.Errorf("expected top-down y=92, got %f", s.Y)
	}
	if s.Confidence != 1.0 {
		t.Errorf("local analysis is fully confident, got %f", s.Confidence)
	}
}

func TestAssembleSpansBreaksOnWideGaps(t *testing.T) {
	spans := assembleSpans([]pdf.Text{
		run("Name:", 50, 700, 33, 10),
		run("Date:", 300, 700, 30, 10), // far right on the same line
	}, 0, 792)

	if len(spans) != 2 {
		t.Fatalf("expected the gap to break the line into 2 spans, got %d", len(spans))
	}
}

func TestAssembleSpansSeparatesLines(t *testing.T) {
	spans := assembleSpans([]pdf.Text{
		run("Second", 50, 650, 40, 10),
		run("First", 50, 700, 30, 10),
	}, 2, 792)

	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	// Sorted top of page first, regardless of input order.
	if spans[0].Text != "First" || spans[1].Text != "Second" {
		t.Errorf("expected reading order First, Second; got %q, %q", spans[0].Text, spans[1].Text)
	}
	if spans[0].Y >= spans[1].Y {
		t.Errorf("top-down ys out of order: %f then %f", spans[0].Y, spans[1].Y)
	}
	for _, s := range spans {
		if s.Page != 2 {
			t.Errorf("expected page 2, got %d", s.Page)
		}
	}
}

func TestAssembleSpansEmpty(t *testing.T) {
	if spans := assembleSpans(nil, 0, 792); spans != nil {
		t.Errorf("expected nil for no runs, got %v", spans)
	}
}

func TestAnalyzeRejectsNonPDF(t *testing.T) {
	a := NewPDFAnalyzer(1024)

	_, err := a.Analyze(context.Background(), bytes.NewReader([]byte("x")), "image/png")
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Errorf("expected ErrUnsupportedContentType, got %v", err)
	}
}

func TestAnalyzeRejectsOversizedSource(t *testing.T) {
	a := NewPDFAnalyzer(8)

	data := bytes.Repeat([]byte("a"), 64)
	_, err := a.Analyze(context.Background(), bytes.NewReader(data), "application/pdf")
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected a size error, got %v", err)
	}
}

package schema

import (
	"math"
	"testing"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/docai"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/llm"
)

func testSpan(text string, x, y, w, h float64) docai.Span {
	return docai.Span{Text: text, Page: 0, X: x, Y: y, Width: w, Height: h, Confidence: 1.0}
}

func testResult(spans ...docai.Span) *docai.Result {
	return &docai.Result{
		Pages: []docai.Page{{Number: 0, Width: 1000, Height: 1000}},
		Spans: spans,
	}
}

func TestExtractEmptyResult(t *testing.T) {
	e := NewExtractor()

	fields, positions := e.Extract(nil, nil)
	if len(fields.Fields) != 0 || len(positions) != 0 {
		t.Fatal("expected empty schema for nil result")
	}

	fields, positions = e.Extract(&docai.Result{}, nil)
	if len(fields.Fields) != 0 || len(positions) != 0 {
		t.Fatal("expected empty schema for result with no spans")
	}
}

func TestExtractPairsLabelWithFillIn(t *testing.T) {
	e := NewExtractor()

	fields, positions := e.Extract(testResult(
		testSpan("Name:", 50, 100, 60, 12),
		testSpan("__________", 120, 100, 300, 12),
	), nil)

	if len(fields.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields.Fields))
	}
	f := fields.Fields[0]
	if f.ID != "name" || f.Label != "Name" || f.Kind != KindText {
		t.Errorf("unexpected field: %+v", f)
	}

	pos, ok := positions["name"]
	if !ok {
		t.Fatal("expected a position for name")
	}
	if math.Abs(pos.Point.X-0.12) > 1e-9 {
		t.Errorf("expected anchor at fill-in start x=0.12, got %f", pos.Point.X)
	}
	if pos.Bounds == nil {
		t.Error("expected bounds from the fill-in span")
	}
	if !pos.Point.InUnit() {
		t.Errorf("anchor outside unit square: %+v", pos.Point)
	}
}

func TestExtractClassifiesKinds(t *testing.T) {
	e := NewExtractor()

	fields, _ := e.Extract(testResult(
		testSpan("Date of Birth:", 50, 100, 100, 12),
		testSpan("Signature:", 50, 200, 80, 12),
		testSpan("Email:", 50, 300, 50, 12),
	), nil)

	if len(fields.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields.Fields))
	}

	byID := make(map[string]FieldDefinition)
	for _, f := range fields.Fields {
		byID[f.ID] = f
	}
	if byID["date_of_birth"].Kind != KindDate {
		t.Errorf("expected date kind, got %s", byID["date_of_birth"].Kind)
	}
	if byID["signature"].Kind != KindSignature {
		t.Errorf("expected signature kind, got %s", byID["signature"].Kind)
	}
	if byID["email"].ValidationHint != "email" {
		t.Errorf("expected email hint, got %q", byID["email"].ValidationHint)
	}
}

func TestExtractDisambiguatesDuplicateLabels(t *testing.T) {
	e := NewExtractor()

	fields, positions := e.Extract(testResult(
		testSpan("Name:", 50, 100, 60, 12),
		testSpan("Name:", 50, 400, 60, 12),
	), nil)

	if len(fields.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields.Fields))
	}
	if fields.Fields[0].ID != "name" || fields.Fields[1].ID != "name_2" {
		t.Errorf("expected ids name and name_2, got %s and %s", fields.Fields[0].ID, fields.Fields[1].ID)
	}
	if err := fields.Validate(); err != nil {
		t.Errorf("disambiguated schema should validate: %v", err)
	}
	if len(positions) != 2 {
		t.Errorf("expected 2 positions, got %d", len(positions))
	}
}

func TestExtractKeepsCoordinatesInUnitSquare(t *testing.T) {
	e := NewExtractor()

	// Label hugging the right edge anchors below itself, and a label
	// overflowing the page clamps instead of escaping the unit square.
	fields, positions := e.Extract(testResult(
		testSpan("Account Number:", 900, 100, 90, 12),
		testSpan("Employer Name:", 950, 300, 120, 12),
	), nil)

	if len(fields.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields.Fields))
	}
	for id, pos := range positions {
		if !pos.Point.InUnit() {
			t.Errorf("position for %s outside unit square: %+v", id, pos.Point)
		}
	}

	below := positions["account_number"]
	if math.Abs(below.Point.X-0.9) > 1e-9 {
		t.Errorf("expected below-anchor to keep the label x, got %f", below.Point.X)
	}
	if below.Point.Y <= 0.1 {
		t.Errorf("expected below-anchor under the label, got y=%f", below.Point.Y)
	}
}

func TestExtractOverlapKeepsHigherConfidence(t *testing.T) {
	e := NewExtractor()

	weak := testSpan("Name:", 50, 100, 60, 12)
	weak.Confidence = 0.5
	strong := testSpan("Full Name:", 50, 100, 60, 12)
	strong.Confidence = 0.9

	fields, _ := e.Extract(testResult(weak, strong), nil)

	if len(fields.Fields) != 1 {
		t.Fatalf("expected overlap to collapse into 1 field, got %d", len(fields.Fields))
	}
	if fields.Fields[0].Label != "Full Name" {
		t.Errorf("expected the higher-confidence candidate to win, got %q", fields.Fields[0].Label)
	}
}

func TestExtractAppliesHints(t *testing.T) {
	e := NewExtractor()

	fields, _ := e.Extract(testResult(
		testSpan("Member:", 50, 100, 60, 12),
	), []llm.FieldHint{
		{Label: "Member", Kind: "checkbox", Required: false},
	})

	if len(fields.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields.Fields))
	}
	f := fields.Fields[0]
	if f.Kind != KindCheckbox {
		t.Errorf("expected hint to set checkbox kind, got %s", f.Kind)
	}
	if f.Required {
		t.Error("expected hint to mark the field optional")
	}
}

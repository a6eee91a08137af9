package schema

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/docai"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/llm"
)

// ExtractorConfig bounds the spatial heuristics used to pair labels with
// their answer regions. Distances are fractions of the page dimensions.
type ExtractorConfig struct {
	// MaxAnswerGap is the widest horizontal gap between a label and its
	// answer region on the same line.
	MaxAnswerGap float64
	// RightMargin is how close to the page's right edge a label can sit
	// before its answer region is assumed to be below it instead.
	RightMargin float64
	// OverlapTolerance is the distance within which two candidate anchors
	// are considered the same field.
	OverlapTolerance float64
	// MinConfidence discards spans the analysis provider was unsure about.
	MinConfidence float64
}

// DefaultExtractorConfig returns the tuning that works for typical scanned
// forms.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxAnswerGap:     0.35,
		RightMargin:      0.85,
		OverlapTolerance: 0.02,
		MinConfidence:    0.2,
	}
}

// Extractor converts document-analysis spans into a FieldSchema with
// normalized FieldPositions.
type Extractor struct {
	cfg    ExtractorConfig
	logger *log.Logger
}

// NewExtractor creates an extractor with the default configuration.
func NewExtractor() *Extractor {
	return NewExtractorWithConfig(DefaultExtractorConfig())
}

// NewExtractorWithConfig creates an extractor with custom tuning.
func NewExtractorWithConfig(cfg ExtractorConfig) *Extractor {
	return &Extractor{cfg: cfg, logger: log.Default()}
}

// candidate is a label span paired with its answer anchor, prior to id
// assignment and overlap resolution.
type candidate struct {
	label      string
	glyph      string
	page       int
	anchor     Coordinate
	bounds     *BoundingBox
	confidence float64
	order      int
}

// Extract derives a schema and positions from an analysis result, optionally
// refined by semantic hints from the language-understanding collaborator.
// A result with no usable spans yields an empty schema and no error.
func (e *Extractor) Extract(result *docai.Result, hints []llm.FieldHint) (FieldSchema, FieldPositions) {
	schema := FieldSchema{}
	positions := make(FieldPositions)
	if result == nil || len(result.Spans) == 0 {
		return schema, positions
	}

	var candidates []candidate
	for _, page := range result.Pages {
		candidates = append(candidates, e.pageCandidates(result, page)...)
	}
	candidates = e.resolveOverlaps(candidates)

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].order < candidates[j].order })

	hintIndex := indexHints(hints)
	used := make(map[string]int)
	for _, c := range candidates {
		id := SlugID(c.label)
		if n := used[id]; n > 0 {
			used[id] = n + 1
			id = fmt.Sprintf("%s_%d", id, n+1)
		} else {
			used[id] = 1
		}

		kind, hint := classifyKind(c.label, c.glyph)
		required := true
		if h, ok := hintIndex[SlugID(c.label)]; ok {
			if hk := FieldKind(h.Kind).Normalize(); h.Kind != "" {
				kind = hk
			}
			required = h.Required
		}

		schema.Fields = append(schema.Fields, FieldDefinition{
			ID:             id,
			Label:          stripFillIn(c.label),
			Kind:           kind,
			Required:       required,
			ValidationHint: hint,
		})
		positions[id] = FieldPosition{
			FieldID: id,
			Page:    c.page,
			Point:   c.anchor,
			Bounds:  c.bounds,
		}
	}

	return schema, positions
}

// pageCandidates pairs label spans with answer anchors on one page.
func (e *Extractor) pageCandidates(result *docai.Result, page docai.Page) []candidate {
	var spans []docai.Span
	for _, s := range result.Spans {
		if s.Page == page.Number && s.Confidence >= e.cfg.MinConfidence && strings.TrimSpace(s.Text) != "" {
			spans = append(spans, s)
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Y != spans[j].Y {
			return spans[i].Y < spans[j].Y
		}
		return spans[i].X < spans[j].X
	})

	var out []candidate
	for i, s := range spans {
		if !looksLikeLabel(s.Text) {
			continue
		}

		anchorX, anchorY := s.Right()+0.02*page.Width, s.CenterY()
		glyph := ""
		var bounds *BoundingBox

		if next, ok := rightNeighbor(spans, i); ok && next.X-s.Right() <= e.cfg.MaxAnswerGap*page.Width {
			glyph = next.Text
			if isFillIn(next.Text) || containsGlyph(next.Text) {
				anchorX = next.X
				anchorY = next.CenterY()
				bounds = normalizeBox(next, page)
			}
		}
		if s.Right() > e.cfg.RightMargin*page.Width {
			// Label hugs the right margin, answer region sits below it.
			anchorX = s.X
			anchorY = s.Y + 1.5*s.Height
		}

		out = append(out, candidate{
			label:      s.Text,
			glyph:      glyph,
			page:       page.Number,
			anchor:     clampCoordinate(anchorX/page.Width, anchorY/page.Height),
			bounds:     bounds,
			confidence: s.Confidence,
			order:      page.Number*1_000_000 + i,
		})
	}
	return out
}

// rightNeighbor finds the nearest span to the right on the same line.
func rightNeighbor(spans []docai.Span, i int) (docai.Span, bool) {
	s := spans[i]
	best := docai.Span{}
	found := false
	for j, n := range spans {
		if j == i || n.X <= s.Right() {
			continue
		}
		if abs(n.CenterY()-s.CenterY()) > s.Height {
			continue
		}
		if !found || n.X < best.X {
			best = n
			found = true
		}
	}
	return best, found
}

// resolveOverlaps keeps the higher-confidence candidate when two anchors
// land on the same spot of the same page.
func (e *Extractor) resolveOverlaps(candidates []candidate) []candidate {
	kept := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		replaced := false
		for k, existing := range kept {
			if existing.page != c.page {
				continue
			}
			dx := abs(existing.anchor.X - c.anchor.X)
			dy := abs(existing.anchor.Y - c.anchor.Y)
			if dx > e.cfg.OverlapTolerance || dy > e.cfg.OverlapTolerance {
				continue
			}
			if c.confidence > existing.confidence {
				kept[k] = c
			} else {
				e.logger.Printf("extractor: dropping overlapping field candidate %q (confidence %.2f)",
					c.label, c.confidence)
			}
			replaced = true
			break
		}
		if !replaced {
			kept = append(kept, c)
		}
	}
	return kept
}

func indexHints(hints []llm.FieldHint) map[string]llm.FieldHint {
	out := make(map[string]llm.FieldHint, len(hints))
	for _, h := range hints {
		out[SlugID(h.Label)] = h
	}
	return out
}

func isFillIn(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.Count(trimmed, "_") >= 3 || strings.Count(trimmed, ".") >= 4
}

func containsGlyph(text string) bool {
	for _, rule := range defaultKindRules {
		for _, g := range rule.Glyphs {
			if strings.Contains(text, g) {
				return true
			}
		}
	}
	return false
}

func normalizeBox(s docai.Span, page docai.Page) *BoundingBox {
	return &BoundingBox{
		X:      clamp01(s.X / page.Width),
		Y:      clamp01(s.Y / page.Height),
		Width:  clamp01(s.Width / page.Width),
		Height: clamp01(s.Height / page.Height),
	}
}

func clampCoordinate(x, y float64) Coordinate {
	return Coordinate{X: clamp01(x), Y: clamp01(y)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

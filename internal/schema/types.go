package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldKind is a closed set of field kinds the engine understands.
// Unknown kinds are treated as KindText by every handler.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindDate      FieldKind = "date"
	KindCheckbox  FieldKind = "checkbox"
	KindSignature FieldKind = "signature"
	KindOther     FieldKind = "other"
)

// Normalize maps unknown kind strings onto KindText so downstream
// handlers can switch exhaustively over the known kinds.
func (k FieldKind) Normalize() FieldKind {
	switch k {
	case KindText, KindDate, KindCheckbox, KindSignature, KindOther:
		return k
	default:
		return KindText
	}
}

// FieldDefinition describes a single fillable field on a form.
type FieldDefinition struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Kind           FieldKind `json:"kind"`
	Required       bool      `json:"required"`
	ValidationHint string    `json:"validation_hint,omitempty"` // e.g. "email", "phone"
}

// FieldSchema is an ordered set of field definitions. The slice order is the
// canonical prompting order.
type FieldSchema struct {
	Title  string            `json:"title,omitempty"`
	Fields []FieldDefinition `json:"fields"`
}

// Field returns the definition with the given id, if present.
func (s FieldSchema) Field(id string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// Validate checks structural invariants: ids must be non-empty and unique.
func (s FieldSchema) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.ID == "" {
			return fmt.Errorf("field %q has an empty id", f.Label)
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate field id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// Clone returns a deep copy so callers can snapshot a schema per session.
func (s FieldSchema) Clone() FieldSchema {
	out := FieldSchema{Title: s.Title}
	out.Fields = append(out.Fields, s.Fields...)
	return out
}

// Coordinate is a normalized position expressed as fractions of page
// width/height, so it is resolution independent.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InUnit reports whether both components lie in [0,1].
func (c Coordinate) InUnit() bool {
	return c.X >= 0 && c.X <= 1 && c.Y >= 0 && c.Y <= 1
}

// BoundingBox is a normalized rectangle on a page.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FieldPosition locates a field's answer anchor on a page.
type FieldPosition struct {
	FieldID string       `json:"field_id"`
	Page    int          `json:"page"`
	Point   Coordinate   `json:"point"`
	Bounds  *BoundingBox `json:"bounds,omitempty"`
}

// FieldPositions maps field ids to their positions.
type FieldPositions map[string]FieldPosition

// Clone returns a copy safe to hand to a session snapshot.
func (p FieldPositions) Clone() FieldPositions {
	out := make(FieldPositions, len(p))
	for id, pos := range p {
		out[id] = pos
	}
	return out
}

var nonIdentRe = regexp.MustCompile(`[^a-z0-9]+`)

// SlugID derives a stable field id from a human label:
// "Date of Birth:" -> "date_of_birth".
func SlugID(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.TrimRight(s, ":*")
	s = nonIdentRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "field"
	}
	return s
}

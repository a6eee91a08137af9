package override

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
)

// Identity is what a form is looked up by. Hash is the strongest signal,
// then the exact filename, then the filename stem.
type Identity struct {
	Hash     string
	Filename string
}

// Stem returns the filename without its extension, lowercased.
func (id Identity) Stem() string {
	base := filepath.Base(id.Filename)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Metadata describes the form a record was captured from.
type Metadata struct {
	Hash      string    `json:"hash"`
	Filename  string    `json:"filename"`
	FormTitle string    `json:"form_title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is a curated correction set for one known form. Any of the three
// payload sections may be absent; an absent section means "no opinion" and
// the extracted data is used as-is.
type Record struct {
	Metadata  Metadata                        `json:"metadata"`
	Schema    *schema.FieldSchema             `json:"schema,omitempty"`
	Positions map[string]schema.FieldPosition `json:"positions,omitempty"`
	Values    map[string]string               `json:"values,omitempty"`
}

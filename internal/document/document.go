// Package document identifies source form documents: a content hash as the
// strong identity plus page geometry used to normalize coordinates.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageSize holds one page's dimensions in source units (pixels for rasters,
// points for PDFs).
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FormDocument is the identity and geometry of a source document. The hash is
// SHA-256 over the raw source bytes and is the strongest cache key; filename
// and filename stem are progressively weaker fallbacks.
type FormDocument struct {
	Hash        string     `json:"hash"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Pages       []PageSize `json:"pages"`
}

// Stem returns the filename without its extension.
func (d FormDocument) Stem() string {
	return strings.TrimSuffix(d.Filename, filepath.Ext(d.Filename))
}

// PageCount returns the number of pages.
func (d FormDocument) PageCount() int { return len(d.Pages) }

// Load reads a source file and derives its FormDocument.
func Load(path string) (FormDocument, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormDocument{}, nil, fmt.Errorf("cannot read source %s: %w", path, err)
	}
	doc, err := FromBytes(data, filepath.Base(path))
	if err != nil {
		return FormDocument{}, nil, err
	}
	return doc, data, nil
}

// FromBytes derives a FormDocument from raw source bytes.
func FromBytes(data []byte, filename string) (FormDocument, error) {
	sum := sha256.Sum256(data)
	doc := FormDocument{
		Hash:        hex.EncodeToString(sum[:]),
		Filename:    filename,
		ContentType: DetectContentType(filename),
	}

	var err error
	switch doc.ContentType {
	case "application/pdf":
		doc.Pages, err = pdfPageSizes(data)
	default:
		doc.Pages, err = imagePageSize(data)
	}
	if err != nil {
		return FormDocument{}, err
	}
	return doc, nil
}

// DetectContentType maps a filename extension onto the content types the
// engine understands, defaulting to JPEG like the analysis providers do.
func DetectContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

func imagePageSize(data []byte) ([]PageSize, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image dimensions: %w", err)
	}
	return []PageSize{{Width: float64(cfg.Width), Height: float64(cfg.Height)}}, nil
}

func pdfPageSizes(data []byte) ([]PageSize, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("cannot read PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("cannot determine PDF page count: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("cannot read PDF page dimensions: %w", err)
	}
	pages := make([]PageSize, 0, len(dims))
	for _, d := range dims {
		pages = append(pages, PageSize{Width: d.Width, Height: d.Height})
	}
	return pages, nil
}

package document

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"form.pdf", "application/pdf"},
		{"FORM.PDF", "application/pdf"},
		{"scan.png", "image/png"},
		{"scan.jpg", "image/jpeg"},
		{"scan.jpeg", "image/jpeg"},
		{"noext", "image/jpeg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectContentType(tt.filename))
	}
}

func TestFromBytesImage(t *testing.T) {
	data := pngBytes(t, 640, 480)

	doc, err := FromBytes(data, "scan.png")
	require.NoError(t, err)

	assert.Equal(t, "scan.png", doc.Filename)
	assert.Equal(t, "image/png", doc.ContentType)
	assert.Len(t, doc.Hash, 64, "hash must be hex-encoded SHA-256")
	require.Equal(t, 1, doc.PageCount())
	assert.Equal(t, PageSize{Width: 640, Height: 480}, doc.Pages[0])
}

func TestFromBytesHashIsContentAddressed(t *testing.T) {
	a, err := FromBytes(pngBytes(t, 10, 10), "a.png")
	require.NoError(t, err)
	b, err := FromBytes(pngBytes(t, 10, 10), "b.png")
	require.NoError(t, err)
	c, err := FromBytes(pngBytes(t, 20, 20), "a.png")
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash, "same bytes, same hash regardless of name")
	assert.NotEqual(t, a.Hash, c.Hash, "different bytes, different hash")
}

func TestFromBytesRejectsGarbage(t *testing.T) {
	_, err := FromBytes([]byte("not an image"), "scan.png")
	assert.Error(t, err)

	_, err = FromBytes([]byte("not a pdf"), "form.pdf")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	raw := pngBytes(t, 30, 40)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	doc, data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Equal(t, "scan.png", doc.Filename)
	assert.Equal(t, PageSize{Width: 30, Height: 40}, doc.Pages[0])

	_, _, err = Load(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "w4", FormDocument{Filename: "w4.pdf"}.Stem())
	assert.Equal(t, "scan.final", FormDocument{Filename: "scan.final.png"}.Stem())
}

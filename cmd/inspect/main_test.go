package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/internal/pdftest"
)

func TestRunSections(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetGray(1, 1, color.Gray{})
	data := pdftest.New().NewPage(612, 792).
		DrawText("2) Add", 72, 100, pdftest.TextOptions{}).
		DrawImage("Photo", img, coords.Rect{X0: 72, Y0: 200, X1: 152, Y1: 240}, pdftest.ImageOptions{Encoding: pdftest.Gray}).
		Finish().Bytes(t)
	path := filepath.Join(dir, "in.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var out bytes.Buffer
	opts := options{
		pdfPath:  path,
		outDir:   dir,
		features: featureSelection{Words: true, Images: true, Markers: true},
	}
	require.NoError(t, run(context.Background(), &out, opts))

	s := out.String()
	assert.Contains(t, s, "== words ==")
	assert.Contains(t, s, `"2) Add"`)
	assert.Contains(t, s, "== markers ==")
	assert.Contains(t, s, `"marker": "2)"`)
	assert.NotContains(t, s, "== fonts ==")
	_, err := os.Stat(filepath.Join(dir, "images", "page-001-Im1.png"))
	assert.NoError(t, err)
}

func TestRunMissingFile(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, options{pdfPath: filepath.Join(t.TempDir(), "none.pdf")})
	assert.ErrorContains(t, err, "open pdf")
}

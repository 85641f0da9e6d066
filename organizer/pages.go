package organizer

import (
	"context"

	"github.com/wudi/pdforganizer/backend"
	"github.com/wudi/pdforganizer/sequence"
	"github.com/wudi/pdforganizer/worksheet"
)

// pages feeds the sequence builder from both backends of one document.
type pages struct {
	vector *backend.Vector
	raster *backend.Raster
}

var _ sequence.PageSource = pages{}

func (p pages) PageCount() int { return p.vector.PageCount() }

func (p pages) Extract(ctx context.Context, index int) ([]worksheet.TextWord, []worksheet.PageImage, error) {
	return worksheet.Extract(ctx, p.vector, p.raster, index)
}

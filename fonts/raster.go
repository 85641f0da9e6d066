package fonts

import (
	"errors"
	"fmt"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// DefaultRasterFace is the built-in bitmap face used when no outline font
// is available. It has a fixed size.
var DefaultRasterFace xfont.Face = basicfont.Face7x13

// RasterFace renders p at size pixels per em (72 DPI, so 1 pt = 1 px).
func (p *Program) RasterFace(size float64) (xfont.Face, error) {
	if p.outlines == nil {
		return nil, errors.New("font has no outlines")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid face size %v", size)
	}
	return opentype.NewFace(p.outlines, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
}

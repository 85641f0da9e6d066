package editor

import (
	"github.com/wudi/pdforganizer/contentstream"
	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/ir/raw"
)

// TextOps draws encoded text in black with fontRes at size, baseline at (x, y) in PDF space.
func TextOps(fontRes string, size float64, origin coords.Point, text []byte) []contentstream.Operation {
	return []contentstream.Operation{
		contentstream.Op("q"),
		contentstream.Op("BT"),
		contentstream.Op("g", raw.NumberInt(0)),
		contentstream.Op("Tf", raw.NameLiteral(fontRes), raw.NumberFloat(size)),
		contentstream.Op("Tm", raw.Numbers(1, 0, 0, 1, origin.X, origin.Y).Items...),
		contentstream.Op("Tj", raw.Str(text)),
		contentstream.Op("ET"),
		contentstream.Op("Q"),
	}
}

// ImageOps paints XObject name into rect (PDF space).
func ImageOps(name string, rect coords.Rect) []contentstream.Operation {
	return []contentstream.Operation{
		contentstream.Op("q"),
		contentstream.Op("cm", raw.Numbers(rect.Width(), 0, 0, rect.Height(), rect.X0, rect.Y0).Items...),
		contentstream.Op("Do", raw.NameLiteral(name)),
		contentstream.Op("Q"),
	}
}

// Wrap brackets ops in q ... Q so appended content starts from a clean state.
func Wrap(ops []contentstream.Operation) []contentstream.Operation {
	out := make([]contentstream.Operation, 0, len(ops)+2)
	out = append(out, contentstream.Op("q"))
	out = append(out, ops...)
	return append(out, contentstream.Op("Q"))
}

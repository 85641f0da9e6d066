package editor

import (
	"github.com/wudi/pdforganizer/contentstream"
	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/ir/raw"
)

// MinOverlap is the share of a text show's area that must fall inside the
// redaction rectangle for the show to be removed.
const MinOverlap = 0.5

// RedactText removes the text shows whose boxes lie mostly inside rect (PDF
// space) and returns the rewritten operations plus the number removed.
// Each removed show becomes a TJ that only moves the pen by the same
// advance, so text drawn later on the same line keeps its position. Images
// and vector graphics are never touched.
func RedactText(ops []contentstream.Operation, res contentstream.Resources, bounds, rect coords.Rect) ([]contentstream.Operation, int) {
	trace := contentstream.NewTracer().Trace(ops, res)
	shows := make(map[int]contentstream.TextShow, len(trace.Texts))
	boxes := make([]contentstream.OpBBox, 0, len(trace.Texts))
	for _, s := range trace.Texts {
		shows[s.OpIndex] = s
		boxes = append(boxes, contentstream.OpBBox{OpIndex: s.OpIndex, Rect: s.Rect})
	}
	idx := NewOpSpatialIndex(bounds)
	idx.Index(boxes)

	remove := make(map[int]contentstream.TextShow)
	for _, i := range idx.Query(rect) {
		s := shows[i]
		area := s.Rect.Area()
		if area <= 0 {
			continue
		}
		if s.Rect.Intersect(rect).Area()/area >= MinOverlap {
			remove[i] = s
		}
	}
	if len(remove) == 0 {
		return ops, 0
	}

	out := make([]contentstream.Operation, 0, len(ops)+len(remove))
	for i, op := range ops {
		s, ok := remove[i]
		if !ok {
			out = append(out, op)
			continue
		}
		switch op.Operator {
		case "'":
			out = append(out, contentstream.Op("T*"))
		case "\"":
			out = append(out,
				contentstream.Op("Tw", op.Operands[0]),
				contentstream.Op("Tc", op.Operands[1]),
				contentstream.Op("T*"),
			)
		}
		out = append(out, spacer(s))
	}
	return out, len(remove)
}

// spacer is a TJ with a single adjustment equal to the removed show's advance.
func spacer(s contentstream.TextShow) contentstream.Operation {
	scale := s.FontSize * s.State.HScale
	if scale == 0 || s.Advance == 0 {
		return contentstream.Op("TJ", raw.NewArray())
	}
	return contentstream.Op("TJ", raw.Numbers(-s.Advance/scale*1000))
}

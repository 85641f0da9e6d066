package editor

import (
	"sort"

	"github.com/wudi/pdforganizer/contentstream"
	"github.com/wudi/pdforganizer/coords"
)

// OpSpatialIndex indexes traced operations by their PDF-space boxes.
type OpSpatialIndex struct {
	tree *QuadTree
}

func NewOpSpatialIndex(pageBounds coords.Rect) *OpSpatialIndex {
	return &OpSpatialIndex{
		tree: NewQuadTree(pageBounds, 10),
	}
}

func (idx *OpSpatialIndex) Index(boxes []contentstream.OpBBox) {
	for _, bbox := range boxes {
		idx.tree.Insert(bbox.Rect, bbox.OpIndex)
	}
}

// Query returns the distinct operation indices touching rect, ascending.
func (idx *OpSpatialIndex) Query(rect coords.Rect) []int {
	hits := idx.tree.Query(rect)
	sort.Ints(hits)
	out := hits[:0]
	for i, h := range hits {
		if i == 0 || h != hits[i-1] {
			out = append(out, h)
		}
	}
	return out
}

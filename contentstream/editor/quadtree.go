package editor

import "github.com/wudi/pdforganizer/coords"

// maxDepth stops subdivision when many boxes share the same spot.
const maxDepth = 12

// QuadTree implements a spatial index for rectangles.
type QuadTree struct {
	Bounds   coords.Rect
	Capacity int
	Points   []PointData
	Nodes    []*QuadTree
	depth    int
}

type PointData struct {
	Rect  coords.Rect
	Index int
}

func NewQuadTree(bounds coords.Rect, capacity int) *QuadTree {
	return &QuadTree{
		Bounds:   bounds,
		Capacity: capacity,
		Points:   make([]PointData, 0, capacity),
	}
}

// Insert stores rect. Rectangles outside the tree bounds are kept at the
// root so queries still find content drawn off-page.
func (qt *QuadTree) Insert(rect coords.Rect, index int) bool {
	if !intersects(qt.Bounds, rect) {
		if qt.depth == 0 {
			qt.Points = append(qt.Points, PointData{Rect: rect, Index: index})
			return true
		}
		return false
	}

	if qt.Nodes != nil {
		for _, node := range qt.Nodes {
			if contains(node.Bounds, rect) {
				if node.Insert(rect, index) {
					return true
				}
			}
		}
	}

	// either a leaf, or the rect straddles children
	if qt.Nodes == nil {
		if len(qt.Points) < qt.Capacity || qt.depth >= maxDepth {
			qt.Points = append(qt.Points, PointData{Rect: rect, Index: index})
			return true
		}
		qt.subdivide()
		oldPoints := qt.Points
		qt.Points = make([]PointData, 0, qt.Capacity)
		for _, p := range oldPoints {
			qt.reinsert(p)
		}
		return qt.Insert(rect, index)
	}

	qt.Points = append(qt.Points, PointData{Rect: rect, Index: index})
	return true
}

func (qt *QuadTree) reinsert(p PointData) {
	for _, node := range qt.Nodes {
		if contains(node.Bounds, p.Rect) && node.Insert(p.Rect, p.Index) {
			return
		}
	}
	qt.Points = append(qt.Points, p)
}

func (qt *QuadTree) subdivide() {
	b := qt.Bounds
	xMid := (b.X0 + b.X1) / 2
	yMid := (b.Y0 + b.Y1) / 2

	qt.Nodes = []*QuadTree{
		NewQuadTree(coords.Rect{X0: b.X0, Y0: yMid, X1: xMid, Y1: b.Y1}, qt.Capacity),
		NewQuadTree(coords.Rect{X0: xMid, Y0: yMid, X1: b.X1, Y1: b.Y1}, qt.Capacity),
		NewQuadTree(coords.Rect{X0: b.X0, Y0: b.Y0, X1: xMid, Y1: yMid}, qt.Capacity),
		NewQuadTree(coords.Rect{X0: xMid, Y0: b.Y0, X1: b.X1, Y1: yMid}, qt.Capacity),
	}
	for _, n := range qt.Nodes {
		n.depth = qt.depth + 1
	}
}

// Query returns the indices of rectangles touching rangeRect, edges included.
func (qt *QuadTree) Query(rangeRect coords.Rect) []int {
	var found []int
	for _, p := range qt.Points {
		if intersects(p.Rect, rangeRect) {
			found = append(found, p.Index)
		}
	}
	if qt.Nodes != nil && intersects(qt.Bounds, rangeRect) {
		for _, node := range qt.Nodes {
			found = append(found, node.Query(rangeRect)...)
		}
	}
	return found
}

func intersects(r1, r2 coords.Rect) bool {
	return !(r2.X0 > r1.X1 || r2.X1 < r1.X0 || r2.Y0 > r1.Y1 || r2.Y1 < r1.Y0)
}

func contains(outer, inner coords.Rect) bool {
	return outer.Contains(inner)
}

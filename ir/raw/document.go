package raw

import (
	"errors"
	"sort"
)

// maxResolveDepth bounds reference chains (a ref pointing at a ref ...).
const maxResolveDepth = 32

// ErrNoCatalog is returned when the trailer has no usable /Root.
var ErrNoCatalog = errors.New("document has no catalog")

// PageRef locates one leaf of the page tree. Ref is the zero value when the
// page dictionary is a direct object.
type PageRef struct {
	Ref  ObjectRef
	Dict *DictObj
}

// Resolve follows indirect references until it reaches a direct object.
// A dangling reference resolves to NullObj.
func (d *Document) Resolve(o Object) Object {
	for i := 0; i < maxResolveDepth; i++ {
		ref, ok := o.(RefObj)
		if !ok {
			return o
		}
		next, ok := d.Objects[ref.R]
		if !ok {
			return NullObj{}
		}
		o = next
	}
	return NullObj{}
}

func (d *Document) Dict(o Object) *DictObj {
	switch v := d.Resolve(o).(type) {
	case *DictObj:
		return v
	case *StreamObj:
		return v.Dict
	}
	return nil
}

func (d *Document) Array(o Object) *ArrayObj {
	a, _ := d.Resolve(o).(*ArrayObj)
	return a
}

func (d *Document) Stream(o Object) *StreamObj {
	s, _ := d.Resolve(o).(*StreamObj)
	return s
}

// Get resolves dict[key].
func (d *Document) Get(dict *DictObj, key string) Object {
	v, ok := dict.Get(key)
	if !ok {
		return nil
	}
	return d.Resolve(v)
}

func (d *Document) Catalog() *DictObj {
	if d.Trailer == nil {
		return nil
	}
	root, _ := d.Trailer.Get("Root")
	return d.Dict(root)
}

// Pages flattens the page tree in document order. Cycles in /Kids are
// skipped rather than followed.
func (d *Document) Pages() ([]PageRef, error) {
	cat := d.Catalog()
	if cat == nil {
		return nil, ErrNoCatalog
	}
	root, ok := cat.Get("Pages")
	if !ok {
		return nil, errors.New("catalog has no /Pages")
	}
	var out []PageRef
	seen := make(map[ObjectRef]bool)
	var walk func(o Object, depth int)
	walk = func(o Object, depth int) {
		if depth > maxResolveDepth {
			return
		}
		var ref ObjectRef
		if r, ok := o.(RefObj); ok {
			if seen[r.R] {
				return
			}
			seen[r.R] = true
			ref = r.R
		}
		dict := d.Dict(o)
		if dict == nil {
			return
		}
		typ, _ := NameOf(d.Get(dict, "Type"))
		kids := d.Array(d.Get(dict, "Kids"))
		if typ == "Pages" || (typ == "" && kids != nil) {
			if kids == nil {
				return
			}
			for _, kid := range kids.Items {
				walk(kid, depth+1)
			}
			return
		}
		out = append(out, PageRef{Ref: ref, Dict: dict})
	}
	walk(root, 0)
	return out, nil
}

// Inherited looks up key on a page, walking /Parent for the inheritable
// attributes (Resources, MediaBox, CropBox, Rotate).
func (d *Document) Inherited(page *DictObj, key string) Object {
	node := page
	for i := 0; node != nil && i < maxResolveDepth; i++ {
		if v, ok := node.Get(key); ok {
			return d.Resolve(v)
		}
		parent, ok := node.Get("Parent")
		if !ok {
			return nil
		}
		node = d.Dict(parent)
	}
	return nil
}

// MaxObjectNum is the largest object number in use.
func (d *Document) MaxObjectNum() int {
	max := 0
	for ref := range d.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	return max
}

// Add stores obj under a fresh object number and returns its reference.
func (d *Document) Add(obj Object) RefObj {
	ref := ObjectRef{Num: d.MaxObjectNum() + 1}
	d.Objects[ref] = obj
	return RefObj{R: ref}
}

// Refs lists object references in ascending order.
func (d *Document) Refs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	return refs
}

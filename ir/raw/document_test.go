package raw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageTreeDoc() *Document {
	doc := NewDocument()
	doc.Objects[ObjectRef{Num: 1}] = &DictObj{KV: map[string]Object{"Type": NameLiteral("Catalog"), "Pages": Ref(2, 0)}}
	doc.Objects[ObjectRef{Num: 2}] = &DictObj{KV: map[string]Object{
		"Type":     NameLiteral("Pages"),
		"Kids":     NewArray(Ref(3, 0), Ref(4, 0), Ref(2, 0)),
		"MediaBox": Numbers(0, 0, 595, 842),
	}}
	doc.Objects[ObjectRef{Num: 3}] = &DictObj{KV: map[string]Object{"Type": NameLiteral("Page"), "Parent": Ref(2, 0)}}
	doc.Objects[ObjectRef{Num: 4}] = &DictObj{KV: map[string]Object{"Type": NameLiteral("Page"), "Parent": Ref(2, 0), "Rotate": NumberInt(0)}}
	doc.Trailer.Set("Root", Ref(1, 0))
	return doc
}

func TestPagesInDocumentOrderIgnoringCycles(t *testing.T) {
	doc := pageTreeDoc()
	pages, err := doc.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 3, pages[0].Ref.Num)
	assert.Equal(t, 4, pages[1].Ref.Num)
}

func TestInheritedAttributes(t *testing.T) {
	doc := pageTreeDoc()
	pages, err := doc.Pages()
	require.NoError(t, err)
	box := doc.Inherited(pages[0].Dict, "MediaBox")
	require.IsType(t, &ArrayObj{}, box)
	assert.Equal(t, 4, box.(*ArrayObj).Len())
	assert.Nil(t, doc.Inherited(pages[0].Dict, "CropBox"))
}

func TestResolveAndAdd(t *testing.T) {
	doc := pageTreeDoc()
	assert.Equal(t, NullObj{}, doc.Resolve(Ref(99, 0)))
	ref := doc.Add(Str([]byte("x")))
	assert.Equal(t, 5, ref.R.Num)
	assert.Equal(t, Str([]byte("x")), doc.Resolve(ref))
	assert.Equal(t, []ObjectRef{{Num: 1}, {Num: 2}, {Num: 3}, {Num: 4}, {Num: 5}}, doc.Refs())
}

func TestPagesWithoutCatalog(t *testing.T) {
	_, err := NewDocument().Pages()
	assert.ErrorIs(t, err, ErrNoCatalog)
}

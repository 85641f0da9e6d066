package backend

import (
	"context"
	"strconv"

	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/fonts"
	"github.com/wudi/pdforganizer/ir/raw"
)

const (
	firstWinAnsi = 32
	lastWinAnsi  = 255
)

// FontRegistry maps font programs to the font objects embedded for them.
// Object numbers survive a save and reopen, so a registry outlives the
// backend that filled it.
type FontRegistry struct {
	refs  map[string]raw.RefObj
	names map[string]string
}

func NewFontRegistry() *FontRegistry {
	return &FontRegistry{refs: make(map[string]raw.RefObj), names: make(map[string]string)}
}

// Len is the number of distinct programs embedded so far.
func (r *FontRegistry) Len() int { return len(r.refs) }

func programKey(p *fonts.Program) string { return p.Source + "|" + p.Name }

// Fonts lists the embedded font programs of every page, deduplicated, in
// the form the font resolver consumes.
func (v *Vector) Fonts(ctx context.Context) ([]fonts.Embedded, error) {
	ex, err := v.extractor()
	if err != nil {
		return nil, err
	}
	var out []fonts.Embedded
	for _, info := range ex.Fonts(ctx) {
		if len(info.Program) == 0 {
			continue
		}
		out = append(out, fonts.Embedded{Name: info.BaseFont, Kind: info.ProgramKind, Data: info.Program})
	}
	return out, nil
}

// fontResource returns the resource name and font object for p, embedding
// the program on first use.
func (v *Vector) fontResource(p *fonts.Program) (string, raw.RefObj, error) {
	reg := v.opts.Fonts
	key := programKey(p)
	if ref, ok := reg.refs[key]; ok && v.doc.Dict(ref) != nil {
		return reg.names[key], ref, nil
	}
	font, err := v.buildFont(p)
	if err != nil {
		return "", raw.RefObj{}, err
	}
	ref := v.doc.Add(font)
	name, ok := reg.names[key]
	if !ok {
		name = "OrgF" + strconv.Itoa(len(reg.names)+1)
	}
	reg.refs[key] = ref
	reg.names[key] = name
	return name, ref, nil
}

// buildFont creates a simple WinAnsi font. Standard 14 programs are
// referenced by name; others are embedded whole.
func (v *Vector) buildFont(p *fonts.Program) (*raw.DictObj, error) {
	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("BaseFont", raw.NameLiteral(p.Name))
	font.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	if p.Kind == fonts.Standard14 {
		font.Set("Subtype", raw.NameLiteral("Type1"))
		return font, nil
	}

	data, err := filters.FlateEncode(p.Data)
	if err != nil {
		return nil, err
	}
	file := raw.Dict()
	file.Set("Filter", raw.NameLiteral("FlateDecode"))
	desc := raw.Dict()
	desc.Set("Type", raw.NameLiteral("FontDescriptor"))
	desc.Set("FontName", raw.NameLiteral(p.Name))
	desc.Set("Flags", raw.NumberInt(32))
	desc.Set("FontBBox", raw.Numbers(p.BBox[:]...))
	desc.Set("ItalicAngle", raw.NumberFloat(p.ItalicAngle))
	desc.Set("Ascent", raw.NumberFloat(p.Ascent))
	desc.Set("Descent", raw.NumberFloat(p.Descent))
	desc.Set("CapHeight", raw.NumberFloat(p.CapHeight))
	desc.Set("StemV", raw.NumberInt(80))
	switch p.Kind {
	case fonts.OpenTypeCFF:
		font.Set("Subtype", raw.NameLiteral("Type1"))
		file.Set("Subtype", raw.NameLiteral("OpenType"))
		desc.Set("FontFile3", v.doc.Add(raw.NewStream(file, data)))
	default:
		font.Set("Subtype", raw.NameLiteral("TrueType"))
		file.Set("Length1", raw.NumberInt(int64(len(p.Data))))
		desc.Set("FontFile2", v.doc.Add(raw.NewStream(file, data)))
	}
	font.Set("FontDescriptor", v.doc.Add(desc))
	font.Set("FirstChar", raw.NumberInt(firstWinAnsi))
	font.Set("LastChar", raw.NumberInt(lastWinAnsi))
	font.Set("Widths", raw.Numbers(p.Widths(firstWinAnsi, lastWinAnsi)...))
	return font, nil
}

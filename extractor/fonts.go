package extractor

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdforganizer/contentstream"
	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/observability"
)

const (
	defaultAscent  = 800
	defaultDescent = -200
	// defaultSimpleWidth is used for simple fonts that carry no /Widths
	// (typically unembedded Standard-14 fonts).
	defaultSimpleWidth = 500
	defaultCIDWidth    = 1000
)

// fontDecoder turns shown strings into glyphs for one font resource.
type fontDecoder struct {
	baseFont    string
	subtype     string
	composite   bool
	identity    bool
	toUnicode   *toUnicodeMap
	encoding    *charmap.Charmap
	differences map[byte]string

	firstChar    int
	widths       []float64
	missingWidth float64
	widthScale   float64
	defaultWidth float64
	cidWidths    map[int]float64

	ascent, descent float64
}

var _ contentstream.Font = (*fontDecoder)(nil)

func (f *fontDecoder) Ascent() float64  { return f.ascent }
func (f *fontDecoder) Descent() float64 { return f.descent }

func (f *fontDecoder) Glyphs(s []byte) []contentstream.Glyph {
	codes := f.codes(s)
	out := make([]contentstream.Glyph, 0, len(codes))
	for _, c := range codes {
		out = append(out, contentstream.Glyph{Code: c, Text: f.text(c), Width: f.width(c)})
	}
	return out
}

func (f *fontDecoder) codes(s []byte) [][]byte {
	var codes [][]byte
	switch {
	case f.composite && !f.identity && f.toUnicode != nil:
		return f.toUnicode.split(s)
	case f.composite:
		for i := 0; i+1 < len(s); i += 2 {
			codes = append(codes, s[i:i+2])
		}
	default:
		for i := range s {
			codes = append(codes, s[i:i+1])
		}
	}
	return codes
}

func (f *fontDecoder) text(code []byte) string {
	if s, ok := f.toUnicode.lookup(code); ok {
		return s
	}
	if f.composite || len(code) != 1 {
		return ""
	}
	if s, ok := f.differences[code[0]]; ok {
		return s
	}
	r := f.encoding.DecodeByte(code[0])
	if r < 0x20 {
		return ""
	}
	return string(r)
}

func (f *fontDecoder) width(code []byte) float64 {
	if f.composite {
		if w, ok := f.cidWidths[bytesToInt(code)]; ok {
			return w
		}
		return f.defaultWidth
	}
	if f.widths == nil {
		return defaultSimpleWidth
	}
	idx := int(code[0]) - f.firstChar
	if idx >= 0 && idx < len(f.widths) {
		return f.widths[idx] * f.widthScale
	}
	return f.missingWidth * f.widthScale
}

// StripSubsetTag removes a subset prefix such as "ABCDEF+" from a font name.
func StripSubsetTag(name string) string {
	if len(name) > 7 && name[6] == '+' {
		for _, c := range name[:6] {
			if c < 'A' || c > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}

func (e *Extractor) fontDecoder(ctx context.Context, obj raw.Object) *fontDecoder {
	if ref, ok := obj.(raw.RefObj); ok {
		if cached, ok := e.fontCache[ref.R]; ok {
			return cached
		}
		decoder := e.parseFontDecoder(ctx, obj)
		e.fontCache[ref.R] = decoder
		return decoder
	}
	return e.parseFontDecoder(ctx, obj)
}

func (e *Extractor) parseFontDecoder(ctx context.Context, obj raw.Object) *fontDecoder {
	dict := e.doc.Dict(obj)
	if dict == nil {
		return fallbackDecoder()
	}
	d := fallbackDecoder()
	base, _ := raw.NameOf(e.doc.Get(dict, "BaseFont"))
	d.baseFont = StripSubsetTag(base)
	d.subtype, _ = raw.NameOf(e.doc.Get(dict, "Subtype"))
	if cmap := e.doc.Stream(e.doc.Get(dict, "ToUnicode")); cmap != nil {
		if data, err := e.streamData(ctx, cmap); err == nil && len(data) > 0 {
			d.toUnicode = parseToUnicodeCMap(data)
		}
	}

	descriptorOwner := dict
	if d.subtype == "Type0" {
		d.composite = true
		enc, _ := raw.NameOf(e.doc.Get(dict, "Encoding"))
		d.identity = enc == "" || strings.HasPrefix(enc, "Identity")
		d.defaultWidth = defaultCIDWidth
		if kids := e.doc.Array(e.doc.Get(dict, "DescendantFonts")); kids != nil && len(kids.Items) > 0 {
			if cid := e.doc.Dict(kids.Items[0]); cid != nil {
				descriptorOwner = cid
				if dw, ok := raw.FloatOf(e.doc.Get(cid, "DW")); ok {
					d.defaultWidth = dw
				}
				d.cidWidths = e.cidWidths(e.doc.Array(e.doc.Get(cid, "W")))
			}
		}
	} else {
		e.applySimpleEncoding(d, e.doc.Get(dict, "Encoding"))
		if fc, ok := raw.IntOf(e.doc.Get(dict, "FirstChar")); ok {
			d.firstChar = int(fc)
		}
		if widths := e.doc.Array(e.doc.Get(dict, "Widths")); widths != nil {
			d.widths = make([]float64, len(widths.Items))
			for i, w := range widths.Items {
				d.widths[i], _ = raw.FloatOf(e.doc.Resolve(w))
			}
		}
		if d.subtype == "Type3" {
			if m := e.doc.Array(e.doc.Get(dict, "FontMatrix")); m != nil && len(m.Items) > 0 {
				if sx, ok := raw.FloatOf(e.doc.Resolve(m.Items[0])); ok && sx != 0 {
					d.widthScale = sx * 1000
				}
			}
		}
	}

	if desc := e.doc.Dict(e.doc.Get(descriptorOwner, "FontDescriptor")); desc != nil {
		ascent, _ := raw.FloatOf(e.doc.Get(desc, "Ascent"))
		descent, _ := raw.FloatOf(e.doc.Get(desc, "Descent"))
		if ascent != 0 || descent != 0 {
			d.ascent, d.descent = ascent, descent
		}
		if mw, ok := raw.FloatOf(e.doc.Get(desc, "MissingWidth")); ok {
			d.missingWidth = mw
		}
	}
	return d
}

func fallbackDecoder() *fontDecoder {
	return &fontDecoder{
		encoding:   charmap.Windows1252,
		widthScale: 1,
		ascent:     defaultAscent,
		descent:    defaultDescent,
	}
}

func (e *Extractor) applySimpleEncoding(d *fontDecoder, enc raw.Object) {
	switch v := enc.(type) {
	case raw.NameObj:
		d.encoding = namedEncoding(v.Val)
	case *raw.DictObj:
		if base, ok := raw.NameOf(e.doc.Get(v, "BaseEncoding")); ok {
			d.encoding = namedEncoding(base)
		}
		diffs := e.doc.Array(e.doc.Get(v, "Differences"))
		if diffs == nil {
			return
		}
		d.differences = make(map[byte]string)
		code := 0
		for _, item := range diffs.Items {
			switch it := e.doc.Resolve(item).(type) {
			case raw.NumberObj:
				code = int(it.Int())
			case raw.NameObj:
				if code >= 0 && code < 256 {
					if s, ok := glyphNameText(it.Val); ok {
						d.differences[byte(code)] = s
					}
				}
				code++
			}
		}
	}
}

func namedEncoding(name string) *charmap.Charmap {
	if name == "MacRomanEncoding" {
		return charmap.Macintosh
	}
	return charmap.Windows1252
}

// glyphNameText maps the glyph names that matter for question markers and
// plain Latin text, plus the uniXXXX convention.
func glyphNameText(name string) (string, bool) {
	if len(name) == 1 {
		c := name[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return name, true
		}
	}
	if strings.HasPrefix(name, "uni") && len(name) == 7 {
		if v, err := strconv.ParseUint(name[3:], 16, 32); err == nil {
			return string(rune(v)), true
		}
	}
	if s, ok := glyphNames[name]; ok {
		return s, true
	}
	return "", false
}

var glyphNames = map[string]string{
	"space": " ", "period": ".", "parenleft": "(", "parenright": ")",
	"comma": ",", "colon": ":", "semicolon": ";", "hyphen": "-",
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"question": "?", "exclam": "!", "slash": "/", "quoteright": "’",
	"quoteleft": "‘", "quotedbl": "\"", "quotesingle": "'",
	"bracketleft": "[", "bracketright": "]", "equal": "=", "plus": "+",
}

// cidWidths reads a CIDFont /W array: "c [w1 w2 ...]" or "cfirst clast w".
func (e *Extractor) cidWidths(w *raw.ArrayObj) map[int]float64 {
	out := make(map[int]float64)
	if w == nil {
		return out
	}
	items := w.Items
	for i := 0; i < len(items); {
		first, ok := raw.IntOf(e.doc.Resolve(items[i]))
		if !ok || i+1 >= len(items) {
			break
		}
		if arr, ok := e.doc.Resolve(items[i+1]).(*raw.ArrayObj); ok {
			for j, v := range arr.Items {
				out[int(first)+j], _ = raw.FloatOf(e.doc.Resolve(v))
			}
			i += 2
			continue
		}
		if i+2 >= len(items) {
			break
		}
		last, _ := raw.IntOf(e.doc.Resolve(items[i+1]))
		width, _ := raw.FloatOf(e.doc.Resolve(items[i+2]))
		if last-first > 0xFFFF {
			break
		}
		for c := first; c <= last; c++ {
			out[int(c)] = width
		}
		i += 3
	}
	return out
}

// FontInfo describes one distinct font dictionary referenced by the pages.
type FontInfo struct {
	ResourceName string
	BaseFont     string // subset tag stripped
	Subtype      string
	Encoding     string
	// Program holds the decoded FontFile, FontFile2 or FontFile3 bytes; nil
	// when the font is not embedded.
	Program     []byte
	ProgramKind string
	Pages       []int
}

// Fonts reports the distinct fonts referenced by page resources.
func (e *Extractor) Fonts(ctx context.Context) []FontInfo {
	fontMap := make(map[*raw.DictObj]*FontInfo)
	var order []*raw.DictObj
	for idx, page := range e.pages {
		resDict := e.doc.Dict(e.doc.Inherited(page.Dict, "Resources"))
		if resDict == nil {
			continue
		}
		fontDict := e.doc.Dict(e.doc.Get(resDict, "Font"))
		if fontDict == nil {
			continue
		}
		for _, name := range fontDict.Keys() {
			dict := e.doc.Dict(e.doc.Get(fontDict, name))
			if dict == nil {
				continue
			}
			info, ok := fontMap[dict]
			if !ok {
				info = e.fontInfo(ctx, name, dict)
				fontMap[dict] = info
				order = append(order, dict)
			}
			if n := len(info.Pages); n == 0 || info.Pages[n-1] != idx {
				info.Pages = append(info.Pages, idx)
			}
		}
	}
	out := make([]FontInfo, 0, len(order))
	for _, dict := range order {
		out = append(out, *fontMap[dict])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BaseFont == out[j].BaseFont {
			return out[i].ResourceName < out[j].ResourceName
		}
		return out[i].BaseFont < out[j].BaseFont
	})
	return out
}

func (e *Extractor) fontInfo(ctx context.Context, resName string, dict *raw.DictObj) *FontInfo {
	base, _ := raw.NameOf(e.doc.Get(dict, "BaseFont"))
	subtype, _ := raw.NameOf(e.doc.Get(dict, "Subtype"))
	encoding, _ := raw.NameOf(e.doc.Get(dict, "Encoding"))
	info := &FontInfo{
		ResourceName: resName,
		BaseFont:     StripSubsetTag(base),
		Subtype:      subtype,
		Encoding:     encoding,
	}
	owner := dict
	if subtype == "Type0" {
		if kids := e.doc.Array(e.doc.Get(dict, "DescendantFonts")); kids != nil && len(kids.Items) > 0 {
			if cid := e.doc.Dict(kids.Items[0]); cid != nil {
				owner = cid
			}
		}
	}
	desc := e.doc.Dict(e.doc.Get(owner, "FontDescriptor"))
	if desc == nil {
		return info
	}
	for _, key := range []string{"FontFile2", "FontFile3", "FontFile"} {
		st := e.doc.Stream(e.doc.Get(desc, key))
		if st == nil {
			continue
		}
		data, err := e.streamData(ctx, st)
		if err != nil {
			e.log.Debug("font program undecodable", observability.String("font", info.BaseFont), observability.Error("error", err))
			continue
		}
		info.Program = data
		info.ProgramKind = key
		break
	}
	return info
}

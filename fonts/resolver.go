package fonts

import (
	"bytes"
	"strings"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdforganizer/observability"
)

// Embedded is a font program carried by the document.
type Embedded struct {
	Name string // BaseFont, subset tag stripped
	// Kind is the descriptor key the program came from: FontFile,
	// FontFile2 or FontFile3.
	Kind string
	Data []byte
}

// usable reports programs that can be parsed as sfnt files. Type 1 and
// bare CFF programs have no cmap to check glyph coverage against.
func (e Embedded) usable() bool {
	switch e.Kind {
	case "FontFile2":
		return len(e.Data) > 0
	case "FontFile3":
		return bytes.HasPrefix(e.Data, []byte("OTTO")) || bytes.HasPrefix(e.Data, []byte{0, 1, 0, 0})
	}
	return false
}

const bundledKey = "bundled:goregular"

// Resolver walks the font chain: embedded programs matching the original
// font name, fallback files, the bundled Go font, then the built-in default.
type Resolver struct {
	Embedded  []Embedded
	Fallbacks []string
	Locator   *Locator
	Cache     *Cache
	Logger    observability.Logger
}

// Vector picks a program able to draw text for a word set in fontName.
// It never fails; the last resort is Helvetica.
func (r *Resolver) Vector(fontName, text string) *Program {
	log := observability.OrNop(r.Logger)
	for _, p := range r.candidates(fontName, false) {
		if p.Covers(text) {
			return p
		}
		log.Debug(observability.EventFontFallback,
			observability.String("font", p.Name),
			observability.String("source", p.Source),
			observability.String("reason", "missing glyphs"))
	}
	log.Debug(observability.EventFontFallback, observability.String("font", Helvetica.Name), observability.String("source", "builtin"))
	return Helvetica
}

// Raster picks a face of the given pixel size able to draw text. Without
// a font name every usable embedded program is tried in catalog order.
func (r *Resolver) Raster(fontName, text string, size float64) xfont.Face {
	log := observability.OrNop(r.Logger)
	for _, p := range r.candidates(fontName, fontName == "") {
		if !p.Covers(text) {
			continue
		}
		face, err := r.cache().Face(p, size)
		if err != nil {
			log.Debug(observability.EventFontFallback, observability.String("font", p.Name), observability.Error("error", err))
			continue
		}
		return face
	}
	log.Debug(observability.EventFontFallback, observability.String("font", "basicfont"), observability.String("source", "builtin"))
	return DefaultRasterFace
}

// candidates lists loadable programs in chain order. Embedded programs
// must carry fontName in their name unless anyEmbedded is set.
func (r *Resolver) candidates(fontName string, anyEmbedded bool) []*Program {
	log := observability.OrNop(r.Logger)
	cache := r.cache()
	var out []*Program
	if fontName != "" || anyEmbedded {
		for _, e := range r.Embedded {
			if !e.usable() || !(anyEmbedded || strings.Contains(e.Name, fontName)) {
				continue
			}
			data := e.Data
			p, err := cache.Program("embedded:"+e.Name, e.Name, func() ([]byte, error) { return data, nil })
			if err != nil {
				log.Debug(observability.EventFontFallback, observability.String("font", e.Name), observability.Error("error", err))
				continue
			}
			out = append(out, p)
		}
	}
	if r.Locator != nil {
		for _, name := range r.Fallbacks {
			path, ok := r.Locator.Find(name)
			if !ok {
				log.Debug(observability.EventFontFallback, observability.String("font", name), observability.String("reason", "not found"))
				continue
			}
			p, err := cache.Program("file:"+path, "", func() ([]byte, error) { return cache.ReadFile(path) })
			if err != nil {
				log.Debug(observability.EventFontFallback, observability.String("font", path), observability.Error("error", err))
				continue
			}
			out = append(out, p)
		}
	}
	if p, err := cache.Program(bundledKey, "GoRegular", func() ([]byte, error) { return goregular.TTF, nil }); err == nil {
		out = append(out, p)
	}
	return out
}

func (r *Resolver) cache() *Cache {
	if r.Cache == nil {
		r.Cache = NewCache()
	}
	return r.Cache
}

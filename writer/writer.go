package writer

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/ir/raw"
)

type PDFVersion string

const (
	PDF17 PDFVersion = "1.7"
)

type Config struct {
	// Version overrides the header version; empty keeps the document's own.
	Version PDFVersion
	// Garbage drops objects that are unreachable from the trailer.
	Garbage bool
	// Compress flate-encodes streams that carry no filter yet.
	Compress bool
	// Deterministic derives the file ID from the document instead of randomness.
	Deterministic bool
}

// Write serializes doc as a complete (non-incremental) PDF file.
func Write(ctx context.Context, doc *raw.Document, out io.Writer, cfg Config) error {
	if doc.Trailer == nil {
		return fmt.Errorf("write: %w", raw.ErrNoCatalog)
	}
	root, ok := doc.Trailer.Get("Root")
	if !ok {
		return fmt.Errorf("write: %w", raw.ErrNoCatalog)
	}

	refs := doc.Refs()
	if cfg.Garbage {
		refs = reachable(doc)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", pdfVersion(doc, cfg))
	offsets := make(map[int]int64, len(refs))
	maxObjNum := 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		obj := doc.Objects[ref]
		if skipObject(obj) {
			continue
		}
		if st, ok := obj.(*raw.StreamObj); ok {
			var err error
			if obj, err = prepareStream(st, cfg); err != nil {
				return fmt.Errorf("write object %d: %w", ref.Num, err)
			}
		}
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(SerializeIndirect(ref, obj))
		if ref.Num > maxObjNum {
			maxObjNum = ref.Num
		}
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := buildTrailer(doc, maxObjNum+1, root, fileID(doc, cfg))
	buf.WriteString("trailer\n")
	buf.Write(Serialize(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

// Bytes is Write into a fresh buffer.
func Bytes(ctx context.Context, doc *raw.Document, cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(ctx, doc, &buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfVersion(doc *raw.Document, cfg Config) string {
	if cfg.Version != "" {
		return string(cfg.Version)
	}
	if doc.Version != "" {
		return doc.Version
	}
	return string(PDF17)
}

// skipObject drops containers whose content was already inflated into the
// object table (object streams) or is regenerated (xref streams).
func skipObject(obj raw.Object) bool {
	st, ok := obj.(*raw.StreamObj)
	if !ok {
		return false
	}
	typ, _ := raw.NameOf(dictValue(st.Dict, "Type"))
	return typ == "ObjStm" || typ == "XRef"
}

func dictValue(d *raw.DictObj, key string) raw.Object {
	v, _ := d.Get(key)
	return v
}

// prepareStream returns a copy with a correct /Length, compressing when asked.
func prepareStream(st *raw.StreamObj, cfg Config) (*raw.StreamObj, error) {
	dict := st.Dict.Clone()
	data := st.Data
	if _, filtered := dict.Get("Filter"); cfg.Compress && !filtered && len(data) > 0 {
		enc, err := filters.FlateEncode(data)
		if err != nil {
			return nil, err
		}
		data = enc
		dict.Set("Filter", raw.NameLiteral("FlateDecode"))
		dict.Delete("DecodeParms")
	}
	dict.Set("Length", raw.NumberInt(int64(len(data))))
	return raw.NewStream(dict, data), nil
}

// reachable walks the object graph from the trailer and returns the live refs in order.
func reachable(doc *raw.Document) []raw.ObjectRef {
	live := make(map[raw.ObjectRef]bool)
	var visit func(o raw.Object)
	visit = func(o raw.Object) {
		switch v := o.(type) {
		case raw.RefObj:
			if live[v.R] {
				return
			}
			target, ok := doc.Objects[v.R]
			if !ok {
				return
			}
			live[v.R] = true
			visit(target)
		case *raw.ArrayObj:
			for _, it := range v.Items {
				visit(it)
			}
		case *raw.DictObj:
			for _, k := range v.Keys() {
				visit(v.KV[k])
			}
		case *raw.StreamObj:
			visit(v.Dict)
		}
	}
	for _, k := range []string{"Root", "Info"} {
		if v, ok := doc.Trailer.Get(k); ok {
			visit(v)
		}
	}
	var out []raw.ObjectRef
	for _, ref := range doc.Refs() {
		if live[ref] {
			out = append(out, ref)
		}
	}
	return out
}

func buildTrailer(doc *raw.Document, size int, root raw.Object, ids [2][]byte) *raw.DictObj {
	trailer := raw.Dict()
	trailer.Set("Size", raw.NumberInt(int64(size)))
	trailer.Set("Root", root)
	if info, ok := doc.Trailer.Get("Info"); ok {
		if _, isRef := info.(raw.RefObj); !isRef || doc.Resolve(info) != (raw.NullObj{}) {
			trailer.Set("Info", info)
		}
	}
	trailer.Set("ID", raw.NewArray(
		raw.StringObj{Bytes: ids[0], Hex: true},
		raw.StringObj{Bytes: ids[1], Hex: true},
	))
	return trailer
}

// fileID keeps the permanent first identifier of an existing file and
// generates a fresh second one.
func fileID(doc *raw.Document, cfg Config) [2][]byte {
	seed := deterministicIDSeed(doc)
	first := seed
	if arr := doc.Array(dictValue(doc.Trailer, "ID")); arr != nil && arr.Len() > 0 {
		if s, ok := doc.Resolve(arr.Items[0]).(raw.StringObj); ok && len(s.Bytes) > 0 {
			first = s.Bytes
		}
	}
	if cfg.Deterministic {
		return [2][]byte{first, seed}
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		id = seed
	}
	return [2][]byte{first, id}
}

func deterministicIDSeed(doc *raw.Document) []byte {
	h := sha256.New()
	h.Write([]byte(doc.Version))
	fmt.Fprintf(h, "%d", len(doc.Objects))
	for _, ref := range doc.Refs() {
		fmt.Fprintf(h, "%d-%d-%s;", ref.Num, ref.Gen, doc.Objects[ref].Type())
	}
	return h.Sum(nil)[:16]
}

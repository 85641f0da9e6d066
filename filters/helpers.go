package filters

import (
	"context"

	"github.com/wudi/pdforganizer/ir/raw"
)

// Resolver dereferences indirect objects found in stream dictionaries.
type Resolver func(raw.Object) raw.Object

// ExtractFilters reads Filter and DecodeParms entries from a stream dictionary.
func ExtractFilters(dict *raw.DictObj, resolve Resolver) ([]string, []*raw.DictObj) {
	if resolve == nil {
		resolve = func(o raw.Object) raw.Object { return o }
	}
	var names []string
	var params []*raw.DictObj

	filterObj, ok := dict.Get("Filter")
	if !ok {
		return names, params
	}

	switch f := resolve(filterObj).(type) {
	case raw.NameObj:
		names = append(names, f.Val)
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := resolve(item).(raw.NameObj); ok {
				names = append(names, n.Val)
			}
		}
	}

	if len(names) > 0 {
		pObj, ok := dict.Get("DecodeParms")
		if !ok {
			pObj, ok = dict.Get("DP")
		}
		if ok {
			switch p := resolve(pObj).(type) {
			case *raw.DictObj:
				params = append(params, p)
			case *raw.ArrayObj:
				for _, item := range p.Items {
					d, _ := resolve(item).(*raw.DictObj)
					params = append(params, d)
				}
			}
		}
	}

	return names, params
}

// IsImageFilter reports filters whose output is an encoded image rather than
// raw samples; those are handed to the image decoder untouched.
func IsImageFilter(name string) bool {
	switch name {
	case "DCTDecode", "JPXDecode", "CCITTFaxDecode", "JBIG2Decode":
		return true
	}
	return false
}

// DecodeStream runs every non-image filter of st and returns the decoded
// bytes along with the image filter left over, if any.
func (p *Pipeline) DecodeStream(ctx context.Context, st *raw.StreamObj, resolve Resolver) ([]byte, string, error) {
	names, params := ExtractFilters(st.Dict, resolve)
	cut := len(names)
	imageFilter := ""
	for i, n := range names {
		if IsImageFilter(n) {
			cut, imageFilter = i, n
			break
		}
	}
	if cut < len(params) {
		params = params[:cut]
	}
	data, err := p.Decode(ctx, st.Data, names[:cut], params)
	if err != nil {
		return nil, "", err
	}
	return data, imageFilter, nil
}

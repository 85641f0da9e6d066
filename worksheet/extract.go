package worksheet

import (
	"context"

	"github.com/wudi/pdforganizer/extractor"
	"github.com/wudi/pdforganizer/ir/raw"
)

// TextSource is the vector view of a document.
type TextSource interface {
	Page(ctx context.Context, index int) (*extractor.PageContent, error)
}

// ImageSource is the raster view of a document.
type ImageSource interface {
	ImageRefs(index int) (map[int]raw.ObjectRef, error)
}

// Extract returns the words and images of page index. Every drawn image
// must have a stream in images; a missing one is an IntegrityError.
func Extract(ctx context.Context, text TextSource, images ImageSource, index int) ([]TextWord, []PageImage, error) {
	content, err := text.Page(ctx, index)
	if err != nil {
		return nil, nil, err
	}
	words := make([]TextWord, 0, len(content.Words))
	for _, w := range content.Words {
		words = append(words, TextWord{
			Text:   w.Text,
			Font:   w.Font,
			Size:   w.Size,
			Rect:   w.Rect,
			Origin: w.Origin,
		})
	}
	if len(content.Images) == 0 {
		return words, nil, nil
	}
	refs, err := images.ImageRefs(index)
	if err != nil {
		return nil, nil, err
	}
	out := make([]PageImage, 0, len(content.Images))
	for _, p := range content.Images {
		ref, ok := refs[p.ID]
		if !ok {
			return nil, nil, &IntegrityError{Page: index + 1, ImageID: p.ID, Backend: "raster"}
		}
		out = append(out, PageImage{ID: p.ID, Stream: ref, Rect: p.Rect})
	}
	return words, out, nil
}

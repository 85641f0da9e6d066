package filters

import (
	"bytes"
	"compress/zlib"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/ir/raw"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	out, err := NewFlateDecoder().Decode(context.Background(), deflate(t, []byte("hello world")), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestFlateEncodeRoundTrip(t *testing.T) {
	enc, err := FlateEncode([]byte("BT /F1 12 Tf (1.) Tj ET"))
	require.NoError(t, err)
	out, err := NewFlateDecoder().Decode(context.Background(), enc, nil)
	require.NoError(t, err)
	assert.Equal(t, "BT /F1 12 Tf (1.) Tj ET", string(out))
}

func TestFlateDecodeWithPredictor(t *testing.T) {
	params := raw.Dict()
	params.Set("Predictor", raw.NumberInt(12))
	params.Set("Colors", raw.NumberInt(1))
	params.Set("BitsPerComponent", raw.NumberInt(8))
	params.Set("Columns", raw.NumberInt(3))

	tests := []struct {
		name string
		rows []byte
		want []byte
	}{
		{"sub", []byte{1, 10, 2, 8}, []byte{10, 12, 20}},
		{"up", []byte{0, 1, 2, 3, 2, 1, 1, 1}, []byte{1, 2, 3, 2, 3, 4}},
		{"average", []byte{0, 4, 4, 4, 3, 1, 1, 1}, []byte{4, 4, 4, 3, 4, 5}},
		{"paeth", []byte{0, 5, 6, 7, 4, 0, 0, 0}, []byte{5, 6, 7, 5, 6, 7}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := NewFlateDecoder().Decode(context.Background(), deflate(t, tc.rows), params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestTIFFPredictor(t *testing.T) {
	params := raw.Dict()
	params.Set("Predictor", raw.NumberInt(2))
	params.Set("Colors", raw.NumberInt(1))
	params.Set("Columns", raw.NumberInt(3))
	out, err := NewFlateDecoder().Decode(context.Background(), deflate(t, []byte{1, 1, 1, 5, 1, 1}), params)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 5, 6, 7}, out)
}

func TestASCIIDecoders(t *testing.T) {
	out, err := NewASCIIHexDecoder().Decode(context.Background(), []byte("48 65\n6c6c 6>"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hell`", string(out))

	out, err = NewASCII85Decoder().Decode(context.Background(), []byte("<~87cURD]i,\"Ebo7~>"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(out))
}

func TestRunLengthDecode(t *testing.T) {
	out, err := NewRunLengthDecoder().Decode(context.Background(), []byte{2, 'a', 'b', 'c', 254, 'x', 128}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abcxxx", string(out))
}

func TestPipelineStopsAtImageFilter(t *testing.T) {
	hexed := []byte("FFD8FF>")
	dict := raw.Dict()
	dict.Set("Filter", raw.NewArray(raw.NameLiteral("ASCIIHexDecode"), raw.NameLiteral("DCTDecode")))
	data, imgFilter, err := Default().DecodeStream(context.Background(), raw.NewStream(dict, hexed), nil)
	require.NoError(t, err)
	assert.Equal(t, "DCTDecode", imgFilter)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)
}

func TestPipelineUnknownFilter(t *testing.T) {
	_, err := Default().Decode(context.Background(), []byte("x"), []string{"LZWDecode"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
}

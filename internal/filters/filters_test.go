package filters

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	want := []byte("stream content that compresses, compresses, compresses")
	got, err := FlateDecode(zlibCompress(t, want), nil)
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFlateDecodeRejectsGarbage(t *testing.T) {
	if _, err := FlateDecode([]byte("not zlib data"), nil); err == nil {
		t.Error("expected an error for non-zlib input")
	}
}

func TestFlateDecodePNGUpPredictor(t *testing.T) {
	// Two rows of four bytes. Row one uses None, row two uses Up, so
	// its decoded samples are the sums of the columns.
	raw := []byte{
		0, 1, 2, 3, 4,
		2, 10, 10, 10, 10,
	}
	params := Params{"Predictor": 12, "Columns": 4, "Colors": 1}
	got, err := FlateDecode(zlibCompress(t, raw), params)
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	want := []byte{1, 2, 3, 4, 11, 12, 13, 14}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlateDecodePNGSubPredictor(t *testing.T) {
	raw := []byte{1, 5, 1, 1, 1}
	params := Params{"Predictor": 11, "Columns": 4, "Colors": 1}
	got, err := FlateDecode(zlibCompress(t, raw), params)
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	want := []byte{5, 6, 7, 8}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTIFFPredictor(t *testing.T) {
	raw := []byte{3, 1, 1, 1}
	params := Params{"Predictor": 2, "Columns": 4, "Colors": 1}
	got, err := FlateDecode(zlibCompress(t, raw), params)
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	want := []byte{3, 4, 5, 6}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "48656C6C6F", "Hello"},
		{"whitespace", "48 65 6c\n6c 6f", "Hello"},
		{"eod marker", "4869>trailing", "Hi"},
		{"odd digit pads", "486>", "H`"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ASCIIHexDecode([]byte(tc.in))
			if err != nil {
				t.Fatalf("ASCIIHexDecode: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestASCIIHexDecodeRejectsNonHex(t *testing.T) {
	if _, err := ASCIIHexDecode([]byte("48xy")); err == nil {
		t.Error("expected an error for non-hex input")
	}
}

func TestASCII85Decode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full group", "ARTY*", "easy"},
		{"with eod", "ARTY*~>", "easy"},
		{"partial group", "BOu!rD]j7BEbk", "hello worl"},
		{"z shorthand", "z", "\x00\x00\x00\x00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ASCII85Decode([]byte(tc.in))
			if err != nil {
				t.Fatalf("ASCII85Decode: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"

	"github.com/foliokit/folio/internal/filters"
)

// decodeStream applies the stream's filter chain and returns the
// decoded bytes. DCTDecode data is returned as-is: it is a complete
// JPEG image, which is what image extraction wants.
func (d *Document) decodeStream(s *Stream) ([]byte, error) {
	data := s.Data

	var chain []Name
	switch f := d.resolve(s.Dict["Filter"]).(type) {
	case Name:
		chain = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := d.resolve(item).(Name); ok {
				chain = append(chain, n)
			}
		}
	}

	parms := d.decodeParms(s.Dict, len(chain))
	for i, filter := range chain {
		var err error
		switch filter {
		case "FlateDecode", "Fl":
			data, err = filters.FlateDecode(data, parms[i])
		case "ASCIIHexDecode", "AHx":
			data, err = filters.ASCIIHexDecode(data)
		case "ASCII85Decode", "A85":
			data, err = filters.ASCII85Decode(data)
		case "DCTDecode", "JPXDecode":
			return data, nil
		default:
			return nil, fmt.Errorf("unsupported stream filter %s", filter)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filter, err)
		}
	}
	return data, nil
}

// decodeParms pairs each filter in the chain with its parameter
// dictionary, translated into the filters package's parameter map.
func (d *Document) decodeParms(dict Dict, n int) []filters.Params {
	out := make([]filters.Params, n)

	fill := func(i int, obj Object) {
		pd, ok := d.resolve(obj).(Dict)
		if !ok || i >= n {
			return
		}
		p := filters.Params{}
		for key, val := range pd {
			if v, ok := d.resolve(val).(Int); ok {
				p[key] = int(v)
			}
		}
		out[i] = p
	}

	parms := d.resolve(dict["DecodeParms"])
	if parms == nil {
		parms = d.resolve(dict["DP"])
	}
	switch v := parms.(type) {
	case Dict:
		fill(0, v)
	case Array:
		for i, item := range v {
			fill(i, item)
		}
	}
	return out
}

// flateEncode compresses data as a FlateDecode stream body.
func flateEncode(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

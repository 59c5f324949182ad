/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

// Stream payload decoding, trimmed to what the resolver itself needs to
// expand xref streams and object streams: those are virtually always
// Flate-encoded, occasionally with a PNG or TIFF predictor, and occasionally
// LZW or one of the ASCII transport filters instead. Image-only filters
// (DCTDecode, CCITTFaxDecode, JBIG2Decode, JPXDecode) decode pixel data the
// resolver never needs to look inside, so they are not implemented here.

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"

	lzw0 "compress/lzw"

	lzw1 "golang.org/x/image/tiff/lzw"
)

// Filter names recognized in a stream's /Filter entry.
const (
	FilterFlate     = "FlateDecode"
	FilterLZW       = "LZWDecode"
	FilterRunLength = "RunLengthDecode"
	FilterASCIIHex  = "ASCIIHexDecode"
	FilterASCII85   = "ASCII85Decode"
)

// Predictor algorithm ids, table 8 of ISO 32000-1.
const (
	predictorNone = 1
	predictorTIFF = 2
	predictorPNGMin = 10
)

// predictorParams captures the /DecodeParms entries relevant to the
// predictor post-processing step.
type predictorParams struct {
	Predictor int
	Colors    int
	Columns   int
}

func predictorParamsFromDict(dict *PdfObjectDictionary) predictorParams {
	p := predictorParams{Predictor: predictorNone, Colors: 1, Columns: 1}
	if dict == nil {
		return p
	}
	if v, ok := GetIntVal(dict.Get("Predictor")); ok {
		p.Predictor = v
	}
	if v, ok := GetIntVal(dict.Get("Colors")); ok {
		p.Colors = v
	}
	if v, ok := GetIntVal(dict.Get("Columns")); ok {
		p.Columns = v
	}
	return p
}

// decodeParmsDict resolves a stream's /DecodeParms entry to a single
// dictionary, unwrapping the common single-element-array form some writers
// use even for a lone filter.
func decodeParmsDict(dict *PdfObjectDictionary) *PdfObjectDictionary {
	obj := TraceToDirectObject(dict.Get("DecodeParms"))
	switch t := obj.(type) {
	case *PdfObjectDictionary:
		return t
	case *PdfObjectArray:
		if t.Len() >= 1 {
			if d, ok := GetDict(t.Get(0)); ok {
				return d
			}
		}
	}
	return nil
}

// filterNames returns the stream's /Filter entry normalized to a slice,
// since it may be a single name or an array of names applied in sequence.
func filterNames(dict *PdfObjectDictionary) []string {
	obj := TraceToDirectObject(dict.Get("Filter"))
	switch t := obj.(type) {
	case *PdfObjectName:
		return []string{string(*t)}
	case *PdfObjectArray:
		var names []string
		for _, el := range t.Elements() {
			if n, ok := GetNameVal(el); ok {
				names = append(names, n)
			}
		}
		return names
	}
	return nil
}

// DecodeStream fully decodes stream's payload, applying every filter named
// in its /Filter entry in order and a trailing predictor pass where /Decode
// Parms calls for one. An unsupported filter (an image codec, most likely)
// returns the bytes as decoded by the filters before it in the chain (the
// raw payload when it is the first) alongside the error so a caller that
// only needs the stream dictionary can still proceed.
func DecodeStream(stream *PdfObjectStream) ([]byte, error) {
	data := stream.Stream
	for _, name := range filterNames(stream.PdfObjectDictionary) {
		var err error
		switch name {
		case FilterFlate:
			data, err = decodeFlate(data)
			if err == nil {
				data, err = applyPredictor(data, decodeParmsDict(stream.PdfObjectDictionary))
			}
		case FilterLZW:
			data, err = decodeLZW(data, stream.PdfObjectDictionary)
			if err == nil {
				data, err = applyPredictor(data, decodeParmsDict(stream.PdfObjectDictionary))
			}
		case FilterASCIIHex:
			data, err = decodeASCIIHex(data)
		case FilterASCII85:
			data, err = decodeASCII85(data)
		case FilterRunLength:
			data, err = decodeRunLength(data)
		default:
			return data, errf(KindIO, "unsupported stream filter %q", name)
		}
		if err != nil {
			return data, err
		}
	}
	return data, nil
}

func decodeFlate(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return []byte{}, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(encoded))
	if err != nil {
		return nil, errf(KindIO, "flate: %v", err)
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, errf(KindIO, "flate: %v", err)
	}
	return out.Bytes(), nil
}

func decodeLZW(encoded []byte, dict *PdfObjectDictionary) ([]byte, error) {
	earlyChange := 1
	if v, ok := GetIntVal(dict.Get("EarlyChange")); ok {
		earlyChange = v
	}

	var rc io.ReadCloser
	if earlyChange == 1 {
		rc = lzw1.NewReader(bytes.NewReader(encoded), lzw1.MSB, 8)
	} else {
		rc = lzw0.NewReader(bytes.NewReader(encoded), lzw0.MSB, 8)
	}
	defer rc.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(rc); err != nil {
		return nil, errf(KindIO, "lzw: %v", err)
	}
	return out.Bytes(), nil
}

func decodeASCIIHex(encoded []byte) ([]byte, error) {
	var clean bytes.Buffer
	for _, b := range encoded {
		if b == '>' {
			break
		}
		if !IsWhiteSpace(b) {
			clean.WriteByte(b)
		}
	}
	digits := clean.String()
	if len(digits)%2 == 1 {
		digits += "0"
	}
	out, err := hex.DecodeString(digits)
	if err != nil {
		return nil, errf(KindIO, "asciihex: %v", err)
	}
	return out, nil
}

func decodeASCII85(encoded []byte) ([]byte, error) {
	var trimmed []byte
	for _, b := range encoded {
		if !IsWhiteSpace(b) {
			trimmed = append(trimmed, b)
		}
	}
	if bytes.HasSuffix(trimmed, []byte("~>")) {
		trimmed = trimmed[:len(trimmed)-2]
	}

	var out bytes.Buffer
	var group [5]byte
	n := 0
	flush := func(count int) error {
		for i := count; i < 5; i++ {
			group[i] = 'u'
		}
		var v uint32
		for _, c := range group {
			if c < '!' || c > 'u' {
				return errf(KindIO, "ascii85: invalid byte %q", c)
			}
			v = v*85 + uint32(c-'!')
		}
		buf := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		out.Write(buf[:count-1])
		return nil
	}

	for _, b := range trimmed {
		if b == 'z' && n == 0 {
			out.Write([]byte{0, 0, 0, 0})
			continue
		}
		group[n] = b
		n++
		if n == 5 {
			if err := flush(5); err != nil {
				return nil, err
			}
			n = 0
		}
	}
	if n > 0 {
		if err := flush(n); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

func decodeRunLength(encoded []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(encoded) {
		length := encoded[i]
		i++
		switch {
		case length == 128:
			return out.Bytes(), nil
		case length < 128:
			end := i + int(length) + 1
			if end > len(encoded) {
				return nil, errf(KindIO, "runlength: literal run exceeds buffer")
			}
			out.Write(encoded[i:end])
			i = end
		default:
			if i >= len(encoded) {
				return nil, errf(KindIO, "runlength: truncated repeat run")
			}
			count := 257 - int(length)
			for j := 0; j < count; j++ {
				out.WriteByte(encoded[i])
			}
			i++
		}
	}
	return out.Bytes(), nil
}

// applyPredictor reverses the PNG or TIFF predictor named in params,
// matching the teacher's postDecodePredict routine; it is a no-op when no
// predictor is in effect.
func applyPredictor(data []byte, parmsDict *PdfObjectDictionary) ([]byte, error) {
	params := predictorParamsFromDict(parmsDict)
	if params.Predictor <= 1 {
		return data, nil
	}
	if params.Columns < 1 {
		params.Columns = 1
	}
	if params.Colors < 1 {
		params.Colors = 1
	}

	if params.Predictor == predictorTIFF {
		rowLength := params.Columns * params.Colors
		if rowLength < 1 || len(data)%rowLength != 0 {
			return nil, errf(KindIO, "predictor: invalid TIFF row length (%d/%d)", len(data), rowLength)
		}
		rows := len(data) / rowLength
		var out bytes.Buffer
		for i := 0; i < rows; i++ {
			row := data[rowLength*i : rowLength*(i+1)]
			for j := params.Colors; j < rowLength; j++ {
				row[j] += row[j-params.Colors]
			}
			out.Write(row)
		}
		return out.Bytes(), nil
	}

	if params.Predictor < predictorPNGMin {
		return nil, errf(KindIO, "predictor: unsupported predictor %d", params.Predictor)
	}

	rowLength := params.Columns*params.Colors + 1
	if rowLength <= 1 || len(data)%rowLength != 0 {
		return nil, errf(KindIO, "predictor: invalid PNG row length (%d/%d)", len(data), rowLength)
	}
	rows := len(data) / rowLength

	var out bytes.Buffer
	prev := make([]byte, rowLength)
	bpp := params.Colors
	for i := 0; i < rows; i++ {
		row := data[rowLength*i : rowLength*(i+1)]
		switch row[0] {
		case 0: // None.
		case 1: // Sub.
			for j := 1 + bpp; j < rowLength; j++ {
				row[j] += row[j-bpp]
			}
		case 2: // Up.
			for j := 1; j < rowLength; j++ {
				row[j] += prev[j]
			}
		case 3: // Average.
			for j := 1; j < bpp+1; j++ {
				row[j] += prev[j] / 2
			}
			for j := bpp + 1; j < rowLength; j++ {
				row[j] += byte((int(row[j-bpp]) + int(prev[j])) / 2)
			}
		case 4: // Paeth.
			for j := 1; j < rowLength; j++ {
				var a, b, c byte
				b = prev[j]
				if j >= bpp+1 {
					a = row[j-bpp]
					c = prev[j-bpp]
				}
				row[j] += paeth(a, b, c)
			}
		default:
			return nil, errf(KindIO, "predictor: invalid PNG filter byte %d at row %d", row[0], i)
		}
		copy(prev, row)
		out.Write(row[1:])
	}
	return out.Bytes(), nil
}

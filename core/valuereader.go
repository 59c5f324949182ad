/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"io"
	"strconv"

	"github.com/foxyutils/pdfcore/common"
)

// valueReader implements the grammar in spec.md §4.3: null, bool, int, real,
// name, string, array, dict, indirect reference, and the "N G obj ... obj
// end" / stream constructs, built on top of the tokenizer.
type valueReader struct {
	tok *tokenizer
	f   *File
}

func newValueReader(r *reader, f *File) *valueReader {
	return &valueReader{tok: newTokenizer(r), f: f}
}

// ParseNumber parses a PDF numeric literal (already isolated as a token
// value) into either a *PdfObjectInteger or a *PdfObjectFloat.
func ParseNumber(s string) PdfObject {
	isFloat := false
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			isFloat = true
			break
		}
	}
	if isFloat {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			common.Log.Debug("malformed number %q, using 0.0", s)
			v = 0
		}
		return MakeFloat(v)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		common.Log.Debug("malformed number %q, using 0", s)
		v = 0
	}
	return MakeInteger(v)
}

// ParseValue reads one direct (or indirect-reference) value at the current
// position.
func (v *valueReader) ParseValue() (PdfObject, error) {
	tok, err := v.tok.NextToken()
	if err != nil {
		return nil, err
	}
	return v.parseValueFrom(tok)
}

func (v *valueReader) parseValueFrom(tok Token) (PdfObject, error) {
	switch tok.Kind {
	case TokenName:
		n := PdfObjectName(tok.Val)
		return &n, nil
	case TokenString:
		return MakeString(tok.Val), nil
	case TokenHexString:
		return MakeHexString(tok.Val), nil
	case TokenArrayOpen:
		return v.parseArray()
	case TokenDictOpen:
		return v.parseDict()
	case TokenNumber:
		return v.parseNumberOrReference(tok)
	case TokenKeyword:
		switch tok.Val {
		case "true":
			return MakeBool(true), nil
		case "false":
			return MakeBool(false), nil
		case "null":
			return MakeNull(), nil
		default:
			return nil, errf(KindMalformedTrailer, "unexpected keyword %q in value position", tok.Val)
		}
	case TokenEOF:
		return nil, io.EOF
	default:
		return nil, errf(KindMalformedTrailer, "unexpected token in value position")
	}
}

// parseNumberOrReference disambiguates "N" from "N G R", the one place the
// grammar needs two tokens of lookahead. Rather than extend the tokenizer's
// pushback to two slots, it snapshots the stream position and rewinds if the
// lookahead does not confirm a reference.
func (v *valueReader) parseNumberOrReference(first Token) (PdfObject, error) {
	mark := v.tok.Tell()

	second, err := v.tok.NextToken()
	if err != nil || second.Kind != TokenNumber {
		v.tok.Seek(mark, io.SeekStart)
		return ParseNumber(first.Val), nil
	}

	third, err := v.tok.NextToken()
	if err != nil || third.Kind != TokenKeyword || third.Val != "R" {
		v.tok.Seek(mark, io.SeekStart)
		return ParseNumber(first.Val), nil
	}

	objNum, _ := strconv.ParseInt(first.Val, 10, 64)
	genNum, _ := strconv.ParseInt(second.Val, 10, 64)
	return &PdfObjectReference{file: v.f, ObjectNumber: objNum, GenerationNumber: genNum}, nil
}

func (v *valueReader) parseArray() (*PdfObjectArray, error) {
	arr := MakeArray()
	for {
		tok, err := v.tok.NextToken()
		if err != nil {
			return arr, err
		}
		if tok.Kind == TokenArrayClose {
			return arr, nil
		}
		if tok.Kind == TokenEOF {
			return arr, errf(KindMalformedTrailer, "unterminated array")
		}
		obj, err := v.parseValueFrom(tok)
		if err != nil {
			return arr, err
		}
		arr.Append(obj)
	}
}

// parseDict reads a "<< ... >>" construct. If immediately followed (after
// whitespace) by the "stream" keyword, the caller (ParseIndirectAt) promotes
// the result to a PdfObjectStream; parseDict itself only ever returns the
// dictionary.
func (v *valueReader) parseDict() (*PdfObjectDictionary, error) {
	dict := MakeDict()
	for {
		tok, err := v.tok.NextToken()
		if err != nil {
			return dict, err
		}
		if tok.Kind == TokenDictClose {
			return dict, nil
		}
		if tok.Kind == TokenEOF {
			return dict, errf(KindMalformedTrailer, "unterminated dictionary")
		}
		if tok.Kind != TokenName {
			return dict, errf(KindMalformedTrailer, "expected name key in dictionary, got %v", tok)
		}
		key := PdfObjectName(tok.Val)

		valTok, err := v.tok.NextToken()
		if err != nil {
			return dict, err
		}
		val, err := v.parseValueFrom(valTok)
		if err != nil {
			return dict, err
		}
		dict.Set(key, val)
	}
}

// ParseIndirectAt parses the "N G obj ... endobj" construct starting at
// offset off, returning the wrapped direct value (or a *PdfObjectStream if a
// stream keyword follows the dictionary). lengthResolver is consulted when
// the stream's /Length entry is itself an indirect reference, since at
// parse time the xref index may not yet be fully populated.
func (v *valueReader) ParseIndirectAt(off int64, lengthResolver func(PdfObject) (int64, error)) (*PdfIndirectObject, error) {
	if _, err := v.tok.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}

	numTok, err := v.tok.NextToken()
	if err != nil {
		return nil, err
	}
	if numTok.Kind != TokenNumber {
		return nil, errf(KindMalformedXref, "indirect object header: expected object number at offset %d", off)
	}
	genTok, err := v.tok.NextToken()
	if err != nil {
		return nil, err
	}
	if genTok.Kind != TokenNumber {
		return nil, errf(KindMalformedXref, "indirect object header: expected generation number at offset %d", off)
	}
	kwTok, err := v.tok.NextToken()
	if err != nil {
		return nil, err
	}
	if kwTok.Kind != TokenKeyword || kwTok.Val != "obj" {
		return nil, errf(KindMalformedXref, "indirect object header: expected 'obj' at offset %d", off)
	}

	objNum, _ := strconv.ParseInt(numTok.Val, 10, 64)
	genNum, _ := strconv.ParseInt(genTok.Val, 10, 64)

	direct, err := v.ParseValue()
	if err != nil {
		return nil, err
	}

	ref := PdfObjectReference{file: v.f, ObjectNumber: objNum, GenerationNumber: genNum}

	if dict, isDict := direct.(*PdfObjectDictionary); isDict {
		if stream, matched, err := v.maybeReadStream(dict, lengthResolver); err != nil {
			return nil, err
		} else if matched {
			stream.PdfObjectReference = ref
			return &PdfIndirectObject{PdfObjectReference: ref, PdfObject: stream}, nil
		}
	}

	return &PdfIndirectObject{PdfObjectReference: ref, PdfObject: direct}, nil
}

// maybeReadStream checks for "stream" immediately following a dictionary and,
// if present, reads the raw payload bounded by /Length, verifying against
// "endstream" and falling back to scanning for the keyword if /Length lies.
func (v *valueReader) maybeReadStream(dict *PdfObjectDictionary, lengthResolver func(PdfObject) (int64, error)) (*PdfObjectStream, bool, error) {
	mark := v.tok.Tell()
	tok, err := v.tok.NextToken()
	if err != nil || tok.Kind != TokenKeyword || tok.Val != "stream" {
		v.tok.Seek(mark, io.SeekStart)
		return nil, false, nil
	}

	pos := v.tok.r.Tell()
	b, err := v.tok.r.ReadByte()
	if err == nil && b == '\r' {
		b, err = v.tok.r.ReadByte()
	}
	if err != nil || b != '\n' {
		v.tok.r.Seek(pos, io.SeekStart)
	}
	start := v.tok.r.Tell()

	lengthObj := dict.Get("Length")
	length, lerr := lengthResolver(lengthObj)
	if lerr != nil || length < 0 {
		common.Log.Debug("stream /Length unusable (%v) - scanning for endstream", lerr)
		length = v.scanForEndstream(start)
	}

	payload := make([]byte, length)
	if _, err := v.tok.r.src.ReadAt(payload, start); err != nil && err != io.EOF {
		return nil, false, errf(KindIO, "read stream payload: %v", err)
	}
	v.tok.Seek(start+length, io.SeekStart)

	v.tok.skipSpacesAndComments()
	endTok, err := v.tok.NextToken()
	if err != nil || endTok.Kind != TokenKeyword || endTok.Val != "endstream" {
		common.Log.Debug("stream at %d: endstream not found where /Length said - rescanning", start)
		length = v.scanForEndstream(start)
		payload = make([]byte, length)
		v.tok.r.src.ReadAt(payload, start)
		v.tok.Seek(start+length, io.SeekStart)
		v.tok.skipSpacesAndComments()
		v.tok.NextToken()
	}

	return &PdfObjectStream{PdfObjectDictionary: dict, Stream: payload}, true, nil
}

func (v *valueReader) scanForEndstream(start int64) int64 {
	const marker = "endstream"
	buf := make([]byte, 4096)
	pos := start
	for {
		n, err := v.tok.r.src.ReadAt(buf, pos)
		chunk := buf[:n]
		if idx := indexOf(chunk, marker); idx >= 0 {
			end := pos + int64(idx)
			if end > start && idx > 0 && (buf[idx-1] == '\n' || buf[idx-1] == '\r') {
				end--
				if end > start && idx > 1 && buf[idx-2] == '\r' {
					end--
				}
			}
			return end - start
		}
		if err != nil || n == 0 {
			size, _ := v.tok.r.src.Size()
			return size - start
		}
		pos += int64(n) - int64(len(marker))
		if pos < start {
			pos = start
		}
	}
}

func indexOf(haystack []byte, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		if string(haystack[i:i+n]) == needle {
			return i
		}
	}
	return -1
}

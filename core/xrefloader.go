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

// maxXrefStreamSize caps /Size in an xref stream, guarding against a
// corrupt value being used to drive an enormous allocation.
const maxXrefStreamSize = 8388607

// maxPrevChainLength bounds how many /Prev links are followed before giving
// up, guarding against a maliciously or accidentally circular chain that
// the seen-offsets check alone might still churn through for a long time.
const maxPrevChainLength = 4096

// locateStartxref scans the final bytes of the file for the "startxref"
// keyword and the byte offset that follows it (spec.md §4.4, step 1). It
// does not attempt repair; that is the caller's fallback.
func locateStartxref(src ByteSource) (int64, error) {
	size, err := src.Size()
	if err != nil {
		return 0, errf(KindIO, "determine file size: %v", err)
	}

	// Matches spec.md §4.3 step 2 literally: only the file's last 32 bytes
	// are scanned for "startxref". A writer that pads past that window with
	// extra whitespace before "%%EOF" is not something this resolver
	// tolerates; see DESIGN.md.
	const tailWindow = 32
	start := size - tailWindow
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := src.ReadAt(buf, start); err != nil && err != io.EOF {
		return 0, errf(KindIO, "read file tail: %v", err)
	}

	idx := lastIndexOf(buf, "startxref")
	if idx < 0 {
		return 0, errf(KindMalformedTrailer, "startxref keyword not found in file tail")
	}

	r, err := newReaderAt(src, start+int64(idx)+int64(len("startxref")))
	if err != nil {
		return 0, err
	}
	tz := newTokenizer(r)
	tok, err := tz.NextToken()
	if err != nil {
		return 0, errf(KindMalformedTrailer, "read startxref offset: %v", err)
	}
	if tok.Kind != TokenNumber {
		return 0, errf(KindMalformedTrailer, "startxref not followed by a number")
	}
	off, err := strconv.ParseInt(tok.Val, 10, 64)
	if err != nil {
		return 0, errf(KindMalformedTrailer, "malformed startxref offset %q", tok.Val)
	}
	return off, nil
}

func lastIndexOf(haystack []byte, needle string) int {
	n := len(needle)
	for i := len(haystack) - n; i >= 0; i-- {
		if string(haystack[i:i+n]) == needle {
			return i
		}
	}
	return -1
}

// loadXrefSection parses the xref construct found at offset off: either a
// classical "xref" table or an xref stream object, per spec.md §4.4.1 and
// §4.4.2.
func (f *File) loadXrefSection(off int64) (*xrefSection, error) {
	r, err := newReaderAt(f.src, off)
	if err != nil {
		return nil, err
	}
	tz := newTokenizer(r)
	tok, err := tz.NextToken()
	if err != nil {
		return nil, errf(KindMalformedXref, "read xref section at %d: %v", off, err)
	}

	if tok.Kind == TokenKeyword && tok.Val == "xref" {
		return f.parseClassicalXrefTable(tz)
	}
	if tok.Kind == TokenNumber {
		return f.parseXrefStream(r, off)
	}
	return nil, errf(KindMalformedXref, "offset %d does not point to an xref table or stream", off)
}

// parseClassicalXrefTable parses the ASCII "xref ... trailer << ... >>"
// construct (spec.md §4.4.1). Every run of entries must be introduced by a
// "first count" subsection header line; anything other than such a header
// or the "trailer" keyword at a subsection boundary (including an entry
// whose header is missing) is rejected as KindMalformedXref.
func (f *File) parseClassicalXrefTable(tz *tokenizer) (*xrefSection, error) {
	sec := &xrefSection{Prev: -1, HybridXRefStm: -1}
	curObjNum := -1

	for {
		tok, err := tz.NextToken()
		if err != nil {
			return nil, errf(KindMalformedXref, "xref table: %v", err)
		}

		if tok.Kind == TokenKeyword && tok.Val == "trailer" {
			dictTok, err := tz.NextToken()
			if err != nil {
				return nil, errf(KindMalformedTrailer, "read trailer dict: %v", err)
			}
			if dictTok.Kind != TokenDictOpen {
				return nil, errf(KindMalformedTrailer, "trailer keyword not followed by a dictionary")
			}
			v := &valueReader{tok: tz, f: f}
			dict, err := v.parseDict()
			if err != nil {
				return nil, errf(KindMalformedTrailer, "parse trailer dict: %v", err)
			}
			sec.Trailer = dict
			if prevObj, ok := GetIntVal(dict.Get("Prev")); ok {
				sec.Prev = int64(prevObj)
			}
			if xstmObj, ok := GetIntVal(dict.Get("XRefStm")); ok {
				sec.HybridXRefStm = int64(xstmObj)
			}
			return sec, nil
		}

		if tok.Kind != TokenNumber {
			return nil, errf(KindMalformedXref, "xref table: expected subsection header or trailer, got %v", tok)
		}
		first, _ := strconv.ParseInt(tok.Val, 10, 64)

		countTok, err := tz.NextToken()
		if err != nil || countTok.Kind != TokenNumber {
			return nil, errf(KindMalformedXref, "xref table: malformed subsection header")
		}
		count, _ := strconv.ParseInt(countTok.Val, 10, 64)
		curObjNum = int(first)

		// Entries are consumed as raw fixed-width 20-byte records (spec
		// §4.4.1), not as generic tokens: a malformed writer's short or long
		// entry line must be caught here rather than silently re-aligning
		// against whatever the tokenizer finds next. Only the single EOL
		// that closes the subsection header line is skipped first; the
		// entries themselves are never re-aligned once this begins.
		tz.pushed = nil
		if err := skipSingleEOL(tz.r); err != nil {
			return nil, errf(KindMalformedXref, "xref table: missing line break after subsection header: %v", err)
		}
		for i := int64(0); i < count; i++ {
			rec, err := readXrefTableEntry(tz.r, curObjNum)
			if err != nil {
				return nil, err
			}
			sec.Records = append(sec.Records, rec)
			curObjNum++
		}
	}
}

// parseXrefStream parses an xref stream object (spec.md §4.4.2): "N G obj
// << ... /W [...] ... >> stream ... endstream". off is the absolute offset
// of the "N" token; r is positioned past it already (loadXrefSection used it
// to decide this was a number, not the "xref" keyword), so ParseIndirectAt
// is handed off, not r.Tell(), to reparse the full object from its start.
func (f *File) parseXrefStream(r *reader, off int64) (*xrefSection, error) {
	v := &valueReader{tok: newTokenizer(r), f: f}
	ind, err := v.ParseIndirectAt(off, f.resolveStreamLength)
	if err != nil {
		return nil, errf(KindMalformedXref, "parse xref stream object: %v", err)
	}
	xs, ok := ind.PdfObject.(*PdfObjectStream)
	if !ok {
		return nil, errf(KindMalformedXref, "xref stream offset does not point to a stream object")
	}

	sizeObj, ok := GetIntVal(xs.Get("Size"))
	if !ok {
		return nil, errf(KindBadXrefStreamParams, "xref stream missing /Size")
	}
	if sizeObj < 0 || sizeObj > maxXrefStreamSize {
		return nil, errf(KindBadXrefStreamParams, "xref stream /Size out of range: %d", sizeObj)
	}

	wArr, ok := GetArray(xs.Get("W"))
	if !ok || wArr.Len() != 3 {
		return nil, errf(KindBadXrefStreamParams, "xref stream /W must be a 3-element array")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		n, ok := GetIntVal(wArr.Get(i))
		if !ok || n < 0 {
			return nil, errf(KindBadXrefStreamParams, "xref stream /W[%d] invalid", i)
		}
		w[i] = n
	}
	if w[1] <= 0 {
		return nil, errf(KindBadXrefStreamParams, "xref stream /W[1] must be > 0, got %d", w[1])
	}
	if w[2] > 2 {
		return nil, errf(KindBadXrefStreamParams, "xref stream /W[2] must be <= 2, got %d", w[2])
	}
	if w[0]+w[1]+w[2] > 32 {
		return nil, errf(KindBadXrefStreamParams, "xref stream /W total width %d exceeds 32", w[0]+w[1]+w[2])
	}

	indexList, err := xrefStreamIndexList(xs.PdfObjectDictionary, sizeObj)
	if err != nil {
		return nil, err
	}

	data, err := DecodeStream(xs)
	if err != nil {
		return nil, errf(KindBadXrefStreamParams, "decode xref stream: %v", err)
	}

	entryWidth := w[0] + w[1] + w[2]
	if entryWidth == 0 {
		return &xrefSection{Trailer: xs.PdfObjectDictionary, Prev: prevOf(xs.PdfObjectDictionary), HybridXRefStm: -1}, nil
	}
	if len(data)/entryWidth < len(indexList) {
		return nil, errf(KindBadXrefStreamParams, "xref stream data too short for /Index coverage")
	}

	sec := &xrefSection{Trailer: xs.PdfObjectDictionary, Prev: prevOf(xs.PdfObjectDictionary), HybridXRefStm: -1}

	for i, objNum := range indexList {
		base := i * entryWidth
		entry := data[base : base+entryWidth]
		field1 := beUint(entry[0:w[0]])
		field2 := beUint(entry[w[0] : w[0]+w[1]])
		field3 := beUint(entry[w[0]+w[1] : entryWidth])

		ftype := field1
		if w[0] == 0 {
			ftype = 1
		}

		switch ftype {
		case 0:
			sec.Records = append(sec.Records, xrefRecord{Kind: xrefKindFree, ObjectNumber: objNum})
		case 1:
			sec.Records = append(sec.Records, xrefRecord{
				Kind: xrefKindOffset, ObjectNumber: objNum, Offset: int64(field2), Generation: int(field3),
			})
		case 2:
			sec.Records = append(sec.Records, xrefRecord{
				Kind: xrefKindInStream, ObjectNumber: objNum,
				StreamObjectNumber: int(field2), StreamIndex: int(field3),
			})
		default:
			common.Log.Debug("xref stream: unrecognized entry type %d for object %d - treating as null", ftype, objNum)
		}
	}

	return sec, nil
}

// skipSingleEOL consumes exactly one line terminator ("\r\n", "\r", or "\n")
// from r, as found after a subsection header's object-count field and before
// its first fixed-width entry.
func skipSingleEOL(r *reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b == '\r' {
		peek, _ := r.Peek(1)
		if len(peek) == 1 && peek[0] == '\n' {
			r.Seek(1, io.SeekCurrent)
		}
		return nil
	}
	if b == '\n' {
		return nil
	}
	return errf(KindMalformedXref, "expected line break, got %q", b)
}

// readXrefTableEntry reads the fixed 20-byte record for objNum directly off
// r (spec.md §4.4.1: "oooooooooo ggggg t\r\n" or one of the "\n"/"\r"-only
// EOL variants some writers produce), returning KindMalformedXref if the
// bytes don't match that shape - including if fewer than 20 bytes remain.
func readXrefTableEntry(r *reader, objNum int) (xrefRecord, error) {
	var buf [20]byte
	n, err := r.Read(buf[:])
	if n != 20 {
		if err == nil {
			err = io.EOF
		}
		return xrefRecord{}, errf(KindMalformedXref, "xref table: entry for object %d is %d bytes, not 20: %v", objNum, n, err)
	}

	if buf[10] != ' ' || buf[16] != ' ' {
		return xrefRecord{}, errf(KindMalformedXref, "xref table: malformed entry for object %d", objNum)
	}
	for i := 0; i < 10; i++ {
		if !IsDecimalDigit(buf[i]) {
			return xrefRecord{}, errf(KindMalformedXref, "xref table: non-digit offset in entry for object %d", objNum)
		}
	}
	for i := 11; i < 16; i++ {
		if !IsDecimalDigit(buf[i]) {
			return xrefRecord{}, errf(KindMalformedXref, "xref table: non-digit generation in entry for object %d", objNum)
		}
	}
	flag := buf[17]
	if flag != 'n' && flag != 'f' {
		return xrefRecord{}, errf(KindMalformedXref, "xref table: invalid in-use flag %q for object %d", flag, objNum)
	}
	eol := buf[18:20]
	validEOL := (eol[0] == '\r' && eol[1] == '\n') ||
		(eol[0] == ' ' && eol[1] == '\n') ||
		(eol[0] == ' ' && eol[1] == '\r') ||
		(eol[0] == '\n' && eol[1] == '\n')
	if !validEOL {
		return xrefRecord{}, errf(KindMalformedXref, "xref table: invalid line terminator in entry for object %d", objNum)
	}

	offset, errOff := strconv.ParseInt(string(buf[0:10]), 10, 64)
	gen, errGen := strconv.Atoi(string(buf[11:16]))
	if errOff != nil || errGen != nil {
		return xrefRecord{}, errf(KindMalformedXref, "xref table: unparseable entry for object %d", objNum)
	}

	if flag == 'n' && offset > 0 {
		return xrefRecord{Kind: xrefKindOffset, ObjectNumber: objNum, Generation: gen, Offset: offset}, nil
	}
	return xrefRecord{Kind: xrefKindFree, ObjectNumber: objNum, Generation: gen}, nil
}

func prevOf(dict *PdfObjectDictionary) int64 {
	if v, ok := GetIntVal(dict.Get("Prev")); ok {
		return int64(v)
	}
	return -1
}

func beUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// xrefStreamIndexList expands /Index into the flat list of object numbers
// the stream's entries correspond to, in order. A missing /Index defaults
// to [0 Size] (table 17, ISO 32000-1).
//
// This build rejects an /Index with more than one subsection pair, matching
// the teacher's historical behavior; see DESIGN.md for the reasoning behind
// keeping that restriction instead of looping over every pair.
func xrefStreamIndexList(dict *PdfObjectDictionary, size int) ([]int, error) {
	indexObj := dict.Get("Index")
	if indexObj == nil {
		list := make([]int, size)
		for i := range list {
			list[i] = i
		}
		return list, nil
	}

	arr, ok := GetArray(indexObj)
	if !ok || arr.Len()%2 != 0 {
		return nil, errf(KindBadXrefStreamParams, "xref stream /Index malformed")
	}
	if arr.Len() != 2 {
		return nil, errf(KindUnsupportedXrefIndex, "xref stream /Index has %d subsection pairs, only one is supported", arr.Len()/2)
	}

	start, ok1 := GetIntVal(arr.Get(0))
	count, ok2 := GetIntVal(arr.Get(1))
	if !ok1 || !ok2 || count < 0 {
		return nil, errf(KindBadXrefStreamParams, "xref stream /Index entries must be non-negative integers")
	}
	list := make([]int, count)
	for i := range list {
		list[i] = start + i
	}
	return list, nil
}

// loadAllXrefSections walks the xref chain starting at the file's
// startxref offset, following /Prev and /XRefStm links, merging every
// section's records into idx with newest-wins precedence, and returns every
// section's trailer newest-first, from which assembleTrailer picks the
// composite trailer. Cycle and length guards keep
// a malformed or adversarial /Prev chain from looping forever.
func (f *File) loadAllXrefSections(startOffset int64) (*objectIndex, []*PdfObjectDictionary, error) {
	idx := newObjectIndex()
	var trailers []*PdfObjectDictionary
	seen := map[int64]bool{}

	offset := startOffset
	for i := 0; i < maxPrevChainLength; i++ {
		if offset < 0 || seen[offset] {
			break
		}
		seen[offset] = true

		sec, err := f.loadXrefSection(offset)
		if err != nil {
			return nil, nil, err
		}
		for _, rec := range sec.Records {
			idx.Add(rec)
			if rec.Kind == xrefKindInStream {
				f.expander.Enqueue(rec.StreamObjectNumber)
			}
		}
		if sec.Trailer != nil {
			trailers = append(trailers, sec.Trailer)
		}

		if sec.HybridXRefStm >= 0 && !seen[sec.HybridXRefStm] {
			seen[sec.HybridXRefStm] = true
			hybrid, err := f.loadXrefSection(sec.HybridXRefStm)
			if err != nil {
				common.Log.Debug("hybrid /XRefStm at %d failed to load: %v - continuing", sec.HybridXRefStm, err)
			} else {
				for _, rec := range hybrid.Records {
					idx.Add(rec)
					if rec.Kind == xrefKindInStream {
						f.expander.Enqueue(rec.StreamObjectNumber)
					}
				}
			}
		}

		offset = sec.Prev
	}

	return idx, trailers, nil
}

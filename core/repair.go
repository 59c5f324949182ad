/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Fallbacks for locating and rebuilding xref information in malformed
// files (spec.md, SUPPLEMENTED FEATURES). Only ever invoked once per Open
// call: if the repaired table is itself unusable, Open fails outright
// rather than repairing recursively.

package core

import (
	"strconv"

	"github.com/foxyutils/pdfcore/common"
)

// repairLocateXref scans backward from the file's end for the last
// standalone "xref" keyword, used when the file's tail holds no "startxref"
// keyword followed by a number. It does not look for xref streams.
func (f *File) repairLocateXref() (int64, error) {
	size, err := f.src.Size()
	if err != nil {
		return 0, errf(KindIO, "repair: determine file size: %v", err)
	}

	const window = 4096
	pos := size
	for pos > 0 {
		start := pos - window
		if start < 0 {
			start = 0
		}
		buf := make([]byte, pos-start)
		if _, err := f.src.ReadAt(buf, start); err != nil {
			return 0, errf(KindIO, "repair: read: %v", err)
		}

		if idx := lastStandaloneXref(buf); idx >= 0 {
			return start + int64(idx), nil
		}

		pos = start
	}

	return 0, errf(KindMalformedTrailer, "repair: no 'xref' keyword found in file")
}

// lastStandaloneXref finds the rightmost "xref" in buf that is bounded by
// whitespace (or buffer edges) on both sides, so it isn't matched inside a
// longer token like "/XRefStm".
func lastStandaloneXref(buf []byte) int {
	const marker = "xref"
	for i := len(buf) - len(marker); i >= 0; i-- {
		if string(buf[i:i+len(marker)]) != marker {
			continue
		}
		beforeOK := i == 0 || IsWhiteSpace(buf[i-1])
		afterOK := i+len(marker) == len(buf) || IsWhiteSpace(buf[i+len(marker)])
		if beforeOK && afterOK {
			return i
		}
	}
	return -1
}

// rebuildXrefsTopDown scans the entire file byte by byte for "N G obj"
// signatures, rebuilding an xref section purely from what it finds. This is
// the last resort when no usable xref table or stream can be located at
// all - it necessarily misses any object that only lives inside an object
// stream, since those never appear as a literal "obj" keyword in the file.
func (f *File) rebuildXrefsTopDown() (*xrefSection, error) {
	size, err := f.src.Size()
	if err != nil {
		return nil, errf(KindIO, "repair: determine file size: %v", err)
	}

	const chunkSize = 1 << 16
	var buf []byte
	var bufBase int64 // absolute file offset of buf[0]
	sec := &xrefSection{Prev: -1, HybridXRefStm: -1}

	var pos int64
	for pos < size {
		n := int64(chunkSize)
		if pos+n > size {
			n = size - pos
		}
		chunk := make([]byte, n)
		if _, err := f.src.ReadAt(chunk, pos); err != nil {
			return nil, errf(KindIO, "repair: read: %v", err)
		}
		buf = append(buf, chunk...)
		pos += n

		consumed := scanForObjSignatures(buf, bufBase, sec)
		if consumed > 0 {
			buf = buf[consumed:]
			bufBase += int64(consumed)
		}
	}

	common.Log.Debug("repair: rebuilt xref table with %d objects", len(sec.Records))
	return sec, nil
}

// scanForObjSignatures finds every "N G obj" occurrence in buf (whose first
// byte sits at absolute offset base) and appends a record for it to sec. It
// returns how many leading bytes of buf may safely be discarded by the
// caller (everything up to the last confirmed match, keeping a small tail
// in case a signature straddles the chunk boundary).
func scanForObjSignatures(buf []byte, base int64, sec *xrefSection) int {
	lastConsumed := 0
	i := 0
	for i+3 <= len(buf) {
		if buf[i] != 'o' || i+3 > len(buf) || string(buf[i:i+3]) != "obj" {
			i++
			continue
		}
		// Walk backward over whitespace, generation number, whitespace,
		// object number.
		j := i - 1
		for j >= 0 && IsWhiteSpace(buf[j]) {
			j--
		}
		genEnd := j + 1
		for j >= 0 && IsDecimalDigit(buf[j]) {
			j--
		}
		genStart := j + 1
		if genStart == genEnd {
			i++
			continue
		}
		for j >= 0 && IsWhiteSpace(buf[j]) {
			j--
		}
		numEnd := j + 1
		for j >= 0 && IsDecimalDigit(buf[j]) {
			j--
		}
		numStart := j + 1
		if numStart == numEnd || (numStart > 0 && !IsWhiteSpace(buf[numStart-1]) && !isObjBoundary(buf[numStart-1])) {
			i++
			continue
		}

		objNum, errN := strconv.Atoi(string(buf[numStart:numEnd]))
		genNum, errG := strconv.Atoi(string(buf[genStart:genEnd]))
		if errN == nil && errG == nil {
			newRec := xrefRecord{
				Kind: xrefKindOffset, ObjectNumber: objNum, Generation: genNum,
				Offset: base + int64(numStart),
			}
			if ri, has := indexRecordIndex(sec, objNum); has {
				if genNum >= sec.Records[ri].Generation {
					sec.Records[ri] = newRec
				}
			} else {
				sec.Records = append(sec.Records, newRec)
			}
		}
		lastConsumed = i
		i += 3
	}
	if lastConsumed == 0 {
		if len(buf) > 32 {
			return len(buf) - 32
		}
		return 0
	}
	return lastConsumed
}

func isObjBoundary(b byte) bool {
	return b == '\n' || b == '\r' || b == 0
}

func indexRecordIndex(sec *xrefSection, objNum int) (int, bool) {
	for i, r := range sec.Records {
		if r.ObjectNumber == objNum {
			return i, true
		}
	}
	return 0, false
}

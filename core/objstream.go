/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"strconv"
	"strings"
)

// maxObjectsPerStream bounds how many compressed objects a single object
// stream may declare, guarding against a /N value chosen to force an
// oversized allocation (spec.md §4.5, KindTooManyObjects).
const maxObjectsPerStream = 1000

// expandedObjectStream holds the already-parsed header table (object
// number -> byte offset within the decoded payload) and the decoded
// payload itself, cached so a stream with several compressed objects is
// only decoded and tokenized once.
type expandedObjectStream struct {
	objNumbers []int
	offsets    []int
	payload    []byte
	first      int
}

// objectStreamExpander implements spec.md §4.5's eager, queue-based
// expansion: every object-stream parent number seen while the xref chain is
// walked gets queued exactly once; after the chain terminates, the queue is
// drained, each parent is decoded in full, and every compressed object it
// declares that the object index places in that parent is parsed and stored
// in the File's object cache. This replaces
// the teacher's lazy per-lookup expansion (lookupObjectViaOS), which only
// ever touched the one compressed object a caller actually asked for.
type objectStreamExpander struct {
	f       *File
	queued  map[int]bool
	pending []int
	cache   map[int]*expandedObjectStream
}

func newObjectStreamExpander(f *File) *objectStreamExpander {
	return &objectStreamExpander{
		f:      f,
		queued: map[int]bool{},
		cache:  map[int]*expandedObjectStream{},
	}
}

// Enqueue marks parentObjNum for expansion, a no-op if already queued.
func (e *objectStreamExpander) Enqueue(parentObjNum int) {
	if e.queued[parentObjNum] {
		return
	}
	e.queued[parentObjNum] = true
	e.pending = append(e.pending, parentObjNum)
}

// Drain eagerly decodes every queued parent so its header table sits in
// e.cache, then parses each object the header declares whose index record
// points into that parent, leaving the value in the File's object cache
// before any caller asks for it. The addressing itself (which parent, which
// index) already came from the xref stream's type-2 entries and lives in the
// object index untouched here; a declared object the index does not place
// in this parent is skipped. A parent that turns out to be missing or
// malformed is fatal - spec.md's dangling-object-stream kind has no
// partial-success mode - so the first such failure aborts the drain and is
// returned to Open.
func (e *objectStreamExpander) Drain() error {
	for len(e.pending) > 0 {
		parentObjNum := e.pending[0]
		e.pending = e.pending[1:]

		expanded, err := e.expand(parentObjNum)
		if err != nil {
			return err
		}
		for _, num := range expanded.objNumbers {
			rec, ok := e.f.idx.Lookup(num)
			if !ok || rec.Kind != xrefKindInStream || rec.StreamObjectNumber != parentObjNum {
				continue
			}
			if _, err := e.f.LookupByNumber(num); err != nil {
				return err
			}
		}
	}
	return nil
}

// expand decodes parentObjNum's payload and tokenizes its header table,
// caching the result.
func (e *objectStreamExpander) expand(parentObjNum int) (*expandedObjectStream, error) {
	if cached, ok := e.cache[parentObjNum]; ok {
		return cached, nil
	}

	obj, err := e.f.LookupByNumber(parentObjNum)
	if err != nil {
		return nil, errf(KindDanglingObjectStream, "parent object stream %d: %v", parentObjNum, err)
	}
	stream, ok := obj.(*PdfObjectStream)
	if !ok {
		return nil, errf(KindDanglingObjectStream, "object %d is not a stream", parentObjNum)
	}
	if typeName, ok := GetNameVal(stream.Get("Type")); !ok || !strings.EqualFold(typeName, "ObjStm") {
		return nil, errf(KindDanglingObjectStream, "object %d has /Type != ObjStm", parentObjNum)
	}

	n, ok := GetIntVal(stream.Get("N"))
	if !ok || n < 0 {
		return nil, errf(KindDanglingObjectStream, "object stream %d missing valid /N", parentObjNum)
	}
	if n > maxObjectsPerStream {
		return nil, errf(KindTooManyObjects, "object stream %d declares %d objects, exceeding the limit of %d", parentObjNum, n, maxObjectsPerStream)
	}
	first, ok := GetIntVal(stream.Get("First"))
	if !ok || first < 0 {
		return nil, errf(KindDanglingObjectStream, "object stream %d missing valid /First", parentObjNum)
	}

	payload, err := DecodeStream(stream)
	if err != nil {
		return nil, errf(KindDanglingObjectStream, "decode object stream %d: %v", parentObjNum, err)
	}

	r := newReaderFromBytes(payload)
	tz := newTokenizer(r)

	objNumbers := make([]int, 0, n)
	offsets := make([]int, 0, n)
	for i := 0; i < n; i++ {
		numTok, err := tz.NextToken()
		if err != nil || numTok.Kind != TokenNumber {
			return nil, errf(KindDanglingObjectStream, "object stream %d: malformed header entry %d", parentObjNum, i)
		}
		offTok, err := tz.NextToken()
		if err != nil || offTok.Kind != TokenNumber {
			return nil, errf(KindDanglingObjectStream, "object stream %d: malformed header entry %d", parentObjNum, i)
		}
		num, _ := strconv.Atoi(numTok.Val)
		off, _ := strconv.Atoi(offTok.Val)
		objNumbers = append(objNumbers, num)
		offsets = append(offsets, off)
	}

	expanded := &expandedObjectStream{objNumbers: objNumbers, offsets: offsets, payload: payload, first: first}
	e.cache[parentObjNum] = expanded
	return expanded, nil
}

// Lookup returns the parsed direct object for objNum within parentObjNum's
// object stream, expanding (or reusing the cached expansion of) the parent
// as needed.
func (e *objectStreamExpander) Lookup(parentObjNum, streamIndex, objNum int) (PdfObject, error) {
	expanded, err := e.expand(parentObjNum)
	if err != nil {
		return nil, err
	}
	if streamIndex < 0 || streamIndex >= len(expanded.offsets) {
		return nil, errf(KindDanglingObjectStream, "object %d: index %d out of range in object stream %d", objNum, streamIndex, parentObjNum)
	}

	off := expanded.first + expanded.offsets[streamIndex]
	r := newReaderFromBytes(expanded.payload)
	if _, err := r.Seek(int64(off), 0); err != nil {
		return nil, err
	}
	v := &valueReader{tok: newTokenizer(r), f: e.f}
	return v.ParseValue()
}

func newReaderFromBytes(data []byte) *reader {
	src := NewByteSourceFromBytes(data)
	r, _ := newReaderAt(src, 0)
	return r
}

/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import "sort"

// xrefKind distinguishes where an object's bytes actually live.
type xrefKind int

const (
	// xrefKindFree marks an object number that the file's own xref table
	// declares free; looking it up resolves to null, not an error.
	xrefKindFree xrefKind = iota
	// xrefKindOffset means the object lives at a direct byte offset.
	xrefKindOffset
	// xrefKindInStream means the object lives inside an object stream.
	xrefKindInStream
)

// xrefRecord is one entry of the Object Index (spec.md §4.6): either a
// direct file offset, or a (parent object stream, index) pair, or a
// tombstone for a free object number.
type xrefRecord struct {
	Kind         xrefKind
	ObjectNumber int
	Generation   int

	Offset int64 // valid when Kind == xrefKindOffset

	StreamObjectNumber int // valid when Kind == xrefKindInStream
	StreamIndex        int // valid when Kind == xrefKindInStream
}

// objectIndex is the append-only, sorted-by-object-number collection of
// xrefRecords described in spec.md §4.6. It never shrinks: later revisions
// (encountered first, since traversal walks newest-to-oldest via /Prev)
// simply shadow older entries for the same object number, and an object
// number is only ever added once - the first writer for a given number wins,
// matching the rule that newer xref sections take precedence over older
// ones referenced through /Prev.
type objectIndex struct {
	byNumber map[int]*xrefRecord
	order    []int // object numbers in insertion order; resorted lazily.
	sorted   bool
}

func newObjectIndex() *objectIndex {
	return &objectIndex{byNumber: map[int]*xrefRecord{}}
}

// Add inserts rec unless an entry already exists for rec.ObjectNumber
// (the newest revision wins because /Prev chains are walked newest-first
// and Add is a no-op on a repeat object number). Free entries are recorded
// in byNumber so they still shadow an in-use entry for the same number in
// an older revision, but per spec a free entry is "ignored" - it never
// occupies a slot in the ordered, countable object list.
func (idx *objectIndex) Add(rec xrefRecord) {
	if _, exists := idx.byNumber[rec.ObjectNumber]; exists {
		return
	}
	idx.byNumber[rec.ObjectNumber] = &rec
	if rec.Kind == xrefKindFree {
		return
	}
	idx.order = append(idx.order, rec.ObjectNumber)
	idx.sorted = false
}

// Lookup returns the record for objNum, if any.
func (idx *objectIndex) Lookup(objNum int) (*xrefRecord, bool) {
	rec, ok := idx.byNumber[objNum]
	return rec, ok
}

// ensureSorted sorts idx.order by object number; called lazily by NumberAt
// so that repeated Add calls during xref traversal stay O(1)
// amortized instead of resorting on every entry.
func (idx *objectIndex) ensureSorted() {
	if idx.sorted {
		return
	}
	sort.Ints(idx.order)
	idx.sorted = true
}

// Len returns the number of in-use or compressed object numbers known to
// the index. Free object numbers are tracked internally for shadowing but
// never counted, matching the "free - ignored" rule.
func (idx *objectIndex) Len() int {
	return len(idx.order)
}

// NumberAt returns the object number at sorted position i (binary-search
// friendly, ascending order), per the File.GetObjectByIndex contract.
func (idx *objectIndex) NumberAt(i int) (int, bool) {
	idx.ensureSorted()
	if i < 0 || i >= len(idx.order) {
		return 0, false
	}
	return idx.order[i], true
}

// xrefSection is one parsed xref table or xref stream, prior to merging
// into the objectIndex. It additionally carries trailer-dictionary data and
// a possible /Prev chain link, per spec.md §4.4.
type xrefSection struct {
	Trailer     *PdfObjectDictionary
	Records     []xrefRecord
	Prev        int64 // byte offset of the previous xref section, -1 if none.
	HybridXRefStm int64 // byte offset of a hybrid /XRefStm companion, -1 if none.
}

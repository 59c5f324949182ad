/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"fmt"
	"io"
	"regexp"

	"github.com/foxyutils/pdfcore/common"
)

var rePdfVersion = regexp.MustCompile(`%PDF-(\d)\.(\d)`)

// ReportFunc's default is installed whenever OpenOptions.Report is nil: it
// logs the failure through common.Log and does nothing else.
func defaultReport(filename string, err error) {
	common.Log.Error("%s: %v", filename, err)
}

// OpenOptions configures Open. The zero value is a usable default.
type OpenOptions struct {
	// Filename is recorded for Filename() and passed to Report; it need not
	// correspond to anything on disk, since src is already open.
	Filename string
	// Report is invoked exactly once if Open fails, before it returns the
	// error. A nil Report defaults to logging through common.Log.
	Report ReportFunc
}

// File is the resolver's handle on an opened PDF: the object index, the
// composite trailer, and everything needed to resolve an indirect reference
// to its direct value on demand (spec.md §6, "contract offered upward").
type File struct {
	src      ByteSource
	filename string
	version  string

	idx      *objectIndex
	expander *objectStreamExpander
	trailer  *PdfObjectDictionary
	catalog  *PdfObjectDictionary

	cache map[int]PdfObject

	// streamLengthInProgress guards resolveStreamLength against a /Length
	// entry that is an indirect reference into an object stream that is
	// itself still being expanded - a cycle, not a legitimate document.
	streamLengthInProgress map[int64]bool
}

// Open parses src's header, xref chain, object streams, and trailer,
// returning a File ready to serve lookups. Open fails outright - it does
// not return a partially usable File - on any of the error kinds in
// spec.md §7; opts.Report, if set, is called once with the failure before
// Open returns it.
func Open(src ByteSource, opts OpenOptions) (*File, error) {
	report := opts.Report
	if report == nil {
		report = defaultReport
	}

	f := &File{
		src:                    src,
		filename:               opts.Filename,
		cache:                  map[int]PdfObject{},
		streamLengthInProgress: map[int64]bool{},
	}

	if err := f.open(); err != nil {
		report(f.filename, err)
		return nil, err
	}
	return f, nil
}

func (f *File) open() error {
	version, err := f.readVersion()
	if err != nil {
		return err
	}
	f.version = version

	startOffset, err := locateStartxref(f.src)
	if err != nil {
		common.Log.Debug("startxref not found: %v - attempting repair", err)
		startOffset, err = f.repairLocateXref()
		if err != nil {
			return err
		}
	}

	f.expander = newObjectStreamExpander(f)

	idx, trailers, err := f.loadAllXrefSectionsWithFallback(startOffset)
	if err != nil {
		return err
	}
	f.idx = idx

	if err := f.expander.Drain(); err != nil {
		return err
	}

	if f.idx.Len() == 0 {
		return errf(KindMalformedXref, "no objects found in xref chain")
	}

	trailer := assembleTrailer(trailers)
	catalog, err := f.validateTrailer(trailer)
	if err != nil {
		return err
	}
	f.trailer = trailer
	f.catalog = catalog
	return nil
}

// loadAllXrefSectionsWithFallback runs the normal xref chain walk. If the
// chain comes back empty, or if startOffset does not land on an "xref"
// keyword or an "N G obj" header at all, it falls back to a from-scratch
// top-down rebuild - the supplemented "malformed but recoverable file" path.
// An xref table or stream that is present at startOffset but malformed (or
// a broken section further down its /Prev chain) fails Open outright.
func (f *File) loadAllXrefSectionsWithFallback(startOffset int64) (*objectIndex, []*PdfObjectDictionary, error) {
	idx, trailers, err := f.loadAllXrefSections(startOffset)
	if err == nil && idx.Len() > 0 {
		return idx, trailers, nil
	}
	if err != nil {
		if r, rerr := newReaderAt(f.src, startOffset); rerr == nil {
			tok, terr := newTokenizer(r).NextToken()
			if terr == nil && (tok.Kind == TokenNumber || (tok.Kind == TokenKeyword && tok.Val == "xref")) {
				return nil, nil, err
			}
		}
		common.Log.Debug("xref chain at %d failed to load: %v - attempting repair", startOffset, err)
	}

	sec, rerr := f.rebuildXrefsTopDown()
	if rerr != nil {
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, rerr
	}

	repaired := newObjectIndex()
	for _, rec := range sec.Records {
		repaired.Add(rec)
	}
	var repairedTrailers []*PdfObjectDictionary
	if trailer, terr := f.findTrailerByScan(); terr == nil && trailer != nil {
		repairedTrailers = []*PdfObjectDictionary{trailer}
	}
	return repaired, repairedTrailers, nil
}

// findTrailerByScan locates a "trailer << ... >>" construct by scanning
// backward from the end of the file, used only once the normal xref chain
// (which would have handed back the trailer alongside its records) has
// failed outright.
func (f *File) findTrailerByScan() (*PdfObjectDictionary, error) {
	size, err := f.src.Size()
	if err != nil {
		return nil, err
	}
	const window = 1 << 16
	start := size - window
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := f.src.ReadAt(buf, start); err != nil && err != io.EOF {
		return nil, err
	}
	idx := lastIndexOf(buf, "trailer")
	if idx < 0 {
		return nil, errf(KindMalformedTrailer, "no trailer keyword found during repair scan")
	}
	r, err := newReaderAt(f.src, start+int64(idx)+int64(len("trailer")))
	if err != nil {
		return nil, err
	}
	v := newValueReader(r, f)
	dictTok, err := v.tok.NextToken()
	if err != nil || dictTok.Kind != TokenDictOpen {
		return nil, errf(KindMalformedTrailer, "trailer keyword not followed by a dictionary during repair scan")
	}
	return v.parseDict()
}

// readVersion parses the "%PDF-x.y" header line (spec.md §4.3 step 1),
// tolerating leading garbage by searching the first 1024 bytes the way the
// teacher's top-down recovery path does for files with junk prepended.
func (f *File) readVersion() (string, error) {
	const headerWindow = 1024
	size, err := f.src.Size()
	if err != nil {
		return "", errf(KindIO, "determine file size: %v", err)
	}
	n := int64(headerWindow)
	if n > size {
		n = size
	}
	buf := make([]byte, n)
	if _, err := f.src.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", errf(KindIO, "read header: %v", err)
	}

	match := rePdfVersion.FindSubmatch(buf)
	if match == nil {
		return "", errf(KindBadHeader, "no %%PDF-x.y header found in first %d bytes", headerWindow)
	}
	return fmt.Sprintf("%s.%s", match[1], match[2]), nil
}

// resolveStreamLength resolves a stream's /Length entry to a concrete byte
// count, following one level of indirect reference if necessary. It is
// passed to valueReader.ParseIndirectAt as the lengthResolver, since at
// parse time the xref index may still be mid-construction.
func (f *File) resolveStreamLength(lengthObj PdfObject) (int64, error) {
	switch t := lengthObj.(type) {
	case nil:
		return -1, errf(KindMalformedXref, "stream has no /Length")
	case *PdfObjectInteger:
		return int64(*t), nil
	case *PdfObjectFloat:
		return int64(*t), nil
	case *PdfObjectReference:
		key := t.ObjectNumber<<32 | t.GenerationNumber
		if f.streamLengthInProgress[key] {
			return -1, errf(KindMalformedXref, "cyclic /Length reference at object %d", t.ObjectNumber)
		}
		f.streamLengthInProgress[key] = true
		defer delete(f.streamLengthInProgress, key)

		obj, err := f.LookupByNumber(int(t.ObjectNumber))
		if err != nil {
			return -1, err
		}
		return f.resolveStreamLength(obj)
	default:
		return -1, errf(KindMalformedXref, "stream /Length has unexpected type")
	}
}

// LookupByNumber resolves objNum to its direct value, parsing it from the
// underlying byte source (or its owning object stream) on first access and
// caching the result. A free object number resolves to null; an object
// number absent from the index is also treated as null, matching PDF's
// tolerance for a dangling reference.
func (f *File) LookupByNumber(objNum int) (PdfObject, error) {
	if cached, ok := f.cache[objNum]; ok {
		return cached, nil
	}

	rec, ok := f.idx.Lookup(objNum)
	if !ok || rec.Kind == xrefKindFree {
		f.cache[objNum] = MakeNull()
		return f.cache[objNum], nil
	}

	var obj PdfObject
	switch rec.Kind {
	case xrefKindOffset:
		r, err := newReaderAt(f.src, rec.Offset)
		if err != nil {
			return nil, err
		}
		v := newValueReader(r, f)
		ind, err := v.ParseIndirectAt(rec.Offset, f.resolveStreamLength)
		if err != nil {
			return nil, err
		}
		obj = ind.PdfObject
	case xrefKindInStream:
		direct, err := f.expander.Lookup(rec.StreamObjectNumber, rec.StreamIndex, objNum)
		if err != nil {
			return nil, err
		}
		obj = direct
	default:
		obj = MakeNull()
	}

	f.cache[objNum] = obj
	return obj, nil
}

// NumObjects returns the number of in-use or compressed object numbers
// known to the file's object index; free object numbers don't count.
func (f *File) NumObjects() int {
	return f.idx.Len()
}

// GetObjectByIndex returns the direct value of the i-th object in
// ascending-object-number order, 0 <= i < NumObjects().
func (f *File) GetObjectByIndex(i int) (PdfObject, error) {
	num, ok := f.idx.NumberAt(i)
	if !ok {
		return nil, errf(KindIO, "object index %d out of range", i)
	}
	return f.LookupByNumber(num)
}

// FindObjectByNumber returns the direct value of the object with the given
// object number, or an error if no such object number is known.
func (f *File) FindObjectByNumber(n int) (PdfObject, error) {
	if _, ok := f.idx.Lookup(n); !ok {
		return nil, errf(KindIO, "object number %d not found", n)
	}
	return f.LookupByNumber(n)
}

// Trailer returns the composite trailer dictionary: the trailer of the
// newest xref section in the file's /Prev chain, taken as is; keys of older
// revisions' trailers are not merged into it (see assembleTrailer).
func (f *File) Trailer() *PdfObjectDictionary {
	return f.trailer
}

// Catalog returns the document catalog the trailer's /Root resolves to.
func (f *File) Catalog() *PdfObjectDictionary {
	return f.catalog
}

// Info returns the document information dictionary the trailer's /Info
// entry resolves to, or nil if absent or unresolvable.
func (f *File) Info() *PdfObjectDictionary {
	dict, ok := GetDict(f.trailer.Get("Info"))
	if !ok {
		return nil
	}
	return dict
}

// Encrypt returns the encryption dictionary the trailer's /Encrypt entry
// resolves to, or nil if the file is not marked as encrypted. Decrypting
// the resulting dictionary's contents is out of scope for this resolver.
func (f *File) Encrypt() *PdfObjectDictionary {
	encObj := f.trailer.Get("Encrypt")
	if encObj == nil {
		return nil
	}
	dict, ok := GetDict(encObj)
	if !ok {
		return nil
	}
	return dict
}

// ID returns the trailer's /ID array (the pair of file identifiers defined
// by ISO 32000-1 14.4), or nil if absent.
func (f *File) ID() *PdfObjectArray {
	arr, ok := GetArray(f.trailer.Get("ID"))
	if !ok {
		return nil
	}
	return arr
}

// Version returns the PDF version string parsed from the file's header,
// e.g. "1.7".
func (f *File) Version() string {
	return f.version
}

// Filename returns the name supplied at Open time via OpenOptions.
func (f *File) Filename() string {
	return f.filename
}

// Close releases any resources the File holds directly. It does not close
// the underlying ByteSource, since Open never assumed ownership of it.
func (f *File) Close() error {
	f.cache = nil
	f.idx = nil
	return nil
}

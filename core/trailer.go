/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

// assembleTrailer picks the composite trailer described in spec.md §4.7:
// trailers are supplied newest-first (the order loadAllXrefSections collects
// them in, since the chain is walked from the file's startxref forward
// through /Prev), and the composite trailer is simply the first - newest -
// non-nil dictionary encountered. Older revisions' trailers are consulted
// only for /Prev while walking the chain; their keys never backfill the
// composite once it is set.
func assembleTrailer(trailers []*PdfObjectDictionary) *PdfObjectDictionary {
	for _, t := range trailers {
		if t != nil {
			return t
		}
	}
	return MakeDict()
}

// validateTrailer checks the composite trailer satisfies the minimum the
// resolver requires to hand the file back to a caller: a /Root entry that
// resolves to a dictionary (spec.md §4.7, KindMissingCatalog).
func (f *File) validateTrailer(trailer *PdfObjectDictionary) (*PdfObjectDictionary, error) {
	rootObj := trailer.Get("Root")
	if rootObj == nil {
		return nil, errf(KindMissingCatalog, "trailer has no /Root entry")
	}
	catalog, ok := GetDict(rootObj)
	if !ok {
		return nil, errf(KindMissingCatalog, "/Root does not resolve to a dictionary")
	}
	return catalog, nil
}

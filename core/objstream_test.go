/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildObjStreamPDF assembles a PDF whose catalog and pages node are both
// compressed inside a single object stream, addressed through an xref
// stream (type-2 entries), per the compressed-object scenario.
func buildObjStreamPDF(t *testing.T) (data []byte, objStmNum, xrefStmNum int) {
	t.Helper()
	header := "%PDF-1.5\n"

	obj1Body := "<< /Type /Catalog /Pages 2 0 R >>"
	obj2Body := "<< /Type /Pages /Count 0 >>"
	sep := " "
	objData := obj1Body + sep + obj2Body
	off1 := 0
	off2 := len(obj1Body) + len(sep)
	hdr := "1 " + strconv.Itoa(off1) + " 2 " + strconv.Itoa(off2)
	full := hdr + sep + objData
	first := len(hdr) + len(sep)

	objStmNum = 3
	xrefStmNum = 4

	objStmDict := "<< /Type /ObjStm /N 2 /First " + strconv.Itoa(first) +
		" /Length " + strconv.Itoa(len(full)) + " >>"
	obj3 := strconv.Itoa(objStmNum) + " 0 obj\n" + objStmDict + "\nstream\n" + full + "\nendstream\nendobj\n"

	o3 := int64(len(header))
	o4 := o3 + int64(len(obj3))

	entry := func(typ byte, f2 int64, f3 byte) []byte {
		b := be32(f2)
		return []byte{typ, b[0], b[1], b[2], b[3], f3}
	}
	var payload []byte
	payload = append(payload, entry(0, 0, 0)...)       // object 0: free
	payload = append(payload, entry(2, int64(objStmNum), 0)...) // object 1: compressed, index 0
	payload = append(payload, entry(2, int64(objStmNum), 1)...) // object 2: compressed, index 1
	payload = append(payload, entry(1, o3, 0)...)       // object 3: the ObjStm itself
	payload = append(payload, entry(1, o4, 0)...)       // object 4: the xref stream itself

	xrefDict := "<< /Type /XRef /W [1 4 1] /Index [0 5] /Size 5 /Root 1 0 R /Length " +
		strconv.Itoa(len(payload)) + " >>"
	obj4 := strconv.Itoa(xrefStmNum) + " 0 obj\n" + xrefDict + "\nstream\n"

	var buf []byte
	buf = append(buf, []byte(header)...)
	buf = append(buf, []byte(obj3)...)
	buf = append(buf, []byte(obj4)...)
	buf = append(buf, payload...)
	buf = append(buf, []byte("\nendstream\nendobj\n")...)

	tail := "startxref\n" + strconv.FormatInt(o4, 10) + "\n%%EOF"
	buf = append(buf, []byte(tail)...)

	return buf, objStmNum, xrefStmNum
}

func TestS3CompressedObjects(t *testing.T) {
	data, _, _ := buildObjStreamPDF(t)
	f, err := Open(NewByteSourceFromBytes(data), OpenOptions{})
	require.NoError(t, err)

	require.Equal(t, 4, f.NumObjects(), "objects 1-4 count; object 0 is free and excluded")

	catalog := f.Catalog()
	require.NotNil(t, catalog)
	name, ok := GetNameVal(catalog.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Catalog", name)

	pagesRef := catalog.Get("Pages")
	pages, ok := GetDict(pagesRef)
	require.True(t, ok)
	pagesType, ok := GetNameVal(pages.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Pages", pagesType)
	count, ok := GetIntVal(pages.Get("Count"))
	require.True(t, ok)
	require.Equal(t, 0, count)
}

func TestObjectStreamExpanderLookupOutOfRange(t *testing.T) {
	data, objStmNum, _ := buildObjStreamPDF(t)
	f, err := Open(NewByteSourceFromBytes(data), OpenOptions{})
	require.NoError(t, err)

	_, err = f.expander.Lookup(objStmNum, 99, 1)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindDanglingObjectStream, perr.Kind)
}

func TestObjectStreamExpanderCachesAcrossLookups(t *testing.T) {
	data, objStmNum, _ := buildObjStreamPDF(t)
	f, err := Open(NewByteSourceFromBytes(data), OpenOptions{})
	require.NoError(t, err)

	_, ok := f.expander.cache[objStmNum]
	require.True(t, ok, "Drain must have eagerly expanded the queued object stream")
}

// TestOpenFailsOnDanglingObjectStreamParent builds an xref stream whose
// only type-2 entry names a parent object number that is never itself
// described anywhere in the file. Open must fail outright - eager
// expansion happens during Open, before any caller ever asks for the
// compressed object by number - and the report callback must fire exactly
// once.
func TestOpenFailsOnDanglingObjectStreamParent(t *testing.T) {
	header := "%PDF-1.5\n"

	const danglingParent = 50

	entry := func(typ byte, f2 int64, f3 byte) []byte {
		b := be32(f2)
		return []byte{typ, b[0], b[1], b[2], b[3], f3}
	}

	var buf []byte
	buf = append(buf, []byte(header)...)
	o2 := int64(len(buf))

	var payload []byte
	payload = append(payload, entry(2, danglingParent, 0)...) // object 1: parent never defined
	payload = append(payload, entry(1, o2, 0)...)              // object 2: this xref stream

	xrefDict := "<< /Type /XRef /W [1 4 1] /Index [1 2] /Size 3 /Root 1 0 R /Length " +
		strconv.Itoa(len(payload)) + " >>"
	obj2 := "2 0 obj\n" + xrefDict + "\nstream\n"
	buf = append(buf, []byte(obj2)...)
	buf = append(buf, payload...)
	buf = append(buf, []byte("\nendstream\nendobj\n")...)

	tail := "startxref\n" + strconv.FormatInt(o2, 10) + "\n%%EOF"
	buf = append(buf, []byte(tail)...)

	reportCount := 0
	opts := OpenOptions{Report: func(string, error) { reportCount++ }}
	_, err := Open(NewByteSourceFromBytes(buf), opts)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindDanglingObjectStream, perr.Kind)
	require.Equal(t, 1, reportCount, "the report callback must fire exactly once")
}

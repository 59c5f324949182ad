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

// padEntry formats a classical xref table entry as the fixed 20-byte record
// spec.md §4.4.1 requires: 10-digit offset, space, 5-digit generation,
// space, flag, " \r\n".
func padEntry(offset int64, gen int, flag byte) string {
	return padOffset(offset) + " " + gen5(gen) + " " + string(flag) + "\r\n"
}

func padOffset(offset int64) string {
	s := strconv.FormatInt(offset, 10)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}

func gen5(gen int) string {
	s := strconv.Itoa(gen)
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}

// buildClassicPDF assembles a minimal, byte-exact classical-xref PDF: a
// catalog, a pages node, and a single page, with correctly computed offsets.
func buildClassicPDF(t *testing.T) []byte {
	t.Helper()
	header := "%PDF-1.4\n"
	obj1 := "1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n"
	obj2 := "2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n"
	obj3 := "3 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n"

	o1 := int64(len(header))
	o2 := o1 + int64(len(obj1))
	o3 := o2 + int64(len(obj2))
	oxref := o3 + int64(len(obj3))

	xrefSec := "xref\n0 4\n" +
		padEntry(0, 65535, 'f') +
		padEntry(o1, 0, 'n') +
		padEntry(o2, 0, 'n') +
		padEntry(o3, 0, 'n')

	trailer := "trailer\n<< /Size 4 /Root 1 0 R >>\n"
	tail := "startxref\n" + strconv.FormatInt(oxref, 10) + "\n%%EOF"

	return []byte(header + obj1 + obj2 + obj3 + xrefSec + trailer + tail)
}

func TestS1ClassicSmallFile(t *testing.T) {
	data := buildClassicPDF(t)
	f, err := Open(NewByteSourceFromBytes(data), OpenOptions{})
	require.NoError(t, err)

	require.Equal(t, 3, f.NumObjects())
	require.Equal(t, "1.4", f.Version())

	catalog := f.Catalog()
	require.NotNil(t, catalog)
	name, ok := GetNameVal(catalog.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Catalog", name)

	obj, err := f.GetObjectByIndex(0)
	require.NoError(t, err)
	dict, ok := obj.(*PdfObjectDictionary)
	require.True(t, ok)
	require.Same(t, catalog, dict)
}

// TestS5MalformedEntryLength verifies a 19-byte (not 20) xref entry is
// rejected as malformed-xref, per spec.md's explicit fixed-width
// requirement for classical xref tables.
func TestS5MalformedEntryLength(t *testing.T) {
	header := "%PDF-1.4\n"
	obj1 := "1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	o1 := int64(len(header))
	oxref := o1 + int64(len(obj1))

	goodEntry := padEntry(0, 65535, 'f')
	// Drop one digit from the offset field, making the entry 19 bytes
	// instead of the required 20.
	badEntry := "000000000 00000 n\r\n"
	require.Len(t, badEntry, 19)

	xrefSec := "xref\n0 2\n" + goodEntry + badEntry
	trailer := "trailer\n<< /Size 2 /Root 1 0 R >>\n"
	tail := "startxref\n" + strconv.FormatInt(oxref, 10) + "\n%%EOF"

	data := []byte(header + obj1 + xrefSec + trailer + tail)

	reportCount := 0
	opts := OpenOptions{Report: func(string, error) { reportCount++ }}
	_, err := Open(NewByteSourceFromBytes(data), opts)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindMalformedXref, perr.Kind)
	require.Equal(t, 1, reportCount, "the report callback must fire exactly once")
}

// TestS6MissingCatalog verifies a trailer with no /Root resolves to
// missing-catalog.
func TestS6MissingCatalog(t *testing.T) {
	header := "%PDF-1.4\n"
	obj1 := "1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	o1 := int64(len(header))
	oxref := o1 + int64(len(obj1))

	xrefSec := "xref\n0 2\n" +
		padEntry(0, 65535, 'f') +
		padEntry(o1, 0, 'n')
	trailer := "trailer\n<< /Size 2 >>\n"
	tail := "startxref\n" + strconv.FormatInt(oxref, 10) + "\n%%EOF"

	data := []byte(header + obj1 + xrefSec + trailer + tail)
	_, err := Open(NewByteSourceFromBytes(data), OpenOptions{})
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindMissingCatalog, perr.Kind)
}

func be32(v int64) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// TestS2XrefStream builds a minimal PDF whose xref section is an xref
// stream (w = [0 4 0], a single /Index subsection) rather than a classical
// table.
func TestS2XrefStream(t *testing.T) {
	header := "%PDF-1.5\n"
	obj1 := "1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	o1 := int64(len(header))
	oxref := o1 + int64(len(obj1))

	payload := append(append([]byte{}, be32(o1)...), be32(oxref)...)
	dict := "<< /Type /XRef /W [0 4 0] /Index [1 2] /Size 3 /Root 1 0 R /Length " +
		strconv.Itoa(len(payload)) + " >>"
	obj2 := "2 0 obj\n" + dict + "\nstream\n"
	var buf []byte
	buf = append(buf, []byte(header)...)
	buf = append(buf, []byte(obj1)...)
	buf = append(buf, []byte(obj2)...)
	buf = append(buf, payload...)
	buf = append(buf, []byte("\nendstream\nendobj\n")...)

	tail := "startxref\n" + strconv.FormatInt(oxref, 10) + "\n%%EOF"
	buf = append(buf, []byte(tail)...)

	f, err := Open(NewByteSourceFromBytes(buf), OpenOptions{})
	require.NoError(t, err)
	require.Equal(t, "1.5", f.Version())
	require.Equal(t, 2, f.NumObjects())

	catalog := f.Catalog()
	require.NotNil(t, catalog)
	name, ok := GetNameVal(catalog.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Catalog", name)
}

// TestS4ChainedUpdates builds two classical xref sections linked by /Prev,
// where the newer section's object 1 shadows the older one's.
func TestS4ChainedUpdates(t *testing.T) {
	header := "%PDF-1.4\n"
	obj1v1 := "1 0 obj\n<< /Type /Catalog /Count 1 >>\nendobj\n"
	o1v1 := int64(len(header))
	oxref1 := o1v1 + int64(len(obj1v1))

	xref1 := "xref\n0 2\n" +
		padEntry(0, 65535, 'f') +
		padEntry(o1v1, 0, 'n')
	trailer1 := "trailer\n<< /Size 2 /Root 1 0 R >>\n"
	tail1 := "startxref\n" + strconv.FormatInt(oxref1, 10) + "\n%%EOF\n"

	revision1 := header + obj1v1 + xref1 + trailer1 + tail1

	obj1v2 := "1 0 obj\n<< /Type /Catalog /Count 2 >>\nendobj\n"
	o1v2 := int64(len(revision1))
	oxref2 := o1v2 + int64(len(obj1v2))

	xref2 := "xref\n0 2\n" +
		padEntry(0, 65535, 'f') +
		padEntry(o1v2, 0, 'n')
	trailer2 := "trailer\n<< /Size 2 /Root 1 0 R /Prev " + strconv.FormatInt(oxref1, 10) + " >>\n"
	tail2 := "startxref\n" + strconv.FormatInt(oxref2, 10) + "\n%%EOF"

	data := []byte(revision1 + obj1v2 + xref2 + trailer2 + tail2)

	f, err := Open(NewByteSourceFromBytes(data), OpenOptions{})
	require.NoError(t, err)

	catalog := f.Catalog()
	require.NotNil(t, catalog)
	n, ok := GetIntVal(catalog.Get("Count"))
	require.True(t, ok)
	require.Equal(t, 2, n, "the newest revision's object must win over the older /Prev revision")
}

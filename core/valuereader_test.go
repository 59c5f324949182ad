/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func parseValueFromText(t *testing.T, txt string) PdfObject {
	src := NewByteSourceFromBytes([]byte(txt))
	r, err := newReaderAt(src, 0)
	require.NoError(t, err)
	v := newValueReader(r, nil)
	obj, err := v.ParseValue()
	require.NoError(t, err)
	return obj
}

func TestParseValueBool(t *testing.T) {
	b, ok := parseValueFromText(t, "true").(*PdfObjectBool)
	require.True(t, ok)
	require.True(t, bool(*b))
}

func TestParseValueArray(t *testing.T) {
	obj := parseValueFromText(t, "[1 2 3]")
	arr, ok := obj.(*PdfObjectArray)
	require.True(t, ok)
	require.Equal(t, 3, arr.Len())
	vals, err := arr.ToIntegerArray()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, vals)
}

func TestParseValueNestedDict(t *testing.T) {
	obj := parseValueFromText(t, "<< /Type /Catalog /Count 7 >>")
	dict, ok := obj.(*PdfObjectDictionary)
	require.True(t, ok)
	name, ok := GetNameVal(dict.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Catalog", name)
	n, ok := GetIntVal(dict.Get("Count"))
	require.True(t, ok)
	require.Equal(t, 7, n)
}

func TestParseValuePlainNumberNotReference(t *testing.T) {
	obj := parseValueFromText(t, "12")
	n, ok := obj.(*PdfObjectInteger)
	require.True(t, ok)
	require.Equal(t, int64(12), int64(*n))
}

func TestParseValueIndirectReference(t *testing.T) {
	obj := parseValueFromText(t, "12 0 R")
	ref, ok := obj.(*PdfObjectReference)
	require.True(t, ok)
	require.Equal(t, int64(12), ref.ObjectNumber)
	require.Equal(t, int64(0), ref.GenerationNumber)
}

func TestParseValueRewindsWhenNotReference(t *testing.T) {
	src := NewByteSourceFromBytes([]byte("12 0 obj"))
	r, err := newReaderAt(src, 0)
	require.NoError(t, err)
	v := newValueReader(r, nil)
	obj, err := v.ParseValue()
	require.NoError(t, err)
	n, ok := obj.(*PdfObjectInteger)
	require.True(t, ok)
	require.Equal(t, int64(12), int64(*n))

	// The lookahead must have rewound past "0 obj" so it can still be read.
	tok, err := v.tok.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenNumber, tok.Kind)
	require.Equal(t, "0", tok.Val)
}

func TestParseIndirectAtSimpleObject(t *testing.T) {
	txt := "7 0 obj\n<< /Type /Page >>\nendobj"
	src := NewByteSourceFromBytes([]byte(txt))
	r, err := newReaderAt(src, 0)
	require.NoError(t, err)
	v := newValueReader(r, nil)

	ind, err := v.ParseIndirectAt(0, func(PdfObject) (int64, error) { return -1, nil })
	require.NoError(t, err)
	require.Equal(t, int64(7), ind.ObjectNumber)
	dict, ok := ind.PdfObject.(*PdfObjectDictionary)
	require.True(t, ok)
	name, ok := GetNameVal(dict.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Page", name)
}

func TestParseIndirectAtStreamWithLength(t *testing.T) {
	payload := "abcdefghij"
	txt := "3 0 obj\n<< /Length 10 >>\nstream\n" + payload + "\nendstream\nendobj"
	src := NewByteSourceFromBytes([]byte(txt))
	r, err := newReaderAt(src, 0)
	require.NoError(t, err)
	v := newValueReader(r, nil)

	ind, err := v.ParseIndirectAt(0, func(obj PdfObject) (int64, error) {
		n, ok := GetIntVal(obj)
		require.True(t, ok)
		return int64(n), nil
	})
	require.NoError(t, err)
	stream, ok := ind.PdfObject.(*PdfObjectStream)
	require.True(t, ok)
	require.Equal(t, payload, string(stream.Stream))
}

func TestParseIndirectAtStreamRescansWhenLengthWrong(t *testing.T) {
	payload := "abcdefghij"
	txt := "3 0 obj\n<< /Length 3 >>\nstream\n" + payload + "\nendstream\nendobj"
	src := NewByteSourceFromBytes([]byte(txt))
	r, err := newReaderAt(src, 0)
	require.NoError(t, err)
	v := newValueReader(r, nil)

	ind, err := v.ParseIndirectAt(0, func(obj PdfObject) (int64, error) {
		n, _ := GetIntVal(obj)
		return int64(n), nil
	})
	require.NoError(t, err)
	stream, ok := ind.PdfObject.(*PdfObjectStream)
	require.True(t, ok)
	require.Equal(t, payload, string(stream.Stream))
}

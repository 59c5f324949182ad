/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foxyutils/pdfcore/common"
	"github.com/foxyutils/pdfcore/internal/strutils"
)

// PdfObject is the tagged value variant every parsed PDF value implements:
// null, bool, int, real, name, string, array, dict, indirect reference, or
// stream-with-dict (spec.md §3, §9 "Tagged value variant"). It is kept as a
// genuine sum type - one concrete Go type per PDF value kind - rather than
// simulated through a shared abstract base type.
type PdfObject interface {
	// String returns a debug representation; it is never parsed back.
	String() string
}

// PdfObjectBool is the PDF boolean object.
type PdfObjectBool bool

// PdfObjectInteger is the PDF integer numerical object.
type PdfObjectInteger int64

// PdfObjectFloat is the PDF real numerical object.
type PdfObjectFloat float64

// PdfObjectString is the PDF string object, either literal "(...)" or
// hexadecimal "<...>" in its source form; isHex only affects how it is
// reported, both forms decode to the same byte content.
type PdfObjectString struct {
	val   string
	isHex bool
}

// PdfObjectName is the PDF name object ("/Foo"), already '#xx'-unescaped.
type PdfObjectName string

// PdfObjectArray is the PDF array object.
type PdfObjectArray struct {
	vec []PdfObject
}

// PdfObjectDictionary is the PDF dictionary object. Keys preserve insertion
// order for stable String() output even though lookup is by map.
type PdfObjectDictionary struct {
	dict map[PdfObjectName]PdfObject
	keys []PdfObjectName
}

// PdfObjectNull is the PDF null object.
type PdfObjectNull struct{}

// PdfObjectReference is an indirect reference, "N G R". Resolving it walks
// back through the File that produced it; a reference with no File attached
// (e.g. one built directly by a test) resolves to null.
type PdfObjectReference struct {
	file             *File
	ObjectNumber     int64
	GenerationNumber int64
}

// PdfIndirectObject wraps a direct PdfObject with the object/generation
// number it was parsed under (the "N G obj ... endobj" construct).
type PdfIndirectObject struct {
	PdfObjectReference
	PdfObject
}

// PdfObjectStream is a stream-with-dict value: a dictionary plus its raw
// (still-encoded) payload bytes.
type PdfObjectStream struct {
	PdfObjectReference
	*PdfObjectDictionary
	Stream []byte
}

// ErrTypeError is returned by the To*Array helpers when an array element
// does not have the expected concrete type.
var ErrTypeError = errors.New("type check error")

// MakeDict returns an empty dictionary.
func MakeDict() *PdfObjectDictionary {
	return &PdfObjectDictionary{dict: map[PdfObjectName]PdfObject{}, keys: []PdfObjectName{}}
}

// MakeName returns a PdfObjectName built from s.
func MakeName(s string) *PdfObjectName {
	n := PdfObjectName(s)
	return &n
}

// MakeInteger returns a PdfObjectInteger holding val.
func MakeInteger(val int64) *PdfObjectInteger {
	n := PdfObjectInteger(val)
	return &n
}

// MakeFloat returns a PdfObjectFloat holding val.
func MakeFloat(val float64) *PdfObjectFloat {
	n := PdfObjectFloat(val)
	return &n
}

// MakeBool returns a PdfObjectBool holding val.
func MakeBool(val bool) *PdfObjectBool {
	b := PdfObjectBool(val)
	return &b
}

// MakeArray returns a PdfObjectArray containing objects.
func MakeArray(objects ...PdfObject) *PdfObjectArray {
	return &PdfObjectArray{vec: append([]PdfObject{}, objects...)}
}

// MakeString returns a literal PdfObjectString holding the raw bytes of s.
// PDF strings are rarely valid UTF-8; s is treated as a byte container.
func MakeString(s string) *PdfObjectString {
	return &PdfObjectString{val: s}
}

// MakeHexString returns a PdfObjectString that reports itself as having
// been written in hexadecimal form.
func MakeHexString(s string) *PdfObjectString {
	return &PdfObjectString{val: s, isHex: true}
}

// MakeNull returns a PdfObjectNull.
func MakeNull() *PdfObjectNull {
	return &PdfObjectNull{}
}

// Resolve follows the reference through its owning File and returns the
// resolved object. A reference that cannot be resolved - missing File,
// missing object, or a lookup error - resolves to a null object, per PDF's
// rule that a dangling indirect reference is not itself an error.
func (ref *PdfObjectReference) Resolve() PdfObject {
	if ref.file == nil {
		return MakeNull()
	}
	obj, err := ref.file.LookupByNumber(int(ref.ObjectNumber))
	if err != nil {
		common.Log.Debug("resolve %d %d R: %v - returning null", ref.ObjectNumber, ref.GenerationNumber, err)
		return MakeNull()
	}
	return obj
}

func (b *PdfObjectBool) String() string {
	if *b {
		return "true"
	}
	return "false"
}

func (n *PdfObjectInteger) String() string { return fmt.Sprintf("%d", int64(*n)) }

func (f *PdfObjectFloat) String() string { return fmt.Sprintf("%f", float64(*f)) }

// Str returns the raw byte content of the string as a Go string.
func (s *PdfObjectString) Str() string { return s.val }

// Bytes returns the raw byte content of the string.
func (s *PdfObjectString) Bytes() []byte { return []byte(s.val) }

// IsHex reports whether the string was written in hexadecimal form.
func (s *PdfObjectString) IsHex() bool { return s.isHex }

func (s *PdfObjectString) String() string { return s.val }

// Decoded returns the string's text contents, applying UTF-16BE decoding
// when the value starts with the 0xFE 0xFF byte-order mark (the form used
// for text strings such as /Title and /Author), and returning the raw bytes
// unchanged otherwise.
func (s *PdfObjectString) Decoded() string {
	if s == nil {
		return ""
	}
	b := []byte(s.val)
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return strutils.UTF16ToString(b[2:])
	}
	return s.val
}

func (n *PdfObjectName) String() string { return string(*n) }

// Elements returns the array's members in order.
func (a *PdfObjectArray) Elements() []PdfObject {
	if a == nil {
		return nil
	}
	return a.vec
}

// Len returns the number of elements in the array.
func (a *PdfObjectArray) Len() int {
	if a == nil {
		return 0
	}
	return len(a.vec)
}

// Get returns the i-th element, or nil if i is out of bounds.
func (a *PdfObjectArray) Get(i int) PdfObject {
	if a == nil || i < 0 || i >= len(a.vec) {
		return nil
	}
	return a.vec[i]
}

// Append adds objects to the end of the array.
func (a *PdfObjectArray) Append(objects ...PdfObject) {
	a.vec = append(a.vec, objects...)
}

// ToIntegerArray returns the array as a []int, failing if any element is
// not a PdfObjectInteger.
func (a *PdfObjectArray) ToIntegerArray() ([]int, error) {
	vals := make([]int, 0, a.Len())
	for _, obj := range a.Elements() {
		n, ok := obj.(*PdfObjectInteger)
		if !ok {
			return nil, ErrTypeError
		}
		vals = append(vals, int(*n))
	}
	return vals, nil
}

func (a *PdfObjectArray) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, o := range a.Elements() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.String())
	}
	b.WriteString("]")
	return b.String()
}

// Set assigns val to key, appending key to the dictionary's key order if it
// is new.
func (d *PdfObjectDictionary) Set(key PdfObjectName, val PdfObject) {
	if _, found := d.dict[key]; !found {
		d.keys = append(d.keys, key)
	}
	d.dict[key] = val
}

// Get returns the value stored under key, or nil if key is absent.
func (d *PdfObjectDictionary) Get(key PdfObjectName) PdfObject {
	if d == nil {
		return nil
	}
	return d.dict[key]
}

// Keys returns the dictionary's keys in insertion order.
func (d *PdfObjectDictionary) Keys() []PdfObjectName {
	if d == nil {
		return nil
	}
	return d.keys
}

func (d *PdfObjectDictionary) String() string {
	var b strings.Builder
	b.WriteString("Dict(")
	for _, k := range d.keys {
		fmt.Fprintf(&b, "%q: %s, ", string(k), d.dict[k].String())
	}
	b.WriteString(")")
	return b.String()
}

func (ref *PdfObjectReference) String() string {
	return fmt.Sprintf("Ref(%d %d)", ref.ObjectNumber, ref.GenerationNumber)
}

func (ind *PdfIndirectObject) String() string {
	// Deliberately shallow: PDF object graphs are cyclic (e.g. Page/Parent),
	// so printing the wrapped value here risks infinite recursion.
	return fmt.Sprintf("IObject:%d", ind.ObjectNumber)
}

func (s *PdfObjectStream) String() string {
	return fmt.Sprintf("Stream %d: %s", s.ObjectNumber, s.PdfObjectDictionary)
}

func (*PdfObjectNull) String() string { return "null" }

// traceMaxDepth bounds TraceToDirectObject's walk through chained indirect
// objects, guarding against a cyclic or self-referential object graph.
const traceMaxDepth = 32

// TraceToDirectObject resolves obj if it is a reference, then unwraps any
// PdfIndirectObject layers, returning the innermost direct value.
func TraceToDirectObject(obj PdfObject) PdfObject {
	if ref, isRef := obj.(*PdfObjectReference); isRef {
		obj = ref.Resolve()
	}
	depth := 0
	for {
		ind, isInd := obj.(*PdfIndirectObject)
		if !isInd {
			return obj
		}
		obj = ind.PdfObject
		depth++
		if depth > traceMaxDepth {
			common.Log.Error("trace depth exceeded %d - giving up", traceMaxDepth)
			return nil
		}
	}
}

// GetInt returns obj as a *PdfObjectInteger if it (or, once traced, its
// direct value) is one.
func GetInt(obj PdfObject) (*PdfObjectInteger, bool) {
	n, ok := TraceToDirectObject(obj).(*PdfObjectInteger)
	return n, ok
}

// GetIntVal is GetInt unwrapped to a plain int.
func GetIntVal(obj PdfObject) (int, bool) {
	n, ok := GetInt(obj)
	if !ok {
		return 0, false
	}
	return int(*n), true
}

// GetNumberAsInt64 returns obj's numeric value as an int64, accepting both
// PdfObjectInteger and PdfObjectFloat (truncated).
func GetNumberAsInt64(obj PdfObject) (int64, error) {
	switch t := TraceToDirectObject(obj).(type) {
	case *PdfObjectInteger:
		return int64(*t), nil
	case *PdfObjectFloat:
		return int64(*t), nil
	default:
		return 0, ErrTypeError
	}
}

// GetName returns obj as a *PdfObjectName.
func GetName(obj PdfObject) (*PdfObjectName, bool) {
	n, ok := TraceToDirectObject(obj).(*PdfObjectName)
	return n, ok
}

// GetNameVal is GetName unwrapped to a plain string.
func GetNameVal(obj PdfObject) (string, bool) {
	n, ok := GetName(obj)
	if !ok {
		return "", false
	}
	return string(*n), true
}

// GetArray returns obj as a *PdfObjectArray.
func GetArray(obj PdfObject) (*PdfObjectArray, bool) {
	arr, ok := TraceToDirectObject(obj).(*PdfObjectArray)
	return arr, ok
}

// GetDict returns obj as a *PdfObjectDictionary. A stream's own dictionary
// is also returned by this accessor, matching the common pattern of callers
// not caring whether a /Pages entry turned out to hold a stream wrapper.
func GetDict(obj PdfObject) (*PdfObjectDictionary, bool) {
	direct := TraceToDirectObject(obj)
	if d, ok := direct.(*PdfObjectDictionary); ok {
		return d, true
	}
	if s, ok := direct.(*PdfObjectStream); ok {
		return s.PdfObjectDictionary, true
	}
	return nil, false
}

// GetStream returns obj as a *PdfObjectStream.
func GetStream(obj PdfObject) (*PdfObjectStream, bool) {
	s, ok := TraceToDirectObject(obj).(*PdfObjectStream)
	return s, ok
}

// GetString returns obj as a *PdfObjectString.
func GetString(obj PdfObject) (*PdfObjectString, bool) {
	s, ok := TraceToDirectObject(obj).(*PdfObjectString)
	return s, ok
}

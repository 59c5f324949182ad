/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package strutils holds small string/byte conversions shared by the pdfcore
// object model, mainly the UTF-16BE encoding PDF uses for text strings whose
// leading bytes are the 0xFE 0xFF byte-order mark.
package strutils

import (
	"bytes"
	"unicode/utf16"
)

// UTF16ToRunes decodes the UTF-16BE encoded byte slice `b` to unicode runes.
func UTF16ToRunes(b []byte) []rune {
	if len(b) == 1 {
		return []rune{rune(b[0])}
	}
	if len(b)%2 != 0 {
		b = append(b, 0)
	}
	n := len(b) >> 1
	chars := make([]uint16, n)
	for i := 0; i < n; i++ {
		chars[i] = uint16(b[i<<1])<<8 + uint16(b[i<<1+1])
	}
	return utf16.Decode(chars)
}

// UTF16ToString decodes the UTF-16BE encoded byte slice `b` to a Go string.
func UTF16ToString(b []byte) string {
	return string(UTF16ToRunes(b))
}

// StringToUTF16 encodes `s` to UTF-16BE, packed two bytes per code unit.
func StringToUTF16(s string) string {
	encoded := utf16.Encode([]rune(s))

	var buf bytes.Buffer
	for _, code := range encoded {
		buf.WriteByte(byte((code >> 8) & 0xff))
		buf.WriteByte(byte(code & 0xff))
	}
	return buf.String()
}

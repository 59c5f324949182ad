/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

// IsWhiteSpace reports whether ch is one of the six PDF white-space
// characters (7.2.2, table 1): NUL, HT, LF, FF, CR, SP.
func IsWhiteSpace(ch byte) bool {
	switch ch {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

// IsFloatDigit reports whether c can occur in a real number token.
func IsFloatDigit(c byte) bool {
	return ('0' <= c && c <= '9') || c == '.'
}

// IsDecimalDigit reports whether c is a base-10 digit.
func IsDecimalDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// IsOctalDigit reports whether c can occur in a "\ddd" string escape.
func IsOctalDigit(c byte) bool {
	return '0' <= c && c <= '7'
}

// IsDelimiter reports whether c is one of PDF's nine delimiter characters,
// any of which ends a name, number, or keyword token without whitespace.
func IsDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

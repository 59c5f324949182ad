/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"bytes"
	"io"
)

// TokenKind classifies a lexical token produced by the tokenizer.
type TokenKind int

// Token kinds.
const (
	TokenEOF TokenKind = iota
	TokenNumber
	TokenName       // "/Foo", value already '#xx'-unescaped.
	TokenString     // "(...)", value already escape-decoded.
	TokenHexString  // "<...>", value already hex-decoded.
	TokenKeyword    // true, false, null, obj, endobj, stream, endstream, R, xref, trailer, startxref, f, n.
	TokenArrayOpen  // '['
	TokenArrayClose // ']'
	TokenDictOpen   // '<<'
	TokenDictClose  // '>>'
)

// Token is a single lexical unit as produced by the tokenizer.
type Token struct {
	Kind TokenKind
	Val  string
}

// scratchCap bounds the tokenizer's internal scratch buffer so a pathological
// input (an unterminated string or name running to the end of the file)
// cannot force an unbounded allocation; PDF names and literal strings this
// long do not occur in practice.
const scratchCap = 1 << 20

// tokenizer turns a byte stream into Tokens, per the Line/Token Reader
// (spec.md §4.2). It holds at most one pushed-back token. The value reader
// does not use that slot for its lookahead: to tell "12 0 R" from a bare
// number it snapshots the position with Tell and rewinds with Seek.
type tokenizer struct {
	r       *reader
	pushed  *Token
	scratch bytes.Buffer
}

func newTokenizer(r *reader) *tokenizer {
	return &tokenizer{r: r}
}

// PushToken pushes tok back so the next NextToken call returns it again. It
// is an error to push back when a token is already pending; the grammar
// never needs more than one token of lookahead.
func (t *tokenizer) PushToken(tok Token) error {
	if t.pushed != nil {
		return errf(KindIO, "token pushback slot already occupied")
	}
	t.pushed = &tok
	return nil
}

// Tell returns the tokenizer's underlying stream position. If a token is
// currently pushed back, this is the position immediately after that token.
func (t *tokenizer) Tell() int64 { return t.r.Tell() }

// Seek repositions the tokenizer, discarding any pushed-back token.
func (t *tokenizer) Seek(offset int64, whence int) (int64, error) {
	t.pushed = nil
	return t.r.Seek(offset, whence)
}

func (t *tokenizer) skipSpacesAndComments() error {
	for {
		b, err := t.r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if IsWhiteSpace(b) {
			continue
		}
		if b == '%' {
			for {
				c, err := t.r.ReadByte()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				if c == '\r' || c == '\n' {
					break
				}
			}
			continue
		}
		t.r.Seek(-1, io.SeekCurrent)
		return nil
	}
}

// NextToken returns the next token, consuming it from the stream (or from
// the pushback slot, if occupied).
func (t *tokenizer) NextToken() (Token, error) {
	if t.pushed != nil {
		tok := *t.pushed
		t.pushed = nil
		return tok, nil
	}

	if err := t.skipSpacesAndComments(); err != nil {
		return Token{}, err
	}

	b, err := t.r.ReadByte()
	if err == io.EOF {
		return Token{Kind: TokenEOF}, nil
	}
	if err != nil {
		return Token{}, err
	}

	switch b {
	case '/':
		return t.readName()
	case '(':
		return t.readLiteralString()
	case '<':
		peek, _ := t.r.Peek(1)
		if len(peek) == 1 && peek[0] == '<' {
			t.r.Seek(1, io.SeekCurrent)
			return Token{Kind: TokenDictOpen, Val: "<<"}, nil
		}
		return t.readHexString()
	case '>':
		peek, _ := t.r.Peek(1)
		if len(peek) == 1 && peek[0] == '>' {
			t.r.Seek(1, io.SeekCurrent)
			return Token{Kind: TokenDictClose, Val: ">>"}, nil
		}
		return Token{}, errf(KindMalformedTrailer, "lone '>' outside dict close")
	case '[':
		return Token{Kind: TokenArrayOpen, Val: "["}, nil
	case ']':
		return Token{Kind: TokenArrayClose, Val: "]"}, nil
	case '+', '-', '.', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		t.r.Seek(-1, io.SeekCurrent)
		return t.readNumber()
	default:
		t.r.Seek(-1, io.SeekCurrent)
		return t.readKeyword()
	}
}

func isRegular(b byte) bool {
	return !IsWhiteSpace(b) && !IsDelimiter(b)
}

func (t *tokenizer) readName() (Token, error) {
	t.scratch.Reset()
	for t.scratch.Len() < scratchCap {
		peek, err := t.r.Peek(1)
		if err != nil || len(peek) == 0 {
			break
		}
		b := peek[0]
		if !isRegular(b) {
			break
		}
		t.r.Seek(1, io.SeekCurrent)
		if b == '#' {
			hexcode, err := t.r.Peek(2)
			if err == nil && len(hexcode) == 2 && isHexDigit(hexcode[0]) && isHexDigit(hexcode[1]) {
				t.r.Seek(2, io.SeekCurrent)
				t.scratch.WriteByte(unhex(hexcode[0])<<4 | unhex(hexcode[1]))
				continue
			}
		}
		t.scratch.WriteByte(b)
	}
	return Token{Kind: TokenName, Val: t.scratch.String()}, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func unhex(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

func (t *tokenizer) readLiteralString() (Token, error) {
	t.scratch.Reset()
	depth := 1
	for t.scratch.Len() < scratchCap {
		b, err := t.r.ReadByte()
		if err != nil {
			return Token{}, errf(KindMalformedTrailer, "unterminated literal string: %v", err)
		}
		switch b {
		case '\\':
			esc, err := t.r.ReadByte()
			if err != nil {
				return Token{}, errf(KindMalformedTrailer, "unterminated escape: %v", err)
			}
			if IsOctalDigit(esc) {
				digits := []byte{esc}
				for len(digits) < 3 {
					peek, err := t.r.Peek(1)
					if err != nil || len(peek) == 0 || !IsOctalDigit(peek[0]) {
						break
					}
					t.r.Seek(1, io.SeekCurrent)
					digits = append(digits, peek[0])
				}
				var code byte
				for _, d := range digits {
					code = code*8 + (d - '0')
				}
				t.scratch.WriteByte(code)
				continue
			}
			switch esc {
			case 'n':
				t.scratch.WriteByte('\n')
			case 'r':
				t.scratch.WriteByte('\r')
			case 't':
				t.scratch.WriteByte('\t')
			case 'b':
				t.scratch.WriteByte('\b')
			case 'f':
				t.scratch.WriteByte('\f')
			case '\r':
				peek, _ := t.r.Peek(1)
				if len(peek) == 1 && peek[0] == '\n' {
					t.r.Seek(1, io.SeekCurrent)
				}
			case '\n':
				// Line continuation: the backslash-newline pair is dropped.
			default:
				t.scratch.WriteByte(esc)
			}
		case '(':
			depth++
			t.scratch.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Kind: TokenString, Val: t.scratch.String()}, nil
			}
			t.scratch.WriteByte(b)
		default:
			t.scratch.WriteByte(b)
		}
	}
	return Token{}, errf(KindMalformedTrailer, "literal string exceeds %d bytes", scratchCap)
}

func (t *tokenizer) readHexString() (Token, error) {
	t.scratch.Reset()
	for {
		b, err := t.r.ReadByte()
		if err != nil {
			return Token{}, errf(KindMalformedTrailer, "unterminated hex string: %v", err)
		}
		if b == '>' {
			break
		}
		if !IsWhiteSpace(b) {
			t.scratch.WriteByte(b)
		}
		if t.scratch.Len() >= scratchCap {
			return Token{}, errf(KindMalformedTrailer, "hex string exceeds %d bytes", scratchCap)
		}
	}
	digits := t.scratch.String()
	if len(digits)%2 == 1 {
		digits += "0"
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		if !isHexDigit(digits[2*i]) || !isHexDigit(digits[2*i+1]) {
			return Token{}, errf(KindMalformedTrailer, "invalid hex digit in hex string")
		}
		out[i] = unhex(digits[2*i])<<4 | unhex(digits[2*i+1])
	}
	return Token{Kind: TokenHexString, Val: string(out)}, nil
}

func (t *tokenizer) readNumber() (Token, error) {
	t.scratch.Reset()
	for {
		peek, err := t.r.Peek(1)
		if err != nil || len(peek) == 0 {
			break
		}
		b := peek[0]
		if !IsFloatDigit(b) && b != '+' && b != '-' && b != 'e' && b != 'E' {
			break
		}
		t.r.Seek(1, io.SeekCurrent)
		t.scratch.WriteByte(b)
	}
	return Token{Kind: TokenNumber, Val: t.scratch.String()}, nil
}

func (t *tokenizer) readKeyword() (Token, error) {
	t.scratch.Reset()
	for t.scratch.Len() < 32 {
		peek, err := t.r.Peek(1)
		if err != nil || len(peek) == 0 {
			break
		}
		b := peek[0]
		if !isRegular(b) {
			break
		}
		t.r.Seek(1, io.SeekCurrent)
		t.scratch.WriteByte(b)
	}
	if t.scratch.Len() == 0 {
		b, err := t.r.ReadByte()
		if err != nil {
			return Token{}, err
		}
		return Token{}, errf(KindMalformedTrailer, "unexpected byte %q", b)
	}
	return Token{Kind: TokenKeyword, Val: t.scratch.String()}, nil
}

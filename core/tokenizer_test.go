/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTokenizerForText(t *testing.T, txt string) *tokenizer {
	src := NewByteSourceFromBytes([]byte(txt))
	r, err := newReaderAt(src, 0)
	require.NoError(t, err)
	return newTokenizer(r)
}

var namePairs = map[string]string{
	"/Name1":                   "Name1",
	"/A;Name_With-Various***?": "A;Name_With-Various***?",
	"/Lime#20Green":            "Lime Green",
	"/paired#28#29parentheses": "paired()parentheses",
	"/The_Key_of_F#23_Minor":   "The_Key_of_F#_Minor",
	"/A#42":                    "AB",
	"/":                        "",
}

func TestNameParsing(t *testing.T) {
	for str, expected := range namePairs {
		tz := makeTokenizerForText(t, str)
		tok, err := tz.NextToken()
		require.NoError(t, err)
		require.Equal(t, TokenName, tok.Kind)
		require.Equal(t, expected, tok.Val)
	}
}

func TestNumberParsing(t *testing.T) {
	cases := map[string]string{
		"123":     "123",
		"-17":     "-17",
		"+4":      "+4",
		"34.5":    "34.5",
		".5":      ".5",
		"-3.62":   "-3.62",
		"4.":      "4.",
		"0.0":     "0.0",
		"1e3":     "1e3",
		"-1.5e-2": "-1.5e-2",
	}
	for in, want := range cases {
		tz := makeTokenizerForText(t, in)
		tok, err := tz.NextToken()
		require.NoError(t, err)
		require.Equal(t, TokenNumber, tok.Kind)
		require.Equal(t, want, tok.Val)
	}
}

func TestLiteralStringEscapes(t *testing.T) {
	tz := makeTokenizerForText(t, `(A\nB\tC\()`)
	tok, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenString, tok.Kind)
	require.Equal(t, "A\nB\tC(", tok.Val)
}

func TestLiteralStringBalancedParens(t *testing.T) {
	tz := makeTokenizerForText(t, `(outer (inner) text)`)
	tok, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, "outer (inner) text", tok.Val)
}

func TestHexStringParsing(t *testing.T) {
	tz := makeTokenizerForText(t, "<48656C6C6F>")
	tok, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenHexString, tok.Kind)
	require.Equal(t, "Hello", tok.Val)
}

func TestHexStringOddDigitsPadded(t *testing.T) {
	tz := makeTokenizerForText(t, "<48656C6C6F0>")
	tok, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, []byte("Hello\x00"), []byte(tok.Val))
}

func TestDictDelimiters(t *testing.T) {
	tz := makeTokenizerForText(t, "<< >>")
	tok, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenDictOpen, tok.Kind)
	tok, err = tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenDictClose, tok.Kind)
}

func TestKeywordParsing(t *testing.T) {
	for _, kw := range []string{"true", "false", "null", "obj", "endobj", "stream", "R"} {
		tz := makeTokenizerForText(t, kw)
		tok, err := tz.NextToken()
		require.NoError(t, err)
		require.Equal(t, TokenKeyword, tok.Kind)
		require.Equal(t, kw, tok.Val)
	}
}

func TestPushTokenReplaysToken(t *testing.T) {
	tz := makeTokenizerForText(t, "123 456")
	first, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, "123", first.Val)

	require.NoError(t, tz.PushToken(first))
	replayed, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, first, replayed)

	second, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, "456", second.Val)
}

func TestPushTokenRejectsDoublePush(t *testing.T) {
	tz := makeTokenizerForText(t, "1 2")
	tok, err := tz.NextToken()
	require.NoError(t, err)
	require.NoError(t, tz.PushToken(tok))
	require.Error(t, tz.PushToken(tok))
}

func TestCommentsAreSkipped(t *testing.T) {
	tz := makeTokenizerForText(t, "123 % a comment\n456")
	first, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, "123", first.Val)
	second, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, "456", second.Val)
}

func TestTokenizerEOF(t *testing.T) {
	tz := makeTokenizerForText(t, "  ")
	tok, err := tz.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenEOF, tok.Kind)
}

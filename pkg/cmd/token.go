package cmd

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// quotePairs maps every supported opening quote to its closing quote.
var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'“':  '”',
	'„':  '“',
	'‘':  '’',
	'«':  '»',
	'‹':  '›',
	'「':  '」',
}

// NextToken reads the next argument token from text starting at cursor.
// Quoted tokens are returned without their quotes. ok is false when nothing but
// whitespace is left. next always lies past the consumed token.
func NextToken(text string, cursor int) (token string, next int, ok bool) {
	start := skipSpace(text, cursor)
	if start >= len(text) {
		return "", len(text), false
	}

	open, size := utf8.DecodeRuneInString(text[start:])
	if closing, quoted := quotePairs[open]; quoted {
		body := start + size
		end := strings.IndexRune(text[body:], closing)
		if end < 0 {
			return text[body:], len(text), true
		}
		return text[body : body+end], body + end + utf8.RuneLen(closing), true
	}

	end := scanWord(text, start)
	return text[start:end], end, true
}

// NextWord is NextToken without quote handling. Command and subcommand names
// are always plain words.
func NextWord(text string, cursor int) (word string, next int, ok bool) {
	start := skipSpace(text, cursor)
	if start >= len(text) {
		return "", len(text), false
	}
	end := scanWord(text, start)
	return text[start:end], end, true
}

// Remainder returns everything after cursor with surrounding whitespace removed.
func Remainder(text string, cursor int) string {
	if cursor >= len(text) {
		return ""
	}
	if cursor < 0 {
		cursor = 0
	}
	return strings.TrimSpace(text[cursor:])
}

func skipSpace(text string, i int) int {
	if i < 0 {
		i = 0
	}
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

func scanWord(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

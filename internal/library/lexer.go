package library

import (
	"strings"
	"unicode"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenWord
	tokenPhrase
	tokenField
	tokenNot
)

type token struct {
	Type  tokenType
	Value string
}

// lexer splits a search string into words, "quoted phrases", field prefixes
// (the part before a colon) and negations.
type lexer struct {
	input []rune
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input)}
}

func (l *lexer) next() token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return token{Type: tokenEOF}
	}

	switch l.input[l.pos] {
	case '"':
		return l.readPhrase()
	case '-':
		if l.pos+1 < len(l.input) && !unicode.IsSpace(l.input[l.pos+1]) {
			l.pos++
			return token{Type: tokenNot, Value: "-"}
		}
	}

	start := l.pos
	for l.pos < len(l.input) && !unicode.IsSpace(l.input[l.pos]) {
		if l.input[l.pos] == ':' && l.pos > start {
			word := string(l.input[start:l.pos])
			l.pos++ // colon
			return token{Type: tokenField, Value: word}
		}
		l.pos++
	}

	word := string(l.input[start:l.pos])
	if strings.ToUpper(word) == "NOT" {
		return token{Type: tokenNot, Value: "NOT"}
	}
	return token{Type: tokenWord, Value: word}
}

// adjacent reports whether the next rune belongs to the current token, i.e.
// a field prefix is directly followed by its value.
func (l *lexer) adjacent() bool {
	return l.pos < len(l.input) && !unicode.IsSpace(l.input[l.pos])
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

// readPhrase reads up to the closing quote; an unterminated phrase runs to
// the end of input.
func (l *lexer) readPhrase() token {
	l.pos++ // opening quote
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		l.pos++
	}
	value := string(l.input[start:l.pos])
	if l.pos < len(l.input) {
		l.pos++ // closing quote
	}
	return token{Type: tokenPhrase, Value: value}
}

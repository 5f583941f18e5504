package egg

import (
	"bytes"
	"fmt"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokTag
	tokWord
	tokOpen
	tokClose
)

type token struct {
	kind tokKind
	text string
	line int
}

// lexer splits egg text into tags (<Name>), words (bare or quoted) and braces.
type lexer struct {
	data []byte
	off  int
	line int
}

func newLexer(data []byte) *lexer {
	return &lexer{data: data, line: 1}
}

func (l *lexer) peekByte(n int) byte {
	if l.off+n >= len(l.data) {
		return 0
	}
	return l.data[l.off+n]
}

// skipSpace skips whitespace and both comment forms.
func (l *lexer) skipSpace() {
	for l.off < len(l.data) {
		c := l.data[l.off]
		switch {
		case c == '\n':
			l.line++
			l.off++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			l.off++
		case c == '/' && l.peekByte(1) == '/':
			for l.off < len(l.data) && l.data[l.off] != '\n' {
				l.off++
			}
		case c == '/' && l.peekByte(1) == '*':
			l.off += 2
			for l.off < len(l.data) && !(l.data[l.off] == '*' && l.peekByte(1) == '/') {
				if l.data[l.off] == '\n' {
					l.line++
				}
				l.off++
			}
			l.off += 2
			if l.off > len(l.data) {
				l.off = len(l.data)
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.off >= len(l.data) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	line := l.line
	c := l.data[l.off]
	switch c {
	case '{':
		l.off++
		return token{kind: tokOpen, text: "{", line: line}, nil
	case '}':
		l.off++
		return token{kind: tokClose, text: "}", line: line}, nil
	case '<':
		end := bytes.IndexByte(l.data[l.off:], '>')
		if end < 0 {
			return token{}, fmt.Errorf("egg: line %d: unterminated tag", line)
		}
		text := string(l.data[l.off+1 : l.off+end])
		if strings.ContainsAny(text, " \t\r\n{}") {
			return token{}, fmt.Errorf("egg: line %d: malformed tag %q", line, text)
		}
		l.off += end + 1
		return token{kind: tokTag, text: text, line: line}, nil
	case '"':
		return l.quoted()
	}

	start := l.off
	for l.off < len(l.data) {
		c := l.data[l.off]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '{' || c == '}' || c == '"' {
			break
		}
		l.off++
	}
	return token{kind: tokWord, text: string(l.data[start:l.off]), line: line}, nil
}

func (l *lexer) quoted() (token, error) {
	line := l.line
	l.off++ // opening quote
	var sb strings.Builder
	for l.off < len(l.data) {
		c := l.data[l.off]
		switch c {
		case '"':
			l.off++
			return token{kind: tokWord, text: sb.String(), line: line}, nil
		case '\\':
			if l.off+1 < len(l.data) {
				l.off++
				sb.WriteByte(l.data[l.off])
			}
		case '\n':
			l.line++
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
		l.off++
	}
	return token{}, fmt.Errorf("egg: line %d: unterminated string", line)
}

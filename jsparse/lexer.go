package jsparse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	// nlBefore is set when a line break separates this token from the previous one.
	nlBefore bool
	// subs holds the source ranges of a template literal's substitutions.
	subs [][2]int
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokPrivate
	tokPunct
	tokString
	tokTemplate
	tokNumber
	tokRegex
)

type lexer struct {
	src  string
	pos  int
	toks []token
}

// tokenize splits src into tokens. Whitespace and comments are dropped; their extent is
// recoverable from the token offsets.
func tokenize(src string) ([]token, error) {
	lex := &lexer{src: src}

	for {
		nl, err := lex.skipTrivia()
		if err != nil {
			return nil, err
		}

		if lex.pos >= len(src) {
			lex.toks = append(lex.toks, token{kind: tokEOF, start: len(src), end: len(src), nlBefore: nl})
			return lex.toks, nil
		}

		start := lex.pos

		tok, err := lex.next()
		if err != nil {
			return nil, err
		}

		if tok.end <= start {
			return nil, lex.errorf(start, "unrecognized token")
		}

		tok.nlBefore = nl
		lex.toks = append(lex.toks, tok)
	}
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) isIdent(text string) bool {
	return t.is(tokIdent, text)
}

func (t token) isPunct(text string) bool {
	return t.is(tokPunct, text)
}

func (lex *lexer) errorf(offset int, msg string) error {
	return newParseError(lex.src, offset, msg)
}

func (lex *lexer) next() (token, error) {
	start := lex.pos
	r, _ := utf8.DecodeRuneInString(lex.src[lex.pos:])

	switch {
	case r == '"' || r == '\'':
		end, err := lex.scanString(start)
		if err != nil {
			return token{}, err
		}

		return lex.emit(tokString, start, end), nil
	case r == '`':
		end, subs, err := lex.scanTemplate(start)
		if err != nil {
			return token{}, err
		}

		tok := lex.emit(tokTemplate, start, end)
		tok.subs = subs

		return tok, nil
	case r == '#' && lex.pos+1 < len(lex.src) && isIdentStartByte(lex.src[lex.pos+1:]):
		end := lex.scanIdent(start + 1)
		return lex.emit(tokPrivate, start, end), nil
	case isIdentStartRune(r) || r == '\\':
		end := lex.scanIdent(start)
		return lex.emit(tokIdent, start, end), nil
	case (r < utf8.RuneSelf && isDigitByte(byte(r))) || (r == '.' && lex.pos+1 < len(lex.src) && isDigitByte(lex.src[lex.pos+1])):
		return lex.emit(tokNumber, start, lex.scanNumber(start)), nil
	case r == '/' && lex.regexAllowed():
		end, err := lex.scanRegex(start)
		if err != nil {
			return token{}, err
		}

		return lex.emit(tokRegex, start, end), nil
	}

	for _, punct := range punctuators {
		if strings.HasPrefix(lex.src[start:], punct) {
			return lex.emit(tokPunct, start, start+len(punct)), nil
		}
	}

	return token{}, lex.errorf(start, fmt.Sprintf("unexpected character %q", r))
}

func (lex *lexer) emit(kind tokenKind, start, end int) token {
	lex.pos = end

	return token{kind: kind, text: lex.src[start:end], start: start, end: end}
}

// regexAllowed decides whether a slash starts a regular expression literal, based on the
// previous significant token.
func (lex *lexer) regexAllowed() bool {
	if len(lex.toks) == 0 {
		return true
	}

	prev := lex.toks[len(lex.toks)-1]

	switch prev.kind {
	case tokPunct:
		return prev.text != ")" && prev.text != "]" && prev.text != "}"
	case tokIdent:
		_, ok := regexAfterKeyword[prev.text]
		return ok
	default:
		return false
	}
}

func (lex *lexer) scanIdent(pos int) int {
	for pos < len(lex.src) {
		if lex.src[pos] == '\\' {
			// \uXXXX or \u{...}
			pos += 2
			if pos < len(lex.src) && lex.src[pos] == '{' {
				for pos < len(lex.src) && lex.src[pos] != '}' {
					pos++
				}

				pos++
			} else {
				pos += 4
			}

			continue
		}

		r, size := utf8.DecodeRuneInString(lex.src[pos:])
		if !isIdentPartRune(r) {
			break
		}

		pos += size
	}

	return min(pos, len(lex.src))
}

func (lex *lexer) scanNumber(start int) int {
	hex := strings.HasPrefix(lex.src[start:], "0x") || strings.HasPrefix(lex.src[start:], "0X")
	pos := start

	for pos < len(lex.src) {
		c := lex.src[pos]

		switch {
		case isDigitByte(c) || c == '.' || c == '_' || isASCIILetter(c):
			if (c == 'e' || c == 'E') && pos+1 < len(lex.src) && (lex.src[pos+1] == '+' || lex.src[pos+1] == '-') && !hex {
				pos++
			}

			pos++
		default:
			return pos
		}
	}

	return pos
}

func (lex *lexer) scanRegex(start int) (int, error) {
	pos := start + 1
	inClass := false

	for pos < len(lex.src) {
		switch c := lex.src[pos]; {
		case c == '\\':
			pos += 2
			continue
		case c == '\n':
			return 0, lex.errorf(start, "unterminated regular expression")
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			pos++
			for pos < len(lex.src) && isASCIILetter(lex.src[pos]) {
				pos++
			}

			return pos, nil
		}

		pos++
	}

	return 0, lex.errorf(start, "unterminated regular expression")
}

func (lex *lexer) scanString(start int) (int, error) {
	quote := lex.src[start]
	pos := start + 1

	for pos < len(lex.src) {
		switch lex.src[pos] {
		case '\\':
			pos += 2
			continue
		case quote:
			return pos + 1, nil
		case '\n':
			return 0, lex.errorf(start, "unterminated string literal")
		}

		pos++
	}

	return 0, lex.errorf(start, "unterminated string literal")
}

// scanTemplate returns the end of the template literal starting at start and the source ranges
// of its substitutions.
func (lex *lexer) scanTemplate(start int) (int, [][2]int, error) {
	var subs [][2]int

	pos := start + 1

	for pos < len(lex.src) {
		switch {
		case lex.src[pos] == '\\':
			pos += 2
		case lex.src[pos] == '`':
			return pos + 1, subs, nil
		case strings.HasPrefix(lex.src[pos:], "${"):
			end, err := lex.scanSubstitution(pos + 2)
			if err != nil {
				return 0, nil, err
			}

			subs = append(subs, [2]int{pos + 2, end - 1})
			pos = end
		default:
			pos++
		}
	}

	return 0, nil, lex.errorf(start, "unterminated template literal")
}

// scanSubstitution returns the position after the `}` that closes a template substitution.
func (lex *lexer) scanSubstitution(pos int) (int, error) {
	depth := 0

	for pos < len(lex.src) {
		switch c := lex.src[pos]; c {
		case '"', '\'':
			end, err := lex.scanString(pos)
			if err != nil {
				return 0, err
			}

			pos = end
		case '`':
			end, _, err := lex.scanTemplate(pos)
			if err != nil {
				return 0, err
			}

			pos = end
		case '{':
			depth++
			pos++
		case '}':
			if depth == 0 {
				return pos + 1, nil
			}

			depth--
			pos++
		default:
			pos++
		}
	}

	return 0, lex.errorf(pos, "unterminated template substitution")
}

// skipTrivia advances past whitespace and comments and reports whether a line break was seen.
func (lex *lexer) skipTrivia() (bool, error) {
	newline := false

	for lex.pos < len(lex.src) {
		rest := lex.src[lex.pos:]

		switch {
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				lex.pos = len(lex.src)
				return newline, nil
			}

			lex.pos += end
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				return false, lex.errorf(lex.pos, "unterminated comment")
			}

			if strings.Contains(rest[:end+2], "\n") {
				newline = true
			}

			lex.pos += end + 4
		case lex.pos == 0 && strings.HasPrefix(rest, "#!"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}

			lex.pos += end
		default:
			r, size := utf8.DecodeRuneInString(rest)
			if !unicode.IsSpace(r) && r != '\uFEFF' {
				return newline, nil
			}

			if r == '\n' || r == '\u2028' || r == '\u2029' {
				newline = true
			}

			lex.pos += size
		}
	}

	return newline, nil
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentPartRune(r rune) bool {
	return isIdentStartRune(r) || unicode.IsDigit(r) || r == '\u200C' || r == '\u200D'
}

func isIdentStartByte(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isIdentStartRune(r)
}

func isIdentStartRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

// unexported variables.
var (
	// punctuators is ordered longest first so prefix matching picks the longest operator.
	//nolint:gochecknoglobals // Lookup table
	punctuators = []string{
		">>>=",
		"...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
		"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
		"{", "}", "(", ")", "[", "]", ";", ",", "<", ">", "+", "-", "*", "/",
		"%", "&", "|", "^", "!", "~", "?", ":", "=", ".", "@", "#",
	}

	//nolint:gochecknoglobals // Lookup table
	regexAfterKeyword = map[string]struct{}{
		"return": {}, "typeof": {}, "instanceof": {}, "in": {}, "of": {}, "new": {},
		"delete": {}, "void": {}, "throw": {}, "case": {}, "do": {}, "else": {},
		"yield": {}, "await": {},
	}
)

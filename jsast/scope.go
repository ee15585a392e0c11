package jsast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NamingStyle selects how generated identifiers are spelled.
type NamingStyle int

// NamingStyle values.
const (
	// NamingPlain tries the preferred name unchanged, then appends 2, 3, ...
	NamingPlain NamingStyle = iota
	// NamingUnderscore prefixes an underscore, then appends 2, 3, ... (`_Register`, `_Register2`).
	NamingUnderscore
)

// Scope answers name queries for a program's top-level scope. It holds every name bound or
// referenced anywhere in the program plus every name generated through it, so a generated
// name never shadows or captures an existing one.
type Scope struct {
	names map[string]struct{}
}

// ErrUnknownNamingStyle is returned by ParseNamingStyle.
var ErrUnknownNamingStyle = errors.New("unknown naming style")

// NewScope collects the names used by prog.
func NewScope(prog *Program) *Scope {
	scope := &Scope{names: make(map[string]struct{})}
	scope.collect(prog.Body)

	return scope
}

// IsIdentifier reports whether name is a valid, non-reserved identifier.
func IsIdentifier(name string) bool {
	if name == "" || IsReserved(name) {
		return false
	}

	for i, r := range name {
		if i == 0 && !isIdentStart(r) {
			return false
		}

		if !isIdentPart(r) {
			return false
		}
	}

	return true
}

// IsIdentifierName reports whether name may follow a dot in a property access. Reserved words
// are allowed there.
func IsIdentifierName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		if i == 0 && !isIdentStart(r) {
			return false
		}

		if !isIdentPart(r) {
			return false
		}
	}

	return true
}

// IsReserved reports whether name is a reserved word in module code.
func IsReserved(name string) bool {
	_, ok := reservedWords[name]
	return ok
}

// ParseNamingStyle maps a config value to a NamingStyle. Empty means NamingPlain.
func ParseNamingStyle(value string) (NamingStyle, error) {
	switch value {
	case "", "plain":
		return NamingPlain, nil
	case "underscore":
		return NamingUnderscore, nil
	default:
		return NamingPlain, fmt.Errorf("%w: %q", ErrUnknownNamingStyle, value)
	}
}

// ToIdentifier turns an arbitrary string into a valid identifier: invalid characters are
// dropped and the following letter upper-cased, leading digits are removed, and reserved
// words get an underscore prefix.
func ToIdentifier(name string) string {
	var out strings.Builder

	upperNext := false
	started := false

	for _, r := range name {
		if !isIdentPart(r) || unicode.IsSpace(r) {
			upperNext = started
			continue
		}

		if !started && unicode.IsDigit(r) {
			continue
		}

		if upperNext {
			r = unicode.ToUpper(r)
			upperNext = false
		}

		out.WriteRune(r)

		started = true
	}

	result := out.String()
	if !IsIdentifier(result) {
		result = "_" + result
	}

	return result
}

// GenerateUID returns an identifier derived from preferred that the scope does not contain,
// and reserves it.
func (s *Scope) GenerateUID(preferred string, style NamingStyle) string {
	base := ToIdentifier(preferred)

	if style == NamingUnderscore {
		base = strings.TrimLeft(base, "_")
		base = strings.TrimRightFunc(base, unicode.IsDigit)

		if base == "" {
			base = "temp"
		}
	}

	for i := 1; ; i++ {
		candidate := uidCandidate(base, i, style)
		if !s.Has(candidate) && IsIdentifier(candidate) {
			s.Reserve(candidate)
			return candidate
		}
	}
}

// Has reports whether name is bound, referenced, or reserved in the scope.
func (s *Scope) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Reserve marks name as taken.
func (s *Scope) Reserve(name string) {
	s.names[name] = struct{}{}
}

// String implements fmt.Stringer.
func (style NamingStyle) String() string {
	switch style {
	case NamingPlain:
		return "plain"
	case NamingUnderscore:
		return "underscore"
	default:
		return "NamingStyle(" + strconv.Itoa(int(style)) + ")"
	}
}

func (s *Scope) add(names ...string) {
	for _, name := range names {
		if name != "" {
			s.names[name] = struct{}{}
		}
	}
}

func (s *Scope) collect(list []Stmt) {
	for _, stmt := range list {
		switch data := stmt.Data.(type) {
		case *SImport:
			s.add(data.LocalNames()...)
		case *SClass:
			s.add(data.Class.Name)
			s.add(data.Class.Idents...)

			for _, dec := range data.Class.Decorators {
				s.add(ExprIdents(dec.Value)...)
			}
		case *SFunction:
			s.add(data.Name)
			s.add(data.Idents...)
			s.collect(data.Body)
		case *SBlock:
			s.collect(data.Stmts)
		case *SExpr:
			s.add(ExprIdents(data.Value)...)
		case *SRaw:
			s.add(data.Idents...)
		}
	}
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func uidCandidate(base string, i int, style NamingStyle) string {
	name := base
	if i > 1 {
		name += strconv.Itoa(i)
	}

	if style == NamingUnderscore {
		name = "_" + name
	}

	return name
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Lookup table
	reservedWords = map[string]struct{}{
		"await": {}, "break": {}, "case": {}, "catch": {}, "class": {}, "const": {},
		"continue": {}, "debugger": {}, "default": {}, "delete": {}, "do": {}, "else": {},
		"enum": {}, "export": {}, "extends": {}, "false": {}, "finally": {}, "for": {},
		"function": {}, "if": {}, "implements": {}, "import": {}, "in": {}, "instanceof": {},
		"interface": {}, "let": {}, "new": {}, "null": {}, "package": {}, "private": {},
		"protected": {}, "public": {}, "return": {}, "static": {}, "super": {}, "switch": {},
		"this": {}, "throw": {}, "true": {}, "try": {}, "typeof": {}, "var": {}, "void": {},
		"while": {}, "with": {}, "yield": {},
	}
)

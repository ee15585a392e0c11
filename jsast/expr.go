package jsast

import (
	"strings"
	"unicode"
)

// Equal reports whether two expressions render to the same source.
func Equal(a, b Expr) bool {
	return Source(a) == Source(b)
}

// ExprIdents returns the identifier references inside an expression. Property names after
// a dot are not references and are left out.
func ExprIdents(expr Expr) []string {
	switch data := expr.Data.(type) {
	case *EIdentifier:
		return []string{data.Name}
	case *EDot:
		return ExprIdents(data.Target)
	case *ECall:
		idents := ExprIdents(data.Target)
		for _, arg := range data.Args {
			idents = append(idents, ExprIdents(arg)...)
		}

		return idents
	case *ERaw:
		return data.Idents
	default:
		return nil
	}
}

// MatchesSource reports whether text, ignoring whitespace and a trailing semicolon, is the
// source of expr.
func MatchesSource(expr Expr, text string) bool {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")

	return stripSpace(text) == stripSpace(Source(expr))
}

// Source renders an expression as compact single-line source.
func Source(expr Expr) string {
	switch data := expr.Data.(type) {
	case *EIdentifier:
		return data.Name
	case *EDot:
		return Source(data.Target) + "." + data.Name
	case *ECall:
		args := make([]string, 0, len(data.Args))
		for _, arg := range data.Args {
			args = append(args, Source(arg))
		}

		return Source(data.Target) + "(" + strings.Join(args, ", ") + ")"
	case *ERaw:
		return data.Text
	default:
		return ""
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, s)
}

// Package jsprint renders a jsast.Program as source text.
//
// Nodes that still carry their original source are written verbatim, together with the
// whitespace and comments recorded around them. Synthesized or modified nodes are rebuilt on a
// single line with double-quoted specifiers and a terminating semicolon.
package jsprint

import (
	"bytes"
	"strings"

	"github.com/toejough/decoreg/jsast"
)

// Print renders prog.
func Print(prog *jsast.Program) []byte {
	var p printer

	p.stmts(prog.Body)
	p.buf.WriteString(prog.Trailing)

	return p.buf.Bytes()
}

// Quote renders value as a string literal using quote, or double quotes when quote is zero.
func Quote(value string, quote byte) string {
	if quote != '\'' {
		quote = '"'
	}

	var out strings.Builder

	out.WriteByte(quote)

	for _, r := range value {
		switch r {
		case '\\':
			out.WriteString(`\\`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\u2028':
			out.WriteString(`\u2028`)
		case '\u2029':
			out.WriteString(`\u2029`)
		case rune(quote):
			out.WriteByte('\\')
			out.WriteRune(r)
		default:
			out.WriteRune(r)
		}
	}

	out.WriteByte(quote)

	return out.String()
}

// Stmt renders a single statement without its leading text.
func Stmt(data jsast.S) string {
	var p printer

	p.stmt(data)

	return p.buf.String()
}

type printer struct {
	buf bytes.Buffer
}

func (p *printer) block(block *jsast.SBlock) {
	p.buf.WriteString("{")
	p.stmts(block.Stmts)
	p.buf.WriteString(block.Trailing)
	p.buf.WriteString("}")
}

func (p *printer) class(class *jsast.Class) {
	p.buf.WriteString(class.Prefix)

	for _, dec := range class.Decorators {
		if dec.Raw != "" {
			p.buf.WriteString(dec.Raw)
			p.buf.WriteString(dec.Sep)

			continue
		}

		p.buf.WriteString("@")
		p.buf.WriteString(jsast.Source(dec.Value))
		p.buf.WriteString("\n")
	}

	if class.Header != "" {
		p.buf.WriteString(class.Header)
	} else {
		if class.Prefix == "" {
			switch class.Export {
			case jsast.ExportNamed:
				p.buf.WriteString("export ")
			case jsast.ExportDefault:
				p.buf.WriteString("export default ")
			case jsast.ExportNone:
			}
		}

		p.buf.WriteString("class ")

		if class.Name != "" {
			p.buf.WriteString(class.Name)
			p.buf.WriteString(" ")
		}

		if class.Extends != "" {
			p.buf.WriteString("extends ")
			p.buf.WriteString(class.Extends)
			p.buf.WriteString(" ")
		}
	}

	if class.Body == "" {
		p.buf.WriteString("{}")
		return
	}

	p.text(class.Body, class.Bodies)
}

func (p *printer) importDecl(imp *jsast.SImport) {
	p.buf.WriteString("import ")

	var parts []string

	if imp.DefaultName != "" {
		parts = append(parts, imp.DefaultName)
	}

	if imp.StarName != "" {
		parts = append(parts, "* as "+imp.StarName)
	}

	if imp.HasClause || len(imp.Items) > 0 {
		items := make([]string, 0, len(imp.Items))

		for _, item := range imp.Items {
			if item.Alias != "" {
				items = append(items, item.Name+" as "+item.Alias)
			} else {
				items = append(items, item.Name)
			}
		}

		if len(items) == 0 {
			parts = append(parts, "{}")
		} else {
			parts = append(parts, "{ "+strings.Join(items, ", ")+" }")
		}
	}

	if len(parts) > 0 {
		p.buf.WriteString(strings.Join(parts, ", "))
		p.buf.WriteString(" from ")
	}

	p.buf.WriteString(Quote(imp.Source, imp.Quote))

	if imp.Attributes != "" {
		p.buf.WriteString(" ")
		p.buf.WriteString(imp.Attributes)
	}

	p.buf.WriteString(";")
}

func (p *printer) stmt(data jsast.S) {
	switch stmt := data.(type) {
	case *jsast.SImport:
		if stmt.Raw != "" {
			p.buf.WriteString(stmt.Raw)
			return
		}

		p.importDecl(stmt)
	case *jsast.SExportFrom:
		p.buf.WriteString(stmt.Raw)
	case *jsast.SClass:
		p.class(&stmt.Class)
	case *jsast.SFunction:
		if stmt.Header != "" {
			p.buf.WriteString(stmt.Header)
		} else {
			p.buf.WriteString("function " + stmt.Name + "() ")
		}

		p.buf.WriteString("{")
		p.stmts(stmt.Body)
		p.buf.WriteString(stmt.Trailing)
		p.buf.WriteString("}")
	case *jsast.SBlock:
		p.block(stmt)
	case *jsast.SExpr:
		if stmt.Raw != "" {
			p.buf.WriteString(stmt.Raw)
			return
		}

		p.buf.WriteString(jsast.Source(stmt.Value))
		p.buf.WriteString(";")
	case *jsast.SRaw:
		p.text(stmt.Text, stmt.Bodies)
	}
}

func (p *printer) stmts(list []jsast.Stmt) {
	for _, stmt := range list {
		p.buf.WriteString(stmt.Leading)
		p.stmt(stmt.Data)
	}
}

// text writes source text, replacing each body span with the body's current statements.
func (p *printer) text(text string, bodies []jsast.Body) {
	last := 0

	for _, body := range bodies {
		p.buf.WriteString(text[last:body.Start])
		p.block(body.Block)
		last = body.End
	}

	p.buf.WriteString(text[last:])
}

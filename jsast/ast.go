// Package jsast defines the program tree the registration pass reads and rewrites.
//
// The tree models only the parts of an ECMAScript module the pass cares about: import
// declarations, class declarations with their decorators, function and block bodies that can
// hold nested classes, and expression statements the pass emits. Everything else is kept as
// opaque raw statements that remember their exact source text and the identifiers they
// mention, so printing an untouched tree reproduces the input byte for byte. Statement bodies
// inside raw text (if and loop branches, try clauses, arrow functions, methods) are parsed
// into Body lists so nested classes stay reachable.
package jsast

// ExportKind records how a class declaration is exported.
type ExportKind int

// ExportKind values.
const (
	ExportNone ExportKind = iota
	ExportNamed
	ExportDefault
)

// Body is a `{ ... }` statement list embedded in text the tree otherwise keeps verbatim: a
// branch of an if or loop, a try, catch or finally clause, an arrow function or method body.
// Start and End are the byte offsets of its braces within the enclosing text.
type Body struct {
	Start int
	End   int
	Block *SBlock
}

// Class is a class declaration. Name is empty for `export default class {}`.
type Class struct {
	// Prefix is the source text before the first decorator when the export keyword precedes
	// the decorators, e.g. "export " in `export @dec class A {}`.
	Prefix     string
	Decorators []Decorator
	Name       string
	Export     ExportKind
	// Extends is the heritage expression text without the `extends` keyword.
	Extends string
	// Body is the class body text including the braces.
	Body string
	// Header is the source text between the last decorator and the body, e.g.
	// "export class Foo extends Bar ". Empty for synthesized classes.
	Header string
	// Idents lists the identifiers referenced by the heritage clause and body.
	Idents []string
	// Bodies are the method and static block bodies inside Body, in source order.
	Bodies []Body
}

// ClauseItem is one entry of a named import clause: `Name` or `Name as Alias`.
type ClauseItem struct {
	Name  string
	Alias string
}

// Decorator is a `@...` marker attached to a class declaration.
type Decorator struct {
	Value Expr
	// Raw is the decorator's source text including the `@`. Sep is the whitespace that
	// followed it in the source.
	Raw string
	Sep string
}

// E is the variant interface for expression data.
type E interface{ isExpr() }

// ECall is a call expression.
type ECall struct {
	Target Expr
	Args   []Expr
}

// EDot is a property access `Target.Name`.
type EDot struct {
	Target Expr
	Name   string
}

// EIdentifier is an identifier reference.
type EIdentifier struct {
	Name string
}

// ERaw is an expression the tree does not model, kept as source text.
type ERaw struct {
	Text   string
	Idents []string
}

// Expr wraps one expression variant.
type Expr struct {
	Data E
}

// Program is the root of a compilation unit.
type Program struct {
	Body []Stmt
	// Trailing holds the whitespace and comments after the last statement.
	Trailing string
	// Newline is the unit's line break, "\n" or "\r\n". Empty means "\n".
	Newline string
}

// S is the variant interface for statement data.
type S interface{ isStmt() }

// SBlock is a bare block statement `{ ... }`.
type SBlock struct {
	Stmts    []Stmt
	Trailing string
}

// SClass is a class declaration statement, possibly exported.
type SClass struct {
	Class Class
}

// SExportFrom is a re-export such as `export { a } from "x"` or `export * from "x"`.
// Re-exports never count as imports.
type SExportFrom struct {
	Source string
	Raw    string
}

// SExpr is an expression statement.
type SExpr struct {
	Value Expr
	Raw   string
}

// SFunction is a function declaration whose body is parsed into statements.
type SFunction struct {
	Name string
	// Header is the source text before the body's opening brace, e.g. "async function f(a) ".
	Header   string
	Body     []Stmt
	Trailing string
	Idents   []string
}

// SImport is an import declaration. The supported shapes are:
//
//	import "path"
//	import def from "path"
//	import * as ns from "path"
//	import { a, b as c } from "path"
//	import def, * as ns from "path"
//	import def, { a } from "path"
type SImport struct {
	DefaultName string
	StarName    string
	Items       []ClauseItem
	HasClause   bool
	Source      string
	// Quote is the quote character used around Source; zero means double quotes.
	Quote byte
	// Attributes is the raw `with { ... }` suffix, if any.
	Attributes string
	// Raw is the original statement text. It is cleared whenever the import is modified so
	// the printer rebuilds it.
	Raw string
}

// SRaw is a statement the tree does not model.
type SRaw struct {
	Text   string
	Idents []string
	// Bodies are the statement lists nested in Text, in source order. They do not overlap.
	Bodies []Body
}

// Stmt wraps one statement variant with the source text that preceded it.
type Stmt struct {
	Data S
	// Leading is the whitespace and comments between the previous statement and this one.
	Leading string
}

// Dot builds `target.name`.
func Dot(target Expr, name string) Expr {
	return Expr{Data: &EDot{Target: target, Name: name}}
}

// Call builds `target(args...)`.
func Call(target Expr, args ...Expr) Expr {
	return Expr{Data: &ECall{Target: target, Args: args}}
}

// Ident builds an identifier reference.
func Ident(name string) Expr {
	return Expr{Data: &EIdentifier{Name: name}}
}

// NamespaceImport builds `import * as local from "source"`.
func NamespaceImport(local, source string) *SImport {
	return &SImport{StarName: local, Source: source}
}

// LocalNames returns every name the import binds locally, in source order.
func (imp *SImport) LocalNames() []string {
	var names []string

	if imp.DefaultName != "" {
		names = append(names, imp.DefaultName)
	}

	if imp.StarName != "" {
		names = append(names, imp.StarName)
	}

	for _, item := range imp.Items {
		names = append(names, item.Local())
	}

	return names
}

// Local returns the name the item binds in the importing module.
func (item ClauseItem) Local() string {
	if item.Alias != "" {
		return item.Alias
	}

	return item.Name
}

func (*ECall) isExpr()       {}
func (*EDot) isExpr()        {}
func (*EIdentifier) isExpr() {}
func (*ERaw) isExpr()        {}

func (*SBlock) isStmt()      {}
func (*SClass) isStmt()      {}
func (*SExportFrom) isStmt() {}
func (*SExpr) isStmt()       {}
func (*SFunction) isStmt()   {}
func (*SImport) isStmt()     {}
func (*SRaw) isStmt()        {}

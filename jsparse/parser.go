// Package jsparse reads ECMAScript module source into a jsast.Program.
//
// Imports, re-exports, class declarations with their decorators, function declarations and
// bare blocks are parsed into nodes. Every other statement is kept as an opaque raw statement,
// delimited by semicolons, balanced brackets and the usual automatic-semicolon line breaks.
// Statement bodies inside raw statements and class bodies are parsed as nested lists: a brace
// opens one when it follows `)`, `=>`, `else`, `try`, `catch`, `finally`, `do` or `static`.
// Labels and switch clauses are raw statements of their own. Every node keeps its exact
// source span, so printing an unmodified program reproduces the input.
package jsparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/toejough/decoreg/jsast"
)

// ParseError reports malformed source. It wraps ErrSyntax.
type ParseError struct {
	Offset int
	Line   int
	Col    int
	Msg    string
}

// ErrSyntax is matched by every ParseError.
var ErrSyntax = errors.New("syntax error")

// Parse parses a module.
func Parse(src []byte) (*jsast.Program, error) {
	text := string(src)

	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{src: text, toks: toks}

	body, trailing, err := p.parseList(0, false)
	if err != nil {
		return nil, err
	}

	newline := "\n"
	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		newline = "\r\n"
	}

	return &jsast.Program{Body: body, Trailing: trailing, Newline: newline}, nil
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// Unwrap returns ErrSyntax.
func (e *ParseError) Unwrap() error {
	return ErrSyntax
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

// afterDot reports whether the token at i is a property name.
func (p *parser) afterDot(i int) bool {
	return i > 0 && (p.toks[i-1].isPunct(".") || p.toks[i-1].isPunct("?."))
}

// atBody reports whether the current token opens a statement body.
func (p *parser) atBody() bool {
	if !p.peek().isPunct("{") || p.pos == 0 {
		return false
	}

	prev := p.toks[p.pos-1]
	if prev.isPunct(")") || prev.isPunct("=>") {
		return true
	}

	if _, ok := bodyAfterKeyword[prev.text]; !ok || prev.kind != tokIdent {
		return false
	}

	return !p.afterDot(p.pos - 1)
}

// atClassExpr reports whether the current token starts a class expression.
func (p *parser) atClassExpr() bool {
	if !p.peek().isIdent("class") || p.afterDot(p.pos) {
		return false
	}

	next := p.peekAt(1)

	return next.isPunct("{") || next.kind == tokIdent
}

// consumeGroup consumes the bracketed group starting at the current token and parses the
// statement bodies and class expressions inside it. Offsets are relative to base.
func (p *parser) consumeGroup(base int) ([]jsast.Body, error) {
	open := p.peek()

	var (
		stack  []string
		bodies []jsast.Body
	)

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			return nil, p.errorf(open, "unterminated %q", open.text)
		}

		if len(stack) > 0 {
			inner, ok, err := p.nested(base)
			if err != nil {
				return nil, err
			}

			if ok {
				bodies = append(bodies, inner...)
				continue
			}
		}

		var err error

		stack, err = p.track(stack, tok)
		if err != nil {
			return nil, err
		}

		p.advance()

		if len(stack) == 0 {
			return bodies, nil
		}
	}
}

// continues reports whether the raw statement that ends with the token at prevIdx carries on
// past a line break into next.
func (p *parser) continues(prevIdx, headEnd int, first, next token) bool {
	if prevIdx == headEnd {
		return true
	}

	prev := p.toks[prevIdx]

	switch prev.kind {
	case tokPunct:
		if _, ok := statementEndPunct[prev.text]; !ok {
			return true
		}
	case tokIdent:
		if _, ok := continueAfterKeyword[prev.text]; ok {
			return true
		}
	case tokEOF, tokPrivate, tokString, tokTemplate, tokNumber, tokRegex:
	}

	switch next.kind {
	case tokPunct:
		if next.text == "{" {
			return prev.isPunct(")")
		}

		_, restarts := statementStartPunct[next.text]

		return !restarts
	case tokIdent:
		if next.isIdent("while") {
			return first.isIdent("do")
		}

		_, ok := continueBeforeKeyword[next.text]

		return ok
	case tokEOF, tokPrivate, tokString, tokTemplate, tokNumber, tokRegex:
	}

	return false
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return newParseError(p.src, tok.start, fmt.Sprintf(format, args...))
}

func (p *parser) expectIdent(text string) error {
	tok := p.advance()
	if !tok.isIdent(text) {
		return p.errorf(tok, "expected %q, found %s", text, describe(tok))
	}

	return nil
}

// identsIn returns the identifier references among tokens [from, to). Property names,
// reserved words and private names are skipped; template substitutions are searched.
func (p *parser) identsIn(from, to int) []string {
	var idents []string

	for i := from; i < to; i++ {
		tok := p.toks[i]

		switch tok.kind {
		case tokIdent:
			if jsast.IsReserved(tok.text) || p.afterDot(i) {
				continue
			}

			idents = append(idents, tok.text)
		case tokTemplate:
			for _, sub := range tok.subs {
				idents = append(idents, substitutionIdents(p.src[sub[0]:sub[1]])...)
			}
		case tokEOF, tokPrivate, tokPunct, tokString, tokNumber, tokRegex:
		}
	}

	return idents
}

// nested parses the statement body or class expression starting at the current token, if
// there is one. Offsets are relative to base.
func (p *parser) nested(base int) ([]jsast.Body, bool, error) {
	switch {
	case p.atBody():
		body, err := p.parseBody(base)
		if err != nil {
			return nil, false, err
		}

		return []jsast.Body{body}, true, nil
	case p.atClassExpr():
		p.advance()

		err := p.skipToBody()
		if err != nil {
			return nil, false, err
		}

		bodies, err := p.consumeGroup(base)
		if err != nil {
			return nil, false, err
		}

		return bodies, true, nil
	default:
		return nil, false, nil
	}
}

func (p *parser) parseArgs() ([]jsast.Expr, error) {
	open := p.advance()

	var (
		args  []jsast.Expr
		stack []string
	)

	from := p.pos

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			return nil, p.errorf(open, "unterminated argument list")
		}

		if len(stack) == 0 && (tok.isPunct(",") || tok.isPunct(")")) {
			if p.pos > from {
				args = append(args, p.rawExpr(from, p.pos))
			}

			p.advance()

			if tok.isPunct(")") {
				return args, nil
			}

			from = p.pos

			continue
		}

		var err error

		stack, err = p.track(stack, tok)
		if err != nil {
			return nil, err
		}

		p.advance()
	}
}

func (p *parser) parseBlock() (jsast.S, error) {
	body, err := p.parseBody(0)
	if err != nil {
		return nil, err
	}

	return body.Block, nil
}

// parseBody parses the `{ ... }` statement list at the current token. Offsets are relative to
// base.
func (p *parser) parseBody(base int) (jsast.Body, error) {
	open := p.advance()

	stmts, trailing, err := p.parseList(open.end, true)
	if err != nil {
		return jsast.Body{}, err
	}

	p.advance()

	return jsast.Body{
		Start: open.start - base,
		End:   p.prevEnd() - base,
		Block: &jsast.SBlock{Stmts: stmts, Trailing: trailing},
	}, nil
}

// parseClass parses an optionally decorated, optionally exported class declaration. prefix and
// export are set when the export keyword came before the decorators and was already consumed.
func (p *parser) parseClass(prefix string, export jsast.ExportKind) (jsast.S, error) {
	decorators, err := p.parseDecorators()
	if err != nil {
		return nil, err
	}

	header := p.peek()
	class := jsast.Class{Prefix: prefix, Decorators: decorators, Export: export}

	if export == jsast.ExportNone && p.peek().isIdent("export") {
		p.advance()

		class.Export = jsast.ExportNamed

		if p.peek().isIdent("default") {
			p.advance()

			class.Export = jsast.ExportDefault
		}
	}

	if keyword := p.advance(); !keyword.isIdent("class") {
		return nil, p.errorf(keyword, "decorators must be followed by a class declaration, found %s", describe(keyword))
	}

	if tok := p.peek(); tok.kind == tokIdent && !tok.isIdent("extends") {
		class.Name = p.advance().text
	} else if class.Export != jsast.ExportDefault {
		return nil, p.errorf(tok, "class declaration requires a name")
	}

	if p.peek().isIdent("extends") {
		keyword := p.advance()
		from := p.pos

		err := p.skipToBody()
		if err != nil {
			return nil, err
		}

		class.Extends = strings.TrimSpace(p.src[keyword.end:p.peek().start])
		if class.Extends == "" {
			return nil, p.errorf(keyword, "missing superclass expression")
		}

		class.Idents = p.identsIn(from, p.pos)
	}

	open := p.peek()
	if !open.isPunct("{") {
		return nil, p.errorf(open, "expected class body, found %s", describe(open))
	}

	from := p.pos

	class.Bodies, err = p.consumeGroup(open.start)
	if err != nil {
		return nil, err
	}

	class.Header = p.src[header.start:open.start]
	class.Body = p.src[open.start:p.prevEnd()]
	class.Idents = append(class.Idents, p.identsIn(from, p.pos)...)

	return &jsast.SClass{Class: class}, nil
}

// parseClause consumes a label or a switch clause head up to and including its colon, e.g.
// `outer:` or `case a ? b : c:`.
func (p *parser) parseClause() (jsast.S, error) {
	from := p.pos
	first := p.peek()
	ternary := 0

	var stack []string

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			return nil, p.errorf(first, "unterminated %q clause", first.text)
		}

		if len(stack) == 0 {
			switch {
			case tok.isPunct("?"):
				ternary++
			case tok.isPunct(":") && ternary > 0:
				ternary--
			case tok.isPunct(":"):
				p.advance()

				return &jsast.SRaw{Text: p.src[first.start:p.prevEnd()], Idents: p.identsIn(from, p.pos)}, nil
			}
		}

		var err error

		stack, err = p.track(stack, tok)
		if err != nil {
			return nil, err
		}

		p.advance()
	}
}

func (p *parser) parseDecoratorExpr() (jsast.Expr, error) {
	tok := p.peek()

	if tok.isPunct("(") {
		from := p.pos

		err := p.skipBalanced()
		if err != nil {
			return jsast.Expr{}, err
		}

		return p.rawExpr(from, p.pos), nil
	}

	if tok.kind != tokIdent {
		return jsast.Expr{}, p.errorf(tok, "expected decorator expression, found %s", describe(tok))
	}

	p.advance()

	expr := jsast.Ident(tok.text)

	for p.peek().isPunct(".") {
		p.advance()

		name := p.advance()
		if name.kind != tokIdent && name.kind != tokPrivate {
			return jsast.Expr{}, p.errorf(name, "expected property name, found %s", describe(name))
		}

		expr = jsast.Dot(expr, name.text)
	}

	if p.peek().isPunct("(") {
		args, err := p.parseArgs()
		if err != nil {
			return jsast.Expr{}, err
		}

		expr = jsast.Call(expr, args...)
	}

	return expr, nil
}

func (p *parser) parseDecorators() ([]jsast.Decorator, error) {
	var decorators []jsast.Decorator

	for p.peek().isPunct("@") {
		at := p.advance()

		value, err := p.parseDecoratorExpr()
		if err != nil {
			return nil, err
		}

		end := p.prevEnd()
		decorators = append(decorators, jsast.Decorator{
			Value: value,
			Raw:   p.src[at.start:end],
			Sep:   p.src[end:p.peek().start],
		})
	}

	return decorators, nil
}

func (p *parser) parseExport() (jsast.S, error) {
	start, next := p.peek(), p.peekAt(1)

	switch {
	case next.isIdent("class"):
		return p.parseClass("", jsast.ExportNone)
	case next.isIdent("default"):
		after := p.peekAt(2)

		switch {
		case after.isIdent("class"):
			return p.parseClass("", jsast.ExportNone)
		case isFunctionStart(after, p.peekAt(3)):
			return p.parseFunction(start.start)
		case after.isPunct("@"):
			p.advance()
			p.advance()

			return p.parseClass(p.src[start.start:after.start], jsast.ExportDefault)
		}
	case next.isPunct("@"):
		p.advance()

		return p.parseClass(p.src[start.start:next.start], jsast.ExportNamed)
	case isFunctionStart(next, p.peekAt(2)):
		return p.parseFunction(start.start)
	case next.isPunct("*"), next.isPunct("{"):
		return p.parseExportList()
	}

	return p.parseRaw()
}

// parseExportList parses `export { ... }` and `export * ...`, which are re-exports when they
// carry a `from` clause.
func (p *parser) parseExportList() (jsast.S, error) {
	from := p.pos

	raw, err := p.parseRaw()
	if err != nil {
		return nil, err
	}

	depth := 0

	for i := from; i < p.pos-1; i++ {
		tok := p.toks[i]

		switch {
		case tok.isPunct("{"):
			depth++
		case tok.isPunct("}"):
			depth--
		case depth == 0 && tok.isIdent("from") && p.toks[i+1].kind == tokString:
			return &jsast.SExportFrom{Source: unquote(p.toks[i+1].text), Raw: raw.Text}, nil
		}
	}

	return raw, nil
}

// parseFunction parses a function declaration starting at offset start, which may point at an
// `export` keyword.
func (p *parser) parseFunction(start int) (jsast.S, error) {
	fn := &jsast.SFunction{}
	from := p.pos

	var stack []string

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			return nil, p.errorf(tok, "unexpected end of input in function declaration")
		}

		if len(stack) == 0 && tok.isPunct("{") && p.pos > from {
			break
		}

		if len(stack) == 0 && tok.isIdent("function") {
			p.advance()

			if p.peek().isPunct("*") {
				p.advance()
			}

			if name := p.peek(); name.kind == tokIdent {
				fn.Name = p.advance().text
			}

			continue
		}

		var err error

		stack, err = p.track(stack, tok)
		if err != nil {
			return nil, err
		}

		p.advance()
	}

	open := p.peek()
	fn.Header = p.src[start:open.start]
	fn.Idents = p.identsIn(from, p.pos)

	p.advance()

	body, trailing, err := p.parseList(open.end, true)
	if err != nil {
		return nil, err
	}

	p.advance()

	fn.Body = body
	fn.Trailing = trailing

	return fn, nil
}

func (p *parser) parseImport() (jsast.S, error) {
	start := p.advance()
	imp := &jsast.SImport{}

	if p.peek().kind != tokString {
		err := p.parseImportClause(imp)
		if err != nil {
			return nil, err
		}

		err = p.expectIdent("from")
		if err != nil {
			return nil, err
		}
	}

	source := p.advance()
	if source.kind != tokString {
		return nil, p.errorf(source, "expected module specifier, found %s", describe(source))
	}

	imp.Source = unquote(source.text)
	imp.Quote = source.text[0]

	if tok := p.peek(); (tok.isIdent("with") || tok.isIdent("assert")) && p.peekAt(1).isPunct("{") {
		p.advance()

		err := p.skipBalanced()
		if err != nil {
			return nil, err
		}

		imp.Attributes = p.src[tok.start:p.prevEnd()]
	}

	if p.peek().isPunct(";") {
		p.advance()
	}

	imp.Raw = p.src[start.start:p.prevEnd()]

	return imp, nil
}

func (p *parser) parseImportClause(imp *jsast.SImport) error {
	tok := p.peek()

	if tok.kind == tokIdent {
		imp.DefaultName = p.advance().text

		if !p.peek().isPunct(",") {
			return nil
		}

		p.advance()

		tok = p.peek()
	}

	switch {
	case tok.isPunct("*"):
		p.advance()

		err := p.expectIdent("as")
		if err != nil {
			return err
		}

		name := p.advance()
		if name.kind != tokIdent {
			return p.errorf(name, "expected namespace name, found %s", describe(name))
		}

		imp.StarName = name.text
	case tok.isPunct("{"):
		p.advance()

		imp.HasClause = true

		for !p.peek().isPunct("}") {
			item, err := p.parseClauseItem()
			if err != nil {
				return err
			}

			imp.Items = append(imp.Items, item)

			if p.peek().isPunct(",") {
				p.advance()
				continue
			}

			if tok := p.peek(); !tok.isPunct("}") {
				return p.errorf(tok, "expected \",\" or \"}\" in import clause, found %s", describe(tok))
			}
		}

		p.advance()
	default:
		return p.errorf(tok, "expected import clause, found %s", describe(tok))
	}

	return nil
}

func (p *parser) parseClauseItem() (jsast.ClauseItem, error) {
	name := p.advance()
	if name.kind != tokIdent && name.kind != tokString {
		return jsast.ClauseItem{}, p.errorf(name, "expected imported name, found %s", describe(name))
	}

	item := jsast.ClauseItem{Name: name.text}

	if p.peek().isIdent("as") {
		p.advance()

		alias := p.advance()
		if alias.kind != tokIdent {
			return jsast.ClauseItem{}, p.errorf(alias, "expected local name, found %s", describe(alias))
		}

		item.Alias = alias.text
	}

	return item, nil
}

// parseList parses statements until the end of input, or until the closing brace of the
// enclosing body when nested. The closing brace is not consumed. from is the offset where the
// first statement's leading text begins.
func (p *parser) parseList(from int, nested bool) ([]jsast.Stmt, string, error) {
	var list []jsast.Stmt

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			if nested {
				return nil, "", p.errorf(tok, "unexpected end of input, expected \"}\"")
			}

			break
		}

		if nested && tok.isPunct("}") {
			break
		}

		data, err := p.parseStatement()
		if err != nil {
			return nil, "", err
		}

		list = append(list, jsast.Stmt{Data: data, Leading: p.src[from:tok.start]})
		from = p.prevEnd()
	}

	return list, p.src[from:p.peek().start], nil
}

// parseRaw consumes one statement the tree does not model.
func (p *parser) parseRaw() (*jsast.SRaw, error) {
	from := p.pos
	first := p.peek()
	headEnd := -1
	headOpen := false

	var (
		stack  []string
		bodies []jsast.Body
	)

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			if len(stack) > 0 {
				return nil, p.errorf(tok, "unexpected end of input, expected %q", stack[len(stack)-1])
			}

			break
		}

		if len(stack) == 0 && p.pos > from {
			if tok.isPunct("}") {
				break
			}

			if tok.nlBefore && !p.continues(p.pos-1, headEnd, first, tok) {
				break
			}
		}

		if len(stack) == 0 && tok.isPunct("(") && p.pos > from && startsHead(p.toks, p.pos) {
			headOpen = true
		}

		inner, ok, err := p.nested(first.start)
		if err != nil {
			return nil, err
		}

		if ok {
			bodies = append(bodies, inner...)
			continue
		}

		stack, err = p.track(stack, tok)
		if err != nil {
			return nil, err
		}

		if headOpen && len(stack) == 0 && tok.isPunct(")") {
			headEnd = p.pos
			headOpen = false
		}

		p.advance()

		if len(stack) == 0 && tok.isPunct(";") {
			break
		}
	}

	return &jsast.SRaw{
		Text:   p.src[first.start:p.prevEnd()],
		Idents: p.identsIn(from, p.pos),
		Bodies: bodies,
	}, nil
}

func (p *parser) parseStatement() (jsast.S, error) {
	tok, next := p.peek(), p.peekAt(1)

	switch {
	case tok.isIdent("import") && !next.isPunct("(") && !next.isPunct("."):
		return p.parseImport()
	case tok.isIdent("export"):
		return p.parseExport()
	case tok.isPunct("@"), tok.isIdent("class"):
		return p.parseClass("", jsast.ExportNone)
	case isFunctionStart(tok, next):
		return p.parseFunction(tok.start)
	case tok.isPunct("{"):
		return p.parseBlock()
	case tok.isIdent("case"), tok.isIdent("default") && next.isPunct(":"),
		tok.kind == tokIdent && next.isPunct(":") && !jsast.IsReserved(tok.text):
		return p.parseClause()
	default:
		return p.parseRaw()
	}
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	return p.toks[min(p.pos+n, len(p.toks)-1)]
}

// prevEnd is the end offset of the last consumed token.
func (p *parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}

	return p.toks[p.pos-1].end
}

func (p *parser) rawExpr(from, to int) jsast.Expr {
	if to-from == 1 && p.toks[from].kind == tokIdent && !jsast.IsReserved(p.toks[from].text) {
		return jsast.Ident(p.toks[from].text)
	}

	return jsast.Expr{Data: &jsast.ERaw{
		Text:   p.src[p.toks[from].start:p.toks[to-1].end],
		Idents: p.identsIn(from, to),
	}}
}

// skipBalanced consumes the bracketed group starting at the current token.
func (p *parser) skipBalanced() error {
	open := p.peek()

	var stack []string

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			return p.errorf(open, "unterminated %q", open.text)
		}

		var err error

		stack, err = p.track(stack, tok)
		if err != nil {
			return err
		}

		p.advance()

		if len(stack) == 0 {
			return nil
		}
	}
}

// skipToBody consumes tokens up to, not including, the next `{` outside brackets.
func (p *parser) skipToBody() error {
	var stack []string

	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			return p.errorf(tok, "unexpected end of input, expected class body")
		}

		if len(stack) == 0 && tok.isPunct("{") {
			return nil
		}

		var err error

		stack, err = p.track(stack, tok)
		if err != nil {
			return err
		}

		p.advance()
	}
}

// track updates the stack of expected closing brackets for tok.
func (p *parser) track(stack []string, tok token) ([]string, error) {
	if tok.kind != tokPunct {
		return stack, nil
	}

	if closer, ok := closers[tok.text]; ok {
		return append(stack, closer), nil
	}

	switch tok.text {
	case ")", "]", "}":
		if len(stack) == 0 || stack[len(stack)-1] != tok.text {
			return nil, p.errorf(tok, "unexpected %q", tok.text)
		}

		return stack[:len(stack)-1], nil
	}

	return stack, nil
}

// unexported variables.
var (
	// bodyAfterKeyword lists keywords directly followed by a statement body.
	//nolint:gochecknoglobals // Lookup table
	bodyAfterKeyword = map[string]struct{}{
		"catch": {}, "do": {}, "else": {}, "finally": {}, "static": {}, "try": {},
	}

	//nolint:gochecknoglobals // Lookup table
	closers = map[string]string{"(": ")", "[": "]", "{": "}"}

	// continueAfterKeyword lists keywords a statement cannot end with.
	//nolint:gochecknoglobals // Lookup table
	continueAfterKeyword = map[string]struct{}{
		"as": {}, "async": {}, "await": {}, "case": {}, "const": {}, "default": {}, "delete": {},
		"do": {}, "else": {}, "export": {}, "extends": {}, "finally": {}, "from": {}, "import": {},
		"in": {}, "instanceof": {}, "let": {}, "new": {}, "of": {}, "try": {}, "typeof": {},
		"var": {}, "void": {},
	}

	// continueBeforeKeyword lists keywords that cannot start a statement following a line break.
	//nolint:gochecknoglobals // Lookup table
	continueBeforeKeyword = map[string]struct{}{
		"catch": {}, "else": {}, "finally": {}, "in": {}, "instanceof": {}, "of": {},
	}

	// statementEndPunct lists punctuators a statement may end with before a line break.
	//nolint:gochecknoglobals // Lookup table
	statementEndPunct = map[string]struct{}{")": {}, "]": {}, "}": {}, "++": {}, "--": {}}

	// statementStartPunct lists punctuators that start a new statement after a line break.
	//nolint:gochecknoglobals // Lookup table
	statementStartPunct = map[string]struct{}{"++": {}, "--": {}, "!": {}, "~": {}, "@": {}}
)

func describe(tok token) string {
	if tok.kind == tokEOF {
		return "end of input"
	}

	return strconv.Quote(tok.text)
}

func isFunctionStart(tok, next token) bool {
	return tok.isIdent("function") || (tok.isIdent("async") && next.isIdent("function") && !next.nlBefore)
}

func newParseError(src string, offset int, msg string) *ParseError {
	prefix := src[:min(offset, len(src))]
	lineStart := strings.LastIndexByte(prefix, '\n') + 1

	return &ParseError{
		Offset: offset,
		Line:   strings.Count(prefix, "\n") + 1,
		Col:    utf8.RuneCountInString(prefix[lineStart:]) + 1,
		Msg:    msg,
	}
}

// startsHead reports whether the `(` at index i opens the head of an if, for, while or with
// statement, after which a line break does not end the statement.
func startsHead(toks []token, i int) bool {
	prev := toks[i-1]
	if prev.isIdent("await") && i > 1 && toks[i-2].isIdent("for") {
		return true
	}

	if prev.isIdent("while") {
		return i < 2 || !toks[i-2].isPunct("}")
	}

	return prev.isIdent("if") || prev.isIdent("for") || prev.isIdent("with")
}

func substitutionIdents(expr string) []string {
	toks, err := tokenize(expr)
	if err != nil {
		return nil
	}

	inner := &parser{src: expr, toks: toks}

	return inner.identsIn(0, len(toks))
}

// unquote returns the value of a string literal token. Escapes are decoded when possible.
func unquote(lit string) string {
	inner := lit[1 : len(lit)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}

	if lit[0] == '\'' {
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
	}

	value, err := strconv.Unquote(`"` + inner + `"`)
	if err != nil {
		return lit[1 : len(lit)-1]
	}

	return value
}

// Package rewrite injects the required imports into a program and inserts one registration call
// after every annotated class declaration.
package rewrite

import (
	"errors"
	"fmt"
	"strings"

	scan "github.com/toejough/decoreg/internal/pass/1_scan"
	"github.com/toejough/decoreg/jsast"
)

// Exported variables.
var (
	// ErrConfiguration reports unusable import specs. It is fatal for the unit being processed.
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingBinding reports a registration call whose binding was never ensured.
	ErrMissingBinding = errors.New("missing generated binding")
	// ErrClassNotFound reports an annotated class that is no longer in its statement list.
	ErrClassNotFound = errors.New("annotated class not found in its block")
)

// BindingKind says how the registration call reaches a module's logical export.
type BindingKind int

// BindingKind values.
const (
	// BindingNamespace: the local names the module namespace; the call uses `<local>.<logical>`.
	BindingNamespace BindingKind = iota
	// BindingNamed: the local already names the logical export; the call uses `<local>`.
	BindingNamed
)

// Bindings is the per-unit cache of generated bindings, keyed by logical name. A fresh value
// is created for every compilation unit.
type Bindings struct {
	byLogical map[string]GeneratedBinding
	order     []string
}

// GeneratedBinding associates a logical name with the local identifier emitted code uses.
type GeneratedBinding struct {
	LogicalName string      `json:"logicalName"`
	LocalName   string      `json:"localName"`
	ModulePath  string      `json:"modulePath"`
	Kind        BindingKind `json:"kind"`
	// Created is set when a new import statement was emitted for the binding, Extended when an
	// existing import was widened to provide it.
	Created  bool `json:"created,omitempty"`
	Extended bool `json:"extended,omitempty"`
}

// ImportSpec names a module that must be imported and the export the registration call uses.
type ImportSpec struct {
	LogicalName string
	ModulePath  string
}

// Options tune the rewrite.
type Options struct {
	Naming jsast.NamingStyle
	// Newline separates inserted statements from their neighbours. Empty means "\n".
	Newline string
}

// EnsureImports makes sure each spec's module is imported exactly once and records a binding
// for every spec. Existing imports are reused; an existing import without a usable binding is
// extended in place. Imports that had to be created are prepended to the program body as one
// block, registrar first.
func EnsureImports(
	prog *jsast.Program,
	scope *jsast.Scope,
	specs [2]ImportSpec,
	existing []scan.ExistingImport,
	opts Options,
) (*Bindings, error) {
	err := validatePair(specs)
	if err != nil {
		return nil, err
	}

	bindings := NewBindings()

	var created []*jsast.SImport

	for _, spec := range specs {
		if imp := pickExisting(existing, spec); imp != nil {
			bindings.Put(reuse(imp, spec, scope, opts))
			continue
		}

		local := scope.GenerateUID(spec.LogicalName, opts.Naming)
		created = append(created, jsast.NamespaceImport(local, spec.ModulePath))

		bindings.Put(GeneratedBinding{
			LogicalName: spec.LogicalName,
			LocalName:   local,
			ModulePath:  spec.ModulePath,
			Kind:        BindingNamespace,
			Created:     true,
		})
	}

	prependImports(prog, created, opts.newline())

	return bindings, nil
}

// InsertRegistrationCalls inserts `<registrar>.customElement(<Class>, <storage>)` directly after
// each class, unless that exact call already follows it. It returns the number of calls inserted.
func InsertRegistrationCalls(
	classes []scan.AnnotatedClass,
	bindings *Bindings,
	specs [2]ImportSpec,
	opts Options,
) (int, error) {
	registrar, ok := bindings.Get(specs[0].LogicalName)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingBinding, specs[0].LogicalName)
	}

	storage, ok := bindings.Get(specs[1].LogicalName)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingBinding, specs[1].LogicalName)
	}

	inserted := 0

	for _, class := range classes {
		index := locate(class)
		if index < 0 {
			return inserted, fmt.Errorf("%w: %s", ErrClassNotFound, class.Name)
		}

		call := RegistrationCall(class.Name, registrar, storage)
		if followedBy(*class.Block, index, call) {
			continue
		}

		jsast.InsertAfter(class.Block, index, jsast.Stmt{
			Data:    &jsast.SExpr{Value: call},
			Leading: opts.newline() + indentation((*class.Block)[index].Leading),
		})

		inserted++
	}

	return inserted, nil
}

// NewBindings returns an empty cache.
func NewBindings() *Bindings {
	return &Bindings{byLogical: make(map[string]GeneratedBinding)}
}

// RegistrationCall builds the call expression registering className.
func RegistrationCall(className string, registrar, storage GeneratedBinding) jsast.Expr {
	return jsast.Call(
		jsast.Dot(registrar.Reference(), "customElement"),
		jsast.Ident(className),
		storage.Reference(),
	)
}

// ValidateSpecs checks a configured spec list and returns it as a registrar/storage pair.
func ValidateSpecs(specs []ImportSpec) ([2]ImportSpec, error) {
	if len(specs) != 2 { //nolint:mnd // registrar and storage
		return [2]ImportSpec{}, fmt.Errorf("%w: expected exactly 2 import specs, got %d", ErrConfiguration, len(specs))
	}

	pair := [2]ImportSpec{specs[0], specs[1]}

	err := validatePair(pair)
	if err != nil {
		return [2]ImportSpec{}, err
	}

	return pair, nil
}

// All returns the bindings in the order they were added.
func (b *Bindings) All() []GeneratedBinding {
	all := make([]GeneratedBinding, 0, len(b.order))
	for _, logical := range b.order {
		all = append(all, b.byLogical[logical])
	}

	return all
}

// Get returns the binding for a logical name.
func (b *Bindings) Get(logical string) (GeneratedBinding, bool) {
	binding, ok := b.byLogical[logical]
	return binding, ok
}

// Len returns the number of bindings.
func (b *Bindings) Len() int {
	return len(b.order)
}

// Put adds or replaces a binding.
func (b *Bindings) Put(binding GeneratedBinding) {
	if _, ok := b.byLogical[binding.LogicalName]; !ok {
		b.order = append(b.order, binding.LogicalName)
	}

	b.byLogical[binding.LogicalName] = binding
}

// Reference returns the expression that reaches the logical export through the binding.
func (b GeneratedBinding) Reference() jsast.Expr {
	if b.Kind == BindingNamed {
		return jsast.Ident(b.LocalName)
	}

	return jsast.Dot(jsast.Ident(b.LocalName), b.LogicalName)
}

// MarshalText implements encoding.TextMarshaler.
func (k BindingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BindingKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "namespace":
		*k = BindingNamespace
	case "named":
		*k = BindingNamed
	default:
		return fmt.Errorf("%w: %q", errUnknownBindingKind, text)
	}

	return nil
}

// String implements fmt.Stringer.
func (k BindingKind) String() string {
	switch k {
	case BindingNamespace:
		return "namespace"
	case BindingNamed:
		return "named"
	default:
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
}

func (o Options) newline() string {
	if o.Newline == "" {
		return "\n"
	}

	return o.Newline
}

// unexported variables.
var (
	errUnknownBindingKind = errors.New("unknown binding kind")
)

// isDirective reports whether stmt is a directive prologue entry such as "use strict".
func isDirective(stmt jsast.Stmt) bool {
	raw, ok := stmt.Data.(*jsast.SRaw)

	return ok && raw.Text != "" && (raw.Text[0] == '"' || raw.Text[0] == '\'')
}

// followedBy reports whether the statement after index is already call.
func followedBy(list []jsast.Stmt, index int, call jsast.Expr) bool {
	if index+1 >= len(list) {
		return false
	}

	switch next := list[index+1].Data.(type) {
	case *jsast.SExpr:
		return jsast.Equal(next.Value, call)
	case *jsast.SRaw:
		return jsast.MatchesSource(call, next.Text)
	default:
		return false
	}
}

// indentation returns the whitespace that starts the last line of leading. A statement that
// shares its line with the previous one has none.
func indentation(leading string) string {
	nl := strings.LastIndexByte(leading, '\n')
	if nl < 0 {
		return ""
	}

	last := leading[nl+1:]
	if strings.TrimSpace(last) != "" {
		return ""
	}

	return last
}

func locate(class scan.AnnotatedClass) int {
	list := *class.Block
	if class.Index >= 0 && class.Index < len(list) && list[class.Index].Data == class.Class {
		return class.Index
	}

	return jsast.IndexOf(list, class.Class)
}

// pickExisting returns the best existing import of spec's module: one with a namespace
// binding, then one naming the logical export, then the first one.
func pickExisting(existing []scan.ExistingImport, spec ImportSpec) *jsast.SImport {
	var first, named *jsast.SImport

	for _, imp := range existing {
		if imp.ModulePath != spec.ModulePath || imp.Node == nil {
			continue
		}

		if imp.Node.StarName != "" {
			return imp.Node
		}

		if named == nil && namedItem(imp.Node, spec.LogicalName) != nil {
			named = imp.Node
		}

		if first == nil {
			first = imp.Node
		}
	}

	if named != nil {
		return named
	}

	return first
}

func namedItem(imp *jsast.SImport, logical string) *jsast.ClauseItem {
	for i := range imp.Items {
		if imp.Items[i].Name == logical {
			return &imp.Items[i]
		}
	}

	return nil
}

// prependImports inserts created at the top of the program body, after any directive
// prologue, separated from the following code by a blank line.
func prependImports(prog *jsast.Program, created []*jsast.SImport, newline string) {
	if len(created) == 0 {
		return
	}

	at := 0
	for at < len(prog.Body) && isDirective(prog.Body[at]) {
		at++
	}

	block := make([]jsast.Stmt, 0, len(created))

	for i, imp := range created {
		leading := newline
		if i == 0 && at == 0 {
			leading = ""
		}

		block = append(block, jsast.Stmt{Data: imp, Leading: leading})
	}

	if at < len(prog.Body) {
		next := &prog.Body[at]

		sep := newline + newline
		if _, ok := next.Data.(*jsast.SImport); ok {
			sep = newline
		}

		next.Leading = sep + strings.TrimLeft(next.Leading, "\r\n")
	}

	body := make([]jsast.Stmt, 0, len(prog.Body)+len(block))
	body = append(body, prog.Body[:at]...)
	body = append(body, block...)
	body = append(body, prog.Body[at:]...)
	prog.Body = body
}

// reuse derives a binding from an existing import of spec's module, extending the import in
// place when it binds nothing the call can use.
func reuse(imp *jsast.SImport, spec ImportSpec, scope *jsast.Scope, opts Options) GeneratedBinding {
	binding := GeneratedBinding{LogicalName: spec.LogicalName, ModulePath: spec.ModulePath}

	if imp.StarName != "" {
		binding.LocalName = imp.StarName
		binding.Kind = BindingNamespace

		return binding
	}

	if item := namedItem(imp, spec.LogicalName); item != nil {
		binding.LocalName = item.Local()
		binding.Kind = BindingNamed

		return binding
	}

	local := scope.GenerateUID(spec.LogicalName, opts.Naming)
	binding.LocalName = local

	if imp.HasClause || len(imp.Items) > 0 {
		item := jsast.ClauseItem{Name: spec.LogicalName}
		if local != spec.LogicalName {
			item.Alias = local
		}

		imp.Items = append(imp.Items, item)
		imp.HasClause = true
		binding.Kind = BindingNamed
	} else {
		imp.StarName = local
		binding.Kind = BindingNamespace
	}

	imp.Raw = ""
	binding.Extended = true

	return binding
}

func validatePair(specs [2]ImportSpec) error {
	for i, spec := range specs {
		if spec.LogicalName == "" || spec.ModulePath == "" {
			return fmt.Errorf("%w: import spec %d needs both importName and source", ErrConfiguration, i)
		}

		if !jsast.IsIdentifierName(spec.LogicalName) {
			return fmt.Errorf("%w: importName %q is not a valid identifier", ErrConfiguration, spec.LogicalName)
		}
	}

	if specs[0].LogicalName == specs[1].LogicalName {
		return fmt.Errorf("%w: both import specs use importName %q", ErrConfiguration, specs[0].LogicalName)
	}

	if specs[0].ModulePath == specs[1].ModulePath {
		return fmt.Errorf("%w: both import specs use source %q", ErrConfiguration, specs[0].ModulePath)
	}

	return nil
}

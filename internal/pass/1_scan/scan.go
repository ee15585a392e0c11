// Package scan finds the class declarations marked with an annotation and the import
// statements already present in a program. It never modifies the tree.
package scan

import (
	"context"

	"github.com/toejough/decoreg/internal/ctxlog"
	"github.com/toejough/decoreg/jsast"
)

// AnnotatedClass is a named class declaration carrying the annotation.
type AnnotatedClass struct {
	Name  string
	Class *jsast.SClass
	// Block is the statement list that owns the class statement, and Index its position
	// there at scan time.
	Block *[]jsast.Stmt
	Index int
}

// ExistingImport is a top-level import statement found before any rewriting.
type ExistingImport struct {
	ModulePath string
	LocalNames []string
	Node       *jsast.SImport
}

// Result holds everything one traversal learns about a program.
type Result struct {
	Classes []AnnotatedClass
	Imports []ExistingImport
}

// AnnotationName returns the callee identifier of a call-form decorator such as
// `@component()`. Bare decorators and member callees have none.
func AnnotationName(dec jsast.Decorator) (string, bool) {
	call, ok := dec.Value.Data.(*jsast.ECall)
	if !ok {
		return "", false
	}

	ident, ok := call.Target.Data.(*jsast.EIdentifier)
	if !ok {
		return "", false
	}

	return ident.Name, true
}

// CollectTopLevelImports lists the program's top-level import statements in source order.
// Re-exports are not imports and are left out.
func CollectTopLevelImports(prog *jsast.Program) []ExistingImport {
	return Scan(context.Background(), prog, "").Imports
}

// FindAnnotatedClasses lists the named class declarations carrying annotation, at any depth,
// in source order.
func FindAnnotatedClasses(prog *jsast.Program, annotation string) []AnnotatedClass {
	return Scan(context.Background(), prog, annotation).Classes
}

// HasAnnotatedClass reports whether any named class declaration carries annotation.
func HasAnnotatedClass(prog *jsast.Program, annotation string) bool {
	return Scan(context.Background(), prog, annotation).Annotated()
}

// IsAnnotated reports whether class carries a decorator named annotation.
func IsAnnotated(class *jsast.Class, annotation string) bool {
	for _, dec := range class.Decorators {
		if name, ok := AnnotationName(dec); ok && name == annotation {
			return true
		}
	}

	return false
}

// Scan walks prog once, collecting annotated classes and top-level imports.
func Scan(ctx context.Context, prog *jsast.Program, annotation string) Result {
	log := ctxlog.FromContext(ctx)

	var result Result

	jsast.Walk(prog, jsast.Funcs{
		Class: func(site jsast.ClassSite) {
			class := &site.Class.Class
			if annotation == "" || !IsAnnotated(class, annotation) {
				return
			}

			if class.Name == "" {
				log.Debug("skipping anonymous annotated class", "annotation", annotation, "depth", site.Depth)
				return
			}

			result.Classes = append(result.Classes, AnnotatedClass{
				Name:  class.Name,
				Class: site.Class,
				Block: site.List,
				Index: site.Index,
			})
		},
		Import: func(imp *jsast.SImport, depth int) {
			if depth > 0 {
				return
			}

			result.Imports = append(result.Imports, ExistingImport{
				ModulePath: imp.Source,
				LocalNames: imp.LocalNames(),
				Node:       imp,
			})
		},
	})

	return result
}

// Annotated reports whether the scan found at least one annotated class.
func (r Result) Annotated() bool {
	return len(r.Classes) > 0
}

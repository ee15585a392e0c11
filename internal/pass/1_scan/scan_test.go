package scan_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/onsi/gomega"

	"github.com/toejough/decoreg/internal/ctxlog"
	scan "github.com/toejough/decoreg/internal/pass/1_scan"
	"github.com/toejough/decoreg/jsast"
	"github.com/toejough/decoreg/jsparse"
)

func TestAnnotationName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    jsast.Expr
		wantName string
		wantOK   bool
	}{
		{name: "call", value: jsast.Call(jsast.Ident("component")), wantName: "component", wantOK: true},
		{name: "bare", value: jsast.Ident("component")},
		{name: "member call", value: jsast.Call(jsast.Dot(jsast.Ident("ns"), "component"))},
		{name: "raw", value: jsast.Expr{Data: &jsast.ERaw{Text: "(x)"}}},
		{name: "empty", value: jsast.Expr{}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			g := gomega.NewWithT(t)

			name, ok := scan.AnnotationName(jsast.Decorator{Value: testCase.value})
			g.Expect(ok).To(gomega.Equal(testCase.wantOK))
			g.Expect(name).To(gomega.Equal(testCase.wantName))
		})
	}
}

func TestCollectTopLevelImports(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	prog := parse(t, `import a from "x";
import * as ns from "y";
import d, { b as c, e } from "z";
import "side";
export { f } from "reexport";
export * from "all";
function load() { return import("dynamic"); }
`)

	imports := scan.CollectTopLevelImports(prog)

	paths := make([]string, 0, len(imports))
	for _, imp := range imports {
		paths = append(paths, imp.ModulePath)
	}

	g.Expect(paths).To(gomega.Equal([]string{"x", "y", "z", "side"}))
	g.Expect(imports[0].LocalNames).To(gomega.Equal([]string{"a"}))
	g.Expect(imports[1].LocalNames).To(gomega.Equal([]string{"ns"}))
	g.Expect(imports[2].LocalNames).To(gomega.Equal([]string{"d", "c", "e"}))
	g.Expect(imports[3].LocalNames).To(gomega.BeEmpty())
	g.Expect(imports[2].Node.Source).To(gomega.Equal("z"))
}

func TestFindAnnotatedClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "single",
			src:  "@component()\nclass Foo {}",
			want: []string{"Foo"},
		},
		{
			name: "unrelated annotation",
			src:  "@view()\nclass Foo {}",
		},
		{
			name: "one of several decorators",
			src:  "@view() @component() @bare\nclass Foo {}",
			want: []string{"Foo"},
		},
		{
			name: "bare and member decorators do not count",
			src:  "@component\nclass A {}\n@ns.component()\nclass B {}",
		},
		{
			name: "exports and nesting in source order",
			src: "@component() export class A {}\n" +
				"function f() {\n  @component()\n  class B {}\n}\n" +
				"{\n  @component() class C {}\n}\n" +
				"export default @component() class D {}",
			want: []string{"A", "B", "C", "D"},
		},
		{
			name: "statement bodies in source order",
			src: "if (a) {\n  @component() class A {}\n} else {\n  @component() class B {}\n}\n" +
				"try {\n  @component() class C {}\n} catch (e) {\n  @component() class D {}\n}\n" +
				"const f = () => {\n  @component() class E {}\n};\n" +
				"outer: {\n  @component() class F {}\n}\n" +
				"switch (k) {\n  case 1: {\n    @component() class G {}\n  }\n  default:\n    @component() class H {}\n}\n",
			want: []string{"A", "B", "C", "D", "E", "F", "G", "H"},
		},
		{
			name: "method and static block bodies",
			src: "@component() class Outer {\n  m() {\n    @component() class Inner {}\n  }\n" +
				"  static {\n    @component() class Static {}\n  }\n}\n" +
				"const X = class {\n  n() {\n    @component() class Expr {}\n  }\n};\n",
			want: []string{"Outer", "Inner", "Static", "Expr"},
		},
		{
			name: "class expressions are not declarations",
			src:  "const E = @component() class {};\nlet F = class G {};",
		},
		{
			name: "anonymous default export is skipped",
			src:  "@component() export default class {}",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			g := gomega.NewWithT(t)

			prog := parse(t, testCase.src)
			classes := scan.FindAnnotatedClasses(prog, "component")

			names := make([]string, 0, len(classes))
			for _, class := range classes {
				names = append(names, class.Name)
				g.Expect((*class.Block)[class.Index].Data).To(gomega.BeIdenticalTo(class.Class))
			}

			g.Expect(names).To(gomega.HaveLen(len(testCase.want)))

			if len(testCase.want) > 0 {
				g.Expect(names).To(gomega.Equal(testCase.want))
			}

			g.Expect(scan.HasAnnotatedClass(prog, "component")).To(gomega.Equal(len(testCase.want) > 0))
		})
	}
}

func TestScanLogsSkippedAnonymousClass(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	result := scan.Scan(ctx, parse(t, "export default @component() class {}"), "component")

	g.Expect(result.Annotated()).To(gomega.BeFalse())
	g.Expect(buf.String()).To(gomega.ContainSubstring("skipping anonymous annotated class"))
}

func TestScanDoesNotModifyTree(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	prog := parse(t, "import a from 'a';\n@component()\nclass Foo {}\n")
	before := len(prog.Body)

	result := scan.Scan(context.Background(), prog, "component")

	g.Expect(result.Annotated()).To(gomega.BeTrue())
	g.Expect(result.Imports).To(gomega.HaveLen(1))
	g.Expect(prog.Body).To(gomega.HaveLen(before))
}

func parse(t *testing.T, src string) *jsast.Program {
	t.Helper()

	prog, err := jsparse.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	return prog
}

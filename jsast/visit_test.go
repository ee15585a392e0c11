package jsast_test

import (
	"testing"

	"github.com/onsi/gomega"

	"github.com/toejough/decoreg/jsast"
)

func TestWalkVisitsInSourceOrder(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	inner := &jsast.SClass{Class: jsast.Class{Name: "Inner"}}
	prog := &jsast.Program{Body: []jsast.Stmt{
		{Data: &jsast.SImport{Source: "x"}},
		{Data: &jsast.SClass{Class: jsast.Class{Name: "A"}}},
		{Data: &jsast.SFunction{Body: []jsast.Stmt{
			{Data: &jsast.SRaw{Text: "x()"}},
			{Data: inner},
		}}},
		{Data: &jsast.SBlock{Stmts: []jsast.Stmt{{Data: &jsast.SClass{Class: jsast.Class{Name: "B"}}}}}},
	}}

	var visited []string

	var innerSite jsast.ClassSite

	jsast.Walk(prog, jsast.Funcs{
		Class: func(site jsast.ClassSite) {
			visited = append(visited, site.Class.Class.Name)

			if site.Class == inner {
				innerSite = site
			}
		},
		Import: func(imp *jsast.SImport, depth int) {
			visited = append(visited, "import "+imp.Source)
			g.Expect(depth).To(gomega.BeZero())
		},
	})

	g.Expect(visited).To(gomega.Equal([]string{"import x", "A", "Inner", "B"}))
	g.Expect(innerSite.Depth).To(gomega.Equal(1))
	g.Expect(innerSite.Index).To(gomega.Equal(1))
	g.Expect(jsast.IndexOf(*innerSite.List, inner)).To(gomega.Equal(1))
}

func TestInsertAfter(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	a, b, c := &jsast.SRaw{Text: "a"}, &jsast.SRaw{Text: "b"}, &jsast.SRaw{Text: "c"}
	list := []jsast.Stmt{{Data: a}, {Data: c}}

	jsast.InsertAfter(&list, 0, jsast.Stmt{Data: b})
	jsast.InsertAfter(&list, 2, jsast.Stmt{Data: &jsast.SRaw{Text: "d"}})

	texts := make([]string, 0, len(list))
	for _, stmt := range list {
		texts = append(texts, stmt.Data.(*jsast.SRaw).Text)
	}

	g.Expect(texts).To(gomega.Equal([]string{"a", "b", "c", "d"}))
	g.Expect(jsast.IndexOf(list, c)).To(gomega.Equal(2))
	g.Expect(jsast.IndexOf(list, &jsast.SRaw{Text: "a"})).To(gomega.Equal(-1))
}

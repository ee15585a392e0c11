package jsast

// ClassSite locates a class declaration statement inside the tree.
type ClassSite struct {
	Class *SClass
	// List is the statement list that owns the class statement. It stays valid while
	// statements are inserted into it or into other lists.
	List  *[]Stmt
	// Index is the class statement's position in *List at the time it was visited.
	Index int
	Depth int
}

// Funcs adapts plain functions to Visitor. Nil fields are skipped.
type Funcs struct {
	Class  func(site ClassSite)
	Import func(imp *SImport, depth int)
}

// VisitClass implements Visitor.
func (f Funcs) VisitClass(site ClassSite) {
	if f.Class != nil {
		f.Class(site)
	}
}

// VisitImport implements Visitor.
func (f Funcs) VisitImport(imp *SImport, depth int) {
	if f.Import != nil {
		f.Import(imp, depth)
	}
}

// Visitor receives one callback per node kind of interest, in source order.
type Visitor interface {
	VisitClass(site ClassSite)
	VisitImport(imp *SImport, depth int)
}

// IndexOf returns the position of the statement holding data in list, or -1.
func IndexOf(list []Stmt, data S) int {
	for i, stmt := range list {
		if stmt.Data == data {
			return i
		}
	}

	return -1
}

// InsertAfter inserts stmt into *list directly after position i.
func InsertAfter(list *[]Stmt, i int, stmt Stmt) {
	*list = append(*list, Stmt{})
	copy((*list)[i+2:], (*list)[i+1:])
	(*list)[i+1] = stmt
}

// Walk visits every statement list reachable from prog, depth first, in source order.
func Walk(prog *Program, visitor Visitor) {
	walkList(&prog.Body, visitor, 0)
}

func walkList(list *[]Stmt, visitor Visitor, depth int) {
	// Index loop: visitors may insert statements after the current one.
	for i := 0; i < len(*list); i++ {
		switch data := (*list)[i].Data.(type) {
		case *SImport:
			visitor.VisitImport(data, depth)
		case *SClass:
			visitor.VisitClass(ClassSite{Class: data, List: list, Index: i, Depth: depth})
			walkBodies(data.Class.Bodies, visitor, depth+1)
		case *SFunction:
			walkList(&data.Body, visitor, depth+1)
		case *SBlock:
			walkList(&data.Stmts, visitor, depth+1)
		case *SRaw:
			walkBodies(data.Bodies, visitor, depth+1)
		}
	}
}

func walkBodies(bodies []Body, visitor Visitor, depth int) {
	for _, body := range bodies {
		walkList(&body.Block.Stmts, visitor, depth)
	}
}

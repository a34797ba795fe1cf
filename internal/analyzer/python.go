package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Zouzou-2006/algovision/internal/ir"
	"github.com/Zouzou-2006/algovision/internal/parser"
)

// pythonAnalyzer walks tree-sitter-python trees. Recognized declarations:
// class_definition, function_definition (plus decorated_definition wrappers)
// under a synthetic module root.
type pythonAnalyzer struct{}

func (pythonAnalyzer) Language() string { return "python" }

var pyDeclKinds = map[string]bool{
	"class_definition":    true,
	"function_definition": true,
}

func (a pythonAnalyzer) Analyze(ctx *Context) {
	p := &pyPass{
		b:     ctx.Builder,
		src:   ctx.Source,
		funcs: make(funcIndex),
	}

	rootRange := ctx.Source.RangeOf(ctx.Root)
	moduleID := p.b.AllocID(ir.KindModule, moduleName(ctx.DocID), 1)
	p.b.AddOutline(ir.OutlineNode{
		ID:    moduleID,
		Kind:  ir.KindModule,
		Name:  moduleName(ctx.DocID),
		Range: rootRange,
	})

	p.classDiagram = ctx.Options.IncludeClassDiagram
	p.visitChildren(ctx.Root, moduleID, nil)

	a.sweepImports(ctx)
	if ctx.Options.IncludeCallGraph {
		sweepCalls(ctx, p.funcs, "call", "attribute")
	}
}

type pyPass struct {
	b            *ir.Builder
	src          *parser.Source
	funcs        funcIndex
	classDiagram bool
}

// visitChildren discovers declarations anywhere below n that are not nested
// inside another declaration (module level, inside conditionals, etc.).
// Declarations recurse through their own handlers.
func (p *pyPass) visitChildren(n *sitter.Node, parentID string, class *ir.ClassInfo) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				p.visitDecl(def, parentID, class)
			}
		case "class_definition", "function_definition":
			p.visitDecl(child, parentID, class)
		default:
			p.visitChildren(child, parentID, class)
		}
	}
}

func (p *pyPass) visitDecl(n *sitter.Node, parentID string, class *ir.ClassInfo) {
	if p.b.AtCap() {
		p.b.MarkCapped()
		p.b.Skip(countDeclarations(n, pyDeclKinds))
		return
	}
	switch n.Type() {
	case "class_definition":
		p.visitClass(n, parentID)
	case "function_definition":
		p.visitFunc(n, parentID, class)
	}
}

func (p *pyPass) visitClass(n *sitter.Node, parentID string) {
	name := "class"
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = p.src.Text(nameNode)
	}
	rng := p.src.RangeOf(n)
	id := p.b.AllocID(ir.KindClass, name, rng.Start.Line)
	p.b.AddOutline(ir.OutlineNode{
		ID:       id,
		Kind:     ir.KindClass,
		Name:     name,
		ParentID: parentID,
		Range:    rng,
	})

	acc := ir.ClassInfo{ID: id, Name: name, Bases: p.baseClasses(n)}
	if body := n.ChildByFieldName("body"); body != nil {
		p.visitChildren(body, id, &acc)
	}
	if p.classDiagram {
		p.b.AddClass(acc)
	}
}

// baseClasses reads the superclasses argument list, keeping only identifier
// and attribute (dotted name) children.
func (p *pyPass) baseClasses(n *sitter.Node) []string {
	supers := n.ChildByFieldName("superclasses")
	if supers == nil {
		return nil
	}
	var bases []string
	for i := 0; i < int(supers.NamedChildCount()); i++ {
		child := supers.NamedChild(i)
		if t := child.Type(); t == "identifier" || t == "attribute" {
			bases = append(bases, p.src.Text(child))
		}
	}
	return bases
}

func (p *pyPass) visitFunc(n *sitter.Node, parentID string, class *ir.ClassInfo) {
	kind := ir.KindFunction
	if class != nil {
		kind = ir.KindMethod
	}
	name := "function"
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = p.src.Text(nameNode)
	}
	rng := p.src.RangeOf(n)
	id := p.b.AllocID(kind, name, rng.Start.Line)
	p.b.AddOutline(ir.OutlineNode{
		ID:       id,
		Kind:     kind,
		Name:     name,
		ParentID: parentID,
		Range:    rng,
		Params:   p.params(n),
	})
	p.funcs[keyOf(n)] = id
	if class != nil {
		class.Methods = append(class.Methods, id)
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		skeleton(p.b, p.src, id, n)
		return
	}
	fl := newFlow(p.b, p.src, id)
	exits := p.flowStmts(fl, body, fl.entry())
	fl.finish(exits)

	// Nested defs and classes inside the body become children of this
	// function.
	p.visitChildren(body, id, nil)
}

// params flattens a parameter list to bare names: annotations and default
// values are stripped, splat markers are kept.
func (p *pyPass) params(n *sitter.Node) []string {
	list := n.ChildByFieldName("parameters")
	if list == nil {
		return nil
	}
	var params []string
	for i := 0; i < int(list.NamedChildCount()); i++ {
		text := p.src.Text(list.NamedChild(i))
		if i := strings.IndexAny(text, ":="); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" || text == "*" || text == "/" {
			continue
		}
		params = append(params, text)
	}
	return params
}

// flowStmts walks the statements of a block, threading the frontier through
// each construct.
func (p *pyPass) flowStmts(f *flow, block *sitter.Node, entries []dangling) []dangling {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		if f.truncated {
			return entries
		}
		if entries == nil {
			// Unreachable code after a terminal statement.
			return nil
		}
		if p.b.AtCap() {
			p.b.MarkCapped()
			id := f.cb.Truncate()
			f.connect(entries, id)
			f.truncated = true
			return []dangling{{from: id}}
		}
		entries = p.flowStmt(f, block.NamedChild(i), entries)
	}
	return entries
}

func (p *pyPass) flowStmt(f *flow, n *sitter.Node, entries []dangling) []dangling {
	switch n.Type() {
	case "if_statement":
		return p.flowIf(f, n, entries)
	case "while_statement":
		return p.flowWhile(f, n, entries)
	case "for_statement":
		return p.flowFor(f, n, entries)
	case "try_statement":
		return p.flowTry(f, n, entries)
	case "with_statement":
		header := "with"
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "with_clause" {
				header = "with " + p.src.Text(c)
				break
			}
		}
		id := f.cb.AddStmt(header, f.rangeOf(n))
		f.connect(entries, id)
		if body := n.ChildByFieldName("body"); body != nil {
			return p.flowStmts(f, body, []dangling{{from: id}})
		}
		return []dangling{{from: id}}
	case "return_statement", "raise_statement":
		return f.terminal(n, entries)
	case "break_statement":
		id := f.cb.AddStmt("break", f.rangeOf(n))
		f.connect(entries, id)
		if !f.addBreak(dangling{from: id}) {
			return []dangling{{from: id}}
		}
		return nil
	case "continue_statement":
		id := f.cb.AddStmt("continue", f.rangeOf(n))
		f.connect(entries, id)
		if target, ok := f.continueTarget(); ok {
			f.cb.AddEdge(id, target, "")
			return nil
		}
		return []dangling{{from: id}}
	case "match_statement":
		p.b.AddDiagnostic(ir.Diagnostic{
			Code:     ir.CodeUnsupported,
			Message:  "match statement is not modeled in the CFG",
			Severity: ir.SeverityInfo,
			Range:    f.rangeOf(n),
		})
		return f.stmt(n, entries)
	default:
		return f.stmt(n, entries)
	}
}

// flowIf builds an if/elif/else chain: each condition is a cond node whose
// false edge leads to the next clause (or past the statement).
func (p *pyPass) flowIf(f *flow, n *sitter.Node, entries []dangling) []dangling {
	condNode := n.ChildByFieldName("condition")
	label := "if"
	var rng *ir.Range
	if condNode != nil {
		label = "if " + p.src.Text(condNode)
		rng = f.rangeOf(condNode)
	}
	condID := f.cb.AddCond(label, rng)
	f.connect(entries, condID)

	var exits []dangling
	if cons := n.ChildByFieldName("consequence"); cons != nil {
		exits = append(exits, p.flowStmts(f, cons, []dangling{{from: condID, label: "true"}})...)
	} else {
		exits = append(exits, dangling{from: condID, label: "true"})
	}

	falseFrontier := []dangling{{from: condID, label: "false"}}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		switch clause.Type() {
		case "elif_clause":
			elifCond := clause.ChildByFieldName("condition")
			elifLabel := "elif"
			var elifRng *ir.Range
			if elifCond != nil {
				elifLabel = "elif " + p.src.Text(elifCond)
				elifRng = f.rangeOf(elifCond)
			}
			elifID := f.cb.AddCond(elifLabel, elifRng)
			f.connect(falseFrontier, elifID)
			if cons := clause.ChildByFieldName("consequence"); cons != nil {
				exits = append(exits, p.flowStmts(f, cons, []dangling{{from: elifID, label: "true"}})...)
			} else {
				exits = append(exits, dangling{from: elifID, label: "true"})
			}
			falseFrontier = []dangling{{from: elifID, label: "false"}}
		case "else_clause":
			if body := clause.ChildByFieldName("body"); body != nil {
				exits = append(exits, p.flowStmts(f, body, falseFrontier)...)
				falseFrontier = nil
			}
		}
	}
	return append(exits, falseFrontier...)
}

func (p *pyPass) flowWhile(f *flow, n *sitter.Node, entries []dangling) []dangling {
	label := "while"
	condNode := n.ChildByFieldName("condition")
	if condNode != nil {
		label = "while " + p.src.Text(condNode)
	}
	condID := f.cb.AddCond(label, f.rangeOf(n))
	f.connect(entries, condID)

	f.pushLoop(condID)
	var bodyExits []dangling
	if body := n.ChildByFieldName("body"); body != nil {
		bodyExits = p.flowStmts(f, body, []dangling{{from: condID, label: "true"}})
	} else {
		bodyExits = []dangling{{from: condID, label: "true"}}
	}
	f.connect(bodyExits, condID)
	frame := f.pop()

	exits := []dangling{{from: condID, label: "false"}}
	return append(exits, frame.breaks...)
}

func (p *pyPass) flowFor(f *flow, n *sitter.Node, entries []dangling) []dangling {
	label := "for"
	if left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right"); left != nil && right != nil {
		label = "for " + p.src.Text(left) + " in " + p.src.Text(right)
	}
	condID := f.cb.AddCond(label, f.rangeOf(n))
	f.connect(entries, condID)

	f.pushLoop(condID)
	var bodyExits []dangling
	if body := n.ChildByFieldName("body"); body != nil {
		bodyExits = p.flowStmts(f, body, []dangling{{from: condID, label: "true"}})
	} else {
		bodyExits = []dangling{{from: condID, label: "true"}}
	}
	f.connect(bodyExits, condID)
	frame := f.pop()

	exits := []dangling{{from: condID, label: "false"}}
	return append(exits, frame.breaks...)
}

// flowTry joins the protected body and every handler; a finally block runs
// on the joined frontier.
func (p *pyPass) flowTry(f *flow, n *sitter.Node, entries []dangling) []dangling {
	tryID := f.cb.AddStmt("try", f.rangeOf(n))
	f.connect(entries, tryID)
	tryFrontier := []dangling{{from: tryID}}

	var joined []dangling
	if body := n.ChildByFieldName("body"); body != nil {
		joined = append(joined, p.flowStmts(f, body, tryFrontier)...)
	} else {
		joined = append(joined, tryFrontier...)
	}

	var finallyBlock *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		switch clause.Type() {
		case "except_clause", "except_group_clause":
			if block := lastBlockChild(clause); block != nil {
				joined = append(joined, p.flowStmts(f, block, tryFrontier)...)
			}
		case "else_clause":
			if body := clause.ChildByFieldName("body"); body != nil {
				joined = p.flowStmts(f, body, joined)
			}
		case "finally_clause":
			finallyBlock = lastBlockChild(clause)
		}
	}

	if finallyBlock != nil {
		return p.flowStmts(f, finallyBlock, joined)
	}
	return joined
}

func lastBlockChild(n *sitter.Node) *sitter.Node {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if child := n.NamedChild(i); child.Type() == "block" {
			return child
		}
	}
	return nil
}

// sweepImports parses import and from-import statements into {name, alias}
// entries. "from M import a as b" yields name "M.a" with alias "b".
func (pythonAnalyzer) sweepImports(ctx *Context) {
	src, b := ctx.Source, ctx.Builder
	walk(ctx.Root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "aliased_import":
					name, alias := aliasedImport(src, child)
					b.AddImport(name, alias)
				case "dotted_name":
					b.AddImport(src.Text(child), "")
				}
			}
			return false
		case "import_from_statement":
			module := ""
			moduleNode := n.ChildByFieldName("module_name")
			if moduleNode != nil {
				module = src.Text(moduleNode)
			}
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if moduleNode != nil && keyOf(child) == keyOf(moduleNode) {
					continue
				}
				switch child.Type() {
				case "aliased_import":
					name, alias := aliasedImport(src, child)
					b.AddImport(joinModule(module, name), alias)
				case "dotted_name", "identifier":
					b.AddImport(joinModule(module, src.Text(child)), "")
				case "wildcard_import":
					b.AddImport(joinModule(module, "*"), "")
				}
			}
			return false
		}
		return true
	})
}

func aliasedImport(src *parser.Source, n *sitter.Node) (name, alias string) {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = src.Text(nameNode)
	}
	if aliasNode := n.ChildByFieldName("alias"); aliasNode != nil {
		alias = src.Text(aliasNode)
	}
	return name, alias
}

func joinModule(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

// sweepCalls emits a call edge for every call site with a known enclosing
// function. Module-level calls are dropped. The attribute node type differs
// per language, so it is passed in.
func sweepCalls(ctx *Context, funcs funcIndex, callType, attrType string) {
	src, b := ctx.Source, ctx.Builder
	walk(ctx.Root, func(n *sitter.Node) bool {
		if n.Type() != callType {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return true
		}
		caller := funcs.enclosingFunc(n)
		if caller == "" {
			return true
		}
		var name string
		var kind ir.CallKind
		if fn.Type() == attrType {
			kind = ir.CallMember
			if last := fn.ChildByFieldName(attrFieldName(attrType)); last != nil {
				name = src.Text(last)
			} else {
				name, _ = calleeName(src.Text(fn))
			}
		} else {
			name, kind = calleeName(src.Text(fn))
		}
		b.AddCall(caller, name, kind)
		return true
	})
}

// attrFieldName returns the field holding the final segment of a member
// access for each language's attribute node.
func attrFieldName(attrType string) string {
	if attrType == "attribute" {
		return "attribute" // python: obj.attribute
	}
	return "name" // csharp: expr.name
}

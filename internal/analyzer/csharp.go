package analyzer

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Zouzou-2006/algovision/internal/ir"
	"github.com/Zouzou-2006/algovision/internal/parser"
)

// csharpAnalyzer walks tree-sitter-c-sharp trees. Recognized declarations:
// namespaces (block and file-scoped), classes, structs, interfaces, records,
// methods, constructors, and local functions, under a synthetic module root.
type csharpAnalyzer struct{}

func (csharpAnalyzer) Language() string { return "csharp" }

var csDeclKinds = map[string]bool{
	"namespace_declaration":             true,
	"file_scoped_namespace_declaration": true,
	"class_declaration":                 true,
	"struct_declaration":                true,
	"interface_declaration":             true,
	"record_declaration":                true,
	"method_declaration":                true,
	"constructor_declaration":           true,
	"local_function_statement":          true,
}

// Modifier keywords in priority order; the first match wins.
var csVisibility = []struct {
	re  *regexp.Regexp
	vis string
}{
	{regexp.MustCompile(`\bpublic\b`), "public"},
	{regexp.MustCompile(`\bprotected\s+internal\b`), "protected internal"},
	{regexp.MustCompile(`\bprotected\b`), "protected"},
	{regexp.MustCompile(`\binternal\b`), "internal"},
	{regexp.MustCompile(`\bprivate\b`), "private"},
}

func (a csharpAnalyzer) Analyze(ctx *Context) {
	c := &csPass{
		b:            ctx.Builder,
		src:          ctx.Source,
		funcs:        make(funcIndex),
		classDiagram: ctx.Options.IncludeClassDiagram,
	}

	rootRange := ctx.Source.RangeOf(ctx.Root)
	moduleID := c.b.AllocID(ir.KindModule, moduleName(ctx.DocID), 1)
	c.b.AddOutline(ir.OutlineNode{
		ID:    moduleID,
		Kind:  ir.KindModule,
		Name:  moduleName(ctx.DocID),
		Range: rootRange,
	})

	c.visitMembers(ctx.Root, moduleID, nil)

	a.sweepImports(ctx)
	a.sweepUnsupported(ctx)
	if ctx.Options.IncludeCallGraph {
		sweepCalls(ctx, c.funcs, "invocation_expression", "member_access_expression")
	}
}

type csPass struct {
	b            *ir.Builder
	src          *parser.Source
	funcs        funcIndex
	classDiagram bool
}

func (c *csPass) visitMembers(n *sitter.Node, parentID string, class *ir.ClassInfo) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "namespace_declaration":
			c.visitDecl(child, parentID, nil, c.visitNamespace)
		case "file_scoped_namespace_declaration":
			// A file-scoped namespace has no body node; the member
			// declarations follow as siblings at compilation-unit level, so
			// the rest of this walk re-parents under the namespace.
			if c.b.AtCap() {
				c.b.MarkCapped()
				c.b.Skip(1)
				continue
			}
			parentID = c.namespaceNode(child, parentID)
		case "class_declaration", "record_declaration":
			c.visitDecl(child, parentID, nil, func(n *sitter.Node, p string, _ *ir.ClassInfo) {
				c.visitType(n, p, ir.KindClass)
			})
		case "struct_declaration":
			c.visitDecl(child, parentID, nil, func(n *sitter.Node, p string, _ *ir.ClassInfo) {
				c.visitType(n, p, ir.KindStruct)
			})
		case "interface_declaration":
			c.visitDecl(child, parentID, nil, func(n *sitter.Node, p string, _ *ir.ClassInfo) {
				c.visitType(n, p, ir.KindInterface)
			})
		case "method_declaration", "constructor_declaration", "local_function_statement":
			c.visitDecl(child, parentID, class, c.visitFunc)
		default:
			c.visitMembers(child, parentID, class)
		}
	}
}

func (c *csPass) visitDecl(n *sitter.Node, parentID string, class *ir.ClassInfo, handle func(*sitter.Node, string, *ir.ClassInfo)) {
	if c.b.AtCap() {
		c.b.MarkCapped()
		c.b.Skip(countDeclarations(n, csDeclKinds))
		return
	}
	handle(n, parentID, class)
}

func (c *csPass) visitNamespace(n *sitter.Node, parentID string, _ *ir.ClassInfo) {
	id := c.namespaceNode(n, parentID)
	if body := n.ChildByFieldName("body"); body != nil {
		c.visitMembers(body, id, nil)
	}
}

// namespaceNode emits the namespace outline entry and returns its ID.
func (c *csPass) namespaceNode(n *sitter.Node, parentID string) string {
	name := "namespace"
	if nameNode := namespaceName(n); nameNode != nil {
		name = c.src.Text(nameNode)
	}
	rng := c.src.RangeOf(n)
	id := c.b.AllocID(ir.KindNamespace, name, rng.Start.Line)
	c.b.AddOutline(ir.OutlineNode{
		ID:       id,
		Kind:     ir.KindNamespace,
		Name:     name,
		ParentID: parentID,
		Range:    rng,
	})
	return id
}

func namespaceName(n *sitter.Node) *sitter.Node {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return nameNode
	}
	if nameNode := firstChildOfType(n, "qualified_name"); nameNode != nil {
		return nameNode
	}
	return firstChildOfType(n, "identifier")
}

func (c *csPass) visitType(n *sitter.Node, parentID string, kind ir.NodeKind) {
	name := string(kind)
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = c.src.Text(nameNode)
	}
	rng := c.src.RangeOf(n)
	id := c.b.AllocID(kind, name, rng.Start.Line)
	c.b.AddOutline(ir.OutlineNode{
		ID:         id,
		Kind:       kind,
		Name:       name,
		ParentID:   parentID,
		Range:      rng,
		Visibility: c.visibility(n),
	})

	acc := ir.ClassInfo{ID: id, Name: name, Bases: c.baseTypes(n)}
	if body := n.ChildByFieldName("body"); body != nil {
		c.visitMembers(body, id, &acc)
	}
	if c.classDiagram {
		c.b.AddClass(acc)
	}
}

// baseTypes reads the base_list, keeping only identifier and qualified-name
// children (interface lists, base classes; constraint clauses are ignored).
// The grammar hangs base_list off type declarations as a plain named child,
// not a field.
func (c *csPass) baseTypes(n *sitter.Node) []string {
	bases := firstChildOfType(n, "base_list")
	if bases == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(bases.NamedChildCount()); i++ {
		child := bases.NamedChild(i)
		if t := child.Type(); t == "identifier" || t == "qualified_name" {
			out = append(out, c.src.Text(child))
		}
	}
	return out
}

func (c *csPass) visitFunc(n *sitter.Node, parentID string, class *ir.ClassInfo) {
	kind := ir.KindFunction
	if class != nil && n.Type() != "local_function_statement" {
		kind = ir.KindMethod
	}
	name := "function"
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = c.src.Text(nameNode)
	}
	rng := c.src.RangeOf(n)
	id := c.b.AllocID(kind, name, rng.Start.Line)
	c.b.AddOutline(ir.OutlineNode{
		ID:         id,
		Kind:       kind,
		Name:       name,
		ParentID:   parentID,
		Range:      rng,
		Params:     c.params(n),
		Visibility: c.visibility(n),
	})
	c.funcs[keyOf(n)] = id
	if class != nil && kind == ir.KindMethod {
		class.Methods = append(class.Methods, id)
	}

	body := n.ChildByFieldName("body")
	switch {
	case body != nil && body.Type() == "block":
		fl := newFlow(c.b, c.src, id)
		exits := c.flowSeq(fl, namedChildren(body), fl.entry())
		fl.finish(exits)
		c.visitMembers(body, id, nil)
	case body != nil:
		// Expression-bodied member.
		skeleton(c.b, c.src, id, body)
	default:
		skeleton(c.b, c.src, id, n)
	}
}

func (c *csPass) params(n *sitter.Node) []string {
	list := n.ChildByFieldName("parameters")
	if list == nil {
		return nil
	}
	var params []string
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		if nameNode := child.ChildByFieldName("name"); nameNode != nil {
			params = append(params, c.src.Text(nameNode))
		}
	}
	return params
}

// visibility regex-tests the declaration header for modifier keywords, in
// priority order public > protected internal > protected > internal >
// private. Unset when no modifier is present.
func (c *csPass) visibility(n *sitter.Node) string {
	header := c.src.Text(n)
	if body := n.ChildByFieldName("body"); body != nil {
		header = string(c.src.Bytes()[n.StartByte():body.StartByte()])
	} else if params := n.ChildByFieldName("parameters"); params != nil {
		header = string(c.src.Bytes()[n.StartByte():params.StartByte()])
	}
	for _, v := range csVisibility {
		if v.re.MatchString(header) {
			return v.vis
		}
	}
	return ""
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func (c *csPass) flowSeq(f *flow, stmts []*sitter.Node, entries []dangling) []dangling {
	for _, stmt := range stmts {
		if f.truncated {
			return entries
		}
		if entries == nil {
			return nil
		}
		if c.b.AtCap() {
			c.b.MarkCapped()
			id := f.cb.Truncate()
			f.connect(entries, id)
			f.truncated = true
			return []dangling{{from: id}}
		}
		entries = c.flowStmt(f, stmt, entries)
	}
	return entries
}

func (c *csPass) flowStmt(f *flow, n *sitter.Node, entries []dangling) []dangling {
	switch n.Type() {
	case "block":
		return c.flowSeq(f, namedChildren(n), entries)
	case "if_statement":
		return c.flowIf(f, n, entries)
	case "while_statement":
		return c.flowWhile(f, n, entries)
	case "do_statement":
		return c.flowDo(f, n, entries)
	case "for_statement":
		return c.flowFor(f, n, entries)
	case "foreach_statement":
		return c.flowForeach(f, n, entries)
	case "switch_statement":
		return c.flowSwitch(f, n, entries)
	case "try_statement":
		return c.flowTry(f, n, entries)
	case "return_statement", "throw_statement":
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
	case "goto_statement":
		c.b.AddDiagnostic(ir.Diagnostic{
			Code:     ir.CodeUnsupported,
			Message:  "goto is not modeled in the CFG",
			Severity: ir.SeverityInfo,
			Range:    f.rangeOf(n),
		})
		return f.stmt(n, entries)
	case "using_statement", "lock_statement", "checked_statement", "unsafe_statement":
		id := f.cb.AddStmt(c.headerText(n), f.rangeOf(n))
		f.connect(entries, id)
		if body := n.ChildByFieldName("body"); body != nil {
			return c.flowStmt(f, body, []dangling{{from: id}})
		}
		return []dangling{{from: id}}
	default:
		return f.stmt(n, entries)
	}
}

// headerText is a statement's text up to its body, for labeling compound
// statements without dragging the whole body into the label.
func (c *csPass) headerText(n *sitter.Node) string {
	if body := n.ChildByFieldName("body"); body != nil && body.StartByte() > n.StartByte() {
		return string(c.src.Bytes()[n.StartByte():body.StartByte()])
	}
	return c.src.Text(n)
}

func (c *csPass) flowIf(f *flow, n *sitter.Node, entries []dangling) []dangling {
	label := "if"
	var rng *ir.Range
	if cond := n.ChildByFieldName("condition"); cond != nil {
		label = "if " + c.src.Text(cond)
		rng = f.rangeOf(cond)
	}
	condID := f.cb.AddCond(label, rng)
	f.connect(entries, condID)

	var exits []dangling
	if cons := n.ChildByFieldName("consequence"); cons != nil {
		exits = append(exits, c.flowStmt(f, cons, []dangling{{from: condID, label: "true"}})...)
	} else {
		exits = append(exits, dangling{from: condID, label: "true"})
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		exits = append(exits, c.flowStmt(f, alt, []dangling{{from: condID, label: "false"}})...)
	} else {
		exits = append(exits, dangling{from: condID, label: "false"})
	}
	return exits
}

func (c *csPass) flowWhile(f *flow, n *sitter.Node, entries []dangling) []dangling {
	label := "while"
	if cond := n.ChildByFieldName("condition"); cond != nil {
		label = "while " + c.src.Text(cond)
	}
	condID := f.cb.AddCond(label, f.rangeOf(n))
	f.connect(entries, condID)

	f.pushLoop(condID)
	bodyExits := c.loopBody(f, n, condID)
	f.connect(bodyExits, condID)
	frame := f.pop()

	return append([]dangling{{from: condID, label: "false"}}, frame.breaks...)
}

func (c *csPass) flowDo(f *flow, n *sitter.Node, entries []dangling) []dangling {
	label := "while"
	if cond := n.ChildByFieldName("condition"); cond != nil {
		label = "while " + c.src.Text(cond)
	}
	condID := f.cb.AddCond(label, f.rangeOf(n))

	headID := f.cb.AddStmt("do", f.rangeOf(n))
	f.connect(entries, headID)

	f.pushLoop(condID)
	var bodyExits []dangling
	if body := n.ChildByFieldName("body"); body != nil {
		bodyExits = c.flowStmt(f, body, []dangling{{from: headID}})
	} else {
		bodyExits = []dangling{{from: headID}}
	}
	f.connect(bodyExits, condID)
	frame := f.pop()

	f.cb.AddEdge(condID, headID, "true")
	return append([]dangling{{from: condID, label: "false"}}, frame.breaks...)
}

func (c *csPass) flowFor(f *flow, n *sitter.Node, entries []dangling) []dangling {
	if init := n.ChildByFieldName("initializer"); init != nil {
		entries = f.stmt(init, entries)
	}
	label := "for"
	if cond := n.ChildByFieldName("condition"); cond != nil {
		label = "for " + c.src.Text(cond)
	}
	condID := f.cb.AddCond(label, f.rangeOf(n))
	f.connect(entries, condID)

	f.pushLoop(condID)
	bodyExits := c.loopBody(f, n, condID)
	if update := n.ChildByFieldName("update"); update != nil {
		updateID := f.cb.AddStmt(c.src.Text(update), f.rangeOf(update))
		f.connect(bodyExits, updateID)
		f.cb.AddEdge(updateID, condID, "")
	} else {
		f.connect(bodyExits, condID)
	}
	frame := f.pop()

	return append([]dangling{{from: condID, label: "false"}}, frame.breaks...)
}

func (c *csPass) flowForeach(f *flow, n *sitter.Node, entries []dangling) []dangling {
	label := "foreach"
	if left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right"); left != nil && right != nil {
		label = "foreach " + c.src.Text(left) + " in " + c.src.Text(right)
	} else {
		label = c.headerText(n)
	}
	condID := f.cb.AddCond(label, f.rangeOf(n))
	f.connect(entries, condID)

	f.pushLoop(condID)
	bodyExits := c.loopBody(f, n, condID)
	f.connect(bodyExits, condID)
	frame := f.pop()

	return append([]dangling{{from: condID, label: "false"}}, frame.breaks...)
}

func (c *csPass) loopBody(f *flow, n *sitter.Node, condID string) []dangling {
	if body := n.ChildByFieldName("body"); body != nil {
		return c.flowStmt(f, body, []dangling{{from: condID, label: "true"}})
	}
	return []dangling{{from: condID, label: "true"}}
}

// flowSwitch reads the switch body out of the grammar's switch_body child.
// Case labels surface as pattern nodes inside each switch_section
// (constant_pattern for plain cases); "default:" leaves no named child, so a
// section without any pattern is the default section.
func (c *csPass) flowSwitch(f *flow, n *sitter.Node, entries []dangling) []dangling {
	label := "switch"
	if value := switchValue(n); value != nil {
		label = "switch " + c.src.Text(value)
	}

	body := firstChildOfType(n, "switch_body")
	type section struct {
		labels []string
		stmts  []*sitter.Node
	}
	var sections []section
	var cases []string
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			sec := body.NamedChild(i)
			if sec.Type() != "switch_section" {
				continue
			}
			var s section
			patterns := 0
			for j := 0; j < int(sec.NamedChildCount()); j++ {
				child := sec.NamedChild(j)
				t := child.Type()
				switch {
				case t == "constant_pattern":
					patterns++
					caseText := labelValue(c, child)
					s.labels = append(s.labels, caseText)
					cases = append(cases, caseText)
				case strings.HasSuffix(t, "_pattern"):
					patterns++
					c.b.AddDiagnostic(ir.Diagnostic{
						Code:     ir.CodeUnsupported,
						Message:  "pattern switch label treated as an opaque case",
						Severity: ir.SeverityInfo,
						Range:    f.rangeOf(child),
					})
					caseText := ir.NormalizeLabel(c.src.Text(child))
					s.labels = append(s.labels, caseText)
					cases = append(cases, caseText)
				case t == "when_clause":
					// Guard on a pattern label; not part of the section body.
				default:
					s.stmts = append(s.stmts, child)
				}
			}
			if patterns == 0 {
				s.labels = nil // default section
			}
			sections = append(sections, s)
		}
	}

	switchID := f.cb.AddSwitch(label, cases, f.rangeOf(n))
	f.connect(entries, switchID)

	f.pushSwitch()
	var exits []dangling
	hasDefault := false
	for _, s := range sections {
		var frontier []dangling
		for _, lbl := range s.labels {
			frontier = append(frontier, dangling{from: switchID, label: "case: " + lbl})
		}
		if len(s.labels) == 0 {
			hasDefault = true
			frontier = append(frontier, dangling{from: switchID, label: "default"})
		}
		exits = append(exits, c.flowSeq(f, s.stmts, frontier)...)
	}
	frame := f.pop()
	exits = append(exits, frame.breaks...)
	if !hasDefault {
		exits = append(exits, dangling{from: switchID, label: "default"})
	}
	return exits
}

// switchValue finds the scrutinee: the first named child that is not the
// switch body (the grammar exposes it without a field name).
func switchValue(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() != "switch_body" {
			return child
		}
	}
	return nil
}

func labelValue(c *csPass, label *sitter.Node) string {
	if label.NamedChildCount() > 0 {
		return ir.NormalizeLabel(c.src.Text(label.NamedChild(0)))
	}
	return ir.NormalizeLabel(c.src.Text(label))
}

func (c *csPass) flowTry(f *flow, n *sitter.Node, entries []dangling) []dangling {
	tryID := f.cb.AddStmt("try", f.rangeOf(n))
	f.connect(entries, tryID)
	tryFrontier := []dangling{{from: tryID}}

	var joined []dangling
	if body := n.ChildByFieldName("body"); body != nil {
		joined = append(joined, c.flowStmt(f, body, tryFrontier)...)
	} else {
		joined = append(joined, tryFrontier...)
	}

	var finallyBlock *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		switch clause.Type() {
		case "catch_clause":
			block := clause.ChildByFieldName("body")
			if block == nil {
				block = firstChildOfType(clause, "block")
			}
			if block != nil {
				joined = append(joined, c.flowStmt(f, block, tryFrontier)...)
			}
		case "finally_clause":
			finallyBlock = firstChildOfType(clause, "block")
		}
	}

	if finallyBlock != nil {
		return c.flowStmt(f, finallyBlock, joined)
	}
	return joined
}

func firstChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == typ {
			return child
		}
	}
	return nil
}

// sweepImports parses using directives into {name, alias} entries. The alias
// form "using Foo = Bar.Baz;" surfaces as an identifier child (the alias)
// followed by a qualified_name child (the target); a plain "using Foo;" has
// just the one name child.
func (csharpAnalyzer) sweepImports(ctx *Context) {
	src, b := ctx.Source, ctx.Builder
	walk(ctx.Root, func(n *sitter.Node) bool {
		if n.Type() != "using_directive" {
			return true
		}
		var name string
		var idents []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "qualified_name":
				name = src.Text(child)
			case "identifier":
				idents = append(idents, src.Text(child))
			}
		}
		var alias string
		switch {
		case name != "" && len(idents) > 0:
			alias = idents[0]
		case len(idents) > 1:
			alias, name = idents[0], idents[1]
		case len(idents) == 1:
			name = idents[0]
		}
		b.AddImport(name, alias)
		return false
	})
}

// sweepUnsupported flags recognized-but-unmodeled expression forms so their
// absence from the CFG is visible to consumers.
func (csharpAnalyzer) sweepUnsupported(ctx *Context) {
	b := ctx.Builder
	walk(ctx.Root, func(n *sitter.Node) bool {
		if n.Type() == "switch_expression" {
			rng := ctx.Source.RangeOf(n)
			b.AddDiagnostic(ir.Diagnostic{
				Code:     ir.CodeUnsupported,
				Message:  "switch expression is not modeled in the CFG",
				Severity: ir.SeverityInfo,
				Range:    &rng,
			})
			return false
		}
		return true
	})
}

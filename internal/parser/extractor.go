package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"bindgen/internal/cppast"
)

// extractor walks a tree-sitter C++ syntax tree and fills a cppast
// declaration tree. It only looks at declarations; function bodies and
// expressions are skipped.
type extractor struct {
	source []byte
}

func (e *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(e.source[n.StartByte():n.EndByte()])
}

func (e *extractor) childOfKind(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c.Kind() == kind {
			return c
		}
	}
	return nil
}

// scopeChildren handles the children of a namespace-like scope:
// translation_unit, declaration_list, or the body of a linkage
// specification. tmpl carries template parameters down from an
// enclosing template_declaration.
func (e *extractor) scopeChildren(ns *cppast.Namespace, node *sitter.Node, tmpl *cppast.TemplateDecl) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "namespace_definition":
			e.extractNamespace(ns, child)
		case "class_specifier", "struct_specifier":
			if cls := e.extractClass(child, tmpl); cls != nil {
				ns.Classes = append(ns.Classes, cls)
			}
		case "template_declaration":
			e.extractTemplated(ns, child)
		case "enum_specifier":
			if en, ok := e.extractEnum(child); ok {
				ns.Enums = append(ns.Enums, en)
			}
		case "alias_declaration":
			ns.Typedefs = append(ns.Typedefs, cppast.Typedef{
				Name:   e.text(child.ChildByFieldName("name")),
				Target: e.text(child.ChildByFieldName("type")),
			})
		case "type_definition":
			if td, ok := e.extractTypedef(child); ok {
				ns.Typedefs = append(ns.Typedefs, td)
			}
		case "declaration", "function_definition":
			// Free functions. Nested type definitions used as a
			// declaration's type (typedef struct idiom) are handled by
			// type_definition above.
			if m, ok := e.extractMethod(child, cppast.AccessPublic, "", tmpl); ok {
				ns.Functions = append(ns.Functions, m)
			}
		case "linkage_specification":
			// extern "C" { ... }
			e.scopeChildren(ns, child.ChildByFieldName("body"), tmpl)
		case "preproc_if", "preproc_ifdef", "preproc_else":
			// Passthrough includes leave a few preproc wrappers behind;
			// descend so declarations inside are not lost.
			e.scopeChildren(ns, child, tmpl)
		}
	}
}

func (e *extractor) extractNamespace(parent *cppast.Namespace, node *sitter.Node) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}

	target := parent
	name := node.ChildByFieldName("name")
	switch {
	case name == nil:
		// Anonymous namespace: its declarations stay visible in the
		// enclosing scope for binding purposes.
	case name.Kind() == "nested_namespace_specifier":
		for _, seg := range strings.Split(e.text(name), "::") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			next := &cppast.Namespace{Name: seg}
			target.Namespaces = append(target.Namespaces, next)
			target = next
		}
	default:
		next := &cppast.Namespace{Name: e.text(name)}
		target.Namespaces = append(target.Namespaces, next)
		target = next
	}

	e.scopeChildren(target, body, nil)
}

// extractTemplated unwraps a template_declaration at namespace scope.
// Only templated classes matter here; templated free functions are
// recorded like plain ones.
func (e *extractor) extractTemplated(ns *cppast.Namespace, node *sitter.Node) {
	tmpl := e.templateParams(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "class_specifier", "struct_specifier":
			if cls := e.extractClass(child, tmpl); cls != nil {
				ns.Classes = append(ns.Classes, cls)
			}
		case "declaration", "function_definition":
			if m, ok := e.extractMethod(child, cppast.AccessPublic, "", tmpl); ok {
				ns.Functions = append(ns.Functions, m)
			}
		}
	}
}

func (e *extractor) templateParams(node *sitter.Node) *cppast.TemplateDecl {
	list := e.childOfKind(node, "template_parameter_list")
	if list == nil {
		return &cppast.TemplateDecl{}
	}
	tmpl := &cppast.TemplateDecl{}
	for i := uint(0); i < list.ChildCount(); i++ {
		child := list.Child(i)
		switch child.Kind() {
		case "type_parameter_declaration", "optional_type_parameter_declaration",
			"parameter_declaration", "variadic_type_parameter_declaration":
			if name := e.lastIdentifier(child); name != "" {
				tmpl.Params = append(tmpl.Params, cppast.TemplateParam{Name: name})
			}
		}
	}
	return tmpl
}

// lastIdentifier finds the declared name in a template parameter, which
// is the last identifier-like leaf ("typename T" -> "T",
// "unsigned int N" -> "N").
func (e *extractor) lastIdentifier(node *sitter.Node) string {
	name := ""
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := uint(0); i < n.ChildCount(); i++ {
			c := n.Child(i)
			switch c.Kind() {
			case "type_identifier", "identifier":
				name = e.text(c)
			default:
				walk(c)
			}
		}
	}
	walk(node)
	return name
}

func (e *extractor) extractClass(node *sitter.Node, tmpl *cppast.TemplateDecl) *cppast.Class {
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil // forward declaration
	}
	name := node.ChildByFieldName("name")
	if name == nil {
		return nil // anonymous class, nothing stable to bind
	}

	isStruct := node.Kind() == "struct_specifier"
	cls := &cppast.Class{
		Name:     e.text(name),
		Struct:   isStruct,
		Template: tmpl,
	}

	if baseClause := e.childOfKind(node, "base_class_clause"); baseClause != nil {
		e.extractBases(cls, baseClause, isStruct)
	}

	access := cppast.AccessPrivate
	if isStruct {
		access = cppast.AccessPublic
	}
	e.classBody(cls, body, access)
	return cls
}

func (e *extractor) extractBases(cls *cppast.Class, clause *sitter.Node, isStruct bool) {
	access := cppast.AccessPrivate
	if isStruct {
		access = cppast.AccessPublic
	}
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		switch child.Kind() {
		case "access_specifier":
			access = parseAccess(e.text(child))
		case "type_identifier", "qualified_identifier", "template_type":
			cls.Bases = append(cls.Bases, cppast.Base{Access: access, Name: e.text(child)})
		}
	}
}

func (e *extractor) classBody(cls *cppast.Class, body *sitter.Node, access cppast.Access) {
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		switch child.Kind() {
		case "access_specifier":
			access = parseAccess(e.text(child))
		case "field_declaration", "declaration", "function_definition":
			e.classMember(cls, child, access, nil)
		case "template_declaration":
			tmpl := e.templateParams(child)
			for j := uint(0); j < child.ChildCount(); j++ {
				inner := child.Child(j)
				switch inner.Kind() {
				case "field_declaration", "declaration", "function_definition":
					e.classMember(cls, inner, access, tmpl)
				case "class_specifier", "struct_specifier":
					if nested := e.extractClass(inner, tmpl); nested != nil {
						cls.Classes = append(cls.Classes, nested)
					}
				}
			}
		case "class_specifier", "struct_specifier":
			if nested := e.extractClass(child, nil); nested != nil {
				cls.Classes = append(cls.Classes, nested)
			}
		case "enum_specifier":
			if en, ok := e.extractEnum(child); ok {
				cls.Enums = append(cls.Enums, en)
			}
		case "alias_declaration":
			cls.Typedefs = append(cls.Typedefs, cppast.Typedef{
				Name:   e.text(child.ChildByFieldName("name")),
				Target: e.text(child.ChildByFieldName("type")),
			})
		case "type_definition":
			if td, ok := e.extractTypedef(child); ok {
				cls.Typedefs = append(cls.Typedefs, td)
			}
		case "friend_declaration":
			if strings.Contains(e.text(child), "operator<<") {
				cls.HasStreamOperator = true
			}
		case "preproc_if", "preproc_ifdef", "preproc_else":
			e.classBody(cls, child, access)
		}
	}
}

// classMember dispatches one member declaration: a method when a
// function declarator is present, a nested type when the declaration's
// type is a definition, otherwise a data field (ignored).
func (e *extractor) classMember(cls *cppast.Class, node *sitter.Node, access cppast.Access, tmpl *cppast.TemplateDecl) {
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		switch typeNode.Kind() {
		case "class_specifier", "struct_specifier":
			if nested := e.extractClass(typeNode, tmpl); nested != nil {
				cls.Classes = append(cls.Classes, nested)
				return
			}
		case "enum_specifier":
			if en, ok := e.extractEnum(typeNode); ok {
				cls.Enums = append(cls.Enums, en)
				return
			}
		}
	}
	if m, ok := e.extractMethod(node, access, cls.Name, tmpl); ok {
		cls.Methods = append(cls.Methods, m)
	}
}

// extractMethod reads a declaration or function_definition carrying a
// function declarator. className is empty at namespace scope.
func (e *extractor) extractMethod(node *sitter.Node, access cppast.Access, className string, tmpl *cppast.TemplateDecl) (cppast.Method, bool) {
	fd := e.findFunctionDeclarator(node)
	if fd == nil {
		return cppast.Method{}, false
	}

	m := cppast.Method{Access: access, Template: tmpl}

	declarator := fd.ChildByFieldName("declarator")
	if declarator == nil {
		return cppast.Method{}, false
	}
	switch declarator.Kind() {
	case "identifier", "field_identifier":
		m.Name = e.text(declarator)
	case "destructor_name":
		m.Name = e.text(declarator)
		m.Destructor = true
	case "operator_name":
		m.Name = normalizeOperatorName(e.text(declarator))
	case "qualified_identifier":
		parts := strings.Split(e.text(declarator), "::")
		m.Name = strings.TrimSpace(parts[len(parts)-1])
	default:
		return cppast.Method{}, false
	}

	typeNode := node.ChildByFieldName("type")
	if typeNode != nil {
		ret := e.text(typeNode)
		// Leading qualifiers ("const double &f()") precede the type field.
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c.Kind() == "type_qualifier" && c.StartByte() < typeNode.StartByte() {
				ret = e.text(c) + " " + ret
			}
		}
		m.ReturnType = ret + e.declaratorWrappers(node.ChildByFieldName("declarator"), fd)
	}
	m.Constructor = className != "" && m.Name == className && typeNode == nil

	e.extractParams(&m, fd.ChildByFieldName("parameters"))

	for i := uint(0); i < fd.ChildCount(); i++ {
		if c := fd.Child(i); c.Kind() == "type_qualifier" && e.text(c) == "const" {
			m.Const = true
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		switch t := e.text(node.Child(i)); t {
		case "virtual":
			m.Virtual = true
		case "static":
			m.Static = true
		}
	}

	// Trailing "= 0" / "= delete" / "= default" after the declarator.
	tail := collapseSpaces(string(e.source[fd.EndByte():node.EndByte()]))
	switch {
	case strings.Contains(tail, "= 0"):
		m.PureVirtual = true
	case strings.Contains(tail, "= delete"):
		m.Deleted = true
	case strings.Contains(tail, "= default"):
		m.Defaulted = true
	}
	if m.PureVirtual {
		m.Virtual = true
	}

	return m, true
}

// findFunctionDeclarator drills through pointer/reference wrappers
// looking for the function declarator of a declaration. Bodies are not
// descended into, so local lambdas and nested declarations are skipped.
func (e *extractor) findFunctionDeclarator(node *sitter.Node) *sitter.Node {
	decl := node.ChildByFieldName("declarator")
	for decl != nil {
		switch decl.Kind() {
		case "function_declarator":
			return decl
		case "pointer_declarator", "reference_declarator":
			decl = e.innerDeclarator(decl)
			if decl == nil {
				return nil
			}
		default:
			return nil
		}
	}
	return nil
}

// innerDeclarator returns the declarator wrapped by a pointer/reference
// declarator. reference_declarator carries its child anonymously (no
// named field), so a field lookup alone loses every reference-returning
// method; fall back to scanning the children for declarator kinds.
func (e *extractor) innerDeclarator(decl *sitter.Node) *sitter.Node {
	if inner := decl.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	for i := uint(0); i < decl.ChildCount(); i++ {
		switch c := decl.Child(i); c.Kind() {
		case "function_declarator", "pointer_declarator", "reference_declarator",
			"abstract_pointer_declarator", "abstract_reference_declarator",
			"abstract_function_declarator", "identifier", "field_identifier",
			"operator_name", "destructor_name", "qualified_identifier":
			return c
		}
	}
	return nil
}

// declaratorWrappers renders the pointer/reference tokens sitting
// between the declared type and the function declarator, so that
// "double *data() const" round-trips its return type as "double *".
func (e *extractor) declaratorWrappers(decl, fd *sitter.Node) string {
	out := ""
	for decl != nil && decl != fd {
		switch decl.Kind() {
		case "pointer_declarator":
			out += " *"
		case "reference_declarator":
			if strings.HasPrefix(e.text(decl), "&&") {
				out += " &&"
			} else {
				out += " &"
			}
		default:
			return out
		}
		decl = e.innerDeclarator(decl)
	}
	return out
}

func (e *extractor) extractParams(m *cppast.Method, list *sitter.Node) {
	if list == nil {
		return
	}
	for i := uint(0); i < list.ChildCount(); i++ {
		child := list.Child(i)
		switch child.Kind() {
		case "parameter_declaration", "optional_parameter_declaration":
			p := cppast.Param{
				Type:    e.paramType(child),
				Name:    e.lastIdentifier(child),
				Default: e.text(child.ChildByFieldName("default_value")),
			}
			if p.Type == "void" && p.Name == "" {
				continue // f(void)
			}
			m.Params = append(m.Params, p)
		case "variadic_parameter_declaration":
			m.Variadic = true
		default:
			if e.text(child) == "..." {
				m.Variadic = true
			}
		}
	}
}

func (e *extractor) paramType(param *sitter.Node) string {
	typeNode := param.ChildByFieldName("type")
	if typeNode == nil {
		return collapseSpaces(e.text(param))
	}
	base := e.text(typeNode)
	// Leading qualifiers ("const") precede the type field.
	for i := uint(0); i < param.ChildCount(); i++ {
		c := param.Child(i)
		if c.Kind() == "type_qualifier" && c.StartByte() < typeNode.StartByte() {
			base = e.text(c) + " " + base
		}
	}
	decl := param.ChildByFieldName("declarator")
	for decl != nil {
		switch decl.Kind() {
		case "pointer_declarator", "abstract_pointer_declarator":
			base += " *"
		case "reference_declarator", "abstract_reference_declarator":
			if strings.HasPrefix(e.text(decl), "&&") {
				base += " &&"
			} else {
				base += " &"
			}
		case "function_declarator", "abstract_function_declarator":
			// Function pointer parameter; keep raw text, the
			// acceptance policy rejects it anyway.
			return collapseSpaces(e.text(param))
		default:
			return base
		}
		decl = e.innerDeclarator(decl)
	}
	return base
}

func (e *extractor) extractEnum(node *sitter.Node) (cppast.Enum, bool) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return cppast.Enum{}, false // opaque enum declaration
	}
	en := cppast.Enum{
		Name: e.text(node.ChildByFieldName("name")),
		Base: e.text(node.ChildByFieldName("base")),
	}
	en.Anonymous = en.Name == ""
	for i := uint(0); i < node.ChildCount(); i++ {
		if t := e.text(node.Child(i)); t == "class" || t == "struct" {
			en.Scoped = true
		}
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child.Kind() == "enumerator" {
			en.Values = append(en.Values, e.text(child.ChildByFieldName("name")))
		}
	}
	return en, true
}

func (e *extractor) extractTypedef(node *sitter.Node) (cppast.Typedef, bool) {
	decl := node.ChildByFieldName("declarator")
	if decl == nil {
		return cppast.Typedef{}, false
	}
	name := ""
	switch decl.Kind() {
	case "type_identifier", "identifier":
		name = e.text(decl)
	default:
		name = e.lastIdentifier(node)
	}
	if name == "" {
		return cppast.Typedef{}, false
	}
	return cppast.Typedef{Name: name, Target: e.text(node.ChildByFieldName("type"))}, true
}

func parseAccess(text string) cppast.Access {
	switch strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ":")) {
	case "public":
		return cppast.AccessPublic
	case "protected":
		return cppast.AccessProtected
	default:
		return cppast.AccessPrivate
	}
}

// normalizeOperatorName strips interior whitespace: "operator ==" and
// "operator==" must compare equal.
func normalizeOperatorName(name string) string {
	return "operator" + strings.TrimSpace(strings.TrimPrefix(name, "operator"))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

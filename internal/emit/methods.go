package emit

import (
	"fmt"
	"strings"

	"bindgen/internal/cppast"
	"bindgen/internal/header"
	"bindgen/internal/report"
)

func (e *Emitter) defineConstructor(pyIdent string, m cppast.Method, specs specMap, env *header.Environment) string {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = resolveType(p.Type, specs, env)
	}
	args := append([]string{fmt.Sprintf("py::init<%s>()", strings.Join(types, ", "))},
		pyArgs(m.Params, specs, env)...)
	e.Report.AddGeneratedMethod()
	return fmt.Sprintf("\t%s.def(%s);", pyIdent, strings.Join(args, ", "))
}

// defineOperator binds a binary operator overload through a lambda so
// the left-hand side stays a reference to the bound class. Only unary
// parameter lists are representable as python binary dunders; anything
// else is recorded and dropped.
func (e *Emitter) defineOperator(pyIdent, nameCpp string, m cppast.Method, specs specMap, env *header.Environment) (string, bool) {
	token := m.OperatorToken()
	if len(m.Params) != 1 {
		e.Report.AddRejectedMethod(report.RejectedMethod{
			Class: nameCpp, Signature: m.Signature(), Reason: report.ReasonOperatorArity,
		})
		return "", false
	}
	paramType := resolveType(m.Params[0].Type, specs, env)

	if op, ok := lookupOperator(binaryInPlaceOps, token); ok {
		e.Report.AddGeneratedMethod()
		return fmt.Sprintf(`	%s.def("__%s__", [](%s& self, %s o) { self %s o; return self; }, py::arg("o"), py::is_operator());`,
			pyIdent, op.Python, nameCpp, paramType, token), true
	}
	if op, ok := lookupOperator(binaryReturnOps, token); ok {
		e.Report.AddGeneratedMethod()
		return fmt.Sprintf(`	%s.def("__%s__", [](const %s& self, %s o) { return (self %s o); }, py::arg("o"), py::is_operator());`,
			pyIdent, op.Python, nameCpp, paramType, token), true
	}

	e.Report.AddRejectedMethod(report.RejectedMethod{
		Class: nameCpp, Signature: m.Signature(), Reason: report.ReasonNotHandled,
	})
	return "", false
}

func (e *Emitter) defineMethod(pyIdent, nameCpp string, m cppast.Method, specs specMap, env *header.Environment) (string, generatedMethod) {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = resolveType(p.Type, specs, env)
	}
	returnType := "void"
	if m.ReturnType != "" {
		returnType = resolveType(m.ReturnType, specs, env)
	}

	// The static_cast selects the exact overload, which pybind11 needs
	// when the name is overloaded in C++.
	var cast string
	defName := "def"
	if m.Static {
		defName = "def_static"
		cast = fmt.Sprintf("static_cast<%s (*)(%s)>(&%s::%s)",
			returnType, strings.Join(types, ", "), nameCpp, m.Name)
	} else {
		constSuffix := ""
		if m.Const {
			constSuffix = " const"
		}
		cast = fmt.Sprintf("static_cast<%s (%s::*)(%s)%s>(&%s::%s)",
			returnType, nameCpp, strings.Join(types, ", "), constSuffix, nameCpp, m.Name)
	}

	args := append([]string{fmt.Sprintf("%q", m.Name), cast}, pyArgs(m.Params, specs, env)...)
	e.Report.AddGeneratedMethod()
	stmt := fmt.Sprintf("\t%s.%s(%s);", pyIdent, defName, strings.Join(args, ", "))
	return stmt, generatedMethod{Name: m.Name, Static: m.Static}
}

// defineRepr wires __repr__ when the class is printable, either through
// a friend operator<< or a const zero-argument toString method.
func (e *Emitter) defineRepr(pyIdent, nameCpp string, cls *cppast.Class) (string, bool) {
	if cls.HasStreamOperator {
		return fmt.Sprintf(`	%s.def("__repr__", [](const %s &a) { std::stringstream s; s << a; return s.str(); });`,
			pyIdent, nameCpp), true
	}
	for _, m := range cls.Methods {
		if m.Name == "toString" && m.Const && !m.Static && len(m.Params) == 0 && m.Access == cppast.AccessPublic {
			return fmt.Sprintf(`	%s.def("__repr__", [](const %s &a) { return a.toString(); });`,
				pyIdent, nameCpp), true
		}
	}
	return "", false
}

// generateEnum registers a named enum on its owner, the submodule for
// namespace-level enums or the py::class_ variable for nested ones.
// Unscoped enums export their values into the owner scope, matching how
// C++ code refers to them.
func (e *Emitter) generateEnum(en cppast.Enum, owner string, env *header.Environment) string {
	qual := env.Resolve(en.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "\tpy::enum_<%s>(%s, %q)", qual, owner, en.Name)
	for _, v := range en.Values {
		fmt.Fprintf(&b, "\n\t\t.value(%q, %s::%s)", v, qual, v)
	}
	if !en.Scoped {
		b.WriteString("\n\t\t.export_values()")
	}
	b.WriteString(";")
	return b.String()
}

func pyArgs(params []cppast.Param, specs specMap, env *header.Environment) []string {
	out := make([]string, 0, len(params))
	for i, p := range params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		if p.Default != "" {
			out = append(out, fmt.Sprintf("py::arg(%q) = %s", name, resolveType(p.Default, specs, env)))
		} else {
			out = append(out, fmt.Sprintf("py::arg(%q)", name))
		}
	}
	return out
}

// Package cppast holds the declaration tree produced by parsing a
// preprocessed C++ header. Only declarations matter for binding
// generation; bodies, expressions and comments are not represented.
package cppast

import "strings"

type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	default:
		return "private"
	}
}

// Namespace is a namespace scope. The root of a parsed header is the
// anonymous global namespace.
type Namespace struct {
	Name       string
	Namespaces []*Namespace
	Classes    []*Class
	Enums      []Enum
	Typedefs   []Typedef
	Functions  []Method // free functions; recorded but not bound
}

type Class struct {
	Name     string
	Struct   bool
	Template *TemplateDecl // nil for non-templated classes
	Bases    []Base
	Methods  []Method
	Classes  []*Class // nested classes
	Enums    []Enum
	Typedefs []Typedef

	// HasStreamOperator is set when the class body declares a friend
	// operator<<, which makes the class printable.
	HasStreamOperator bool
}

type Base struct {
	Access Access
	Name   string // as written, possibly qualified and templated
}

// PlainName strips template arguments from the base name:
// "vpArray2D<Type>" -> "vpArray2D".
func (b Base) PlainName() string {
	if i := strings.IndexByte(b.Name, '<'); i >= 0 {
		return strings.TrimSpace(b.Name[:i])
	}
	return b.Name
}

type TemplateDecl struct {
	Params []TemplateParam
}

type TemplateParam struct {
	Name string
}

type Method struct {
	Name        string
	ReturnType  string
	Params      []Param
	Access      Access
	Const       bool
	Static      bool
	Virtual     bool
	PureVirtual bool
	Deleted     bool
	Defaulted   bool
	Constructor bool
	Destructor  bool
	Variadic    bool
	Template    *TemplateDecl // method-level template, nil otherwise
}

// IsOperator reports whether the method is an operator overload.
// Conversion operators ("operator int") are not, their name carries a space.
func (m Method) IsOperator() bool {
	if !strings.HasPrefix(m.Name, "operator") {
		return false
	}
	rest := m.Name[len("operator"):]
	return rest != "" && !strings.Contains(rest, " ")
}

// OperatorToken returns the token part of an operator name ("+=" for
// "operator+=").
func (m Method) OperatorToken() string {
	return strings.TrimPrefix(m.Name, "operator")
}

// Signature renders a readable method signature for diagnostics and
// reports.
func (m Method) Signature() string {
	var b strings.Builder
	if m.ReturnType != "" {
		b.WriteString(m.ReturnType)
		b.WriteByte(' ')
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type)
	}
	b.WriteByte(')')
	if m.Const {
		b.WriteString(" const")
	}
	return b.String()
}

type Param struct {
	Name    string
	Type    string
	Default string // source text of the default value, empty if none
}

type Enum struct {
	Name      string
	Anonymous bool
	Scoped    bool   // enum class / enum struct
	Base      string // underlying type, empty if unspecified
	Values    []string
}

// Typedef covers both typedef declarations and using-aliases.
type Typedef struct {
	Name   string
	Target string
}

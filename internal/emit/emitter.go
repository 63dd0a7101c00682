// Package emit walks parsed class declarations and generates pybind11
// registration statements: class bindings, constructors, operator
// overloads, methods, enums, string representations, and user hook
// calls.
package emit

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"bindgen/internal/config"
	"bindgen/internal/cppast"
	"bindgen/internal/header"
	"bindgen/internal/report"
)

// OverloadConflictError aborts the whole run: the same method name
// registered as both an instance method and a static method on one
// class is invalid for pybind11 and indicates a configuration mistake
// the generator cannot paper over.
type OverloadConflictError struct {
	Class   string
	Methods []string
}

func (e *OverloadConflictError) Error() string {
	return fmt.Sprintf("class %s registers %s as both instance and static method",
		e.Class, strings.Join(e.Methods, ", "))
}

type Emitter struct {
	Prefix string // class prefix stripped to derive python names
	Policy Policy
	Report *report.Report
}

func New(prefix string, policy Policy, rep *report.Report) *Emitter {
	if policy == nil {
		policy = DefaultPolicy{}
	}
	return &Emitter{Prefix: prefix, Policy: policy, Report: rep}
}

// GenerateHeader emits the binding fragment for one header. The header
// must have been preprocessed and carry a merged environment.
func (e *Emitter) GenerateHeader(h *header.HeaderFile, sub *config.Submodule) (string, error) {
	var b strings.Builder
	for _, cls := range header.CollectClasses(h.Decls) {
		fragment, err := e.generateClass(cls, h.Env, sub)
		if err != nil {
			return "", err
		}
		if fragment != "" {
			b.WriteString(fragment)
			b.WriteByte('\n')
		}
	}
	for _, en := range namespaceEnums(h.Decls) {
		b.WriteString(e.generateEnum(en, "submodule", h.Env))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// generateClass handles one top-level class: configuration lookup,
// template specialization fan-out, and the non-templated fast path.
func (e *Emitter) generateClass(cls *cppast.Class, env *header.Environment, sub *config.Submodule) (string, error) {
	if sub.ClassIgnored(cls.Name) {
		e.Report.AddSkippedClass(report.SkippedClass{Name: cls.Name, Reason: report.ReasonUserIgnored})
		return "", nil
	}
	cfg := sub.ClassConfig(cls.Name)

	if cls.Template == nil || len(cls.Template.Params) == 0 {
		pyName := strings.TrimPrefix(cls.Name, e.Prefix)
		return e.generateInstantiation(cls, pyName, nil, cfg, env)
	}

	if len(cfg.Specializations) == 0 {
		slog.Warn("templated class has no declared specializations, skipping", "class", cls.Name)
		e.Report.AddSkippedClass(report.SkippedClass{Name: cls.Name, Reason: report.ReasonNoSpecialization})
		return "", nil
	}

	var fragments []string
	for _, spec := range cfg.Specializations {
		if len(spec.Arguments) != len(cls.Template.Params) {
			return "", fmt.Errorf("class %s: specialization %q has %d arguments, template declares %d parameters",
				cls.Name, spec.PythonName, len(spec.Arguments), len(cls.Template.Params))
		}
		specs := make(specMap, len(spec.Arguments))
		for i, param := range cls.Template.Params {
			specs[i] = specEntry{Name: param.Name, Value: spec.Arguments[i]}
		}
		fragment, err := e.generateInstantiation(cls, spec.PythonName, specs, cfg, env)
		if err != nil {
			return "", err
		}
		fragments = append(fragments, fragment)
	}
	return strings.Join(fragments, "\n"), nil
}

func (e *Emitter) generateInstantiation(cls *cppast.Class, pyName string, specs specMap, cfg config.ClassConfig, env *header.Environment) (string, error) {
	pyIdent := "py" + pyName
	nameCpp := env.Resolve(cls.Name)
	if len(specs) > 0 {
		nameCpp += "<" + strings.Join(specs.values(), ", ") + ">"
	}

	var baseStrs []string
	for _, base := range cls.Bases {
		if base.Access == cppast.AccessPublic {
			baseStrs = append(baseStrs, resolveType(base.Name, specs, env))
		}
	}

	classArgs := []string{"submodule", fmt.Sprintf("%q", pyName)}
	if cfg.UseBufferProtocol {
		classArgs = append(classArgs, "py::buffer_protocol()")
	}
	templateArgs := strings.Join(append([]string{nameCpp}, baseStrs...), ", ")

	stmts := []string{fmt.Sprintf("\tpy::class_ %s = py::class_<%s>(%s);",
		pyIdent, templateArgs, strings.Join(classArgs, ", "))}

	// Evaluated before any constructor emission: a class with pure
	// virtual methods (or marked virtual in configuration) cannot be
	// instantiated, so its constructors must not be registered.
	nonInstantiable := cfg.IsVirtual
	for _, m := range cls.Methods {
		if m.PureVirtual {
			nonInstantiable = true
			break
		}
	}

	var constructors, operators, basics []cppast.Method
	for _, m := range cls.Methods {
		accepted, reason := e.Policy.Evaluate(m, cfg)
		if !accepted {
			rejection := report.RejectedMethod{Class: nameCpp, Signature: m.Signature(), Reason: reason}
			e.Report.AddRejectedMethod(rejection)
			if !reason.Trivial() {
				slog.Debug("rejected method", "class", nameCpp, "signature", m.Signature(), "reason", reason)
			}
			continue
		}
		switch {
		case m.Constructor:
			constructors = append(constructors, m)
		case m.IsOperator():
			operators = append(operators, m)
		default:
			basics = append(basics, m)
		}
	}

	if !nonInstantiable {
		for _, ctor := range constructors {
			stmts = append(stmts, e.defineConstructor(pyIdent, ctor, specs, env))
		}
	}

	for _, op := range operators {
		if stmt, ok := e.defineOperator(pyIdent, nameCpp, op, specs, env); ok {
			stmts = append(stmts, stmt)
		}
	}

	var generated []generatedMethod
	for _, m := range basics {
		mcfg := cfg.MethodConfig(m.Name)
		if m.Template != nil && len(mcfg.Specializations) > 0 {
			for _, args := range mcfg.Specializations {
				if len(args) != len(m.Template.Params) {
					return "", fmt.Errorf("class %s: method %s specialization has %d arguments, template declares %d parameters",
						cls.Name, m.Name, len(args), len(m.Template.Params))
				}
				methodSpecs := make(specMap, len(args))
				for i, param := range m.Template.Params {
					methodSpecs[i] = specEntry{Name: param.Name, Value: args[i]}
				}
				stmt, gen := e.defineMethod(pyIdent, nameCpp, m, specs.merge(methodSpecs), env)
				stmts = append(stmts, stmt)
				generated = append(generated, gen)
			}
			continue
		}
		stmt, gen := e.defineMethod(pyIdent, nameCpp, m, specs, env)
		stmts = append(stmts, stmt)
		generated = append(generated, gen)
	}

	if !cfg.IgnoreRepr {
		if stmt, ok := e.defineRepr(pyIdent, nameCpp, cls); ok {
			stmts = append(stmts, stmt)
		}
	}

	if cfg.AdditionalBindings != "" {
		templateSuffix := ""
		if len(specs) > 0 {
			templateSuffix = "<" + strings.Join(specs.values(), ", ") + ">"
		}
		stmts = append(stmts, fmt.Sprintf("\t%s%s(%s);", cfg.AdditionalBindings, templateSuffix, pyIdent))
	}

	for _, en := range cls.Enums {
		if !en.Anonymous {
			stmts = append(stmts, e.generateEnum(en, pyIdent, env))
		}
	}

	if conflicts := staticInstanceConflicts(generated); len(conflicts) > 0 {
		return "", &OverloadConflictError{Class: nameCpp, Methods: conflicts}
	}

	e.Report.AddGeneratedClass()
	return strings.Join(stmts, "\n"), nil
}

type generatedMethod struct {
	Name   string
	Static bool
}

// staticInstanceConflicts returns method names registered with both
// dispatch kinds on the same class.
func staticInstanceConflicts(methods []generatedMethod) []string {
	kinds := make(map[string]map[bool]bool)
	for _, m := range methods {
		if kinds[m.Name] == nil {
			kinds[m.Name] = make(map[bool]bool)
		}
		kinds[m.Name][m.Static] = true
	}
	var out []string
	for name, k := range kinds {
		if k[true] && k[false] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func namespaceEnums(ns *cppast.Namespace) []cppast.Enum {
	var out []cppast.Enum
	for _, en := range ns.Enums {
		if !en.Anonymous {
			out = append(out, en)
		}
	}
	for _, nested := range ns.Namespaces {
		out = append(out, namespaceEnums(nested)...)
	}
	return out
}

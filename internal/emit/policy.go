package emit

import (
	"strings"

	"bindgen/internal/config"
	"bindgen/internal/cppast"
	"bindgen/internal/report"
)

// Policy decides, per method, whether a binding can be generated.
// Rejections carry a categorized reason; they are reported, never
// fatal.
type Policy interface {
	Evaluate(m cppast.Method, cfg config.ClassConfig) (accepted bool, reason report.Reason)
}

// DefaultPolicy implements the generator's built-in acceptance rules.
type DefaultPolicy struct{}

func (DefaultPolicy) Evaluate(m cppast.Method, cfg config.ClassConfig) (bool, report.Reason) {
	switch {
	case cfg.MethodIgnored(m.Name):
		return false, report.ReasonUserIgnored
	case m.Access != cppast.AccessPublic:
		return false, report.ReasonNonPublic
	case m.Destructor:
		return false, report.ReasonDestructor
	case m.Deleted:
		return false, report.ReasonDeleted
	case m.Variadic:
		return false, report.ReasonUnsupportedParam
	case m.Template != nil && len(cfg.MethodConfig(m.Name).Specializations) == 0:
		return false, report.ReasonNoSpecialization
	}
	for _, p := range m.Params {
		if !parameterSupported(p.Type) {
			return false, report.ReasonUnsupportedParam
		}
	}
	if m.ReturnType != "" && !parameterSupported(m.ReturnType) {
		return false, report.ReasonUnsupportedParam
	}
	return true, ""
}

// parameterSupported rejects the parameter shapes the binding layer
// cannot marshal: multiple indirection, function pointers, rvalue
// references, and raw void pointers.
func parameterSupported(typeText string) bool {
	flat := strings.Join(strings.Fields(typeText), "")
	switch {
	case strings.Contains(flat, "**"):
		return false
	case strings.Contains(flat, "(*"):
		return false
	case strings.Contains(flat, "&&"):
		return false
	case strings.Contains(flat, "void*"):
		return false
	}
	return true
}

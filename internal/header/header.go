// Package header models one source header through the generation
// pipeline: preprocessed text, parsed declarations, dependency edges,
// symbol-resolution environment, and finally the generated binding
// fragment.
package header

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bindgen/internal/cppast"
	"bindgen/internal/parser"
	"bindgen/internal/preprocess"
)

// HeaderFile is owned by the orchestrator's header collection. It is
// mutated by Preprocess (parallel phase, one goroutine per header) and
// by the sequential environment/emission phases, never concurrently.
type HeaderFile struct {
	Path      string
	Submodule string

	Decls    *cppast.Namespace
	Contains []string // type names this header declares
	Depends  []string // base-type names this header requires
	DocPath  string   // doxygen XML file for the first documented class
	Binding  string   // generated fragment, set by the emitter

	Env *Environment
}

func New(path, submodule string) *HeaderFile {
	return &HeaderFile{Path: path, Submodule: submodule}
}

type PreprocessOptions struct {
	TmpDir      string
	ClassPrefix string
	DocXMLDir   string
}

// Preprocess runs the macro-preprocessing pass, parses the result, and
// computes the contains/depends sets used by the dependency sorter.
// Any failure here is fatal to the whole run; the caller does not
// retry or skip headers.
func (h *HeaderFile) Preprocess(pp *preprocess.Preprocessor, ps *parser.Parser, opts PreprocessOptions) error {
	content, err := pp.RunToFile(h.Path, opts.TmpDir)
	if err != nil {
		return err
	}

	decls, err := ps.ParseHeader([]byte(content))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	h.Decls = decls

	for _, cls := range CollectClasses(decls) {
		h.Contains = append(h.Contains, cls.Name)
		for _, base := range cls.Bases {
			if base.Access != cppast.AccessPublic {
				continue
			}
			// Only project types participate in ordering; std:: and
			// third-party bases are resolved by the compiler, not us.
			name := base.PlainName()
			if opts.ClassPrefix == "" || strings.HasPrefix(lastSegment(name), opts.ClassPrefix) {
				h.Depends = append(h.Depends, lastSegment(name))
			}
		}

		// One documentation artifact per header: first class wins.
		if h.DocPath == "" && opts.DocXMLDir != "" {
			candidate := filepath.Join(opts.DocXMLDir, "class"+cls.Name+".xml")
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				h.DocPath = candidate
			}
		}
	}
	return nil
}

// CollectClasses returns the classes declared at the top level of the
// header, including those nested in namespaces (but not classes nested
// inside other classes, which are bound through their owner).
func CollectClasses(ns *cppast.Namespace) []*cppast.Class {
	var out []*cppast.Class
	out = append(out, ns.Classes...)
	for _, nested := range ns.Namespaces {
		out = append(out, CollectClasses(nested)...)
	}
	return out
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// Package generate drives the full binding generation run: parallel
// header preprocessing, dependency ordering, environment construction,
// emission, and output file assembly.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"bindgen/internal/config"
	"bindgen/internal/emit"
	"bindgen/internal/header"
	"bindgen/internal/parser"
	"bindgen/internal/preprocess"
	"bindgen/internal/report"
)

type Generator struct {
	Config     *config.Config
	Submodules []*config.Submodule
	BuildDir   string
	Report     *report.Report

	parser       *parser.Parser
	preprocessor *preprocess.Preprocessor
}

func New(cfg *config.Config, subs []*config.Submodule, buildDir string, rep *report.Report) *Generator {
	return &Generator{
		Config:     cfg,
		Submodules: subs,
		BuildDir:   buildDir,
		Report:     rep,
		parser:     parser.New(),
		preprocessor: preprocess.New(preprocess.Options{
			Defines:     cfg.Defines,
			Undefines:   cfg.Undefines,
			Passthrough: cfg.Passthrough(),
			IncludeDirs: cfg.IncludeDirs,
		}),
	}
}

// Run executes one full generation pass. Preprocessing and parsing run
// in parallel across headers; everything after the dependency sort is
// sequential. No output file is written until every header has emitted
// successfully, so a failed run never leaves a half-updated src tree.
func (g *Generator) Run(ctx context.Context) error {
	start := time.Now()

	srcDir := filepath.Join(g.BuildDir, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	headers, err := g.collectHeaders(srcDir)
	if err != nil {
		return err
	}
	if err := g.preprocessAll(ctx, headers); err != nil {
		return err
	}

	sorted, ok := header.Sort(headers)
	if !ok {
		slog.Warn("header dependencies could not be fully ordered, keeping declaration order for the remainder")
	}

	for _, h := range sorted {
		h.Env = header.BuildEnvironment(h.Decls)
	}
	for _, h := range sorted {
		deps := header.DependenciesOf(h, sorted)
		envs := make([]*header.Environment, 0, len(deps))
		for _, dep := range deps {
			envs = append(envs, dep.Env)
		}
		h.Env.MergeDependencies(envs)
	}

	subByName := make(map[string]*config.Submodule, len(g.Submodules))
	for _, sub := range g.Submodules {
		subByName[sub.Name] = sub
	}

	emitter := emit.New(g.Config.ClassPrefix, nil, g.Report)
	for _, h := range sorted {
		binding, err := emitter.GenerateHeader(h, subByName[h.Submodule])
		if err != nil {
			return fmt.Errorf("generate %s: %w", h.Path, err)
		}
		h.Binding = binding
	}

	for _, sub := range g.Submodules {
		path := filepath.Join(srcDir, "generated_"+sub.Name+".cpp")
		if err := os.WriteFile(path, []byte(g.renderSubmodule(sub, sorted)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	mainPath := filepath.Join(srcDir, "main.cpp")
	if err := os.WriteFile(mainPath, []byte(g.renderMain()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mainPath, err)
	}

	g.Report.SetDuration(time.Since(start))
	return nil
}

func (g *Generator) collectHeaders(srcDir string) ([]*header.HeaderFile, error) {
	var headers []*header.HeaderFile
	for _, sub := range g.Submodules {
		tmpDir := filepath.Join(srcDir, "tmp", sub.Name)
		if err := os.MkdirAll(tmpDir, 0o755); err != nil {
			return nil, fmt.Errorf("create tmp directory for %s: %w", sub.Name, err)
		}
		for _, path := range sub.HeaderPaths() {
			headers = append(headers, header.New(path, sub.Name))
		}
	}
	return headers, nil
}

// preprocessAll preprocesses and parses every header with a bounded
// worker pool. Any single failure cancels the remaining work and fails
// the run.
func (g *Generator) preprocessAll(ctx context.Context, headers []*header.HeaderFile) error {
	progress, _ := pterm.DefaultProgressbar.
		WithTotal(len(headers)).
		WithWriter(os.Stderr).
		WithTitle("preprocessing headers").
		Start()

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for _, h := range headers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts := header.PreprocessOptions{
				TmpDir:      filepath.Join(g.BuildDir, "src", "tmp", h.Submodule),
				ClassPrefix: g.Config.ClassPrefix,
				DocXMLDir:   g.Config.DocXMLDir,
			}
			if err := h.Preprocess(g.preprocessor, g.parser, opts); err != nil {
				return fmt.Errorf("preprocess %s: %w", h.Path, err)
			}
			g.Report.AddHeader()
			mu.Lock()
			progress.Increment()
			mu.Unlock()
			return nil
		})
	}
	err := eg.Wait()
	if progress != nil {
		_, _ = progress.Stop()
	}
	return err
}

// renderSubmodule assembles one generated_<name>.cpp: the pybind11
// prelude, the bound headers' includes, and the init function the main
// module calls. Headers appear in dependency-sorted order.
func (g *Generator) renderSubmodule(sub *config.Submodule, sorted []*header.HeaderFile) string {
	var b strings.Builder
	b.WriteString("#include <pybind11/pybind11.h>\n")
	b.WriteString("#include <pybind11/stl.h>\n")
	b.WriteString("#include <sstream>\n\n")

	var bindings []string
	for _, h := range sorted {
		if h.Submodule != sub.Name {
			continue
		}
		fmt.Fprintf(&b, "#include %s\n", fmt.Sprintf(g.Config.IncludeFormat, sub.Name, filepath.Base(h.Path)))
		if h.Binding != "" {
			bindings = append(bindings, h.Binding)
		}
	}

	b.WriteString("\nnamespace py = pybind11;\n\n")
	fmt.Fprintf(&b, "void init_submodule_%s(py::module_ &submodule) {\n", sub.Name)
	for _, fragment := range bindings {
		b.WriteString(fragment)
	}
	b.WriteString("}\n")
	return b.String()
}

// renderMain assembles main.cpp: forward declarations for every
// submodule init function and the PYBIND11_MODULE entry point.
func (g *Generator) renderMain() string {
	var b strings.Builder
	b.WriteString("//#define PYBIND11_DETAILED_ERROR_MESSAGES\n")
	b.WriteString("#include <pybind11/pybind11.h>\n\n")
	b.WriteString("namespace py = pybind11;\n\n")

	for _, sub := range g.Submodules {
		fmt.Fprintf(&b, "void init_submodule_%s(py::module_ &);\n", sub.Name)
	}

	fmt.Fprintf(&b, "\nPYBIND11_MODULE(%s, m)\n{\n", g.Config.ModuleName)
	if g.Config.ModuleDoc != "" {
		fmt.Fprintf(&b, "\tm.doc() = %q;\n", g.Config.ModuleDoc)
	}
	for _, sub := range g.Submodules {
		fmt.Fprintf(&b, "\tpy::module_ submodule_%s = m.def_submodule(%q);\n", sub.Name, sub.Name)
		fmt.Fprintf(&b, "\tinit_submodule_%s(submodule_%s);\n", sub.Name, sub.Name)
	}
	b.WriteString("}\n")
	return b.String()
}

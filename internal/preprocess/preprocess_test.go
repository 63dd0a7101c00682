package preprocess

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func writeHeader(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConditionalBlocks(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "cond.h", `
#ifdef ENABLED
int kept;
#else
int dropped;
#endif
#ifndef ENABLED
int alsoDropped;
#endif
`)

	p := New(Options{Defines: map[string]string{"ENABLED": "1"}})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "int kept;") {
		t.Errorf("active branch missing from output:\n%s", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("inactive branch leaked into output:\n%s", out)
	}
}

func TestDocSkipBlockRemoved(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "skip.h", `
class vpPublic {};
#ifndef DOXYGEN_SHOULD_SKIP_THIS
class vpInternal {};
#endif
`)

	p := New(Options{Defines: map[string]string{"DOXYGEN_SHOULD_SKIP_THIS": ""}})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "vpPublic") {
		t.Errorf("public class missing:\n%s", out)
	}
	if strings.Contains(out, "vpInternal") {
		t.Errorf("skip-marked class leaked:\n%s", out)
	}
}

func TestMarkerMacrosBlankedOut(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "marker.h",
		"class VISP_EXPORT vpImage {\n  vp_deprecated void old();\n};\n")

	p := New(Options{Defines: map[string]string{
		"VISP_EXPORT":   "",
		"vp_deprecated": "",
	}})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "VISP_EXPORT") || strings.Contains(out, "vp_deprecated") {
		t.Errorf("marker macros survived:\n%s", out)
	}
	if !strings.Contains(out, "class  vpImage") && !strings.Contains(out, "class vpImage") {
		t.Errorf("class declaration damaged:\n%s", out)
	}
}

func TestUndefinesForceBranches(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "dep.h", `
#define BUILD_DEPRECATED
#ifdef BUILD_DEPRECATED
void legacy();
#endif
`)

	p := New(Options{Undefines: []string{"BUILD_DEPRECATED"}})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	// The #define inside the header must not override the forced
	// undefine.
	if strings.Contains(out, "legacy") {
		t.Errorf("forced-undefined branch leaked:\n%s", out)
	}
}

func TestIncludePassthroughAndResolution(t *testing.T) {
	dir := t.TempDir()
	writeHeader(t, dir, "inner.h", "#define FROM_INNER 1\nint fromInner;\n")
	path := writeHeader(t, dir, "outer.h", `
#include <vector>
#include "inner.h"
#ifdef FROM_INNER
int sawInner;
#endif
`)

	p := New(Options{Passthrough: regexp.MustCompile(`^vector$`)})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "#include <vector>") {
		t.Errorf("passthrough include rewritten:\n%s", out)
	}
	if !strings.Contains(out, "fromInner") {
		t.Errorf("resolved include not inlined:\n%s", out)
	}
	if !strings.Contains(out, "sawInner") {
		t.Errorf("macros from resolved include not visible:\n%s", out)
	}
}

func TestIncludeCycleTerminates(t *testing.T) {
	dir := t.TempDir()
	writeHeader(t, dir, "a.h", "#include \"b.h\"\nint a;\n")
	writeHeader(t, dir, "b.h", "#include \"a.h\"\nint b;\n")

	p := New(Options{Passthrough: regexp.MustCompile(`^$`)})
	out, err := p.Run(filepath.Join(dir, "a.h"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "int a;") || !strings.Contains(out, "int b;") {
		t.Errorf("cycle dropped content:\n%s", out)
	}
}

func TestElifChain(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "chain.h", `
#if VERSION >= 3
int three;
#elif VERSION >= 2
int two;
#else
int one;
#endif
`)

	p := New(Options{Defines: map[string]string{"VERSION": "2"}})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "int two;") {
		t.Errorf("matching elif branch missing:\n%s", out)
	}
	if strings.Contains(out, "int three;") || strings.Contains(out, "int one;") {
		t.Errorf("wrong branch emitted:\n%s", out)
	}
}

func TestDefinedOperator(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "def.h", `
#if defined(FEATURE) && !defined(MISSING)
int enabled;
#endif
`)

	p := New(Options{Defines: map[string]string{"FEATURE": ""}})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "int enabled;") {
		t.Errorf("defined() expression not honored:\n%s", out)
	}
}

func TestUnterminatedConditionalFails(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "bad.h", "#ifdef X\nint x;\n")

	p := New(Options{})
	if _, err := p.Run(path); err == nil {
		t.Fatal("expected error for unterminated conditional")
	}
}

func TestLineContinuations(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "cont.h", "#define LONG \\\n value\n#ifdef LONG\nint ok;\n#endif\n")

	p := New(Options{})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "int ok;") {
		t.Errorf("continued define not recorded:\n%s", out)
	}
}

func TestFunctionLikeMacroNotExpanded(t *testing.T) {
	dir := t.TempDir()
	path := writeHeader(t, dir, "fn.h", `#define MAKE(x) x##Impl
int MAKE(foo);
#ifdef MAKE
int defined_seen;
#endif
#undef MAKE
#ifdef MAKE
int still_defined;
#endif
`)

	p := New(Options{})
	out, err := p.Run(path)
	if err != nil {
		t.Fatal(err)
	}
	// Function-like macros count as defined but are left unexpanded.
	if !strings.Contains(out, "MAKE(foo)") {
		t.Errorf("function-like macro was expanded:\n%s", out)
	}
	if !strings.Contains(out, "defined_seen") {
		t.Errorf("function-like macro not visible to ifdef:\n%s", out)
	}
	if strings.Contains(out, "still_defined") {
		t.Errorf("function-like macro survived #undef:\n%s", out)
	}
}

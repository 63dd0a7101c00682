package generate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindgen/internal/config"
	"bindgen/internal/report"
)

const arrayHeader = `
#ifndef VP_ARRAY2D_H
#define VP_ARRAY2D_H

class VISP_EXPORT vpArray2D
{
public:
  vpArray2D();
  unsigned int getRows() const;
  unsigned int getCols() const;
};

#endif
`

const vectorHeader = `
#ifndef VP_COLVECTOR_H
#define VP_COLVECTOR_H

#include <visp3/core/vpArray2D.h>

class VISP_EXPORT vpColVector : public vpArray2D
{
public:
  vpColVector();
  double sum() const;
  vpColVector &operator+=(const vpColVector &v);
};

#endif
`

const generatorToml = `
module_name = "_visp"
module_doc = "ViSP Python bindings"
class_prefix = "vp"
passthrough_includes = "^visp3/.*"
include_format = "<visp3/%s/%s>"

[defines]
VISP_EXPORT = ""
`

func setup(t *testing.T) (*config.Config, []*config.Submodule, string) {
	t.Helper()
	root := t.TempDir()

	hdrDir := filepath.Join(root, "headers", "core")
	require.NoError(t, os.MkdirAll(hdrDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(hdrDir, "vpArray2D.h"), []byte(arrayHeader), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(hdrDir, "vpColVector.h"), []byte(vectorHeader), 0644))

	cfgDir := filepath.Join(root, "config")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "generator.toml"), []byte(generatorToml), 0644))
	// Headers listed dependency-last on purpose; ordering is the
	// sorter's job, not the configuration author's.
	coreToml := "header_dir = \"" + strings.ReplaceAll(hdrDir, "\\", "\\\\") + "\"\nheaders = [\"vpColVector.h\", \"vpArray2D.h\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "core.toml"), []byte(coreToml), 0644))

	cfg, subs, err := config.Load(cfgDir)
	require.NoError(t, err)
	return cfg, subs, filepath.Join(root, "build")
}

func TestRunEndToEnd(t *testing.T) {
	cfg, subs, buildDir := setup(t)

	rep := report.New()
	gen := New(cfg, subs, buildDir, rep)
	require.NoError(t, gen.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(buildDir, "src", "generated_core.cpp"))
	require.NoError(t, err)
	out := string(data)

	// Includes follow dependency order: the base class header first.
	arrayIdx := strings.Index(out, "#include <visp3/core/vpArray2D.h>")
	vectorIdx := strings.Index(out, "#include <visp3/core/vpColVector.h>")
	require.GreaterOrEqual(t, arrayIdx, 0)
	require.GreaterOrEqual(t, vectorIdx, 0)
	assert.Less(t, arrayIdx, vectorIdx)

	assert.Contains(t, out, "void init_submodule_core(py::module_ &submodule) {")
	assert.Contains(t, out, `py::class_ pyArray2D = py::class_<vpArray2D>(submodule, "Array2D");`)
	assert.Contains(t, out, `py::class_ pyColVector = py::class_<vpColVector, vpArray2D>(submodule, "ColVector");`)
	assert.Contains(t, out, `pyColVector.def("__iadd__"`)

	mainData, err := os.ReadFile(filepath.Join(buildDir, "src", "main.cpp"))
	require.NoError(t, err)
	mainOut := string(mainData)
	assert.True(t, strings.HasPrefix(mainOut, "//#define PYBIND11_DETAILED_ERROR_MESSAGES\n"))
	assert.Contains(t, mainOut, "PYBIND11_MODULE(_visp, m)")
	assert.Contains(t, mainOut, `m.doc() = "ViSP Python bindings";`)
	assert.Contains(t, mainOut, "void init_submodule_core(py::module_ &);")
	assert.Contains(t, mainOut, `py::module_ submodule_core = m.def_submodule("core");`)
	assert.Contains(t, mainOut, "init_submodule_core(submodule_core);")

	stats := rep.Stats()
	assert.Equal(t, 2, stats.Headers)
	assert.Equal(t, 2, stats.Classes)
	assert.Greater(t, stats.Duration, time.Duration(0))

	// Intermediate preprocessed headers land in the submodule tmp dir.
	_, err = os.Stat(filepath.Join(buildDir, "src", "tmp", "core", "vpArray2D.h"))
	assert.NoError(t, err)
}

func TestRunFailsOnMissingHeader(t *testing.T) {
	cfg, subs, buildDir := setup(t)
	subs[0].Headers = append(subs[0].Headers, "vpMissing.h")

	gen := New(cfg, subs, buildDir, report.New())
	err := gen.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vpMissing.h")
}

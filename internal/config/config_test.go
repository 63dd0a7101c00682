package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigDir(t *testing.T, generator string, submodules map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generator.toml"), []byte(generator), 0644))
	for name, content := range submodules {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	generator := `
module_name = "_visp"
module_doc = "Python bindings"
class_prefix = "vp"
include_dirs = ["/usr/include"]
passthrough_includes = "^visp3/.*"
include_format = "<visp3/%s/%s>"

[defines]
VISP_EXPORT = ""
vp_deprecated = ""
`
	core := `
header_dir = "headers/core"
headers = ["vpImage.h", "vpArray2D.h"]
ignored_classes = ["vpException*"]

[classes.vpImage]
use_buffer_protocol = true

[[classes.vpImage.specializations]]
python_name = "ImageGray"
arguments = ["unsigned char"]

[classes.vpTracker]
is_virtual = true
ignored_methods = ["init"]
`
	dir := writeConfigDir(t, generator, map[string]string{"core": core})

	cfg, subs, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "_visp", cfg.ModuleName)
	assert.Equal(t, "vp", cfg.ClassPrefix)
	assert.Equal(t, "", cfg.Defines["VISP_EXPORT"])
	require.NotNil(t, cfg.Passthrough())
	assert.True(t, cfg.Passthrough().MatchString("visp3/core/vpImage.h"))

	require.Len(t, subs, 1)
	sub := subs[0]
	assert.Equal(t, "core", sub.Name)
	assert.Equal(t, []string{
		filepath.Join("headers/core", "vpImage.h"),
		filepath.Join("headers/core", "vpArray2D.h"),
	}, sub.HeaderPaths())

	assert.True(t, sub.ClassIgnored("vpExceptionIO"))
	assert.False(t, sub.ClassIgnored("vpImage"))

	img := sub.ClassConfig("vpImage")
	assert.True(t, img.UseBufferProtocol)
	require.Len(t, img.Specializations, 1)
	assert.Equal(t, "ImageGray", img.Specializations[0].PythonName)

	tracker := sub.ClassConfig("vpTracker")
	assert.True(t, tracker.IsVirtual)
	assert.True(t, tracker.MethodIgnored("init"))
	assert.False(t, tracker.MethodIgnored("track"))

	// Unconfigured classes resolve to a zero-value config.
	unknown := sub.ClassConfig("vpUnknown")
	assert.False(t, unknown.IsVirtual)
	assert.False(t, unknown.MethodIgnored("anything"))
}

func TestLoadDefaults(t *testing.T) {
	dir := writeConfigDir(t, "", map[string]string{
		"io": "headers = [\"vpIo.h\"]\n",
	})

	cfg, subs, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "_bindings", cfg.ModuleName)
	assert.Equal(t, "<%s/%s>", cfg.IncludeFormat)
	assert.True(t, cfg.Passthrough().MatchString("anything.h"))
	require.Len(t, subs, 1)
}

func TestSubmodulesSortedByName(t *testing.T) {
	dir := writeConfigDir(t, "", map[string]string{
		"vision": "headers = [\"a.h\"]\n",
		"core":   "headers = [\"b.h\"]\n",
		"io":     "headers = [\"c.h\"]\n",
	})

	_, subs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "core", subs[0].Name)
	assert.Equal(t, "io", subs[1].Name)
	assert.Equal(t, "vision", subs[2].Name)
}

func TestLoadErrors(t *testing.T) {
	t.Run("no submodules", func(t *testing.T) {
		dir := writeConfigDir(t, "", nil)
		_, _, err := Load(dir)
		assert.Error(t, err)
	})

	t.Run("empty header list", func(t *testing.T) {
		dir := writeConfigDir(t, "", map[string]string{"core": "headers = []\n"})
		_, _, err := Load(dir)
		assert.ErrorContains(t, err, "no headers")
	})

	t.Run("bad include format", func(t *testing.T) {
		dir := writeConfigDir(t, "include_format = \"<%s>\"\n", map[string]string{"core": "headers = [\"a.h\"]\n"})
		_, _, err := Load(dir)
		assert.ErrorContains(t, err, "include_format")
	})

	t.Run("bad passthrough regexp", func(t *testing.T) {
		dir := writeConfigDir(t, "passthrough_includes = \"[\"\n", map[string]string{"core": "headers = [\"a.h\"]\n"})
		_, _, err := Load(dir)
		assert.ErrorContains(t, err, "passthrough_includes")
	})

	t.Run("specialization without python name", func(t *testing.T) {
		sub := `
headers = ["a.h"]
[[classes.vpImage.specializations]]
arguments = ["double"]
`
		dir := writeConfigDir(t, "", map[string]string{"core": sub})
		_, _, err := Load(dir)
		assert.ErrorContains(t, err, "python_name")
	})

	t.Run("bad ignore glob", func(t *testing.T) {
		dir := writeConfigDir(t, "", map[string]string{"core": "headers = [\"a.h\"]\nignored_classes = [\"[\"]\n"})
		_, _, err := Load(dir)
		assert.Error(t, err)
	})
}

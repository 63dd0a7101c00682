// Package config loads the generator configuration directory: one
// generator.toml with shared settings and one <name>.toml per
// submodule. Everything is decoded into tagged structs and validated
// at load time, so the emitter never probes configuration by string
// key at use time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

const generatorFile = "generator.toml"

// Config carries the settings shared by all submodules.
type Config struct {
	ModuleName  string `toml:"module_name"`
	ModuleDoc   string `toml:"module_doc"`
	ClassPrefix string `toml:"class_prefix"`

	IncludeDirs         []string          `toml:"include_dirs"`
	Defines             map[string]string `toml:"defines"`
	Undefines           []string          `toml:"undefines"`
	PassthroughIncludes string            `toml:"passthrough_includes"`

	// IncludeFormat renders the generated #include for a bound header,
	// with two placeholders: submodule name and header file name.
	IncludeFormat string `toml:"include_format"`

	// DocXMLDir points at the doxygen XML output used for
	// documentation lookup. Empty disables the lookup.
	DocXMLDir string `toml:"doc_xml_dir"`

	passthrough *regexp.Regexp
}

// Passthrough returns the compiled include-passthrough pattern.
// Only valid after Validate.
func (c *Config) Passthrough() *regexp.Regexp {
	return c.passthrough
}

func (c *Config) Validate() error {
	if c.ModuleName == "" {
		c.ModuleName = "_bindings"
	}
	if c.IncludeFormat == "" {
		c.IncludeFormat = "<%s/%s>"
	}
	if strings.Count(c.IncludeFormat, "%s") != 2 {
		return fmt.Errorf("include_format %q must contain exactly two %%s placeholders", c.IncludeFormat)
	}
	if c.PassthroughIncludes == "" {
		// By default nothing is inlined; headers are parsed standalone.
		c.PassthroughIncludes = ".*"
	}
	re, err := regexp.Compile(c.PassthroughIncludes)
	if err != nil {
		return fmt.Errorf("passthrough_includes: %w", err)
	}
	c.passthrough = re
	return nil
}

// Submodule groups headers that share one generated output file and
// one per-class configuration set.
type Submodule struct {
	Name string `toml:"-"`

	HeaderDir      string                 `toml:"header_dir"`
	Headers        []string               `toml:"headers"`
	IgnoredClasses []string               `toml:"ignored_classes"`
	Classes        map[string]ClassConfig `toml:"classes"`

	ignoreGlobs []glob.Glob
}

func (s *Submodule) Validate() error {
	if len(s.Headers) == 0 {
		return fmt.Errorf("submodule %s: no headers listed", s.Name)
	}
	s.ignoreGlobs = s.ignoreGlobs[:0]
	for _, pattern := range s.IgnoredClasses {
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("submodule %s: ignored_classes pattern %q: %w", s.Name, pattern, err)
		}
		s.ignoreGlobs = append(s.ignoreGlobs, g)
	}
	for name, cc := range s.Classes {
		for i, spec := range cc.Specializations {
			if spec.PythonName == "" {
				return fmt.Errorf("submodule %s: class %s specialization %d: python_name missing", s.Name, name, i)
			}
			if len(spec.Arguments) == 0 {
				return fmt.Errorf("submodule %s: class %s specialization %q: arguments missing", s.Name, name, spec.PythonName)
			}
		}
		for mname, mc := range cc.Methods {
			for i, args := range mc.Specializations {
				if len(args) == 0 {
					return fmt.Errorf("submodule %s: class %s method %s specialization %d: empty argument list", s.Name, name, mname, i)
				}
			}
		}
	}
	return nil
}

// HeaderPaths resolves the submodule's header list against HeaderDir.
func (s *Submodule) HeaderPaths() []string {
	paths := make([]string, 0, len(s.Headers))
	for _, h := range s.Headers {
		paths = append(paths, filepath.Join(s.HeaderDir, h))
	}
	return paths
}

func (s *Submodule) ClassIgnored(name string) bool {
	for _, g := range s.ignoreGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// ClassConfig returns the per-class configuration, or a zero value with
// all defaults when the class is not configured.
func (s *Submodule) ClassConfig(name string) ClassConfig {
	return s.Classes[name]
}

type ClassConfig struct {
	// IsVirtual marks a class as non-instantiable even when it has no
	// pure-virtual method of its own (it may leave base-class pure
	// virtuals unimplemented).
	IsVirtual          bool             `toml:"is_virtual"`
	UseBufferProtocol  bool             `toml:"use_buffer_protocol"`
	IgnoreRepr         bool             `toml:"ignore_repr"`
	AdditionalBindings string           `toml:"additional_bindings"`
	IgnoredMethods     []string         `toml:"ignored_methods"`
	Specializations    []Specialization `toml:"specializations"`

	Methods map[string]MethodConfig `toml:"methods"`
}

func (c ClassConfig) MethodIgnored(name string) bool {
	for _, m := range c.IgnoredMethods {
		if m == name {
			return true
		}
	}
	return c.Methods[name].Ignore
}

func (c ClassConfig) MethodConfig(name string) MethodConfig {
	return c.Methods[name]
}

// Specialization declares one concrete instantiation of a templated
// class, with the template arguments in declaration order.
type Specialization struct {
	PythonName string   `toml:"python_name"`
	Arguments  []string `toml:"arguments"`
}

type MethodConfig struct {
	Ignore bool `toml:"ignore"`
	// Specializations expands a templated method once per argument
	// combination, in the method's template parameter order.
	Specializations [][]string `toml:"specializations"`
}

// Load reads the configuration directory: generator.toml plus every
// other *.toml as a submodule (named after the file stem), sorted by
// name for deterministic processing order.
func Load(dir string) (*Config, []*Submodule, error) {
	cfg := &Config{}
	generatorPath := filepath.Join(dir, generatorFile)
	if _, err := toml.DecodeFile(generatorPath, cfg); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", generatorPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", generatorPath, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read config directory: %w", err)
	}

	var submodules []*Submodule
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".toml") || name == generatorFile {
			continue
		}
		sub := &Submodule{Name: strings.TrimSuffix(name, ".toml")}
		path := filepath.Join(dir, name)
		if _, err := toml.DecodeFile(path, sub); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		if err := sub.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		submodules = append(submodules, sub)
	}
	if len(submodules) == 0 {
		return nil, nil, fmt.Errorf("no submodule configuration found in %s", dir)
	}
	sort.Slice(submodules, func(i, j int) bool { return submodules[i].Name < submodules[j].Name })

	return cfg, submodules, nil
}

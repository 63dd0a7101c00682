// Package preprocess strips conditionally-excluded code from C++
// headers before parsing. It implements the small, fixed subset of the
// C preprocessor the generator relies on: a configured macro table,
// conditional blocks evaluated against that table, and #include
// resolution with a passthrough rule for includes that must stay
// unresolved in the output.
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

type Options struct {
	// Defines maps object-like macros to their replacement text.
	// Deprecation and export markers map to the empty string.
	Defines map[string]string
	// Undefines lists macros that are always treated as undefined,
	// even if a resolved include defines them.
	Undefines []string
	// Passthrough decides which #include targets are kept verbatim in
	// the output instead of being resolved and inlined.
	Passthrough *regexp.Regexp
	// IncludeDirs are the resolution roots for non-passthrough
	// includes, searched after the including file's own directory.
	IncludeDirs []string
}

type Preprocessor struct {
	defines     map[string]string
	undefined   map[string]struct{}
	passthrough *regexp.Regexp
	includeDirs []string

	// expansion regexp cache, shared across concurrent Run calls
	mu         sync.Mutex
	expansions map[string]*regexp.Regexp
}

func New(opts Options) *Preprocessor {
	p := &Preprocessor{
		defines:     make(map[string]string, len(opts.Defines)),
		undefined:   make(map[string]struct{}, len(opts.Undefines)),
		passthrough: opts.Passthrough,
		includeDirs: opts.IncludeDirs,
		expansions:  make(map[string]*regexp.Regexp),
	}
	for k, v := range opts.Defines {
		p.defines[k] = v
	}
	for _, u := range opts.Undefines {
		p.undefined[u] = struct{}{}
	}
	return p
}

// Run preprocesses the header at path and returns the resulting text.
// The configured macro table is cloned per call: #defines picked up
// from one header's resolved includes never leak into another header,
// and concurrent Run calls share no mutable state.
func (p *Preprocessor) Run(path string) (string, error) {
	s := &runState{
		p:         p,
		defines:   make(map[string]string, len(p.defines)),
		undefined: p.undefined,
		visited:   make(map[string]struct{}),
		funcLike:  make(map[string]struct{}),
	}
	for k, v := range p.defines {
		s.defines[k] = v
	}

	var out strings.Builder
	if err := s.processFile(path, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// RunToFile preprocesses the header and additionally writes the result
// to tmpDir under the header's base name. Filenames derive from the
// header name, so concurrent tasks in one submodule temp directory
// cannot collide.
func (p *Preprocessor) RunToFile(path, tmpDir string) (string, error) {
	content, err := p.Run(path)
	if err != nil {
		return "", err
	}
	tmpPath := filepath.Join(tmpDir, filepath.Base(path))
	if err := os.WriteFile(tmpPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write intermediate %s: %w", tmpPath, err)
	}
	return content, nil
}

type condFrame struct {
	parentActive bool
	active       bool
	taken        bool // some branch of this if-chain has been emitted
	inElse       bool
}

type runState struct {
	p         *Preprocessor
	defines   map[string]string
	undefined map[string]struct{}
	visited   map[string]struct{}

	// funcLike holds function-like macro names: visible to #ifdef and
	// defined(), but kept out of the expansion table so occurrences of
	// the bare name are never replaced.
	funcLike map[string]struct{}
}

func (s *runState) processFile(path string, out *strings.Builder) error {
	abs, err := filepath.Abs(path)
	if err == nil {
		if _, seen := s.visited[abs]; seen {
			return nil // include cycle or duplicate include
		}
		s.visited[abs] = struct{}{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	lines := joinContinuations(strings.Split(string(data), "\n"))
	var stack []condFrame
	active := func() bool {
		for _, f := range stack {
			if !f.active || !f.parentActive {
				return false
			}
		}
		return true
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active() {
				out.WriteString(s.expand(line))
				out.WriteByte('\n')
			}
			continue
		}

		directive, rest := splitDirective(trimmed)
		switch directive {
		case "if":
			cond := active() && s.evalExpr(rest) != 0
			stack = append(stack, condFrame{parentActive: active(), active: cond, taken: cond})
		case "ifdef":
			cond := active() && s.isDefined(firstWord(rest))
			stack = append(stack, condFrame{parentActive: active(), active: cond, taken: cond})
		case "ifndef":
			cond := active() && !s.isDefined(firstWord(rest))
			stack = append(stack, condFrame{parentActive: active(), active: cond, taken: cond})
		case "elif":
			if len(stack) == 0 {
				return fmt.Errorf("%s: #elif without matching #if", path)
			}
			f := &stack[len(stack)-1]
			if f.inElse {
				return fmt.Errorf("%s: #elif after #else", path)
			}
			f.active = f.parentActive && !f.taken && s.evalExpr(rest) != 0
			f.taken = f.taken || f.active
		case "else":
			if len(stack) == 0 {
				return fmt.Errorf("%s: #else without matching #if", path)
			}
			f := &stack[len(stack)-1]
			f.active = f.parentActive && !f.taken
			f.taken = true
			f.inElse = true
		case "endif":
			if len(stack) == 0 {
				return fmt.Errorf("%s: #endif without matching #if", path)
			}
			stack = stack[:len(stack)-1]
		case "define":
			if active() {
				s.define(rest)
			}
		case "undef":
			if active() {
				delete(s.defines, firstWord(rest))
				delete(s.funcLike, firstWord(rest))
			}
		case "include":
			if !active() {
				continue
			}
			if err := s.include(path, line, rest, out); err != nil {
				return err
			}
		default:
			// #pragma and friends survive; the parser skips them.
			if active() {
				out.WriteString(line)
				out.WriteByte('\n')
			}
		}
	}

	if len(stack) != 0 {
		return fmt.Errorf("%s: unterminated conditional block", path)
	}
	return nil
}

// define records a macro. Object-like macros land in the expansion
// table; function-like macros are recorded by name only, so isDefined
// sees them but expand never touches occurrences of the bare name.
func (s *runState) define(rest string) {
	name, value := firstWord(rest), ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		value = strings.TrimSpace(rest[i+1:])
	}
	isFuncLike := false
	if i := strings.IndexByte(name, '('); i >= 0 {
		name, isFuncLike = name[:i], true
	}
	if name == "" {
		return
	}
	if _, forced := s.undefined[name]; forced {
		return
	}
	if isFuncLike {
		delete(s.defines, name)
		s.funcLike[name] = struct{}{}
		return
	}
	delete(s.funcLike, name)
	s.defines[name] = value
}

func (s *runState) include(fromPath, rawLine, rest string, out *strings.Builder) error {
	target, ok := includeTarget(rest)
	if !ok {
		out.WriteString(rawLine)
		out.WriteByte('\n')
		return nil
	}
	if s.p.passthrough != nil && s.p.passthrough.MatchString(target) {
		out.WriteString(rawLine)
		out.WriteByte('\n')
		return nil
	}
	dirs := append([]string{filepath.Dir(fromPath)}, s.p.includeDirs...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(target))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return s.processFile(candidate, out)
		}
	}
	// Unfound includes pass through unresolved.
	out.WriteString(rawLine)
	out.WriteByte('\n')
	return nil
}

func (s *runState) isDefined(name string) bool {
	if _, forced := s.undefined[name]; forced {
		return false
	}
	if _, ok := s.funcLike[name]; ok {
		return true
	}
	_, ok := s.defines[name]
	return ok
}

// expand substitutes object-like macros that have replacement text
// recorded (including the empty replacement used to blank out
// deprecation and export markers).
func (s *runState) expand(line string) string {
	for name, value := range s.defines {
		if !strings.Contains(line, name) {
			continue
		}
		line = s.p.expansion(name).ReplaceAllString(line, value)
	}
	return strings.TrimRight(line, " \t")
}

func (p *Preprocessor) expansion(name string) *regexp.Regexp {
	p.mu.Lock()
	defer p.mu.Unlock()
	re, ok := p.expansions[name]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		p.expansions[name] = re
	}
	return re
}

func splitDirective(line string) (string, string) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}
	return line, ""
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

func includeTarget(rest string) (string, bool) {
	rest = strings.TrimSpace(rest)
	switch {
	case strings.HasPrefix(rest, "<"):
		if i := strings.IndexByte(rest, '>'); i > 0 {
			return rest[1:i], true
		}
	case strings.HasPrefix(rest, `"`):
		if i := strings.IndexByte(rest[1:], '"'); i >= 0 {
			return rest[1 : i+1], true
		}
	}
	return "", false
}

func joinContinuations(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		for strings.HasSuffix(line, `\`) && i+1 < len(lines) {
			line = strings.TrimSuffix(line, `\`) + " " + strings.TrimSpace(lines[i+1])
			i++
		}
		out = append(out, line)
	}
	return out
}

// Package report accumulates the per-item diagnostics of a generation
// run: rejected methods, skipped classes, and overall counts. Per-item
// issues never interrupt the pipeline; they are collected here and
// surfaced as a summary after the run.
package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type Reason string

const (
	ReasonUserIgnored      Reason = "user-ignored"
	ReasonNonPublic        Reason = "non-public"
	ReasonDestructor       Reason = "destructor"
	ReasonDeleted          Reason = "deleted"
	ReasonUnsupportedParam Reason = "unsupported-parameter"
	ReasonOperatorArity    Reason = "operator-arity"
	ReasonNoSpecialization Reason = "no-specialization"
	ReasonNotHandled       Reason = "not-handled"
)

// Trivial reasons are expected rejections (explicit configuration,
// destructors) that need no operator attention. Everything else is
// worth a diagnostic line.
func (r Reason) Trivial() bool {
	switch r {
	case ReasonUserIgnored, ReasonDestructor, ReasonDeleted:
		return true
	}
	return false
}

type RejectedMethod struct {
	Class     string
	Signature string
	Reason    Reason
}

type SkippedClass struct {
	Name   string
	Reason Reason
}

type RunStats struct {
	Headers         int
	Classes         int
	Methods         int
	RejectedMethods int
	SkippedClasses  int
	Duration        time.Duration
}

// Report is safe for concurrent use; the emitter runs sequentially
// today but rejection recording is shared with the parallel
// preprocessing phase's diagnostics.
type Report struct {
	mu      sync.Mutex
	methods []RejectedMethod
	classes []SkippedClass
	stats   RunStats
}

func New() *Report {
	return &Report{}
}

func (r *Report) AddRejectedMethod(m RejectedMethod) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, m)
	r.stats.RejectedMethods++
}

func (r *Report) AddSkippedClass(c SkippedClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, c)
	r.stats.SkippedClasses++
}

func (r *Report) AddHeader()          { r.bump(func(s *RunStats) { s.Headers++ }) }
func (r *Report) AddGeneratedClass()  { r.bump(func(s *RunStats) { s.Classes++ }) }
func (r *Report) AddGeneratedMethod() { r.bump(func(s *RunStats) { s.Methods++ }) }

func (r *Report) SetDuration(d time.Duration) {
	r.bump(func(s *RunStats) { s.Duration = d })
}

func (r *Report) bump(f func(*RunStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(&r.stats)
}

func (r *Report) Stats() RunStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Report) RejectedMethods() []RejectedMethod {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RejectedMethod(nil), r.methods...)
}

func (r *Report) SkippedClasses() []SkippedClass {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SkippedClass(nil), r.classes...)
}

// Summary renders the run outcome with rejection counts per reason and
// the non-trivial rejections listed individually.
func (r *Report) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "headers: %d, classes bound: %d, methods bound: %d\n",
		r.stats.Headers, r.stats.Classes, r.stats.Methods)

	if len(r.classes) > 0 {
		fmt.Fprintf(&b, "skipped classes: %d\n", len(r.classes))
		for _, c := range r.classes {
			fmt.Fprintf(&b, "  %s (%s)\n", c.Name, c.Reason)
		}
	}

	if len(r.methods) > 0 {
		byReason := make(map[Reason]int)
		for _, m := range r.methods {
			byReason[m.Reason]++
		}
		reasons := make([]string, 0, len(byReason))
		for reason := range byReason {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		fmt.Fprintf(&b, "rejected methods: %d\n", len(r.methods))
		for _, reason := range reasons {
			fmt.Fprintf(&b, "  %s: %d\n", reason, byReason[Reason(reason)])
		}
		for _, m := range r.methods {
			if !m.Reason.Trivial() {
				fmt.Fprintf(&b, "  %s: %s (%s)\n", m.Class, m.Signature, m.Reason)
			}
		}
	}
	return b.String()
}

// Package selftest runs named live checks against the skills and reports them
// with one progress marker per check followed by a numbered summary.
package selftest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/presenter"
)

// Outcome is the progress marker printed for a check.
type Outcome string

const (
	Pass  Outcome = "."
	Fail  Outcome = "F"
	Error Outcome = "!"
)

// AssertionError marks a check whose expectations were not met, as opposed
// to one that could not run.
type AssertionError struct {
	msg string
}

func (e *AssertionError) Error() string { return e.msg }

// Failf returns an AssertionError.
func Failf(format string, args ...any) error {
	return &AssertionError{msg: fmt.Sprintf(format, args...)}
}

// Check is a single named check. Run returns a short value describing what
// it observed.
type Check struct {
	Name  string
	Group string
	Run   func(ctx context.Context) (string, error)
}

// Result is the outcome of one check.
type Result struct {
	Name     string  `json:"name"`
	Group    string  `json:"group"`
	Outcome  Outcome `json:"outcome"`
	Returned string  `json:"returned"`
}

// Passed reports whether the check passed.
func (r Result) Passed() bool { return r.Outcome == Pass }

// Runner executes checks sequentially.
type Runner struct {
	p presenter.Presenter
}

// NewRunner returns a Runner that reports through p.
func NewRunner(p presenter.Presenter) *Runner {
	return &Runner{p: p}
}

// Run executes every check in order and prints the summary.
func (r *Runner) Run(ctx context.Context, checks []Check) []Result {
	r.p.Text("Running checks\n")

	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		result := runCheck(ctx, check)
		results = append(results, result)
		r.p.Marker(string(result.Outcome))
	}
	r.p.Text("  Done!\n")

	r.p.Separator()
	r.p.Text("  Results")
	r.p.Separator()
	for i, result := range results {
		status := "Passed"
		if !result.Passed() {
			status = "Failed"
		}
		r.p.Text(fmt.Sprintf("\n%d. %s\nResult: %s\nReturned: %s", i, result.Name, status, result.Returned))
	}
	r.p.Text("\nChecks complete!")

	return results
}

func runCheck(ctx context.Context, check Check) (result Result) {
	result = Result{Name: check.Name, Group: check.Group}
	log := logger.G(ctx).WithField("check", check.Name)

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("check panicked")
			result.Outcome = Error
			result.Returned = fmt.Sprintf("panic: %v", rec)
		}
	}()

	returned, err := check.Run(ctx)
	var assertion *AssertionError
	switch {
	case err == nil:
		result.Outcome = Pass
		result.Returned = returned
	case errors.As(err, &assertion):
		log.WithError(err).Debug("check assertion failed")
		result.Outcome = Fail
		result.Returned = err.Error()
	default:
		log.WithError(err).Debug("check errored")
		result.Outcome = Error
		result.Returned = err.Error()
	}
	return result
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed() {
			return false
		}
	}
	return true
}

// Filter keeps the checks whose group is listed in groups. An empty groups
// list keeps everything; an unknown group is an error.
func Filter(checks []Check, groups []string) ([]Check, error) {
	if len(groups) == 0 {
		return checks, nil
	}

	known := map[string]bool{}
	for _, check := range checks {
		known[check.Group] = true
	}

	wanted := map[string]bool{}
	for _, group := range groups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		if !known[group] {
			names := make([]string, 0, len(known))
			for name := range known {
				names = append(names, name)
			}
			sort.Strings(names)
			return nil, errors.Errorf("unknown check group %q (available: %s)", group, strings.Join(names, ", "))
		}
		wanted[group] = true
	}

	filtered := make([]Check, 0, len(checks))
	for _, check := range checks {
		if wanted[check.Group] {
			filtered = append(filtered, check)
		}
	}
	return filtered, nil
}

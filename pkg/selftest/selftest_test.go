package selftest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillz/pkg/presenter"
)

func newRunner() (*Runner, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewRunner(presenter.NewWithOptions(&buf, &buf, presenter.ColorNever)), &buf
}

func fakeChecks() []Check {
	return []Check{
		{Name: "passes", Group: "a", Run: func(context.Context) (string, error) { return "value", nil }},
		{Name: "asserts", Group: "b", Run: func(context.Context) (string, error) { return "", Failf("expected %d", 1) }},
		{Name: "errors", Group: "b", Run: func(context.Context) (string, error) { return "", errors.New("boom") }},
		{Name: "panics", Group: "c", Run: func(context.Context) (string, error) { panic("oops") }},
	}
}

func TestRunnerOutcomes(t *testing.T) {
	runner, buf := newRunner()
	results := runner.Run(context.Background(), fakeChecks())

	require.Len(t, results, 4)
	assert.Equal(t, Pass, results[0].Outcome)
	assert.Equal(t, "value", results[0].Returned)
	assert.Equal(t, Fail, results[1].Outcome)
	assert.Equal(t, "expected 1", results[1].Returned)
	assert.Equal(t, Error, results[2].Outcome)
	assert.Equal(t, "boom", results[2].Returned)
	assert.Equal(t, Error, results[3].Outcome)
	assert.Contains(t, results[3].Returned, "oops")

	out := buf.String()
	assert.Contains(t, out, ".F!!  Done!")
	assert.Contains(t, out, "0. passes\nResult: Passed\nReturned: value")
	assert.Contains(t, out, "1. asserts\nResult: Failed\nReturned: expected 1")
	assert.Contains(t, out, "3. panics\nResult: Failed")
	assert.True(t, strings.Index(out, "Results") > strings.Index(out, "Done!"))
}

func TestAllPassed(t *testing.T) {
	assert.True(t, AllPassed(nil))
	assert.True(t, AllPassed([]Result{{Outcome: Pass}, {Outcome: Pass}}))
	assert.False(t, AllPassed([]Result{{Outcome: Pass}, {Outcome: Fail}}))
	assert.False(t, AllPassed([]Result{{Outcome: Error}}))
}

func TestWrappedAssertionIsFailure(t *testing.T) {
	result := runCheck(context.Background(), Check{Name: "wrapped", Run: func(context.Context) (string, error) {
		return "", errors.Wrap(Failf("inner"), "outer")
	}})
	assert.Equal(t, Fail, result.Outcome)
}

func TestFilter(t *testing.T) {
	checks := fakeChecks()

	all, err := Filter(checks, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	onlyB, err := Filter(checks, []string{"b"})
	require.NoError(t, err)
	require.Len(t, onlyB, 2)
	assert.Equal(t, "asserts", onlyB[0].Name)
	assert.Equal(t, "errors", onlyB[1].Name)

	mixed, err := Filter(checks, []string{" a ", "c", ""})
	require.NoError(t, err)
	assert.Len(t, mixed, 2)

	_, err = Filter(checks, []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: a, b, c")
}

func TestDefaultChecksGroups(t *testing.T) {
	checks := DefaultChecks(nil)
	groups := map[string]int{}
	for _, check := range checks {
		groups[check.Group]++
		assert.NotEmpty(t, check.Name)
		assert.NotNil(t, check.Run)
	}
	assert.Equal(t, 3, groups[GroupReddit])
	assert.Equal(t, 2, groups[GroupWeb])
	assert.Equal(t, 1, groups[GroupDir])
}

func TestDirectoryCheckPasses(t *testing.T) {
	returned, err := checkDirectory(context.Background())
	require.NoError(t, err)
	assert.Contains(t, returned, "file1.txt")
	assert.Contains(t, returned, "file2.txt")
}

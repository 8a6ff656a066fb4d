package smoke

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Check is one end-to-end assertion against the API.
type Check struct {
	Name string
	Run  func(ctx context.Context, f *Fixture) error
}

// Suite groups the checks of one API surface. Checks run in order.
type Suite struct {
	Name   string
	Checks []Check
}

// SkipError marks a check as skipped rather than failed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skipf returns an error that makes the runner record a skip.
func Skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// IsSkip reports whether err asks for a skip.
func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}

// ErrUnknownSuite is returned by Select for names that match no suite.
var ErrUnknownSuite = errors.New("unknown suite")

// Suites returns every built-in suite in run order.
func Suites() []Suite {
	return []Suite{HealthSuite(), AuthSuite(), UserSuite(), APIKeySuite(), GroupSuite(), InvitationSuite()}
}

// Select returns the named suites in the order given. No names selects all.
func Select(names ...string) ([]Suite, error) {
	all := Suites()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]Suite, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}

	var (
		out     []Suite
		unknown []string
		seen    = make(map[string]bool)
	)
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		s, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownSuite, strings.Join(unknown, ", "))
	}
	return out, nil
}

package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"
)

// DefaultCheckTimeout bounds a single check when the runner has none set.
const DefaultCheckTimeout = 30 * time.Second

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result records one check run.
type Result struct {
	Suite    string        `json:"suite"`
	Check    string        `json:"check"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of a run.
type Report struct {
	BaseURL   string        `json:"base_url"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Results   []Result      `json:"results"`
}

// Count returns how many checks ended with status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// OK reports whether no check failed.
func (r *Report) OK() bool {
	return r.Count(StatusFail) == 0
}

// WriteText prints one line per check followed by a summary.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, res := range r.Results {
		line := fmt.Sprintf("%s\t%s/%s\t%s", res.Status, res.Suite, res.Check, res.Duration.Round(time.Millisecond))
		if res.Error != "" {
			line += "\t" + res.Error
		}
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped in %s\n",
		r.Count(StatusPass), r.Count(StatusFail), r.Count(StatusSkip), r.Duration.Round(time.Millisecond))
	return err
}

// WriteJSON prints the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Runner executes suites one check at a time.
type Runner struct {
	Fixture      *Fixture
	CheckTimeout time.Duration
	// FailFast skips every check after the first failure.
	FailFast bool
	Logger   *slog.Logger
}

// Run executes the suites in order. A canceled ctx skips the remaining checks.
func (r *Runner) Run(ctx context.Context, suites []Suite) *Report {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := r.CheckTimeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	report := &Report{BaseURL: r.Fixture.BaseURL, StartedAt: time.Now()}
	failed := false

	for _, suite := range suites {
		for _, check := range suite.Checks {
			res := Result{Suite: suite.Name, Check: check.Name}

			switch {
			case ctx.Err() != nil:
				res.Status, res.Error = StatusSkip, ctx.Err().Error()
			case failed && r.FailFast:
				res.Status, res.Error = StatusSkip, "earlier check failed"
			default:
				res = r.runCheck(ctx, suite.Name, check, timeout)
			}

			if res.Status == StatusFail {
				failed = true
			}
			logger.Info("check finished",
				slog.String("suite", res.Suite),
				slog.String("check", res.Check),
				slog.String("status", string(res.Status)),
				slog.Duration("duration", res.Duration),
				slog.String("error", res.Error),
			)
			report.Results = append(report.Results, res)
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report
}

func (r *Runner) runCheck(ctx context.Context, suite string, check Check, timeout time.Duration) (res Result) {
	res = Result{Suite: suite, Check: check.Name}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if p := recover(); p != nil {
			res.Status, res.Error = StatusFail, fmt.Sprintf("panic: %v", p)
		}
	}()

	err := check.Run(ctx, r.Fixture)
	switch {
	case err == nil:
		res.Status = StatusPass
	case IsSkip(err):
		res.Status, res.Error = StatusSkip, err.Error()
	default:
		res.Status, res.Error = StatusFail, err.Error()
	}
	return res
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aichatbot/chatbot-api/internal/smoke"
)

// errChecksFailed makes the process exit non-zero after the report is printed.
var errChecksFailed = errors.New("one or more checks failed")

func newRunCmd(opts *options) *cobra.Command {
	var (
		checkTimeout time.Duration
		failFast     bool
	)

	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Run check suites",
		Long: `Runs the named suites in order, or every suite when none is given.
Checks run one at a time. The command exits non-zero if any check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := smoke.Select(args...)
			if err != nil {
				return err
			}

			runner := &smoke.Runner{
				Fixture:      opts.fixture(),
				CheckTimeout: checkTimeout,
				FailFast:     failFast,
				Logger:       opts.logger(cmd.ErrOrStderr()),
			}
			report := runner.Run(cmd.Context(), suites)

			out := cmd.OutOrStdout()
			if opts.json {
				err = report.WriteJSON(out)
			} else {
				err = report.WriteText(out)
			}
			if err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			if !report.OK() {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&checkTimeout, "check-timeout", smoke.DefaultCheckTimeout, "upper bound for a single check")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "skip remaining checks after the first failure")
	return cmd
}

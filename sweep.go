package main

import (
	"context"

	"github.com/rs/zerolog"
)

// Sweeper runs the checker over every candidate file under one or more roots,
// one file at a time.
type Sweeper struct {
	Walk     walkOptions
	Checker  Checker
	Reporter *Reporter
	Logger   zerolog.Logger
}

// Run sweeps root and returns its summary. Per-file problems are reported and
// counted; only walk errors and cancellation end the sweep early.
func (s *Sweeper) Run(ctx context.Context, root string) (Summary, error) {
	var summary Summary

	opts := s.Walk
	opts.Logger = s.Logger

	stats, err := walkTree(root, opts, func(file CandidateFile) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.Logger.Debug().Str("file", file.Path).Str("language", file.Language).Msg("checking file")
		res := s.Checker.Check(ctx, file)
		// A check cut short by cancellation is neither counted nor reported.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		summary.Checked++

		switch {
		case res.Err != nil:
			summary.Errored++
			s.Logger.Warn().Err(res.Err).Str("file", file.Path).Msg("file could not be checked")
		case res.Passed:
			summary.Passed++
		default:
			summary.Failed++
			if res.ErrorCount > 0 {
				summary.Diagnostics += res.ErrorCount
			}
		}
		s.Reporter.Report(res)
		return nil
	})
	summary.Directories = stats.Directories
	summary.SkippedDirectories = stats.Skipped
	return summary, err
}

package main

import (
	"fmt"
	"io"
	"strings"
)

var banner = strings.Repeat("*", 61)

// Reporter prints failures as they happen and keeps them for export.
type Reporter struct {
	out      io.Writer
	failures []CheckResult
}

// NewReporter creates a Reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Report prints nothing for a passing file, a banner block for a failing
// file and a single error line for a file that could not be checked.
func (r *Reporter) Report(res CheckResult) {
	switch {
	case res.Err != nil:
		writeCheckError(r.out, res)
		r.failures = append(r.failures, res)
	case !res.Passed:
		writeFailure(r.out, res)
		r.failures = append(r.failures, res)
	}
}

// Failures returns every failing or errored result reported so far.
func (r *Reporter) Failures() []CheckResult {
	return r.failures
}

// writeFailure writes the banner block for a failing file. Each diagnostic
// line is followed by a carriage return so terminals overwrite in place.
func writeFailure(w io.Writer, res CheckResult) {
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, res.Command)
	fmt.Fprintln(w, res.File.Path)
	for _, line := range res.Lines {
		fmt.Fprintf(w, "%s\n\r", line)
	}
	fmt.Fprintln(w, res.File.Path)
	fmt.Fprintln(w, banner)
}

func writeCheckError(w io.Writer, res CheckResult) {
	fmt.Fprintf(w, "ERROR checking %s: %v\n", res.File.Path, res.Err)
}

// writeSummary writes the end-of-run counts.
func writeSummary(w io.Writer, s Summary) {
	var builder strings.Builder
	builder.WriteString("\n--- Summary ---\n")
	builder.WriteString(fmt.Sprintf("Directories checked: %d\n", s.Directories))
	if s.SkippedDirectories > 0 {
		builder.WriteString(fmt.Sprintf("Directories excluded: %d\n", s.SkippedDirectories))
	}
	builder.WriteString(fmt.Sprintf("Files checked: %d\n", s.Checked))
	builder.WriteString(fmt.Sprintf("Passed: %d\n", s.Passed))
	builder.WriteString(fmt.Sprintf("Failed: %d\n", s.Failed))
	if s.Errored > 0 {
		builder.WriteString(fmt.Sprintf("Could not be checked: %d\n", s.Errored))
	}
	builder.WriteString(fmt.Sprintf("Total errors reported: %d\n", s.Diagnostics))
	io.WriteString(w, builder.String())
}

// renderTranscript renders failures and the summary as plain text, with
// ordinary line endings, for the clipboard.
func renderTranscript(failures []CheckResult, s Summary) string {
	var builder strings.Builder
	for _, res := range failures {
		if res.Err != nil {
			writeCheckError(&builder, res)
			continue
		}
		builder.WriteString(banner + "\n")
		builder.WriteString(res.Command + "\n")
		builder.WriteString(res.File.Path + "\n")
		for _, line := range res.Lines {
			builder.WriteString(line + "\n")
		}
		builder.WriteString(res.File.Path + "\n")
		builder.WriteString(banner + "\n")
	}
	writeSummary(&builder, s)
	return builder.String()
}

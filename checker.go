package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/google/shlex"
	"github.com/rs/zerolog"
)

// successMarker is the last line cpplint prints for a clean file.
const successMarker = "Total errors found: 0"

var (
	errEmptyDiagnostics = errors.New("checker produced no diagnostic output")

	totalErrorsPattern = regexp.MustCompile(`^Total errors found: (\d+)$`)
	diagnosticPattern  = regexp.MustCompile(`^(.+?):(\d+):\s+(.*?)\s+\[([^\]]+)\]\s+\[(\d+)\]$`)
)

// Suppressed cpplint categories. Files under the device interface also
// tolerate non-const reference parameters.
var (
	baseSuppressions = []string{
		"build/header_guard",
		"legal/copyright",
		"whitespace/end_of_line",
		"runtime/arrays",
		"readability/streams",
	}
	interfaceSuppressions = append(append([]string{}, baseSuppressions...), "runtime/references")
)

// Checker checks one file and reports the outcome. Implementations must not
// return a nil Err for a file they could not inspect.
type Checker interface {
	Check(ctx context.Context, file CandidateFile) CheckResult
}

// CommandChecker runs an external cpplint-compatible command per file.
type CommandChecker struct {
	Command         []string // checker argv prefix, e.g. ["./cpplint.py"]
	InterfaceMarker string   // paths containing this get interfaceSuppressions
	LogDir          string   // where per-invocation logs are created, "" for os.TempDir
	Logger          zerolog.Logger
}

var _ Checker = (*CommandChecker)(nil)

// NewCommandChecker splits a shell-style command string into the checker argv.
func NewCommandChecker(command, interfaceMarker string) (*CommandChecker, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid checker command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("checker command is empty")
	}
	return &CommandChecker{
		Command:         argv,
		InterfaceMarker: interfaceMarker,
		Logger:          zerolog.Nop(),
	}, nil
}

// selectSuppressions picks the suppression set from a file's base name.
// Directory components never count, so the set does not depend on the root.
func selectSuppressions(path, interfaceMarker string) []string {
	if interfaceMarker != "" && strings.Contains(filepath.Base(path), interfaceMarker) {
		return interfaceSuppressions
	}
	return baseSuppressions
}

// suppressionFilter renders categories as a cpplint --filter flag.
func suppressionFilter(categories []string) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = "-" + c
	}
	return "--filter=" + strings.Join(parts, ",")
}

// Invocation returns the full argv used to check file.
func (c *CommandChecker) Invocation(file CandidateFile) []string {
	argv := make([]string, 0, len(c.Command)+2)
	argv = append(argv, c.Command...)
	argv = append(argv, suppressionFilter(selectSuppressions(file.Path, c.InterfaceMarker)))
	argv = append(argv, file.Path)
	return argv
}

// renderCommand joins argv for display, quoting arguments a shell would
// split or expand.
func renderCommand(argv []string) string {
	return shellescape.QuoteCommand(argv)
}

// Check runs the checker with its stderr captured in a temp log that is
// removed before Check returns.
func (c *CommandChecker) Check(ctx context.Context, file CandidateFile) CheckResult {
	argv := c.Invocation(file)
	res := CheckResult{
		File:       file,
		Command:    renderCommand(argv),
		ErrorCount: -1,
	}

	logFile, err := os.CreateTemp(c.LogDir, "lintsweep-*.log")
	if err != nil {
		res.Err = fmt.Errorf("failed to create diagnostic log: %w", err)
		return res
	}
	logPath := logFile.Name()
	defer func() {
		if rmErr := os.Remove(logPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.Logger.Warn().Err(rmErr).Str("log", logPath).Msg("failed to remove diagnostic log")
		}
	}()

	c.Logger.Debug().Str("file", file.Path).Str("command", res.Command).Msg("running checker")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = logFile
	runErr := cmd.Run()
	closeErr := logFile.Close()

	// A checker killed by cancellation leaves a truncated log.
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Err = fmt.Errorf("checker interrupted: %w", ctxErr)
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		// cpplint exits non-zero whenever it reports errors.
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Err = fmt.Errorf("failed to run checker: %w", runErr)
		return res
	}
	if closeErr != nil {
		res.Err = fmt.Errorf("failed to write diagnostic log: %w", closeErr)
		return res
	}

	lines, err := readLogLines(logPath)
	if err != nil {
		res.Err = err
		return res
	}
	res.Lines = lines

	passed, count, err := evaluateDiagnostics(lines)
	if err != nil {
		res.Err = err
		return res
	}
	res.Passed = passed
	res.ErrorCount = count
	c.Logger.Debug().Str("file", file.Path).Bool("passed", passed).Int("errors", count).Int("exit_code", res.ExitCode).Msg("checker finished")
	return res
}

// readLogLines reads every line of the diagnostic log.
func readLogLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostic log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diagnostic log: %w", err)
	}
	return lines, nil
}

// evaluateDiagnostics derives the verdict from the last line only. count is
// the reported total or -1 when the last line is not a total.
func evaluateDiagnostics(lines []string) (passed bool, count int, err error) {
	if len(lines) == 0 {
		return false, -1, errEmptyDiagnostics
	}
	last := strings.TrimSpace(lines[len(lines)-1])

	count = -1
	if m := totalErrorsPattern.FindStringSubmatch(last); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			count = n
		}
	}
	return last == successMarker, count, nil
}

// parseDiagnostic parses a cpplint error line. Lines such as
// "Done processing ..." or the final total return false.
func parseDiagnostic(line string) (Diagnostic, bool) {
	m := diagnosticPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Diagnostic{}, false
	}
	lineNo, err := strconv.Atoi(m[2])
	if err != nil {
		return Diagnostic{}, false
	}
	confidence, _ := strconv.Atoi(m[5])
	return Diagnostic{
		Path:       m[1],
		Line:       lineNo,
		Message:    m[3],
		Category:   m[4],
		Confidence: confidence,
	}, true
}

// parseDiagnostics returns every parseable diagnostic in lines.
func parseDiagnostics(lines []string) []Diagnostic {
	var out []Diagnostic
	for _, l := range lines {
		if d, ok := parseDiagnostic(l); ok {
			out = append(out, d)
		}
	}
	return out
}

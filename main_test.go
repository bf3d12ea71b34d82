package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCheckerScript fails a/baz.h with two errors, passes everything
// else, and appends each checked path to record.
func recordingCheckerScript(t *testing.T, record string) string {
	t.Helper()
	body := fmt.Sprintf(`for last; do :; done
printf '%%s\n' "$last" >> '%s'
case "$last" in
  *baz.h)
    echo "$last:0:  No #ifndef header guard found  [build/header_guard] [5]" >&2
    echo "$last:1:  Tab found  [whitespace/tab] [1]" >&2
    echo "Done processing $last" >&2
    echo "Total errors found: 2" >&2
    exit 1 ;;
  *)
    echo "Done processing $last" >&2
    echo "Total errors found: 0" >&2 ;;
esac
`, record)
	return writeScript(t, t.TempDir(), body)
}

func testSettings(checker string) Settings {
	return Settings{
		CheckerCommand:  checker,
		InterfaceMarker: "kinect_interface",
		ExcludeMarker:   "OLD",
		Languages:       []string{"cpp"},
		Prune:           PruneSubtree,
		Quiet:           true,
	}
}

func readRecord(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Fields(string(data))
}

func TestRunSweepEndToEnd(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/foo.cpp":     "int main() {}\n",
		"b/OLD/bar.cpp": "",
		"a/baz.h":       "\tint x;\n",
	})
	record := filepath.Join(t.TempDir(), "record.txt")
	script := recordingCheckerScript(t, record)

	var out bytes.Buffer
	err := runSweep(context.Background(), testSettings(script), []string{root}, &out)
	assert.Equal(t, exitChecksFailed, exitCodeFor(err))
	assert.ErrorIs(t, err, errChecksFailed)

	checked := readRecord(t, record)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a", "foo.cpp"),
		filepath.Join(root, "a", "baz.h"),
	}, checked)

	report := out.String()
	assert.Equal(t, 2, strings.Count(report, banner))
	// command, path, "Done processing" line, closing path
	assert.Equal(t, 4, strings.Count(report, filepath.Join(root, "a", "baz.h")+"\n"))
	assert.Contains(t, report, "Total errors found: 2\n\r")
	assert.NotContains(t, report, "foo.cpp")
	assert.Contains(t, report, "Failed: 1\n")

	logs, err := filepath.Glob(filepath.Join(tmp, "lintsweep-*.log"))
	require.NoError(t, err)
	assert.Empty(t, logs, "no scratch log may remain after a run")
}

func TestRunSweepCleanTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/ok.cpp": "", "src/OLD/baz.h": ""})
	record := filepath.Join(t.TempDir(), "record.txt")
	script := recordingCheckerScript(t, record)

	var out bytes.Buffer
	err := runSweep(context.Background(), testSettings(script), []string{root}, &out)
	require.NoError(t, err)
	assert.Equal(t, exitOK, exitCodeFor(err))
	assert.NotContains(t, out.String(), banner)
	assert.Len(t, readRecord(t, record), 1)
}

func TestRunSweepOverlappingRootsCheckOnce(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/ok.cpp": ""})
	record := filepath.Join(t.TempDir(), "record.txt")
	script := recordingCheckerScript(t, record)

	var out bytes.Buffer
	err := runSweep(context.Background(), testSettings(script), []string{root, filepath.Join(root, "a"), root}, &out)
	require.NoError(t, err)
	assert.Len(t, readRecord(t, record), 1)
}

func TestRunSweepMissingRoot(t *testing.T) {
	script := recordingCheckerScript(t, filepath.Join(t.TempDir(), "record.txt"))
	var out bytes.Buffer
	err := runSweep(context.Background(), testSettings(script), []string{filepath.Join(t.TempDir(), "missing")}, &out)
	assert.Equal(t, exitRunError, exitCodeFor(err))
	assert.Contains(t, out.String(), "Roots failed to process: 1")
}

func TestRunSweepBadSettings(t *testing.T) {
	var out bytes.Buffer
	s := testSettings("./cpplint.py")
	s.Languages = []string{"fortran"}
	err := runSweep(context.Background(), s, []string{t.TempDir()}, &out)
	assert.Equal(t, exitRunError, exitCodeFor(err))
	assert.ErrorIs(t, err, errUnknownLanguage)

	s = testSettings(`"unterminated`)
	err = runSweep(context.Background(), s, []string{t.TempDir()}, &out)
	assert.Equal(t, exitRunError, exitCodeFor(err))
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitOK, exitCodeFor(nil))
	assert.Equal(t, exitChecksFailed, exitCodeFor(&exitError{code: exitChecksFailed, err: errChecksFailed}))
	assert.Equal(t, exitRunError, exitCodeFor(errors.New("unknown flag")))
	wrapped := fmt.Errorf("wrapped: %w", &exitError{code: exitChecksFailed, err: errChecksFailed})
	assert.Equal(t, exitChecksFailed, exitCodeFor(wrapped))
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("LINTSWEEP_EXCLUDE_MARKER", "LEGACY")
	t.Setenv("LINTSWEEP_LANG", "cpp, cxx")
	t.Setenv("LINTSWEEP_PRUNE", "literal")
	initConfig()

	s, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "LEGACY", s.ExcludeMarker)
	assert.Equal(t, []string{"cpp", "cxx"}, s.Languages)
	assert.Equal(t, PruneLiteral, s.Prune)
	assert.Equal(t, "./cpplint.py", s.CheckerCommand)
	assert.Equal(t, "kinect_interface", s.InterfaceMarker)
}

func TestLoadSettingsRejectsBadPrune(t *testing.T) {
	t.Setenv("LINTSWEEP_PRUNE", "sideways")
	initConfig()

	_, err := loadSettings()
	assert.Error(t, err)
}

func TestDedupeRoots(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	ab := filepath.Join(base, "a", "b")
	c := filepath.Join(base, "c")

	assert.Equal(t, []string{a, c}, dedupeRoots([]string{a, ab, c, a}))
	assert.Equal(t, []string{a}, dedupeRoots([]string{ab, a}))
	assert.Equal(t, []string{filepath.Join(base, "ab"), a}, dedupeRoots([]string{filepath.Join(base, "ab"), a}))
}

func TestParsePatterns(t *testing.T) {
	assert.Nil(t, parsePatterns(""))
	assert.Equal(t, []string{"cpp", "c"}, parsePatterns(" cpp, ,c "))
}

func TestWaitForEnter(t *testing.T) {
	var out bytes.Buffer
	waitForEnter(strings.NewReader("\n"), &out)
	assert.Equal(t, "Press ENTER to exit", out.String())
}

func TestIsGitURL(t *testing.T) {
	assert.True(t, isGitURL("https://github.com/example/project.git"))
	assert.True(t, isGitURL("git@github.com:example/project"))
	assert.False(t, isGitURL(t.TempDir()))
	assert.False(t, isGitURL("src"))
}

// flagRecordingScript passes every file and appends "filter|path" to record.
func flagRecordingScript(t *testing.T, record string) string {
	t.Helper()
	body := fmt.Sprintf(`printf '%%s|%%s\n' "$1" "$2" >> '%s'
echo "Total errors found: 0" >&2
`, record)
	return writeScript(t, t.TempDir(), body)
}

func readFlags(t *testing.T, record string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(record)
	require.NoError(t, err)
	flags := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		filter, path, ok := strings.Cut(line, "|")
		require.True(t, ok, line)
		flags[path] = filter
	}
	return flags
}

func TestRunSweepInterfaceMarkerFlags(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"kinect_interface/src/open_ni_funcs.cpp": "",
		"src/kinect_interface.h":                 "",
		"src/plain.cpp":                          "",
	})
	nested := filepath.Join(root, "kinect_interface", "src", "open_ni_funcs.cpp")
	named := filepath.Join(root, "src", "kinect_interface.h")
	plain := filepath.Join(root, "src", "plain.cpp")

	for _, sweepRoot := range []string{root, filepath.Join(root, "kinect_interface")} {
		record := filepath.Join(t.TempDir(), "flags.txt")
		var out bytes.Buffer
		require.NoError(t, runSweep(context.Background(), testSettings(flagRecordingScript(t, record)), []string{sweepRoot}, &out))

		flags := readFlags(t, record)
		assert.Equal(t, suppressionFilter(baseSuppressions), flags[nested], "root %s", sweepRoot)
		if sweepRoot == root {
			assert.Equal(t, suppressionFilter(interfaceSuppressions), flags[named])
			assert.Equal(t, suppressionFilter(baseSuppressions), flags[plain])
		}
	}
}

func TestRunSweepInterruptedMidCheck(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/slow.cpp": ""})
	script := writeScript(t, t.TempDir(), "echo \"$2:1:  Tab found  [whitespace/tab] [1]\" >&2\nexec sleep 5\n")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err := runSweep(ctx, testSettings(script), []string{root}, &out)
	assert.Equal(t, exitRunError, exitCodeFor(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, out.String(), banner)
}

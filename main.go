package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Checker
	checkerCommand  string
	interfaceMarker string

	// Filtering
	excludeMarker string
	languages     string
	pruneMode     string
	useGitignore  bool
	skipHidden    bool

	// Output
	copyToClipboard bool
	pdfOutputFile   string

	// Session
	interactiveMode bool
	pauseOnExit     bool
	debugMode       bool
	quietMode       bool
)

// version is the application version, set via ldflags.
var version = "dev"

const (
	exitOK           = 0
	exitChecksFailed = 1
	exitRunError     = 2
)

var errChecksFailed = errors.New("one or more files failed the style check")

// exitError carries the process exit code out of the command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitRunError
}

// Settings is the resolved configuration for one run.
type Settings struct {
	CheckerCommand  string
	InterfaceMarker string
	ExcludeMarker   string
	Languages       []string
	Prune           PruneMode
	Gitignore       bool
	SkipHidden      bool
	Clipboard       bool
	PDFOutput       string
	Interactive     bool
	Debug           bool
	Quiet           bool
}

var rootCmd = &cobra.Command{
	Use:   "lintsweep [ROOTS...]",
	Short: "lintsweep runs cpplint over every C/C++ file in a tree and reports failures.",
	Long: `lintsweep walks one or more source trees, runs a cpplint-compatible checker
on each C/C++ file and prints a banner for every file whose last diagnostic
line is not "Total errors found: 0". Roots may be local directories or Git URLs.`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return &exitError{code: exitRunError, err: err}
		}
		return runSweep(cmd.Context(), settings, args, cmd.OutOrStdout())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Checker
	rootCmd.Flags().StringVar(&checkerCommand, "checker", "./cpplint.py", "Checker command; the filter flag and file path are appended")
	viper.BindPFlag("checker", rootCmd.Flags().Lookup("checker"))
	rootCmd.Flags().StringVar(&interfaceMarker, "interface-marker", "kinect_interface", "Paths containing this also suppress runtime/references")
	viper.BindPFlag("interface_marker", rootCmd.Flags().Lookup("interface-marker"))

	// Filtering
	rootCmd.Flags().StringVarP(&excludeMarker, "exclude-marker", "x", "OLD", "Skip directories and files whose path contains this text")
	viper.BindPFlag("exclude_marker", rootCmd.Flags().Lookup("exclude-marker"))
	rootCmd.Flags().StringVarP(&languages, "lang", "l", "cpp", "Languages to check (comma-separated: cpp, c, cxx)")
	viper.BindPFlag("lang", rootCmd.Flags().Lookup("lang"))
	rootCmd.Flags().StringVar(&pruneMode, "prune", string(PruneSubtree), "Excluded directory handling: subtree or literal")
	viper.BindPFlag("prune", rootCmd.Flags().Lookup("prune"))
	rootCmd.Flags().BoolVar(&useGitignore, "gitignore", false, "Respect the root .gitignore")
	viper.BindPFlag("gitignore", rootCmd.Flags().Lookup("gitignore"))
	rootCmd.Flags().BoolVarP(&skipHidden, "skip-hidden", "H", false, "Skip hidden files and directories")
	viper.BindPFlag("skip_hidden", rootCmd.Flags().Lookup("skip-hidden"))

	// Output
	rootCmd.Flags().BoolVarP(&copyToClipboard, "clipboard", "c", false, "Copy the failure report to the clipboard")
	viper.BindPFlag("clipboard", rootCmd.Flags().Lookup("clipboard"))
	rootCmd.Flags().StringVar(&pdfOutputFile, "pdf", "", "Also write the failure report as PDF")
	viper.BindPFlag("pdf", rootCmd.Flags().Lookup("pdf"))

	// Session
	rootCmd.Flags().BoolVar(&interactiveMode, "interactive", false, "Pick directories to lint with a fuzzy finder")
	viper.BindPFlag("interactive", rootCmd.Flags().Lookup("interactive"))
	rootCmd.Flags().BoolVar(&pauseOnExit, "pause", false, "Wait for ENTER before exiting (terminal only)")
	viper.BindPFlag("pause", rootCmd.Flags().Lookup("pause"))
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	rootCmd.Flags().BoolVarP(&quietMode, "quiet", "q", false, "Only log warnings and errors")
	viper.BindPFlag("quiet", rootCmd.Flags().Lookup("quiet"))
}

// initConfig wires environment variables. There is deliberately no config
// file: LINTSWEEP_* variables and flags are the only inputs.
func initConfig() {
	viper.SetEnvPrefix("LINTSWEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// loadSettings snapshots viper (default < env < flag) into Settings.
func loadSettings() (Settings, error) {
	prune, err := parsePruneMode(viper.GetString("prune"))
	if err != nil {
		return Settings{}, err
	}
	langs := parsePatterns(viper.GetString("lang"))
	if len(langs) == 0 {
		return Settings{}, fmt.Errorf("no languages selected")
	}
	return Settings{
		CheckerCommand:  viper.GetString("checker"),
		InterfaceMarker: viper.GetString("interface_marker"),
		ExcludeMarker:   viper.GetString("exclude_marker"),
		Languages:       langs,
		Prune:           prune,
		Gitignore:       viper.GetBool("gitignore"),
		SkipHidden:      viper.GetBool("skip_hidden"),
		Clipboard:       viper.GetBool("clipboard"),
		PDFOutput:       viper.GetString("pdf"),
		Interactive:     viper.GetBool("interactive"),
		Debug:           viper.GetBool("debug"),
		Quiet:           viper.GetBool("quiet"),
	}, nil
}

// runSweep resolves the roots, sweeps each one and handles exports.
func runSweep(ctx context.Context, settings Settings, args []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	initLogger(settings.Debug, settings.Quiet)

	langData, err := loadLanguageData(settings.Languages)
	if err != nil {
		return &exitError{code: exitRunError, err: err}
	}
	checker, err := NewCommandChecker(settings.CheckerCommand, settings.InterfaceMarker)
	if err != nil {
		return &exitError{code: exitRunError, err: err}
	}
	checker.Logger = logger

	var inputs []string
	if settings.Interactive {
		inputs, err = runInteractiveFinder(settings.ExcludeMarker, settings.SkipHidden)
		if err != nil {
			return &exitError{code: exitRunError, err: err}
		}
		if inputs == nil {
			logger.Info().Msg("interactive selection aborted")
			return nil
		}
	} else {
		inputs = args
		if len(inputs) == 0 {
			inputs = []string{"."}
		}
	}

	var tempDirsToClean []string
	defer func() {
		for _, dir := range tempDirsToClean {
			logger.Debug().Str("dir", dir).Msg("removing temporary clone")
			_ = os.RemoveAll(dir)
		}
	}()

	var roots []string
	var failedRoots int
	for _, input := range inputs {
		if !isGitURL(input) {
			roots = append(roots, input)
			continue
		}
		var progress io.Writer
		if settings.Debug {
			progress = os.Stderr
		}
		dir, cloneErr := cloneGitRepo(input, progress)
		if cloneErr != nil {
			logger.Error().Err(cloneErr).Str("root", input).Msg("could not clone root")
			failedRoots++
			continue
		}
		tempDirsToClean = append(tempDirsToClean, dir)
		roots = append(roots, dir)
	}
	roots = dedupeRoots(roots)

	reporter := NewReporter(out)
	sweeper := &Sweeper{
		Walk: walkOptions{
			ExcludeMarker:    settings.ExcludeMarker,
			Prune:            settings.Prune,
			Languages:        langData,
			RespectGitignore: settings.Gitignore,
			SkipHidden:       settings.SkipHidden,
		},
		Checker:  checker,
		Reporter: reporter,
		Logger:   logger,
	}

	var summary Summary
	for _, root := range roots {
		rootSummary, sweepErr := sweeper.Run(ctx, root)
		summary.Add(rootSummary)
		if sweepErr != nil {
			if ctx.Err() != nil {
				return &exitError{code: exitRunError, err: fmt.Errorf("sweep interrupted: %w", ctx.Err())}
			}
			logger.Error().Err(sweepErr).Str("root", root).Msg("could not sweep root")
			failedRoots++
		}
	}

	writeSummary(out, summary)
	if failedRoots > 0 {
		fmt.Fprintf(out, "Roots failed to process: %d\n", failedRoots)
	}

	if settings.Clipboard {
		if err := clipboard.WriteAll(renderTranscript(reporter.Failures(), summary)); err != nil {
			logger.Error().Err(err).Msg("could not write to clipboard")
		} else {
			logger.Info().Msg("report copied to clipboard")
		}
	}
	if settings.PDFOutput != "" {
		if err := generatePDF(reporter.Failures(), summary, langData, settings.PDFOutput); err != nil {
			logger.Error().Err(err).Msg("could not write PDF report")
		}
	}

	switch {
	case failedRoots > 0:
		return &exitError{code: exitRunError, err: fmt.Errorf("%d root(s) could not be processed", failedRoots)}
	case !summary.Clean():
		return &exitError{code: exitChecksFailed, err: errChecksFailed}
	}
	return nil
}

// dedupeRoots drops roots that repeat or sit inside another root, so no file
// is checked twice in one run. Order is preserved.
func dedupeRoots(roots []string) []string {
	abs := make([]string, len(roots))
	for i, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			a = filepath.Clean(r)
		}
		abs[i] = a
	}

	var out []string
	for i, r := range roots {
		covered := false
		for j := range roots {
			if i == j {
				continue
			}
			if abs[i] == abs[j] {
				if j < i {
					covered = true
				}
			} else if isWithin(abs[i], abs[j]) {
				covered = true
			}
			if covered {
				break
			}
		}
		if !covered {
			out = append(out, r)
		}
	}
	return out
}

// isWithin reports whether path lies strictly below dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// parsePatterns splits a comma-separated list, dropping blanks.
func parsePatterns(patterns string) []string {
	var result []string
	for _, part := range strings.Split(patterns, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// waitForEnter blocks until a line (or EOF) is read from in.
func waitForEnter(in io.Reader, out io.Writer) {
	fmt.Fprint(out, "Press ENTER to exit")
	_, _ = bufio.NewReader(in).ReadString('\n')
}

func isInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCodeFor(err)
	if err != nil && code == exitRunError {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if viper.GetBool("pause") && isInteractive(os.Stdin) {
		waitForEnter(os.Stdin, os.Stdout)
	}
	os.Exit(code)
}

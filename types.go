package main

// CandidateFile is a source file selected by the walker for checking.
type CandidateFile struct {
	Path     string // Path handed to the checker (root joined with RelPath)
	RelPath  string // Path relative to the sweep root, slash separated
	Language string // Language key from languages.yml
}

// CheckResult holds the outcome of a single checker invocation.
type CheckResult struct {
	File       CandidateFile
	Command    string   // Command line as it would be typed in a shell
	Lines      []string // Diagnostic lines captured from the checker's stderr
	Passed     bool
	ErrorCount int   // Count from the "Total errors found" line, -1 if absent
	ExitCode   int   // Checker exit status, recorded only
	Err        error // Set when the file could not be checked at all
}

// Diagnostic is one parsed checker line of the form "path:line:  message  [category] [confidence]".
type Diagnostic struct {
	Path       string
	Line       int
	Message    string
	Category   string
	Confidence int
}

// Summary holds aggregated counts for a whole run.
type Summary struct {
	Directories        int
	SkippedDirectories int
	Checked            int
	Passed             int
	Failed             int
	Errored            int
	Diagnostics        int
}

// Add folds another summary into s.
func (s *Summary) Add(other Summary) {
	s.Directories += other.Directories
	s.SkippedDirectories += other.SkippedDirectories
	s.Checked += other.Checked
	s.Passed += other.Passed
	s.Failed += other.Failed
	s.Errored += other.Errored
	s.Diagnostics += other.Diagnostics
}

// Clean reports whether every checked file passed.
func (s Summary) Clean() bool {
	return s.Failed == 0 && s.Errored == 0
}

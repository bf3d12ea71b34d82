package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
	"github.com/rs/zerolog"
)

// PruneMode controls what happens below a directory that matches the
// exclusion marker.
type PruneMode string

const (
	// PruneSubtree stops descending at the first excluded directory.
	PruneSubtree PruneMode = "subtree"
	// PruneLiteral tests every directory on its own and keeps walking.
	// Descendants of an excluded directory still carry the marker in their
	// relative path, so they are excluded as well.
	PruneLiteral PruneMode = "literal"
)

func parsePruneMode(s string) (PruneMode, error) {
	switch PruneMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PruneSubtree:
		return PruneSubtree, nil
	case PruneLiteral:
		return PruneLiteral, nil
	default:
		return "", fmt.Errorf("invalid prune mode %q (want %q or %q)", s, PruneSubtree, PruneLiteral)
	}
}

// walkOptions configures a single tree walk.
type walkOptions struct {
	ExcludeMarker    string
	Prune            PruneMode
	Languages        *LoadedLanguageData
	RespectGitignore bool
	SkipHidden       bool
	Logger           zerolog.Logger
}

// walkStats counts directories seen by the walker.
type walkStats struct {
	Directories int // directories whose files were considered
	Skipped     int // directories excluded by the marker
}

// walkTree visits every checkable file under root, depth first, calling visit
// for each one as soon as it is found. An error returned by visit stops the walk.
func walkTree(root string, opts walkOptions, visit func(CandidateFile) error) (walkStats, error) {
	var stats walkStats

	info, err := os.Stat(root)
	if err != nil {
		return stats, fmt.Errorf("error accessing root %s: %w", root, err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("root %s is not a directory", root)
	}

	var ignoreMatcher gitignore.IgnoreMatcher
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return stats, fmt.Errorf("error resolving root %s: %w", root, err)
	}
	if opts.RespectGitignore {
		ignoreMatcher = loadGitignore(absRoot, opts.Logger)
	}
	ignored := func(rel string, isDir bool) bool {
		return ignoreMatcher != nil && ignoreMatcher.Match(filepath.Join(absRoot, filepath.FromSlash(rel)), isDir)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			opts.Logger.Warn().Err(err).Str("path", path).Msg("error accessing path")
			return nil
		}

		rel := relativePath(root, path)

		if d.IsDir() {
			if path != root {
				if opts.SkipHidden && isHidden(d.Name()) {
					return fs.SkipDir
				}
				if ignored(rel, true) {
					return fs.SkipDir
				}
			}
			if isExcludedDir(rel, opts.ExcludeMarker) {
				stats.Skipped++
				opts.Logger.Debug().Str("dir", path).Str("mode", string(opts.Prune)).Msg("skipping excluded directory")
				if opts.Prune == PruneLiteral {
					return nil
				}
				return fs.SkipDir
			}
			stats.Directories++
			opts.Logger.Info().Str("dir", path).Msg("checking directory")
			return nil
		}

		// Files are only considered when their own directory was not excluded.
		if isExcludedDir(relativePath(root, filepath.Dir(path)), opts.ExcludeMarker) {
			return nil
		}
		name := d.Name()
		if opts.SkipHidden && isHidden(name) {
			return nil
		}
		lang, ok := candidateLanguage(name, opts)
		if !ok {
			return nil
		}
		if ignored(rel, false) {
			return nil
		}

		return visit(CandidateFile{
			Path:     path,
			RelPath:  rel,
			Language: lang,
		})
	})
	if err != nil {
		return stats, fmt.Errorf("error walking directory %s: %w", root, err)
	}
	return stats, nil
}

func loadGitignore(absRoot string, log zerolog.Logger) gitignore.IgnoreMatcher {
	gitIgnorePath := filepath.Join(absRoot, ".gitignore")
	if _, err := os.Stat(gitIgnorePath); err != nil {
		return nil
	}
	matcher, err := gitignore.NewGitIgnore(gitIgnorePath, absRoot)
	if err != nil {
		log.Warn().Err(err).Str("path", gitIgnorePath).Msg("could not parse .gitignore")
		return nil
	}
	return matcher
}

// isExcludedDir reports whether a root-relative directory path carries the
// exclusion marker.
func isExcludedDir(rel, marker string) bool {
	return marker != "" && strings.Contains(rel, marker)
}

// candidateLanguage applies the file-name filter: a known extension and no
// exclusion marker in the name.
func candidateLanguage(name string, opts walkOptions) (string, bool) {
	if opts.ExcludeMarker != "" && strings.Contains(name, opts.ExcludeMarker) {
		return "", false
	}
	return opts.Languages.GetLanguageForFile(name)
}

// relativePath returns path relative to root with forward slashes.
func relativePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isHidden checks if a base name is hidden (starts with '.').
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return len(name) > 0 && name[0] == '.'
}

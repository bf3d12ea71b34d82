package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// collectDirectories lists directories under root that a sweep would enter.
// Excluded directories are left out so they cannot be picked.
func collectDirectories(root, excludeMarker string, skipHidden bool) ([]string, error) {
	candidates := []string{root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root || !d.IsDir() {
			return nil
		}
		if skipHidden && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if isExcludedDir(relativePath(root, path), excludeMarker) {
			return fs.SkipDir
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning for directories: %w", err)
	}
	return candidates, nil
}

// runInteractiveFinder lets the user pick one or more directories to sweep.
// A nil slice with a nil error means the user aborted.
func runInteractiveFinder(excludeMarker string, skipHidden bool) ([]string, error) {
	candidates, err := collectDirectories(".", excludeMarker, skipHidden)
	if err != nil {
		return nil, err
	}

	idx, err := fuzzyfinder.FindMulti(
		candidates,
		func(i int) string {
			return candidates[i]
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Select directories to lint. Tab to multi-select, Enter to confirm."
			}
			entries, readErr := os.ReadDir(candidates[i])
			if readErr != nil {
				return fmt.Sprintf("Directory: %s\nError reading: %v", candidates[i], readErr)
			}
			files := 0
			for _, e := range entries {
				if !e.IsDir() {
					files++
				}
			}
			return fmt.Sprintf("Directory: %s\nEntries: %d (%d files)", candidates[i], len(entries), files)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, nil
		}
		return nil, fmt.Errorf("fuzzy finder error: %w", err)
	}

	selected := make([]string, len(idx))
	for i, index := range idx {
		selected[i] = candidates[index]
	}
	return selected, nil
}

package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/muesli/gitcha"
	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

// DefaultPatterns matches the decks looked for when none are configured.
func DefaultPatterns() []string {
	return []string{"*.html"}
}

/*
Discover resolves roots into the ordered list of decks to process.

  - A root that is a regular file is taken as-is, regardless of patterns.
  - A directory root is searched for files matching patterns. Files ignored
    by an enclosing git repository's .gitignore are skipped.
  - Without recursive, only direct children of a directory root are kept.

Paths are sorted within each root and roots keep their argument order,
so the result is stable between runs. A path reachable from two roots is
listed once, at its first position.
*/
func Discover(roots []string, patterns []string, recursive bool) ([]string, failure.ClassifiedError) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}

	seen := make(map[string]struct{})
	var out []string
	for _, root := range roots {
		paths, err := discoverRoot(root, patterns, recursive)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

func discoverRoot(root string, patterns []string, recursive bool) ([]string, *SourceError) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &SourceError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRootNotFound,
			Path:      root,
		}
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, &SourceError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRootNotFound,
			Path:      root,
		}
	}
	if !info.IsDir() {
		return []string{absRoot}, nil
	}

	ch, err := gitcha.FindFilesExcept(absRoot, patterns, nil)
	if err != nil {
		return nil, &SourceError{
			Message:   fmt.Sprintf("searching %s: %v", root, err),
			Retryable: false,
			Cause:     ErrCauseSearchFailed,
			Path:      root,
		}
	}

	var paths []string
	for res := range ch {
		if res.Info != nil && res.Info.IsDir() {
			continue
		}
		if !recursive && filepath.Dir(res.Path) != absRoot {
			continue
		}
		paths = append(paths, res.Path)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads one deck from disk.
// A read failure is recoverable: the deck is skipped and the run continues.
func Load(path string) (extractor.Document, failure.ClassifiedError) {
	content, err := os.ReadFile(path)
	if err != nil {
		cause := ErrCauseReadFailed
		if errors.Is(err, fs.ErrNotExist) {
			cause = ErrCauseRootNotFound
		}
		return extractor.Document{}, &SourceError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     cause,
			Path:      path,
		}
	}
	return extractor.Document{Path: path, Content: content}, nil
}

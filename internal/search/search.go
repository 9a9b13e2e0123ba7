// Package search walks a directory tree and fuzzy-matches entry paths,
// the deep counterpart to the per-directory filter. Walks are bounded
// by depth, result count and total files scanned so a search rooted
// near / stays responsive.
package search

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/LFroesch/voyager/internal/filter"
	"github.com/LFroesch/voyager/internal/logging"
)

// Result is one matched path.
type Result struct {
	Path        string
	DisplayName string // path relative to the search root
	IsDir       bool
	Size        int64
	ModTime     time.Time
	Score       int
}

// Options bound a search. Zero values select the defaults.
type Options struct {
	ShowHidden bool
	MaxDepth   int      // default 5
	MaxResults int      // default 5000
	MaxScanned int      // default 100000
	Skip       []string // extra directory names to skip, "*" suffix matches prefixes
}

// Directories never worth descending into.
var skipDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"node_modules": true, "vendor": true, ".npm": true, ".yarn": true,
	"dist": true, "build": true, "target": true,
	".cache": true, "__pycache__": true, ".pytest_cache": true,
	".venv": true, "venv": true, ".tox": true, ".mypy_cache": true,
	"proc": true, "sys": true, "dev": true, "run": true, "lost+found": true,
	".idea": true, ".vscode": true,
}

// Find walks root collecting relative paths, then scores them against
// query. Cancellation is checked per visited entry, so a walk over a
// slow mount stops promptly.
func Find(ctx context.Context, root, query string, opts Options) ([]Result, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 5
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5000
	}
	if opts.MaxScanned <= 0 {
		opts.MaxScanned = 100000
	}

	start := time.Now()
	var (
		candidates []Result
		relPaths   []string
		scanned    int
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			// Unreadable subtrees shrink the result set, they don't
			// fail the search.
			return nil
		}

		scanned++
		if scanned > opts.MaxScanned {
			logging.Warn("search: hit scan limit (%d) under %s", opts.MaxScanned, root)
			return filepath.SkipAll
		}

		if d.IsDir() && shouldSkipDir(d.Name(), opts.Skip) {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		if depth := strings.Count(rel, string(filepath.Separator)); depth >= opts.MaxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !opts.ShowHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		candidates = append(candidates, Result{
			Path:        path,
			DisplayName: rel,
			IsDir:       d.IsDir(),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
		})
		relPaths = append(relPaths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	matches := filter.Filter(query, relPaths, paths)

	results := make([]Result, 0, min(len(matches), opts.MaxResults))
	for _, m := range matches {
		if len(results) >= opts.MaxResults {
			break
		}
		r := candidates[m.Index]
		r.Score = m.Score
		results = append(results, r)
	}

	logging.Debug("search: %d results from %d scanned under %s in %v",
		len(results), scanned, root, time.Since(start))
	return results, nil
}

func shouldSkipDir(name string, custom []string) bool {
	if skipDirs[name] {
		return true
	}
	for _, pattern := range custom {
		if strings.HasSuffix(pattern, "*") {
			if strings.HasPrefix(name, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		} else if name == pattern {
			return true
		}
	}
	return false
}

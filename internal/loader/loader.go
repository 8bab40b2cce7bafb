// Package loader finds parseable source files in a repository and yields
// them with language tags and content hashes. Unknown extensions are skipped
// here, never by the core.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/srcmirror/srcmirror/internal/lang"
)

// Source is one record handed to the extraction pipeline.
type Source struct {
	RepositoryID string
	Path         string // relative to repo root
	Language     string
	Bytes        []byte
	ContentHash  string // sha256, hex
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	"target":        {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

// Options tunes discovery.
type Options struct {
	// Languages restricts loading to the listed tags when non-empty.
	Languages []string
	// MaxFileSize skips files larger than this many bytes when positive.
	MaxFileSize int64
}

// Load walks root and returns source records sorted by path. Files inside
// ignored, hidden or vendored directories are skipped, as are symlinks.
func Load(repositoryID, root string, opts Options) ([]Source, error) {
	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		if lang.ForTag(l) == nil {
			return nil, fmt.Errorf("unsupported language %q", l)
		}
		langSet[l] = struct{}{}
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var sources []Source
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		tag := lang.ForExtension(filepath.Ext(name))
		if tag == "" {
			return nil
		}
		if len(langSet) > 0 {
			if _, ok := langSet[tag]; !ok {
				return nil
			}
		}

		if opts.MaxFileSize > 0 {
			if fi, err := d.Info(); err == nil && fi.Size() > opts.MaxFileSize {
				return nil
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		sum := sha256.Sum256(data)
		sources = append(sources, Source{
			RepositoryID: repositoryID,
			Path:         rel,
			Language:     tag,
			Bytes:        data,
			ContentHash:  hex.EncodeToString(sum[:]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})
	return sources, nil
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

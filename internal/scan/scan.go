// Package scan walks a source tree and feeds recognized files into the
// search index, skipping files whose content hash is already indexed.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"anticlaw/internal/meta"
	"anticlaw/internal/model"
)

// languageByExt maps recognized file extensions to language names.
var languageByExt = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
	".sql":  "sql",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".toml": "toml",
	".xml":  "xml",
	".html": "html",
	".css":  "css",
	".sh":   "shell",
	".rb":   "ruby",
	".c":    "c",
	".cpp":  "cpp",
	".h":    "c",
}

// readConcurrency bounds parallel file reads. Index writes stay on one
// goroutine; the store is single-writer.
const readConcurrency = 4

// Scanner reads source files and upserts them into the search index.
type Scanner struct {
	index       *meta.DB
	log         *zap.Logger
	projectID   string
	maxFileSize int64
	exclude     map[string]bool
}

// Options configures a Scanner.
type Options struct {
	ProjectID   string
	MaxFileSize int64    // bytes; 0 means 512 KiB
	Exclude     []string // directory names skipped during the walk
}

// New creates a Scanner writing into index.
func New(index *meta.DB, opts Options, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 512 * 1024
	}
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		exclude[name] = true
	}
	return &Scanner{
		index:       index,
		log:         log,
		projectID:   opts.ProjectID,
		maxFileSize: opts.MaxFileSize,
		exclude:     exclude,
	}
}

// Result summarizes one scan run.
type Result struct {
	Indexed   int
	Unchanged int
	Skipped   int
}

// ScanDir walks root, reading and hashing candidate files concurrently and
// indexing them on a single writer loop.
func (s *Scanner) ScanDir(ctx context.Context, root string) (Result, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (s.exclude[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := languageByExt[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("walking %s: %w", root, err)
	}

	type loaded struct {
		record model.SourceFileRecord
		skip   bool
	}

	g, ctx := errgroup.WithContext(ctx)
	out := make(chan loaded)

	g.Go(func() error {
		defer close(out)
		readers, rctx := errgroup.WithContext(ctx)
		readers.SetLimit(readConcurrency)
		for _, path := range paths {
			readers.Go(func() error {
				rec, skip, err := s.load(path)
				if err != nil {
					s.log.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
					skip = true
				}
				select {
				case out <- loaded{record: rec, skip: skip}:
					return nil
				case <-rctx.Done():
					return rctx.Err()
				}
			})
		}
		return readers.Wait()
	})

	var res Result
	for l := range out {
		if l.skip {
			res.Skipped++
			continue
		}
		prev, err := s.index.GetSourceFile(l.record.FilePath)
		if err != nil {
			return res, err
		}
		if prev != nil && prev.Hash == l.record.Hash {
			res.Unchanged++
			continue
		}
		if prev != nil {
			l.record.ID = prev.ID
		}
		if err := s.index.IndexSourceFile(l.record); err != nil {
			return res, err
		}
		res.Indexed++
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	s.log.Info("scan complete", zap.String("root", root),
		zap.Int("indexed", res.Indexed), zap.Int("unchanged", res.Unchanged),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// ScanFile indexes a single file. Returns false when the file was skipped
// (unrecognized extension, too large, or content unchanged).
func (s *Scanner) ScanFile(path string) (bool, error) {
	rec, skip, err := s.load(path)
	if err != nil {
		return false, err
	}
	if skip {
		return false, nil
	}
	prev, err := s.index.GetSourceFile(rec.FilePath)
	if err != nil {
		return false, err
	}
	if prev != nil {
		if prev.Hash == rec.Hash {
			return false, nil
		}
		rec.ID = prev.ID
	}
	if err := s.index.IndexSourceFile(rec); err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops a file from the index, e.g. after deletion on disk.
func (s *Scanner) Remove(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	return s.index.DeleteSourceFile(abs)
}

// load reads and hashes one file. skip is true for unrecognized or
// oversized files.
func (s *Scanner) load(path string) (model.SourceFileRecord, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := languageByExt[ext]
	if !ok {
		return model.SourceFileRecord{}, true, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return model.SourceFileRecord{}, false, err
	}
	if info.Size() > s.maxFileSize {
		return model.SourceFileRecord{}, true, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return model.SourceFileRecord{}, false, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.SourceFileRecord{}, false, err
	}
	sum := sha256.Sum256(content)
	return model.SourceFileRecord{
		ID:        fileID(abs),
		FilePath:  abs,
		Filename:  filepath.Base(abs),
		Extension: ext,
		Language:  lang,
		Size:      info.Size(),
		Hash:      hex.EncodeToString(sum[:]),
		IndexedAt: time.Now().UTC(),
		ProjectID: s.projectID,
		Content:   string(content),
	}, false, nil
}

// fileID derives a stable record id from the absolute path, so repeated
// scans upsert the same row.
func fileID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return "src-" + hex.EncodeToString(sum[:8])
}

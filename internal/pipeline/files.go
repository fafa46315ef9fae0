package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/revalida/internal/fileid"
	"github.com/hyperjump/revalida/internal/metrics"
	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/internal/storage"
	"go.uber.org/zap"
)

// answerKeySuffix marks an answer-key file next to its exam: prova.pdf, prova_gabarito.txt.
const answerKeySuffix = "_gabarito"

// IsAnswerKeyFile reports whether path names an answer key rather than an exam.
func IsAnswerKeyFile(path string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(strings.ToLower(stem), answerKeySuffix)
}

// FindAnswerKey returns the path of the <base>_gabarito.<ext> sibling of an exam, or ""
// when there is none. Names are compared case-insensitively; the first match in name
// order wins.
func FindAnswerKey(examPath string) string {
	dir := filepath.Dir(examPath)
	base := filepath.Base(examPath)
	want := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)) + answerKeySuffix)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))) == want {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[0])
}

// ExtractFile extracts the exam at path, using a sibling answer-key file when present.
// answerKeyPath overrides the sibling lookup when non-empty. A PDF whose content digest
// matches a stored extraction is not extracted again; ErrAlreadyExtracted is returned.
func (p *Pipeline) ExtractFile(ctx context.Context, path, answerKeyPath string) (*models.Extraction, error) {
	if IsAnswerKeyFile(path) {
		return nil, fmt.Errorf("%w: %s is an answer key", ErrInvalidUpload, filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", ErrInvalidUpload, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	if m, err := p.findByDigest(ctx, fileid.ContentDigest(content)); err == nil {
		p.metrics.ObserveExtraction(metrics.OutcomeSkipped, 0, 0, 0)
		return nil, fmt.Errorf("%s matches extraction %s: %w", filepath.Base(path), m.ExtractionID, ErrAlreadyExtracted)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up digest: %w", err)
	}

	u := &Upload{Filename: filepath.Base(path), Content: content}
	if answerKeyPath == "" {
		answerKeyPath = FindAnswerKey(path)
	}
	if answerKeyPath != "" {
		key, err := os.ReadFile(answerKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read answer key: %w", err)
		}
		u.AnswerKeyFilename = filepath.Base(answerKeyPath)
		u.AnswerKey = key
		p.logger.Debug("using answer key", zap.String("exam", path), zap.String("answer_key", answerKeyPath))
	}
	return p.Extract(ctx, u)
}

// findByDigest looks the digest up in the catalog, or in the extraction folders when
// the pipeline runs without one.
func (p *Pipeline) findByDigest(ctx context.Context, digest string) (*models.Metadata, error) {
	if p.catalog != nil {
		return p.catalog.FindByDigest(ctx, digest)
	}
	return p.store.FindByDigest(digest)
}

// ExtractDirectory walks dir and extracts every exam whose extension is in allowedExts
// (all files when empty). Already extracted files are skipped; other per-file failures
// are logged. It returns the number of new extractions.
func (p *Pipeline) ExtractDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", dir)
	}
	n := 0
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !ExtensionAllowed(filepath.Ext(path), allowedExts) || IsAnswerKeyFile(path) {
			return nil
		}
		if _, err := p.ExtractFile(ctx, path, ""); err != nil {
			if errors.Is(err, ErrAlreadyExtracted) {
				p.logger.Debug("skipping extracted file", zap.String("path", path))
				return nil
			}
			p.logger.Warn("failed to extract file", zap.String("path", path), zap.Error(err))
			return nil
		}
		n++
		return nil
	})
	return n, err
}

// ExtensionAllowed reports whether ext is in allowed, ignoring case and the leading dot.
// An empty allowed list permits every extension.
func ExtensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

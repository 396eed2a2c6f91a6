// Package reference gathers real-world announcements used to reconcile
// templates. References live on disk under one directory per template type.
package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/service"
)

// DefaultInclude matches the reference formats the collector understands.
var DefaultInclude = []string{"**/*.md", "**/*.txt", "**/*.html", "**/*.htm"}

// maxReferenceBytes bounds a single reference file.
const maxReferenceBytes = 2 << 20

// FileCollector implements service.ReferenceCollector over a directory tree
// laid out as <root>/<template type>/**.
type FileCollector struct {
	fsys    fs.FS
	include []string
	exclude []string
}

var _ service.ReferenceCollector = (*FileCollector)(nil)

// NewFileCollector creates a collector rooted at dir.
func NewFileCollector(dir string, include, exclude []string) *FileCollector {
	return NewFSCollector(os.DirFS(dir), include, exclude)
}

// NewFSCollector creates a collector over an arbitrary filesystem.
func NewFSCollector(fsys fs.FS, include, exclude []string) *FileCollector {
	if len(include) == 0 {
		include = DefaultInclude
	}
	return &FileCollector{fsys: fsys, include: include, exclude: exclude}
}

// Collect returns references for templateType modified at or after since,
// oldest first. A missing type directory yields no references.
func (c *FileCollector) Collect(ctx context.Context, templateType string, since time.Time) ([]service.Reference, error) {
	if strings.ContainsAny(templateType, `/\`) || strings.Contains(templateType, "..") {
		return nil, fmt.Errorf("%w: template type %q", common.ErrInvalidInput, templateType)
	}

	sub, err := fs.Sub(c.fsys, templateType)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference directory: %w", err)
	}
	if _, err := fs.Stat(sub, "."); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No reference directory for template type", "template_type", templateType)
		return nil, nil
	}

	paths, err := c.match(sub)
	if err != nil {
		return nil, err
	}

	var refs []service.Reference
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := fs.Stat(sub, p)
		if err != nil {
			slog.Warn("Skipping unreadable reference", "path", p, "error", err)
			continue
		}
		if info.ModTime().Before(since) || info.Size() > maxReferenceBytes {
			continue
		}

		content, err := readReference(sub, p)
		if err != nil {
			slog.Warn("Skipping unreadable reference", "path", p, "error", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		refs = append(refs, service.Reference{
			ObservedAt: info.ModTime(),
			Source:     path.Join(templateType, p),
			Content:    content,
		})
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].ObservedAt.Equal(refs[j].ObservedAt) {
			return refs[i].Source < refs[j].Source
		}
		return refs[i].ObservedAt.Before(refs[j].ObservedAt)
	})

	slog.Debug("Collected references", "template_type", templateType, "count", len(refs), "since", since)
	return refs, nil
}

func (c *FileCollector) match(fsys fs.FS) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range c.include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup || c.excluded(m) {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *FileCollector) excluded(p string) bool {
	for _, pattern := range c.exclude {
		if matched, err := doublestar.PathMatch(pattern, p); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}

func readReference(fsys fs.FS, p string) (string, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return common.HTMLText(bytes.NewReader(data))
	default:
		return string(data), nil
	}
}

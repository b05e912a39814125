package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"tourrag/internal/domain"
	"tourrag/internal/port"
)

// Loader discovers source files under a set of directories and parses each
// one by extension.
type Loader struct {
	walker port.FileWalker
	dirs   []string
	logger arbor.ILogger
}

var _ port.SourceLoader = (*Loader)(nil)

func NewLoader(walker port.FileWalker, dirs []string, logger arbor.ILogger) *Loader {
	return &Loader{walker: walker, dirs: dirs, logger: logger}
}

// Load returns the documents of every readable file. Files that fail to
// parse are logged and skipped; a directory that cannot be walked is fatal.
func (l *Loader) Load(ctx context.Context) ([]domain.SourceDocument, error) {
	var docs []domain.SourceDocument

	for _, dir := range l.dirs {
		files, err := l.walker.Walk(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}

		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			parsed, err := ParseFile(f.Path)
			if err != nil {
				l.logger.Warn().Err(err).Str("file", f.Path).Msg("Skipping unreadable source file")
				continue
			}
			docs = append(docs, parsed...)
		}

		l.logger.Debug().Str("dir", dir).Int("files", len(files)).Msg("Source directory scanned")
	}

	return docs, nil
}

// ParseFile reads one source file into documents.
func ParseFile(path string) ([]domain.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	label := Label(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(data, path, label)
	case ".md", ".markdown":
		title, content := parseMarkdown(data)
		return single(path, label, title, content), nil
	case ".html", ".htm":
		title, content, err := parseHTML(data)
		if err != nil {
			return nil, err
		}
		return single(path, label, title, content), nil
	case ".txt":
		title, content := parseText(string(data))
		return single(path, label, title, content), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", filepath.Ext(path))
	}
}

// Label is the short source collection name used in record ids: the file
// name without its extension.
func Label(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func single(path, label, title, content string) []domain.SourceDocument {
	if title == "" {
		title = label
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return []domain.SourceDocument{{
		ID:          label,
		SourceFile:  filepath.Base(path),
		SourceLabel: label,
		Title:       title,
		Content:     content,
	}}
}

// parseText takes a short first line as the title.
func parseText(data string) (string, string) {
	data = strings.TrimSpace(data)
	first, rest, found := strings.Cut(data, "\n")
	first = strings.TrimSpace(first)
	if !found || first == "" || len(first) > 120 {
		return "", data
	}
	return first, strings.TrimSpace(rest)
}

package ingest

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// SourceDocument is one loaded file before chunking.
type SourceDocument struct {
	Content string
	Source  string
}

// LoadPath loads documents from a file or directory. Directories are walked
// recursively; unsupported file types are skipped silently during a scan but
// rejected when named directly.
func LoadPath(path string) ([]SourceDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path %s does not exist: %w", path, err)
	}

	if !info.IsDir() {
		doc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		return []SourceDocument{doc}, nil
	}

	var docs []SourceDocument
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		doc, err := loadFile(p)
		if err != nil {
			// Skip unsupported or unreadable files in a directory scan.
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}

	return docs, nil
}

func loadFile(path string) (SourceDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return SourceDocument{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return SourceDocument{Content: string(content), Source: path}, nil

	case ".pdf":
		text, err := extractPDFText(path)
		if err != nil {
			return SourceDocument{}, fmt.Errorf("failed to extract text from %s: %w", path, err)
		}
		return SourceDocument{Content: text, Source: path}, nil

	default:
		return SourceDocument{}, fmt.Errorf("unsupported file type: %s", path)
	}
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

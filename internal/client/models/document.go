package models

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// AllowedDocumentExtensions lists the file types the upload form accepts.
var AllowedDocumentExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx"}

var ErrUnsupportedDocument = errors.New("unsupported document type")

// Document is a file queued for upload. Open is called once per attempt.
type Document struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// DocumentFromPath describes a local file as a Document.
func DocumentFromPath(path string) (Document, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}

	name := filepath.Base(path)
	return Document{
		Name:        name,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(name))),
		Size:        fi.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// CheckType returns ErrUnsupportedDocument unless the extension is allowed.
func (d Document) CheckType() error {
	ext := strings.ToLower(filepath.Ext(d.Name))
	for _, allowed := range AllowedDocumentExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedDocument, d.Name)
}

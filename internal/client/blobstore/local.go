package blobstore

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/filex"
)

// LocalSaver writes blobs into a directory, picking name-1.ext, name-2.ext
// and so on when name is taken.
type LocalSaver struct {
	dir     string
	onSaved SavedFunc
}

func NewLocalSaver(dir string, onSaved SavedFunc) *LocalSaver {
	return &LocalSaver{dir: dir, onSaved: onSaved}
}

func (s *LocalSaver) SaveBlobAs(ctx context.Context, blob models.Blob, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := filex.EnsureDir(s.dir)
	if err != nil {
		return err
	}

	path, err := filex.UniquePath(dir, filex.SanitizeFilename(name))
	if err != nil {
		return err
	}

	// O_EXCL: lose a race with another writer rather than clobber its file
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(blob.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if s.onSaved != nil {
		s.onSaved(path)
	}
	return nil
}

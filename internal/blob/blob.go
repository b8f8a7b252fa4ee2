package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/chatwire/chat-service/internal/models"
)

// Store accepts a file and returns a retrievable URL plus metadata. The
// provider behind it is interchangeable; the rest of the service only
// depends on this interface.
type Store interface {
	Save(ctx context.Context, fileName string, contentType string, r io.Reader) (*models.FileMeta, error)
}

// DiskStore keeps uploads on the local filesystem and serves them back
// through the HTTP file route.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir string, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("can't create upload dir: %w", err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: baseURL,
	}, nil
}

func (s *DiskStore) Save(ctx context.Context, fileName string, contentType string, r io.Reader) (*models.FileMeta, error) {
	stored := uuid.NewString() + filepath.Ext(fileName)

	f, err := os.Create(filepath.Join(s.dir, stored))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}

	return &models.FileMeta{
		URL:  s.baseURL + "/" + stored,
		Name: fileName,
		Size: size,
		Mime: contentType,
	}, nil
}

package watchlist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// SnapshotStore is the durable home of the serialized store.
// Load returns nil data and no error when nothing has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// BlobStore is a keyed blob table, satisfied by settings.Repository.
type BlobStore interface {
	GetBlob(ctx context.Context, key string) ([]byte, error)
	SetBlob(ctx context.Context, key string, value []byte) error
}

// KVSnapshotStore keeps the snapshot under a fixed key in config.db.
type KVSnapshotStore struct {
	blobs BlobStore
	key   string
}

// NewKVSnapshotStore stores snapshots under SnapshotKey.
func NewKVSnapshotStore(blobs BlobStore) *KVSnapshotStore {
	return &KVSnapshotStore{blobs: blobs, key: SnapshotKey}
}

// Load implements SnapshotStore
func (s *KVSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	return s.blobs.GetBlob(ctx, s.key)
}

// Save implements SnapshotStore
func (s *KVSnapshotStore) Save(ctx context.Context, data []byte) error {
	return s.blobs.SetBlob(ctx, s.key, data)
}

// FileSnapshotStore keeps the snapshot in a JSON file. Writes go to a
// temporary file first and are renamed into place.
type FileSnapshotStore struct {
	fs   afero.Fs
	path string
}

// NewFileSnapshotStore creates a file-backed store on the given filesystem.
func NewFileSnapshotStore(fsys afero.Fs, path string) *FileSnapshotStore {
	return &FileSnapshotStore{fs: fsys, path: path}
}

// Load implements SnapshotStore
func (s *FileSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", s.path, err)
	}
	return data, nil
}

// Save implements SnapshotStore
func (s *FileSnapshotStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

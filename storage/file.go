package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes one gzip+gob file per run and kind inside a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Init(_ context.Context) error {
	if s.dir == "" {
		return errors.New("file store directory is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory '%s': %w", s.dir, err)
	}
	return nil
}

// Path returns the file a record for runID and kind is stored in.
func (s *FileStore) Path(runID, kind string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.gob.gz", sanitize(runID), sanitize(kind)))
}

func (s *FileStore) SaveNetwork(_ context.Context, record Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	// Write to a temporary file first so a failed write never clobbers the previous champion.
	target := s.Path(record.RunID, record.Kind)
	tmp := target + ".tmp"
	if err := WriteRecordFile(tmp, record); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move network file into place: %w", err)
	}
	return nil
}

func (s *FileStore) GetNetwork(_ context.Context, runID, kind string) (Record, bool, error) {
	path := s.Path(runID, kind)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	record, err := ReadRecordFile(path)
	if err != nil {
		return Record{}, false, err
	}
	return record, true, nil
}

func (s *FileStore) Close() error {
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
}

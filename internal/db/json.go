package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bill_spider/internal/models"
)

// JSONStore keeps the bill set as one indented JSON object on disk.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load returns os.ErrNotExist (wrapped) when the file has not been written yet.
func (s *JSONStore) Load(ctx context.Context) (models.BillSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	bills := models.BillSet{}
	if err := json.Unmarshal(data, &bills); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return bills, nil
}

// Save writes to a temp file in the destination directory and renames it over
// the destination, so readers never see a half-written file.
func (s *JSONStore) Save(ctx context.Context, bills models.BillSet) error {
	if bills == nil {
		bills = models.BillSet{}
	}
	data, err := json.MarshalIndent(bills, "", "    ")
	if err != nil {
		return fmt.Errorf("encode bills: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *JSONStore) Close() error {
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
)

// FileStore keeps each project in <dir>/<id>.json.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a file store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidPath, "store directory is empty")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "create store dir")
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

// Path returns the base directory.
func (s *FileStore) Path() string { return s.baseDir }

func (s *FileStore) projectPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "read store dir")
	}
	out := []Summary{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		rec, err := s.read(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, rec.summary())
	}
	slices.SortFunc(out, func(a, b Summary) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (s *FileStore) Create(ctx context.Context, title string) (graph.Project, error) {
	title, err := titleOr(title, graph.DefaultTitle)
	if err != nil {
		return graph.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := newRecord(title, s.now())
	if err := s.write(rec); err != nil {
		return graph.Project{}, err
	}
	return rec.project(), nil
}

func (s *FileStore) Load(ctx context.Context, id string) (graph.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.get(id)
	if err != nil {
		return graph.Document{}, err
	}
	return rec.document(), nil
}

func (s *FileStore) Save(ctx context.Context, id string, doc graph.Document) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(id)
	if err != nil {
		return SaveResult{}, err
	}
	rep := rec.setContents(doc, s.now())
	if err := s.write(rec); err != nil {
		return SaveResult{}, err
	}
	return rec.saveResult(rep), nil
}

func (s *FileStore) Rename(ctx context.Context, id, title string) (graph.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(id)
	if err != nil {
		return graph.Project{}, err
	}
	if rec.Title, err = titleOr(title, rec.Title); err != nil {
		return graph.Project{}, err
	}
	rec.UpdatedAt = s.now()
	if err := s.write(rec); err != nil {
		return graph.Project{}, err
	}
	return rec.project(), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := apperrors.ValidateProjectID(id); err != nil {
		return notFound(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.projectPath(id)); err != nil {
		if os.IsNotExist(err) {
			return notFound(id)
		}
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "remove project %s", id)
	}
	return nil
}

func (s *FileStore) Import(ctx context.Context, doc graph.Document) (graph.Project, error) {
	title, err := titleOr(doc.Project.Title, graph.ImportedTitle)
	if err != nil {
		return graph.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := newRecord(title, s.now())
	rec.setContents(doc, rec.CreatedAt)
	if err := s.write(rec); err != nil {
		return graph.Project{}, err
	}
	return rec.project(), nil
}

func (s *FileStore) Close() error { return nil }

// get reads a project. The caller holds the lock.
func (s *FileStore) get(id string) (record, error) {
	if err := apperrors.ValidateProjectID(id); err != nil {
		return record{}, notFound(id)
	}
	rec, err := s.read(s.projectPath(id))
	if os.IsNotExist(err) {
		return record{}, notFound(id)
	}
	return rec, err
}

func (s *FileStore) read(path string) (record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "parse %s", filepath.Base(path))
	}
	return rec, nil
}

// write replaces the project file atomically. The caller holds the lock.
func (s *FileStore) write(rec record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	tmp, err := os.CreateTemp(s.baseDir, rec.ID+".*.tmp")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write project %s", rec.ID)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write project %s", rec.ID)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write project %s", rec.ID)
	}
	if err := os.Rename(tmp.Name(), s.projectPath(rec.ID)); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "write project %s", rec.ID)
	}
	return nil
}

var _ Store = (*FileStore)(nil)

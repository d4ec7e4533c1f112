package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syllabai/syllabai/internal/storage"
)

func (s *Store) CreateSyllabus(ctx context.Context, syl *storage.Syllabus) error {
	if syl.UserID == "" {
		return fmt.Errorf("UserID required")
	}
	if syl.FileURL == "" {
		return fmt.Errorf("FileURL required")
	}
	if syl.ID == "" {
		syl.ID = uuid.New().String()
	}
	if !validID(syl.ID) {
		return fmt.Errorf("invalid id %q", syl.ID)
	}
	if syl.Stage == "" {
		syl.Stage = storage.StageUploaded
	}
	now := time.Now().UTC()
	syl.CreatedAt, syl.UpdatedAt = now, now

	return s.withLock(syl.ID, func() error {
		path := s.syllabusPath(syl.ID)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("syllabus %s already exists", syl.ID)
		}
		return writeJSON(path, toFile(syl))
	})
}

func (s *Store) GetSyllabus(ctx context.Context, id string) (*storage.Syllabus, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	var out *storage.Syllabus
	err := s.withLock(id, func() error {
		var err error
		out, err = s.load(id)
		return err
	})
	return out, err
}

func (s *Store) ListSyllabiByUser(ctx context.Context, userID string) ([]*storage.Syllabus, error) {
	entries, err := os.ReadDir(s.syllabiDir())
	if err != nil {
		return nil, err
	}
	var out []*storage.Syllabus
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		var f syllabusFile
		if err := readJSON(s.syllabusPath(strings.TrimSuffix(name, ".json")), &f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			s.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable record")
			continue
		}
		if f.UserID == userID {
			out = append(out, f.toSyllabus())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateStage(ctx context.Context, id string, stage storage.Stage) error {
	return s.update(id, func(syl *storage.Syllabus) {
		syl.Stage = stage
		syl.UpdatedAt = time.Now().UTC()
	})
}

func (s *Store) SaveResult(ctx context.Context, id string, r storage.Result) error {
	return s.update(id, r.Apply)
}

func (s *Store) update(id string, fn func(*storage.Syllabus)) error {
	if !validID(id) {
		return storage.ErrNotFound
	}
	return s.withLock(id, func() error {
		syl, err := s.load(id)
		if err != nil {
			return err
		}
		fn(syl)
		return writeJSON(s.syllabusPath(id), toFile(syl))
	})
}

func (s *Store) load(id string) (*storage.Syllabus, error) {
	var f syllabusFile
	if err := readJSON(s.syllabusPath(id), &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return f.toSyllabus(), nil
}

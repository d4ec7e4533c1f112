package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/syllabai/syllabai/internal/storage"
)

const syllabusColumns = `id::text, user_id, title, file_url, stage, processed, processing_failed,
	error, error_at, analysis, calendar_ics, processed_at, created_at, updated_at`

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
	if syl.Stage == "" {
		syl.Stage = storage.StageUploaded
	}
	now := time.Now().UTC()
	syl.CreatedAt, syl.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx, `
		insert into syllabi (id, user_id, title, file_url, stage, created_at, updated_at)
		values ($1::uuid, $2, $3, $4, $5, $6, $6)
	`, syl.ID, syl.UserID, syl.Title, syl.FileURL, string(syl.Stage), now)
	return err
}

func (s *Store) GetSyllabus(ctx context.Context, id string) (*storage.Syllabus, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, storage.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `select `+syllabusColumns+` from syllabi where id = $1::uuid`, id)
	syl, err := scanSyllabus(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return syl, err
}

func (s *Store) ListSyllabiByUser(ctx context.Context, userID string) ([]*storage.Syllabus, error) {
	rows, err := s.pool.Query(ctx, `
		select `+syllabusColumns+`
		from syllabi where user_id = $1
		order by created_at desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*storage.Syllabus
	for rows.Next() {
		syl, err := scanSyllabus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, syl)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStage(ctx context.Context, id string, stage storage.Stage) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		update syllabi set stage = $2, updated_at = now()
		where id = $1::uuid
	`, id, string(stage))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SaveResult(ctx context.Context, id string, r storage.Result) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	at := r.At.UTC()

	var (
		sql  string
		args []any
	)
	if r.Failed {
		sql = `
			update syllabi set
			  stage = $2, processed = true, processing_failed = true,
			  error = $3, error_at = $4, updated_at = $4
			where id = $1::uuid`
		args = []any{id, string(storage.StageFailed), r.Error, at}
	} else {
		sql = `
			update syllabi set
			  stage = $2, processed = true, processing_failed = false,
			  error = '', error_at = null,
			  analysis = $3::jsonb, calendar_ics = $4, processed_at = $5, updated_at = $5
			where id = $1::uuid`
		args = []any{id, string(storage.StageProcessed), nullJSON(r.Analysis), r.CalendarICS, at}
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSyllabus(row pgx.Row) (*storage.Syllabus, error) {
	var (
		syl      storage.Syllabus
		stage    string
		analysis []byte
	)
	if err := row.Scan(&syl.ID, &syl.UserID, &syl.Title, &syl.FileURL, &stage, &syl.Processed, &syl.ProcessingFailed,
		&syl.Error, &syl.ErrorAt, &analysis, &syl.CalendarICS, &syl.ProcessedAt, &syl.CreatedAt, &syl.UpdatedAt); err != nil {
		return nil, err
	}
	syl.Stage = storage.Stage(stage)
	if len(analysis) > 0 {
		syl.Analysis = analysis
	}
	return &syl, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

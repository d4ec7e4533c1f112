package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syllabai/syllabai/internal/storage"
)

const syllabusColumns = `id, user_id, title, file_url, stage, processed, processing_failed,
	error, error_at, analysis, calendar_ics, processed_at, created_at, updated_at`

// Timestamps are stored as fixed-width UTC text so both drivers read them back
// alike and ORDER BY sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO syllabi (id, user_id, title, file_url, stage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, syl.ID, syl.UserID, syl.Title, syl.FileURL, string(syl.Stage), now.Format(timeLayout), now.Format(timeLayout))
	return err
}

func (s *Store) GetSyllabus(ctx context.Context, id string) (*storage.Syllabus, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+syllabusColumns+` FROM syllabi WHERE id = ?`, id)
	syl, err := scanSyllabus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return syl, err
}

func (s *Store) ListSyllabiByUser(ctx context.Context, userID string) ([]*storage.Syllabus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+syllabusColumns+`
		FROM syllabi WHERE user_id = ?
		ORDER BY created_at DESC
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
	res, err := s.db.ExecContext(ctx, `
		UPDATE syllabi SET stage = ?, updated_at = ?
		WHERE id = ?
	`, string(stage), time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) SaveResult(ctx context.Context, id string, r storage.Result) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+syllabusColumns+` FROM syllabi WHERE id = ?`, id)
		syl, err := scanSyllabus(row)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		r.Apply(syl)

		_, err = tx.ExecContext(ctx, `
			UPDATE syllabi SET
				stage = ?, processed = ?, processing_failed = ?,
				error = ?, error_at = ?, analysis = ?, calendar_ics = ?,
				processed_at = ?, updated_at = ?
			WHERE id = ?
		`, string(syl.Stage), syl.Processed, syl.ProcessingFailed,
			syl.Error, formatTimePtr(syl.ErrorAt), nullText(syl.Analysis), syl.CalendarICS,
			formatTimePtr(syl.ProcessedAt), syl.UpdatedAt.Format(timeLayout), id)
		return err
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSyllabus(row scanner) (*storage.Syllabus, error) {
	var (
		syl                  storage.Syllabus
		stage                string
		errorAt, processedAt sql.NullString
		analysis, calendar   sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&syl.ID, &syl.UserID, &syl.Title, &syl.FileURL, &stage, &syl.Processed, &syl.ProcessingFailed,
		&syl.Error, &errorAt, &analysis, &calendar, &processedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	syl.Stage = storage.Stage(stage)
	if analysis.Valid && analysis.String != "" {
		syl.Analysis = []byte(analysis.String)
	}
	if calendar.Valid {
		doc := calendar.String
		syl.CalendarICS = &doc
	}

	var err error
	if syl.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if syl.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if syl.ErrorAt, err = parseTimePtr(errorAt); err != nil {
		return nil, fmt.Errorf("error_at: %w", err)
	}
	if syl.ProcessedAt, err = parseTimePtr(processedAt); err != nil {
		return nil, fmt.Errorf("processed_at: %w", err)
	}
	return &syl, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullText(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/nutrisnap/internal/domain"
)

var ErrNotFound = errors.New("analysis not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

type AnalysisStore struct {
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

// Create inserts a. CreatedAt is set to the current time if zero.
func (s *AnalysisStore) Create(ctx context.Context, a *domain.Analysis) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	foods := a.Foods
	if foods == nil {
		foods = []domain.NutritionRecord{}
	}
	foodsJSON, err := json.Marshal(foods)
	if err != nil {
		return fmt.Errorf("failed to encode foods: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, status, error, vision_model, text_model, image_key, image_mime,
			foods, vision_raw, nutrition_raw, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Status, a.Error, a.VisionModel, a.TextModel, a.ImageKey, a.ImageMIME,
		string(foodsJSON), a.VisionRaw, a.NutritionRaw, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, status, error, vision_model, text_model, image_key, image_mime,
	foods, vision_raw, nutrition_raw, created_at FROM analyses`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*domain.Analysis, error) {
	a := &domain.Analysis{}
	var foodsJSON string
	if err := row.Scan(&a.ID, &a.Status, &a.Error, &a.VisionModel, &a.TextModel, &a.ImageKey,
		&a.ImageMIME, &foodsJSON, &a.VisionRaw, &a.NutritionRaw, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(foodsJSON), &a.Foods); err != nil {
		return nil, fmt.Errorf("failed to decode foods for analysis %s: %w", a.ID, err)
	}
	return a, nil
}

// GetByID returns nil, nil when no analysis has the given id.
func (s *AnalysisStore) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	a, err := scanAnalysis(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// List returns the most recent analyses, newest first.
func (s *AnalysisStore) List(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	analyses := make([]*domain.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}
	return analyses, nil
}

func (s *AnalysisStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/crucial707/auditlog-admin/internal/models"
)

// ContentTypeRepo persists the registry of tracked models.
type ContentTypeRepo struct {
	DB *sql.DB
}

func NewContentTypeRepo(db *sql.DB) *ContentTypeRepo {
	return &ContentTypeRepo{DB: db}
}

// List returns all content types ordered by app label and model.
func (r *ContentTypeRepo) List(ctx context.Context) ([]models.ContentType, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, app_label, model FROM content_types ORDER BY app_label, model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.ContentType{}
	for rows.Next() {
		var c models.ContentType
		if err := rows.Scan(&c.ID, &c.AppLabel, &c.Model); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *ContentTypeRepo) GetByID(ctx context.Context, id int) (*models.ContentType, error) {
	c := &models.ContentType{}
	err := r.DB.QueryRowContext(ctx, `SELECT id, app_label, model FROM content_types WHERE id = $1`, id).
		Scan(&c.ID, &c.AppLabel, &c.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetOrCreate returns the content type for appLabel.model, inserting it when missing.
func (r *ContentTypeRepo) GetOrCreate(ctx context.Context, appLabel, model string) (*models.ContentType, error) {
	c := &models.ContentType{}
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO content_types (app_label, model)
		VALUES ($1, $2)
		ON CONFLICT (app_label, model) DO UPDATE SET app_label = EXCLUDED.app_label
		RETURNING id, app_label, model
	`, appLabel, model).Scan(&c.ID, &c.AppLabel, &c.Model)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a content type. Log entries referencing it are removed by the FK cascade.
func (r *ContentTypeRepo) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM content_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

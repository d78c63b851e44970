package catalog

import (
	"context"
	"database/sql"
	"time"
)

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository interface {
	CreatePhoto(ctx context.Context, photo *Photo) error
	GetPhoto(ctx context.Context, id string) (*Photo, error)
	ListPhotos(ctx context.Context, limit int) ([]*Photo, error)
	DeletePhoto(ctx context.Context, id string) error
	CountPhotos(ctx context.Context) (int, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreatePhoto(ctx context.Context, p *Photo) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO photos (id, title, image, qr_code, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.Image, nullString(p.QRCode), p.CreatedAt.UTC().Format(timeLayout))
	return err
}

// GetPhoto returns nil, nil when no photo has the id.
func (r *SQLiteRepository) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, image, qr_code, created_at
		FROM photos WHERE id = ?
	`, id)

	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListPhotos returns the newest photos first. A limit <= 0 lists all.
func (r *SQLiteRepository) ListPhotos(ctx context.Context, limit int) ([]*Photo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, image, qr_code, created_at
		FROM photos ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (r *SQLiteRepository) DeletePhoto(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM photos WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountPhotos(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s scanner) (*Photo, error) {
	var p Photo
	var qr sql.NullString
	var createdAt string
	if err := s.Scan(&p.ID, &p.Title, &p.Image, &qr, &createdAt); err != nil {
		return nil, err
	}
	p.QRCode = qr.String
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

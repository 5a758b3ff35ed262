package repository

import (
	"github.com/jackc/pgx/v4/pgxpool"
)

type Repository struct {
	db     *pgxpool.Pool
	Events EventRepository
	Images ImageRepository
	Files  FileRepository
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db:     db,
		Events: NewGalleryRepo(db),
		Images: NewImageRepository(db),
		Files:  NewFileRepository(db),
	}
}

func (r *Repository) Close() {
	r.db.Close()
}

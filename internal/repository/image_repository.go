package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const imagesTable = "gallery_images"

var imageColumns = []string{
	"id",
	"event_id",
	"image_url",
	"storage_id",
	"caption",
	"position",
	"uploaded_by",
	"created_at",
}

type ImageRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewImageRepository(db *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateImage сохраняет изображение события. Несуществующее событие -> ErrEventNotFound.
func (r *ImageRepo) CreateImage(ctx context.Context, image models.GalleryImage) (uuid.UUID, error) {
	const op = "repository.ImageRepo.CreateImage"

	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.sb.Insert(imagesTable).
		Columns(imageColumns...).
		Values(
			image.ID,
			image.EventID,
			image.ImageURL,
			image.StorageID,
			image.Caption,
			image.Order,
			image.UploadedBy,
			image.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrEventNotFound)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *ImageRepo) GetImageByID(ctx context.Context, id uuid.UUID) (models.GalleryImage, error) {
	const op = "repository.ImageRepo.GetImageByID"

	query, args, err := r.sb.Select(imageColumns...).
		From(imagesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.GalleryImage{}, fmt.Errorf("%s: %w", op, err)
	}

	image, err := scanImage(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.GalleryImage{}, fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
		}
		return models.GalleryImage{}, fmt.Errorf("%s: %w", op, err)
	}

	return image, nil
}

func (r *ImageRepo) DeleteImage(ctx context.Context, id uuid.UUID) error {
	const op = "repository.ImageRepo.DeleteImage"

	query, args, err := r.sb.Delete(imagesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
	}

	return nil
}

// ListImagesByEvent возвращает изображения события в порядке отображения.
// Для несуществующего события возвращается пустой список.
func (r *ImageRepo) ListImagesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.GalleryImage, error) {
	const op = "repository.ImageRepo.ListImagesByEvent"

	query, args, err := r.sb.Select(imageColumns...).
		From(imagesTable).
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("position", "created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	images := []models.GalleryImage{}
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return images, nil
}

func scanImage(row pgx.Row) (models.GalleryImage, error) {
	var image models.GalleryImage
	err := row.Scan(
		&image.ID,
		&image.EventID,
		&image.ImageURL,
		&image.StorageID,
		&image.Caption,
		&image.Order,
		&image.UploadedBy,
		&image.CreatedAt,
	)
	return image, err
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const filesTable = "stored_files"

var ErrDuplicateStorageID = errors.New("storage id already exists")

type FileRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewFileRepository(db *pgxpool.Pool) *FileRepo {
	return &FileRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *FileRepo) CreateFile(ctx context.Context, file models.StoredFile) error {
	const op = "repository.FileRepo.CreateFile"

	if err := file.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Insert(filesTable).
		Columns("storage_id", "object_key", "content_type", "detected_type", "size").
		Values(file.StorageID, file.ObjectKey, file.ContentType, file.DetectedType, file.Size).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%s: %w", op, ErrDuplicateStorageID)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *FileRepo) GetFile(ctx context.Context, storageID string) (models.StoredFile, error) {
	const op = "repository.FileRepo.GetFile"

	query, args, err := r.sb.Select(
		"storage_id",
		"object_key",
		"content_type",
		"detected_type",
		"size",
		"file_name",
		"url",
		"created_at",
	).
		From(filesTable).
		Where(sq.Eq{"storage_id": storageID}).
		ToSql()
	if err != nil {
		return models.StoredFile{}, fmt.Errorf("%s: %w", op, err)
	}

	var file models.StoredFile
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&file.StorageID,
		&file.ObjectKey,
		&file.ContentType,
		&file.DetectedType,
		&file.Size,
		&file.FileName,
		&file.URL,
		&file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StoredFile{}, fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
		}
		return models.StoredFile{}, fmt.Errorf("%s: %w", op, err)
	}

	return file, nil
}

// RecordFileInfo запоминает исходное имя файла и выданный публичный URL
func (r *FileRepo) RecordFileInfo(ctx context.Context, storageID, fileName, url string) error {
	const op = "repository.FileRepo.RecordFileInfo"

	query, args, err := r.sb.Update(filesTable).
		Set("file_name", fileName).
		Set("url", url).
		Where(sq.Eq{"storage_id": storageID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
	}

	return nil
}

func (r *FileRepo) DeleteFile(ctx context.Context, storageID string) error {
	const op = "repository.FileRepo.DeleteFile"

	query, args, err := r.sb.Delete(filesTable).
		Where(sq.Eq{"storage_id": storageID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
	}

	return nil
}

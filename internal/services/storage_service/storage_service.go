package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/lib/logger/sl"
	"school_gallery/internal/metrics"
	"school_gallery/internal/repository"
	"school_gallery/internal/storage"
	filestorage "school_gallery/internal/storage/filestorage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffLen - сколько байт читается для определения типа содержимого
const sniffLen = 3072

type Options struct {
	SlotTTL   time.Duration
	MaxSize   int64
	PublicURL string // внешний адрес сервиса, из него строится upload url
}

type StorageService struct {
	log   *slog.Logger
	slots repository.SlotRepository
	files repository.FileRepository
	blobs filestorage.FileStorage
	opts  Options
}

func NewStorageService(
	log *slog.Logger,
	slots repository.SlotRepository,
	files repository.FileRepository,
	blobs filestorage.FileStorage,
	opts Options,
) *StorageService {
	if opts.SlotTTL <= 0 {
		opts.SlotTTL = 15 * time.Minute
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 5 << 20
	}
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")

	return &StorageService{
		log:   log,
		slots: slots,
		files: files,
		blobs: blobs,
		opts:  opts,
	}
}

// IssueUploadSlot выдает одноразовый адрес для загрузки одного файла
func (s *StorageService) IssueUploadSlot(ctx context.Context) (string, error) {
	const op = "service.StorageService.IssueUploadSlot"

	token := uuid.NewString()
	if err := s.slots.SaveSlot(ctx, token, s.opts.SlotTTL); err != nil {
		s.log.Error("failed to save upload slot", slog.String("op", op), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.UploadSlotsIssued.Inc()

	return s.opts.PublicURL + "/api/v1/storage/upload/" + token, nil
}

// AcceptUpload принимает байты по токену слота и возвращает storage id.
// size может быть -1, если длина тела неизвестна.
func (s *StorageService) AcceptUpload(ctx context.Context, token, contentType string, size int64, body io.Reader) (string, error) {
	const op = "service.StorageService.AcceptUpload"

	log := s.log.With(
		slog.String("op", op),
		slog.String("content_type", contentType),
		slog.Int64("size", size),
	)

	ok, err := s.slots.ConsumeSlot(ctx, token)
	if err != nil {
		log.Error("failed to consume upload slot", sl.Err(err))
		metrics.UploadsAccepted.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		log.Warn("unknown or used upload slot")
		metrics.UploadsAccepted.WithLabelValues("no_slot").Inc()
		return "", fmt.Errorf("%s: %w", op, storage.ErrSlotNotFound)
	}

	declared := baseMediaType(contentType)
	if !strings.HasPrefix(declared, "image/") {
		metrics.UploadsAccepted.WithLabelValues("rejected_type").Inc()
		return "", fmt.Errorf("%s: %w: %q", op, storage.ErrInvalidFileType, contentType)
	}
	if size > s.opts.MaxSize {
		metrics.UploadsAccepted.WithLabelValues("too_large").Inc()
		return "", fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		log.Error("failed to read upload body", sl.Err(err))
		metrics.UploadsAccepted.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if n == 0 || !strings.HasPrefix(detected.String(), "image/") {
		log.Warn("body is not an image", slog.String("detected", detected.String()))
		metrics.UploadsAccepted.WithLabelValues("rejected_type").Inc()
		return "", fmt.Errorf("%s: %w: content is %s", op, storage.ErrInvalidFileType, detected.String())
	}

	storageID := uuid.NewString()
	key := objectKey(storageID, detected.Extension())
	content := io.LimitReader(io.MultiReader(bytes.NewReader(head), body), s.opts.MaxSize+1)

	written, err := s.blobs.Put(ctx, key, content, size, declared)
	if err != nil {
		log.Error("failed to store upload", sl.Err(err))
		metrics.UploadsAccepted.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if written > s.opts.MaxSize {
		s.removeBlob(ctx, log, key)
		metrics.UploadsAccepted.WithLabelValues("too_large").Inc()
		return "", fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	file := models.StoredFile{
		StorageID:    storageID,
		ObjectKey:    key,
		ContentType:  declared,
		DetectedType: baseMediaType(detected.String()),
		Size:         written,
	}
	if err := s.files.CreateFile(ctx, file); err != nil {
		// Удаляем объект если не удалось сохранить запись
		s.removeBlob(ctx, log, key)
		log.Error("failed to save file record", sl.Err(err))
		metrics.UploadsAccepted.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.UploadsAccepted.WithLabelValues("stored").Inc()
	metrics.UploadedBytes.Add(float64(written))
	log.Info("upload stored", slog.String("storage_id", storageID), slog.Int64("written", written))

	return storageID, nil
}

// RecordFile регистрирует имя файла и возвращает постоянный публичный URL.
// Повторный вызов возвращает тот же URL.
func (s *StorageService) RecordFile(ctx context.Context, storageID, fileName, fileType string) (string, error) {
	const op = "service.StorageService.RecordFile"

	log := s.log.With(
		slog.String("op", op),
		slog.String("storage_id", storageID),
		slog.String("file_type", fileType),
	)

	file, err := s.files.GetFile(ctx, storageID)
	if err != nil {
		log.Warn("file not found", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if file.Recorded() {
		return *file.URL, nil
	}

	url := s.blobs.URL(file.ObjectKey)
	if err := s.files.RecordFileInfo(ctx, storageID, fileName, url); err != nil {
		log.Error("failed to record file info", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("file recorded", slog.String("url", url))
	return url, nil
}

// DeleteFile удаляет объект и запись о нем
func (s *StorageService) DeleteFile(ctx context.Context, storageID string) error {
	const op = "service.StorageService.DeleteFile"

	log := s.log.With(
		slog.String("op", op),
		slog.String("storage_id", storageID),
	)

	file, err := s.files.GetFile(ctx, storageID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.blobs.Delete(ctx, file.ObjectKey); err != nil {
		log.Error("failed to delete blob", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.files.DeleteFile(ctx, storageID); err != nil {
		log.Error("failed to delete file record", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("file deleted")
	return nil
}

func (s *StorageService) removeBlob(ctx context.Context, log *slog.Logger, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Error("failed to remove blob", slog.String("key", key), sl.Err(err))
	}
}

// objectKey раскладывает объекты по двухсимвольным префиксам
func objectKey(storageID, ext string) string {
	return fmt.Sprintf("gallery/%s/%s%s", storageID[:2], storageID, ext)
}

func baseMediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

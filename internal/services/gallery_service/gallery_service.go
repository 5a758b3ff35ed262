package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/lib/logger/sl"
	"school_gallery/internal/repository"
	"school_gallery/internal/storage"
	"school_gallery/internal/transport/http/dto"
	"school_gallery/internal/upload"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid input")

const maxCaptionLen = 500

// FileRemover удаляет объект хранилища вместе с записью о нем
type FileRemover interface {
	DeleteFile(ctx context.Context, storageID string) error
}

type GalleryService struct {
	log    *slog.Logger
	events repository.EventRepository
	images repository.ImageRepository
	files  FileRemover
}

func NewGalleryService(
	log *slog.Logger,
	events repository.EventRepository,
	images repository.ImageRepository,
	files FileRemover,
) *GalleryService {
	return &GalleryService{
		log:    log,
		events: events,
		images: images,
		files:  files,
	}
}

// CreateEvent создает новое событие галереи
func (s *GalleryService) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (uuid.UUID, error) {
	const op = "service.GalleryService.CreateEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("title", req.Title),
	)

	log.Info("creating event")

	event := req.ToDomain()
	if err := validateEvent(event); err != nil {
		log.Warn("invalid event", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		log.Error("failed to create event", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("event created", slog.String("id", id.String()))
	return id, nil
}

// UpdateEvent обновляет данные события
func (s *GalleryService) UpdateEvent(ctx context.Context, id uuid.UUID, req dto.UpdateEventRequest) error {
	const op = "service.GalleryService.UpdateEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", id.String()),
	)

	event := models.GalleryEvent{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		AcademicYear: req.AcademicYear,
	}
	if err := validateEvent(event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		log.Error("failed to update event", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("event updated")
	return nil
}

func (s *GalleryService) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	const op = "service.GalleryService.SetPublished"

	if err := s.events.SetPublished(ctx, id, published); err != nil {
		s.log.Error("failed to change publish flag",
			slog.String("op", op),
			slog.String("event_id", id.String()),
			sl.Err(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetCover - явный выбор обложки администратором, перезаписывает текущую
func (s *GalleryService) SetCover(ctx context.Context, id uuid.UUID, coverURL string) error {
	const op = "service.GalleryService.SetCover"

	if strings.TrimSpace(coverURL) == "" {
		return fmt.Errorf("%s: %w: cover url is required", op, ErrInvalidInput)
	}

	if err := s.events.SetCover(ctx, id, coverURL); err != nil {
		s.log.Error("failed to set cover",
			slog.String("op", op),
			slog.String("event_id", id.String()),
			sl.Err(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetCoverIfEmpty назначает обложку, только если ее еще нет
func (s *GalleryService) SetCoverIfEmpty(ctx context.Context, id uuid.UUID, coverURL string) (bool, error) {
	const op = "service.GalleryService.SetCoverIfEmpty"

	if strings.TrimSpace(coverURL) == "" {
		return false, fmt.Errorf("%s: %w: cover url is required", op, ErrInvalidInput)
	}

	updated, err := s.events.SetCoverIfEmpty(ctx, id, coverURL)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if updated {
		s.log.Info("cover set", slog.String("op", op), slog.String("event_id", id.String()))
	}
	return updated, nil
}

func (s *GalleryService) GetEvent(ctx context.Context, id uuid.UUID) (models.GalleryEvent, error) {
	const op = "service.GalleryService.GetEvent"

	event, err := s.events.GetEventByID(ctx, id)
	if err != nil {
		return models.GalleryEvent{}, fmt.Errorf("%s: %w", op, err)
	}

	return event, nil
}

// ListEvents возвращает страницу событий и общее количество
func (s *GalleryService) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.GalleryEvent, int, error) {
	const op = "service.GalleryService.ListEvents"

	filter = filter.Normalize()
	switch filter.Status {
	case models.EventStatusAll, models.EventStatusPublished, models.EventStatusDraft:
	default:
		return nil, 0, fmt.Errorf("%s: %w: unknown status %q", op, ErrInvalidInput, filter.Status)
	}

	events, total, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		s.log.Error("failed to list events", slog.String("op", op), sl.Err(err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return events, total, nil
}

// DeleteEvent удаляет только строку события. Если у события остались
// изображения, возвращается storage.ErrEventHasImages.
func (s *GalleryService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	const op = "service.GalleryService.DeleteEvent"

	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("event deleted", slog.String("op", op), slog.String("event_id", id.String()))
	return nil
}

// DeleteEventCascade удаляет все изображения события, затем само событие
func (s *GalleryService) DeleteEventCascade(ctx context.Context, id uuid.UUID) (upload.DeleteResult, error) {
	const op = "service.GalleryService.DeleteEventCascade"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", id.String()),
	)

	res, err := upload.DeleteEvent(ctx, s, id)
	if err != nil {
		log.Error("cascade delete stopped", slog.Int("images_deleted", res.ImagesDeleted), sl.Err(err))
		return res, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("event deleted with images",
		slog.Int("images_deleted", res.ImagesDeleted),
		slog.Bool("already_gone", res.AlreadyGone),
	)
	return res, nil
}

// InsertImage сохраняет изображение события
func (s *GalleryService) InsertImage(ctx context.Context, image models.GalleryImage) (uuid.UUID, error) {
	const op = "service.GalleryService.InsertImage"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", image.EventID.String()),
		slog.Int("order", image.Order),
	)

	image.Caption = strings.TrimSpace(image.Caption)
	image.UploadedBy = strings.TrimSpace(image.UploadedBy)
	if err := validateImage(image); err != nil {
		log.Warn("invalid image", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}

	id, err := s.images.CreateImage(ctx, image)
	if err != nil {
		log.Error("failed to save image", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// DeleteImage удаляет запись изображения, затем (без гарантий) его файл
func (s *GalleryService) DeleteImage(ctx context.Context, id uuid.UUID) error {
	const op = "service.GalleryService.DeleteImage"
	log := s.log.With(
		slog.String("op", op),
		slog.String("image_id", id.String()),
	)

	image, err := s.images.GetImageByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.images.DeleteImage(ctx, id); err != nil {
		log.Error("failed to delete image", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.files != nil && image.StorageID != "" {
		if err := s.files.DeleteFile(ctx, image.StorageID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn("image deleted but its file was kept", slog.String("storage_id", image.StorageID), sl.Err(err))
		}
	}

	return nil
}

func (s *GalleryService) ListImagesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.GalleryImage, error) {
	const op = "service.GalleryService.ListImagesByEvent"

	images, err := s.images.ListImagesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return images, nil
}

func validateEvent(e models.GalleryEvent) error {
	var problems []string
	if strings.TrimSpace(e.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(e.Description) == "" {
		problems = append(problems, "description is required")
	}
	if strings.TrimSpace(e.AcademicYear) == "" {
		problems = append(problems, "academic year is required")
	}
	if e.Date.IsZero() {
		problems = append(problems, "date is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func validateImage(img models.GalleryImage) error {
	var problems []string
	if img.EventID == uuid.Nil {
		problems = append(problems, "event id is required")
	}
	if img.ImageURL == "" {
		problems = append(problems, "image url is required")
	}
	if img.StorageID == "" {
		problems = append(problems, "storage id is required")
	}
	if img.UploadedBy == "" {
		problems = append(problems, "uploaded by is required")
	}
	if img.Order < 0 {
		problems = append(problems, "order must not be negative")
	}
	if len(img.Caption) > maxCaptionLen {
		problems = append(problems, "caption is too long")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"school_gallery/internal/domain/models"

	"github.com/google/uuid"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event models.GalleryEvent) (uuid.UUID, error)
	UpdateEvent(ctx context.Context, event models.GalleryEvent) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
	SetCover(ctx context.Context, id uuid.UUID, coverURL string) error
	SetCoverIfEmpty(ctx context.Context, id uuid.UUID, coverURL string) (bool, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	GetEventByID(ctx context.Context, id uuid.UUID) (models.GalleryEvent, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.GalleryEvent, int, error)
}

type ImageRepository interface {
	CreateImage(ctx context.Context, image models.GalleryImage) (uuid.UUID, error)
	GetImageByID(ctx context.Context, id uuid.UUID) (models.GalleryImage, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
	ListImagesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.GalleryImage, error)
}

type FileRepository interface {
	CreateFile(ctx context.Context, file models.StoredFile) error
	GetFile(ctx context.Context, storageID string) (models.StoredFile, error)
	RecordFileInfo(ctx context.Context, storageID, fileName, url string) error
	DeleteFile(ctx context.Context, storageID string) error
}

type SlotRepository interface {
	SaveSlot(ctx context.Context, token string, ttl time.Duration) error
	ConsumeSlot(ctx context.Context, token string) (bool, error)
}

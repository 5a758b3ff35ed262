package dto

import (
	"time"

	"school_gallery/internal/domain/models"

	"github.com/google/uuid"
)

type CreateEventRequest struct {
	Title        string    `json:"title" validate:"required,max=255"`
	Description  string    `json:"description" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	AcademicYear string    `json:"academic_year" validate:"required,max=20"`
	IsPublished  bool      `json:"is_published"`
}

// ToDomain преобразует DTO в доменную модель
func (r CreateEventRequest) ToDomain() models.GalleryEvent {
	return models.GalleryEvent{
		Title:        r.Title,
		Description:  r.Description,
		Date:         r.Date,
		AcademicYear: r.AcademicYear,
		IsPublished:  r.IsPublished,
	}
}

type UpdateEventRequest struct {
	Title        string    `json:"title" validate:"required,max=255"`
	Description  string    `json:"description" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	AcademicYear string    `json:"academic_year" validate:"required,max=20"`
}

type PublishEventRequest struct {
	IsPublished *bool `json:"is_published" validate:"required"`
}

type EventCoverRequest struct {
	CoverImageURL string `json:"cover_image_url" validate:"required,url"`
}

type EventCoverResponse struct {
	Updated bool `json:"updated"`
}

type CreateEventResponse struct {
	ID uuid.UUID `json:"id"`
}

type EventListResponse struct {
	Events     []models.GalleryEvent `json:"events"`
	TotalCount int                   `json:"total_count"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"per_page"`
}

type DeleteEventResponse struct {
	ImagesDeleted int  `json:"images_deleted"`
	AlreadyGone   bool `json:"already_gone"`
}

type InsertImageRequest struct {
	EventID    uuid.UUID `json:"event_id" validate:"required"`
	ImageURL   string    `json:"image_url" validate:"required,url"`
	StorageID  string    `json:"storage_id" validate:"required"`
	Caption    string    `json:"caption" validate:"max=500"`
	Order      int       `json:"order" validate:"min=0"`
	UploadedBy string    `json:"uploaded_by" validate:"max=255"` // пусто: имя администратора из токена
}

// ToDomain преобразует DTO в доменную модель
func (r InsertImageRequest) ToDomain() models.GalleryImage {
	return models.GalleryImage{
		EventID:    r.EventID,
		ImageURL:   r.ImageURL,
		StorageID:  r.StorageID,
		Caption:    r.Caption,
		Order:      r.Order,
		UploadedBy: r.UploadedBy,
	}
}

type InsertImageResponse struct {
	ID uuid.UUID `json:"id"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventStatusAll       = "all"
	EventStatusPublished = "published"
	EventStatusDraft     = "draft"
)

// GalleryEvent событие школьной галереи (праздник, экскурсия, выпускной)
type GalleryEvent struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	Date          time.Time `json:"date" db:"event_date"`
	AcademicYear  string    `json:"academic_year" db:"academic_year"`
	IsPublished   bool      `json:"is_published" db:"is_published"`
	CoverImageURL *string   `json:"cover_image_url,omitempty" db:"cover_image_url"` // nil пока обложка не выбрана
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// HasCover сообщает, выбрана ли обложка события
func (e GalleryEvent) HasCover() bool {
	return e.CoverImageURL != nil && *e.CoverImageURL != ""
}

// GalleryImage изображение, прикрепленное к событию
type GalleryImage struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EventID    uuid.UUID `json:"event_id" db:"event_id"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	StorageID  string    `json:"storage_id" db:"storage_id"`
	Caption    string    `json:"caption" db:"caption"`
	Order      int       `json:"order" db:"position"`
	UploadedBy string    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// EventFilter параметры выборки списка событий
type EventFilter struct {
	Status        string
	AcademicYears []string
	Page          int
	PerPage       int
}

// Normalize приводит пагинацию к допустимым значениям
func (f EventFilter) Normalize() EventFilter {
	if f.Status == "" {
		f.Status = EventStatusAll
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 10
	}
	return f
}

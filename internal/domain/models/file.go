package models

import (
	"fmt"
	"strings"
	"time"
)

// StoredFile запись шлюза хранилища о принятом объекте
type StoredFile struct {
	StorageID    string    `json:"storage_id" db:"storage_id"`
	ObjectKey    string    `json:"object_key" db:"object_key"`
	ContentType  string    `json:"content_type" db:"content_type"`
	DetectedType string    `json:"detected_type" db:"detected_type"`
	Size         int64     `json:"size" db:"size"`
	FileName     *string   `json:"file_name,omitempty" db:"file_name"` // заполняется при RecordFile
	URL          *string   `json:"url,omitempty" db:"url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Recorded сообщает, выдан ли уже публичный URL
func (f StoredFile) Recorded() bool {
	return f.URL != nil && *f.URL != ""
}

// Validate проверяет запись перед сохранением
func (f *StoredFile) Validate() error {
	var validationErrors []string

	if f.StorageID == "" {
		validationErrors = append(validationErrors, "storage id is required")
	}
	if f.ObjectKey == "" {
		validationErrors = append(validationErrors, "object key is required")
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		validationErrors = append(validationErrors, fmt.Sprintf("content type %q is not an image", f.ContentType))
	}
	if len(f.ContentType) > 100 {
		validationErrors = append(validationErrors, "content type must be 100 characters or less")
	}
	if f.Size <= 0 {
		validationErrors = append(validationErrors, "file size must be positive")
	}

	if len(validationErrors) > 0 {
		return &FileValidationError{Errors: validationErrors}
	}

	return nil
}

type FileValidationError struct {
	Errors []string
}

func (e *FileValidationError) Error() string {
	return fmt.Sprintf("stored file validation failed: %s", strings.Join(e.Errors, "; "))
}

func IsFileValidationError(err error) bool {
	_, ok := err.(*FileValidationError)
	return ok
}

package upload

import (
	"errors"
	"fmt"

	"school_gallery/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrEmptyBatch       = errors.New("no files selected")
	ErrNotReady         = errors.New("staged upload has no resolved url")
	ErrNoUploader       = errors.New("acting admin name is required")
	ErrMalformedReceipt = errors.New("transfer response has no storageId")
)

// ValidationError файл отклонен до сетевых вызовов
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

// TransferError ошибка получения слота, передачи байтов или разбора ответа
type TransferError struct {
	FileName string
	Stage    string
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: upload failed during %s: %v", e.FileName, e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ResolutionError байты сохранены, но публичный URL не получен
type ResolutionError struct {
	FileName  string
	StorageID string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: could not resolve url for %s: %v", e.FileName, e.StorageID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// CommitError первая неудачная запись изображения за вызов
type CommitError struct {
	Index       int
	FileName    string
	SavedBefore int
	Err         error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("saving image %d (%s) failed after %d saved: %v", e.Index+1, e.FileName, e.SavedBefore, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// NotFoundError отсутствующее событие или изображение
type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return storage.ErrNotFound }

// FileFailure неудачный файл и его позиция в пакете
type FileFailure struct {
	Index    int
	FileName string
	Err      error
}

// IsValidation - ошибка случилась до сетевых вызовов
func (f FileFailure) IsValidation() bool {
	var vErr *ValidationError
	return errors.As(f.Err, &vErr)
}

package storage

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

var (
	ErrEventNotFound  = fmt.Errorf("gallery event %w", ErrNotFound)
	ErrImageNotFound  = fmt.Errorf("gallery image %w", ErrNotFound)
	ErrFileNotFound   = fmt.Errorf("stored file %w", ErrNotFound)
	ErrSlotNotFound   = fmt.Errorf("upload slot %w", ErrNotFound)
	ErrEventHasImages = errors.New("gallery event still has images")
)

var (
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrInvalidFileType = errors.New("invalid file type")
)

package upload

import (
	"context"
	"errors"
	"fmt"

	"school_gallery/internal/storage"

	"github.com/google/uuid"
)

type DeleteResult struct {
	ImagesDeleted int
	EventDeleted  bool
	// AlreadyGone - строки события уже не было, осиротевшие изображения все равно удалены
	AlreadyGone bool
}

// DeleteEvent удаляет все изображения события, затем само событие.
// Если хотя бы одно изображение удалить не удалось, событие остается на месте
// и операцию можно повторить. Уже удаленные изображения и событие считаются удаленными.
func DeleteEvent(ctx context.Context, store CascadeStore, eventID uuid.UUID) (DeleteResult, error) {
	const op = "upload.DeleteEvent"

	var res DeleteResult

	images, err := store.ListImagesByEvent(ctx, eventID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return res, fmt.Errorf("%s: list images: %w", op, err)
	}

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := store.DeleteImage(ctx, img.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return res, fmt.Errorf("%s: delete image %s: %w", op, img.ID, err)
		}
		res.ImagesDeleted++
	}

	if err := store.DeleteEvent(ctx, eventID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			res.AlreadyGone = true
			return res, nil
		}
		return res, fmt.Errorf("%s: delete event: %w", op, err)
	}
	res.EventDeleted = true

	return res, nil
}

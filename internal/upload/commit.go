package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/lib/logger/sl"
	"school_gallery/internal/storage"

	"github.com/google/uuid"
)

// CommitResult итог одного вызова CommitImages. ImageIDs выровнен по входному
// списку, uuid.Nil у незаписанных элементов.
type CommitResult struct {
	Saved      int
	Skipped    int
	CoverSet   bool
	ImageIDs   []uuid.UUID
	FirstError *CommitError
}

// Committer прикрепляет загруженные файлы к событию. Один Committer на одну
// сессию загрузки: он помнит уже сохраненные storage id, и повторная отправка
// ничего не пишет дважды.
type Committer struct {
	mu         sync.Mutex
	log        *slog.Logger
	store      MetadataStore
	uploadedBy string
	persisted  map[string]uuid.UUID
	now        func() time.Time
}

func NewCommitter(log *slog.Logger, store MetadataStore, uploadedBy string) *Committer {
	return &Committer{
		log:        log,
		store:      store,
		uploadedBy: strings.TrimSpace(uploadedBy),
		persisted:  make(map[string]uuid.UUID),
		now:        time.Now,
	}
}

// CommitImages пишет по одному изображению на элемент в порядке списка,
// order равен позиции в списке. После ошибки остальные элементы все равно
// пишутся, цикл останавливает только пропавшее событие. Возвращаемая ошибка -
// нарушенное предусловие или первая ошибка записи, результат заполнен всегда.
func (c *Committer) CommitImages(ctx context.Context, eventID uuid.UUID, staged []StagedUpload) (CommitResult, error) {
	const op = "upload.Committer.CommitImages"

	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.With(
		slog.String("op", op),
		slog.String("event_id", eventID.String()),
		slog.Int("images", len(staged)),
	)

	res := CommitResult{ImageIDs: make([]uuid.UUID, len(staged))}

	if c.uploadedBy == "" {
		return res, fmt.Errorf("%s: %w", op, ErrNoUploader)
	}
	for i, s := range staged {
		if !s.Ready() {
			return res, fmt.Errorf("%s: entry %d (%s): %w", op, i, s.File.Name, ErrNotReady)
		}
	}

	event, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return res, &NotFoundError{Kind: "event", ID: eventID}
		}
		return res, fmt.Errorf("%s: %w", op, err)
	}
	needCover := !event.HasCover()
	coverTried := false
	eventGone := false
	// первый по списку элемент, уже прикрепленный к событию (сейчас или раньше)
	coverURL := ""

	for i, s := range staged {
		if id, ok := c.alreadyPersisted(s); ok {
			res.ImageIDs[i] = id
			res.Skipped++
			if coverURL == "" {
				coverURL = s.URL
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Info("commit interrupted", slog.Int("saved", res.Saved))
			return res, err
		}

		id, err := c.store.InsertImage(ctx, c.imageFor(eventID, i, s))
		if err != nil {
			log.Error("failed to save image", slog.String("file", s.File.Name), sl.Err(err))
			if errors.Is(err, storage.ErrNotFound) {
				err = &NotFoundError{Kind: "event", ID: eventID}
			}
			if res.FirstError == nil {
				res.FirstError = &CommitError{Index: i, FileName: s.File.Name, SavedBefore: res.Saved, Err: err}
			}
			var nf *NotFoundError
			if errors.As(err, &nf) {
				eventGone = true
				break
			}
			continue
		}

		c.persisted[s.StorageID] = id
		res.ImageIDs[i] = id
		res.Saved++
		if coverURL == "" {
			coverURL = s.URL
		}

		if needCover && !coverTried {
			coverTried = true
			res.CoverSet, needCover = c.setCover(ctx, log, eventID, s.URL)
		}
	}

	// обложка не записалась в цикле (ошибка или все записи уже были сохранены раньше)
	if needCover && coverURL != "" && !eventGone && ctx.Err() == nil {
		res.CoverSet, _ = c.setCover(ctx, log, eventID, coverURL)
	}

	log.Info("commit finished",
		slog.Int("saved", res.Saved),
		slog.Int("skipped", res.Skipped),
		slog.Bool("cover_set", res.CoverSet),
	)

	if res.FirstError != nil {
		return res, res.FirstError
	}
	return res, nil
}

// setCover выполняет условную запись обложки и сообщает, осталась ли обложка пустой
func (c *Committer) setCover(ctx context.Context, log *slog.Logger, eventID uuid.UUID, url string) (set, stillMissing bool) {
	set, err := c.store.SetCoverIfEmpty(ctx, eventID, url)
	if err != nil {
		log.Warn("failed to set cover", slog.String("url", url), sl.Err(err))
		return false, true
	}
	return set, false
}

func (c *Committer) alreadyPersisted(s StagedUpload) (uuid.UUID, bool) {
	if s.Committed() {
		return s.ImageID, true
	}
	id, ok := c.persisted[s.StorageID]
	return id, ok
}

func (c *Committer) imageFor(eventID uuid.UUID, position int, s StagedUpload) models.GalleryImage {
	return models.GalleryImage{
		EventID:    eventID,
		ImageURL:   s.URL,
		StorageID:  s.StorageID,
		Caption:    strings.TrimSpace(s.Caption),
		Order:      position,
		UploadedBy: c.uploadedBy,
		CreatedAt:  c.now().UTC(),
	}
}

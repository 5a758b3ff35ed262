package repository

import (
	"context"
	"errors"
	"fmt"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

const eventsTable = "gallery_events"

var eventColumns = []string{
	"id",
	"title",
	"description",
	"event_date",
	"academic_year",
	"is_published",
	"cover_image_url",
	"created_at",
	"updated_at",
}

type GalleryRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewGalleryRepo(db *pgxpool.Pool) *GalleryRepo {
	return &GalleryRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateEvent создает событие и возвращает его ID
func (r *GalleryRepo) CreateEvent(ctx context.Context, event models.GalleryEvent) (uuid.UUID, error) {
	const op = "repository.GalleryRepo.CreateEvent"

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	query, args, err := r.sb.Insert(eventsTable).
		Columns(
			"id",
			"title",
			"description",
			"event_date",
			"academic_year",
			"is_published",
			"cover_image_url",
		).
		Values(
			event.ID,
			event.Title,
			event.Description,
			event.Date,
			event.AcademicYear,
			event.IsPublished,
			event.CoverImageURL,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// UpdateEvent обновляет редактируемые поля события
func (r *GalleryRepo) UpdateEvent(ctx context.Context, event models.GalleryEvent) error {
	const op = "repository.GalleryRepo.UpdateEvent"

	query, args, err := r.sb.Update(eventsTable).
		Set("title", event.Title).
		Set("description", event.Description).
		Set("event_date", event.Date).
		Set("academic_year", event.AcademicYear).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": event.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return r.execAffecting(ctx, op, query, args)
}

// SetPublished меняет флаг публикации
func (r *GalleryRepo) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	const op = "repository.GalleryRepo.SetPublished"

	query, args, err := r.sb.Update(eventsTable).
		Set("is_published", published).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return r.execAffecting(ctx, op, query, args)
}

// SetCover безусловно назначает обложку
func (r *GalleryRepo) SetCover(ctx context.Context, id uuid.UUID, coverURL string) error {
	const op = "repository.GalleryRepo.SetCover"

	query, args, err := r.sb.Update(eventsTable).
		Set("cover_image_url", coverURL).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return r.execAffecting(ctx, op, query, args)
}

// SetCoverIfEmpty назначает обложку только если она еще не выбрана.
// Возвращает true, если запись была изменена.
func (r *GalleryRepo) SetCoverIfEmpty(ctx context.Context, id uuid.UUID, coverURL string) (bool, error) {
	const op = "repository.GalleryRepo.SetCoverIfEmpty"

	query, args, err := r.sb.Update(eventsTable).
		Set("cover_image_url", coverURL).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Or{
			squirrel.Eq{"cover_image_url": nil},
			squirrel.Eq{"cover_image_url": ""},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// ничего не обновили: либо обложка уже есть, либо события нет
	if _, err := r.GetEventByID(ctx, id); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return false, nil
}

// DeleteEvent удаляет событие; изображения должны быть удалены заранее
func (r *GalleryRepo) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	const op = "repository.GalleryRepo.DeleteEvent"

	query, args, err := r.sb.Delete(eventsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrEventHasImages)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrEventNotFound)
	}

	return nil
}

// GetEventByID возвращает событие по ID
func (r *GalleryRepo) GetEventByID(ctx context.Context, id uuid.UUID) (models.GalleryEvent, error) {
	const op = "repository.GalleryRepo.GetEventByID"

	query, args, err := r.sb.Select(eventColumns...).
		From(eventsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.GalleryEvent{}, fmt.Errorf("%s: %w", op, err)
	}

	event, err := scanEvent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.GalleryEvent{}, fmt.Errorf("%s: %w", op, storage.ErrEventNotFound)
		}
		return models.GalleryEvent{}, fmt.Errorf("%s: %w", op, err)
	}

	return event, nil
}

// ListEvents возвращает страницу событий и общее количество по фильтру
func (r *GalleryRepo) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.GalleryEvent, int, error) {
	const op = "repository.GalleryRepo.ListEvents"

	filter = filter.Normalize()

	where := squirrel.And{}
	switch filter.Status {
	case models.EventStatusPublished:
		where = append(where, squirrel.Eq{"is_published": true})
	case models.EventStatusDraft:
		where = append(where, squirrel.Eq{"is_published": false})
	case models.EventStatusAll:
	default:
		return nil, 0, fmt.Errorf("%s: invalid status filter '%s'", op, filter.Status)
	}
	if len(filter.AcademicYears) > 0 {
		where = append(where, squirrel.Expr("academic_year = ANY(?)", pq.Array(filter.AcademicYears)))
	}

	totalCount, err := r.countEvents(ctx, where)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Select(eventColumns...).
		From(eventsTable).
		Where(where).
		OrderBy("event_date DESC", "created_at DESC").
		Limit(uint64(filter.PerPage)).
		Offset(uint64((filter.Page - 1) * filter.PerPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events := make([]models.GalleryEvent, 0, filter.PerPage)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return events, totalCount, nil
}

func (r *GalleryRepo) countEvents(ctx context.Context, where squirrel.Sqlizer) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From(eventsTable).
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error build query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error execute query: %w (SQL: %s)", err, query)
	}

	return count, nil
}

func (r *GalleryRepo) execAffecting(ctx context.Context, op, query string, args []interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrEventNotFound)
	}
	return nil
}

func scanEvent(row pgx.Row) (models.GalleryEvent, error) {
	var event models.GalleryEvent
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.AcademicYear,
		&event.IsPublished,
		&event.CoverImageURL,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	return event, err
}

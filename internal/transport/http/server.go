package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"school_gallery/internal/domain/models"
	jwtlib "school_gallery/internal/lib/jwt"
	"school_gallery/internal/lib/logger/sl"
	gallery "school_gallery/internal/services/gallery_service"
	"school_gallery/internal/storage"
	"school_gallery/internal/transport/http/dto"
	"school_gallery/internal/transport/http/dto/response"
	"school_gallery/internal/upload"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type GalleryService interface {
	CreateEvent(ctx context.Context, req dto.CreateEventRequest) (uuid.UUID, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, req dto.UpdateEventRequest) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
	SetCover(ctx context.Context, id uuid.UUID, coverURL string) error
	SetCoverIfEmpty(ctx context.Context, id uuid.UUID, coverURL string) (bool, error)
	GetEvent(ctx context.Context, id uuid.UUID) (models.GalleryEvent, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.GalleryEvent, int, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	DeleteEventCascade(ctx context.Context, id uuid.UUID) (upload.DeleteResult, error)
	InsertImage(ctx context.Context, image models.GalleryImage) (uuid.UUID, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
	ListImagesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.GalleryImage, error)
}

type StorageService interface {
	IssueUploadSlot(ctx context.Context) (string, error)
	AcceptUpload(ctx context.Context, token, contentType string, size int64, body io.Reader) (string, error)
	RecordFile(ctx context.Context, storageID, fileName, fileType string) (string, error)
}

type Routers struct {
	log            *slog.Logger
	GalleryService GalleryService
	StorageService StorageService
}

func NewRouter(log *slog.Logger, galleryService GalleryService, storageService StorageService) *Routers {
	return &Routers{
		log:            log,
		GalleryService: galleryService,
		StorageService: storageService,
	}
}

var (
	ErrInvalidUUID    = errors.New("not valid UUID")
	ErrInvalidRequest = errors.New("invalid request body")
)

// Health godoc
// @Summary Проверка доступности сервиса
// @Tags service
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (r *Routers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// IssueUploadURL godoc
// @Summary Одноразовый адрес загрузки
// @Description Выдает адрес, по которому можно один раз отправить байты одного изображения.
// @Tags storage
// @Produce json
// @Success 200 {object} response.Response{data=dto.UploadURLResponse}
// @Failure 401 {object} response.ErrorResponse "Нет токена администратора"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security ApiKeyAuth
// @Router /api/v1/storage/upload-url [post]
func (r *Routers) IssueUploadURL(c echo.Context) error {
	const op = "http.routers.IssueUploadURL"

	uploadURL, err := r.StorageService.IssueUploadSlot(c.Request().Context())
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.UploadURLResponse{UploadURL: uploadURL}))
}

// AcceptUpload godoc
// @Summary Прием байтов изображения
// @Description Тело запроса - сырые байты файла, Content-Type должен быть image/*. Адрес одноразовый.
// @Tags storage
// @Accept image/png,image/jpeg,image/gif,image/webp
// @Produce json
// @Param token path string true "Токен слота"
// @Success 200 {object} dto.UploadResponse
// @Failure 404 {object} response.ErrorResponse "Слот не найден или уже использован"
// @Failure 413 {object} response.ErrorResponse "Превышен максимальный размер файла"
// @Failure 415 {object} response.ErrorResponse "Неподдерживаемый тип файла"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/v1/storage/upload/{token} [post]
func (r *Routers) AcceptUpload(c echo.Context) error {
	const op = "http.routers.AcceptUpload"

	req := c.Request()
	storageID, err := r.StorageService.AcceptUpload(
		req.Context(),
		c.Param("token"),
		req.Header.Get(echo.HeaderContentType),
		req.ContentLength,
		req.Body,
	)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, dto.UploadResponse{StorageID: storageID})
}

// RecordFile godoc
// @Summary Публичный URL загруженного файла
// @Description Регистрирует имя файла и возвращает постоянный URL по storage id.
// @Tags storage
// @Accept json
// @Produce json
// @Param request body dto.RecordFileRequest true "Файл"
// @Success 200 {object} response.Response{data=dto.RecordFileResponse}
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} response.ErrorResponse "Файл не найден"
// @Security ApiKeyAuth
// @Router /api/v1/storage/files [post]
func (r *Routers) RecordFile(c echo.Context) error {
	const op = "http.routers.RecordFile"

	var req dto.RecordFileRequest
	if err := r.bindAndValidate(c, &req); err != nil {
		return err
	}

	url, err := r.StorageService.RecordFile(c.Request().Context(), req.StorageID, req.FileName, req.FileType)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.RecordFileResponse{URL: url}))
}

// ListEvents godoc
// @Summary Список событий галереи
// @Description Без токена администратора возвращаются только опубликованные события, status игнорируется.
// @Tags events
// @Produce json
// @Param status query string false "all, published или draft" Enums(all, published, draft)
// @Param academic_year query []string false "Учебный год, можно несколько" collectionFormat(multi)
// @Param page query int false "Страница" default(1)
// @Param per_page query int false "Размер страницы" default(10)
// @Success 200 {object} response.Response{data=dto.EventListResponse}
// @Failure 400 {object} response.ErrorResponse "Неверный фильтр"
// @Router /api/v1/events [get]
func (r *Routers) ListEvents(c echo.Context) error {
	const op = "http.routers.ListEvents"

	filter := models.EventFilter{
		Status:        c.QueryParam("status"),
		AcademicYears: c.QueryParams()["academic_year"],
	}
	// черновики видит только администратор
	if !isAdmin(c) {
		filter.Status = models.EventStatusPublished
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))
	filter = filter.Normalize()

	events, total, err := r.GalleryService.ListEvents(c.Request().Context(), filter)
	if err != nil {
		return r.fail(c, op, err)
	}
	if events == nil {
		events = []models.GalleryEvent{}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.EventListResponse{
		Events:     events,
		TotalCount: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	}))
}

// GetEvent godoc
// @Summary Событие по ID
// @Description Неопубликованное событие без токена администратора отдается как 404.
// @Tags events
// @Produce json
// @Param id path string true "ID события" format(uuid)
// @Success 200 {object} response.Response{data=models.GalleryEvent}
// @Failure 400 {object} response.ErrorResponse "Некорректный UUID"
// @Failure 404 {object} response.ErrorResponse "Событие не найдено"
// @Router /api/v1/events/{id} [get]
func (r *Routers) GetEvent(c echo.Context) error {
	const op = "http.routers.GetEvent"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	event, err := r.GalleryService.GetEvent(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, op, err)
	}
	if !event.IsPublished && !isAdmin(c) {
		return r.fail(c, op, storage.ErrEventNotFound)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(event))
}

// CreateEvent godoc
// @Summary Создание события галереи
// @Tags events
// @Accept json
// @Produce json
// @Param request body dto.CreateEventRequest true "Событие"
// @Success 201 {object} response.Response{data=dto.CreateEventResponse}
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Security ApiKeyAuth
// @Router /api/v1/events [post]
func (r *Routers) CreateEvent(c echo.Context) error {
	const op = "http.routers.CreateEvent"

	var req dto.CreateEventRequest
	if err := r.bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := r.GalleryService.CreateEvent(c.Request().Context(), req)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(dto.CreateEventResponse{ID: id}))
}

// UpdateEvent godoc
// @Summary Редактирование события
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "ID события" format(uuid)
// @Param request body dto.UpdateEventRequest true "Новые данные"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} response.ErrorResponse "Событие не найдено"
// @Security ApiKeyAuth
// @Router /api/v1/events/{id} [put]
func (r *Routers) UpdateEvent(c echo.Context) error {
	const op = "http.routers.UpdateEvent"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateEventRequest
	if err := r.bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := r.GalleryService.UpdateEvent(c.Request().Context(), id, req); err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "event updated"})
}

// PublishEvent godoc
// @Summary Публикация или снятие с публикации
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "ID события" format(uuid)
// @Param request body dto.PublishEventRequest true "Флаг публикации"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Событие не найдено"
// @Security ApiKeyAuth
// @Router /api/v1/events/{id}/publish [patch]
func (r *Routers) PublishEvent(c echo.Context) error {
	const op = "http.routers.PublishEvent"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req dto.PublishEventRequest
	if err := r.bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := r.GalleryService.SetPublished(c.Request().Context(), id, *req.IsPublished); err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "publish flag updated"})
}

// SetEventCover godoc
// @Summary Выбор обложки события
// @Description Явно назначает обложку, перезаписывая текущую.
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "ID события" format(uuid)
// @Param request body dto.EventCoverRequest true "URL обложки"
// @Success 200 {object} response.Response{data=dto.EventCoverResponse}
// @Failure 404 {object} response.ErrorResponse "Событие не найдено"
// @Security ApiKeyAuth
// @Router /api/v1/events/{id}/cover [patch]
func (r *Routers) SetEventCover(c echo.Context) error {
	const op = "http.routers.SetEventCover"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req dto.EventCoverRequest
	if err := r.bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := r.GalleryService.SetCover(c.Request().Context(), id, req.CoverImageURL); err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.EventCoverResponse{Updated: true}))
}

// SetEventCoverIfEmpty godoc
// @Summary Обложка, если ее еще нет
// @Description Условное обновление: обложка записывается, только если у события ее нет.
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "ID события" format(uuid)
// @Param request body dto.EventCoverRequest true "URL обложки"
// @Success 200 {object} response.Response{data=dto.EventCoverResponse}
// @Failure 404 {object} response.ErrorResponse "Событие не найдено"
// @Security ApiKeyAuth
// @Router /api/v1/events/{id}/cover/if-empty [post]
func (r *Routers) SetEventCoverIfEmpty(c echo.Context) error {
	const op = "http.routers.SetEventCoverIfEmpty"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req dto.EventCoverRequest
	if err := r.bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := r.GalleryService.SetCoverIfEmpty(c.Request().Context(), id, req.CoverImageURL)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.EventCoverResponse{Updated: updated}))
}

// DeleteEvent godoc
// @Summary Удаление события
// @Description Без cascade удаляет только пустое событие (409, если есть изображения). С cascade=true сначала удаляет все изображения.
// @Tags events
// @Produce json
// @Param id path string true "ID события" format(uuid)
// @Param cascade query bool false "Удалить вместе с изображениями"
// @Success 200 {object} response.Response{data=dto.DeleteEventResponse}
// @Failure 404 {object} response.ErrorResponse "Событие не найдено"
// @Failure 409 {object} response.ErrorResponse "У события есть изображения"
// @Security ApiKeyAuth
// @Router /api/v1/events/{id} [delete]
func (r *Routers) DeleteEvent(c echo.Context) error {
	const op = "http.routers.DeleteEvent"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	cascade, _ := strconv.ParseBool(c.QueryParam("cascade"))
	if !cascade {
		if err := r.GalleryService.DeleteEvent(c.Request().Context(), id); err != nil {
			return r.fail(c, op, err)
		}
		return c.JSON(http.StatusOK, response.SuccessResponse(dto.DeleteEventResponse{}))
	}

	res, err := r.GalleryService.DeleteEventCascade(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.DeleteEventResponse{
		ImagesDeleted: res.ImagesDeleted,
		AlreadyGone:   res.AlreadyGone,
	}))
}

// ListEventImages godoc
// @Summary Изображения события
// @Description Упорядочены по order, затем по времени создания.
// @Tags images
// @Produce json
// @Param id path string true "ID события" format(uuid)
// @Success 200 {object} response.Response{data=[]models.GalleryImage}
// @Failure 400 {object} response.ErrorResponse "Некорректный UUID"
// @Router /api/v1/events/{id}/images [get]
func (r *Routers) ListEventImages(c echo.Context) error {
	const op = "http.routers.ListEventImages"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	images, err := r.GalleryService.ListImagesByEvent(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, op, err)
	}
	if images == nil {
		images = []models.GalleryImage{}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(images))
}

// InsertImage godoc
// @Summary Прикрепление изображения к событию
// @Description Если uploaded_by не указан, берется имя администратора из токена.
// @Tags images
// @Accept json
// @Produce json
// @Param request body dto.InsertImageRequest true "Изображение"
// @Success 201 {object} response.Response{data=dto.InsertImageResponse}
// @Failure 400 {object} response.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} response.ErrorResponse "Событие не найдено"
// @Security ApiKeyAuth
// @Router /api/v1/images [post]
func (r *Routers) InsertImage(c echo.Context) error {
	const op = "http.routers.InsertImage"

	var req dto.InsertImageRequest
	if err := r.bindAndValidate(c, &req); err != nil {
		return err
	}

	image := req.ToDomain()
	if strings.TrimSpace(image.UploadedBy) == "" {
		image.UploadedBy = adminName(c)
	}

	id, err := r.GalleryService.InsertImage(c.Request().Context(), image)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(dto.InsertImageResponse{ID: id}))
}

// DeleteImage godoc
// @Summary Удаление изображения
// @Tags images
// @Param id path string true "ID изображения" format(uuid)
// @Success 204
// @Failure 404 {object} response.ErrorResponse "Изображение не найдено"
// @Security ApiKeyAuth
// @Router /api/v1/images/{id} [delete]
func (r *Routers) DeleteImage(c echo.Context) error {
	const op = "http.routers.DeleteImage"

	id, err := r.uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := r.GalleryService.DeleteImage(c.Request().Context(), id); err != nil {
		return r.fail(c, op, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// bindAndValidate пишет 400 в ответ и возвращает ErrInvalidRequest, если тело не прошло разбор или валидацию
func (r *Routers) bindAndValidate(c echo.Context, req interface{}) error {
	body := response.ErrInvalidRequestFormat
	if err := c.Bind(req); err != nil {
		r.log.Debug("bind failed", slog.String("path", c.Path()), sl.Err(err))
	} else if err := c.Validate(req); err != nil {
		body = response.ErrorResponseWithDetails(response.ErrInvalidRequestFormat.Error, err.Error())
	} else {
		return nil
	}

	if werr := c.JSON(http.StatusBadRequest, body); werr != nil {
		return werr
	}
	return ErrInvalidRequest
}

// uuidParam пишет 400 в ответ и возвращает ErrInvalidUUID, если параметр не UUID
func (r *Routers) uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		if werr := c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails(response.ErrInvalidRequestFormat.Error, "invalid "+name+" format")); werr != nil {
			return uuid.Nil, werr
		}
		return uuid.Nil, ErrInvalidUUID
	}
	return id, nil
}

// fail переводит ошибку сервиса в HTTP-ответ
func (r *Routers) fail(c echo.Context, op string, err error) error {
	log := r.log.With(slog.String("op", op))

	status, body := http.StatusInternalServerError, response.ErrInternal
	switch {
	case errors.Is(err, storage.ErrEventNotFound):
		status, body = http.StatusNotFound, response.ErrEventNotFound
	case errors.Is(err, storage.ErrImageNotFound):
		status, body = http.StatusNotFound, response.ErrImageNotFound
	case errors.Is(err, storage.ErrFileNotFound):
		status, body = http.StatusNotFound, response.ErrFileNotFound
	case errors.Is(err, storage.ErrSlotNotFound):
		status, body = http.StatusNotFound, response.ErrSlotNotFound
	case errors.Is(err, storage.ErrEventHasImages):
		status, body = http.StatusConflict, response.ErrEventHasImages
	case errors.Is(err, storage.ErrInvalidFileType):
		status, body = http.StatusUnsupportedMediaType, response.ErrUnsupportedMediaType
	case errors.Is(err, storage.ErrFileTooLarge):
		status, body = http.StatusRequestEntityTooLarge, response.ErrFileTooLarge
	case errors.Is(err, gallery.ErrInvalidInput):
		status, body = http.StatusBadRequest, response.ErrorResponseWithDetails(response.ErrInvalidRequestFormat.Error, err.Error())
	}

	if status == http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Warn("request rejected", slog.Int("status", status), sl.Err(err))
	}

	return c.JSON(status, body)
}

// adminName - имя администратора из проверенного echojwt токена
func adminName(c echo.Context) string {
	claims, ok := adminClaims(c)
	if !ok {
		return ""
	}
	return claims.Name
}

func isAdmin(c echo.Context) bool {
	_, ok := adminClaims(c)
	return ok
}

func adminClaims(c echo.Context) (*jwtlib.AdminClaims, bool) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(*jwtlib.AdminClaims)
	return claims, ok
}

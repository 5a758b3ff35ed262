// Package platform - Go-клиент API сервиса галереи. Реализует интерфейсы
// пакета upload поверх HTTP.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/storage"
	"school_gallery/internal/transport/http/dto"
	"school_gallery/internal/transport/http/dto/response"

	"github.com/google/uuid"
)

const apiPrefix = "/api/v1"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// APIError ответ сервиса не из 2xx
type APIError struct {
	StatusCode int
	Code       string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Details)
	}
	return fmt.Sprintf("api error %d %s", e.StatusCode, e.Code)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return storage.ErrNotFound
	case e.StatusCode == http.StatusConflict && e.Code == response.ErrEventHasImages.Error:
		return storage.ErrEventHasImages
	case e.StatusCode == http.StatusRequestEntityTooLarge:
		return storage.ErrFileTooLarge
	case e.StatusCode == http.StatusUnsupportedMediaType:
		return storage.ErrInvalidFileType
	}
	return nil
}

type envelope[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return zero, err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reqBody)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return zero, decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return zero, nil
	}

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return env.Data, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body response.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Code, apiErr.Details = body.Error, body.Details
		return apiErr
	}

	// echo.HTTPError: {"message": "..."}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &msg); err == nil && msg.Message != "" {
		apiErr.Details = msg.Message
	} else {
		apiErr.Details = strings.TrimSpace(string(raw))
	}
	apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
	return apiErr
}

func (c *Client) RequestUploadSlot(ctx context.Context) (string, error) {
	res, err := call[dto.UploadURLResponse](ctx, c, http.MethodPost, "/storage/upload-url", nil)
	if err != nil {
		return "", err
	}
	if res.UploadURL == "" {
		return "", fmt.Errorf("empty upload url")
	}
	return res.UploadURL, nil
}

func (c *Client) RecordFile(ctx context.Context, storageID, fileName, fileType string) (string, error) {
	res, err := call[dto.RecordFileResponse](ctx, c, http.MethodPost, "/storage/files", dto.RecordFileRequest{
		StorageID: storageID,
		FileName:  fileName,
		FileType:  fileType,
	})
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

func (c *Client) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (uuid.UUID, error) {
	res, err := call[dto.CreateEventResponse](ctx, c, http.MethodPost, "/events", req)
	if err != nil {
		return uuid.Nil, err
	}
	return res.ID, nil
}

func (c *Client) GetEvent(ctx context.Context, id uuid.UUID) (models.GalleryEvent, error) {
	return call[models.GalleryEvent](ctx, c, http.MethodGet, "/events/"+id.String(), nil)
}

func (c *Client) ListEvents(ctx context.Context, filter models.EventFilter) (dto.EventListResponse, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	for _, y := range filter.AcademicYears {
		q.Add("academic_year", y)
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(filter.PerPage))
	}

	path := "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return call[dto.EventListResponse](ctx, c, http.MethodGet, path, nil)
}

// SetCover явный выбор обложки, перезаписывает текущую
func (c *Client) SetCover(ctx context.Context, eventID uuid.UUID, coverURL string) error {
	_, err := call[dto.EventCoverResponse](ctx, c, http.MethodPatch, "/events/"+eventID.String()+"/cover",
		dto.EventCoverRequest{CoverImageURL: coverURL})
	return err
}

func (c *Client) SetCoverIfEmpty(ctx context.Context, eventID uuid.UUID, coverURL string) (bool, error) {
	res, err := call[dto.EventCoverResponse](ctx, c, http.MethodPost, "/events/"+eventID.String()+"/cover/if-empty",
		dto.EventCoverRequest{CoverImageURL: coverURL})
	if err != nil {
		return false, err
	}
	return res.Updated, nil
}

func (c *Client) InsertImage(ctx context.Context, img models.GalleryImage) (uuid.UUID, error) {
	res, err := call[dto.InsertImageResponse](ctx, c, http.MethodPost, "/images", dto.InsertImageRequest{
		EventID:    img.EventID,
		ImageURL:   img.ImageURL,
		StorageID:  img.StorageID,
		Caption:    img.Caption,
		Order:      img.Order,
		UploadedBy: img.UploadedBy,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return res.ID, nil
}

func (c *Client) ListImagesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.GalleryImage, error) {
	return call[[]models.GalleryImage](ctx, c, http.MethodGet, "/events/"+eventID.String()+"/images", nil)
}

func (c *Client) DeleteImage(ctx context.Context, id uuid.UUID) error {
	_, err := call[struct{}](ctx, c, http.MethodDelete, "/images/"+id.String(), nil)
	return err
}

// DeleteEvent удаляет только строку события, пока есть изображения сервис
// отвечает 409. Каскад - upload.DeleteEvent.
func (c *Client) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	_, err := call[dto.DeleteEventResponse](ctx, c, http.MethodDelete, "/events/"+id.String(), nil)
	return err
}

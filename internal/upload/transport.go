package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"school_gallery/internal/domain/models"

	"github.com/google/uuid"
)

// SlotIssuer выдает одноразовые адреса загрузки
type SlotIssuer interface {
	RequestUploadSlot(ctx context.Context) (string, error)
}

// Transport отправляет байты файла на адрес слота и возвращает storage id.
// onProgress получает число отправленных байтов и общий размер.
type Transport interface {
	Transfer(ctx context.Context, slotURL string, f File, onProgress func(sent, total int64)) (string, error)
}

// FileRecorder превращает storage id в постоянный публичный URL
type FileRecorder interface {
	RecordFile(ctx context.Context, storageID, fileName, fileType string) (string, error)
}

// MetadataStore часть хранилища метаданных, нужная для прикрепления
type MetadataStore interface {
	GetEvent(ctx context.Context, id uuid.UUID) (models.GalleryEvent, error)
	InsertImage(ctx context.Context, image models.GalleryImage) (uuid.UUID, error)
	SetCoverIfEmpty(ctx context.Context, eventID uuid.UUID, coverURL string) (bool, error)
}

// CascadeStore часть хранилища метаданных, нужная для каскадного удаления
type CascadeStore interface {
	ListImagesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.GalleryImage, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// HTTPTransport отправляет POST с сырыми байтами файла на адрес слота
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPTransport{client: client}
}

type transferReceipt struct {
	StorageID string `json:"storageId"`
}

func (t *HTTPTransport) Transfer(ctx context.Context, slotURL string, f File, onProgress func(sent, total int64)) (string, error) {
	body, err := f.Open()
	if err != nil {
		return "", err
	}
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slotURL, &progressReader{
		r:     body,
		total: f.Size,
		fn:    onProgress,
	})
	if err != nil {
		return "", err
	}
	req.ContentLength = f.Size
	req.Header.Set("Content-Type", f.ContentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}

	var receipt transferReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	if receipt.StorageID == "" {
		return "", ErrMalformedReceipt
	}

	return receipt.StorageID, nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}

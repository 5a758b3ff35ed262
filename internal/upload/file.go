package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxFileSize лимит размера одного файла до загрузки
const DefaultMaxFileSize = 5 << 20

// File локальный файл, выбранный пользователем
type File struct {
	Name        string
	ContentType string
	Size        int64
	open        func() (io.ReadCloser, error)
}

// OpenFile описывает файл на диске. Тип определяется по содержимому,
// по расширению - если содержимое ничего не дало.
func OpenFile(path string) (File, error) {
	const op = "upload.OpenFile"

	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", op, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s: %s is a directory", op, path)
	}

	contentType := ""
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") || strings.HasPrefix(contentType, "text/plain") {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			contentType = byExt
		}
	}

	return File{
		Name:        filepath.Base(path),
		ContentType: baseMediaType(contentType),
		Size:        info.Size(),
		open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// NewFile файл из байтов в памяти
func NewFile(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("%s: no content", f.Name)
	}
	return f.open()
}

// Caption подпись по умолчанию: имя файла без расширения
func (f File) Caption() string {
	base := filepath.Base(f.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func baseMediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return contentType
}

// StagedUpload файл, байты которого сохранены и URL известен; ждет прикрепления к событию
type StagedUpload struct {
	Index     int
	File      File
	StorageID string
	URL       string
	Caption   string
	ImageID   uuid.UUID // set once the image row exists
}

func (s StagedUpload) Ready() bool {
	return s.URL != ""
}

func (s StagedUpload) Committed() bool {
	return s.ImageID != uuid.Nil
}

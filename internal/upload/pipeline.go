package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"school_gallery/internal/lib/logger/sl"
)

// Reporter получает прогресс пайплайна. Вызовы идут по порядку из горутины UploadBatch.
type Reporter interface {
	FileProgress(index, percent int)
	FileDone(index int, staged *StagedUpload, err error)
	BatchProgress(percent int)
}

type NopReporter struct{}

func (NopReporter) FileProgress(int, int)              {}
func (NopReporter) FileDone(int, *StagedUpload, error) {}
func (NopReporter) BatchProgress(int)                  {}

type Options struct {
	MaxFileSize int64
	// TransferTimeout ограничивает одну передачу, ноль - без лимита
	TransferTimeout time.Duration
}

// BatchResult загруженные файлы в исходном порядке и ошибки по файлам
type BatchResult struct {
	Total     int
	Attempted int
	Staged    []StagedUpload
	Failures  []FileFailure
}

type Pipeline struct {
	log       *slog.Logger
	slots     SlotIssuer
	transport Transport
	recorder  FileRecorder
	opts      Options
}

func NewPipeline(log *slog.Logger, slots SlotIssuer, transport Transport, recorder FileRecorder, opts Options) *Pipeline {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Pipeline{
		log:       log,
		slots:     slots,
		transport: transport,
		recorder:  recorder,
		opts:      opts,
	}
}

var errAbandoned = errors.New("abandoned")

// UploadBatch проверяет и загружает файлы по одному. Ошибка одного файла не
// останавливает пакет. При отмене ctx незавершенные файлы бросаются,
// возвращается частичный результат и ctx.Err().
func (p *Pipeline) UploadBatch(ctx context.Context, files []File, r Reporter) (BatchResult, error) {
	const op = "upload.Pipeline.UploadBatch"

	log := p.log.With(
		slog.String("op", op),
		slog.Int("files", len(files)),
	)

	if len(files) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	if r == nil {
		r = NopReporter{}
	}

	res := BatchResult{Total: len(files)}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			log.Info("batch abandoned", slog.Int("attempted", res.Attempted))
			return res, err
		}

		staged, err := p.uploadOne(ctx, i, f, r)
		if errors.Is(err, errAbandoned) {
			log.Info("batch abandoned", slog.Int("attempted", res.Attempted), slog.String("file", f.Name))
			return res, ctx.Err()
		}

		res.Attempted++
		if err != nil {
			log.Warn("file failed", slog.String("file", f.Name), sl.Err(err))
			res.Failures = append(res.Failures, FileFailure{Index: i, FileName: f.Name, Err: err})
			r.FileDone(i, nil, err)
		} else {
			res.Staged = append(res.Staged, *staged)
			r.FileDone(i, staged, nil)
		}

		r.BatchProgress(overallProgress(res.Attempted, res.Total))
	}

	log.Info("batch finished",
		slog.Int("staged", len(res.Staged)),
		slog.Int("failed", len(res.Failures)),
	)

	return res, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, index int, f File, r Reporter) (*StagedUpload, error) {
	if err := p.validate(f); err != nil {
		return nil, err
	}

	slotURL, err := p.slots.RequestUploadSlot(ctx)
	if ctx.Err() != nil {
		return nil, errAbandoned
	}
	if err != nil {
		return nil, &TransferError{FileName: f.Name, Stage: "slot request", Err: err}
	}

	r.FileProgress(index, 0)
	storageID, err := p.transfer(ctx, index, slotURL, f, r)
	if ctx.Err() != nil {
		return nil, errAbandoned
	}
	if err != nil {
		return nil, &TransferError{FileName: f.Name, Stage: "transfer", Err: err}
	}

	url, err := p.recorder.RecordFile(ctx, storageID, f.Name, f.ContentType)
	if ctx.Err() != nil {
		return nil, errAbandoned
	}
	if err != nil {
		return nil, &ResolutionError{FileName: f.Name, StorageID: storageID, Err: err}
	}

	return &StagedUpload{
		Index:     index,
		File:      f,
		StorageID: storageID,
		URL:       url,
		Caption:   f.Caption(),
	}, nil
}

// transfer отвязан от отмены ctx: начатую передачу прерывает только TransferTimeout
func (p *Pipeline) transfer(ctx context.Context, index int, slotURL string, f File, r Reporter) (string, error) {
	tctx := context.WithoutCancel(ctx)
	if p.opts.TransferTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(tctx, p.opts.TransferTimeout)
		defer cancel()
	}

	last := 0
	storageID, err := p.transport.Transfer(tctx, slotURL, f, func(sent, total int64) {
		if pct := percentOf(sent, total); pct > last {
			last = pct
			r.FileProgress(index, pct)
		}
	})
	if err != nil {
		return "", err
	}
	if storageID == "" {
		return "", ErrMalformedReceipt
	}
	if last < 100 {
		r.FileProgress(index, 100)
	}

	return storageID, nil
}

func (p *Pipeline) validate(f File) error {
	if !strings.HasPrefix(f.ContentType, "image/") {
		return &ValidationError{FileName: f.Name, Reason: fmt.Sprintf("not an image (%s)", displayType(f.ContentType))}
	}
	if f.Size > p.opts.MaxFileSize {
		return &ValidationError{FileName: f.Name, Reason: fmt.Sprintf("larger than %d MB", p.opts.MaxFileSize>>20)}
	}
	return nil
}

func displayType(contentType string) string {
	if contentType == "" {
		return "unknown type"
	}
	return contentType
}

func percentOf(sent, total int64) int {
	if total <= 0 {
		return 100
	}
	pct := int(sent * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// overallProgress отдает 100 только после попытки по каждому файлу
func overallProgress(done, total int) int {
	if total == 0 {
		return 100
	}
	pct := int(math.Round(100 * float64(done) / float64(total)))
	if done < total && pct >= 100 {
		pct = 99
	}
	return pct
}

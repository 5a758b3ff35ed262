package upload

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"school_gallery/internal/domain/models"
	"school_gallery/internal/storage"

	"github.com/google/uuid"
)

// platform is an in-memory stand-in for the gateway and the asset store.
type platform struct {
	mu sync.Mutex

	slotCalls   int
	slotErr     error
	recordCalls int
	recordErr   map[string]error // by file name

	events map[uuid.UUID]models.GalleryEvent
	images map[uuid.UUID]models.GalleryImage

	insertCalls    int
	insertErr      map[string]error // by storage id
	deleteImageErr map[uuid.UUID]error
	// deleteEventOnInsert removes the event right before the n-th insert (1-based)
	deleteEventOnInsert int

	coverCalls int
	coverErrs  []error // returned by successive SetCoverIfEmpty calls
}

func newPlatform() *platform {
	return &platform{
		recordErr:      map[string]error{},
		events:         map[uuid.UUID]models.GalleryEvent{},
		images:         map[uuid.UUID]models.GalleryImage{},
		insertErr:      map[string]error{},
		deleteImageErr: map[uuid.UUID]error{},
	}
}

func (p *platform) addEvent(cover *string) uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.New()
	p.events[id] = models.GalleryEvent{
		ID:            id,
		Title:         "Sports day",
		Description:   "Annual sports day",
		AcademicYear:  "2024-2025",
		CoverImageURL: cover,
	}
	return id
}

func (p *platform) cover(id uuid.UUID) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.events[id]
	if e.CoverImageURL == nil {
		return ""
	}
	return *e.CoverImageURL
}

func (p *platform) eventExists(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.events[id]
	return ok
}

func (p *platform) RequestUploadSlot(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slotCalls++
	if p.slotErr != nil {
		return "", p.slotErr
	}
	return fmt.Sprintf("mem://slot/%d", p.slotCalls), nil
}

func (p *platform) RecordFile(ctx context.Context, storageID, fileName, fileType string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordCalls++
	if err := p.recordErr[fileName]; err != nil {
		return "", err
	}
	return "https://cdn.test/" + storageID, nil
}

func (p *platform) GetEvent(ctx context.Context, id uuid.UUID) (models.GalleryEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.events[id]
	if !ok {
		return models.GalleryEvent{}, storage.ErrEventNotFound
	}
	return e, nil
}

func (p *platform) InsertImage(ctx context.Context, img models.GalleryImage) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.insertCalls++
	if p.deleteEventOnInsert == p.insertCalls {
		delete(p.events, img.EventID)
	}
	if err := p.insertErr[img.StorageID]; err != nil {
		return uuid.Nil, err
	}
	if _, ok := p.events[img.EventID]; !ok {
		return uuid.Nil, fmt.Errorf("insert: %w", storage.ErrEventNotFound)
	}
	img.ID = uuid.New()
	p.images[img.ID] = img
	return img.ID, nil
}

func (p *platform) SetCoverIfEmpty(ctx context.Context, eventID uuid.UUID, url string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coverCalls++
	if len(p.coverErrs) > 0 {
		err := p.coverErrs[0]
		p.coverErrs = p.coverErrs[1:]
		return false, err
	}
	e, ok := p.events[eventID]
	if !ok {
		return false, storage.ErrEventNotFound
	}
	if e.HasCover() {
		return false, nil
	}
	e.CoverImageURL = &url
	p.events[eventID] = e
	return true, nil
}

func (p *platform) ListImagesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.GalleryImage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.GalleryImage
	for _, img := range p.images {
		if img.EventID == eventID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (p *platform) DeleteImage(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.deleteImageErr[id]; err != nil {
		return err
	}
	if _, ok := p.images[id]; !ok {
		return storage.ErrImageNotFound
	}
	delete(p.images, id)
	return nil
}

func (p *platform) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.events[id]; !ok {
		return storage.ErrEventNotFound
	}
	for _, img := range p.images {
		if img.EventID == id {
			return storage.ErrEventHasImages
		}
	}
	delete(p.events, id)
	return nil
}

func (p *platform) imageCount(eventID uuid.UUID) int {
	list, _ := p.ListImagesByEvent(context.Background(), eventID)
	return len(list)
}

// fakeTransport reports progress in four chunks and returns "sid-<name>".
type fakeTransport struct {
	mu       sync.Mutex
	calls    []string
	errs     map[string]error
	block    map[string]bool // waits for ctx.Done
	onStart  func(name string)
	receipts map[string]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{errs: map[string]error{}, block: map[string]bool{}, receipts: map[string]string{}}
}

func (t *fakeTransport) Transfer(ctx context.Context, slotURL string, f File, onProgress func(sent, total int64)) (string, error) {
	t.mu.Lock()
	t.calls = append(t.calls, f.Name)
	onStart, block, err := t.onStart, t.block[f.Name], t.errs[f.Name]
	receipt, hasReceipt := t.receipts[f.Name]
	t.mu.Unlock()

	if onStart != nil {
		onStart(f.Name)
	}
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	for i := int64(1); i <= 4; i++ {
		onProgress(f.Size*i/4, f.Size)
	}
	if hasReceipt {
		return receipt, nil
	}
	return "sid-" + f.Name, nil
}

func (t *fakeTransport) transferred() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// recorder captures reporter callbacks.
type recorder struct {
	mu      sync.Mutex
	file    map[int][]int
	done    map[int]error
	staged  map[int]*StagedUpload
	overall []int
}

func newRecorder() *recorder {
	return &recorder{file: map[int][]int{}, done: map[int]error{}, staged: map[int]*StagedUpload{}}
}

func (r *recorder) FileProgress(index, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.file[index] = append(r.file[index], percent)
}

func (r *recorder) FileDone(index int, staged *StagedUpload, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done[index] = err
	r.staged[index] = staged
}

func (r *recorder) BatchProgress(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overall = append(r.overall, percent)
}

func image(name string, size int64) File {
	return NewFile(name, "image/jpeg", make([]byte, size))
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func newTestPipeline(p *platform, t Transport) *Pipeline {
	return NewPipeline(testLogger(), p, t, p, Options{MaxFileSize: DefaultMaxFileSize, TransferTimeout: time.Second})
}

func staged(urls ...string) []StagedUpload {
	out := make([]StagedUpload, len(urls))
	for i, u := range urls {
		out[i] = StagedUpload{
			Index:     i,
			File:      NewFile(u+".jpg", "image/jpeg", []byte{1}),
			StorageID: "sid-" + u,
			URL:       "https://cdn.test/" + u,
			Caption:   "  " + u + "  ",
		}
	}
	return out
}

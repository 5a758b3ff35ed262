package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"school_gallery/internal/domain/models"
	jwtlib "school_gallery/internal/lib/jwt"
	"school_gallery/internal/transport/http/dto"
	"school_gallery/internal/transport/http/dto/response"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

// fakeGallery answers the subset of the service API the CLI calls.
type fakeGallery struct {
	mu      sync.Mutex
	srv     *httptest.Server
	eventID uuid.UUID
	cover   string
	images  []dto.InsertImageRequest
	deleted []string
}

func newFakeGallery(t *testing.T) *fakeGallery {
	t.Helper()
	f := &fakeGallery{eventID: uuid.New()}

	writeData := func(w http.ResponseWriter, status int, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response.SuccessResponse(data))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/storage/upload-url", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, dto.UploadURLResponse{UploadURL: f.srv.URL + "/upload/" + uuid.NewString()})
	})
	mux.HandleFunc("POST /upload/{token}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = json.NewEncoder(w).Encode(dto.UploadResponse{StorageID: "sid-" + r.PathValue("token")})
	})
	mux.HandleFunc("POST /api/v1/storage/files", func(w http.ResponseWriter, r *http.Request) {
		var req dto.RecordFileRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeData(w, http.StatusOK, dto.RecordFileResponse{URL: "https://cdn.test/" + req.FileName})
	})
	mux.HandleFunc("GET /api/v1/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != f.eventID.String() {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(response.ErrEventNotFound)
			return
		}
		writeData(w, http.StatusOK, models.GalleryEvent{ID: f.eventID, Title: "Sports day"})
	})
	mux.HandleFunc("POST /api/v1/events/{id}/cover/if-empty", func(w http.ResponseWriter, r *http.Request) {
		var req dto.EventCoverRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		updated := f.cover == ""
		if updated {
			f.cover = req.CoverImageURL
		}
		writeData(w, http.StatusOK, dto.EventCoverResponse{Updated: updated})
	})
	mux.HandleFunc("POST /api/v1/images", func(w http.ResponseWriter, r *http.Request) {
		var req dto.InsertImageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.images = append(f.images, req)
		f.mu.Unlock()
		writeData(w, http.StatusCreated, dto.InsertImageResponse{ID: uuid.New()})
	})
	mux.HandleFunc("GET /api/v1/events/{id}/images", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []models.GalleryImage{{ID: uuid.New()}, {ID: uuid.New()}})
	})
	mux.HandleFunc("DELETE /api/v1/images/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, "image")
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /api/v1/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, "event")
		f.mu.Unlock()
		writeData(w, http.StatusOK, dto.DeleteEventResponse{})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwtlib.NewToken("Ms. Sharma", "server-secret", time.Hour)
	require.NoError(t, err)
	return token
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--name", "Mr. Rao", "--secret", "s3cret")
	require.NoError(t, err)

	claims, err := jwtlib.Parse(strings.TrimSpace(out), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Mr. Rao", claims.Name)
}

func TestUploadCommand(t *testing.T) {
	f := newFakeGallery(t)
	dir := t.TempDir()

	var paths []string
	for _, name := range []string{"assembly.png", "prize.png", "minutes.txt"} {
		p := filepath.Join(dir, name)
		data := pngBytes
		if strings.HasSuffix(name, ".txt") {
			data = []byte("not a photo")
		}
		require.NoError(t, os.WriteFile(p, data, 0o644))
		paths = append(paths, p)
	}

	args := append([]string{
		"upload", "--api", f.srv.URL, "--token", adminToken(t),
		"--caption", "prize.png=Prize giving",
		f.eventID.String(),
	}, paths...)
	out, err := run(t, args...)
	require.NoError(t, err, out)

	assert.Contains(t, out, "2 of 3 files staged")
	assert.Contains(t, out, "minutes.txt")
	assert.Contains(t, out, "attached 2")

	require.Len(t, f.images, 2)
	assert.Equal(t, "assembly", f.images[0].Caption)
	assert.Equal(t, 0, f.images[0].Order)
	assert.Equal(t, "Prize giving", f.images[1].Caption)
	assert.Equal(t, 1, f.images[1].Order)
	assert.Equal(t, "Ms. Sharma", f.images[1].UploadedBy)
	assert.Equal(t, "https://cdn.test/assembly.png", f.cover)
}

func TestUploadCommand_Errors(t *testing.T) {
	f := newFakeGallery(t)
	photo := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(photo, pngBytes, 0o644))

	t.Run("no token", func(t *testing.T) {
		t.Setenv("GALLERY_TOKEN", "")
		_, err := run(t, "upload", "--api", f.srv.URL, f.eventID.String(), photo)
		assert.ErrorIs(t, err, errNoToken)
	})

	t.Run("bad event id", func(t *testing.T) {
		_, err := run(t, "upload", "--api", f.srv.URL, "--token", adminToken(t), "nope", photo)
		assert.Error(t, err)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := run(t, "upload", "--api", f.srv.URL, "--token", adminToken(t), uuid.NewString(), photo)
		assert.Error(t, err)
		assert.Empty(t, f.images)
	})

	t.Run("caption for a missing file", func(t *testing.T) {
		_, err := run(t, "upload", "--api", f.srv.URL, "--token", adminToken(t),
			"--caption", "other.png=x", f.eventID.String(), photo)
		assert.ErrorContains(t, err, "other.png")
	})
}

func TestDeleteEventCommand(t *testing.T) {
	f := newFakeGallery(t)

	out, err := run(t, "delete-event", "--api", f.srv.URL, "--token", adminToken(t), f.eventID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "event deleted with 2 images")
	assert.Equal(t, []string{"image", "image", "event"}, f.deleted)
}

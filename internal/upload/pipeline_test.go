package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadBatch_OversizedFileScenario(t *testing.T) {
	p := newPlatform()
	tr := newFakeTransport()
	pipe := newTestPipeline(p, tr)
	rec := newRecorder()

	files := []File{
		image("a.jpg", 1<<20),
		image("b.jpg", 6<<20),
		image("c.jpg", 2<<20),
	}

	res, err := pipe.UploadBatch(context.Background(), files, rec)
	require.NoError(t, err)

	require.Len(t, res.Staged, 2)
	assert.Equal(t, "a.jpg", res.Staged[0].File.Name)
	assert.Equal(t, "c.jpg", res.Staged[1].File.Name)
	assert.Equal(t, "a", res.Staged[0].Caption)
	assert.Equal(t, "https://cdn.test/sid-a.jpg", res.Staged[0].URL)
	assert.True(t, res.Staged[0].Ready())

	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.True(t, res.Failures[0].IsValidation())

	assert.Equal(t, []int{33, 67, 100}, rec.overall)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, []string{"a.jpg", "c.jpg"}, tr.transferred(), "oversized file must not reach the network")
	assert.Equal(t, 2, p.slotCalls)

	eventID := p.addEvent(nil)
	committer := NewCommitter(testLogger(), p, "Ms. Admin")
	cres, err := committer.CommitImages(context.Background(), eventID, res.Staged)
	require.NoError(t, err)
	assert.Equal(t, 2, cres.Saved)
	assert.True(t, cres.CoverSet)
	assert.Equal(t, "https://cdn.test/sid-a.jpg", p.cover(eventID))

	images, err := p.ListImagesByEvent(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 0, images[0].Order)
	assert.Equal(t, "https://cdn.test/sid-a.jpg", images[0].ImageURL)
	assert.Equal(t, 1, images[1].Order)
	assert.Equal(t, "https://cdn.test/sid-c.jpg", images[1].ImageURL)
}

func TestUploadBatch_Failures(t *testing.T) {
	tests := []struct {
		name       string
		files      []File
		setup      func(p *platform, tr *fakeTransport)
		wantStaged []string
		check      func(t *testing.T, failures []FileFailure)
	}{
		{
			name: "wrong content type",
			files: []File{
				NewFile("notes.txt", "text/plain", []byte("hello")),
				image("ok.jpg", 10),
			},
			wantStaged: []string{"ok.jpg"},
			check: func(t *testing.T, failures []FileFailure) {
				var vErr *ValidationError
				require.ErrorAs(t, failures[0].Err, &vErr)
				assert.Equal(t, "notes.txt", vErr.FileName)
				assert.Contains(t, vErr.Reason, "not an image")
			},
		},
		{
			name:  "transfer failure",
			files: []File{image("one.jpg", 10), image("two.jpg", 10), image("three.jpg", 10)},
			setup: func(p *platform, tr *fakeTransport) {
				tr.errs["two.jpg"] = errors.New("connection reset")
			},
			wantStaged: []string{"one.jpg", "three.jpg"},
			check: func(t *testing.T, failures []FileFailure) {
				var tErr *TransferError
				require.ErrorAs(t, failures[0].Err, &tErr)
				assert.Equal(t, "transfer", tErr.Stage)
				assert.Equal(t, "two.jpg", tErr.FileName)
				assert.False(t, failures[0].IsValidation())
			},
		},
		{
			name:  "slot request failure",
			files: []File{image("one.jpg", 10)},
			setup: func(p *platform, tr *fakeTransport) {
				p.slotErr = errors.New("gateway unavailable")
			},
			check: func(t *testing.T, failures []FileFailure) {
				var tErr *TransferError
				require.ErrorAs(t, failures[0].Err, &tErr)
				assert.Equal(t, "slot request", tErr.Stage)
			},
		},
		{
			name:  "empty receipt",
			files: []File{image("one.jpg", 10), image("two.jpg", 10)},
			setup: func(p *platform, tr *fakeTransport) {
				tr.receipts["one.jpg"] = ""
			},
			wantStaged: []string{"two.jpg"},
			check: func(t *testing.T, failures []FileFailure) {
				assert.ErrorIs(t, failures[0].Err, ErrMalformedReceipt)
			},
		},
		{
			name:  "url resolution failure",
			files: []File{image("one.jpg", 10), image("two.jpg", 10)},
			setup: func(p *platform, tr *fakeTransport) {
				p.recordErr["one.jpg"] = errors.New("file not recorded")
			},
			wantStaged: []string{"two.jpg"},
			check: func(t *testing.T, failures []FileFailure) {
				var rErr *ResolutionError
				require.ErrorAs(t, failures[0].Err, &rErr)
				assert.Equal(t, "sid-one.jpg", rErr.StorageID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlatform()
			tr := newFakeTransport()
			if tt.setup != nil {
				tt.setup(p, tr)
			}
			rec := newRecorder()

			res, err := newTestPipeline(p, tr).UploadBatch(context.Background(), tt.files, rec)
			require.NoError(t, err)

			var names []string
			for _, s := range res.Staged {
				names = append(names, s.File.Name)
			}
			assert.Equal(t, tt.wantStaged, names)
			require.NotEmpty(t, res.Failures)
			assert.Equal(t, len(tt.files), res.Attempted)
			assert.Equal(t, 100, rec.overall[len(rec.overall)-1])

			for _, f := range res.Failures {
				assert.Error(t, rec.done[f.Index], "failure must go through the reporter")
				assert.Nil(t, rec.staged[f.Index])
			}
			tt.check(t, res.Failures)
		})
	}
}

func TestUploadBatch_PreservesOrder(t *testing.T) {
	for n := 1; n <= 12; n++ {
		t.Run(fmt.Sprintf("%d files", n), func(t *testing.T) {
			p := newPlatform()
			tr := newFakeTransport()

			files := make([]File, n)
			var want []string
			for i := range files {
				name := fmt.Sprintf("img-%02d.jpg", i)
				switch {
				case i%3 == 1:
					files[i] = NewFile(name, "application/pdf", []byte{1})
				case i%4 == 2:
					files[i] = image(name, 8)
					tr.errs[name] = errors.New("timeout")
				default:
					files[i] = image(name, 8)
					want = append(want, name)
				}
			}

			rec := newRecorder()
			res, err := newTestPipeline(p, tr).UploadBatch(context.Background(), files, rec)
			require.NoError(t, err)

			var got []string
			prev := -1
			for _, s := range res.Staged {
				got = append(got, s.File.Name)
				assert.Greater(t, s.Index, prev)
				prev = s.Index
			}
			assert.Equal(t, want, got)
			assert.Equal(t, n, len(res.Staged)+len(res.Failures))

			require.Len(t, rec.overall, n)
			for i := 1; i < len(rec.overall); i++ {
				assert.GreaterOrEqual(t, rec.overall[i], rec.overall[i-1])
			}
			for i := 0; i < n-1; i++ {
				assert.Less(t, rec.overall[i], 100)
			}
			assert.Equal(t, 100, rec.overall[n-1])
		})
	}
}

func TestUploadBatch_FileProgress(t *testing.T) {
	p := newPlatform()
	rec := newRecorder()

	_, err := newTestPipeline(p, newFakeTransport()).UploadBatch(context.Background(), []File{image("a.jpg", 400)}, rec)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 25, 50, 75, 100}, rec.file[0])
}

func TestUploadBatch_Empty(t *testing.T) {
	_, err := newTestPipeline(newPlatform(), newFakeTransport()).UploadBatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestUploadBatch_CancelDuringTransfer(t *testing.T) {
	p := newPlatform()
	tr := newFakeTransport()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr.onStart = func(name string) {
		if name == "two.jpg" {
			cancel()
		}
	}
	rec := newRecorder()

	res, err := newTestPipeline(p, tr).UploadBatch(ctx, []File{
		image("one.jpg", 40),
		image("two.jpg", 40),
		image("three.jpg", 40),
	}, rec)

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Staged, 1)
	assert.Equal(t, "one.jpg", res.Staged[0].File.Name)
	assert.Equal(t, 1, res.Attempted)

	// the started transfer ran to completion, nothing after it did
	assert.Equal(t, []string{"one.jpg", "two.jpg"}, tr.transferred())
	assert.Equal(t, []int{0, 25, 50, 75, 100}, rec.file[1])
	assert.Equal(t, 1, p.recordCalls)
	_, reported := rec.done[1]
	assert.False(t, reported, "abandoned file must not be reported")
}

func TestUploadBatch_CancelledBeforeStart(t *testing.T) {
	p := newPlatform()
	tr := newFakeTransport()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestPipeline(p, tr).UploadBatch(ctx, []File{image("one.jpg", 10)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Staged)
	assert.Empty(t, tr.transferred())
	assert.Zero(t, p.slotCalls)
}

func TestUploadBatch_TransferTimeout(t *testing.T) {
	p := newPlatform()
	tr := newFakeTransport()
	tr.block["slow.jpg"] = true

	pipe := NewPipeline(testLogger(), p, tr, p, Options{TransferTimeout: 50 * time.Millisecond})
	res, err := pipe.UploadBatch(context.Background(), []File{image("slow.jpg", 10), image("fast.jpg", 10)}, nil)
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	var tErr *TransferError
	require.ErrorAs(t, res.Failures[0].Err, &tErr)
	assert.ErrorIs(t, tErr, context.DeadlineExceeded)

	require.Len(t, res.Staged, 1)
	assert.Equal(t, "fast.jpg", res.Staged[0].File.Name)
}

func TestOverallProgress(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 0, 100},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{199, 200, 99},
		{1, 1, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, overallProgress(tt.done, tt.total), "%d/%d", tt.done, tt.total)
	}
}

func TestHTTPTransport_Transfer(t *testing.T) {
	payload := make([]byte, 64<<10)
	for i := range payload {
		payload[i] = byte(i)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			assert.Equal(t, payload, body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"storageId":"st-123"}`))
		case "/fail":
			http.Error(w, "slot expired", http.StatusNotFound)
		case "/garbage":
			_, _ = w.Write([]byte(`<html>`))
		case "/empty":
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.Client())
	f := NewFile("pic.png", "image/png", payload)

	t.Run("success", func(t *testing.T) {
		var last, calls int64
		id, err := tr.Transfer(context.Background(), srv.URL+"/ok", f, func(sent, total int64) {
			assert.GreaterOrEqual(t, sent, last)
			assert.Equal(t, int64(len(payload)), total)
			last = sent
			calls++
		})
		require.NoError(t, err)
		assert.Equal(t, "st-123", id)
		assert.Equal(t, int64(len(payload)), last)
		assert.Positive(t, calls)
	})

	t.Run("non 2xx", func(t *testing.T) {
		_, err := tr.Transfer(context.Background(), srv.URL+"/fail", f, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := tr.Transfer(context.Background(), srv.URL+"/garbage", f, nil)
		assert.ErrorIs(t, err, ErrMalformedReceipt)
	})

	t.Run("missing storage id", func(t *testing.T) {
		_, err := tr.Transfer(context.Background(), srv.URL+"/empty", f, nil)
		assert.ErrorIs(t, err, ErrMalformedReceipt)
	})
}

func TestPipeline_WithHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = fmt.Fprintf(w, `{"storageId":"st%s"}`, r.URL.Path[len("/slot"):])
	}))
	defer srv.Close()

	slots := &httpSlots{base: srv.URL}
	p := newPlatform()
	pipe := NewPipeline(testLogger(), slots, NewHTTPTransport(srv.Client()), p, Options{})

	res, err := pipe.UploadBatch(context.Background(), []File{image("x.jpg", 1024), image("y.jpg", 2048)}, nil)
	require.NoError(t, err)
	require.Len(t, res.Staged, 2)
	assert.Equal(t, "st1", res.Staged[0].StorageID)
	assert.Equal(t, "st2", res.Staged[1].StorageID)
	assert.Equal(t, "https://cdn.test/st2", res.Staged[1].URL)
}

type httpSlots struct {
	base string
	n    int
}

func (s *httpSlots) RequestUploadSlot(context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("%s/slot%d", s.base, s.n), nil
}

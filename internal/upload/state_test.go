package upload

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_Transitions(t *testing.T) {
	s := Reduce(State{}, BatchStarted{Total: 2})
	assert.Equal(t, PhaseUploading, s.Phase)
	assert.Equal(t, 2, s.Total)

	s = Reduce(s, FileProgressed{Index: 0, Percent: 40})
	assert.Equal(t, 40, s.FilePercent)

	ready := StagedUpload{Index: 0, URL: "https://cdn.test/a", Caption: "a"}
	s = Reduce(s, FileFinished{Index: 0, Staged: &ready})
	s = Reduce(s, BatchProgressed{Percent: 50})
	s = Reduce(s, FileFinished{Index: 1, Name: "b.gif", Err: errors.New("boom")})
	s = Reduce(s, BatchProgressed{Percent: 40})
	assert.Equal(t, 50, s.Overall, "overall progress never goes back")

	s = Reduce(s, BatchFinished{})
	assert.Equal(t, PhaseStaged, s.Phase)
	assert.Equal(t, 100, s.Overall)
	require.Len(t, s.Staged, 1)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "b.gif", s.Failures[0].FileName)

	// events that do not belong to the phase are ignored
	assert.Equal(t, s, Reduce(s, FileProgressed{Index: 1, Percent: 10}))
	assert.Equal(t, s, Reduce(s, BatchStarted{Total: 9}))
	assert.Equal(t, s, Reduce(s, CommitFinished{}))

	s = Reduce(s, CommitStarted{})
	assert.Equal(t, PhaseCommitting, s.Phase)
	id := uuid.New()
	s = Reduce(s, CommitFinished{Result: CommitResult{Saved: 1, ImageIDs: []uuid.UUID{id}}})
	assert.Equal(t, PhaseDone, s.Phase)
	assert.Equal(t, id, s.Staged[0].ImageID)
	require.NotNil(t, s.LastCommit)

	assert.Equal(t, State{}, Reduce(s, Reset{}))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := State{
		Phase: PhaseStaged,
		Staged: []StagedUpload{
			{Index: 0, URL: "u0", Caption: "first"},
			{Index: 1, URL: "u1", Caption: "second"},
		},
	}

	edited := Reduce(before, CaptionEdited{Position: 0, Caption: "changed"})
	assert.Equal(t, "first", before.Staged[0].Caption)
	assert.Equal(t, "changed", edited.Staged[0].Caption)

	removed := Reduce(before, StagedRemoved{Position: 0})
	require.Len(t, removed.Staged, 1)
	assert.Equal(t, "second", removed.Staged[0].Caption)
	require.Len(t, before.Staged, 2)
	assert.Equal(t, "first", before.Staged[0].Caption)
}

func TestReduce_CommittedEntriesAreFrozen(t *testing.T) {
	s := State{
		Phase:  PhaseStaged,
		Staged: []StagedUpload{{URL: "u0", Caption: "kept", ImageID: uuid.New()}},
	}
	assert.Equal(t, s, Reduce(s, CaptionEdited{Position: 0, Caption: "other"}))
	assert.Equal(t, s, Reduce(s, StagedRemoved{Position: 0}))
}

func TestReduce_AbandonedBatchReturnsToIdle(t *testing.T) {
	s := Reduce(State{}, BatchStarted{Total: 3})
	s = Reduce(s, FileFinished{Index: 0, Staged: &StagedUpload{URL: "u"}})
	s = Reduce(s, BatchAbandoned{})
	assert.Equal(t, State{}, s)
}

func newTestSession(p *platform, tr *fakeTransport) (*Session, *[]Phase) {
	var (
		mu     sync.Mutex
		phases []Phase
	)
	onChange := func(st State) {
		mu.Lock()
		defer mu.Unlock()
		if len(phases) == 0 || phases[len(phases)-1] != st.Phase {
			phases = append(phases, st.Phase)
		}
	}
	s := NewSession(newTestPipeline(p, tr), NewCommitter(testLogger(), p, "admin"), onChange)
	return s, &phases
}

func TestSession_FullFlow(t *testing.T) {
	p := newPlatform()
	eventID := p.addEvent(nil)
	s, phases := newTestSession(p, newFakeTransport())

	_, err := s.Upload(context.Background(), []File{
		image("assembly.jpg", 100),
		NewFile("minutes.docx", "application/msword", []byte{1}),
		image("prize.jpg", 100),
	})
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, PhaseStaged, st.Phase)
	require.Len(t, st.Staged, 2)
	require.Len(t, st.Failures, 1)
	assert.Equal(t, "minutes.docx", st.Failures[0].FileName)
	assert.Equal(t, 100, st.Overall)

	require.NoError(t, s.EditCaption(0, "Morning assembly"))
	require.NoError(t, s.Remove(1))
	assert.ErrorIs(t, s.Remove(5), ErrWrongPhase)

	res, err := s.Commit(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, PhaseDone, s.State().Phase)
	assert.Contains(t, s.Summary(), "done: 1 staged")

	images, _ := p.ListImagesByEvent(context.Background(), eventID)
	require.Len(t, images, 1)
	assert.Equal(t, "Morning assembly", images[0].Caption)

	assert.Equal(t, []Phase{PhaseUploading, PhaseStaged, PhaseCommitting, PhaseDone}, *phases)

	_, err = s.Commit(context.Background(), eventID)
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.Equal(t, 1, p.imageCount(eventID))
}

func TestSession_PartialCommitCanBeRetried(t *testing.T) {
	p := newPlatform()
	eventID := p.addEvent(nil)
	s, _ := newTestSession(p, newFakeTransport())

	_, err := s.Upload(context.Background(), []File{image("a.jpg", 10), image("b.jpg", 10), image("c.jpg", 10)})
	require.NoError(t, err)

	p.insertErr["sid-b.jpg"] = errors.New("deadlock detected")
	_, err = s.Commit(context.Background(), eventID)
	require.Error(t, err)

	st := s.State()
	assert.Equal(t, PhaseStaged, st.Phase)
	assert.Error(t, st.CommitErr)
	assert.True(t, st.Staged[0].Committed())
	assert.False(t, st.Staged[1].Committed())
	assert.True(t, st.Staged[2].Committed())

	delete(p.insertErr, "sid-b.jpg")
	res, err := s.Commit(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 3, p.imageCount(eventID))
	assert.Equal(t, PhaseDone, s.State().Phase)
}

func TestSession_ConcurrentCommit(t *testing.T) {
	p := newPlatform()
	eventID := p.addEvent(nil)
	s, _ := newTestSession(p, newFakeTransport())

	_, err := s.Upload(context.Background(), []File{image("a.jpg", 10), image("b.jpg", 10)})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Commit(context.Background(), eventID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrWrongPhase)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, p.imageCount(eventID))
}

func TestSession_CancelledUpload(t *testing.T) {
	p := newPlatform()
	tr := newFakeTransport()
	ctx, cancel := context.WithCancel(context.Background())
	tr.onStart = func(string) { cancel() }

	s, _ := newTestSession(p, tr)
	_, err := s.Upload(ctx, []File{image("a.jpg", 10), image("b.jpg", 10)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, State{}, s.State())

	// the dialog can be reopened
	_, err = s.Upload(context.Background(), []File{image("c.jpg", 10)})
	require.NoError(t, err)
	assert.Equal(t, PhaseStaged, s.State().Phase)
}

func TestSession_WrongPhase(t *testing.T) {
	p := newPlatform()
	s, _ := newTestSession(p, newFakeTransport())

	_, err := s.Commit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, s.EditCaption(0, "x"), ErrWrongPhase)

	_, err = s.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = s.Upload(context.Background(), []File{image("a.jpg", 10)})
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), []File{image("b.jpg", 10)})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "committing", PhaseCommitting.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
}

package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhaseStaged
	PhaseCommitting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhaseStaged:
		return "staged"
	case PhaseCommitting:
		return "committing"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var ErrWrongPhase = errors.New("operation not allowed in current phase")

// State неизменяемый снимок одного диалога загрузки. Reduce не меняет слайсы
// полученного состояния.
type State struct {
	Phase       Phase
	Total       int
	FileIndex   int
	FilePercent int
	Overall     int
	Staged      []StagedUpload
	Failures    []FileFailure
	LastCommit  *CommitResult
	CommitErr   error
}

type Event interface{ isEvent() }

type BatchStarted struct{ Total int }

type FileProgressed struct{ Index, Percent int }

type FileFinished struct {
	Index  int
	Name   string
	Staged *StagedUpload
	Err    error
}

type BatchProgressed struct{ Percent int }

type BatchFinished struct{}

type BatchAbandoned struct{}

type CaptionEdited struct {
	Position int
	Caption  string
}

type StagedRemoved struct{ Position int }

type CommitStarted struct{}

type CommitFinished struct {
	Result CommitResult
	Err    error
}

type Reset struct{}

func (BatchStarted) isEvent()    {}
func (FileProgressed) isEvent()  {}
func (FileFinished) isEvent()    {}
func (BatchProgressed) isEvent() {}
func (BatchFinished) isEvent()   {}
func (BatchAbandoned) isEvent()  {}
func (CaptionEdited) isEvent()   {}
func (StagedRemoved) isEvent()   {}
func (CommitStarted) isEvent()   {}
func (CommitFinished) isEvent()  {}
func (Reset) isEvent()           {}

// Reduce возвращает состояние после события ev. Неуместные для текущей фазы
// события состояние не меняют.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Reset:
		return State{}

	case BatchStarted:
		if s.Phase != PhaseIdle && s.Phase != PhaseDone {
			return s
		}
		return State{Phase: PhaseUploading, Total: e.Total}

	case FileProgressed:
		if s.Phase != PhaseUploading {
			return s
		}
		s.FileIndex, s.FilePercent = e.Index, e.Percent
		return s

	case FileFinished:
		if s.Phase != PhaseUploading {
			return s
		}
		if e.Staged != nil {
			s.Staged = appendStaged(s.Staged, *e.Staged)
		} else if e.Err != nil {
			s.Failures = append(append([]FileFailure(nil), s.Failures...), FileFailure{Index: e.Index, FileName: e.Name, Err: e.Err})
		}
		return s

	case BatchProgressed:
		if s.Phase != PhaseUploading || e.Percent < s.Overall {
			return s
		}
		s.Overall = e.Percent
		return s

	case BatchFinished:
		if s.Phase != PhaseUploading {
			return s
		}
		s.Phase = PhaseStaged
		s.Overall = 100
		return s

	case BatchAbandoned:
		if s.Phase != PhaseUploading {
			return s
		}
		return State{}

	case CaptionEdited:
		if s.Phase != PhaseStaged || e.Position < 0 || e.Position >= len(s.Staged) || s.Staged[e.Position].Committed() {
			return s
		}
		s.Staged = appendStaged(nil, s.Staged...)
		s.Staged[e.Position].Caption = e.Caption
		return s

	case StagedRemoved:
		if s.Phase != PhaseStaged || e.Position < 0 || e.Position >= len(s.Staged) || s.Staged[e.Position].Committed() {
			return s
		}
		next := make([]StagedUpload, 0, len(s.Staged)-1)
		next = append(next, s.Staged[:e.Position]...)
		s.Staged = append(next, s.Staged[e.Position+1:]...)
		return s

	case CommitStarted:
		if s.Phase != PhaseStaged {
			return s
		}
		s.Phase = PhaseCommitting
		s.CommitErr = nil
		return s

	case CommitFinished:
		if s.Phase != PhaseCommitting {
			return s
		}
		s.Staged = appendStaged(nil, s.Staged...)
		for i, id := range e.Result.ImageIDs {
			if i < len(s.Staged) && id != uuid.Nil {
				s.Staged[i].ImageID = id
			}
		}
		result := e.Result
		s.LastCommit = &result
		s.CommitErr = e.Err
		if e.Err != nil {
			// остается редактируемым, недописанные элементы можно отправить снова
			s.Phase = PhaseStaged
		} else {
			s.Phase = PhaseDone
		}
		return s
	}

	return s
}

func appendStaged(dst []StagedUpload, src ...StagedUpload) []StagedUpload {
	out := make([]StagedUpload, 0, len(dst)+len(src))
	out = append(out, dst...)
	return append(out, src...)
}

// Session ведет один диалог загрузки: запускает пайплайн и прикрепление,
// держит State актуальным. Служит Reporter для своего пайплайна.
type Session struct {
	mu        sync.Mutex
	state     State
	pipeline  *Pipeline
	committer *Committer
	onChange  func(State)
	names     []string
}

func NewSession(pipeline *Pipeline, committer *Committer, onChange func(State)) *Session {
	return &Session{
		pipeline:  pipeline,
		committer: committer,
		onChange:  onChange,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) dispatch(ev Event) State {
	s.mu.Lock()
	next := Reduce(s.state, ev)
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	return next
}

// enter применяет ev только в одной из указанных фаз: два параллельных вызова
// не запустят один шаг дважды.
func (s *Session) enter(ev Event, from ...Phase) (State, error) {
	s.mu.Lock()
	cur := s.state
	allowed := false
	for _, p := range from {
		if cur.Phase == p {
			allowed = true
			break
		}
	}
	if !allowed {
		s.mu.Unlock()
		return cur, fmt.Errorf("%w (%s)", ErrWrongPhase, cur.Phase)
	}
	next := Reduce(cur, ev)
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	return next, nil
}

func (s *Session) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

// Upload прогоняет файлы через пайплайн. При отмене диалог возвращается в Idle.
func (s *Session) Upload(ctx context.Context, files []File) (BatchResult, error) {
	if len(files) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	if _, err := s.enter(BatchStarted{Total: len(files)}, PhaseIdle, PhaseDone); err != nil {
		return BatchResult{}, fmt.Errorf("upload: %w", err)
	}

	s.names = make([]string, len(files))
	for i, f := range files {
		s.names[i] = f.Name
	}

	res, err := s.pipeline.UploadBatch(ctx, files, s)
	if err != nil {
		s.dispatch(BatchAbandoned{})
		return res, err
	}
	s.dispatch(BatchFinished{})

	return res, nil
}

func (s *Session) EditCaption(position int, caption string) error {
	if st := s.State(); st.Phase != PhaseStaged || position < 0 || position >= len(st.Staged) {
		return fmt.Errorf("edit caption %d: %w", position, ErrWrongPhase)
	}
	s.dispatch(CaptionEdited{Position: position, Caption: caption})
	return nil
}

func (s *Session) Remove(position int) error {
	if st := s.State(); st.Phase != PhaseStaged || position < 0 || position >= len(st.Staged) {
		return fmt.Errorf("remove %d: %w", position, ErrWrongPhase)
	}
	s.dispatch(StagedRemoved{Position: position})
	return nil
}

// Commit прикрепляет список к eventID. При частичной ошибке сессия остается в
// Staged, повторный Commit дописывает только недостающее.
func (s *Session) Commit(ctx context.Context, eventID uuid.UUID) (CommitResult, error) {
	st, err := s.enter(CommitStarted{}, PhaseStaged)
	if err != nil {
		return CommitResult{}, fmt.Errorf("commit: %w", err)
	}

	res, err := s.committer.CommitImages(ctx, eventID, st.Staged)
	s.dispatch(CommitFinished{Result: res, Err: err})

	return res, err
}

// Summary однострочное описание состояния
func (s *Session) Summary() string {
	st := s.State()
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d staged, %d failed", st.Phase, len(st.Staged), len(st.Failures))
	if st.LastCommit != nil {
		fmt.Fprintf(&b, ", %d saved", st.LastCommit.Saved+st.LastCommit.Skipped)
	}
	return b.String()
}

func (s *Session) FileProgress(index, percent int) {
	s.dispatch(FileProgressed{Index: index, Percent: percent})
}

func (s *Session) FileDone(index int, staged *StagedUpload, err error) {
	name := ""
	if index >= 0 && index < len(s.names) {
		name = s.names[index]
	}
	s.dispatch(FileFinished{Index: index, Staged: staged, Err: err, Name: name})
}

func (s *Session) BatchProgress(percent int) {
	s.dispatch(BatchProgressed{Percent: percent})
}

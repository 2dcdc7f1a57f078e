package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jpfielding/ctlabels.go/pkg/edit"
)

var (
	ErrNoExams      = errors.New("no annotable folders")
	ErrNoValidExams = errors.New("no valid annotable folder")
)

// Exams is a directory whose subfolders are studies annotated one after
// another.
type Exams struct {
	Dir     string
	Folders []string
	Index   int
}

// Current returns the path of the open study.
func (e *Exams) Current() string {
	return filepath.Join(e.Dir, e.Folders[e.Index])
}

// Keys that switch between annotable studies.
const (
	KeyPrevExam edit.Key = '←'
	KeyNextExam edit.Key = '→'
)

// Exams returns the open annotable directory, nil when none is open.
func (s *Session) Exams() *Exams { return s.exams }

// OpenAnnotable lists the subfolders of dir and opens the first valid one
// together with its saved annotations. A save folder is required.
func (s *Session) OpenAnnotable(ctx context.Context, dir string) error {
	if s.SaveDir == "" {
		return ErrNoSaveFolder
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, e.Name())
		}
	}
	if len(folders) == 0 {
		return fmt.Errorf("%w in %s", ErrNoExams, dir)
	}
	prev := s.exams
	s.exams = &Exams{Dir: dir, Folders: folders}
	if err := s.open(ctx, 0); err != nil {
		s.exams = prev
		return err
	}
	return nil
}

// NextExam saves the current annotations and opens the next study. It
// reports false at the last study.
func (s *Session) NextExam(ctx context.Context) (bool, error) {
	return s.step(ctx, 1)
}

// PrevExam saves the current annotations and opens the previous study. It
// reports false at the first study.
func (s *Session) PrevExam(ctx context.Context) (bool, error) {
	return s.step(ctx, -1)
}

func (s *Session) step(ctx context.Context, delta int) (bool, error) {
	if s.exams == nil {
		return false, ErrNoExams
	}
	next := s.exams.Index + delta
	if next < 0 || next >= len(s.exams.Folders) {
		return false, nil
	}
	return true, s.SelectExam(ctx, next)
}

// SelectExam saves the current annotations and opens study i.
func (s *Session) SelectExam(ctx context.Context, i int) error {
	if s.exams == nil {
		return ErrNoExams
	}
	if i < 0 || i >= len(s.exams.Folders) {
		return fmt.Errorf("exam %d out of range 0-%d", i, len(s.exams.Folders)-1)
	}
	if err := s.SaveAnnotations(); err != nil {
		slog.WarnContext(s.Context(ctx), "annotations not saved", slog.String("study", s.StudyKey()), slog.Any("error", err))
	}
	return s.open(ctx, i)
}

// open loads study i, moving on to the following folders (wrapping to the
// first) while they fail to load.
func (s *Session) open(ctx context.Context, i int) error {
	n := len(s.exams.Folders)
	for tries := 0; tries < n; tries++ {
		idx := (i + tries) % n
		dir := filepath.Join(s.exams.Dir, s.exams.Folders[idx])
		if err := s.LoadFolder(ctx, dir); err != nil {
			slog.WarnContext(s.Context(ctx), "skipping invalid folder", slog.String("dir", dir), slog.Any("error", err))
			continue
		}
		s.exams.Index = idx
		return s.LoadAnnotations()
	}
	return fmt.Errorf("%w in %s", ErrNoValidExams, s.exams.Dir)
}

// HandleKey applies a keyboard shortcut to the focused plane, or switches
// studies. Keys are ignored while a gesture is in progress.
func (s *Session) HandleKey(ctx context.Context, k edit.Key) (edit.Redraw, error) {
	if s.Engine.Painting() {
		return edit.RedrawNone, nil
	}
	var moved bool
	var err error
	switch k {
	case KeyPrevExam:
		moved, err = s.PrevExam(ctx)
	case KeyNextExam:
		moved, err = s.NextExam(ctx)
	default:
		return s.Engine.HandleKey(s.Volume(), &s.View, &s.Zoom, s.Focus, k), nil
	}
	if err != nil || !moved {
		return edit.RedrawNone, err
	}
	return edit.RedrawFull, nil
}

package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"

	"school_gallery/internal/upload"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newUploadCommand(c *cli) *cobra.Command {
	var (
		captions map[string]string
		skip     []string
		noCommit bool
	)

	cmd := &cobra.Command{
		Use:   "upload <event-id> <file>...",
		Short: "Upload images and attach them to an event",
		Long: `Uploads the files one by one, shows progress, then attaches every staged
image to the event in the given order. Captions default to the file name
without its extension; override them with --caption name=text.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("event id %q: %w", args[0], err)
			}
			uploadedBy, err := c.adminName()
			if err != nil {
				return err
			}

			files := make([]upload.File, 0, len(args)-1)
			for _, path := range args[1:] {
				f, err := upload.OpenFile(path)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			view := newProgressView(c.out, files)
			pipeline := upload.NewPipeline(c.log, c.client, upload.NewHTTPTransport(&http.Client{}), c.client, upload.Options{
				MaxFileSize:     c.maxSize,
				TransferTimeout: c.transferTimeout,
			})
			session := upload.NewSession(pipeline, upload.NewCommitter(c.log, c.client, uploadedBy), view.render)

			ctx := cmd.Context()
			if _, err := session.Upload(ctx, files); err != nil {
				return fmt.Errorf("upload cancelled, nothing was attached: %w", err)
			}
			view.finish(session.State())

			if err := applyEdits(session, captions, skip); err != nil {
				return err
			}
			if len(session.State().Staged) == 0 {
				return fmt.Errorf("no file was uploaded")
			}
			if noCommit {
				fmt.Fprintln(c.out, yellow("--no-commit: staged files were not attached"))
				return nil
			}

			res, err := session.Commit(ctx, eventID)
			printCommit(c.out, session.State(), res)
			if err != nil {
				return fmt.Errorf("attach images: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&captions, "caption", nil, "caption for a file, as file-name=text (repeatable)")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "file names to drop from the staged list before attaching")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "upload only, do not attach to the event")

	return cmd
}

// applyEdits ставит подписи и убирает пропущенные файлы, сопоставляя их по имени
func applyEdits(s *upload.Session, captions map[string]string, skip []string) error {
	for name, caption := range captions {
		pos := stagedPosition(s.State(), name)
		if pos < 0 {
			return fmt.Errorf("--caption %s: no staged file with that name", name)
		}
		if err := s.EditCaption(pos, caption); err != nil {
			return err
		}
	}
	for _, name := range skip {
		pos := stagedPosition(s.State(), name)
		if pos < 0 {
			return fmt.Errorf("--skip %s: no staged file with that name", name)
		}
		if err := s.Remove(pos); err != nil {
			return err
		}
	}
	return nil
}

func stagedPosition(st upload.State, name string) int {
	for i, s := range st.Staged {
		if s.File.Name == name || filepath.Base(s.File.Name) == name {
			return i
		}
	}
	return -1
}

// progressView строка на файл, перерисовывается по ходу передачи
type progressView struct {
	mu       sync.Mutex
	out      io.Writer
	names    []string
	lastFile int
	lastPct  int
	lastSeen int
}

func newProgressView(out io.Writer, files []upload.File) *progressView {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return &progressView{out: out, names: names, lastFile: -1, lastPct: -1}
}

func (v *progressView) render(st upload.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if st.Phase != upload.PhaseUploading {
		return
	}

	// завершенный файл печатается, как только его увидел редьюсер
	done := len(st.Staged) + len(st.Failures)
	if done > v.lastSeen {
		v.lastSeen = done
		if st.FileIndex == v.lastFile {
			fmt.Fprintln(v.out)
		}
		v.lastFile, v.lastPct = -1, -1
		return
	}

	if st.FileIndex == v.lastFile && st.FilePercent == v.lastPct {
		return
	}
	v.lastFile, v.lastPct = st.FileIndex, st.FilePercent

	name := ""
	if st.FileIndex < len(v.names) {
		name = v.names[st.FileIndex]
	}
	fmt.Fprintf(v.out, "\r%s %-32s %3d%%  %s",
		cyan(fmt.Sprintf("[%d/%d]", st.FileIndex+1, st.Total)),
		name, st.FilePercent,
		gray(fmt.Sprintf("overall %d%%", st.Overall)),
	)
}

func (v *progressView) finish(st upload.State) {
	fmt.Fprintln(v.out)
	for _, s := range st.Staged {
		fmt.Fprintf(v.out, "%s %s %s\n", green("✓"), s.File.Name, gray(s.URL))
	}
	for _, f := range st.Failures {
		fmt.Fprintf(v.out, "%s %s: %v\n", red("✗"), f.FileName, f.Err)
	}
	fmt.Fprintf(v.out, "%s %d of %d files staged\n", bold("upload:"), len(st.Staged), st.Total)
}

func printCommit(out io.Writer, st upload.State, res upload.CommitResult) {
	for i, s := range st.Staged {
		mark := green("✓")
		if !s.Committed() {
			mark = red("✗")
		}
		fmt.Fprintf(out, "%s #%d %q\n", mark, i, s.Caption)
	}
	line := fmt.Sprintf("attached %d, already attached %d", res.Saved, res.Skipped)
	if res.CoverSet {
		line += ", cover set"
	}
	if res.FirstError != nil {
		fmt.Fprintln(out, red(fmt.Sprintf("%s; first failure at #%d: %v", line, res.FirstError.Index, res.FirstError.Err)))
		return
	}
	fmt.Fprintln(out, green(line))
}

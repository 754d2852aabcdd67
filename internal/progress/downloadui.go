// Package progress renders per-attachment transfer bars on a terminal.
package progress

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/rescale/witdl/internal/attachments"
	"github.com/rescale/witdl/internal/constants"
)

// DownloadUI shows one mpb bar per attachment while it is written. When
// the output is not a terminal, or bars are disabled, it does nothing and
// readers pass through untouched.
type DownloadUI struct {
	progress   *mpb.Progress
	out        *os.File
	isTerminal bool
	verbose    bool
}

// DownloadFileBar is the bar of a single attachment.
type DownloadFileBar struct {
	bar        *mpb.Bar
	ui         *DownloadUI
	workItemID int
	name       string
	localPath  string
	size       int64
	startTime  time.Time
	written    int64
}

// NewDownloadUI creates a download UI drawing on out. Bars are only shown
// when enabled is true and out is a terminal. With verbose set, a summary
// line is printed after each attachment.
func NewDownloadUI(out *os.File, enabled, verbose bool) *DownloadUI {
	isTerminal := enabled && out != nil && term.IsTerminal(int(out.Fd()))

	u := &DownloadUI{out: out, isTerminal: isTerminal, verbose: verbose}
	if isTerminal {
		enableANSI(out)
		u.progress = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(constants.ProgressRefreshRate),
			mpb.WithWidth(constants.ProgressBarWidth),
		)
	}
	return u
}

// StartFile implements attachments.Progress.
func (u *DownloadUI) StartFile(workItemID int, name, localPath string, size int64) attachments.FileProgress {
	fb := &DownloadFileBar{
		ui:         u,
		workItemID: workItemID,
		name:       name,
		localPath:  localPath,
		size:       size,
		startTime:  time.Now(),
	}
	if !u.isTerminal {
		return fb
	}

	label := fmt.Sprintf("%d: %s", workItemID, truncatePath(localPath, 2))
	fb.bar = u.progress.New(size,
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(label, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.Any(func(s decor.Statistics) string {
				if s.Total <= 0 {
					return "   ?.??%"
				}
				return fmt.Sprintf("%6.2f%%", float64(s.Current)/float64(s.Total)*100)
			}, decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
	return fb
}

// Wrap counts bytes read through r and feeds the bar.
func (f *DownloadFileBar) Wrap(r io.Reader) io.Reader {
	cr := &countingReader{r: r, n: &f.written}
	if f.bar == nil {
		return cr
	}
	return f.bar.ProxyReader(cr)
}

// Complete finishes the bar; a failed transfer leaves it on screen.
func (f *DownloadFileBar) Complete(err error) {
	if f.bar != nil {
		if err == nil {
			// The reported size may be stale or missing; force completion
			// either way so Wait returns.
			if f.size > 0 {
				f.bar.SetCurrent(f.size)
			} else {
				f.bar.SetTotal(-1, true)
			}
		} else {
			f.bar.Abort(false)
		}
	}
	if !f.ui.verbose {
		return
	}

	elapsed := time.Since(f.startTime)
	var msg string
	if err == nil {
		speed := float64(f.written) / elapsed.Seconds() / (1024 * 1024)
		msg = fmt.Sprintf("✓ %s ← %s (%.1f MiB, %s, %.1f MiB/s)\n",
			truncatePath(f.localPath, 2),
			f.name,
			float64(f.written)/(1024*1024),
			elapsed.Round(time.Millisecond),
			speed)
	} else {
		msg = fmt.Sprintf("✗ %s ← %s: %v\n", truncatePath(f.localPath, 2), f.name, err)
	}
	_, _ = io.WriteString(f.ui.LogWriter(), msg)
}

// Wait blocks until all bars are drawn for the last time.
func (u *DownloadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// LogWriter returns an io.Writer that safely prints above the progress bars
func (u *DownloadUI) LogWriter() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// LineWriter returns the writer for progress lines headed for w. When w is
// the file the bars are drawn on, lines are printed above the bars and
// partial lines are held back until their newline arrives, which keeps
// "Downloading ... Done" on one line while a bar is redrawn below it. Any
// other w is returned unchanged.
func (u *DownloadUI) LineWriter(w io.Writer) io.Writer {
	if u.progress == nil {
		return w
	}
	if f, ok := w.(*os.File); !ok || f != u.out {
		return w
	}
	return &lineWriter{out: u.progress}
}

// IsTerminal returns whether output is to a terminal
func (u *DownloadUI) IsTerminal() bool {
	return u.isTerminal
}

type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += int64(n)
	return n, err
}

type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	if i := bytes.LastIndexByte(w.buf.Bytes(), '\n'); i >= 0 {
		line := w.buf.Next(i + 1)
		if _, err := w.out.Write(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// truncatePath truncates a file path to show only the last N components
// Example: truncatePath("/a/b/c/d/file.txt", 3) → "…/c/d/file.txt"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Progress shows a percentage bar for the staged drafting and reconciliation
// runs. Update matches their progress callbacks.
type Progress struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
	plain  bool
	last   string
	mu     sync.Mutex
}

// NewProgress creates a progress bar writing to w. A plain progress prints
// one line per stage instead, for logs and non-interactive terminals.
func NewProgress(w io.Writer, description string, plain bool) *Progress {
	p := &Progress{writer: w, plain: plain}
	if plain {
		return p
	}
	p.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Update moves the bar to percent and shows stage. Repeated stages are ignored
// in plain mode.
func (p *Progress) Update(stage string, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	percent = max(0, min(percent, 100))
	if p.plain {
		if stage == p.last {
			return
		}
		p.last = stage
		if _, err := fmt.Fprintf(p.writer, "[%3d%%] %s\n", percent, stage); err != nil {
			slog.Warn("Failed to write progress", "error", err)
		}
		return
	}

	p.bar.Describe("[cyan][bold]" + stage + "[reset]")
	if err := p.bar.Set(percent); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil && !p.bar.IsFinished() {
		if err := p.bar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	}
}

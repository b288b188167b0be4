package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Veraticus/plancost/internal/service"
	"github.com/schollz/progressbar/v3"
)

// Progress draws pipeline progress as a percentage bar.
type Progress struct {
	bar   *progressbar.ProgressBar
	stage string
	mu    sync.Mutex
}

// NewProgress creates a progress bar writing to w.
func NewProgress(w io.Writer, description string) *Progress {
	p := &Progress{}
	p.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
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

// Callback adapts the bar to the pipeline's progress reports.
func (p *Progress) Callback() service.ProgressCallback {
	return func(stage string, percent int) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if stage != "" && stage != p.stage {
			p.stage = stage
			p.bar.Describe("[cyan][bold]" + stage + "[reset]")
		}
		percent = max(0, min(percent, 100))
		if err := p.bar.Set(percent); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

// Stage returns the last reported stage.
func (p *Progress) Stage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Finish completes the bar.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar.IsFinished() {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

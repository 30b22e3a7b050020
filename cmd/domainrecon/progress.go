package main

import (
	"context"
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressBar shows "N of total processed" while a scan runs.
// A nil *progressBar is valid and displays nothing.
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// newProgressBar renders a bar for total domains on w.
func newProgressBar(ctx context.Context, w io.Writer, total int) *progressBar {
	if total <= 0 {
		return nil
	}

	p := mpb.NewWithContext(ctx,
		mpb.WithOutput(w),
		mpb.WithWidth(64),
	)
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("probing", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WCSyncSpace), "done",
			),
		),
	)

	return &progressBar{p: p, bar: bar}
}

// update is a pipeline.ProgressFunc.
func (b *progressBar) update(done, _ int) {
	if b == nil {
		return
	}
	b.bar.SetCurrent(int64(done))
}

// finish stops the bar, leaving it in place if the run was cut short.
func (b *progressBar) finish() {
	if b == nil {
		return
	}
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}

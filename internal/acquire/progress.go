package acquire

import (
	"fmt"
	"io"

	"go.tianon.xyz/progress"
)

const barWidth = 30

// progressBar is an io.Writer that counts bytes passing through a TeeReader
// and redraws a one-line bar on out.
type progressBar struct {
	out   io.Writer
	bar   *progress.Bar
	total int64
	drawn int64
	step  int64
}

func newProgressBar(out io.Writer, total int64) *progressBar {
	bar := progress.NewBar(nil)
	bar.Min = 0
	bar.Max = total
	bar.Prefix = func(_ *progress.Bar) string {
		return ""
	}
	bar.Suffix = func(_ *progress.Bar) string {
		return ""
	}
	bar.Phases = []string{" ", "=", "#"}

	step := total / 100
	if step == 0 {
		step = 1
	}
	return &progressBar{out: out, bar: bar, total: total, step: step}
}

func (p *progressBar) Write(b []byte) (int, error) {
	p.bar.Val += int64(len(b))
	if p.bar.Val-p.drawn >= p.step {
		p.drawn = p.bar.Val
		p.draw()
	}
	return len(b), nil
}

func (p *progressBar) draw() {
	pct := p.bar.Val * 100 / p.total
	if pct > 100 {
		pct = 100
	}
	fmt.Fprintf(p.out, "\rfeed [%s] %3d%%", p.bar.TickString(barWidth), pct)
}

func (p *progressBar) finish() {
	p.draw()
	fmt.Fprintln(p.out)
}

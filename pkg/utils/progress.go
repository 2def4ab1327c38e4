package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressTracker renders batch progress on a terminal bar.
// It satisfies pdf.Observer.
type ProgressTracker struct {
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	startTime time.Time
	title     string
	steps     int
	current   int
	failed    int
}

// NewProgressTracker creates a tracker for steps units of work on stderr.
func NewProgressTracker(title string, steps int) *ProgressTracker {
	return newProgressTracker(os.Stderr, title, steps)
}

func newProgressTracker(w io.Writer, title string, steps int) *ProgressTracker {
	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", title)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)

	return &ProgressTracker{
		bar:       bar,
		startTime: time.Now(),
		title:     title,
		steps:     steps,
	}
}

// FileDone advances the bar by one finished file.
func (pt *ProgressTracker) FileDone(name string, err error) {
	desc := name
	if err != nil {
		desc = name + " failed"
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()
	if err != nil {
		pt.failed++
	}
	pt.step(desc)
}

// Step advances the bar by one unit.
func (pt *ProgressTracker) Step(description string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.step(description)
}

func (pt *ProgressTracker) step(description string) {
	if pt.current >= pt.steps {
		return
	}
	pt.current++
	descWithTime := fmt.Sprintf("%s (%s)", description, formatDuration(time.Since(pt.startTime)))
	pt.bar.Describe(fmt.Sprintf("[cyan]%s[reset] - %s", pt.title, descWithTime))
	_ = pt.bar.Add(1)
}

// Complete fills the bar and returns the elapsed time.
func (pt *ProgressTracker) Complete() time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for pt.current < pt.steps {
		pt.step("done")
	}
	return time.Since(pt.startTime)
}

// Failed returns how many files were reported as failed.
func (pt *ProgressTracker) Failed() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.failed
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	parts := []string{}
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 || h > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))

	return strings.Join(parts, "")
}

// PrintBatchSummary prints the totals of a finished batch.
func PrintBatchSummary(w io.Writer, batchID string, succeeded, failed int, elapsed time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Batch %s finished\n", batchID)
	fmt.Fprintf(w, "  succeeded: %d\n", succeeded)
	fmt.Fprintf(w, "  failed:    %d\n", failed)
	fmt.Fprintf(w, "  elapsed:   %s\n", formatDuration(elapsed))
}

// IsTerminal reports whether stderr is a character device.
func IsTerminal() bool {
	fileInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

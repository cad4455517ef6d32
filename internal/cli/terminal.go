package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/vijay-prabhu/grantmatch/internal/composite"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// Spinner frames for animated progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Terminal writes progress to stderr, redrawing one line when stderr is a
// terminal and printing periodic lines otherwise
type Terminal struct {
	IsTerminal   bool
	UseColor     bool
	out          io.Writer
	spinnerIndex int
}

// NewTerminal creates a Terminal on stderr
func NewTerminal(color bool) *Terminal {
	isTerminal := isTerminal(os.Stderr)
	return &Terminal{
		IsTerminal: isTerminal,
		UseColor:   isTerminal && color,
		out:        os.Stderr,
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ClearLine clears the current line (terminal only)
func (t *Terminal) ClearLine() {
	if t.IsTerminal {
		fmt.Fprint(t.out, "\r\033[K")
	}
}

// Spinner returns the next spinner frame
func (t *Terminal) Spinner() string {
	if !t.IsTerminal {
		return ""
	}
	frame := spinnerFrames[t.spinnerIndex]
	t.spinnerIndex = (t.spinnerIndex + 1) % len(spinnerFrames)
	return frame
}

// Color wraps text in ANSI color codes (terminal only)
func (t *Terminal) Color(color, text string) string {
	if !t.UseColor {
		return text
	}
	return color + text + ColorReset
}

// ScoreProgress returns a progress callback for batch scoring
func (t *Terminal) ScoreProgress() composite.ProgressCallback {
	return func(p composite.Progress) {
		var eta string
		if d := p.ETA(); d > 0 {
			eta = fmt.Sprintf(" (ETA: %s)", FormatETA(d))
		}
		msg := fmt.Sprintf("%s Scoring: %d/%d foundations (%d%%)%s",
			t.Spinner(), p.Current, p.Total, p.Percentage(), eta)
		msg = t.Color(ColorCyan, msg)

		if t.IsTerminal {
			t.ClearLine()
			fmt.Fprint(t.out, msg)
			return
		}
		if p.Current%25 == 0 || p.Current == p.Total {
			fmt.Fprintln(t.out, msg)
		}
	}
}

// RecommendationColor returns the color for a recommendation
func RecommendationColor(r composite.Recommendation) string {
	switch r {
	case composite.RecommendPass:
		return ColorGreen
	case composite.RecommendAbstain:
		return ColorYellow
	case composite.RecommendFail:
		return ColorRed
	default:
		return ColorReset
	}
}

// FormatETA formats a duration as a human-readable ETA string
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s > 0 {
			return fmt.Sprintf("%dm%ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

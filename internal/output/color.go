package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ColorMode determines when to use styled output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

var (
	warnColor  = lipgloss.Color("#FFD787")
	frameColor = lipgloss.Color("#888888")
)

// boundary frames a plain banner.
var boundary = strings.Repeat("#", 90)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be styled based on mode and TTY detection.
func shouldColorize(mode ColorMode, w interface{}) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// RenderBanner frames title and body. Styled banners use a rounded border;
// plain ones are framed by lines of '#'.
func RenderBanner(title, body string, styled bool) string {
	if !styled {
		return boundary + "\n" + title + "\n" + body + "\n" + boundary
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(warnColor).
		Bold(true)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Padding(0, 1).
		Render(titleStyle.Render(title) + "\n" + body)
}

// WriteBanner writes a banner to w, styled when mode and w allow it.
func WriteBanner(w io.Writer, mode ColorMode, title, body string) error {
	_, err := fmt.Fprintln(w, RenderBanner(title, body, shouldColorize(mode, w)))
	return err
}

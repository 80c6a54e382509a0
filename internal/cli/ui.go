package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Styles shared by the status lines and the preview.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
)

// statusKind picks the icon and colour of a status line.
type statusKind struct {
	icon  string
	style lipgloss.Style
}

var (
	kindSuccess = statusKind{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	kindWarning = statusKind{"!", lipgloss.NewStyle().Foreground(colorYellow)}
	kindInfo    = statusKind{"›", lipgloss.NewStyle().Foreground(colorGray)}
)

const iconError = "✗"

// uiOut receives status output. Diagrams and tokens go to stdout, so
// status lines never mix with piped results.
var uiOut io.Writer = os.Stderr

func printStatus(kind statusKind, msg string) {
	fmt.Fprintln(uiOut, kind.style.Render(kind.icon)+" "+msg)
}

func printSuccess(format string, args ...any) {
	printStatus(kindSuccess, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	printStatus(kindWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	printStatus(kindInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line under a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints "→ path" for a written artifact.
func printFile(path string) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(uiOut, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints "size · elapsed · cached|fresh" for one artifact.
func printStats(size int, elapsed time.Duration, cached bool) {
	origin := kindInfo.style.Render("fresh")
	if cached {
		origin = kindSuccess.style.Render("cached")
	}
	sep := StyleDim.Render(" · ")
	fmt.Fprintln(uiOut, "  "+strings.Join([]string{
		StyleDim.Render(formatSize(size)),
		StyleDim.Render(elapsed.Round(time.Millisecond).String()),
		origin,
	}, sep))
}

// formatSize renders a byte count with binary units.
func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// printNextStep suggests a command to run next.
func printNextStep(description, cmd string) {
	fmt.Fprintln(uiOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

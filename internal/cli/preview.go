package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/pipeline"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// Preview styles
var (
	previewFrameStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
	previewHelpStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// previewRenderer renders the file at path as text art.
type previewRenderer func(ctx context.Context, path string, format plantuml.Format) (string, error)

// previewCommand creates the preview command, a terminal viewer for a
// diagram file rendered as text art.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		format string
		style  string
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Preview a diagram as text art in the terminal",
		Long: `Render a diagram file as ASCII or Unicode art in a full-screen viewer.

Keys: t toggles ascii/unicode, r re-renders after editing, ↑/↓ scroll, q quits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return umlerrors.Wrap(umlerrors.ErrCodeFileNotFound, err, "diagram file")
			}

			f, err := parseFormatFlag(format)
			if err != nil {
				return err
			}
			if f != plantuml.FormatASCII && f != plantuml.FormatUnicode {
				return umlerrors.New(umlerrors.ErrCodeInvalidFormat, "preview needs a text format (ascii, unicode), got %q", format)
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, err := c.newClient(cfg)
			if err != nil {
				return err
			}
			timeout := cfg.Backend.Timeout
			if timeout <= 0 {
				timeout = pipeline.DefaultTimeout
			}

			render := func(ctx context.Context, path string, format plantuml.Format) (string, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				// The path argument is classified as a file and streamed
				// into the backend.
				s, err := client.Generate(ctx, path, plantuml.Options{Format: format, Config: style})
				if err != nil {
					return "", err
				}
				defer s.Close()
				out, err := s.Collect()
				return string(out), err
			}

			m := newPreviewModel(cmd.Context(), path, f, render)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(plantuml.FormatUnicode), "text format: ascii, unicode")
	cmd.Flags().StringVarP(&style, "config", "c", "", "style template or style file path")
	registerRenderCompletions(cmd, string(plantuml.FormatASCII), string(plantuml.FormatUnicode))
	return cmd
}

// =============================================================================
// previewModel - Text-art diagram viewer
// =============================================================================

// renderedMsg carries the result of one background render.
type renderedMsg struct {
	format  plantuml.Format
	content string
	err     error
}

// previewModel is the bubbletea model of the preview viewer.
type previewModel struct {
	ctx    context.Context
	path   string
	format plantuml.Format
	render previewRenderer

	lines   []string
	err     error
	loading bool
	renders int

	offset int
	height int
}

func newPreviewModel(ctx context.Context, path string, format plantuml.Format, render previewRenderer) previewModel {
	return previewModel{
		ctx:     ctx,
		path:    path,
		format:  format,
		render:  render,
		loading: true,
		height:  20,
	}
}

func (m previewModel) Init() tea.Cmd {
	return m.renderCmd()
}

// renderCmd renders the current format off the UI goroutine.
func (m previewModel) renderCmd() tea.Cmd {
	ctx, path, format, render := m.ctx, m.path, m.format, m.render
	return func() tea.Msg {
		out, err := render(ctx, path, format)
		return renderedMsg{format: format, content: out, err: err}
	}
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case renderedMsg:
		// A toggle while rendering leaves a stale result behind.
		if msg.format != m.format {
			return m, nil
		}
		m.loading = false
		m.renders++
		m.err = msg.err
		if msg.err == nil {
			m.lines = strings.Split(strings.TrimRight(msg.content, "\n"), "\n")
			m.clamp()
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "t":
			if m.format == plantuml.FormatASCII {
				m.format = plantuml.FormatUnicode
			} else {
				m.format = plantuml.FormatASCII
			}
			m.loading = true
			return m, m.renderCmd()
		case "r":
			m.loading = true
			return m, m.renderCmd()
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
		case "down", "j":
			m.offset++
			m.clamp()
		case "home", "g":
			m.offset = 0
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 3 {
			m.height = 3
		}
		m.clamp()
	}
	return m, nil
}

// clamp keeps the scroll offset within the rendered lines.
func (m *previewModel) clamp() {
	limit := len(m.lines) - m.height
	if limit < 0 {
		limit = 0
	}
	if m.offset > limit {
		m.offset = limit
	}
}

func (m previewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(filepath.Base(m.path)))
	b.WriteString(" ")
	b.WriteString(StyleHighlight.Render(string(m.format)))
	if m.loading {
		b.WriteString(StyleDim.Render("  rendering..."))
	}
	b.WriteString("\n")

	var body string
	switch {
	case m.err != nil:
		body = styleIconError.Render(iconError) + " " + umlerrors.UserMessage(m.err)
	case m.lines == nil:
		body = StyleDim.Render("waiting for first render")
	default:
		end := min(m.offset+m.height, len(m.lines))
		body = strings.Join(m.lines[m.offset:end], "\n")
	}
	b.WriteString(previewFrameStyle.Render(body))
	b.WriteString("\n")

	help := "t ascii/unicode  r reload  ↑/↓ scroll  q quit"
	if len(m.lines) > m.height {
		help += fmt.Sprintf("  [%d-%d/%d]", m.offset+1, min(m.offset+m.height, len(m.lines)), len(m.lines))
	}
	b.WriteString(previewHelpStyle.Render(help))
	return b.String()
}

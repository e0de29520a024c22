package confirm

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	fileStyle  = lipgloss.NewStyle().PaddingLeft(2)
	hintStyle  = lipgloss.NewStyle().Faint(true)
)

// maxListed caps the files shown in the prompt.
const maxListed = 10

// Terminal asks on a terminal with a y/N prompt.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal prompts on in and out; nil uses the process stdin and stdout.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) Confirm(ctx context.Context, req Request) (bool, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.in != nil {
		opts = append(opts, tea.WithInput(t.in))
	}
	if t.out != nil {
		opts = append(opts, tea.WithOutput(t.out))
	}

	final, err := tea.NewProgram(newModel(req), opts...).Run()
	if err != nil {
		return false, errors.Wrap(err, "running confirmation prompt")
	}
	return final.(model).accepted, nil
}

type model struct {
	req      Request
	accepted bool
	done     bool
}

func newModel(req Request) model {
	return model{req: req}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.accepted = true
		m.done = true
		return m, tea.Quit
	case "n", "N", "enter", "esc", "q", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %d file(s)?", m.req.Command, len(m.req.Files))))
	b.WriteString("\n")
	for i, f := range m.req.Files {
		if i == maxListed {
			b.WriteString(fileStyle.Render(fmt.Sprintf("... and %d more", len(m.req.Files)-maxListed)))
			b.WriteString("\n")
			break
		}
		b.WriteString(fileStyle.Render(f))
		b.WriteString("\n")
	}
	if m.req.CommentLimit > 0 {
		b.WriteString(hintStyle.Render(fmt.Sprintf("comment limit: %d characters", m.req.CommentLimit)))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("provider supports: " + m.req.Capabilities.String()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("proceed? [y/N]"))
	return b.String()
}

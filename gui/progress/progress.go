package progress

// A progress bar for bracket arrivals. The model is "pure": the bar is drawn
// with ViewAs from the tally carried in Update messages, so it never animates
// on its own and needs no ticks.

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"bracket_stripes/entities"
)

const (
	padding  = 2
	maxWidth = 80
)

// Update reports the tally of the sequence being captured.
type Update struct {
	SequenceID string
	Completed  int
	Total      int
	Failed     int
}

// Done ends the program. Err is shown when the sequence produced no image.
type Done struct {
	Err     error
	Summary string
}

type Model struct {
	progress progress.Model

	update      Update
	shutterOpen bool
	done        *Done
	quitting    bool
}

func New() Model {
	return Model{progress: progress.New(
		progress.WithScaledGradient("#FF7CCB", "#FDFF8C"),
		progress.WithoutPercentage(),
	)}
}

// NewProgram wraps a fresh model; callers feed it with Program.Send.
func NewProgram(opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(New(), opts...)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}

	case Update:
		m.update = msg

	case entities.ShutterEvent:
		m.shutterOpen = msg.State == entities.ShutterOpened

	case Done:
		m.done = &msg
		m.shutterOpen = false
		return m, tea.Quit
	}
	return m, nil
}

// Percent is the share of brackets that have arrived, failed ones included.
func (m Model) Percent() float64 {
	if m.update.Total == 0 {
		return 0
	}
	return min(max(0.0, float64(m.update.Completed)/float64(m.update.Total)), 1.0)
}

func (m Model) Quitting() bool {
	return m.quitting
}

func (m Model) View() string {
	pad := strings.Repeat(" ", padding)

	shutter := " "
	if m.shutterOpen {
		shutter = "●"
	}

	status := fmt.Sprintf("%s %d/%d brackets", shutter, m.update.Completed, m.update.Total)
	if m.update.Failed > 0 {
		status += fmt.Sprintf(", %d failed", m.update.Failed)
	}

	view := "\n" +
		pad + m.progress.ViewAs(m.Percent()) + "\n" +
		pad + status + "\n"

	switch {
	case m.done != nil && m.done.Err != nil:
		view += pad + "No image: " + m.done.Err.Error() + "\n"
	case m.done != nil && m.done.Summary != "":
		view += pad + m.done.Summary + "\n"
	case m.quitting:
		view += pad + "Abandoned.\n"
	}

	return view + "\n"
}

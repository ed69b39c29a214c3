package cli

import (
	"fmt"
	"image/color"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"
)

// Theme holds the color scheme for the CLI.
type Theme struct {
	Status  color.Color
	Success color.Color
	Error   color.Color
	Hint    color.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// resultMsg carries the finished request result.
type resultMsg struct {
	response string
	err      error
}

// waitModel shows a spinner while one request is in flight.
type waitModel struct {
	spinner  spinner.Model
	label    string
	run      func() (string, error)
	theme    Theme
	response string
	err      error
	quitting bool
}

// newWaitModel creates a wait model for a single request.
func newWaitModel(label string, run func() (string, error)) waitModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = defaultTheme.statusStyle()

	return waitModel{
		spinner: sp,
		label:   label,
		run:     run,
		theme:   defaultTheme,
	}
}

// Init starts the spinner and kicks off the request.
func (m waitModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			response, err := m.run()
			return resultMsg{response: response, err: err}
		},
	)
}

// Update handles messages and returns the updated model.
func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case resultMsg:
		m.response = msg.response
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner line; the response is printed after the program exits.
func (m waitModel) View() tea.View {
	if m.quitting || m.err != nil || m.response != "" {
		return tea.NewView("")
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")
	return tea.NewView(fmt.Sprintf("%s %s  %s\n", m.spinner.View(), m.label, hint))
}

// runWithSpinner runs the request behind a spinner and returns its result.
// Falls through to a plain blocking call when the UI cannot start.
func runWithSpinner(label string, run func() (string, error)) (string, error) {
	p := tea.NewProgram(newWaitModel(label, run))

	finalModel, err := p.Run()
	if err != nil {
		return run()
	}

	m, ok := finalModel.(waitModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type")
	}
	if m.quitting {
		return "", fmt.Errorf("canceled")
	}
	return m.response, m.err
}

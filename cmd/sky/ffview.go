package main

import (
	"context"
	"fmt"
	"time"

	cl "skyhaul/internal/cli"
	"skyhaul/internal/game"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	ffTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	ffDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ffErrStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type ffDoneMsg struct {
	summary game.FastForwardSummary
	err     error
}

type ffModel struct {
	spinner spinner.Model
	start   time.Time
	done    bool
	result  ffDoneMsg
	run     tea.Cmd
}

func newFFModel(client *cl.Client, saveID int64, maxDays int) ffModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		raw, err := client.FastForward(ctx, saveID, maxDays)
		if err != nil {
			return ffDoneMsg{err: err}
		}
		sum, err := decodeInto[game.FastForwardSummary](raw)
		return ffDoneMsg{summary: sum, err: err}
	}
	return ffModel{spinner: sp, start: time.Now(), run: run}
}

func (m ffModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m ffModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ffDoneMsg:
		m.done = true
		m.result = msg
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.done = true
			m.result = ffDoneMsg{err: fmt.Errorf("cancelled")}
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ffModel) View() string {
	if m.done {
		return ""
	}
	elapsed := time.Since(m.start).Round(time.Second)
	return fmt.Sprintf("\n %s %s %s\n",
		m.spinner.View(),
		ffTitleStyle.Render("Fast-forwarding the calendar..."),
		ffDimStyle.Render(fmt.Sprintf("(%s, q to cancel)", elapsed)),
	)
}

// runFastForwardView drives the fast-forward call behind a live
// spinner, then prints the same summary the plain path renders.
func runFastForwardView(ctx context.Context, client *cl.Client, saveID int64, maxDays int) error {
	prog := tea.NewProgram(newFFModel(client, saveID, maxDays), tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return err
	}
	m, ok := final.(ffModel)
	if !ok {
		return fmt.Errorf("unexpected view state")
	}
	if m.result.err != nil {
		fmt.Println(ffErrStyle.Render("fast-forward failed: " + m.result.err.Error()))
		return m.result.err
	}
	renderFastForwardSummary(m.result.summary)
	return nil
}

package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cusweep/internal/cumask"
	"cusweep/internal/runner"
	"cusweep/internal/sweep"
	"cusweep/internal/topology"
)

type step int

const (
	stepMode step = iota
	stepTotalCount
	stepStartCount
	stepConfirm
	stepRunning
	stepDone
	stepError
)

type Model struct {
	topo       *topology.GPUTopology
	runnerPath string

	step        step
	striped     bool
	totalCount  int
	startCount  int
	selectedOpt int
	textInput   textinput.Model

	events      chan tea.Msg
	currentStep sweep.Step
	stepsDone   int

	err    error
	width  int
	height int
}

func NewModel(topo *topology.GPUTopology, runnerPath string) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter number..."
	ti.Focus()
	ti.CharLimit = 4
	ti.Width = 20
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0caf5"))
	ti.PromptStyle = lipgloss.NewStyle().Foreground(secondaryColor)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		topo:       topo,
		runnerPath: runnerPath,
		step:       stepMode,
		textInput:  ti,
		width:      80,
		height:     24,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sweepStepMsg:
		m.currentStep = msg.step
		m.stepsDone = msg.step.Index - 1
		return m, waitForSweepEvent(m.events)

	case sweepDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.step = stepError
		} else {
			m.stepsDone = m.currentStep.Index
			m.step = stepDone
		}
		return m, nil

	case tea.KeyMsg:
		if m.step == stepRunning {
			// Runner steps are never cut short; only quit is allowed
			// and it abandons the terminal, not the sweep process.
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			m = m.moveCursor(-1)

		case "down", "j":
			m = m.moveCursor(1)

		case "enter":
			return m.handleEnter()

		case "esc":
			if m.step > stepMode && m.step < stepRunning {
				m.step--
				if m.step == stepTotalCount || m.step == stepStartCount {
					m.textInput.SetValue("")
					m.textInput.Focus()
					return m, textinput.Blink
				}
				return m, nil
			}
		}
	}

	if m.step == stepTotalCount || m.step == stepStartCount {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) moveCursor(delta int) Model {
	switch m.step {
	case stepMode:
		m.striped = delta > 0
	case stepConfirm:
		m.selectedOpt = (m.selectedOpt + 1) % 2
	}
	return m
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepMode:
		m.step = stepTotalCount
		m.textInput.SetValue("")
		m.textInput.Focus()
		return m, textinput.Blink

	case stepTotalCount:
		val, err := strconv.Atoi(m.textInput.Value())
		if err != nil || val < 1 || val > m.topo.TotalTPCs() {
			return m, nil
		}
		m.totalCount = val
		m.step = stepStartCount
		m.textInput.SetValue("")
		m.textInput.Focus()
		return m, textinput.Blink

	case stepStartCount:
		raw := m.textInput.Value()
		val := 0
		if raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return m, nil
			}
			val = parsed
		}
		if val < 0 || val >= m.totalCount {
			return m, nil
		}
		m.startCount = val
		m.selectedOpt = 0
		m.step = stepConfirm
		return m, nil

	case stepConfirm:
		if m.selectedOpt == 1 {
			return m, tea.Quit
		}
		m.events = make(chan tea.Msg, 1)
		m.step = stepRunning
		return m, tea.Batch(m.startSweep(), waitForSweepEvent(m.events))

	case stepDone, stepError:
		return m, tea.Quit
	}
	return m, nil
}

type sweepStepMsg struct {
	step sweep.Step
}

type sweepDoneMsg struct {
	err error
}

func waitForSweepEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m Model) request() *sweep.Request {
	mode := cumask.ModeContiguous
	if m.striped {
		mode = cumask.ModeStriped
	}
	return &sweep.Request{
		StartCount: m.startCount,
		TotalCount: m.totalCount,
		Device:     m.topo.Device,
		Mode:       mode,
	}
}

func (m Model) startSweep() tea.Cmd {
	events := m.events
	req := m.request()
	client := &runner.Client{Path: m.runnerPath, Stdout: io.Discard}

	return func() tea.Msg {
		orch := &sweep.Orchestrator{
			Topology: topology.Detect,
			Runner:   client,
			OnStep: func(s sweep.Step) {
				events <- sweepStepMsg{step: s}
			},
		}
		err := orch.Run(context.Background(), req)
		return sweepDoneMsg{err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTopology())
	b.WriteString("\n\n")

	switch m.step {
	case stepMode:
		b.WriteString(m.renderModeSelection())
	case stepTotalCount:
		b.WriteString(m.renderTotalCountInput())
	case stepStartCount:
		b.WriteString(m.renderStartCountInput())
	case stepConfirm:
		b.WriteString(m.renderConfirmation())
	case stepRunning:
		b.WriteString(m.renderRunning())
	case stepDone:
		b.WriteString(m.renderSuccess())
	case stepError:
		b.WriteString(m.renderError())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderHelp() string {
	keyStyle := lipgloss.NewStyle().Foreground(secondaryColor)
	sepStyle := dimStyle

	if m.step == stepRunning {
		return sepStyle.Render("sweep in progress; the current step always runs to completion")
	}

	var parts []string
	parts = append(parts, keyStyle.Render("↑/↓")+sepStyle.Render(" navigate"))
	parts = append(parts, keyStyle.Render("enter")+sepStyle.Render(" select"))
	parts = append(parts, keyStyle.Render("esc")+sepStyle.Render(" back"))
	parts = append(parts, keyStyle.Render("q")+sepStyle.Render(" quit"))

	return strings.Join(parts, dimStyle.Render(" • "))
}

func (m Model) renderTopology() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" GPU Compute Unit Sweep "))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s %d  %s    %s %d    %s %d\n",
		deviceStyle.Render("Device"), m.topo.Device,
		highlightStyle.Render(m.topo.Name),
		gpcStyle.Render("GPCs:"), m.topo.GPCCount(),
		unitStyle.Render("TPCs:"), m.topo.TotalTPCs()))

	for i, gpc := range m.topo.GPCs {
		prefix := "├─"
		if i == len(m.topo.GPCs)-1 {
			prefix = "└─"
		}
		b.WriteString(fmt.Sprintf("     %s %s %d  ", prefix, gpcStyle.Render("GPC"), gpc.ID))
		b.WriteString(maskStyle.Render(fmt.Sprintf("%#016x", gpc.TPCMask)))
		b.WriteString(dimStyle.Render(" / "))
		b.WriteString(unitStyle.Render(cumask.FormatBits(gpc.TPCMask)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderModeSelection() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("? How should TPCs be allocated?"))
	b.WriteString("\n\n")

	contiguousLabel := "Contiguous"
	contiguousDesc := "Fill units from bit 0 upward, no topology awareness"
	stripedLabel := "Striped"
	stripedDesc := "Round-robin units across GPCs for an even spread"

	if !m.striped {
		b.WriteString(cursorStyle.Render("  ▸ "))
		b.WriteString(selectedStyle.Render(contiguousLabel))
		b.WriteString("\n")
		b.WriteString("      " + dimStyle.Render(contiguousDesc))
		b.WriteString("\n\n")
		b.WriteString("    ")
		b.WriteString(stripedLabel)
		b.WriteString("\n")
		b.WriteString("      " + dimStyle.Render(stripedDesc))
	} else {
		b.WriteString("    ")
		b.WriteString(contiguousLabel)
		b.WriteString("\n")
		b.WriteString("      " + dimStyle.Render(contiguousDesc))
		b.WriteString("\n\n")
		b.WriteString(cursorStyle.Render("  ▸ "))
		b.WriteString(selectedStyle.Render(stripedLabel))
		b.WriteString("\n")
		b.WriteString("      " + dimStyle.Render(stripedDesc))
	}

	return b.String()
}

func (m Model) renderTotalCountInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("? Sweep up to how many active TPCs?"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Range: %s\n\n", highlightStyle.Render(fmt.Sprintf("1 - %d", m.topo.TotalTPCs()))))
	b.WriteString("  > ")
	b.WriteString(m.textInput.View())

	return b.String()
}

func (m Model) renderStartCountInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("? Resume from which count? (empty = 0)"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  The first step tests start+1 active TPCs"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Range: %s\n\n", highlightStyle.Render(fmt.Sprintf("0 - %d", m.totalCount-1))))
	b.WriteString("  > ")
	b.WriteString(m.textInput.View())

	return b.String()
}

func (m Model) renderConfirmation() string {
	var b strings.Builder

	req := m.request()

	b.WriteString(subtitleStyle.Render("? Confirm sweep"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Mode:    %s\n", highlightStyle.Render(string(req.Mode))))
	b.WriteString(fmt.Sprintf("  Steps:   %s  (%d through %d active TPCs)\n",
		maskStyle.Render(strconv.Itoa(req.Steps())), req.StartCount+1, req.TotalCount))
	b.WriteString(fmt.Sprintf("  Runner:  %s\n", dimStyle.Render(m.runnerPath+" -")))
	b.WriteString("\n")

	if m.selectedOpt == 0 {
		b.WriteString(cursorStyle.Render("  ▸ "))
		b.WriteString(selectedStyle.Render("Yes, start the sweep"))
		b.WriteString("\n")
		b.WriteString("    No, cancel")
	} else {
		b.WriteString("    Yes, start the sweep")
		b.WriteString("\n")
		b.WriteString(cursorStyle.Render("  ▸ "))
		b.WriteString(selectedStyle.Render("No, cancel"))
	}

	return b.String()
}

func (m Model) renderRunning() string {
	var b strings.Builder

	if m.currentStep.Total == 0 {
		b.WriteString("  Starting sweep...")
		return b.String()
	}

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Running step %d of %d", m.currentStep.Index, m.currentStep.Total)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Active TPCs: %s\n", unitStyle.Render(strconv.Itoa(m.currentStep.ActiveUnits))))
	b.WriteString(fmt.Sprintf("  CU mask:     %s\n", maskStyle.Render(m.currentStep.Mask.HexString())))
	b.WriteString(fmt.Sprintf("  Enabled:     %s\n", unitStyle.Render(cumask.FormatBits(m.currentStep.Mask.EnabledBits()))))
	b.WriteString(fmt.Sprintf("  Log file:    %s\n", dimStyle.Render(m.currentStep.Config.Benchmarks[0].LogName)))

	return b.String()
}

func (m Model) renderSuccess() string {
	var b strings.Builder

	b.WriteString(unitStyle.Render("✓ Sweep complete"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %d steps, %d through %d active TPCs",
		m.totalCount-m.startCount, m.startCount+1, m.totalCount))

	return b.String()
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(errorColor).Render(fmt.Sprintf("✗ Error: %v", m.err)))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  Resume with -start_count once fixed (last completed count: %d)", m.startCount+m.stepsDone)))
	return b.String()
}

func Run(topo *topology.GPUTopology, runnerPath string) error {
	model := NewModel(topo, runnerPath)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := finalModel.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}

package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buildwatch/buildwatch/internals/schemas"

	z "github.com/Oudwins/zog"
)

const (
	fieldName = iota
	fieldDescription
	fieldPrompt
	fieldCount
)

type projectFormModel struct {
	inputs    []textinput.Model
	prompt    textarea.Model
	focus     int
	err       string
	request   schemas.ProjectCreate
	submitted bool
	cancelled bool
}

// RunProjectForm asks for a new project interactively. It returns false when
// the user cancels.
func RunProjectForm(in io.Reader, out io.Writer, initial schemas.ProjectCreate) (schemas.ProjectCreate, bool, error) {
	program := tea.NewProgram(newProjectFormModel(initial), tea.WithInput(in), tea.WithOutput(out))
	result, err := program.Run()
	if err != nil {
		return schemas.ProjectCreate{}, false, err
	}
	final, ok := result.(projectFormModel)
	if !ok || final.cancelled || !final.submitted {
		return schemas.ProjectCreate{}, false, nil
	}
	return final.request, true, nil
}

func newProjectFormModel(initial schemas.ProjectCreate) projectFormModel {
	name := textinput.New()
	name.Prompt = "Name: "
	name.Placeholder = "Space cat cafe website"
	name.SetValue(initial.Name)

	description := textinput.New()
	description.Prompt = "Description (optional): "
	description.Placeholder = "What the site is for"
	description.SetValue(initial.Description)

	prompt := textarea.New()
	prompt.Placeholder = "Describe the site to build: pages, style, tech..."
	prompt.SetWidth(72)
	prompt.SetHeight(8)
	prompt.SetValue(initial.TaskPrompt)

	inputs := []textinput.Model{name, description}
	inputs[fieldName].Focus()
	return projectFormModel{inputs: inputs, prompt: prompt}
}

func (m projectFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m projectFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab":
			return m.moveFocus(1)
		case "shift+tab":
			return m.moveFocus(-1)
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.focus != fieldPrompt {
				return m.moveFocus(1)
			}
		}
	}

	var cmd tea.Cmd
	if m.focus == fieldPrompt {
		m.prompt, cmd = m.prompt.Update(msg)
	} else {
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	}
	return m, cmd
}

func (m projectFormModel) submit() (tea.Model, tea.Cmd) {
	request := schemas.ProjectCreate{
		Name:        m.inputs[fieldName].Value(),
		Description: m.inputs[fieldDescription].Value(),
		TaskPrompt:  m.prompt.Value(),
	}
	if issues := schemas.ProjectCreateSchema.Validate(&request); len(issues) > 0 {
		m.err = strings.TrimSpace(z.Issues.Prettify(issues))
		return m, nil
	}
	m.err = ""
	m.request = request
	m.submitted = true
	return m, tea.Quit
}

func (m projectFormModel) View() string {
	lines := []string{StyleTitle.Render("New project"), ""}
	for i, input := range m.inputs {
		lines = append(lines, fmt.Sprintf("%s %s", marker(i == m.focus), input.View()))
	}
	lines = append(lines, fmt.Sprintf("%s Task prompt:", marker(m.focus == fieldPrompt)), m.prompt.View())
	if m.err != "" {
		lines = append(lines, "", StyleError.Render(m.err))
	}
	lines = append(lines, "", StyleHint.Render("Tab: next field  Ctrl+S: create  Esc: cancel"))
	return strings.Join(lines, "\n")
}

func (m projectFormModel) moveFocus(delta int) (tea.Model, tea.Cmd) {
	if m.focus == fieldPrompt {
		m.prompt.Blur()
	} else {
		m.inputs[m.focus].Blur()
	}
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	if m.focus == fieldPrompt {
		return m, m.prompt.Focus()
	}
	return m, m.inputs[m.focus].Focus()
}

func marker(focused bool) string {
	if focused {
		return ">"
	}
	return " "
}

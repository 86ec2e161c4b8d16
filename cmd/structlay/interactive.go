package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var platforms = []abi.Platform{
	abi.Wasm32(),
	abi.LinuxAMD64(),
	abi.Windows64(),
	abi.DarwinPPC32(),
}

var modes = []abi.Mode{
	abi.ModeDefault,
	abi.ModeNative,
	abi.ModeStrict,
	abi.ModeNone,
}

type browserState int

const (
	stateSelectStruct browserState = iota
	stateBrowse
)

type browserModel struct {
	err      error
	filename string
	cat      *catalog

	filter   textinput.Model
	visible  []*field.Definition
	selected int

	state    browserState
	root     *field.Definition
	path     []string // descent into nested definitions
	platIdx  int
	modeIdx  int
}

type catalogMsg struct {
	err error
	cat *catalog
}

func newBrowserModel(filename string) *browserModel {
	filter := textinput.New()
	filter.Placeholder = "filter structs"
	filter.Prompt = "/ "
	filter.Focus()
	return &browserModel{filename: filename, filter: filter}
}

func (m *browserModel) Init() tea.Cmd {
	return tea.Batch(m.loadCatalog, textinput.Blink)
}

func (m *browserModel) loadCatalog() tea.Msg {
	f, err := os.Open(m.filename)
	if err != nil {
		return catalogMsg{err: err}
	}
	defer f.Close()

	cat, err := parseCatalog(f)
	if err != nil {
		return catalogMsg{err: err}
	}
	return catalogMsg{cat: cat}
}

func (m *browserModel) refilter() {
	m.visible = m.visible[:0]
	needle := strings.ToLower(m.filter.Value())
	for _, def := range m.cat.defs {
		if needle == "" || strings.Contains(strings.ToLower(def.Name), needle) {
			m.visible = append(m.visible, def)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.cat = msg.cat
		m.refilter()
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateSelectStruct:
			return m.updateSelect(msg)
		case stateBrowse:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m *browserModel) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if m.selected < len(m.visible)-1 {
			m.selected++
		}
		return m, nil
	case "enter":
		if len(m.visible) > 0 {
			m.root = m.visible[m.selected]
			m.path = nil
			m.state = stateBrowse
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.refilter()
	return m, cmd
}

func (m *browserModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc", "backspace":
		if len(m.path) > 0 {
			m.path = m.path[:len(m.path)-1]
		} else {
			m.state = stateSelectStruct
		}
		return m, nil
	case "p":
		m.platIdx = (m.platIdx + 1) % len(platforms)
		return m, nil
	case "m":
		m.modeIdx = (m.modeIdx + 1) % len(modes)
		return m, nil
	}

	// Digits descend into the n-th nested field of the current definition.
	if len(msg.String()) == 1 && msg.String()[0] >= '1' && msg.String()[0] <= '9' {
		def := m.currentDef()
		if def == nil {
			return m, nil
		}
		n := int(msg.String()[0] - '1')
		var nested []*field.Descriptor
		for _, f := range def.Fields() {
			if f.Def != nil || (f.Elem != nil && f.Elem.Def != nil) {
				nested = append(nested, f)
			}
		}
		if n < len(nested) {
			m.path = append(m.path, nested[n].Name)
		}
	}
	return m, nil
}

func (m *browserModel) currentDef() *field.Definition {
	def := m.root
	for _, name := range m.path {
		desc, _, ok := def.Field(name)
		if !ok {
			return nil
		}
		switch {
		case desc.Def != nil:
			def = desc.Def
		case desc.Elem != nil && desc.Elem.Def != nil:
			def = desc.Elem.Def
		default:
			return nil
		}
	}
	return def
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	if m.cat == nil {
		return helpStyle.Render("loading " + m.filename + "...\n")
	}

	switch m.state {
	case stateBrowse:
		return m.viewBrowse()
	default:
		return m.viewSelect()
	}
}

func (m *browserModel) viewSelect() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("structlay: " + m.filename))
	b.WriteString("\n\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	for i, def := range m.visible {
		line := fmt.Sprintf("  %s (%d fields)", def.Name, def.Len())
		if i == m.selected {
			line = selectedStyle.Render("> " + def.Name + fmt.Sprintf(" (%d fields)", def.Len()))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(m.visible) == 0 {
		b.WriteString(helpStyle.Render("  no structs match"))
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down: select  enter: inspect  esc: quit"))
	b.WriteByte('\n')
	return b.String()
}

func (m *browserModel) viewBrowse() string {
	var b strings.Builder

	def := m.currentDef()
	if def == nil {
		return errorStyle.Render("broken path: "+strings.Join(m.path, ".")) + "\n"
	}

	plat := platforms[m.platIdx]
	if mode := modes[m.modeIdx]; mode != abi.ModeDefault {
		def = def.WithMode(mode)
	}

	where := m.root.Name
	if len(m.path) > 0 {
		where += "." + strings.Join(m.path, ".")
	}
	b.WriteString(headerStyle.Render(where))
	b.WriteString("\n\n")

	l, err := layout.NewCalculator(plat).Compute(def, m.cat.lens(def), true)
	if err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("layout: %v", err)))
		b.WriteString("\n\n")
	} else {
		b.WriteString(renderLayout(plat, l))
		b.WriteByte('\n')
	}

	var nested []string
	for _, f := range def.Fields() {
		if f.Def != nil || (f.Elem != nil && f.Elem.Def != nil) {
			nested = append(nested, f.Name)
		}
	}
	if len(nested) > 0 {
		b.WriteString(helpStyle.Render("nested:"))
		b.WriteByte('\n')
		for i, name := range nested {
			fmt.Fprintf(&b, "  %s %s\n", numStyle.Render(fmt.Sprintf("[%d]", i+1)), name)
		}
		b.WriteByte('\n')
	}

	b.WriteString(helpStyle.Render(fmt.Sprintf(
		"p: platform (%s)  m: mode (%s)  1-9: descend  esc: back  q: quit",
		plat.Name, modes[m.modeIdx])))
	b.WriteByte('\n')
	return b.String()
}

func runInteractive(filename string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newBrowserModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

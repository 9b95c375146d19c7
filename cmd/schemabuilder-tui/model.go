package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmax-ai/schemabuilder/pkg/client"
	"github.com/rmax-ai/schemabuilder/pkg/mapping"
)

const (
	perPage        = 15
	requestTimeout = 5 * time.Second
	viewportHeight = 15
)

// Styles
var (
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeProperties
)

type schemasMsg struct {
	list client.SchemaList
	err  error
}

type propertiesMsg struct {
	schema client.Schema
	props  []client.Property
	err    error
}

type schemaUpdatedMsg struct {
	schema client.Schema
	err    error
}

// api is the part of the client the browser uses.
type api interface {
	ListSchemas(ctx context.Context, opts client.ListSchemasOptions) (client.SchemaList, error)
	GetSchema(ctx context.Context, id int64) (client.Schema, error)
	ListProperties(ctx context.Context, opts client.ListPropertiesOptions) (client.PropertyList, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (client.Schema, error)
	SetMapping(ctx context.Context, id int64, property, typ string) (client.Schema, error)
}

type model struct {
	api      api
	spinner  spinner.Model
	search   textinput.Model
	viewport viewport.Model
	mode     mode
	loading  bool

	schemas    []client.Schema
	total      int
	totalPages int
	page       int
	cursor     int
	query      string
	enabled    *bool

	schema     client.Schema
	props      []client.Property
	propCursor int

	status string
	err    error
}

func initialModel(c api) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "title or description"
	ti.Prompt = "search: "
	ti.CharLimit = 100

	vp := viewport.New(100, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		api:      c,
		spinner:  s,
		search:   ti,
		viewport: vp,
		page:     1,
		loading:  true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadSchemas())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeProperties:
			return m.updateProperties(msg)
		default:
			return m.updateList(msg)
		}

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case schemasMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.schemas = msg.list.Items
		m.total = msg.list.Total
		m.totalPages = msg.list.TotalPages
		if m.cursor >= len(m.schemas) {
			m.cursor = max(len(m.schemas)-1, 0)
		}

	case propertiesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.mode = modeProperties
		m.schema = msg.schema
		m.props = msg.props
		m.propCursor = 0
		m.renderProperties()

	case schemaUpdatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.replaceSchema(msg.schema)
		if m.mode == modeProperties && m.schema.ID == msg.schema.ID {
			m.schema = msg.schema
			m.renderProperties()
		}
		m.status = fmt.Sprintf("saved %s", msg.schema.Title)

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.schemas)-1 {
			m.cursor++
		}
	case "right", "l", "n":
		if m.page < m.totalPages {
			m.page++
			m.cursor = 0
			return m, m.loadSchemas()
		}
	case "left", "h", "p":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			return m, m.loadSchemas()
		}
	case "/":
		m.mode = modeSearch
		m.search.SetValue(m.query)
		cmd := m.search.Focus()
		return m, cmd
	case "f":
		m.enabled = nextFilter(m.enabled)
		m.page = 1
		m.cursor = 0
		return m, m.loadSchemas()
	case "r":
		return m, m.loadSchemas()
	case " ", "e":
		if s, ok := m.selected(); ok {
			m.loading = true
			return m, m.setEnabled(s.ID, !s.Enabled)
		}
	case "enter":
		if s, ok := m.selected(); ok {
			m.loading = true
			return m, m.loadProperties(s.ID)
		}
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.query = strings.TrimSpace(m.search.Value())
		m.mode = modeList
		m.search.Blur()
		m.page = 1
		m.cursor = 0
		return m, m.loadSchemas()
	case "esc":
		m.mode = modeList
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m model) updateProperties(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.mode = modeList
		return m, nil
	case "up", "k":
		if m.propCursor > 0 {
			m.propCursor--
			m.renderProperties()
		}
	case "down", "j":
		if m.propCursor < len(m.props)-1 {
			m.propCursor++
			m.renderProperties()
		}
	case "t", "enter":
		if m.propCursor < len(m.props) {
			p := m.props[m.propCursor]
			current := m.mappedType(p.Name)
			m.loading = true
			return m, m.setMapping(m.schema.ID, p.Name, nextType(p.AllowedTypes, current))
		}
	case "x":
		if m.propCursor < len(m.props) {
			m.loading = true
			return m, m.setMapping(m.schema.ID, m.props[m.propCursor].Name, "")
		}
	}
	return m, nil
}

func (m model) selected() (client.Schema, bool) {
	if m.cursor < 0 || m.cursor >= len(m.schemas) {
		return client.Schema{}, false
	}
	return m.schemas[m.cursor], true
}

func (m *model) replaceSchema(s client.Schema) {
	for i := range m.schemas {
		if m.schemas[i].ID == s.ID {
			m.schemas[i] = s
		}
	}
}

func (m model) mappedType(property string) string {
	parsed, err := mapping.Parse(m.schema.Mapping)
	if err != nil {
		return ""
	}
	t, _ := parsed.Lookup(property)
	return t
}

// nextFilter cycles all -> enabled -> disabled -> all.
func nextFilter(f *bool) *bool {
	switch {
	case f == nil:
		t := true
		return &t
	case *f:
		v := false
		return &v
	default:
		return nil
	}
}

// nextType cycles through the allowed types and then back to unmapped.
func nextType(allowed []string, current string) string {
	if len(allowed) == 0 {
		return ""
	}
	if current == "" {
		return allowed[0]
	}
	for i, t := range allowed {
		if t == current {
			if i+1 < len(allowed) {
				return allowed[i+1]
			}
			return ""
		}
	}
	return allowed[0]
}

func (m *model) renderProperties() {
	var sb strings.Builder
	if len(m.props) == 0 {
		sb.WriteString(subtleStyle.Render("No properties."))
	}
	for i, p := range m.props {
		line := fmt.Sprintf("%-32s", p.Name)
		if t := m.mappedType(p.Name); t != "" {
			line += okStyle.Render(t)
		} else if p.DefaultType != "" {
			line += subtleStyle.Render(p.DefaultType + " (default)")
		}
		if len(p.AllowedTypes) > 0 {
			line += subtleStyle.Render("  [" + strings.Join(p.AllowedTypes, ", ") + "]")
		}
		if i == m.propCursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	var body string
	switch m.mode {
	case modeProperties:
		header := headerStyle.Render(fmt.Sprintf("%s (%s)", m.schema.Label, m.schema.Title))
		body = lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View())
	default:
		body = m.listView()
	}

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.loading:
		status = fmt.Sprintf("%s Loading...", m.spinner.View())
	case m.status != "":
		status = okStyle.Render(m.status)
	}

	help := "↑/↓ move • ←/→ page • / search • f filter • e toggle • enter properties • q quit"
	if m.mode == modeProperties {
		help = "↑/↓ move • t cycle type • x clear • esc back • q quit"
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\n%s", status, help))
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (m model) listView() string {
	var sb strings.Builder
	filter := "all"
	if m.enabled != nil {
		filter = map[bool]string{true: "enabled", false: "disabled"}[*m.enabled]
	}
	title := fmt.Sprintf("Schemas • %d total • page %d/%d • filter: %s", m.total, m.page, max(m.totalPages, 1), filter)
	if m.query != "" {
		title += fmt.Sprintf(" • search: %q", m.query)
	}
	header := headerStyle.Render(title)

	if m.mode == modeSearch {
		sb.WriteString(m.search.View() + "\n\n")
	}
	if len(m.schemas) == 0 && !m.loading {
		sb.WriteString(subtleStyle.Render("No schemas."))
	}
	for i, s := range m.schemas {
		label := fmt.Sprintf("%-5d %-40s %3d props", s.ID, s.Label, len(s.PropertyIDs))
		if !s.Enabled {
			label = disabledStyle.Render(label)
		}
		if i == m.cursor {
			label = selectedStyle.Render("> ") + label
		} else {
			label = "  " + label
		}
		sb.WriteString(label + "\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, paneStyle.Render(sb.String()))
}

// Commands

func (m model) loadSchemas() tea.Cmd {
	opts := client.ListSchemasOptions{
		Search:  m.query,
		Enabled: m.enabled,
		Page:    m.page,
		PerPage: perPage,
	}
	c := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := c.ListSchemas(ctx, opts)
		return schemasMsg{list: list, err: err}
	}
}

func (m model) loadProperties(id int64) tea.Cmd {
	c := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s, err := c.GetSchema(ctx, id)
		if err != nil {
			return propertiesMsg{err: err}
		}
		props, err := client.AllProperties(ctx, c, s.PropertyIDs)
		if err != nil {
			return propertiesMsg{err: err}
		}
		return propertiesMsg{schema: s, props: props}
	}
}

func (m model) setEnabled(id int64, enabled bool) tea.Cmd {
	c := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s, err := c.SetEnabled(ctx, id, enabled)
		return schemaUpdatedMsg{schema: s, err: err}
	}
}

func (m model) setMapping(id int64, property, typ string) tea.Cmd {
	c := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s, err := c.SetMapping(ctx, id, property, typ)
		return schemaUpdatedMsg{schema: s, err: err}
	}
}

// Demo program to visually exercise the PhoneField component.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"

	"phonefield/internal/catalog"
	"phonefield/internal/config"
	"phonefield/internal/debug"
	"phonefield/internal/ui"
	"phonefield/internal/ui/theme"
)

// headerHeight is the number of rows rendered above the field; mouse
// events are translated by it before they reach the widget.
const headerHeight = 2

const helpMarkdown = `# Phone Field

Type digits to enter a number; it is formatted as you type and the
country flag follows the detected region.

| Key | Action |
|-----|--------|
| ↓ | open the country picker |
| ↑ / ↓ | move the highlight (wraps around) |
| letters | search countries while the picker is open |
| 0-9, + | close the picker and keep typing the number |
| Enter | commit the highlighted country / validate the field |
| Esc | close the picker, or quit |
| Ctrl+V | paste a number |
| F1 | toggle this help |
`

type model struct {
	field    ui.PhoneField
	status   string
	value    string
	region   string
	valid    bool
	showHelp bool
	width    int
	quit     bool
}

func initialModel() (model, error) {
	locale := config.GetString(config.KeyLocale)
	tag, err := language.Parse(locale)
	if err != nil {
		return model{}, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	cat, err := catalog.New(tag)
	if err != nil {
		return model{}, fmt.Errorf("build catalog: %w", err)
	}

	field := ui.NewPhoneField(cat).
		WithDefaultRegion(config.GetString(config.KeyDefaultRegion)).
		WithMobileOnly(config.GetBool(config.KeyMobileOnly)).
		WithMaxVisible(config.GetInt(config.KeyPickerMaxVisible)).
		WithPlaceholder("+41 79 123 45 67")
	field.SetAnchor(headerHeight)
	field.Focus()

	return model{field: field}, nil
}

func (m model) Init() tea.Cmd {
	return m.field.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEsc:
			if m.showHelp {
				m.showHelp = false
				return m, nil
			}
			if m.field.State() == ui.PickerClosed {
				m.quit = true
				return m, tea.Quit
			}
		case tea.KeyF1:
			m.showHelp = !m.showHelp
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.MouseMsg:
		msg.Y -= headerHeight

		var cmd tea.Cmd
		m.field, cmd = m.field.Update(msg)
		return m, cmd

	case ui.ChangedMsg:
		m.value = msg.Value
		m.region = msg.Region
		m.valid = msg.Valid
		m.status = ""

	case ui.CountryCommittedMsg:
		m.status = fmt.Sprintf("country set to %s (+%s)", msg.Region, msg.CallingCode)

	case ui.SubmittedMsg:
		if msg.Valid {
			m.status = "submitted " + msg.Value
		} else {
			m.status = msg.Message
		}
	}

	var cmd tea.Cmd
	m.field, cmd = m.field.Update(msg)
	return m, cmd
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

func (m model) View() string {
	if m.quit {
		return ""
	}

	if m.showHelp {
		return renderHelp(m.width)
	}

	s := titleStyle.Render("PhoneField Demo")
	s += "\n\n"
	s += m.field.View()
	s += "\n\n"

	if m.value != "" {
		line := "Canonical: " + valueStyle.Render(m.value)
		if m.region != "" {
			line += "  Region: " + m.region
		}
		if m.valid {
			line += "  ✓"
		}
		s += line + "\n"
	}
	if m.status != "" {
		s += statusStyle.Render(m.status) + "\n"
	}

	s += helpStyle.Render("↓ pick country • type to enter number • Enter validate • F1 help • Esc quit")
	return s
}

func renderHelp(width int) string {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := renderer.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}

func main() {
	debugFlag := flag.Bool("debug", false, "write trace log to ~/.phonefield/debug.log")
	region := flag.String("region", "", "default region (ISO-3166 alpha-2)")
	mobileOnly := flag.Bool("mobile-only", false, "accept only mobile numbers")
	flag.Parse()

	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	overrides := map[string]any{}
	if *region != "" {
		overrides[config.KeyDefaultRegion] = *region
	}
	if *mobileOnly {
		overrides[config.KeyMobileOnly] = true
	}
	if err := config.ApplyOverrides(overrides); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := debug.Init(*debugFlag || config.GetBool(config.KeyDebug)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer debug.Close()

	theme.SetTheme(config.GetString(config.KeyTheme))

	m, err := initialModel()
	if err != nil {
		// Setup failures abort loudly: the widget cannot render a
		// usable control without its catalog.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

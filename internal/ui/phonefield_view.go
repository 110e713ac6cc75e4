package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"phonefield/internal/catalog"
	"phonefield/internal/ui/theme"
)

// buttonWidth approximates the clickable country-button area at the
// left edge of the field box, border and padding included.
const buttonWidth = 12

// View implements tea.Model.
func (f PhoneField) View() string {
	box := f.fieldView()
	if f.picker != PickerOpen {
		if f.validationMsg != "" {
			return box + "\n" + styleValidationError().Render(f.validationMsg)
		}
		return box
	}

	// The overlay is composited over whatever sits next to the field,
	// anchored below it or flipped above when space below runs out.
	overlay := f.overlayView()
	canvas := NewCanvas(f.Width+2, fieldHeight+f.overlayHeight())
	canvas.DrawStringAt(0, f.fieldOriginY(), box)
	canvas.DrawStringAt(1, f.overlayOriginY(), overlay)
	return canvas.Render()
}

func (f PhoneField) fieldView() string {
	region := f.detectedRegion
	if region == "" {
		region = "--"
	}
	code := ""
	if entry, ok := f.catalog.ByRegion(f.detectedRegion); ok {
		code = "+" + entry.CallingCode
	}
	button := styleCountryButton().Render(fmt.Sprintf("%-2s %-4s ▾", region, code))
	inner := lipgloss.JoinHorizontal(lipgloss.Top, button, " ", f.textInput.View())

	style := styleFieldBox().Width(f.Width)
	if f.focused {
		style = styleFieldBoxFocused().Width(f.Width)
	}
	return style.Render(inner)
}

func (f PhoneField) overlayView() string {
	var b strings.Builder

	if f.searchQuery != "" {
		b.WriteString(styleOverlaySearch().Render("/" + f.searchQuery))
		b.WriteString("\n")
	}

	if len(f.filtered) == 0 {
		b.WriteString(styleOverlayNoMatch().Render("  No matches"))
		return b.String()
	}

	if f.scrollOffset > 0 {
		b.WriteString(styleOverlayHint().Render("  ▲ more above"))
		b.WriteString("\n")
	}

	end := f.scrollOffset + f.MaxVisible
	if end > len(f.filtered) {
		end = len(f.filtered)
	}
	for i := f.scrollOffset; i < end; i++ {
		entry := f.catalog.At(f.filtered[i])
		b.WriteString(f.rowView(entry, i == f.highlightIndex))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	if end < len(f.filtered) {
		b.WriteString("\n")
		b.WriteString(styleOverlayHint().Render("  ▼ more below"))
	}

	return b.String()
}

func (f PhoneField) rowView(entry catalog.Entry, highlighted bool) string {
	code := "+" + entry.CallingCode
	nameWidth := f.Width - lipgloss.Width(code) - 5
	if nameWidth < 4 {
		nameWidth = 4
	}
	name := truncate.StringWithTail(entry.DisplayName, uint(nameWidth), "…")
	pad := nameWidth - lipgloss.Width(name)
	if pad < 0 {
		pad = 0
	}
	line := name + strings.Repeat(" ", pad) + " " + code
	if highlighted {
		return styleOverlayHighlight().Render("▸ " + line)
	}
	return styleOverlayRow().Render("  " + line)
}

// Overlay geometry, shared between rendering and mouse hit testing.
// All coordinates are widget-local.

func (f PhoneField) overlayPreLines() int {
	n := 0
	if f.searchQuery != "" {
		n++
	}
	if f.scrollOffset > 0 {
		n++
	}
	return n
}

func (f PhoneField) overlayVisibleRows() int {
	if len(f.filtered) == 0 {
		return 1 // the "No matches" line
	}
	n := len(f.filtered) - f.scrollOffset
	if n > f.MaxVisible {
		n = f.MaxVisible
	}
	return n
}

func (f PhoneField) overlayPostLines() int {
	if f.scrollOffset+f.MaxVisible < len(f.filtered) {
		return 1
	}
	return 0
}

func (f PhoneField) overlayHeight() int {
	return f.overlayPreLines() + f.overlayVisibleRows() + f.overlayPostLines()
}

func (f PhoneField) overlayOriginY() int {
	if f.dropUp {
		return 0
	}
	return fieldHeight
}

func (f PhoneField) fieldOriginY() int {
	if f.dropUp {
		return f.overlayHeight()
	}
	return 0
}

// overlayRowAt maps a widget-local click position to an index into the
// filtered list.
func (f PhoneField) overlayRowAt(x, y int) (int, bool) {
	if f.picker != PickerOpen || len(f.filtered) == 0 {
		return 0, false
	}
	if x < 0 || x >= f.Width+2 {
		return 0, false
	}
	rel := y - f.overlayOriginY() - f.overlayPreLines()
	if rel < 0 || rel >= f.overlayVisibleRows() {
		return 0, false
	}
	return f.scrollOffset + rel, true
}

// Styles

func styleFieldBox() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Current().BorderDim()).
		Padding(0, 1)
}

func styleFieldBoxFocused() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Current().BorderFocused()).
		Padding(0, 1)
}

func styleCountryButton() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().Secondary()).
		Bold(true)
}

func styleOverlayRow() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().Text())
}

func styleOverlayHighlight() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().Secondary()).
		Bold(true)
}

func styleOverlayHint() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().TextMuted())
}

func styleOverlayNoMatch() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().BorderNormal()).
		Italic(true)
}

func styleOverlaySearch() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().Info())
}

func styleValidationError() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current().Error())
}

package ui

import (
	"strings"

	"revu/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders context-sensitive help footer.
func RenderHelp(screen model.Screen, mode model.Mode, width int) string {
	if mode == model.ModeInsert {
		return renderFormHelp(width)
	}

	switch screen {
	case model.ScreenReviews:
		return renderReviewsHelp(width)
	case model.ScreenMonthPicker:
		return renderPickerHelp(width)
	default:
		return renderDefaultHelp(width)
	}
}

func renderReviewsHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("tab", "next col"),
		helpKey("s/S", "sort"),
		helpKey("n/N", "filter"),
		helpKey("a", "all"),
		helpKey("m", "month"),
		helpKey("</>", "prev/next month"),
		helpKey("r", "refresh"),
		helpKey("?", "help"),
	}
	return renderHelpLine(keys, width)
}

func renderPickerHelp(width int) string {
	keys := []string{
		helpKey("h/j/k/l", "move"),
		helpKey("[/]", "year"),
		helpKey("t", "this month"),
		helpKey("enter", "select"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func renderFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("shift+tab", "prev field"),
		helpKey("ctrl+s", "save"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func renderDefaultHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	return FooterStyle.Width(width).Render(strings.Join(keys, "  "))
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(max(height-6, 1)).
		Padding(1, 2)

	sections := []string{
		titleSection("Navigation"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"gg", "Jump to top"},
			{"G", "Jump to bottom"},
			{"ctrl+d", "Half page down"},
			{"ctrl+u", "Half page up"},
			{"tab / shift+tab", "Cycle active column"},
			{"/ then 1-9", "Jump to column"},
			{"s / S", "Sort active column asc/desc"},
			{"c / C", "Hide active column / show all"},
			{"n / N", "Filter by selected value / clear"},
			{"q", "Quit"},
			{"?", "Toggle help"},
		}),
		titleSection("Reviews"),
		helpSection([]helpItem{
			{"a", "Show all reviews"},
			{"m", "Pick a month"},
			{"< / >", "Previous / next month"},
			{"r", "Reload the current list"},
			{"e", "Edit your review"},
			{"d", "Delete the review (author or admin)"},
		}),
		titleSection("Month Picker"),
		helpSection([]helpItem{
			{"h / l", "Previous / next month"},
			{"k / j", "Move a row up / down"},
			{"[ / ]", "Previous / next year"},
			{"t", "Jump to this month"},
			{"enter", "Show reviews for the month"},
			{"esc", "Cancel"},
		}),
		titleSection("Editor"),
		helpSection([]helpItem{
			{"tab", "Next field"},
			{"shift+tab", "Previous field"},
			{"ctrl+s", "Save"},
			{"esc", "Cancel"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}

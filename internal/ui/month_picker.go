package ui

import (
	"fmt"
	"strings"
	"time"

	"revu/internal/model"
	"revu/internal/util"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const pickerColumns = 3

// MonthPickerModel is a year page of twelve months laid out in a grid.
type MonthPickerModel struct {
	keys  PickerKeyMap
	year  int
	month time.Month
	loc   *time.Location
	now   func() time.Time
}

// NewMonthPickerModel opens the picker on the month of selected.
func NewMonthPickerModel(selected time.Time) *MonthPickerModel {
	if selected.IsZero() {
		selected = time.Now()
	}
	return &MonthPickerModel{
		keys:  DefaultPickerKeyMap(),
		year:  selected.Year(),
		month: selected.Month(),
		loc:   selected.Location(),
		now:   time.Now,
	}
}

// Current returns the first day of the highlighted month.
func (m *MonthPickerModel) Current() time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, m.loc)
}

func (m *MonthPickerModel) shift(months int) {
	t := m.Current().AddDate(0, months, 0)
	m.year = t.Year()
	m.month = t.Month()
}

// Update handles key presses.
func (m MonthPickerModel) Update(msg tea.Msg) (MonthPickerModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		m.shift(-1)
	case key.Matches(keyMsg, m.keys.Right):
		m.shift(1)
	case key.Matches(keyMsg, m.keys.Up):
		m.shift(-pickerColumns)
	case key.Matches(keyMsg, m.keys.Down):
		m.shift(pickerColumns)
	case key.Matches(keyMsg, m.keys.PrevYear):
		m.year--
	case key.Matches(keyMsg, m.keys.NextYear):
		m.year++
	case key.Matches(keyMsg, m.keys.Today):
		now := m.now().In(m.loc)
		m.year = now.Year()
		m.month = now.Month()
	case key.Matches(keyMsg, m.keys.Select):
		date := m.Current()
		return m, func() tea.Msg {
			return model.MonthSelectedMsg{Date: date}
		}
	case key.Matches(keyMsg, m.keys.Cancel):
		return m, func() tea.Msg {
			return model.PickerCancelledMsg{}
		}
	}
	return m, nil
}

// View renders the picker.
func (m *MonthPickerModel) View(width, height int) string {
	now := m.now().In(m.loc)

	title := LabelStyle.Render(fmt.Sprintf("‹ %d ›", m.year))

	var rows []string
	for r := 0; r < 12/pickerColumns; r++ {
		var cells []string
		for c := 0; c < pickerColumns; c++ {
			month := time.Month(r*pickerColumns + c + 1)
			label := month.String()[:3]
			style := MonthCellStyle
			switch {
			case month == m.month:
				style = MonthCellSelectedStyle
			case month == now.Month() && m.year == now.Year():
				style = MonthCellCurrentStyle
			}
			cells = append(cells, style.Render(label))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	hint := HelpDescStyle.Render("Reviews from " + util.FormatMonth(m.Current()))

	body := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		strings.Join(rows, "\n\n"),
		"",
		hint,
	)

	return PanelStyle.
		Width(width - 4).
		Height(max(height-4, 1)).
		Align(lipgloss.Center).
		Render(body)
}

package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"revu/internal/model"
	"revu/internal/util"

	"github.com/charmbracelet/lipgloss"
)

type reviewColumn struct {
	key    string
	label  string
	width  int
	hidden bool
}

// ReviewsModel is the table of reviews for one establishment.
type ReviewsModel struct {
	allRows []model.Review
	rows    []model.Review
	cursor  int
	offset  int

	columns      []reviewColumn
	activeColumn int
	sortKey      string
	sortDesc     bool
	filterKey    string
	filterValue  string
}

// NewReviewsModel creates a table over the given reviews, keeping their order.
func NewReviewsModel(rows []model.Review) *ReviewsModel {
	return &ReviewsModel{
		allRows: append([]model.Review(nil), rows...),
		rows:    append([]model.Review(nil), rows...),
		columns: []reviewColumn{
			{key: "author", label: "author", width: 16},
			{key: "rating", label: "rating", width: 10},
			{key: "published", label: "published", width: 14},
			{key: "edited", label: "edited", width: 12},
			{key: "review", label: "review", width: 30},
		},
	}
}

func (m *ReviewsModel) ApplyPrefs(prefs TablePrefs) {
	if prefs.SortKey != "" {
		m.sortKey = prefs.SortKey
		m.sortDesc = prefs.SortDesc
	}
	hidden := make(map[string]bool, len(prefs.HiddenColumns))
	for _, c := range prefs.HiddenColumns {
		hidden[c] = true
	}
	for i := range m.columns {
		m.columns[i].hidden = hidden[m.columns[i].key]
	}
	if prefs.ActiveColumn != "" {
		for i, c := range m.columns {
			if c.key == prefs.ActiveColumn {
				m.activeColumn = i
				break
			}
		}
	}
	m.ensureVisibleActiveColumn()
	m.rebuild()
}

func (m *ReviewsModel) Prefs() TablePrefs {
	var hidden []string
	for _, c := range m.columns {
		if c.hidden {
			hidden = append(hidden, c.key)
		}
	}
	return TablePrefs{
		SortKey:       m.sortKey,
		SortDesc:      m.sortDesc,
		HiddenColumns: hidden,
		ActiveColumn:  m.columns[m.activeColumn].key,
	}
}

// Len reports how many reviews the table holds before filtering.
func (m *ReviewsModel) Len() int {
	return len(m.allRows)
}

// Reviews returns the held reviews in their original order.
func (m *ReviewsModel) Reviews() []model.Review {
	return append([]model.Review(nil), m.allRows...)
}

// Selected returns the review under the cursor.
func (m *ReviewsModel) Selected() (model.Review, bool) {
	if len(m.rows) == 0 {
		return model.Review{}, false
	}
	return m.rows[m.cursor], true
}

// Select moves the cursor to the review with the given id.
func (m *ReviewsModel) Select(id int64) bool {
	for i, r := range m.rows {
		if r.ID == id {
			m.cursor = i
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
			if m.cursor >= m.offset+10 {
				m.offset = m.cursor - 9
			}
			return true
		}
	}
	return false
}

// Remove drops the review with the given id and keeps the cursor in range.
func (m *ReviewsModel) Remove(id int64) bool {
	idx := -1
	for i, r := range m.allRows {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	m.allRows = append(m.allRows[:idx:idx], m.allRows[idx+1:]...)
	m.rebuild()
	return true
}

func (m *ReviewsModel) rebuild() {
	rows := append([]model.Review(nil), m.allRows...)

	if m.filterKey != "" && m.filterValue != "" {
		filtered := make([]model.Review, 0, len(rows))
		target := strings.ToLower(strings.TrimSpace(m.filterValue))
		for _, r := range rows {
			if strings.EqualFold(strings.TrimSpace(m.getValue(r, m.filterKey)), target) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	if m.sortKey != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			left := strings.ToLower(m.getValue(rows[i], m.sortKey))
			right := strings.ToLower(m.getValue(rows[j], m.sortKey))
			if left == right {
				return rows[i].ID > rows[j].ID
			}
			if m.sortDesc {
				return left > right
			}
			return left < right
		})
	}

	m.rows = rows
	m.clampCursor()
}

func (m *ReviewsModel) clampCursor() {
	if len(m.rows) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

// getValue returns the sortable and filterable text for a cell.
func (m *ReviewsModel) getValue(row model.Review, key string) string {
	switch key {
	case "author":
		return row.Username
	case "rating":
		return fmt.Sprintf("%04.1f", row.Rating)
	case "published":
		if row.DateAdded.IsZero() {
			return ""
		}
		return row.DateAdded.UTC().Format(time.RFC3339)
	case "edited":
		if row.DateUpdated == nil {
			return ""
		}
		return row.DateUpdated.UTC().Format(time.RFC3339)
	case "review":
		return util.SingleLine(row.Content)
	default:
		return ""
	}
}

func (m *ReviewsModel) NextColumn() {
	start := m.activeColumn
	for {
		m.activeColumn = (m.activeColumn + 1) % len(m.columns)
		if !m.columns[m.activeColumn].hidden || m.activeColumn == start {
			return
		}
	}
}

func (m *ReviewsModel) PrevColumn() {
	start := m.activeColumn
	for {
		m.activeColumn--
		if m.activeColumn < 0 {
			m.activeColumn = len(m.columns) - 1
		}
		if !m.columns[m.activeColumn].hidden || m.activeColumn == start {
			return
		}
	}
}

func (m *ReviewsModel) JumpToColumn(number int) bool {
	if number < 1 || number > len(m.columns) {
		return false
	}
	idx := number - 1
	if m.columns[idx].hidden {
		return false
	}
	m.activeColumn = idx
	return true
}

func (m *ReviewsModel) SortActiveColumn(desc bool) {
	m.sortKey = m.columns[m.activeColumn].key
	m.sortDesc = desc
	m.rebuild()
}

func (m *ReviewsModel) HideActiveColumn() bool {
	if len(m.visibleColumnIndexes()) <= 1 {
		return false
	}
	m.columns[m.activeColumn].hidden = true
	m.ensureVisibleActiveColumn()
	return true
}

func (m *ReviewsModel) ShowAllColumns() {
	for i := range m.columns {
		m.columns[i].hidden = false
	}
}

func (m *ReviewsModel) FilterBySelectedValue() bool {
	if len(m.rows) == 0 {
		return false
	}
	key := m.columns[m.activeColumn].key
	value := strings.TrimSpace(m.getValue(m.rows[m.cursor], key))
	if value == "" {
		return false
	}
	m.filterKey = key
	m.filterValue = value
	m.rebuild()
	return true
}

func (m *ReviewsModel) ClearFilter() bool {
	if m.filterKey == "" {
		return false
	}
	m.filterKey = ""
	m.filterValue = ""
	m.rebuild()
	return true
}

func (m *ReviewsModel) TableMeta() string {
	col := strings.ToUpper(m.columns[m.activeColumn].label)
	parts := []string{fmt.Sprintf("col %s", col)}
	if m.sortKey != "" {
		order := "asc"
		if m.sortDesc {
			order = "desc"
		}
		parts = append(parts, fmt.Sprintf("sort %s %s", strings.ToUpper(m.sortKey), order))
	}
	if m.filterKey != "" {
		parts = append(parts, fmt.Sprintf("filter %s=%q", strings.ToUpper(m.filterKey), util.TruncateString(m.filterValue, 20)))
	}
	return strings.Join(parts, "  ·  ")
}

func (m *ReviewsModel) visibleColumnIndexes() []int {
	var idxs []int
	for i, c := range m.columns {
		if !c.hidden {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func (m *ReviewsModel) ensureVisibleActiveColumn() {
	if !m.columns[m.activeColumn].hidden {
		return
	}
	for i := range m.columns {
		if !m.columns[i].hidden {
			m.activeColumn = i
			return
		}
	}
	m.columns[0].hidden = false
	m.activeColumn = 0
}

// View renders the reviews table.
func (m *ReviewsModel) View(width, height int) string {
	if len(m.rows) == 0 {
		msg := "No reviews found."
		if m.filterKey != "" {
			msg = "No reviews match the filter. Press  N  to clear it."
		}
		return EmptyStateStyle.Width(width).Render(msg)
	}

	visible := m.visibleColumnIndexes()
	if len(visible) == 0 {
		return EmptyStateStyle.Width(width).Render("No visible columns. Press C to show all columns.")
	}

	widths := make([]int, 0, len(visible))
	headers := make([]string, 0, len(visible))
	totalFixed := 0
	for _, idx := range visible {
		col := m.columns[idx]
		label := strings.ToUpper(col.label)
		if idx == m.activeColumn {
			label = "❋ " + label
		}
		if m.sortKey == col.key {
			if m.sortDesc {
				label += " ↓"
			} else {
				label += " ↑"
			}
		}
		cellWidth := max(col.width, lipgloss.Width(label)+2)
		totalFixed += cellWidth
		widths = append(widths, cellWidth)
		headers = append(headers, label)
	}

	if extra := width - totalFixed - 4; extra > 0 {
		widths[len(widths)-1] += extra
	}

	header := renderTableRow(headers, widths, TableHeaderStyle)

	visibleHeight := max(height-3, 1)
	var rows []string

	for i := m.offset; i < len(m.rows) && i < m.offset+visibleHeight; i++ {
		row := m.rows[i]
		style := NormalRowStyle
		if i%2 == 1 {
			style = style.Background(lipgloss.Color("#222A3A"))
		}
		if i == m.cursor {
			style = SelectedRowStyle
		}

		cells := make([]string, 0, len(visible))
		for n, idx := range visible {
			col := m.columns[idx]
			switch col.key {
			case "author":
				cells = append(cells, util.TruncateString(row.Username, col.width-2))
			case "rating":
				cells = append(cells, lipgloss.NewStyle().Foreground(ColorYellow).Render(util.FormatRatingWithStar(row.Rating)))
			case "published":
				cells = append(cells, util.FormatDateHuman(row.DateAdded))
			case "edited":
				edited := "—"
				if row.DateUpdated != nil {
					edited = util.FormatDateHuman(*row.DateUpdated)
				}
				cells = append(cells, edited)
			case "review":
				cells = append(cells, util.TruncateString(util.SingleLine(row.Content), widths[n]-2))
			}
		}

		rows = append(rows, renderTableRow(cells, widths, style))
	}

	filterInfo := ""
	if m.filterKey != "" {
		filterInfo = fmt.Sprintf("  ·  filtered: %d/%d", len(m.rows), len(m.allRows))
	}
	meta := m.TableMeta()
	if meta != "" {
		meta = "  ·  " + meta
	}
	status := StatusBarStyle.Render(fmt.Sprintf("Total reviews: %d%s%s", len(m.rows), filterInfo, meta))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		strings.Join(rows, "\n"),
		"",
		status,
	)
}

// MoveDown moves the cursor down.
func (m *ReviewsModel) MoveDown() {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
		if m.cursor >= m.offset+10 {
			m.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (m *ReviewsModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		if m.cursor < m.offset {
			m.offset--
		}
	}
}

func (m *ReviewsModel) JumpToTop() {
	m.cursor = 0
	m.offset = 0
}

func (m *ReviewsModel) JumpToBottom() {
	if len(m.rows) > 0 {
		m.cursor = len(m.rows) - 1
		if m.cursor >= 10 {
			m.offset = m.cursor - 9
		}
	}
}

// HalfPageDown moves down half a page.
func (m *ReviewsModel) HalfPageDown(pageSize int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor += pageSize / 2
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor >= m.offset+10 {
		m.offset = m.cursor - 9
	}
}

// HalfPageUp moves up half a page.
func (m *ReviewsModel) HalfPageUp(pageSize int) {
	m.cursor -= pageSize / 2
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
}

func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			continue
		}
		parts = append(parts, style.Width(widths[i]).Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}

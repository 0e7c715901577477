package ui

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"revu/internal/api"
	"revu/internal/db"
	"revu/internal/model"
	"revu/internal/util"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Options configures the root model.
type Options struct {
	DB            *sql.DB
	Client        *api.Client
	Logger        *zap.Logger
	Session       model.Session
	Establishment string
	// Month starts the view on one month instead of all reviews.
	Month time.Time
}

// Model is the root Bubble Tea model.
type Model struct {
	db            *sql.DB
	client        *api.Client
	logger        *zap.Logger
	session       model.Session
	establishment string

	screen model.Screen
	mode   model.Mode
	gState GState

	width  int
	height int

	error       string
	info        string
	showingHelp bool
	columnJump  bool

	// List state
	reviews       *ReviewsModel
	fetchFailed   bool
	fetching      bool
	loaded        bool
	cached        bool
	filter        model.Filter
	selectedMonth time.Time
	fetchGen      int
	cancelFetch   context.CancelFunc
	initCmd       tea.Cmd

	// Editor state; at most one review is edited at a time.
	editTarget *int64
	editForm   *EditFormModel
	picker     *MonthPickerModel

	keys  KeyMap
	prefs UIPreferences
}

// New creates a new root model and prepares the initial fetch.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := Model{
		db:            opts.DB,
		client:        opts.Client,
		logger:        logger,
		session:       opts.Session,
		establishment: opts.Establishment,
		screen:        model.ScreenReviews,
		mode:          model.ModeNav,
		gState:        GStateIdle,
		selectedMonth: util.StartOfMonth(time.Now()),
		keys:          DefaultKeyMap(),
		prefs:         loadUIPreferences(opts.DB),
	}
	if opts.Month.IsZero() {
		m.initCmd = m.loadAll()
	} else {
		m.initCmd = m.onDateChange(opts.Month)
	}
	return m
}

// Init starts the initial fetch and reads the cached list.
func (m Model) Init() tea.Cmd {
	if m.filter.All() && m.db != nil {
		return tea.Batch(loadCachedReviewsCmd(m.db, m.logger, m.establishment), m.initCmd)
	}
	return m.initCmd
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.mode == model.ModeNav && m.columnJump {
			if msg.String() == "esc" {
				m.columnJump = false
				m.info = ""
				return m, nil
			}
			if n, err := strconv.Atoi(msg.String()); err == nil {
				if t := m.currentTable(); t != nil && t.JumpToColumn(n) {
					m.columnJump = false
					m.info = fmt.Sprintf("Jumped to column %d", n)
					m.persistTablePrefs()
					return m, nil
				}
				m.info = fmt.Sprintf("Column %d unavailable", n)
				return m, nil
			}
		}

		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}

		// Status lines last until the next key press.
		if !m.columnJump {
			m.info = ""
		}

		if key.Matches(msg, m.keys.Help) && m.mode == model.ModeNav {
			m.showingHelp = !m.showingHelp
			return m, nil
		}

		if m.showingHelp {
			if msg.String() == "esc" || key.Matches(msg, m.keys.Help) {
				m.showingHelp = false
			}
			return m, nil
		}

		if m.mode == model.ModeNav {
			return m.handleNavMode(msg)
		}
		return m.handleInsertMode(msg)

	case model.ReviewSaveFailedMsg:
		if !m.isEditing(msg.ReviewID) {
			m.logger.Warn("save finished after its editor closed",
				zap.Int64("review_id", msg.ReviewID), zap.Error(msg.Err))
			return m, nil
		}
		m.editForm.SetError(msg.Err)
		return m, nil

	case model.ReviewsLoadedMsg:
		if msg.Gen != m.fetchGen {
			m.logger.Debug("dropping superseded reviews result",
				zap.Int("gen", msg.Gen), zap.Int("current", m.fetchGen))
			return m, nil
		}
		m.finishFetch()
		m.fetchFailed = false
		m.loaded = true
		m.cached = false
		m.error = ""
		m.setReviews(msg.Reviews)
		if msg.Filter.All() {
			return m, saveCachedReviewsCmd(m.db, m.logger, m.establishment, msg.Reviews)
		}
		return m, nil

	case model.ReviewsFailedMsg:
		if msg.Gen != m.fetchGen {
			m.logger.Debug("dropping superseded fetch failure",
				zap.Int("gen", msg.Gen), zap.Int("current", m.fetchGen))
			return m, nil
		}
		m.finishFetch()
		m.fetchFailed = true
		m.loaded = true
		m.logger.Warn("failed to fetch reviews",
			zap.String("establishment", m.establishment),
			zap.Bool("all", msg.Filter.All()),
			zap.Error(msg.Err))
		return m, nil

	case model.CachedReviewsLoadedMsg:
		if m.loaded || len(msg.Reviews) == 0 {
			return m, nil
		}
		m.cached = true
		m.setReviews(msg.Reviews)
		return m, nil

	case model.ReviewDeletedMsg:
		if msg.Result.AffectedRows == 0 {
			m.logger.Error("error deleting review",
				zap.Int64("review_id", msg.ReviewID),
				zap.String("message", msg.Result.Message))
			return m, nil
		}
		if m.reviews != nil && m.reviews.Remove(msg.ReviewID) {
			m.info = "Review deleted"
			if m.filter.All() {
				return m, saveCachedReviewsCmd(m.db, m.logger, m.establishment, m.reviews.Reviews())
			}
		}
		return m, nil

	case model.DeleteFailedMsg:
		m.logger.Error("error deleting review",
			zap.Int64("review_id", msg.ReviewID),
			zap.Error(msg.Err))
		return m, nil

	case model.MonthSelectedMsg:
		m.screen = model.ScreenReviews
		m.picker = nil
		return m, m.onDateChange(msg.Date)

	case model.PickerCancelledMsg:
		m.screen = model.ScreenReviews
		m.picker = nil
		return m, nil

	case model.ReviewSavedMsg:
		if !m.isEditing(msg.ReviewID) {
			m.logger.Debug("dropping save result for a closed editor",
				zap.Int64("review_id", msg.ReviewID))
			return m, nil
		}
		m.info = "Review updated"
		return m, m.closeEdit()

	case model.EditClosedMsg:
		return m, m.closeEdit()

	default:
		if m.mode == model.ModeInsert {
			return m.handleInsertMode(msg)
		}
	}

	return m, nil
}

// startFetch supersedes any fetch in flight and requests the batch of
// reviews described by filter. Only the result carrying the latest
// generation is applied.
func (m *Model) startFetch(filter model.Filter) tea.Cmd {
	if m.cancelFetch != nil {
		m.cancelFetch()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel
	m.fetchGen++
	m.fetching = true
	m.filter = filter

	gen := m.fetchGen
	client := m.client
	establishment := m.establishment
	return func() tea.Msg {
		var (
			reviews []model.Review
			err     error
		)
		if filter.All() {
			reviews, err = client.ListReviews(ctx, establishment)
		} else {
			reviews, err = client.ListReviewsForMonth(ctx, establishment, util.QueryDate(filter.Month))
		}
		if err != nil {
			return model.ReviewsFailedMsg{Gen: gen, Filter: filter, Err: err}
		}
		return model.ReviewsLoadedMsg{Gen: gen, Filter: filter, Reviews: reviews}
	}
}

// finishFetch releases the context of the fetch that just completed.
func (m *Model) finishFetch() {
	m.fetching = false
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

func (m *Model) loadAll() tea.Cmd {
	return m.startFetch(model.Filter{})
}

func (m *Model) loadByMonth(date time.Time) tea.Cmd {
	return m.startFetch(model.Filter{Month: date})
}

// onDateChange selects the month containing date and loads its reviews.
func (m *Model) onDateChange(date time.Time) tea.Cmd {
	m.selectedMonth = date
	return m.loadByMonth(date)
}

func (m *Model) refresh() tea.Cmd {
	if m.filter.All() {
		return m.loadAll()
	}
	return m.loadByMonth(m.filter.Month)
}

func (m *Model) setReviews(rows []model.Review) {
	var selected int64
	if m.reviews != nil {
		if r, ok := m.reviews.Selected(); ok {
			selected = r.ID
		}
	}
	m.reviews = NewReviewsModel(rows)
	m.reviews.ApplyPrefs(m.prefs.Reviews)
	if selected != 0 {
		m.reviews.Select(selected)
	}
}

// activateEdit opens the editor on review, replacing any editor already open.
func (m *Model) activateEdit(review model.Review) {
	id := review.ID
	m.editTarget = &id
	m.editForm = NewEditFormModel(m.client, m.session, review)
	m.screen = model.ScreenEditForm
	m.mode = model.ModeInsert
}

func (m *Model) isEditing(reviewID int64) bool {
	return m.editTarget != nil && *m.editTarget == reviewID && m.editForm != nil
}

// closeEdit clears the edit target and reloads every review.
func (m *Model) closeEdit() tea.Cmd {
	m.editTarget = nil
	m.editForm = nil
	m.screen = model.ScreenReviews
	m.mode = model.ModeNav
	return m.loadAll()
}

func (m *Model) quit() tea.Cmd {
	if m.cancelFetch != nil {
		m.cancelFetch()
	}
	return tea.Quit
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	contentHeight := m.height - 4

	var content string
	breadcrumbParts := []string{m.establishment}

	switch m.screen {
	case model.ScreenReviews:
		content = m.reviewsView(contentHeight)
	case model.ScreenMonthPicker:
		breadcrumbParts = append(breadcrumbParts, "Pick month")
		if m.picker != nil {
			content = m.picker.View(m.width, contentHeight)
		}
	case model.ScreenEditForm:
		breadcrumbParts = append(breadcrumbParts, "Edit review")
		if m.editForm != nil {
			content = m.editForm.View(m.width, contentHeight)
		}
	}

	header := renderHeader(breadcrumbParts, m.viewerLabel(), m.width)
	footer := RenderHelp(m.screen, m.mode, m.width)

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		Render(content)

	parts := []string{header}
	if m.error != "" {
		parts = append(parts, ErrorStyle.Width(m.width).Render("Error: "+m.error))
	}
	if m.info != "" {
		parts = append(parts, SuccessStyle.Width(m.width).Render(m.info))
	}
	parts = append(parts, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) reviewsView(height int) string {
	bar := FilterBarStyle.Render(m.filterLabel())

	if m.fetchFailed {
		return lipgloss.JoinVertical(lipgloss.Left, bar, EmptyStateStyle.Width(m.width).Render("No reviews found."))
	}
	if m.reviews == nil {
		return lipgloss.JoinVertical(lipgloss.Left, bar, EmptyStateStyle.Width(m.width).Render("Loading reviews..."))
	}

	card := ""
	if r, ok := m.reviews.Selected(); ok {
		card = renderReviewCard(r, m.session, m.width)
	}
	tableHeight := max(height-lipgloss.Height(bar)-lipgloss.Height(card), 5)
	table := m.reviews.View(m.width, tableHeight)

	if card == "" {
		return lipgloss.JoinVertical(lipgloss.Left, bar, table)
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, table, card)
}

func (m Model) filterLabel() string {
	label := "All reviews"
	if !m.filter.All() {
		label = "Reviews for " + util.FormatMonth(m.filter.Month)
	}
	if m.cached {
		label += HelpDescStyle.Render("  ·  cached")
	}
	if m.fetching {
		label += HelpDescStyle.Render("  ·  loading...")
	}
	return label
}

func (m Model) viewerLabel() string {
	if m.session.Role == model.RoleAnonymous {
		return "guest"
	}
	return fmt.Sprintf("%s (%s)", m.session.Username, m.session.Role)
}

func renderHeader(breadcrumbParts []string, viewer string, width int) string {
	title := HeaderStyle.Render("revu")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	dateStr := time.Now().Format("Mon 02 Jan")
	right := BreadcrumbStyle.Render(viewer+"  ·  "+dateStr) + "  "

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)

	return TitleStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.screen == model.ScreenMonthPicker {
		if m.picker == nil {
			m.screen = model.ScreenReviews
			return m, nil
		}
		picker, cmd := m.picker.Update(msg)
		m.picker = &picker
		return m, cmd
	}

	if t := m.currentTable(); t != nil {
		switch {
		case key.Matches(msg, m.keys.NextColumn):
			t.NextColumn()
			m.persistTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.PrevColumn):
			t.PrevColumn()
			m.persistTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.ColumnJump):
			m.columnJump = true
			m.info = "Jump to column: press 1-9 (esc to cancel)"
			return m, nil
		case key.Matches(msg, m.keys.SortAsc):
			t.SortActiveColumn(false)
			m.info = "Sorted ascending"
			m.persistTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.SortDesc):
			t.SortActiveColumn(true)
			m.info = "Sorted descending"
			m.persistTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.HideColumn):
			if t.HideActiveColumn() {
				m.info = "Column hidden"
				m.persistTablePrefs()
			} else {
				m.info = "Cannot hide last visible column"
			}
			return m, nil
		case key.Matches(msg, m.keys.ShowColumns):
			t.ShowAllColumns()
			m.info = "All columns shown"
			m.persistTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.FilterValue):
			if t.FilterBySelectedValue() {
				m.info = "Filter applied from selected value"
			} else {
				m.info = "No filterable value in selected cell"
			}
			return m, nil
		case key.Matches(msg, m.keys.ClearFilter):
			if t.ClearFilter() {
				m.info = "Filter cleared"
			}
			return m, nil
		}
	}

	if key.Matches(msg, m.keys.Top) {
		if m.gState == GStateIdle {
			m.gState = GStateFirstG
			return m, nil
		}
		m.gState = GStateIdle
		if m.reviews != nil {
			m.reviews.JumpToTop()
		}
		return m, nil
	}
	m.gState = GStateIdle

	return m.handleReviewsNav(msg)
}

func (m Model) handleReviewsNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.ShowAll):
		m.info = ""
		return m, m.loadAll()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.PickMonth):
		m.picker = NewMonthPickerModel(m.selectedMonth)
		m.screen = model.ScreenMonthPicker
		return m, nil
	case key.Matches(msg, m.keys.PrevMonth):
		return m, m.onDateChange(util.AddMonths(m.selectedMonth, -1))
	case key.Matches(msg, m.keys.NextMonth):
		return m, m.onDateChange(util.AddMonths(m.selectedMonth, 1))
	}

	if m.reviews == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.reviews.MoveDown()
	case key.Matches(msg, m.keys.Up):
		m.reviews.MoveUp()
	case key.Matches(msg, m.keys.Bottom):
		m.reviews.JumpToBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.reviews.HalfPageDown(m.height / 2)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.reviews.HalfPageUp(m.height / 2)
	case key.Matches(msg, m.keys.Edit):
		review, ok := m.reviews.Selected()
		if !ok {
			return m, nil
		}
		if !m.session.CanEdit(review) {
			m.info = "Only the author can edit this review"
			return m, nil
		}
		m.activateEdit(review)
	case key.Matches(msg, m.keys.Delete):
		review, ok := m.reviews.Selected()
		if !ok {
			return m, nil
		}
		if !m.session.CanDelete(review) {
			m.info = "You cannot delete this review"
			return m, nil
		}
		return m, deleteReviewCmd(m.client, review.ID, m.session.ActingUsername(review))
	}
	return m, nil
}

func (m *Model) currentTable() tableController {
	if m.screen == model.ScreenReviews && m.reviews != nil {
		return m.reviews
	}
	return nil
}

func (m *Model) persistTablePrefs() {
	if m.reviews == nil {
		return
	}
	m.prefs.Reviews = m.reviews.Prefs()
	if err := saveUIPreferences(m.db, m.prefs); err != nil {
		m.logger.Warn("failed to save ui preferences", zap.Error(err))
	}
}

// handleInsertMode routes input to the editor.
func (m Model) handleInsertMode(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.screen == model.ScreenEditForm && m.editForm != nil {
		form, cmd := m.editForm.Update(msg)
		m.editForm = &form
		return m, cmd
	}
	return m, nil
}

// Commands

func deleteReviewCmd(client *api.Client, reviewID int64, username string) tea.Cmd {
	return func() tea.Msg {
		result, err := client.DeleteReview(context.Background(), reviewID, username)
		if err != nil {
			return model.DeleteFailedMsg{ReviewID: reviewID, Err: err}
		}
		return model.ReviewDeletedMsg{ReviewID: reviewID, Result: result}
	}
}

func loadCachedReviewsCmd(database *sql.DB, logger *zap.Logger, establishment string) tea.Cmd {
	return func() tea.Msg {
		reviews, err := db.ListCachedReviews(database, establishment)
		if err != nil {
			logger.Warn("failed to read cached reviews", zap.Error(err))
			return nil
		}
		return model.CachedReviewsLoadedMsg{Reviews: reviews}
	}
}

func saveCachedReviewsCmd(database *sql.DB, logger *zap.Logger, establishment string, reviews []model.Review) tea.Cmd {
	if database == nil {
		return nil
	}
	return func() tea.Msg {
		if err := db.ReplaceCachedReviews(database, establishment, reviews); err != nil {
			logger.Warn("failed to cache reviews", zap.Error(err))
		}
		return nil
	}
}

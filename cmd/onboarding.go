package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"revu/internal/db"
	"revu/internal/model"
	"revu/internal/session"
	"revu/internal/ui"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSignInCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "signin",
		Short: "Choose the role and username used for edit and delete rights",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			database, err := openStore(v)
			if err != nil {
				return err
			}
			defer database.Close()

			s, err := runSignIn(database)
			if err != nil {
				return err
			}
			fmt.Fprintln(cobraCmd.OutOrStdout(), describeSession(s))
			return nil
		},
	}
}

func newSignOutCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored role and username",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			database, err := openStore(v)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := session.Clear(database); err != nil {
				return err
			}
			fmt.Fprintln(cobraCmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func openStore(v *viper.Viper) (*sql.DB, error) {
	loadDotEnv()
	dbPath, err := resolveDBPath(v)
	if err != nil {
		return nil, err
	}
	return db.Open(dbPath)
}

func describeSession(s model.Session) string {
	if s.Role == model.RoleAnonymous {
		return "Browsing as a guest."
	}
	return fmt.Sprintf("Signed in as %s (%s).", s.Username, s.Role)
}

// EnsureSession returns the stored session. When nothing is stored and stdin
// is a terminal, the sign-in screen runs first.
func EnsureSession(database *sql.DB) (model.Session, error) {
	exists, err := session.Exists(database)
	if err != nil {
		return model.Session{}, err
	}
	if !exists && isTerminal(os.Stdin) {
		if _, err := runSignIn(database); err != nil {
			return model.Session{}, err
		}
	}
	return session.Load(database)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

type signInStep int

const (
	stepRole signInStep = iota
	stepName
	stepDone
)

type roleOption struct {
	role  model.Role
	label string
	hint  string
}

var roleOptions = []roleOption{
	{model.RoleUser, "User", "edit and delete your own reviews"},
	{model.RoleManager, "Manager", "same rights as a user"},
	{model.RoleAdmin, "Admin", "delete any review"},
	{model.RoleAnonymous, "Guest", "read only, nothing is stored"},
}

type signInModel struct {
	step      signInStep
	cursor    int
	nameInput textinput.Model
	session   model.Session
	// completed is false when the user backed out without choosing.
	completed bool
	status    string
	width     int
	height    int
}

var (
	obColorMuted  = ui.ColorMuted
	obColorText   = ui.ColorText
	obColorAccent = ui.ColorAccent
	obColorDanger = ui.ColorRed

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabInactive = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 2)

	obTabActive = lipgloss.NewStyle().
			Foreground(obColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obOptionStyle = lipgloss.NewStyle().
			Foreground(obColorText)

	obOptionSelected = lipgloss.NewStyle().
				Foreground(obColorAccent).
				Bold(true)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newSignInModel() signInModel {
	in := textinput.New()
	in.Placeholder = "username"
	in.CharLimit = 64
	in.Prompt = "name> "
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)

	return signInModel{
		step:      stepRole,
		nameInput: in,
	}
}

func (m signInModel) Init() tea.Cmd { return nil }

func (m signInModel) selectedRole() model.Role {
	return roleOptions[m.cursor].role
}

func (m signInModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch m.step {
		case stepRole:
			return m.updateRole(msg)
		case stepName:
			return m.updateName(msg)
		}
	}
	return m, nil
}

func (m signInModel) updateRole(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(roleOptions)-1 {
			m.cursor++
		}
	case "enter":
		if m.selectedRole() == model.RoleAnonymous {
			m.session = model.Session{Role: model.RoleAnonymous}
			m.completed = true
			m.status = "Continuing as a guest."
			m.step = stepDone
			return m, tea.Quit
		}
		m.step = stepName
		m.status = ""
		return m, m.nameInput.Focus()
	case "ctrl+c", "q", "esc":
		m.status = "Sign-in canceled."
		m.step = stepDone
		return m, tea.Quit
	}
	return m, nil
}

func (m signInModel) updateName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			m.status = "Username is required."
			return m, nil
		}
		m.session = model.Session{Role: m.selectedRole(), Username: name}
		m.completed = true
		m.status = describeSession(m.session)
		m.step = stepDone
		return m, tea.Quit
	case "esc":
		m.nameInput.Blur()
		m.status = ""
		m.step = stepRole
		return m, nil
	case "ctrl+c":
		m.status = "Sign-in canceled."
		m.step = stepDone
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m signInModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	contentHeight := max(8, height-6)
	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(width),
		m.renderTabs(width),
		m.renderContent(width, contentHeight),
		m.renderFooter(width),
	)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(view)
}

func (m signInModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("revu") + " " + obMutedStyle.Render("› Sign in")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m signInModel) renderTabs(width int) string {
	roleTab := obTabInactive.Render("Role")
	nameTab := obTabInactive.Render("Username")
	switch m.step {
	case stepRole:
		roleTab = obTabActive.Render("Role")
	case stepName:
		nameTab = obTabActive.Render("Username")
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, "  ", roleTab, nameTab))
}

func (m signInModel) renderFooter(width int) string {
	switch m.step {
	case stepRole:
		return obFooterStyle.Width(width).Render("↑↓/jk to navigate  enter to confirm  q cancel")
	case stepName:
		return obFooterStyle.Width(width).Render("enter save  esc back  ctrl+c cancel")
	default:
		return obFooterStyle.Width(width).Render("Sign-in complete")
	}
}

func (m signInModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepRole:
		lines := []string{obLabelStyle.Render("How are you using revu?"), ""}
		for i, opt := range roleOptions {
			hint := obMutedStyle.Render("  " + opt.hint)
			if i == m.cursor {
				lines = append(lines, "  "+obOptionSelected.Render("→ "+opt.label)+hint)
			} else {
				lines = append(lines, "    "+obOptionStyle.Render(opt.label)+hint)
			}
		}
		lines = append(lines, "", obMutedStyle.Render("Run `revu signin` again to switch, `revu signout` to forget it."))
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stepName:
		input := obInputStyle.Width(max(30, cardWidth-14)).Render(m.nameInput.View())
		lines := []string{
			obLabelStyle.Render(fmt.Sprintf("Username (%s)", m.selectedRole())),
			"",
			input,
			"",
			obMutedStyle.Render("Reviews you wrote under this name can be edited and deleted."),
		}
		if m.status != "" {
			lines = append(lines, "", obWarnStyle.Render(m.status))
		}
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	default:
		msg := obMutedStyle.Render(m.status)
		if !m.completed {
			msg = obWarnStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, obLabelStyle.Render("Sign-in"), "", msg)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

// runSignIn shows the sign-in screen and stores the chosen identity. A
// canceled sign-in leaves the store untouched.
func runSignIn(database *sql.DB) (model.Session, error) {
	prog := tea.NewProgram(newSignInModel(), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return model.Session{}, fmt.Errorf("sign-in tui failed: %w", err)
	}
	m, ok := finalModel.(signInModel)
	if !ok {
		return model.Session{}, fmt.Errorf("unexpected sign-in model type")
	}
	return applySignIn(database, m)
}

func applySignIn(database *sql.DB, m signInModel) (model.Session, error) {
	if !m.completed {
		return session.Load(database)
	}
	if err := session.Save(database, m.session); err != nil {
		return model.Session{}, err
	}
	return m.session, nil
}

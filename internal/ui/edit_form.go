package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"revu/internal/api"
	"revu/internal/model"
	"revu/internal/util"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const saveTimeout = 10 * time.Second

// EditFormModel edits the rating and content of one review.
type EditFormModel struct {
	client       *api.Client
	session      model.Session
	review       model.Review
	keys         FormKeyMap
	focusedField int
	inputs       []textinput.Model
	error        string
	saving       bool
	spinner      spinner.Model
}

// NewEditFormModel creates an editor prefilled with the review's values.
func NewEditFormModel(client *api.Client, session model.Session, review model.Review) *EditFormModel {
	inputs := make([]textinput.Model, 2)

	inputs[0] = textinput.New()
	inputs[0].Placeholder = "1-5 (decimals ok)"
	inputs[0].CharLimit = 4
	inputs[0].SetValue(strconv.FormatFloat(review.Rating, 'f', -1, 64))
	inputs[0].Focus()

	inputs[1] = textinput.New()
	inputs[1].Placeholder = "Your review..."
	inputs[1].CharLimit = 500
	inputs[1].SetValue(review.Content)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &EditFormModel{
		client:  client,
		session: session,
		review:  review,
		keys:    DefaultFormKeyMap(),
		inputs:  inputs,
		spinner: sp,
	}
}

// ReviewID returns the id of the review being edited.
func (m *EditFormModel) ReviewID() int64 {
	return m.review.ID
}

// SetError shows a save failure and re-enables the form.
func (m *EditFormModel) SetError(err error) {
	m.saving = false
	if err != nil {
		m.error = err.Error()
	}
}

// Update handles all messages.
func (m EditFormModel) Update(msg tea.Msg) (EditFormModel, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		if !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		return m, func() tea.Msg {
			return model.EditClosedMsg{}
		}
	case key.Matches(keyMsg, m.keys.Save):
		if m.saving {
			return m, nil
		}
		edit, err := m.parse()
		if err != nil {
			m.error = err.Error()
			return m, nil
		}
		m.error = ""
		m.saving = true
		return m, tea.Batch(m.spinner.Tick, m.save(edit))
	case key.Matches(keyMsg, m.keys.NextField):
		m.nextField()
		return m, nil
	case key.Matches(keyMsg, m.keys.PrevField):
		m.prevField()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(keyMsg)
	return m, cmd
}

func (m *EditFormModel) parse() (model.ReviewEdit, error) {
	rating, err := util.ParseRatingInput(m.inputs[0].Value())
	if err != nil {
		return model.ReviewEdit{}, err
	}
	return model.ReviewEdit{
		ReviewID: m.review.ID,
		Username: m.session.Username,
		Rating:   rating,
		Content:  strings.TrimSpace(m.inputs[1].Value()),
	}, nil
}

func (m *EditFormModel) save(edit model.ReviewEdit) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := client.UpdateReview(ctx, edit); err != nil {
			return model.ReviewSaveFailedMsg{ReviewID: edit.ReviewID, Err: err}
		}
		return model.ReviewSavedMsg{ReviewID: edit.ReviewID}
	}
}

func (m *EditFormModel) nextField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField = (m.focusedField + 1) % len(m.inputs)
	m.inputs[m.focusedField].Focus()
}

func (m *EditFormModel) prevField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField--
	if m.focusedField < 0 {
		m.focusedField = len(m.inputs) - 1
	}
	m.inputs[m.focusedField].Focus()
}

// View renders the form.
func (m *EditFormModel) View(width, height int) string {
	var fields []string

	fields = append(fields, LabelStyle.Render(fmt.Sprintf("Editing your review from %s", util.FormatReviewDate(m.review.DateAdded))))
	fields = append(fields, renderFormField("Rating (1-5) *", m.inputs[0], m.focusedField == 0))
	fields = append(fields, renderFormField("Review", m.inputs[1], m.focusedField == 1))

	if m.saving {
		fields = append(fields, HelpDescStyle.Render(m.spinner.View()+" Saving..."))
	}
	if m.error != "" {
		fields = append(fields, ErrorStyle.Render(m.error))
	}

	return PanelStyle.
		Width(width - 4).
		Height(max(height-4, 1)).
		Render(strings.Join(fields, "\n\n"))
}

func renderFormField(label string, input textinput.Model, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}

	field := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render(label),
		input.View(),
	)

	return style.Render(field)
}

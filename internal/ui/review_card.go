package ui

import (
	"strings"

	"revu/internal/model"
	"revu/internal/util"

	"github.com/charmbracelet/lipgloss"
)

// renderReviewCard renders one review with the actions the viewer may take on it.
func renderReviewCard(review model.Review, viewer model.Session, width int) string {
	var sections []string

	sections = append(sections, LabelStyle.Render(review.Username+" says..."))

	var fields []string
	rating := lipgloss.NewStyle().Foreground(ColorYellow).Render(util.FormatRatingStars(review.Rating)) +
		"  " + NormalRowStyle.Render(util.FormatRating(review.Rating))
	fields = append(fields, LabelStyle.Render("Rating:")+" "+rating)
	fields = append(fields, renderField("Published", util.FormatReviewDate(review.DateAdded)))
	if review.DateUpdated != nil {
		fields = append(fields, renderField("Edited", util.FormatReviewDate(*review.DateUpdated)))
	}
	sections = append(sections, strings.Join(fields, "\n"))

	if review.Content != "" {
		sections = append(sections, QuoteStyle.Width(max(width-12, 10)).Render(review.Content))
	}

	if actions := reviewActions(review, viewer); actions != "" {
		sections = append(sections, actions)
	}

	return PanelStyle.
		Width(max(width-4, 10)).
		Render(strings.Join(sections, "\n\n"))
}

// reviewActions lists the key hints for the actions the viewer may take.
func reviewActions(review model.Review, viewer model.Session) string {
	var hints []string
	if viewer.CanEdit(review) {
		hints = append(hints, HelpKeyStyle.Render("e")+" "+HelpDescStyle.Render("edit"))
	}
	if viewer.CanDelete(review) {
		hints = append(hints, DangerKeyStyle.Render("d")+" "+HelpDescStyle.Render("delete"))
	}
	return strings.Join(hints, "  ")
}

func renderField(label, value string) string {
	if value == "" {
		value = "—"
	}
	return LabelStyle.Render(label+":") + " " + NormalRowStyle.Render(value)
}

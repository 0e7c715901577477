package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// QueryOffset is the fixed UTC offset the backend uses for calendar days.
const QueryOffset = 8 * time.Hour

// ReviewZone is the fixed UTC+8 zone (Philippine Standard Time) used for
// query dates and for displaying review dates.
var ReviewZone = time.FixedZone("PST", int(QueryOffset/time.Second))

// QueryDate returns the calendar day of t in UTC+8 as YYYY-MM-DD, independent
// of the local time zone.
func QueryDate(t time.Time) string {
	return t.In(ReviewZone).Format("2006-01-02")
}

// FormatReviewDate formats a review timestamp as "January 02, 2006" in UTC+8.
func FormatReviewDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.In(ReviewZone).Format("January 02, 2006")
}

// FormatDateHuman formats a review timestamp with humanized relative display.
// "Today", "Yesterday", "3d ago", "Jan 15", "Jan 15 '24"
func FormatDateHuman(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	t = t.In(ReviewZone)

	now := time.Now().In(ReviewZone)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, ReviewZone)
	dateDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ReviewZone)

	diff := today.Sub(dateDay)
	days := int(diff.Hours() / 24)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return fmt.Sprintf("%dd ago", days)
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 '06")
	}
}

// FormatMonth formats a month as "January 2006".
func FormatMonth(t time.Time) string {
	return t.Format("January 2006")
}

// StartOfMonth returns midnight of the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// AddMonths moves a month start by n months.
func AddMonths(t time.Time, n int) time.Time {
	return StartOfMonth(t).AddDate(0, n, 0)
}

// ParseMonthInput parses flexible month input and returns the first day of
// that month at local midnight.
func ParseMonthInput(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("month is required")
	}

	layouts := []string{
		"January 2006",
		"Jan 2006",
		"2006-01",
		"01/2006",
		"1/2006",
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return StartOfMonth(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid month format")
}

// FormatRating formats a rating as "4.5/5".
func FormatRating(rating float64) string {
	return formatRatingNumber(rating) + "/5"
}

// FormatRatingWithStar formats a rating as "4.5 ★" for display.
func FormatRatingWithStar(rating float64) string {
	return formatRatingNumber(rating) + " ★"
}

// FormatRatingStars formats a rating as stars (e.g., "★★★★☆").
func FormatRatingStars(rating float64) string {
	stars := int(math.Round(rating))
	if stars < 0 {
		stars = 0
	}
	if stars > 5 {
		stars = 5
	}
	return strings.Repeat("★", stars) + strings.Repeat("☆", 5-stars)
}

func formatRatingNumber(v float64) string {
	// Keep one decimal at most, but avoid trailing .0 for whole values.
	s := strconv.FormatFloat(v, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s
}

// ParseRatingInput parses a rating typed by the user.
func ParseRatingInput(input string) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("rating is required")
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r < 1 || r > 5 {
		return 0, fmt.Errorf("rating must be between 1 and 5")
	}
	return r, nil
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// SingleLine collapses newlines so free text fits in a table cell.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

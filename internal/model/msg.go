package model

import "time"

// Bubble Tea message types

// ReviewsLoadedMsg is sent when a fetch of reviews succeeds.
type ReviewsLoadedMsg struct {
	Gen     int
	Filter  Filter
	Reviews []Review
}

// ReviewsFailedMsg is sent when a fetch of reviews fails in transport or parsing.
type ReviewsFailedMsg struct {
	Gen    int
	Filter Filter
	Err    error
}

// CachedReviewsLoadedMsg is sent when the locally cached list is read at startup.
type CachedReviewsLoadedMsg struct {
	Reviews []Review
}

// ReviewDeletedMsg is sent when the backend answered a delete request.
type ReviewDeletedMsg struct {
	ReviewID int64
	Result   DeleteResult
}

// DeleteFailedMsg is sent when a delete request failed outright.
type DeleteFailedMsg struct {
	ReviewID int64
	Err      error
}

// MonthSelectedMsg is sent when a month is picked.
type MonthSelectedMsg struct {
	Date time.Time
}

// PickerCancelledMsg is sent when the month picker is dismissed.
type PickerCancelledMsg struct{}

// ReviewSavedMsg is sent when the editor saved a review.
type ReviewSavedMsg struct {
	ReviewID int64
}

// ReviewSaveFailedMsg is sent when the editor could not save a review.
type ReviewSaveFailedMsg struct {
	ReviewID int64
	Err      error
}

// EditClosedMsg is sent when the editor is dismissed without saving.
type EditClosedMsg struct{}

// Screen represents different app screens.
type Screen int

const (
	ScreenReviews Screen = iota
	ScreenMonthPicker
	ScreenEditForm
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
)

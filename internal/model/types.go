package model

import "time"

// Review represents a review of an establishment as returned by the backend.
type Review struct {
	ID          int64      `json:"reviewid"`
	Username    string     `json:"username"`
	Rating      float64    `json:"rating"`
	Content     string     `json:"content,omitempty"`
	DateAdded   time.Time  `json:"date_added"`
	DateUpdated *time.Time `json:"date_updated,omitempty"`
}

// DeleteResult is the backend's answer to a delete request.
type DeleteResult struct {
	AffectedRows int64  `json:"affectedRows"`
	Message      string `json:"message,omitempty"`
}

// ReviewEdit represents data for updating a review.
type ReviewEdit struct {
	ReviewID int64   `json:"reviewid" validate:"required"`
	Username string  `json:"username" validate:"required"`
	Rating   float64 `json:"rating" validate:"required,min=1,max=5"`
	Content  string  `json:"content" validate:"max=500"`
}

// Filter describes which batch of reviews is currently requested.
type Filter struct {
	// Month is the zero time when all reviews are shown.
	Month time.Time
}

// All reports whether the filter requests every review.
func (f Filter) All() bool {
	return f.Month.IsZero()
}

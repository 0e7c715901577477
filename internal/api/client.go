package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"revu/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend endpoints.
const (
	PathEstablishmentReviews = "/view-establishment-review"
	PathMonthReviews         = "/view-all-reviews-for-month"
	PathDeleteReview         = "/review/delete"
	DefaultEditPath          = "/review/edit"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:3001"

// HeaderRequestID carries a per-request id for correlating client and server logs.
const HeaderRequestID = "X-Request-ID"

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API error: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("API error: status %d", e.StatusCode)
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration // 0 disables the timeout
	EditPath string
	Logger   *zap.Logger
}

// Client wraps the review backend API.
type Client struct {
	http     *resty.Client
	editPath string
	logger   *zap.Logger
	validate *validator.Validate
}

// NewClient creates a new review backend client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.EditPath == "" {
		opts.EditPath = DefaultEditPath
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	logger := opts.Logger
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader(HeaderRequestID, uuid.NewString())
		return nil
	})
	httpClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("api response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.String("request_id", resp.Request.Header.Get(HeaderRequestID)),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", resp.Time()),
		)
		return nil
	})

	return &Client{
		http:     httpClient,
		editPath: opts.EditPath,
		logger:   logger,
		validate: validator.New(),
	}
}

type establishmentRequest struct {
	Name string `json:"name"`
}

type monthRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

type deleteRequest struct {
	ReviewID int64  `json:"reviewid"`
	Username string `json:"username" validate:"required"`
}

// ListReviews fetches every review of an establishment.
func (c *Client) ListReviews(ctx context.Context, establishment string) ([]model.Review, error) {
	var reviews []model.Review
	if err := c.post(ctx, PathEstablishmentReviews, establishmentRequest{Name: establishment}, &reviews); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// ListReviewsForMonth fetches the reviews of an establishment for the month
// containing date. date must be formatted as YYYY-MM-DD.
func (c *Client) ListReviewsForMonth(ctx context.Context, establishment, date string) ([]model.Review, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid query date %q: %w", date, err)
	}
	var reviews []model.Review
	if err := c.post(ctx, PathMonthReviews, monthRequest{Name: establishment, Date: date}, &reviews); err != nil {
		return nil, fmt.Errorf("failed to list reviews for month: %w", err)
	}
	return reviews, nil
}

// DeleteReview asks the backend to delete a review on behalf of username.
// A zero AffectedRows in the result means nothing was deleted.
func (c *Client) DeleteReview(ctx context.Context, reviewID int64, username string) (model.DeleteResult, error) {
	req := deleteRequest{ReviewID: reviewID, Username: username}
	if err := c.validate.Struct(req); err != nil {
		return model.DeleteResult{}, fmt.Errorf("invalid delete request: %w", err)
	}
	var result model.DeleteResult
	if err := c.post(ctx, PathDeleteReview, req, &result); err != nil {
		return model.DeleteResult{}, fmt.Errorf("failed to delete review %d: %w", reviewID, err)
	}
	return result, nil
}

// UpdateReview saves an edited review.
func (c *Client) UpdateReview(ctx context.Context, edit model.ReviewEdit) error {
	if err := c.validate.Struct(edit); err != nil {
		return fmt.Errorf("invalid review edit: %w", err)
	}
	if err := c.post(ctx, c.editPath, edit, nil); err != nil {
		return fmt.Errorf("failed to update review %d: %w", edit.ReviewID, err)
	}
	return nil
}

// post sends body as JSON and decodes a 2xx answer into out when out is non-nil.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("request canceled: %w", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("request timed out: %w", err)
		}
		return fmt.Errorf("network error: %w", err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}
	return nil
}

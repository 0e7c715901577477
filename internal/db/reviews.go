package db

import (
	"database/sql"
	"fmt"
	"time"

	"revu/internal/model"
)

// ReplaceCachedReviews stores reviews as the cached list of an establishment,
// dropping whatever was cached before. List order is preserved; a repeated
// review id keeps its last occurrence.
func ReplaceCachedReviews(db *sql.DB, establishment string, reviews []model.Review) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM review_cache WHERE establishment = ?", establishment); err != nil {
		return fmt.Errorf("failed to clear review cache: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO review_cache (establishment, review_id, username, rating, content, date_added, date_updated, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, r := range reviews {
		var content, dateAdded, dateUpdated interface{}
		if r.Content != "" {
			content = r.Content
		}
		if !r.DateAdded.IsZero() {
			dateAdded = r.DateAdded.UTC().Format(time.RFC3339Nano)
		}
		if r.DateUpdated != nil {
			dateUpdated = r.DateUpdated.UTC().Format(time.RFC3339Nano)
		}

		if _, err := tx.Exec(query, establishment, r.ID, r.Username, r.Rating, content, dateAdded, dateUpdated, i); err != nil {
			return fmt.Errorf("failed to cache review %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review cache: %w", err)
	}
	return nil
}

// ListCachedReviews returns the cached list of an establishment in stored order.
func ListCachedReviews(db *sql.DB, establishment string) ([]model.Review, error) {
	query := `
		SELECT review_id, username, COALESCE(rating, 0), content, date_added, date_updated
		FROM review_cache
		WHERE establishment = ?
		ORDER BY position
	`

	rows, err := db.Query(query, establishment)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached reviews: %w", err)
	}
	defer rows.Close()

	var results []model.Review
	for rows.Next() {
		var r model.Review
		var content, dateAdded, dateUpdated sql.NullString

		if err := rows.Scan(&r.ID, &r.Username, &r.Rating, &content, &dateAdded, &dateUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan cached review: %w", err)
		}

		r.Content = content.String
		if dateAdded.Valid {
			if t, err := time.Parse(time.RFC3339Nano, dateAdded.String); err == nil {
				r.DateAdded = t
			}
		}
		if dateUpdated.Valid {
			if t, err := time.Parse(time.RFC3339Nano, dateUpdated.String); err == nil {
				r.DateUpdated = &t
			}
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached reviews: %w", err)
	}

	return results, nil
}

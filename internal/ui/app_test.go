package ui

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"revu/internal/api"
	"revu/internal/db"
	"revu/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialLoad(t *testing.T) {
	t.Run("Should load every review of the establishment on start", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))

		requests := b.requestsTo(api.PathEstablishmentReviews)
		require.Len(t, requests, 1)
		assert.Equal(t, testEstablishment, requests[0].Body["name"])
		assert.False(t, m.fetchFailed)
		assert.False(t, m.fetching)
		assert.Nil(t, m.cancelFetch)
		assert.True(t, m.filter.All())

		view := m.View()
		assert.Contains(t, view, "alice")
		assert.Contains(t, view, "All reviews")
	})

	t.Run("Should start on a month when one is given", func(t *testing.T) {
		b, client := newBackend(t)
		b.respond(api.PathMonthReviews, http.StatusOK, monthReviewsJSON)
		month := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		m := newTestModel(t, client, userSession("bob"), testModelOptions{month: month})

		m = drive(t, m, m.Init())

		requests := b.requestsTo(api.PathMonthReviews)
		require.Len(t, requests, 1)
		assert.Equal(t, "2024-02-01", requests[0].Body["date"])
		assert.Empty(t, b.requestsTo(api.PathEstablishmentReviews))
		require.NotNil(t, m.reviews)
		assert.Equal(t, 1, m.reviews.Len())
	})
}

func TestFetchFailure(t *testing.T) {
	t.Run("Should show No reviews found after a failed fetch even when populated", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))
		b.respond(api.PathEstablishmentReviews, http.StatusInternalServerError, `{"message":"boom"}`)

		m, cmd := press(t, m, "r")
		m = drive(t, m, cmd)

		assert.True(t, m.fetchFailed)
		assert.Equal(t, 2, m.reviews.Len())
		view := m.View()
		assert.Contains(t, view, "No reviews found.")
		assert.NotContains(t, view, "Great coffee")
	})

	t.Run("Should treat an undecodable body as a failure", func(t *testing.T) {
		b, client := newBackend(t)
		b.respond(api.PathEstablishmentReviews, http.StatusOK, `not json`)
		m := newTestModel(t, client, userSession("bob"))

		m = drive(t, m, m.Init())

		assert.True(t, m.fetchFailed)
		assert.Contains(t, m.View(), "No reviews found.")
	})

	t.Run("Should clear the failure on the next successful fetch", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))
		b.respond(api.PathEstablishmentReviews, http.StatusInternalServerError, `{}`)
		m, cmd := press(t, m, "a")
		m = drive(t, m, cmd)
		require.True(t, m.fetchFailed)

		b.respond(api.PathEstablishmentReviews, http.StatusOK, twoReviewsJSON)
		m, cmd = press(t, m, "a")
		m = drive(t, m, cmd)

		assert.False(t, m.fetchFailed)
		assert.Contains(t, m.View(), "alice")
	})
}

func TestSupersededFetch(t *testing.T) {
	t.Run("Should ignore a slow loadAll resolving after a newer month load", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))
		b.respond(api.PathMonthReviews, http.StatusOK, monthReviewsJSON)

		m, loadAll := press(t, m, "a")
		staleGen := m.fetchGen
		m, loadMonth := press(t, m, ">")
		require.Greater(t, m.fetchGen, staleGen)

		m = drive(t, m, loadMonth)
		require.Equal(t, 1, m.reviews.Len())

		msgs := runCmd(loadAll)
		require.Len(t, msgs, 1)
		assert.IsType(t, model.ReviewsFailedMsg{}, msgs[0])
		m, _ = send(t, m, msgs[0])

		stale := []model.Review{{ID: 1, Username: "alice"}, {ID: 2, Username: "carol"}}
		m, cmd := send(t, m, model.ReviewsLoadedMsg{Gen: staleGen, Reviews: stale})
		assert.Nil(t, cmd)

		assert.False(t, m.fetchFailed)
		require.Equal(t, 1, m.reviews.Len())
		review, ok := m.reviews.Selected()
		require.True(t, ok)
		assert.Equal(t, "dave", review.Username)
		assert.False(t, m.filter.All())
	})

	t.Run("Should ignore a stale failure", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("bob"))

		m, _ = send(t, m, model.ReviewsFailedMsg{Gen: m.fetchGen - 1})

		assert.False(t, m.fetchFailed)
		assert.Contains(t, m.View(), "alice")
	})
}

func TestOnDateChange(t *testing.T) {
	t.Run("Should query the UTC+8 calendar day of the selection", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))
		b.respond(api.PathMonthReviews, http.StatusOK, monthReviewsJSON)

		selected := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)
		m, cmd := send(t, m, model.MonthSelectedMsg{Date: selected})
		m = drive(t, m, cmd)

		requests := b.requestsTo(api.PathMonthReviews)
		require.Len(t, requests, 1)
		assert.Equal(t, testEstablishment, requests[0].Body["name"])
		assert.Equal(t, "2024-01-16", requests[0].Body["date"])
		assert.Equal(t, selected, m.selectedMonth)
		assert.Contains(t, m.View(), "Reviews for January 2024")
	})

	t.Run("Should step to the previous and next month", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))
		b.respond(api.PathMonthReviews, http.StatusOK, monthReviewsJSON)
		m, cmd := send(t, m, model.MonthSelectedMsg{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
		m = drive(t, m, cmd)

		m, cmd = press(t, m, "<")
		m = drive(t, m, cmd)
		m, cmd = press(t, m, ">")
		m, cmd = press(t, m, ">")
		drive(t, m, cmd)

		requests := b.requestsTo(api.PathMonthReviews)
		require.Len(t, requests, 3)
		assert.Equal(t, "2024-03-01", requests[0].Body["date"])
		assert.Equal(t, "2024-02-01", requests[1].Body["date"])
		assert.Equal(t, "2024-04-01", requests[2].Body["date"])
	})

	t.Run("Should pick a month from the picker", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))
		b.respond(api.PathMonthReviews, http.StatusOK, monthReviewsJSON)

		m, _ = press(t, m, "m")
		require.Equal(t, model.ScreenMonthPicker, m.screen)
		require.NotNil(t, m.picker)
		want := m.picker.Current()

		m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		m = drive(t, m, cmd)

		assert.Equal(t, model.ScreenReviews, m.screen)
		assert.Nil(t, m.picker)
		assert.Equal(t, want, m.filter.Month)
		assert.Len(t, b.requestsTo(api.PathMonthReviews), 1)
	})

	t.Run("Should return to the list when the picker is cancelled", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))

		m, _ = press(t, m, "m")
		m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		m = drive(t, m, cmd)

		assert.Equal(t, model.ScreenReviews, m.screen)
		assert.True(t, m.filter.All())
		assert.Empty(t, b.requestsTo(api.PathMonthReviews))
	})
}

func TestDeleteReview(t *testing.T) {
	t.Run("Should delete as the author when the viewer is admin", func(t *testing.T) {
		m, b := loadedModel(t, adminSession("root"))
		b.respond(api.PathDeleteReview, http.StatusOK, `{"affectedRows": 1, "message": "deleted"}`)

		m, _ = press(t, m, "j")
		m, cmd := press(t, m, "d")
		require.NotNil(t, cmd)
		m = drive(t, m, cmd)

		requests := b.requestsTo(api.PathDeleteReview)
		require.Len(t, requests, 1)
		assert.Equal(t, "carol", requests[0].Body["username"])
		assert.Equal(t, float64(2), requests[0].Body["reviewid"])

		require.Equal(t, 1, m.reviews.Len())
		assert.Equal(t, "alice", m.reviews.Reviews()[0].Username)
	})

	t.Run("Should delete as the viewer for an own review", func(t *testing.T) {
		m, b := loadedModel(t, userSession("alice"))
		b.respond(api.PathDeleteReview, http.StatusOK, `{"affectedRows": 1}`)

		m, cmd := press(t, m, "d")
		m = drive(t, m, cmd)

		requests := b.requestsTo(api.PathDeleteReview)
		require.Len(t, requests, 1)
		assert.Equal(t, "alice", requests[0].Body["username"])
		assert.Equal(t, 1, m.reviews.Len())
	})

	t.Run("Should clear the status line on the next key press", func(t *testing.T) {
		m, b := loadedModel(t, userSession("alice"))
		b.respond(api.PathDeleteReview, http.StatusOK, `{"affectedRows": 1}`)

		m, cmd := press(t, m, "d")
		m = drive(t, m, cmd)
		require.Equal(t, "Review deleted", m.info)

		m, _ = press(t, m, "j")

		assert.Empty(t, m.info)
		assert.NotContains(t, m.View(), "Review deleted")
	})

	t.Run("Should keep the list and log when nothing was deleted", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		m, b := loadedModel(t, userSession("alice"), testModelOptions{logger: zap.New(core)})
		b.respond(api.PathDeleteReview, http.StatusOK, `{"affectedRows": 0, "message": "not found"}`)

		m, cmd := press(t, m, "d")
		m = drive(t, m, cmd)

		assert.Equal(t, 2, m.reviews.Len())
		assert.Empty(t, m.error)
		assert.Equal(t, 1, logs.FilterMessage("error deleting review").Len())
	})

	t.Run("Should keep the list and log on a non-2xx answer", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		m, b := loadedModel(t, userSession("alice"), testModelOptions{logger: zap.New(core)})
		b.respond(api.PathDeleteReview, http.StatusInternalServerError, `{"message":"boom"}`)

		m, cmd := press(t, m, "d")
		m = drive(t, m, cmd)

		assert.Equal(t, 2, m.reviews.Len())
		assert.False(t, m.fetchFailed)
		assert.Equal(t, 1, logs.FilterMessage("error deleting review").Len())
	})

	t.Run("Should not offer delete on someone else's review", func(t *testing.T) {
		m, b := loadedModel(t, userSession("bob"))

		m, _ = press(t, m, "j")
		m, cmd := press(t, m, "d")

		assert.Nil(t, cmd)
		assert.Empty(t, b.requestsTo(api.PathDeleteReview))
		assert.Equal(t, 2, m.reviews.Len())
	})

	t.Run("Should treat managers like users", func(t *testing.T) {
		m, b := loadedModel(t, model.Session{Role: model.RoleManager, Username: "mia"})

		_, cmd := press(t, m, "d")

		assert.Nil(t, cmd)
		assert.Empty(t, b.requestsTo(api.PathDeleteReview))
	})
}

func TestEditActivation(t *testing.T) {
	t.Run("Should keep only the most recently activated edit target", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("alice"))
		first := model.Review{ID: 10, Username: "alice", Rating: 3}
		second := model.Review{ID: 11, Username: "alice", Rating: 5}

		m.activateEdit(first)
		m.activateEdit(second)

		require.NotNil(t, m.editTarget)
		assert.Equal(t, int64(11), *m.editTarget)
		require.NotNil(t, m.editForm)
		assert.Equal(t, int64(11), m.editForm.ReviewID())
		assert.Equal(t, model.ScreenEditForm, m.screen)
	})

	t.Run("Should refetch every review when the editor is cancelled", func(t *testing.T) {
		m, b := loadedModel(t, userSession("alice"))

		m, _ = press(t, m, "e")
		require.NotNil(t, m.editTarget)
		assert.Equal(t, int64(1), *m.editTarget)
		assert.Equal(t, model.ModeInsert, m.mode)

		m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		m = drive(t, m, cmd)

		assert.Nil(t, m.editTarget)
		assert.Nil(t, m.editForm)
		assert.Equal(t, model.ScreenReviews, m.screen)
		assert.Len(t, b.requestsTo(api.PathEstablishmentReviews), 2)
	})

	t.Run("Should save the edit and refetch", func(t *testing.T) {
		m, b := loadedModel(t, userSession("alice"))
		b.respond(api.DefaultEditPath, http.StatusOK, `{"affectedRows": 1}`)

		m, _ = press(t, m, "e")
		m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

		var saved tea.Msg
		for _, msg := range runCmd(cmd) {
			if _, ok := msg.(model.ReviewSavedMsg); ok {
				saved = msg
			}
		}
		require.NotNil(t, saved)
		m, cmd = send(t, m, saved)
		m = drive(t, m, cmd)

		edits := b.requestsTo(api.DefaultEditPath)
		require.Len(t, edits, 1)
		assert.Equal(t, "alice", edits[0].Body["username"])
		assert.Equal(t, float64(1), edits[0].Body["reviewid"])
		assert.Equal(t, float64(4), edits[0].Body["rating"])
		assert.Nil(t, m.editTarget)
		assert.Len(t, b.requestsTo(api.PathEstablishmentReviews), 2)
	})

	t.Run("Should keep the editor open when saving fails", func(t *testing.T) {
		m, b := loadedModel(t, userSession("alice"))
		b.respond(api.DefaultEditPath, http.StatusForbidden, `{"message":"nope"}`)

		m, _ = press(t, m, "e")
		m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
		for _, msg := range runCmd(cmd) {
			if failed, ok := msg.(model.ReviewSaveFailedMsg); ok {
				assert.Equal(t, int64(1), failed.ReviewID)
				m, _ = send(t, m, failed)
			}
		}

		require.NotNil(t, m.editForm)
		assert.Contains(t, m.editForm.error, "403")
		assert.False(t, m.editForm.saving)
		assert.Equal(t, model.ScreenEditForm, m.screen)
	})

	t.Run("Should ignore a save result for an editor that was closed", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("alice"))
		first := model.Review{ID: 10, Username: "alice", Rating: 3}
		second := model.Review{ID: 11, Username: "alice", Rating: 5}

		m.activateEdit(first)
		m, _ = send(t, m, model.EditClosedMsg{})
		m.activateEdit(second)
		gen := m.fetchGen

		m, cmd := send(t, m, model.ReviewSavedMsg{ReviewID: 10})

		assert.Nil(t, cmd)
		assert.Equal(t, gen, m.fetchGen)
		require.NotNil(t, m.editTarget)
		assert.Equal(t, int64(11), *m.editTarget)
		require.NotNil(t, m.editForm)
		assert.Equal(t, model.ScreenEditForm, m.screen)
	})

	t.Run("Should not show a save failure in another review's editor", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("alice"))

		m.activateEdit(model.Review{ID: 11, Username: "alice", Rating: 5})
		m, cmd := send(t, m, model.ReviewSaveFailedMsg{ReviewID: 10, Err: errors.New("boom")})

		assert.Nil(t, cmd)
		require.NotNil(t, m.editForm)
		assert.Empty(t, m.editForm.error)
		assert.Equal(t, int64(11), *m.editTarget)
	})

	t.Run("Should refuse to edit someone else's review", func(t *testing.T) {
		m, _ := loadedModel(t, adminSession("root"))

		m, cmd := press(t, m, "e")

		assert.Nil(t, cmd)
		assert.Nil(t, m.editTarget)
		assert.Equal(t, model.ScreenReviews, m.screen)
	})
}

func TestCachedReviews(t *testing.T) {
	cached := []model.Review{
		{ID: 9, Username: "erin", Rating: 3, Content: "Cached", DateAdded: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)},
	}

	t.Run("Should show cached reviews until the first fetch completes", func(t *testing.T) {
		database := openTestDB(t)
		require.NoError(t, db.ReplaceCachedReviews(database, testEstablishment, cached))
		b, client := newBackend(t)
		b.respond(api.PathEstablishmentReviews, http.StatusOK, twoReviewsJSON)
		m := newTestModel(t, client, userSession("bob"), testModelOptions{db: database})

		var fetched tea.Msg
		for _, msg := range runCmd(m.Init()) {
			switch msg.(type) {
			case model.CachedReviewsLoadedMsg:
				m, _ = send(t, m, msg)
			case model.ReviewsLoadedMsg:
				fetched = msg
			}
		}
		require.True(t, m.cached)
		require.Equal(t, 1, m.reviews.Len())
		assert.Contains(t, m.View(), "cached")

		require.NotNil(t, fetched)
		m, cmd := send(t, m, fetched)
		m = drive(t, m, cmd)

		assert.False(t, m.cached)
		assert.Equal(t, 2, m.reviews.Len())

		stored, err := db.ListCachedReviews(database, testEstablishment)
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("Should ignore the cache once a fetch completed", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("bob"))

		m, _ = send(t, m, model.CachedReviewsLoadedMsg{Reviews: cached})

		assert.False(t, m.cached)
		assert.Equal(t, 2, m.reviews.Len())
	})
}

func TestQuit(t *testing.T) {
	m, _ := loadedModel(t, userSession("bob"))

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTableKeys(t *testing.T) {
	t.Run("Should sort the active column from the key map", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("bob"))

		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
		m, _ = press(t, m, "S")

		assert.Equal(t, "rating", m.reviews.sortKey)
		assert.True(t, m.reviews.sortDesc)
		assert.Equal(t, "Sorted descending", m.info)
	})

	t.Run("Should jump to the bottom and back with G and gg", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("bob"))

		m, _ = press(t, m, "G")
		review, ok := m.reviews.Selected()
		require.True(t, ok)
		assert.Equal(t, int64(2), review.ID)

		m, _ = press(t, m, "g")
		m, _ = press(t, m, "g")
		review, ok = m.reviews.Selected()
		require.True(t, ok)
		assert.Equal(t, int64(1), review.ID)
	})

	t.Run("Should toggle the help screen", func(t *testing.T) {
		m, _ := loadedModel(t, userSession("bob"))

		m, _ = press(t, m, "?")
		assert.True(t, m.showingHelp)
		m, _ = press(t, m, "?")
		assert.False(t, m.showingHelp)
	})
}

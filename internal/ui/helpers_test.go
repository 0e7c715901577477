package ui

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"revu/internal/api"
	"revu/internal/db"
	"revu/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testEstablishment = "Cafe Uno"

const twoReviewsJSON = `[
	{"reviewid": 1, "username": "alice", "rating": 4, "content": "Great coffee", "date_added": "2024-01-15T10:00:00Z"},
	{"reviewid": 2, "username": "carol", "rating": 2, "content": "Slow service", "date_added": "2024-01-16T10:00:00Z"}
]`

const monthReviewsJSON = `[
	{"reviewid": 3, "username": "dave", "rating": 5, "content": "Best brunch", "date_added": "2024-02-03T10:00:00Z"}
]`

type backendRequest struct {
	Path string
	Body map[string]any
}

type backendResponse struct {
	status int
	body   string
}

// backend is a scripted review API.
type backend struct {
	mu        sync.Mutex
	responses map[string]backendResponse
	requests  []backendRequest
}

func newBackend(t *testing.T) (*backend, *api.Client) {
	t.Helper()
	b := &backend{responses: map[string]backendResponse{}}
	server := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(server.Close)
	client := api.NewClient(api.Options{BaseURL: server.URL, Timeout: 5 * time.Second})
	return b, client
}

func (b *backend) respond(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[path] = backendResponse{status: status, body: body}
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	b.requests = append(b.requests, backendRequest{Path: r.URL.Path, Body: body})
	res, ok := b.responses[r.URL.Path]
	b.mu.Unlock()

	if !ok {
		res = backendResponse{status: http.StatusNotFound, body: `{"message":"not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.status)
	_, _ = w.Write([]byte(res.body))
}

func (b *backend) requestsTo(path string) []backendRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []backendRequest
	for _, r := range b.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "revu.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

type testModelOptions struct {
	db     *sql.DB
	logger *zap.Logger
	month  time.Time
}

func newTestModel(t *testing.T, client *api.Client, session model.Session, opts ...testModelOptions) Model {
	t.Helper()
	var o testModelOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.db == nil {
		o.db = openTestDB(t)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	m := New(Options{
		DB:            o.db,
		Client:        client,
		Logger:        o.logger,
		Session:       session,
		Establishment: testEstablishment,
		Month:         o.month,
	})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// loadedModel returns a model that finished its initial fetch of two reviews.
func loadedModel(t *testing.T, session model.Session, opts ...testModelOptions) (Model, *backend) {
	t.Helper()
	b, client := newBackend(t)
	b.respond(api.PathEstablishmentReviews, http.StatusOK, twoReviewsJSON)
	m := newTestModel(t, client, session, opts...)
	m = drive(t, m, m.Init())
	require.NotNil(t, m.reviews)
	require.Equal(t, 2, m.reviews.Len())
	return m, b
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(Model)
	require.True(t, ok)
	return next, cmd
}

// runCmd executes cmd and flattens batches into their messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// drive runs cmd and feeds every resulting message back into the model
// until no commands remain.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		var next tea.Cmd
		m, next = send(t, m, msg)
		m = drive(t, m, next)
	}
	return m
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

func userSession(name string) model.Session {
	return model.Session{Role: model.RoleUser, Username: name}
}

func adminSession(name string) model.Session {
	return model.Session{Role: model.RoleAdmin, Username: name}
}

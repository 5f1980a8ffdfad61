package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secret-notes/internal/database"
	"github.com/amirk1998/secret-notes/internal/logging"
	"github.com/amirk1998/secret-notes/internal/models"
	"github.com/amirk1998/secret-notes/internal/purge"
	"github.com/amirk1998/secret-notes/internal/ratelimit"
	"github.com/amirk1998/secret-notes/internal/repository"
	"github.com/amirk1998/secret-notes/internal/security"
	"github.com/amirk1998/secret-notes/internal/service"
	apperrors "github.com/amirk1998/secret-notes/pkg/errors"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testServer struct {
	handler http.Handler
	svc     *service.NoteService
	clock   *testClock
}

func newTestCipher(t *testing.T) *security.NoteCipher {
	t.Helper()
	nc, err := security.NewNoteCipherWithParams(security.KDFParams{Time: 1, Memory: 64, Threads: 1})
	require.NoError(t, err)
	return nc
}

func newTestServer(t *testing.T, store repository.NoteStore) *testServer {
	t.Helper()

	if store == nil {
		db, err := database.Connect(database.Config{
			Path:          filepath.Join(t.TempDir(), "notes.db"),
			EncryptionKey: "test-encryption-key-0123456789abcdef",
			MaxOpenConns:  1,
			MaxIdleConns:  1,
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, database.Migrate(context.Background(), db))
		store = repository.NewNoteRepository(db, time.Second)
	}

	svc, err := service.NewNoteService(store, newTestCipher(t), service.Options{
		BaseURL:    "https://notes.example.com",
		PurgeDelay: time.Minute,
	})
	require.NoError(t, err)

	scheduler := purge.NewScheduler(store, logging.Nop{}, time.Second)
	t.Cleanup(scheduler.Stop)

	clock := &testClock{t: time.Now()}
	svc.WithClock(clock.Now).WithPurger(scheduler)

	return &testServer{
		handler: NewRouter(svc, logging.Nop{}),
		svc:     svc,
		clock:   clock,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:54321"
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (ts *testServer) submit(t *testing.T, text, password string) string {
	t.Helper()

	body, err := json.Marshal(models.SubmitNoteRequest{Text: text, Password: password})
	require.NoError(t, err)

	rec, out := ts.do(t, http.MethodPost, "/api/notes", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	id, _ := out["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "https://notes.example.com/#/note/"+id, out["link"])
	assert.NotEmpty(t, out["expires_at"])
	return id
}

func TestSubmitAndReadOnce(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.submit(t, "hello", "pw12")

	rec, out := ts.do(t, http.MethodGet, "/api/notes/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "locked", out["status"])
	assert.NotContains(t, out, "text")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec, out = ts.do(t, http.MethodPost, "/api/notes/"+id+"/unlock", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "locked", out["status"])
	assert.Equal(t, "wrong_password", out["error"])

	rec, out = ts.do(t, http.MethodPost, "/api/notes/"+id+"/unlock", `{"password":"pw12"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "hello", out["text"])
	assert.Equal(t, float64(60), out["purge_in_seconds"])

	rec, out = ts.do(t, http.MethodPost, "/api/notes/"+id+"/unlock", `{"password":"pw12"}`)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "already_read", out["status"])
	assert.NotContains(t, out, "text")
}

func TestSubmitValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, body := range []string{
		`{"text":"   ","password":"pw12"}`,
		`{"text":"hello","password":"abc"}`,
	} {
		rec, out := ts.do(t, http.MethodPost, "/api/notes", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, out["error"], apperrors.ErrValidation.Error())
	}

	for _, body := range []string{`not json`, `{"text":"x","password":"pw12","extra":1}`} {
		rec, out := ts.do(t, http.MethodPost, "/api/notes", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "invalid request body", out["error"])
	}
}

func TestSubmitBodyTooLarge(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{"text":"` + strings.Repeat("a", maxBodyBytes) + `","password":"pw12"}`
	rec, _ := ts.do(t, http.MethodPost, "/api/notes", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetUnknownNote(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, id := range []string{"not-a-uuid", "3f1c2a9e-6b7d-4e2f-9a01-5c8d7e6f4b32"} {
		rec, out := ts.do(t, http.MethodGet, "/api/notes/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", out["status"])
	}
}

func TestExpiredNote(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.submit(t, "later", "pw12")

	ts.clock.Advance(8 * 24 * time.Hour)

	rec, out := ts.do(t, http.MethodGet, "/api/notes/"+id, "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "expired", out["status"])

	rec, _ = ts.do(t, http.MethodGet, "/api/notes/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnlockRateLimited(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.svc.WithRateLimits(nil, ratelimit.NewRateLimiter(1, 1))
	id := ts.submit(t, "hello", "pw12")

	rec, _ := ts.do(t, http.MethodPost, "/api/notes/"+id+"/unlock", `{"password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out := ts.do(t, http.MethodPost, "/api/notes/"+id+"/unlock", `{"password":"pw12"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", out["error"])
}

func TestSubmitRateLimited(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.svc.WithRateLimits(ratelimit.NewRateLimiter(1, 1), nil)

	ts.submit(t, "one", "pw12")

	rec, out := ts.do(t, http.MethodPost, "/api/notes", `{"text":"two","password":"pw12"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", out["error"])
}

type downStore struct{}

func (downStore) Create(context.Context, string, time.Time) (string, error) {
	return "", apperrors.Unavailable("create note", assert.AnError)
}
func (downStore) GetByID(context.Context, string) (*models.Note, error) {
	return nil, apperrors.Unavailable("get note", assert.AnError)
}
func (downStore) MarkRead(context.Context, string) error {
	return apperrors.Unavailable("mark note read", assert.AnError)
}
func (downStore) ClaimUnread(context.Context, string) (bool, error) {
	return false, apperrors.Unavailable("claim note", assert.AnError)
}
func (downStore) Delete(context.Context, string) error {
	return apperrors.Unavailable("delete note", assert.AnError)
}
func (downStore) DeleteExpired(context.Context, time.Time) ([]string, error) {
	return nil, apperrors.Unavailable("delete expired notes", assert.AnError)
}
func (downStore) Ping(context.Context) error {
	return apperrors.Unavailable("ping", assert.AnError)
}

func TestStoreDownIsServiceUnavailable(t *testing.T) {
	ts := newTestServer(t, downStore{})
	id := "3f1c2a9e-6b7d-4e2f-9a01-5c8d7e6f4b32"

	rec, _ := ts.do(t, http.MethodPost, "/api/notes", `{"text":"hello","password":"pw12"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, out := ts.do(t, http.MethodGet, "/api/notes/"+id, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", out["status"])

	rec, _ = ts.do(t, http.MethodPost, "/api/notes/"+id+"/unlock", `{"password":"pw12"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, out = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", out["status"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, out := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodDelete, "/api/notes", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUnmatchedRequestsGoThroughMiddleware(t *testing.T) {
	var buf bytes.Buffer
	handler := NewRouter(nil, logging.New(&buf, "info", "json"))

	id := "3f1c2a9e-6b7d-4e2f-9a01-5c8d7e6f4b32"
	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/notes/" + id, http.StatusNotFound},
		{http.MethodDelete, "/api/notes/" + id, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		buf.Reset()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

		assert.Equal(t, tt.status, rec.Code, tt.path)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"), tt.path)
		assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"), tt.path)

		logged := buf.String()
		assert.Contains(t, logged, `"msg":"http request"`, tt.path)
		assert.Contains(t, logged, `"status":`+strconv.Itoa(tt.status), tt.path)
		assert.NotContains(t, logged, id, "note ids stay out of logs")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logging.Nop{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

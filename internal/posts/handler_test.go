package posts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/pkg/i18n"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *PaginationMeta `json:"meta"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, repo *mockRepository) http.Handler {
	t.Helper()
	translator, err := i18n.New()
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(newTestService(repo, time.UTC), translator).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

const createBody = `{
	"data_type": "match",
	"target_id": "match-1001",
	"action": "match_result",
	"networks": ["social-media"],
	"channels": ["facebook", "instagram"],
	"content": "Full time: 2-1",
	"image": {"url": "https://cdn.example.com/result.jpg"},
	"schedule_date": "2030-03-10",
	"schedule_time": "14:00:00",
	"schedule_date_time": "2030-03-10T14:00:00Z"
}`

func TestHandler_CreateAndGet(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(t, repo)

	rec, env := do(t, router, http.MethodPost, "/posts", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Post created successfully", env.Message)

	var created domain.Post
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, domain.StatusNotSent, created.Status)

	rec, env = do(t, router, http.MethodGet, "/posts/"+created.ID, "", "Accept-Language", "es")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Publicación obtenida con éxito", env.Message)
}

func TestHandler_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"unknown channel", `["facebook", "instagram"]`, `["myspace"]`},
		{"legacy network spelling", `["social-media"]`, `["social media"]`},
		{"malformed time", `"14:00:00"`, `"2pm"`},
		{"date time without offset", `"2030-03-10T14:00:00Z"`, `"2030-03-10T14:00:00"`},
		{"missing image url", `{"url": "https://cdn.example.com/result.jpg"}`, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, newMockRepository())
			body := strings.Replace(createBody, tt.old, tt.new, 1)

			rec, env := do(t, router, http.MethodPost, "/posts", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
		})
	}
}

func TestHandler_Create_InconsistentSchedule(t *testing.T) {
	router := newTestRouter(t, newMockRepository())
	body := strings.Replace(createBody, `"schedule_time": "14:00:00"`, `"schedule_time": "15:00:00"`, 1)

	rec, env := do(t, router, http.MethodPost, "/posts", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "schedule")
}

func TestHandler_NotFound(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	for _, target := range []string{"/posts/not-a-uuid", "/posts/00000000-0000-0000-0000-000000000042"} {
		rec, env := do(t, router, http.MethodDelete, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		require.NotNil(t, env.Error)
		assert.Equal(t, "post not found", env.Error.Message)
	}
}

func TestHandler_Filter(t *testing.T) {
	repo := newMockRepository()
	seed(t, repo, time.Date(2030, time.April, 1, 9, 0, 0, 0, time.UTC))
	router := newTestRouter(t, repo)

	rec, env := do(t, router, http.MethodPost, "/posts/filter?page=1&limit=5", `{"filters": {"status": "not-sent"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Posts fetched successfully", env.Message)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.TotalCount)
	assert.Equal(t, 5, env.Meta.PageSize)

	rec, env = do(t, router, http.MethodPost, "/posts/filter", `{"filters": {"status": ["sent"]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No posts found for the given filters", env.Message)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHandler_Filter_ClosedSchema(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	rec, env := do(t, router, http.MethodPost, "/posts/filter", `{"filters": {"content": {"$ne": ""}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "content")
}

func TestHandler_Filter_EmptyBody(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	rec, _ := do(t, router, http.MethodPost, "/posts/filter", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Filter_InvalidPagination(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	for _, query := range []string{"?limit=0", "?limit=-1", "?page=0", "?page=abc"} {
		rec, _ := do(t, router, http.MethodPost, "/posts/filter"+query, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestHandler_Calendar(t *testing.T) {
	repo := newMockRepository()
	seed(t, repo, time.Date(2024, time.February, 29, 10, 0, 0, 0, time.UTC))
	router := newTestRouter(t, repo)

	rec, env := do(t, router, http.MethodPost, "/posts/calendar/month", `{"year": 2024, "month": 2, "filters": {"data_type": ["player"]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Calendar filters applied successfully", env.Message)

	var calendar map[string][]domain.Post
	require.NoError(t, json.Unmarshal(env.Data, &calendar))
	assert.Len(t, calendar, 29)
	assert.Len(t, calendar["2024-02-29"], 1)
	assert.NotNil(t, calendar["2024-02-01"])
}

func TestHandler_Calendar_Errors(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"unknown frame", "/posts/calendar/decade", `{"year": 2024}`},
		{"quarter out of range", "/posts/calendar/quarter", `{"year": 2024, "quarter": 5}`},
		{"malformed date", "/posts/calendar/date", `{"date": "29-02-2024"}`},
		{"unknown filter key", "/posts/calendar/year", `{"year": 2024, "filters": {"action": "match_result"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, router, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
		})
	}
}

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/post-scheduler/internal/pkg/ctxlog"
	"github.com/bissquit/post-scheduler/internal/pkg/httputil"
	"github.com/bissquit/post-scheduler/internal/pkg/i18n"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, runner Runner) http.Handler {
	t.Helper()
	translator, err := i18n.New()
	require.NoError(t, err)

	h := NewHandler(runner, translator)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandler_CheckAndExecute(t *testing.T) {
	runner := &mockRunner{}
	router := newTestRouter(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/trigger/check-and-execute", nil)
	req.Header.Set("Accept-Language", "es")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message string    `json:"message"`
		Data    []Outcome `json:"data"`
		Meta    Summary   `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, "Verificación de disparadores completada", body.Message)
	require.Len(t, body.Data, 1)
	assert.Equal(t, OutcomeSuccess, body.Data[0].Status)
	assert.Equal(t, Summary{Posts: 1, Succeeded: 1}, body.Meta)
	assert.Equal(t, 1, runner.callCount())
}

func TestHandler_CheckAndExecute_StoreFailure(t *testing.T) {
	router := newTestRouter(t, &mockRunner{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodPost, "/trigger/check-and-execute", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestHandler_CheckAndExecute_LogsSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{name: "authenticated", subject: "scheduler-bot", want: "subject=scheduler-bot"},
		{name: "anonymous", subject: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{}
			router := newTestRouter(t, runner)

			var buf bytes.Buffer
			ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
			if tt.subject != "" {
				ctx = context.WithValue(ctx, httputil.SubjectKey, tt.subject)
			}
			req := httptest.NewRequest(http.MethodPost, "/trigger/check-and-execute", nil).WithContext(ctx)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			require.NotNil(t, runner.ctx)
			ctxlog.FromContext(runner.ctx).Info("run")
			if tt.want == "" {
				assert.NotContains(t, buf.String(), "subject=")
				return
			}
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestHandler_CheckAndExecute_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, &mockRunner{})

	req := httptest.NewRequest(http.MethodGet, "/trigger/check-and-execute", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package delivery

import (
	"net/http"
	"time"

	"github.com/bissquit/post-scheduler/internal/pkg/ctxlog"
	"github.com/bissquit/post-scheduler/internal/pkg/httputil"
	"github.com/bissquit/post-scheduler/internal/pkg/i18n"
	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP requests for on-demand trigger checks.
type Handler struct {
	runner     Runner
	translator *i18n.Translator
	now        func() time.Time
}

// NewHandler creates a new trigger handler.
func NewHandler(runner Runner, translator *i18n.Translator) *Handler {
	return &Handler{
		runner:     runner,
		translator: translator,
		now:        time.Now,
	}
}

// RegisterRoutes registers trigger routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trigger", func(r chi.Router) {
		r.Post("/check-and-execute", h.CheckAndExecute)
	})
}

// CheckAndExecute handles POST /trigger/check-and-execute.
// Channel failures are reported per outcome with a 200 response.
func (h *Handler) CheckAndExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if subject := httputil.GetSubject(ctx); subject != "" {
		ctx = ctxlog.With(ctx, "subject", subject)
	}

	outcomes, err := h.runner.Execute(ctx, h.now())
	if err != nil {
		httputil.HandleError(ctx, w, err, nil)
		return
	}

	httputil.Message(w, http.StatusOK,
		h.translator.FromRequest(r, i18n.TriggerChecked),
		outcomes,
		Summarize(outcomes),
	)
}

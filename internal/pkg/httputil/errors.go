package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/post-scheduler/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
// With an empty Message the full error text is returned to the client.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// HandleError maps err to the first matching mapping. Rejected requests are
// logged at debug level; an unmapped error is logged and answered with 500
// without exposing its text.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	logger := ctxlog.FromContext(ctx)
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			msg := m.Message
			if msg == "" {
				msg = err.Error()
			}
			logger.Debug("request rejected", "status", m.Status, "error", err)
			Error(w, m.Status, msg)
			return
		}
	}
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}

package http

import (
	"net/http"
	"strconv"

	commonerrors "github.com/mediarequest/backend/internal/common/errors"
	"github.com/mediarequest/backend/internal/common/httpmetrics"
	"github.com/mediarequest/backend/internal/common/logger"
	"github.com/mediarequest/backend/internal/observability/metrics"
)

type ErrorHandler struct {
	log *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

// HandleError writes the status, code and message of a DomainError. Its cause
// is logged, never sent. Any other error is answered with an opaque 500.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	domainErr, ok := commonerrors.AsDomainError(err)
	if !ok {
		h.log.WithFields(r.Context(), logger.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
			"action": "unhandled_error",
		}).Errorf("unhandled error: %v", err)
		domainErr = commonerrors.ErrInternalError.WithCause(err)
	}

	if traceID := TraceIDFromContext(r.Context()); traceID != "" && domainErr.TraceID() == "" {
		domainErr = domainErr.WithTraceID(traceID)
	}

	status := domainErr.HTTPStatus()
	entry := h.log.WithFields(r.Context(), logger.Fields{
		"error_code": domainErr.Code(),
		"category":   string(domainErr.Category()),
		"status":     status,
		"path":       r.URL.Path,
		"action":     "domain_error",
	})
	switch {
	case !ok:
	case status >= http.StatusInternalServerError:
		entry.Errorf("request failed: %v", domainErr)
	case h.log.ShouldLog(logger.DEBUG):
		entry.Debugf("request rejected: %v", domainErr)
	}

	statusLabel := strconv.Itoa(status)
	metrics.DomainErrorsTotal.WithLabelValues(string(domainErr.Category()), domainErr.Code(), statusLabel).Inc()
	metrics.HTTPErrorsTotal.WithLabelValues(statusLabel, httpmetrics.NormalizePath(r.URL.Path), r.Method).Inc()

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="auth"`)
	}
	WriteError(w, status, domainErr.Code(), domainErr.Message())
}

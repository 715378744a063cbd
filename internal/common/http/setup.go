package http

import (
	"net/http"

	"github.com/mediarequest/backend/internal/common/constants"
	"github.com/mediarequest/backend/internal/common/httpmetrics"
	"github.com/mediarequest/backend/internal/common/logger"
)

type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// BuildBaseHandler wraps handler with the shared middleware chain. limiter may
// be nil.
func BuildBaseHandler(appName string, log *logger.Logger, handler http.Handler, limiter *PathRateLimiter) http.Handler {
	middlewares := []Middleware{
		SecurityHeadersMiddleware(""),
		RecoveryMiddleware(log),
		TraceIDMiddleware,
		MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize),
		httpmetrics.New().Wrap,
	}
	if limiter != nil {
		middlewares = append(middlewares, limiter.Middleware)
	}
	log.Debugf("%s: base handler built with %d middlewares", appName, len(middlewares))
	return Chain(handler, middlewares...)
}

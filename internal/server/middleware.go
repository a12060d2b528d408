package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/cutout/pkg/observability"
)

// unmatchedRoute labels requests that match no route.
const unmatchedRoute = "unmatched"

// observe logs every request and reports it to the HTTP hooks under its
// route pattern. Paths never become labels, so unknown URLs share one series.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks := observability.HTTP()
		route := s.routePattern(r)
		hooks.OnRequest(r.Context(), r.Method, route)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			d := time.Since(start)
			hooks.OnResponse(r.Context(), r.Method, route, status, d)

			logger := s.logger.With(
				"id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", d)
			switch {
			case status >= 500:
				logger.Error("request failed")
			case status >= 400:
				logger.Warn("request rejected")
			default:
				logger.Debug("request served")
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern resolves the pattern r will be routed to, or unmatchedRoute.
func (s *Server) routePattern(r *http.Request) string {
	rctx := chi.NewRouteContext()
	if !s.router.Match(rctx, r.Method, r.URL.Path) {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

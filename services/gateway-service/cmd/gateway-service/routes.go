package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/httpx"
)

type upstreams struct {
	Auth    *url.URL
	Booking *url.URL
	// Notification is optional; nil leaves delivery history unrouted.
	Notification *url.URL
}

func parseUpstreams(authRaw, bookingRaw, notificationRaw string) (upstreams, error) {
	var u upstreams
	var err error
	if u.Auth, err = parseURL("AUTH_URL", authRaw); err != nil {
		return u, err
	}
	if u.Booking, err = parseURL("BOOKING_URL", bookingRaw); err != nil {
		return u, err
	}
	if strings.TrimSpace(notificationRaw) != "" {
		if u.Notification, err = parseURL("NOTIFICATION_URL", notificationRaw); err != nil {
			return u, err
		}
	}
	return u, nil
}

func parseURL(key, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s must be an absolute URL (got %q)", key, raw)
	}
	return u, nil
}

func newProxy(target *url.URL) *httputil.ReverseProxy {
	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = otelhttp.NewTransport(http.DefaultTransport)
	p.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, _ error) {
		httpx.WriteError(w, http.StatusBadGateway, "upstream unavailable")
	}
	return p
}

// registerRoutes fronts the services. Staff routes are checked at the edge
// too, so unauthenticated traffic never reaches booking-service.
func registerRoutes(mux *http.ServeMux, up upstreams, v auth.Verifier, public httpx.Middleware) {
	authProxy := newProxy(up.Auth)
	bookingProxy := newProxy(up.Booking)
	staff := auth.RequireRole(v, auth.RoleAdmin, auth.RoleStaff)

	registerProxy(mux, "/api/v1/auth", authProxy)
	registerProxy(mux, "/api/v1/public/turnos", public(bookingProxy))
	registerProxy(mux, "/api/v1/turnos", staff(withActorHeaders(bookingProxy)))
	if up.Notification != nil {
		registerProxy(mux, "/api/v1/notificaciones", staff(newProxy(up.Notification)))
	}
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	mux.Handle(prefix, handler)
	mux.Handle(prefix+"/", handler)
}

// withActorHeaders replaces any client-sent identity headers with the
// verified claims.
func withActorHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del("X-User-Id")
		r.Header.Del("X-Role")
		if c, ok := auth.ClaimsFromContext(r.Context()); ok {
			r.Header.Set("X-User-Id", c.Subject)
			r.Header.Set("X-Role", c.Role)
		}
		next.ServeHTTP(w, r)
	})
}

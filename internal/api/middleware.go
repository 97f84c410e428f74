package api

// This file contains the middleware that binds each browser to its console.

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vrsandeep/readme-console/internal/console"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey string

const consoleContextKey = contextKey("console")

// ConsoleCookieName holds the browser's console id.
const ConsoleCookieName = "console_id"

const consoleCookieMaxAge = 7 * 24 * time.Hour

// ConsoleMiddleware looks up the console for the browser's console_id
// cookie, issuing a fresh id when the cookie is missing or malformed, and
// injects the console into the request's context.
func (s *Server) ConsoleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(ConsoleCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				id = cookie.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ConsoleCookieName,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(consoleCookieMaxAge),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c := s.app.Consoles().GetOrCreate(id)
		ctx := context.WithValue(r.Context(), consoleContextKey, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getConsoleFromContext returns nil if the request did not pass through
// ConsoleMiddleware.
func getConsoleFromContext(r *http.Request) *console.Console {
	c, ok := r.Context().Value(consoleContextKey).(*console.Console)
	if !ok {
		return nil
	}
	return c
}

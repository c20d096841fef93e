package handlers

import (
	"errors"
	"net/http"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/auth"
)

// Identify resolves the session cookie into an auth.Actor on the request
// context. Requests without a valid session pass through anonymously.
func (h *Handler) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok, err := h.sessions.CurrentUserID(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		p, err := h.identity.Principal(r.Context(), uid)
		if errors.Is(err, apperr.ErrUserNotFound) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		ctx := auth.NewContext(r.Context(), auth.Actor{UserID: p.ID, Username: p.Username, IsAdmin: p.IsAdmin})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.ActorFrom(r.Context()); !ok {
			h.writeError(w, r, apperr.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActive rejects anonymous and currently suspended users.
func (h *Handler) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := auth.ActorFrom(r.Context())
		if !ok {
			h.writeError(w, r, apperr.ErrUnauthorized)
			return
		}
		entry, err := h.identity.ActiveSuspension(r.Context(), a.UserID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if entry != nil {
			h.writeError(w, r, apperr.ErrSuspended.WithMessage(
				"account is suspended until "+entry.ExpiresAt().UTC().Format("2006-01-02 15:04:05 UTC")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := auth.ActorFrom(r.Context())
		if !ok {
			h.writeError(w, r, apperr.ErrUnauthorized)
			return
		}
		if !a.IsAdmin {
			h.writeError(w, r, apperr.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actor is only called behind RequireAuth.
func actor(r *http.Request) auth.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/identity"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req identity.Registration
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.identity.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.sessions.Create(r.Context(), w, u.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.sessions.Create(r.Context(), w, u.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.identity.GetUser(r.Context(), actor(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.identity.Subscriptions(r.Context(), actor(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	target, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.identity.Subscribe(r.Context(), actor(r).UserID, target); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	target, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.identity.Unsubscribe(r.Context(), actor(r).UserID, target); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type usernameRequest struct {
	Username string `json:"username"`
}

func (h *Handler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.identity.SetAdmin(r.Context(), req.Username); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Infow("admin granted", "username", req.Username, "by", actor(r).Username)
	w.WriteHeader(http.StatusNoContent)
}

type suspendRequest struct {
	Username string `json:"username"`
	Period   int64  `json:"period"` // seconds
}

// maxSuspensionSeconds is the longest period that still fits a time.Duration.
const maxSuspensionSeconds = math.MaxInt64 / int64(time.Second)

type suspensionResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Period    int64     `json:"period"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Period < 1 || req.Period > maxSuspensionSeconds {
		h.writeError(w, r, apperr.Validation(fmt.Sprintf("period must be between 1 and %d seconds", maxSuspensionSeconds)))
		return
	}
	entry, err := h.identity.Suspend(r.Context(), req.Username, time.Duration(req.Period)*time.Second)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Infow("user suspended", "username", req.Username, "period", entry.Period, "by", actor(r).Username)
	writeJSON(w, http.StatusCreated, suspensionResponse{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Period:    int64(entry.Period / time.Second),
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt(),
	})
}

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const sessionCookie = "blog_session"

type Manager struct {
	db     *sql.DB
	maxAge time.Duration
	secure bool
}

func NewManager(db *sql.DB, maxAge time.Duration, secure bool) *Manager {
	return &Manager{db: db, maxAge: maxAge, secure: secure}
}

// Create replaces any previous session of userID and sets the cookie.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID int64) error {
	id := uuid.New().String()
	expires := time.Now().Add(m.maxAge).UTC()

	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("drop old sessions: %w", err)
	}
	_, err := m.db.ExecContext(ctx, `INSERT INTO sessions(id, user_id, expires_at) VALUES(?,?,?)`, id, userID, expires)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, _ := r.Cookie(sessionCookie); c != nil && c.Value != "" {
		_, err = m.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentUserID resolves the session cookie of r. Expired sessions are
// treated as absent.
func (m *Manager) CurrentUserID(r *http.Request) (int64, bool, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return 0, false, nil
	}
	var (
		uid int64
		exp time.Time
	)
	err = m.db.QueryRowContext(r.Context(), `SELECT user_id, expires_at FROM sessions WHERE id = ?`, c.Value).Scan(&uid, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load session: %w", err)
	}
	if time.Now().After(exp) {
		return 0, false, nil
	}
	return uid, true, nil
}

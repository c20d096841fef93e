// Package identity owns user accounts: registration, password checks, the
// admin flag, temporary suspensions and subscriptions between users.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/db"
	"github.com/AdamOzgary/blog/internal/models"
	"github.com/AdamOzgary/blog/internal/validation"
)

type Service struct {
	db         *sql.DB
	logger     *zap.SugaredLogger
	bcryptCost int
	now        func() time.Time

	// dummyHash is compared against for unknown usernames so Authenticate
	// costs the same whether or not the account exists.
	dummyHash []byte
}

type Option func(*Service)

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithClock replaces time.Now, mostly so tests can move past a suspension.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(conn *sql.DB, logger *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{
		db:         conn,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	// GenerateFromPassword only fails on an out of range cost, which the
	// options rule out.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	return s
}

type Registration struct {
	Name     string `json:"name" validate:"required,max=64"`
	Lastname string `json:"lastname" validate:"max=64"`
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *Registration) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Lastname = strings.TrimSpace(r.Lastname)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Register creates a user. A username or email that is already taken yields
// ErrDuplicateIdentity.
func (s *Service) Register(ctx context.Context, reg Registration) (models.User, error) {
	reg.normalize()
	if err := validation.Struct(reg); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		Name:         reg.Name,
		Lastname:     reg.Lastname,
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO users(name, lastname, username, email, password_hash, created_at)
		VALUES(?,?,?,?,?,?)`, u.Name, u.Lastname, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.User{}, apperr.ErrDuplicateIdentity
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}

	s.logger.Infow("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	u, err := s.byUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return models.User{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	return u, nil
}

const userCols = `id, name, lastname, username, email, password_hash, is_admin, description, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Lastname, &u.Username, &u.Email, &u.PasswordHash,
		&u.IsAdmin, &u.Description, &u.CreatedAt)
	return u, err
}

func (s *Service) byUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user %q: %w", username, err)
	}
	return u, nil
}

// GetUser loads the profile of id together with its subscriptions and post
// count.
func (s *Service) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user %d: %w", id, err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = ?`, id).Scan(&u.PostCount); err != nil {
		return models.User{}, fmt.Errorf("count posts of user %d: %w", id, err)
	}
	if u.Subscriptions, err = s.Subscriptions(ctx, id); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Principal is the part of a user that request handling needs on every call.
type Principal struct {
	ID       int64
	Username string
	IsAdmin  bool
}

// Principal loads only what identifies and authorizes id.
func (s *Service) Principal(ctx context.Context, id int64) (Principal, error) {
	var p Principal
	err := s.db.QueryRowContext(ctx, `SELECT id, username, is_admin FROM users WHERE id = ?`, id).
		Scan(&p.ID, &p.Username, &p.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, apperr.ErrUserNotFound
	}
	if err != nil {
		return Principal{}, fmt.Errorf("load principal %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) SetAdmin(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_admin = 1 WHERE username = ?`, strings.TrimSpace(username))
	if err != nil {
		return fmt.Errorf("promote %q: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote %q: %w", username, err)
	}
	if n == 0 {
		return apperr.ErrUserNotFound
	}
	s.logger.Infow("user promoted to admin", "username", username)
	return nil
}

// Suspend adds a blacklist entry for username lasting period from now.
func (s *Service) Suspend(ctx context.Context, username string, period time.Duration) (models.BlacklistEntry, error) {
	if period < time.Second {
		return models.BlacklistEntry{}, apperr.Validation("suspension period must be at least one second")
	}
	u, err := s.byUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return models.BlacklistEntry{}, err
	}

	entry := models.BlacklistEntry{
		UserID:    u.ID,
		Period:    period.Truncate(time.Second),
		CreatedAt: s.now().UTC(),
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO blacklist(user_id, period_seconds, created_at) VALUES(?,?,?)`,
		entry.UserID, int64(entry.Period/time.Second), entry.CreatedAt)
	if err != nil {
		return models.BlacklistEntry{}, fmt.Errorf("insert blacklist entry: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return models.BlacklistEntry{}, fmt.Errorf("blacklist id: %w", err)
	}

	s.logger.Infow("user suspended", "user_id", u.ID, "period", entry.Period)
	return entry, nil
}

// ActiveSuspension returns the suspension of userID that ends last, or nil
// when none is in force.
func (s *Service) ActiveSuspension(ctx context.Context, userID int64) (*models.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, period_seconds, created_at FROM blacklist WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("load blacklist of user %d: %w", userID, err)
	}
	defer rows.Close()

	now := s.now()
	var active *models.BlacklistEntry
	for rows.Next() {
		var (
			e       models.BlacklistEntry
			seconds int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &seconds, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		e.Period = time.Duration(seconds) * time.Second
		if e.ActiveAt(now) && (active == nil || e.ExpiresAt().After(active.ExpiresAt())) {
			active = &e
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blacklist: %w", err)
	}
	return active, nil
}

// Subscribe makes followerID follow followeeID. Repeating it is a no-op.
func (s *Service) Subscribe(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return apperr.ErrSelfSubscription
	}
	ok, err := db.Exists(ctx, s.db, `SELECT 1 FROM users WHERE id = ?`, followeeID)
	if err != nil {
		return fmt.Errorf("check user %d: %w", followeeID, err)
	}
	if !ok {
		return apperr.ErrUserNotFound
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR IGNORE INTO subscriptions(follower_id, followee_id, created_at) VALUES(?,?,?)`,
		followerID, followeeID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("subscribe %d to %d: %w", followerID, followeeID, err)
	}
	return nil
}

// Unsubscribe removes the edge if present.
func (s *Service) Unsubscribe(ctx context.Context, followerID, followeeID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("unsubscribe %d from %d: %w", followerID, followeeID, err)
	}
	return nil
}

func (s *Service) Subscriptions(ctx context.Context, userID int64) ([]models.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.id, u.username FROM subscriptions s
		JOIN users u ON u.id = s.followee_id
		WHERE s.follower_id = ? ORDER BY u.username`, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions of %d: %w", userID, err)
	}
	defer rows.Close()

	subs := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, u)
	}
	return subs, rows.Err()
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

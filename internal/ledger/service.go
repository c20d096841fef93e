// Package ledger records reader interactions with posts: views, likes and
// dislikes, and comments with their own reactions. Each write updates the
// ledger row and the cached counters on the post or comment in a single
// transaction, so the counters always equal the ledger.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/db"
	"github.com/AdamOzgary/blog/internal/models"
)

type Service struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(conn *sql.DB, logger *zap.SugaredLogger) *Service {
	return &Service{db: conn, logger: logger, now: time.Now}
}

func postExists(ctx context.Context, q db.Querier, postID int64) error {
	ok, err := db.Exists(ctx, q, `SELECT 1 FROM posts WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("check post %d: %w", postID, err)
	}
	if !ok {
		return apperr.ErrPostNotFound
	}
	return nil
}

func counters(ctx context.Context, q db.Querier, postID int64) (models.Counters, error) {
	var c models.Counters
	err := q.QueryRowContext(ctx, `SELECT view_count, like_count, dislike_count, comment_count FROM posts WHERE id = ?`, postID).
		Scan(&c.Views, &c.Likes, &c.Dislikes, &c.Comments)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Counters{}, apperr.ErrPostNotFound
	}
	if err != nil {
		return models.Counters{}, fmt.Errorf("load counters of post %d: %w", postID, err)
	}
	return c, nil
}

// Counters returns the cached interaction counters of postID.
func (s *Service) Counters(ctx context.Context, postID int64) (models.Counters, error) {
	return counters(ctx, s.db, postID)
}

// RecordView notes that userID opened postID at the current time. Only the
// first view of a user counts; later ones just move viewed_at forward. The
// result says whether this call incremented view_count.
func (s *Service) RecordView(ctx context.Context, userID, postID int64) (bool, error) {
	var counted bool
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}
		seen, err := db.Exists(ctx, tx, `SELECT 1 FROM post_views WHERE user_id = ? AND post_id = ?`, userID, postID)
		if err != nil {
			return fmt.Errorf("check view: %w", err)
		}
		now := s.now().UTC()
		if seen {
			if _, err := tx.ExecContext(ctx, `UPDATE post_views SET viewed_at = ? WHERE user_id = ? AND post_id = ?`,
				now, userID, postID); err != nil {
				return fmt.Errorf("touch view: %w", err)
			}
			return nil
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO post_views(user_id, post_id, viewed_at) VALUES(?,?,?)`,
			userID, postID, now); err != nil {
			return fmt.Errorf("insert view: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = ?`, postID); err != nil {
			return fmt.Errorf("bump view count: %w", err)
		}
		counted = true
		return nil
	})
	return counted, err
}

func currentReaction(ctx context.Context, q db.Querier, table, column string, userID, targetID int64) (models.Reaction, error) {
	var v int
	err := q.QueryRowContext(ctx, `SELECT value FROM `+table+` WHERE user_id = ? AND `+column+` = ?`, userID, targetID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReactionNone, nil
	}
	if err != nil {
		return models.ReactionNone, fmt.Errorf("load reaction: %w", err)
	}
	return models.Reaction(v), nil
}

// storeReaction writes r as the state of (userID, targetID) in table,
// deleting the row for ReactionNone.
func (s *Service) storeReaction(ctx context.Context, tx *sql.Tx, table, column string, userID, targetID int64, r models.Reaction) error {
	var err error
	if r == models.ReactionNone {
		_, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ? AND `+column+` = ?`, userID, targetID)
	} else {
		_, err = tx.ExecContext(ctx, `INSERT INTO `+table+`(user_id, `+column+`, value, updated_at) VALUES(?,?,?,?)
			ON CONFLICT(user_id, `+column+`) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			userID, targetID, int(r), s.now().UTC())
	}
	if err != nil {
		return fmt.Errorf("store reaction: %w", err)
	}
	return nil
}

// SetReaction moves userID's reaction on postID to r and returns the post's
// counters afterwards. Setting the current reaction again changes nothing.
func (s *Service) SetReaction(ctx context.Context, userID, postID int64, r models.Reaction) (models.Counters, error) {
	if !validReaction(r) {
		return models.Counters{}, apperr.Validation("unknown reaction")
	}

	var (
		out  models.Counters
		prev models.Reaction
	)
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}
		var err error
		prev, err = currentReaction(ctx, tx, "post_reactions", "post_id", userID, postID)
		if err != nil {
			return err
		}

		if d := transition(prev, r); !d.zero() {
			if err := s.storeReaction(ctx, tx, "post_reactions", "post_id", userID, postID, r); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `UPDATE posts SET like_count = like_count + ?, dislike_count = dislike_count + ? WHERE id = ?`,
				d.likes, d.dislikes, postID)
			if err != nil {
				return fmt.Errorf("update post counters: %w", err)
			}
		}

		out, err = counters(ctx, tx, postID)
		return err
	})
	if err != nil {
		return models.Counters{}, err
	}

	if prev != r {
		s.logger.Debugw("post reaction changed", "user_id", userID, "post_id", postID, "from", prev, "to", r)
	}
	return out, nil
}

// ReactionOf reports userID's current reaction on postID.
func (s *Service) ReactionOf(ctx context.Context, userID, postID int64) (models.Reaction, error) {
	return currentReaction(ctx, s.db, "post_reactions", "post_id", userID, postID)
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/db"
	"github.com/AdamOzgary/blog/internal/models"
	"github.com/AdamOzgary/blog/internal/validation"
)

type NewComment struct {
	PostID   int64  `json:"-" validate:"gt=0"`
	AuthorID int64  `json:"-" validate:"gt=0"`
	Text     string `json:"text" validate:"required,max=5000"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

const commentSelect = `SELECT c.id, c.post_id, c.author_id, u.username, c.parent_id, c.text,
	c.like_count, c.dislike_count, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanComment(row interface{ Scan(...any) error }) (models.Comment, error) {
	var (
		c      models.Comment
		parent sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &parent, &c.Text, &c.Likes, &c.Dislikes, &c.CreatedAt)
	if err != nil {
		return models.Comment{}, err
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	return c, nil
}

// AddComment stores a comment or, with ParentID set, a reply to a comment on
// the same post. comment_count moves in the same transaction.
func (s *Service) AddComment(ctx context.Context, in NewComment) (models.Comment, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := validation.Struct(in); err != nil {
		return models.Comment{}, err
	}

	var out models.Comment
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, in.PostID); err != nil {
			return err
		}
		if in.ParentID != nil {
			var parentPost int64
			err := tx.QueryRowContext(ctx, `SELECT post_id FROM comments WHERE id = ?`, *in.ParentID).Scan(&parentPost)
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrParentNotFound
			}
			if err != nil {
				return fmt.Errorf("load parent comment %d: %w", *in.ParentID, err)
			}
			if parentPost != in.PostID {
				return apperr.ErrParentBelongsToDifferentPost
			}
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO comments(post_id, author_id, parent_id, text, created_at) VALUES(?,?,?,?,?)`,
			in.PostID, in.AuthorID, in.ParentID, in.Text, s.now().UTC())
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("comment id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?`, in.PostID); err != nil {
			return fmt.Errorf("bump comment count: %w", err)
		}

		out, err = scanComment(tx.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
		if err != nil {
			return fmt.Errorf("load comment %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}

	s.logger.Infow("comment added", "comment_id", out.ID, "post_id", out.PostID, "author_id", out.AuthorID, "reply", out.ParentID != nil)
	return out, nil
}

func commentCounters(ctx context.Context, q db.Querier, commentID int64) (models.CommentCounters, error) {
	var c models.CommentCounters
	err := q.QueryRowContext(ctx, `SELECT like_count, dislike_count FROM comments WHERE id = ?`, commentID).
		Scan(&c.Likes, &c.Dislikes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CommentCounters{}, apperr.ErrCommentNotFound
	}
	if err != nil {
		return models.CommentCounters{}, fmt.Errorf("load comment %d: %w", commentID, err)
	}
	return c, nil
}

// SetCommentReaction is SetReaction for comments.
func (s *Service) SetCommentReaction(ctx context.Context, userID, commentID int64, r models.Reaction) (models.CommentCounters, error) {
	if !validReaction(r) {
		return models.CommentCounters{}, apperr.Validation("unknown reaction")
	}

	var out models.CommentCounters
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := commentCounters(ctx, tx, commentID); err != nil {
			return err
		}
		prev, err := currentReaction(ctx, tx, "comment_reactions", "comment_id", userID, commentID)
		if err != nil {
			return err
		}

		if d := transition(prev, r); !d.zero() {
			if err := s.storeReaction(ctx, tx, "comment_reactions", "comment_id", userID, commentID, r); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `UPDATE comments SET like_count = like_count + ?, dislike_count = dislike_count + ? WHERE id = ?`,
				d.likes, d.dislikes, commentID)
			if err != nil {
				return fmt.Errorf("update comment counters: %w", err)
			}
		}

		out, err = commentCounters(ctx, tx, commentID)
		return err
	})
	if err != nil {
		return models.CommentCounters{}, err
	}
	return out, nil
}

// LikeComment sets userID's reaction on the comment to like and returns its
// like count. Liking twice counts once.
func (s *Service) LikeComment(ctx context.Context, userID, commentID int64) (int, error) {
	c, err := s.SetCommentReaction(ctx, userID, commentID, models.ReactionLike)
	if err != nil {
		return 0, err
	}
	return c.Likes, nil
}

// ListCommentsForPost returns the comments of postID in thread order.
func (s *Service) ListCommentsForPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	if err := postExists(ctx, s.db, postID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, commentSelect+` WHERE c.post_id = ? ORDER BY c.id`, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var flat []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		flat = append(flat, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return thread(flat), nil
}

// thread orders comments so each root is followed depth-first by its
// replies, siblings by id, and sets Depth.
func thread(flat []models.Comment) []models.Comment {
	children := make(map[int64][]models.Comment, len(flat))
	known := make(map[int64]bool, len(flat))
	for _, c := range flat {
		known[c.ID] = true
	}

	var roots []models.Comment
	for _, c := range flat {
		if c.ParentID == nil || !known[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}
	byID := func(cs []models.Comment) {
		sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
	}
	byID(roots)

	out := make([]models.Comment, 0, len(flat))
	var walk func(c models.Comment, depth int)
	walk = func(c models.Comment, depth int) {
		c.Depth = depth
		out = append(out, c)
		kids := children[c.ID]
		byID(kids)
		for _, k := range kids {
			walk(k, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return out
}

// Package content stores posts and answers the read paths over them: the
// public listing, a single post, an author's posts, a reader's history and
// subscription feed.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/db"
	"github.com/AdamOzgary/blog/internal/models"
	"github.com/AdamOzgary/blog/internal/taxonomy"
	"github.com/AdamOzgary/blog/internal/validation"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page selects a window of a listing. A zero Limit means DefaultPageSize.
type Page struct {
	Limit  int `json:"limit" validate:"gte=0,lte=200"`
	Offset int `json:"offset" validate:"gte=0"`
}

func (p Page) bounds() (limit, offset int, err error) {
	if err := validation.Struct(p); err != nil {
		return 0, 0, err
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageSize
	}
	return p.Limit, p.Offset, nil
}

type Service struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(conn *sql.DB, logger *zap.SugaredLogger) *Service {
	return &Service{db: conn, logger: logger, now: time.Now}
}

type NewPost struct {
	AuthorID   int64    `json:"-" validate:"gt=0"`
	CategoryID int64    `json:"category_id" validate:"required"`
	Title      string   `json:"title" validate:"required,max=200"`
	Preview    string   `json:"preview" validate:"max=1000"`
	Content    string   `json:"content" validate:"required"`
	Tags       []string `json:"tags"`
}

// CreatePost stores a post with its tags in one transaction.
func (s *Service) CreatePost(ctx context.Context, in NewPost) (models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Preview = strings.TrimSpace(in.Preview)
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return models.Post{}, err
	}

	var post models.Post
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := db.Exists(ctx, tx, `SELECT 1 FROM categories WHERE id = ?`, in.CategoryID)
		if err != nil {
			return fmt.Errorf("check category %d: %w", in.CategoryID, err)
		}
		if !ok {
			return apperr.ErrCategoryNotFound.AsKind(apperr.KindValidation).
				WithMessage(fmt.Sprintf("category %d does not exist", in.CategoryID))
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO posts(author_id, category_id, title, preview, content, created_at)
			VALUES(?,?,?,?,?,?)`, in.AuthorID, in.CategoryID, in.Title, in.Preview, in.Content, s.now().UTC())
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("post id: %w", err)
		}

		tags, err := taxonomy.ResolveTags(ctx, tx, in.Tags)
		if err != nil {
			return err
		}
		if err := taxonomy.AttachTags(ctx, tx, id, tags); err != nil {
			return err
		}

		post, err = getPost(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Post{}, err
	}

	s.logger.Infow("post created", "post_id", post.ID, "author_id", post.AuthorID, "tags", post.Tags)
	return post, nil
}

const postSelect = `SELECT p.id, p.author_id, u.username, p.category_id, c.name, p.title, p.preview, p.content,
	p.view_count, p.like_count, p.dislike_count, p.comment_count, p.created_at,
	COALESCE((SELECT group_concat(t.name, char(31)) FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id), '')
	FROM posts p
	JOIN users u ON u.id = p.author_id
	JOIN categories c ON c.id = p.category_id`

func scanPost(row interface{ Scan(...any) error }) (models.Post, error) {
	var (
		p    models.Post
		tags string
	)
	err := row.Scan(&p.ID, &p.AuthorID, &p.Author, &p.CategoryID, &p.CategoryName, &p.Title, &p.Preview, &p.Content,
		&p.Views, &p.Likes, &p.Dislikes, &p.Comments, &p.CreatedAt, &tags)
	if err != nil {
		return models.Post{}, err
	}
	p.Tags = splitTags(tags)
	return p, nil
}

// tagSep joins tag names in postSelect. Tag names never contain it.
const tagSep = "\x1f"

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	tags := strings.Split(s, tagSep)
	sort.Strings(tags)
	return tags
}

func getPost(ctx context.Context, q db.Querier, id int64) (models.Post, error) {
	p, err := scanPost(q.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, apperr.ErrPostNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("load post %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) GetPost(ctx context.Context, id int64) (models.Post, error) {
	return getPost(ctx, s.db, id)
}

// ListPosts returns a page of post summaries, newest first. filter is a
// category id; when it is empty or not an integer every post is listed.
func (s *Service) ListPosts(ctx context.Context, filter string, page Page) ([]models.Post, error) {
	categoryID, err := strconv.ParseInt(strings.TrimSpace(filter), 10, 64)
	if err != nil {
		return s.list(ctx, page, ``)
	}
	return s.list(ctx, page, ` WHERE p.category_id = ?`, categoryID)
}

func (s *Service) PostsByAuthor(ctx context.Context, authorID int64, page Page) ([]models.Post, error) {
	return s.list(ctx, page, ` WHERE p.author_id = ?`, authorID)
}

// Feed lists posts written by the authors userID subscribes to.
func (s *Service) Feed(ctx context.Context, userID int64, page Page) ([]models.Post, error) {
	return s.list(ctx, page, ` WHERE p.author_id IN (SELECT followee_id FROM subscriptions WHERE follower_id = ?)`, userID)
}

func (s *Service) list(ctx context.Context, page Page, where string, args ...any) ([]models.Post, error) {
	limit, offset, err := page.bounds()
	if err != nil {
		return nil, err
	}
	q := postSelect + where + ` ORDER BY p.id DESC LIMIT ? OFFSET ?`
	return s.query(ctx, q, append(args, limit, offset)...)
}

// History lists the posts userID has opened, most recent view first.
func (s *Service) History(ctx context.Context, userID int64, page Page) ([]models.Post, error) {
	limit, offset, err := page.bounds()
	if err != nil {
		return nil, err
	}
	q := postSelect + ` JOIN post_views v ON v.post_id = p.id AND v.user_id = ?
		ORDER BY v.viewed_at DESC, p.id DESC LIMIT ? OFFSET ?`
	return s.query(ctx, q, userID, limit, offset)
}

func (s *Service) query(ctx context.Context, q string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		// Listings carry the preview only.
		p.Content = ""
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// DeletePost removes a post. Comments, reactions, views and tag links go with
// it through the foreign keys.
func (s *Service) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if n == 0 {
		return apperr.ErrPostNotFound
	}
	s.logger.Infow("post deleted", "post_id", id)
	return nil
}

func (s *Service) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

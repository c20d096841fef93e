// Package taxonomy manages post classification: flat named categories and
// free-form tags.
package taxonomy

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/db"
	"github.com/AdamOzgary/blog/internal/models"
)

const maxNameLen = 64

type Service struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

func NewService(conn *sql.DB, logger *zap.SugaredLogger) *Service {
	return &Service{db: conn, logger: logger}
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Service) CreateCategory(ctx context.Context, name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, apperr.Validation("category name is required")
	}
	if len(name) > maxNameLen {
		return models.Category{}, apperr.Validation(fmt.Sprintf("category name must be at most %d characters", maxNameLen))
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO categories(name) VALUES(?)`, name)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Category{}, apperr.ErrDuplicateName.WithMessage(fmt.Sprintf("category %q already exists", name))
		}
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Category{}, fmt.Errorf("category id: %w", err)
	}

	s.logger.Infow("category created", "category_id", id, "name", name)
	return models.Category{ID: id, Name: name}, nil
}

// DeleteCategories removes every category in ids. Posts filed under them move
// to the default category. The batch is all or nothing.
func (s *Service) DeleteCategories(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return apperr.Validation("no categories given")
	}
	var moved int64
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			if id == models.DefaultCategoryID {
				return apperr.ErrDefaultCategory
			}
			res, err := tx.ExecContext(ctx, `UPDATE posts SET category_id = ? WHERE category_id = ?`, models.DefaultCategoryID, id)
			if err != nil {
				return fmt.Errorf("reassign posts of category %d: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reassign posts of category %d: %w", id, err)
			}
			moved += n

			res, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("delete category %d: %w", id, err)
			}
			n, err = res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete category %d: %w", id, err)
			}
			if n == 0 {
				return apperr.ErrCategoryNotFound.WithMessage(fmt.Sprintf("category %d not found", id))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infow("categories deleted", "ids", ids, "posts_reassigned", moved)
	return nil
}

func (s *Service) CategoryExists(ctx context.Context, q db.Querier, id int64) (bool, error) {
	return db.Exists(ctx, q, `SELECT 1 FROM categories WHERE id = ?`, id)
}

// NormalizeTags lower-cases and trims tag names, splits entries on commas,
// whitespace and control characters, drops a leading '#' and removes
// duplicates keeping the first occurrence.
func NormalizeTags(names []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, raw := range names {
		for _, f := range strings.FieldsFunc(raw, isTagSeparator) {
			name := strings.ToLower(strings.TrimLeft(f, "#"))
			if name == "" || len(name) > maxNameLen {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func isTagSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r) || unicode.IsControl(r)
}

func (s *Service) ResolveOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		tags, err = ResolveTags(ctx, tx, names)
		return err
	})
	return tags, err
}

// ResolveTags returns the tags named in names, creating the missing ones,
// through q so callers can stay inside their own transaction.
func ResolveTags(ctx context.Context, q db.Querier, names []string) ([]models.Tag, error) {
	norm := NormalizeTags(names)
	tags := make([]models.Tag, 0, len(norm))
	for _, name := range norm {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO tags(name) VALUES(?)`, name); err != nil {
			return nil, fmt.Errorf("insert tag %q: %w", name, err)
		}
		t := models.Tag{Name: name}
		if err := q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&t.ID); err != nil {
			return nil, fmt.Errorf("load tag %q: %w", name, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// AttachTags links tags to postID. Links that already exist are left alone.
func AttachTags(ctx context.Context, q db.Querier, postID int64, tags []models.Tag) error {
	for _, t := range tags {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO post_tags(post_id, tag_id) VALUES(?,?)`, postID, t.ID); err != nil {
			return fmt.Errorf("attach tag %q to post %d: %w", t.Name, postID, err)
		}
	}
	return nil
}

func (s *Service) TagsForPost(ctx context.Context, postID int64) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.name FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ? ORDER BY t.name`, postID)
	if err != nil {
		return nil, fmt.Errorf("load tags of post %d: %w", postID, err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/db/dbtest"
	"github.com/AdamOzgary/blog/internal/models"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"case and dedupe", []string{"Go", "go", "GO "}, []string{"go"}},
		{"whitespace split", []string{"intro first", "  first\tsecond"}, []string{"intro", "first", "second"}},
		{"hash prefix", []string{"#news", "news", "#"}, []string{"news"}},
		{"comma split", []string{"c++,go", "go, rust"}, []string{"c++", "go", "rust"}},
		{"control characters", []string{"a\x1fb"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTags(tt.in))
		})
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	s := NewService(dbtest.Open(t), zap.NewNop().Sugar())

	general, err := s.CreateCategory(ctx, "General")
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, "Art")
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, "General")
	assert.ErrorIs(t, err, apperr.ErrDuplicateName)

	_, err = s.CreateCategory(ctx, "   ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Art", "General", "Uncategorized"}, names)

	ok, err := s.CategoryExists(ctx, s.db, general.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteCategoriesReassignsPosts(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	s := NewService(conn, zap.NewNop().Sugar())

	author := dbtest.InsertUser(t, conn, "alice")
	news := dbtest.InsertCategory(t, conn, "News")
	_, err := conn.Exec(`INSERT INTO posts(author_id, category_id, title, content, created_at)
		VALUES(?, ?, 'hello', 'body', CURRENT_TIMESTAMP)`, author, news)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategories(ctx, news))

	var cat int64
	require.NoError(t, conn.QueryRow(`SELECT category_id FROM posts`).Scan(&cat))
	assert.Equal(t, models.DefaultCategoryID, cat)

	assert.ErrorIs(t, s.DeleteCategories(ctx, news), apperr.ErrCategoryNotFound)
	assert.ErrorIs(t, s.DeleteCategories(ctx, models.DefaultCategoryID), apperr.ErrDefaultCategory)
}

func TestDeleteCategoriesCountsReassignedPosts(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewService(conn, zap.New(core).Sugar())

	author := dbtest.InsertUser(t, conn, "alice")
	news := dbtest.InsertCategory(t, conn, "News")
	art := dbtest.InsertCategory(t, conn, "Art")
	empty := dbtest.InsertCategory(t, conn, "Empty")
	for _, cat := range []int64{news, news, art} {
		_, err := conn.Exec(`INSERT INTO posts(author_id, category_id, title, content, created_at)
			VALUES(?, ?, 'hello', 'body', CURRENT_TIMESTAMP)`, author, cat)
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteCategories(ctx, news, art, empty))

	entries := logs.FilterMessage("categories deleted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["posts_reassigned"])

	var moved int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM posts WHERE category_id = ?`, models.DefaultCategoryID).Scan(&moved))
	assert.Equal(t, 3, moved)
}

func TestDeleteCategoriesIsAtomic(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	s := NewService(conn, zap.NewNop().Sugar())
	art := dbtest.InsertCategory(t, conn, "Art")

	err := s.DeleteCategories(ctx, art, 4242)
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)

	ok, err := s.CategoryExists(ctx, conn, art)
	require.NoError(t, err)
	assert.True(t, ok, "failed batch must roll back")
}

func TestResolveOrCreateTags(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	s := NewService(conn, zap.NewNop().Sugar())

	first, err := s.ResolveOrCreateTags(ctx, []string{"Intro", "first"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	again, err := s.ResolveOrCreateTags(ctx, []string{"intro", "#INTRO"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0].ID, again[0].ID)

	author := dbtest.InsertUser(t, conn, "alice")
	res, err := conn.Exec(`INSERT INTO posts(author_id, category_id, title, content, created_at)
		VALUES(?, 1, 'hello', 'body', CURRENT_TIMESTAMP)`, author)
	require.NoError(t, err)
	postID, _ := res.LastInsertId()

	require.NoError(t, AttachTags(ctx, conn, postID, first))
	require.NoError(t, AttachTags(ctx, conn, postID, again), "attaching the same tag twice is a no-op")

	tags, err := s.TagsForPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, []models.Tag{{ID: first[1].ID, Name: "first"}, {ID: first[0].ID, Name: "intro"}}, tags)
}

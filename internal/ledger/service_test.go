package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/db/dbtest"
	"github.com/AdamOzgary/blog/internal/models"
)

type fixture struct {
	conn   *sql.DB
	svc    *Service
	author int64
	reader int64
	post   int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := fixture{
		conn:   conn,
		svc:    NewService(conn, zap.NewNop().Sugar()),
		author: dbtest.InsertUser(t, conn, "alice"),
		reader: dbtest.InsertUser(t, conn, "bob"),
	}
	f.post = f.insertPost(t)
	return f
}

func (f fixture) insertPost(t *testing.T) int64 {
	t.Helper()
	res, err := f.conn.Exec(`INSERT INTO posts(author_id, category_id, title, content, created_at)
		VALUES(?, 1, 'hello', 'body', CURRENT_TIMESTAMP)`, f.author)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func (f fixture) counters(t *testing.T, postID int64) models.Counters {
	t.Helper()
	c, err := f.svc.Counters(context.Background(), postID)
	require.NoError(t, err)
	return c
}

func TestTransition(t *testing.T) {
	none, like, dislike := models.ReactionNone, models.ReactionLike, models.ReactionDislike
	tests := []struct {
		from, to models.Reaction
		want     delta
	}{
		{none, none, delta{}},
		{none, like, delta{likes: 1}},
		{none, dislike, delta{dislikes: 1}},
		{like, none, delta{likes: -1}},
		{like, like, delta{}},
		{like, dislike, delta{likes: -1, dislikes: 1}},
		{dislike, none, delta{dislikes: -1}},
		{dislike, like, delta{likes: 1, dislikes: -1}},
		{dislike, dislike, delta{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, transition(tt.from, tt.to))
		})
	}
}

func TestRecordViewCountsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	counted, err := f.svc.RecordView(ctx, f.reader, f.post)
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = f.svc.RecordView(ctx, f.reader, f.post)
	require.NoError(t, err)
	assert.False(t, counted)

	assert.Equal(t, 1, f.counters(t, f.post).Views)

	_, err = f.svc.RecordView(ctx, f.reader, 9999)
	assert.ErrorIs(t, err, apperr.ErrPostNotFound)
}

func TestRecordViewRefreshesViewedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.insertPost(t)

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	order := func() []int64 {
		rows, err := f.conn.Query(`SELECT post_id FROM post_views WHERE user_id = ? ORDER BY viewed_at DESC`, f.reader)
		require.NoError(t, err)
		defer rows.Close()
		var out []int64
		for rows.Next() {
			var id int64
			require.NoError(t, rows.Scan(&id))
			out = append(out, id)
		}
		require.NoError(t, rows.Err())
		return out
	}

	for _, id := range []int64{f.post, other} {
		counted, err := f.svc.RecordView(ctx, f.reader, id)
		require.NoError(t, err)
		assert.True(t, counted)
		now = now.Add(time.Minute)
	}
	assert.Equal(t, []int64{other, f.post}, order())

	counted, err := f.svc.RecordView(ctx, f.reader, f.post)
	require.NoError(t, err)
	assert.False(t, counted)
	assert.Equal(t, []int64{f.post, other}, order())
	assert.Equal(t, 1, f.counters(t, f.post).Views)
}

func TestSetReaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.SetReaction(ctx, f.reader, f.post, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Likes)

	t.Run("same reaction twice is a no-op", func(t *testing.T) {
		again, err := f.svc.SetReaction(ctx, f.reader, f.post, models.ReactionLike)
		require.NoError(t, err)
		assert.Equal(t, c, again)
	})

	t.Run("like dislike none restores counters", func(t *testing.T) {
		before := f.counters(t, f.post)
		_, err := f.svc.SetReaction(ctx, f.author, f.post, models.ReactionLike)
		require.NoError(t, err)
		mid, err := f.svc.SetReaction(ctx, f.author, f.post, models.ReactionDislike)
		require.NoError(t, err)
		assert.Equal(t, before.Likes, mid.Likes)
		assert.Equal(t, before.Dislikes+1, mid.Dislikes)
		after, err := f.svc.SetReaction(ctx, f.author, f.post, models.ReactionNone)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		r, err := f.svc.ReactionOf(ctx, f.author, f.post)
		require.NoError(t, err)
		assert.Equal(t, models.ReactionNone, r)
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := f.svc.SetReaction(ctx, f.reader, 9999, models.ReactionLike)
		assert.ErrorIs(t, err, apperr.ErrPostNotFound)
	})

	t.Run("invalid reaction", func(t *testing.T) {
		_, err := f.svc.SetReaction(ctx, f.reader, f.post, models.Reaction(7))
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestCountersMatchLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users := []int64{f.author, f.reader}
	for i := 0; i < 3; i++ {
		users = append(users, dbtest.InsertUser(t, f.conn, fmt.Sprintf("user%d", i)))
	}
	steps := []struct {
		user int
		r    models.Reaction
	}{
		{0, models.ReactionLike}, {1, models.ReactionDislike}, {2, models.ReactionLike},
		{0, models.ReactionDislike}, {3, models.ReactionLike}, {2, models.ReactionNone},
		{4, models.ReactionDislike}, {1, models.ReactionLike}, {3, models.ReactionLike},
	}
	for _, s := range steps {
		_, err := f.svc.SetReaction(ctx, users[s.user], f.post, s.r)
		require.NoError(t, err)
	}

	var likes, dislikes int
	require.NoError(t, f.conn.QueryRow(`SELECT
		COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0)
		FROM post_reactions WHERE post_id = ?`, f.post).Scan(&likes, &dislikes))

	c := f.counters(t, f.post)
	assert.Equal(t, likes, c.Likes)
	assert.Equal(t, dislikes, c.Dislikes)
	assert.Equal(t, 2, c.Likes)
	assert.Equal(t, 2, c.Dislikes)
}

func TestConcurrentInteractions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 30
	users := make([]int64, workers)
	for i := range users {
		users[i] = dbtest.InsertUser(t, f.conn, fmt.Sprintf("racer%d", i))
	}
	sequence := []models.Reaction{models.ReactionLike, models.ReactionDislike, models.ReactionNone, models.ReactionLike}

	var wg sync.WaitGroup
	errs := make(chan error, workers*(len(sequence)+2))
	for i, uid := range users {
		wg.Add(1)
		go func(i int, uid int64) {
			defer wg.Done()
			for step, r := range sequence[i%len(sequence):] {
				if _, err := f.svc.SetReaction(ctx, uid, f.post, r); err != nil {
					errs <- err
				}
				if step == 0 {
					for n := 0; n < 2; n++ {
						if _, err := f.svc.RecordView(ctx, uid, f.post); err != nil {
							errs <- err
						}
					}
				}
			}
		}(i, uid)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var likes, dislikes, views int
	require.NoError(t, f.conn.QueryRow(`SELECT
		COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0)
		FROM post_reactions WHERE post_id = ?`, f.post).Scan(&likes, &dislikes))
	require.NoError(t, f.conn.QueryRow(`SELECT COUNT(*) FROM post_views WHERE post_id = ?`, f.post).Scan(&views))

	c := f.counters(t, f.post)
	assert.Equal(t, likes, c.Likes)
	assert.Equal(t, dislikes, c.Dislikes)
	assert.Equal(t, views, c.Views)
	assert.Equal(t, workers, c.Views)
	// Every sequence ends on a like.
	assert.Equal(t, workers, c.Likes)
	assert.Zero(t, c.Dislikes)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.svc.AddComment(ctx, NewComment{PostID: f.post, AuthorID: f.reader, Text: "  nice  "})
	require.NoError(t, err)
	assert.Equal(t, "nice", root.Text)
	assert.Equal(t, "bob", root.Author)
	assert.Nil(t, root.ParentID)

	reply, err := f.svc.AddComment(ctx, NewComment{PostID: f.post, AuthorID: f.author, Text: "thanks", ParentID: &root.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)
	assert.Equal(t, 2, f.counters(t, f.post).Comments)

	t.Run("parent on another post", func(t *testing.T) {
		other := f.insertPost(t)
		_, err := f.svc.AddComment(ctx, NewComment{PostID: other, AuthorID: f.reader, Text: "x", ParentID: &root.ID})
		assert.ErrorIs(t, err, apperr.ErrParentBelongsToDifferentPost)
		assert.Zero(t, f.counters(t, other).Comments)
	})

	t.Run("missing parent", func(t *testing.T) {
		missing := int64(9999)
		_, err := f.svc.AddComment(ctx, NewComment{PostID: f.post, AuthorID: f.reader, Text: "x", ParentID: &missing})
		assert.ErrorIs(t, err, apperr.ErrParentNotFound)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := f.svc.AddComment(ctx, NewComment{PostID: 9999, AuthorID: f.reader, Text: "x"})
		assert.ErrorIs(t, err, apperr.ErrPostNotFound)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := f.svc.AddComment(ctx, NewComment{PostID: f.post, AuthorID: f.reader, Text: " \n "})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	assert.Equal(t, 2, f.counters(t, f.post).Comments)
}

func TestCommentReactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.AddComment(ctx, NewComment{PostID: f.post, AuthorID: f.author, Text: "first"})
	require.NoError(t, err)

	likes, err := f.svc.LikeComment(ctx, f.reader, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	likes, err = f.svc.LikeComment(ctx, f.reader, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes, "liking twice counts once")

	cc, err := f.svc.SetCommentReaction(ctx, f.reader, c.ID, models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, models.CommentCounters{Likes: 0, Dislikes: 1}, cc)

	_, err = f.svc.LikeComment(ctx, f.reader, 9999)
	assert.ErrorIs(t, err, apperr.ErrCommentNotFound)
}

func TestListCommentsThreadOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	add := func(text string, parent *int64) int64 {
		c, err := f.svc.AddComment(ctx, NewComment{PostID: f.post, AuthorID: f.reader, Text: text, ParentID: parent})
		require.NoError(t, err)
		return c.ID
	}
	a := add("a", nil)
	b := add("b", nil)
	add("a.1", &a)
	b1 := add("b.1", &b)
	add("a.2", &a)
	add("b.1.1", &b1)

	got, err := f.svc.ListCommentsForPost(ctx, f.post)
	require.NoError(t, err)

	var texts []string
	var depths []int
	for _, c := range got {
		texts = append(texts, c.Text)
		depths = append(depths, c.Depth)
	}
	assert.Equal(t, []string{"a", "a.1", "a.2", "b", "b.1", "b.1.1"}, texts)
	assert.Equal(t, []int{0, 1, 1, 0, 1, 2}, depths)

	_, err = f.svc.ListCommentsForPost(ctx, 9999)
	assert.ErrorIs(t, err, apperr.ErrPostNotFound)
}

func TestInteractionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	counted, err := f.svc.RecordView(ctx, f.reader, f.post)
	require.NoError(t, err)
	require.True(t, counted)
	assert.Equal(t, 1, f.counters(t, f.post).Views)

	c, err := f.svc.SetReaction(ctx, f.reader, f.post, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Likes)

	_, err = f.svc.AddComment(ctx, NewComment{PostID: f.post, AuthorID: f.reader, Text: "nice"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.counters(t, f.post).Comments)

	c, err = f.svc.SetReaction(ctx, f.reader, f.post, models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, models.Counters{Views: 1, Likes: 0, Dislikes: 1, Comments: 1}, c)
}

package models

import (
	"strings"
	"time"
)

type User struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Lastname      string        `json:"lastname,omitempty"`
	Username      string        `json:"username"`
	Email         string        `json:"email"`
	PasswordHash  string        `json:"-"`
	IsAdmin       bool          `json:"is_admin"`
	Description   string        `json:"description,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	PostCount     int           `json:"post_count"`
	Subscriptions []UserSummary `json:"subscriptions,omitempty"`
}

type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DefaultCategoryID is the seeded "Uncategorized" category that receives the
// posts of deleted categories.
const DefaultCategoryID int64 = 1

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Counters struct {
	Views    int `json:"views"`
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
	Comments int `json:"comments"`
}

type Post struct {
	ID           int64     `json:"id"`
	AuthorID     int64     `json:"author_id"`
	Author       string    `json:"author"`
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	Content      string    `json:"content,omitempty"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	Counters
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	Author    string    `json:"author"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentCounters struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

type BlacklistEntry struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	Period    time.Duration `json:"period"`
	CreatedAt time.Time     `json:"created_at"`
}

// ExpiresAt is the instant the suspension stops applying.
func (b BlacklistEntry) ExpiresAt() time.Time { return b.CreatedAt.Add(b.Period) }

func (b BlacklistEntry) ActiveAt(t time.Time) bool { return t.Before(b.ExpiresAt()) }

// Reaction is a user's state on a post or comment. The stored value is the
// integer itself; ReactionNone is never stored.
type Reaction int8

const (
	ReactionDislike Reaction = -1
	ReactionNone    Reaction = 0
	ReactionLike    Reaction = 1
)

func (r Reaction) String() string {
	switch r {
	case ReactionLike:
		return "like"
	case ReactionDislike:
		return "dislike"
	default:
		return "none"
	}
}

// ParseReaction accepts the reaction names and their integer values.
func ParseReaction(s string) (Reaction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "1":
		return ReactionLike, true
	case "dislike", "-1":
		return ReactionDislike, true
	case "none", "0", "":
		return ReactionNone, true
	}
	return ReactionNone, false
}

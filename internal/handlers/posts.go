package handlers

import (
	"net/http"
	"strconv"

	"github.com/AdamOzgary/blog/internal/apperr"
	"github.com/AdamOzgary/blog/internal/auth"
	"github.com/AdamOzgary/blog/internal/content"
	"github.com/AdamOzgary/blog/internal/ledger"
	"github.com/AdamOzgary/blog/internal/models"
)

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.taxonomy.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.taxonomy.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "categoryID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.taxonomy.DeleteCategories(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pageOf reads the limit and offset query parameters. Range checks happen in
// the content service.
func pageOf(r *http.Request) (content.Page, error) {
	var page content.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return content.Page{}, apperr.Validation(name + " must be an integer")
		}
		*dst = n
	}
	return page, nil
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	posts, err := h.content.ListPosts(r.Context(), r.URL.Query().Get("category"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req content.NewPost
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.AuthorID = actor(r).UserID
	p, err := h.content.CreatePost(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type postDetail struct {
	models.Post
	IsLiked    bool             `json:"is_liked"`
	IsDisliked bool             `json:"is_disliked"`
	Comments   []models.Comment `json:"comments"`
}

// GetPost returns the full post with its comment thread. Signed-in readers
// have the view recorded and get their own reaction state.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := r.Context()

	a, signedIn := auth.ActorFrom(ctx)
	if signedIn {
		counted, err := h.ledger.RecordView(ctx, a.UserID, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if counted {
			h.metrics.RecordPostView(ctx)
		}
	}

	p, err := h.content.GetPost(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	comments, err := h.ledger.ListCommentsForPost(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := postDetail{Post: p, Comments: comments}

	if signedIn {
		reaction, err := h.ledger.ReactionOf(ctx, a.UserID, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		out.IsLiked = reaction == models.ReactionLike
		out.IsDisliked = reaction == models.ReactionDislike
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.content.DeletePost(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	posts, err := h.content.PostsByAuthor(r.Context(), actor(r).UserID, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	posts, err := h.content.History(r.Context(), actor(r).UserID, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	posts, err := h.content.Feed(r.Context(), actor(r).UserID, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type commentRequest struct {
	Text     string `json:"text"`
	ParentID *int64 `json:"parent_id"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req commentRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.addComment(w, r, postID, req.Text, req.ParentID)
}

func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	parentID, err := pathID(r, "commentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req commentRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.addComment(w, r, postID, req.Text, &parentID)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request, postID int64, text string, parentID *int64) {
	c, err := h.ledger.AddComment(r.Context(), ledger.NewComment{
		PostID:   postID,
		AuthorID: actor(r).UserID,
		Text:     text,
		ParentID: parentID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordComment(r.Context(), parentID != nil)
	writeJSON(w, http.StatusCreated, c)
}

type reactionRequest struct {
	Reaction string `json:"reaction"`
}

func parseReaction(w http.ResponseWriter, r *http.Request) (models.Reaction, error) {
	var req reactionRequest
	if err := decode(w, r, &req); err != nil {
		return models.ReactionNone, err
	}
	reaction, ok := models.ParseReaction(req.Reaction)
	if !ok {
		return models.ReactionNone, apperr.Validation("reaction must be like, dislike or none")
	}
	return reaction, nil
}

type postReactionResponse struct {
	Reaction string `json:"reaction"`
	models.Counters
}

func (h *Handler) ReactToPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reaction, err := parseReaction(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.ledger.SetReaction(r.Context(), actor(r).UserID, postID, reaction)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordReaction(r.Context(), "post", reaction.String())
	writeJSON(w, http.StatusOK, postReactionResponse{Reaction: reaction.String(), Counters: c})
}

type commentReactionResponse struct {
	Reaction string `json:"reaction"`
	models.CommentCounters
}

func (h *Handler) ReactToComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "commentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reaction, err := parseReaction(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.ledger.SetCommentReaction(r.Context(), actor(r).UserID, commentID, reaction)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordReaction(r.Context(), "comment", reaction.String())
	writeJSON(w, http.StatusOK, commentReactionResponse{Reaction: reaction.String(), CommentCounters: c})
}

type likeResponse struct {
	Likes int `json:"likes"`
}

func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "commentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	likes, err := h.ledger.LikeComment(r.Context(), actor(r).UserID, commentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordReaction(r.Context(), "comment", models.ReactionLike.String())
	writeJSON(w, http.StatusOK, likeResponse{Likes: likes})
}

package ledger

import "github.com/AdamOzgary/blog/internal/models"

// delta is how the like and dislike counters move when a user's reaction
// goes from one state to another.
type delta struct {
	likes    int
	dislikes int
}

func (d delta) zero() bool { return d.likes == 0 && d.dislikes == 0 }

func transition(from, to models.Reaction) delta {
	var d delta
	switch from {
	case models.ReactionLike:
		d.likes--
	case models.ReactionDislike:
		d.dislikes--
	}
	switch to {
	case models.ReactionLike:
		d.likes++
	case models.ReactionDislike:
		d.dislikes++
	}
	return d
}

func validReaction(r models.Reaction) bool {
	switch r {
	case models.ReactionNone, models.ReactionLike, models.ReactionDislike:
		return true
	}
	return false
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseReaction(t *testing.T) {
	tests := []struct {
		in   string
		want Reaction
		ok   bool
	}{
		{"like", ReactionLike, true},
		{" LIKE ", ReactionLike, true},
		{"1", ReactionLike, true},
		{"dislike", ReactionDislike, true},
		{"-1", ReactionDislike, true},
		{"0", ReactionNone, true},
		{"none", ReactionNone, true},
		{"", ReactionNone, true},
		{"love", ReactionNone, false},
		{"2", ReactionNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseReaction(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseReactionMatchesStoredValue(t *testing.T) {
	for _, r := range []Reaction{ReactionDislike, ReactionNone, ReactionLike} {
		got, ok := ParseReaction(r.String())
		assert.True(t, ok)
		assert.Equal(t, r, got)
	}
	for want, in := range map[Reaction]string{ReactionDislike: "-1", ReactionNone: "0", ReactionLike: "1"} {
		got, _ := ParseReaction(in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestBlacklistEntryActiveAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := BlacklistEntry{Period: time.Hour, CreatedAt: start}

	assert.Equal(t, start.Add(time.Hour), b.ExpiresAt())
	assert.True(t, b.ActiveAt(start))
	assert.True(t, b.ActiveAt(start.Add(59*time.Minute)))
	assert.False(t, b.ActiveAt(start.Add(time.Hour)))
}

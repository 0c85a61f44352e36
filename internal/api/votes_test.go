package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTally(t *testing.T) {
	tests := []struct {
		name  string
		votes []Vote
		want  int
	}{
		{name: "no votes", votes: nil, want: 0},
		{name: "only upvotes", votes: []Vote{{"a", Upvote}, {"b", Upvote}}, want: 2},
		{name: "mixed", votes: []Vote{{"a", Upvote}, {"b", Downvote}, {"c", Downvote}}, want: -1},
		{name: "unknown types ignored", votes: []Vote{{"a", Upvote}, {"b", "sideways"}}, want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Tally(tc.votes))
		})
	}
}

func TestApplyVoteReplacesPriorVote(t *testing.T) {
	votes := []Vote{{"a", Upvote}, {"b", Upvote}}

	updated := ApplyVote(votes, "a", Downvote)

	assert.Len(t, updated, 2)
	assert.Equal(t, 0, Tally(updated))
	dir, ok := VoteOf(updated, "a")
	assert.True(t, ok)
	assert.Equal(t, Downvote, dir)

	// The original slice is untouched.
	assert.Equal(t, Upvote, votes[0].Type)
}

func TestApplyVoteRepeatedSameDirection(t *testing.T) {
	votes := ApplyVote(nil, "a", Upvote)
	votes = ApplyVote(votes, "a", Upvote)

	assert.Len(t, votes, 1)
	assert.Equal(t, 1, Tally(votes))
}

func TestVoteOfMissing(t *testing.T) {
	_, ok := VoteOf([]Vote{{"a", Upvote}}, "z")
	assert.False(t, ok)
}

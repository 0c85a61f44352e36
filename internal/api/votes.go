package api

// Tally is the displayed score of a post: upvotes minus downvotes, computed
// from the full vote list every time.
func Tally(votes []Vote) int {
	score := 0
	for _, v := range votes {
		switch v.Type {
		case Upvote:
			score++
		case Downvote:
			score--
		}
	}
	return score
}

// ApplyVote returns a new vote list with voterID's vote set to direction,
// replacing any earlier vote by the same voter. The input is not modified.
func ApplyVote(votes []Vote, voterID string, direction VoteDirection) []Vote {
	out := make([]Vote, 0, len(votes)+1)
	for _, v := range votes {
		if v.UserID != voterID {
			out = append(out, v)
		}
	}
	return append(out, Vote{UserID: voterID, Type: direction})
}

// VoteOf returns voterID's current vote, if any.
func VoteOf(votes []Vote, voterID string) (VoteDirection, bool) {
	for _, v := range votes {
		if v.UserID == voterID {
			return v.Type, true
		}
	}
	return "", false
}

package domain

// Clue is one step of a hunt. The hint is revealed at most once per step and
// costs points when used.
type Clue struct {
	Step int    `json:"step"`
	Text string `json:"text"`
	Hint string `json:"-"`
}

// DefaultClues returns the built-in clue catalog, indexed from step 1.
func DefaultClues() []Clue {
	return []Clue{
		{Step: 1, Text: "Find the post from your friend that starts with 'Just launched my new...'", Hint: "This post was made by someone whose username starts with 'crypto'"},
		{Step: 2, Text: "Look for a post containing the hashtag #MonadTestnet", Hint: "This post also mentions 'blockchain performance'"},
		{Step: 3, Text: "Look for a post with exactly 3 emoji reactions", Hint: "The post has a 🔥 reaction"},
		{Step: 4, Text: "Look for a post mentioning 'web3 gaming'", Hint: "The post includes a screenshot of a game"},
		{Step: 5, Text: "Find the most recent post from your oldest Warpcast connection", Hint: "Check posts from users who joined Warpcast in 2022"},
	}
}

// ClueText returns the text for a step, or a placeholder if the catalog has no
// entry for it.
func ClueText(clues []Clue, step int) string {
	if step < 1 || step > len(clues) || clues[step-1].Text == "" {
		return "Loading clue..."
	}
	return clues[step-1].Text
}

// HintText returns the hint for a step, or a placeholder if none exists.
func HintText(clues []Clue, step int) string {
	if step < 1 || step > len(clues) || clues[step-1].Hint == "" {
		return "Hint not available"
	}
	return clues[step-1].Hint
}

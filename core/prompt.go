package core

// PromptMessage is one structural element of an assembled prompt, ready to be
// handed to a generator.
type PromptMessage struct {
	Role    string
	Content string
}

// Prompt is the fully assembled input for a generation call. Sources lists
// exactly the retrieved chunks whose text was folded into Messages; no source
// may be reported to a user that is not present here.
type Prompt struct {
	Messages []PromptMessage
	Sources  []Source
}

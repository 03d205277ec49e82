package domain

// AskRequest is the inbound question plus its conversation scope.
type AskRequest struct {
	UserID         string         `json:"user_id"`
	ConversationID string         `json:"conversation_id"`
	Question       string         `json:"question"`
	Filter         map[string]any `json:"filter,omitempty"`
}

// AssembledContext is the generator-facing serialization of the retrieved
// chunks. In hierarchy mode Base and Additional are filled separately and
// Combined carries the two blocks concatenated; otherwise only Combined is
// set.
type AssembledContext struct {
	Combined   string `json:"combined"`
	Base       string `json:"base,omitempty"`
	Additional string `json:"additional,omitempty"`
}

// AnswerEvent is published after a completed pipeline run for the offline
// evaluation tooling.
type AnswerEvent struct {
	UserID         string   `json:"user_id"`
	ConversationID string   `json:"conversation_id"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Verification   string   `json:"verification,omitempty"`
	ChunkIDs       []string `json:"chunk_ids"`
	Retrievers     []string `json:"retrievers,omitempty"`
}

// Answer is the outcome of one full ask pipeline run.
type Answer struct {
	Text         string           `json:"text"`
	Verification string           `json:"verification,omitempty"`
	Queries      QueryBundle      `json:"queries"`
	Sources      []CombinedChunks `json:"sources"`
	Chunks       []Chunk          `json:"chunks"`
}

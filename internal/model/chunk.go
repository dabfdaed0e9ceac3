package model

// Chunk is a bounded slice of a Document's text, the unit stored in the vector index.
type Chunk struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// SearchResult pairs a retrieved chunk with its cosine similarity to the query.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

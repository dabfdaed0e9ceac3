package model

// Document is one unit of loaded text with its source metadata.
// Page is 1-based for paged formats and 0 otherwise.
type Document struct {
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
	Content string `json:"content"`
}

package models

// SourceDocument is a retrieved chunk and its similarity to the query.
type SourceDocument struct {
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Texts returns the chunk texts in retrieval order.
func Texts(docs []SourceDocument) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Text)
	}
	return out
}

// Package semantic is the sole owner of all Qdrant operations. Each project
// gets its own collection named project_<slug>_chunks.
package semantic

// ChunkRecord is one embedded chunk headed for the vector store. ID doubles
// as the chunk row id in Postgres.
type ChunkRecord struct {
	ID          string
	Vector      []float32
	DocumentID  string
	Content     string
	ContentType string
	ChunkIndex  int
	Metadata    map[string]any
}

// ScoredChunk is a similarity hit.
type ScoredChunk struct {
	ID          string
	Score       float32
	DocumentID  string
	Content     string
	ContentType string
	ChunkIndex  int
}

// Package ingest orchestrates document processing: reset, chunk, embed,
// vector upsert, then best-effort knowledge extraction into the project
// graph.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/contextgraph/context-graph/engine/chunk"
	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/extract"
	"github.com/contextgraph/context-graph/engine/graph"
	"github.com/contextgraph/context-graph/engine/semantic"
	"github.com/contextgraph/context-graph/pkg/metrics"
	"github.com/contextgraph/context-graph/pkg/natsutil"
)

// ProjectRef identifies the tenant a document belongs to.
type ProjectRef struct {
	ID        string
	Slug      string
	GraphName string
}

// Result reports a processing run.
type Result struct {
	DocumentID           string `json:"document_id"`
	ChunksCreated        int    `json:"chunks_created"`
	EntitiesExtracted    int    `json:"entities_extracted"`
	RelationshipsCreated int    `json:"relationships_created"`
	DurationMS           int64  `json:"duration_ms"`
}

// ProcessedEvent is published to NATS after a successful run.
type ProcessedEvent struct {
	ProjectID  string `json:"project_id"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Entities   int    `json:"entities"`
}

// ProcessedSubject is the NATS subject for completion events.
const ProcessedSubject = "document.processed"

// Store is the relational slice the pipeline needs.
type Store interface {
	Execute(ctx context.Context, sql string, args ...any) error
	FetchOne(ctx context.Context, sql string, args ...any) (map[string]any, error)
	FetchAll(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// VectorStore writes and clears chunk vectors.
type VectorStore interface {
	UpsertChunks(ctx context.Context, slug string, records []semantic.ChunkRecord) error
	DeleteByDocument(ctx context.Context, slug, documentID string) (int, error)
}

// Embedder produces chunk vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor mines entities and relationships out of chunks.
type Extractor interface {
	Configured() bool
	ExtractFromDocument(ctx context.Context, chunks []string, ct domain.ContentType, contextInfo map[string]string) (extract.DocumentResult, error)
}

// GraphWriter lands extracted knowledge in the project graph.
type GraphWriter interface {
	CreateEntity(ctx context.Context, graphName string, in graph.EntityCreate) (graph.Entity, error)
	CreateRelationship(ctx context.Context, graphName string, in graph.RelationshipCreate) (graph.Relationship, error)
}

// Splitter chunks raw text.
type Splitter interface {
	Split(text string) []chunk.Chunk
}

// Service is the document processing pipeline.
type Service struct {
	db        Store
	vector    VectorStore
	embedder  Embedder
	extractor Extractor
	graph     GraphWriter
	chunker   Splitter
	nc        *nats.Conn
	log       *slog.Logger

	docsProcessed *metrics.Counter
	chunksCreated *metrics.Counter
	duration      *metrics.Histogram
}

// New wires the pipeline. nc may be nil (no events published).
func New(db Store, vector VectorStore, embedder Embedder, extractor Extractor, gw GraphWriter, chunker Splitter, nc *nats.Conn, reg *metrics.Registry, log *slog.Logger) *Service {
	s := &Service{
		db: db, vector: vector, embedder: embedder, extractor: extractor,
		graph: gw, chunker: chunker, nc: nc, log: log,
	}
	if reg != nil {
		s.docsProcessed = reg.Counter("documents_processed_total", "Documents fully processed.")
		s.chunksCreated = reg.Counter("chunks_created_total", "Chunks created across all documents.")
		s.duration = reg.Histogram("ingest_seconds", "Document processing latency.",
			[]float64{0.5, 1, 5, 15, 60, 300})
	}
	return s
}

// ProcessDocument runs the full pipeline for one document. Re-processing is
// idempotent: previous vectors and chunk rows are cleared first. Extraction
// failures degrade to a vector-only ingest; pipeline failures persist an
// error_message on the document and surface the error.
func (s *Service) ProcessDocument(ctx context.Context, project ProjectRef, documentID string) (Result, error) {
	start := time.Now()
	result := Result{DocumentID: documentID}

	res, err := s.process(ctx, project, documentID, &result)
	if err != nil {
		if uerr := s.db.Execute(ctx,
			`UPDATE documents SET processed = false, error_message = $2 WHERE id = $1`,
			documentID, err.Error()); uerr != nil {
			s.log.Warn("persist error_message failed", "document_id", documentID, "error", uerr)
		}
		return result, err
	}
	result = res
	result.DurationMS = time.Since(start).Milliseconds()

	if s.docsProcessed != nil {
		s.docsProcessed.Inc()
		s.chunksCreated.Add(int64(result.ChunksCreated))
		s.duration.Observe(time.Since(start).Seconds())
	}
	if s.nc != nil {
		event := ProcessedEvent{
			ProjectID:  project.ID,
			DocumentID: documentID,
			Chunks:     result.ChunksCreated,
			Entities:   result.EntitiesExtracted,
		}
		if err := natsutil.Publish(ctx, s.nc, ProcessedSubject, event); err != nil {
			s.log.Warn("publish processed event failed", "document_id", documentID, "error", err)
		}
	}
	return result, nil
}

func (s *Service) process(ctx context.Context, project ProjectRef, documentID string, partial *Result) (Result, error) {
	result := Result{DocumentID: documentID}

	doc, err := s.db.FetchOne(ctx,
		`SELECT id, filename, content_type, raw_content, metadata
		   FROM documents WHERE id = $1 AND project_id = $2`,
		documentID, project.ID)
	if err != nil {
		return result, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return result, domain.NotFoundf("document %s not found", documentID)
	}
	rawContent, _ := doc["raw_content"].(string)
	if strings.TrimSpace(rawContent) == "" {
		return result, domain.NewValidationError("raw_content", "", domain.ErrEmptyContent)
	}
	filename, _ := doc["filename"].(string)
	contentType, err := domain.ParseContentType(stringOr(doc["content_type"], "general"))
	if err != nil {
		contentType = domain.ContentGeneral
	}
	metadata := asMap(doc["metadata"])

	// Reset: idempotent re-processing.
	if n, err := s.vector.DeleteByDocument(ctx, project.Slug, documentID); err != nil {
		s.log.Warn("clear old vectors failed", "document_id", documentID, "error", err)
	} else if n > 0 {
		s.log.Info("cleared old vectors", "document_id", documentID, "points", n)
	}
	if err := s.db.Execute(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return result, fmt.Errorf("clear old chunks: %w", err)
	}

	chunks := s.chunker.Split(rawContent)
	if len(chunks) == 0 {
		if err := s.markProcessed(ctx, documentID); err != nil {
			return result, err
		}
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("embed chunks: %w", err)
	}

	records := make([]semantic.ChunkRecord, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()
		records[i] = semantic.ChunkRecord{
			ID:          id,
			Vector:      vectors[i],
			DocumentID:  documentID,
			Content:     c.Content,
			ContentType: string(contentType),
			ChunkIndex:  c.Index,
			Metadata:    metadata,
		}
		metaJSON, _ := json.Marshal(metadata)
		if err := s.db.Execute(ctx,
			`INSERT INTO chunks (id, document_id, content, chunk_index, token_count, vector_point_id, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, documentID, c.Content, c.Index, c.TokenCount, id, metaJSON); err != nil {
			return result, fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}
	if err := s.vector.UpsertChunks(ctx, project.Slug, records); err != nil {
		return result, fmt.Errorf("upsert vectors: %w", err)
	}
	result.ChunksCreated = len(chunks)
	partial.ChunksCreated = len(chunks)

	if err := s.markProcessed(ctx, documentID); err != nil {
		return result, err
	}

	// Extraction is best-effort: the document stays processed either way.
	if s.extractor.Configured() {
		entities, rels := s.extractKnowledge(ctx, project, documentID, filename, texts, contentType)
		result.EntitiesExtracted = entities
		result.RelationshipsCreated = rels
	}
	return result, nil
}

func (s *Service) markProcessed(ctx context.Context, documentID string) error {
	if err := s.db.Execute(ctx,
		`UPDATE documents SET processed = true, processed_at = now(), error_message = NULL WHERE id = $1`,
		documentID); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (s *Service) extractKnowledge(ctx context.Context, project ProjectRef, documentID, filename string, texts []string, ct domain.ContentType) (int, int) {
	docResult, err := s.extractor.ExtractFromDocument(ctx, texts, ct, map[string]string{
		"filename":    filename,
		"document_id": documentID,
	})
	if err != nil {
		s.log.Warn("extraction failed", "document_id", documentID, "error", err)
		return 0, 0
	}

	created := map[string]string{} // temp id -> graph id
	entityCount := 0
	for _, e := range docResult.Entities {
		props := domain.Properties{}
		for k, v := range e.Properties {
			props[k] = v
		}
		props["document_id"] = documentID
		if filename != "" {
			props["source"] = filename
		}
		node, err := s.graph.CreateEntity(ctx, project.GraphName, graph.EntityCreate{
			Name:       e.Name,
			Type:       domain.EntityType(e.Type),
			Properties: props,
		})
		if err != nil {
			s.log.Warn("create extracted entity failed",
				"document_id", documentID, "entity", e.Name, "error", err)
			continue
		}
		created[e.TempID] = node.ID
		entityCount++
	}

	relCount := 0
	for _, r := range docResult.Relationships {
		src, okS := created[r.Source]
		dst, okT := created[r.Target]
		if !okS || !okT {
			continue
		}
		props := domain.Properties(r.Properties)
		if _, err := s.graph.CreateRelationship(ctx, project.GraphName, graph.RelationshipCreate{
			SourceID: src, TargetID: dst,
			Type:       domain.RelationshipType(r.Type),
			Properties: props,
		}); err != nil {
			s.log.Warn("create extracted relationship failed",
				"document_id", documentID, "type", r.Type, "error", err)
			continue
		}
		relCount++
	}
	return entityCount, relCount
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []byte:
		var m map[string]any
		if json.Unmarshal(t, &m) == nil {
			return m
		}
	case string:
		var m map[string]any
		if json.Unmarshal([]byte(t), &m) == nil {
			return m
		}
	}
	return nil
}

// Package document manages document rows inside a project: create, list,
// fetch, delete. Processing itself lives in engine/ingest.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contextgraph/context-graph/engine/domain"
)

// Document is one stored document. RawContent is only populated on Get.
type Document struct {
	ID           string             `json:"id"`
	ProjectID    string             `json:"project_id"`
	Filename     string             `json:"filename"`
	ContentType  domain.ContentType `json:"content_type"`
	SourceURL    string             `json:"source_url,omitempty"`
	RawContent   string             `json:"raw_content,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	Processed    bool               `json:"processed"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	ChunkCount   int                `json:"chunk_count"`
	CreatedAt    time.Time          `json:"created_at"`
}

// CreateIn describes a new document.
type CreateIn struct {
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	SourceURL   string         `json:"source_url,omitempty"`
	RawContent  string         `json:"raw_content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ListFilter narrows List.
type ListFilter struct {
	ContentType string
	Processed   *bool
	Limit       int
	Offset      int
}

// Store is the relational slice the document engine needs.
type Store interface {
	Execute(ctx context.Context, sql string, args ...any) error
	FetchOne(ctx context.Context, sql string, args ...any) (map[string]any, error)
	FetchAll(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// VectorStore clears a document's vectors on delete.
type VectorStore interface {
	DeleteByDocument(ctx context.Context, slug, documentID string) (int, error)
}

// Service manages document rows.
type Service struct {
	db     Store
	vector VectorStore
	log    *slog.Logger
}

// New creates the document service.
func New(db Store, vector VectorStore, log *slog.Logger) *Service {
	return &Service{db: db, vector: vector, log: log}
}

// Create stores a new, unprocessed document.
func (s *Service) Create(ctx context.Context, projectID string, in CreateIn) (*Document, error) {
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, domain.NewValidationError("filename", in.Filename, domain.ErrInvalidContent)
	}
	if strings.TrimSpace(in.RawContent) == "" {
		return nil, domain.ErrEmptyContent
	}
	ct, err := domain.ParseContentType(in.ContentType)
	if err != nil {
		return nil, err
	}

	metaJSON, _ := json.Marshal(metaOrEmpty(in.Metadata))
	row, err := s.db.FetchOne(ctx, `INSERT INTO documents
		(project_id, filename, content_type, source_url, raw_content, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at`,
		projectID, filename, string(ct), in.SourceURL, in.RawContent, metaJSON)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	doc := &Document{
		ProjectID:   projectID,
		Filename:    filename,
		ContentType: ct,
		SourceURL:   in.SourceURL,
		Metadata:    in.Metadata,
	}
	if row != nil {
		doc.ID, _ = row["id"].(string)
		doc.CreatedAt, _ = row["created_at"].(time.Time)
	}
	return doc, nil
}

// List returns documents with chunk counts plus the unpaged total.
func (s *Service) List(ctx context.Context, projectID string, filter ListFilter) ([]Document, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	where := []string{"d.project_id = $1"}
	args := []any{projectID}
	if filter.ContentType != "" {
		args = append(args, filter.ContentType)
		where = append(where, fmt.Sprintf("d.content_type = $%d", len(args)))
	}
	if filter.Processed != nil {
		args = append(args, *filter.Processed)
		where = append(where, fmt.Sprintf("d.processed = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	countRow, err := s.db.FetchOne(ctx,
		fmt.Sprintf(`SELECT count(*) AS total FROM documents d WHERE %s`, cond), args...)
	if err != nil {
		return nil, 0, err
	}
	total := intFrom(countRow["total"])

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.FetchAll(ctx, fmt.Sprintf(`SELECT d.id::text, d.project_id::text,
		d.filename, d.content_type, d.source_url, d.metadata, d.processed,
		d.processed_at, d.error_message, d.created_at,
		(SELECT count(*) FROM chunks c WHERE c.document_id = d.id) AS chunk_count
		FROM documents d WHERE %s
		ORDER BY d.created_at DESC LIMIT $%d OFFSET $%d`,
		cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}

	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, total, nil
}

// Get returns one document including its raw content.
func (s *Service) Get(ctx context.Context, projectID, documentID string) (*Document, error) {
	row, err := s.db.FetchOne(ctx, `SELECT d.id::text, d.project_id::text,
		d.filename, d.content_type, d.source_url, d.raw_content, d.metadata,
		d.processed, d.processed_at, d.error_message, d.created_at,
		(SELECT count(*) FROM chunks c WHERE c.document_id = d.id) AS chunk_count
		FROM documents d WHERE d.id = $1 AND d.project_id = $2`,
		documentID, projectID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.NotFoundf("document %s not found", documentID)
	}
	doc := fromRow(row)
	return &doc, nil
}

// Delete clears the document's vectors then removes the row; chunks cascade.
func (s *Service) Delete(ctx context.Context, projectID, slug, documentID string) error {
	if _, err := s.Get(ctx, projectID, documentID); err != nil {
		return err
	}
	if _, err := s.vector.DeleteByDocument(ctx, slug, documentID); err != nil {
		s.log.Warn("clear vectors on delete failed", "document_id", documentID, "error", err)
	}
	if err := s.db.Execute(ctx,
		`DELETE FROM documents WHERE id = $1 AND project_id = $2`,
		documentID, projectID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func fromRow(row map[string]any) Document {
	doc := Document{}
	doc.ID, _ = row["id"].(string)
	doc.ProjectID, _ = row["project_id"].(string)
	doc.Filename, _ = row["filename"].(string)
	if ct, ok := row["content_type"].(string); ok {
		doc.ContentType = domain.ContentType(ct)
	}
	if u, ok := row["source_url"].(string); ok {
		doc.SourceURL = u
	}
	if rc, ok := row["raw_content"].(string); ok {
		doc.RawContent = rc
	}
	if m, ok := row["metadata"].(map[string]any); ok {
		doc.Metadata = m
	}
	doc.Processed, _ = row["processed"].(bool)
	if ts, ok := row["processed_at"].(time.Time); ok {
		doc.ProcessedAt = &ts
	}
	if msg, ok := row["error_message"].(string); ok {
		doc.ErrorMessage = msg
	}
	doc.ChunkCount = intFrom(row["chunk_count"])
	doc.CreatedAt, _ = row["created_at"].(time.Time)
	return doc
}

func intFrom(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}

func metaOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

package document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/contextgraph/context-graph/engine/domain"
)

type fakeStore struct {
	getRow   map[string]any
	countRow map[string]any
	allRows  []map[string]any
	execs    []string
	oneSQL   []string
	oneArgs  [][]any
}

func (f *fakeStore) Execute(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeStore) FetchOne(_ context.Context, sql string, args ...any) (map[string]any, error) {
	f.oneSQL = append(f.oneSQL, sql)
	f.oneArgs = append(f.oneArgs, args)
	switch {
	case strings.Contains(sql, "INSERT INTO documents"):
		return map[string]any{"id": "d1", "created_at": time.Now()}, nil
	case strings.Contains(sql, "count(*) AS total"):
		return f.countRow, nil
	}
	return f.getRow, nil
}

func (f *fakeStore) FetchAll(context.Context, string, ...any) ([]map[string]any, error) {
	return f.allRows, nil
}

type fakeVector struct {
	deleted []string
	err     error
}

func (f *fakeVector) DeleteByDocument(_ context.Context, _, documentID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.deleted = append(f.deleted, documentID)
	return 3, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func docRow() map[string]any {
	return map[string]any{
		"id": "d1", "project_id": "p1", "filename": "spec.md",
		"content_type": "spec", "raw_content": "hello",
		"processed": true, "chunk_count": int64(4), "created_at": time.Now(),
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(&fakeStore{}, &fakeVector{}, discard())
	cases := []struct {
		name string
		in   CreateIn
		want error
	}{
		{"blank filename", CreateIn{RawContent: "x"}, domain.ErrInvalidContent},
		{"blank content", CreateIn{Filename: "a.md"}, domain.ErrEmptyContent},
		{"whitespace content", CreateIn{Filename: "a.md", RawContent: "  \n "}, domain.ErrEmptyContent},
		{"bad content type", CreateIn{Filename: "a.md", RawContent: "x", ContentType: "bogus"}, domain.ErrInvalidContent},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "p1", c.in)
			if !errors.Is(err, c.want) {
				t.Errorf("err = %v, want %v", err, c.want)
			}
		})
	}
}

func TestCreateDefaultsContentType(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeVector{}, discard())

	doc, err := svc.Create(context.Background(), "p1", CreateIn{Filename: "a.md", RawContent: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ContentType != domain.ContentGeneral {
		t.Errorf("content type = %q", doc.ContentType)
	}
	if doc.ID != "d1" {
		t.Errorf("id = %q", doc.ID)
	}
}

func TestListBuildsFilters(t *testing.T) {
	processed := true
	store := &fakeStore{countRow: map[string]any{"total": int64(9)}, allRows: []map[string]any{docRow()}}
	svc := New(store, &fakeVector{}, discard())

	docs, total, err := svc.List(context.Background(), "p1", ListFilter{
		ContentType: "spec", Processed: &processed, Limit: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if total != 9 || len(docs) != 1 || docs[0].ChunkCount != 4 {
		t.Errorf("total = %d, docs = %+v", total, docs)
	}
	countSQL := store.oneSQL[0]
	if !strings.Contains(countSQL, "content_type = $2") || !strings.Contains(countSQL, "processed = $3") {
		t.Errorf("count sql = %s", countSQL)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := New(&fakeStore{}, &fakeVector{}, discard())
	_, err := svc.Get(context.Background(), "p1", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetIncludesRawContent(t *testing.T) {
	store := &fakeStore{getRow: docRow()}
	svc := New(store, &fakeVector{}, discard())

	doc, err := svc.Get(context.Background(), "p1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.RawContent != "hello" || !doc.Processed {
		t.Errorf("doc = %+v", doc)
	}
}

func TestDeleteClearsVectorsFirst(t *testing.T) {
	store := &fakeStore{getRow: docRow()}
	vec := &fakeVector{}
	svc := New(store, vec, discard())

	if err := svc.Delete(context.Background(), "p1", "acme", "d1"); err != nil {
		t.Fatal(err)
	}
	if len(vec.deleted) != 1 || vec.deleted[0] != "d1" {
		t.Errorf("vector deletes = %v", vec.deleted)
	}
	var rowDeleted bool
	for _, sql := range store.execs {
		if strings.Contains(sql, "DELETE FROM documents") {
			rowDeleted = true
		}
	}
	if !rowDeleted {
		t.Error("document row must be deleted")
	}
}

func TestDeleteVectorFailureIsSoft(t *testing.T) {
	store := &fakeStore{getRow: docRow()}
	svc := New(store, &fakeVector{err: errors.New("qdrant down")}, discard())
	if err := svc.Delete(context.Background(), "p1", "acme", "d1"); err != nil {
		t.Fatalf("vector failure must not block delete: %v", err)
	}
}

func TestDeleteMissingDocument(t *testing.T) {
	svc := New(&fakeStore{}, &fakeVector{}, discard())
	err := svc.Delete(context.Background(), "p1", "acme", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/graph"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"My Project", "my-project"},
		{"  spaced  out  ", "spaced-out"},
		{"Already-Slugged", "already-slugged"},
		{"weird!@#chars", "weirdchars"},
		{"snake_case_name", "snake-case-name"},
		{"a--b---c", "a-b-c"},
		{"-trim-", "trim"},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGraphName(t *testing.T) {
	if got := GraphName("my-project"); got != "project_my_project" {
		t.Errorf("GraphName = %q", got)
	}
}

type fakeStore struct {
	slugTaken bool
	getRow    map[string]any
	allRows   []map[string]any
	execs     []string
}

func (f *fakeStore) Execute(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeStore) FetchOne(_ context.Context, sql string, _ ...any) (map[string]any, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO projects"):
		return map[string]any{
			"id": "p1", "created_at": time.Now(), "updated_at": time.Now(),
		}, nil
	case strings.Contains(sql, "WHERE slug"):
		if strings.Contains(sql, "graph_name") || strings.Contains(sql, "name") {
			return f.getRow, nil
		}
		if f.slugTaken {
			return map[string]any{"id": "p0"}, nil
		}
		return nil, nil
	}
	return nil, nil
}

func (f *fakeStore) FetchAll(context.Context, string, ...any) ([]map[string]any, error) {
	return f.allRows, nil
}

type fakeGraphAdmin struct {
	created []string
	dropped []string
	stats   graph.Stats
	statErr error
}

func (f *fakeGraphAdmin) CreateGraph(_ context.Context, name string) error {
	f.created = append(f.created, name)
	return nil
}

func (f *fakeGraphAdmin) DropGraph(_ context.Context, name string) error {
	f.dropped = append(f.dropped, name)
	return nil
}

func (f *fakeGraphAdmin) Stats(context.Context, string) (graph.Stats, error) {
	return f.stats, f.statErr
}

type fakeVectorAdmin struct {
	created []string
	deleted []string
}

func (f *fakeVectorAdmin) CreateCollection(_ context.Context, slug string) error {
	f.created = append(f.created, slug)
	return nil
}

func (f *fakeVectorAdmin) DeleteCollection(_ context.Context, slug string) error {
	f.deleted = append(f.deleted, slug)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateProvisionsAllStores(t *testing.T) {
	store := &fakeStore{}
	g := &fakeGraphAdmin{}
	v := &fakeVectorAdmin{}
	svc := New(store, g, v, discard())

	p, err := svc.Create(context.Background(), Create{Name: "My Project"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Slug != "my-project" || p.GraphName != "project_my_project" {
		t.Errorf("project = %+v", p)
	}
	if p.ID != "p1" {
		t.Errorf("id = %q", p.ID)
	}
	if len(g.created) != 1 || g.created[0] != "project_my_project" {
		t.Errorf("graphs created = %v", g.created)
	}
	if len(v.created) != 1 || v.created[0] != "my-project" {
		t.Errorf("collections created = %v", v.created)
	}
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	store := &fakeStore{slugTaken: true}
	svc := New(store, &fakeGraphAdmin{}, &fakeVectorAdmin{}, discard())

	_, err := svc.Create(context.Background(), Create{Name: "My Project"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := New(&fakeStore{}, &fakeGraphAdmin{}, &fakeVectorAdmin{}, discard())
	for _, name := range []string{"", "   ", "!!!"} {
		if _, err := svc.Create(context.Background(), Create{Name: name}); err == nil {
			t.Errorf("name %q should be rejected", name)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	svc := New(&fakeStore{}, &fakeGraphAdmin{}, &fakeVectorAdmin{}, discard())
	_, err := svc.Get(context.Background(), "missing", false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetWithStats(t *testing.T) {
	store := &fakeStore{getRow: map[string]any{
		"id": "p1", "name": "My Project", "slug": "my-project",
		"graph_name": "project_my_project", "created_at": time.Now(), "updated_at": time.Now(),
	}}
	g := &fakeGraphAdmin{stats: graph.Stats{TotalEntities: 7, TotalRelationships: 3}}
	svc := New(store, g, &fakeVectorAdmin{}, discard())

	p, err := svc.Get(context.Background(), "my-project", true)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stats == nil || p.Stats.TotalEntities != 7 {
		t.Errorf("stats = %+v", p.Stats)
	}
}

func TestGetStatsFailureIsSoft(t *testing.T) {
	store := &fakeStore{getRow: map[string]any{
		"id": "p1", "name": "My Project", "slug": "my-project",
		"graph_name": "project_my_project",
	}}
	g := &fakeGraphAdmin{statErr: errors.New("graph gone")}
	svc := New(store, g, &fakeVectorAdmin{}, discard())

	p, err := svc.Get(context.Background(), "my-project", true)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stats != nil {
		t.Error("stats failure should leave Stats nil, not fail the get")
	}
}

func TestDeleteTearsDownAllStores(t *testing.T) {
	store := &fakeStore{getRow: map[string]any{
		"id": "p1", "slug": "my-project", "graph_name": "project_my_project",
	}}
	g := &fakeGraphAdmin{}
	v := &fakeVectorAdmin{}
	svc := New(store, g, v, discard())

	if err := svc.Delete(context.Background(), "my-project"); err != nil {
		t.Fatal(err)
	}
	if len(g.dropped) != 1 || len(v.deleted) != 1 {
		t.Error("delete must drop graph and collection")
	}
	var rowDeleted bool
	for _, sql := range store.execs {
		if strings.Contains(sql, "DELETE FROM projects") {
			rowDeleted = true
		}
	}
	if !rowDeleted {
		t.Error("project row must be deleted")
	}
}

func TestDeleteMissingProject(t *testing.T) {
	svc := New(&fakeStore{}, &fakeGraphAdmin{}, &fakeVectorAdmin{}, discard())
	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListMapsRows(t *testing.T) {
	store := &fakeStore{allRows: []map[string]any{
		{"id": "p2", "name": "B", "slug": "b", "graph_name": "project_b",
			"settings": map[string]any{"k": "v"}, "created_at": time.Now(), "updated_at": time.Now()},
		{"id": "p1", "name": "A", "slug": "a", "graph_name": "project_a",
			"created_at": time.Now(), "updated_at": time.Now()},
	}}
	svc := New(store, &fakeGraphAdmin{}, &fakeVectorAdmin{}, discard())

	projects, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 || projects[0].Slug != "b" || projects[0].Settings["k"] != "v" {
		t.Errorf("projects = %+v", projects)
	}
}

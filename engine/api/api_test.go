package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contextgraph/context-graph/engine/document"
	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/graph"
	"github.com/contextgraph/context-graph/engine/ingest"
	"github.com/contextgraph/context-graph/engine/project"
	"github.com/contextgraph/context-graph/engine/search"
	"github.com/contextgraph/context-graph/engine/snapshot"
	"github.com/contextgraph/context-graph/pkg/metrics"
)

type fakeProjects struct {
	conflict bool
	projects []project.Project
}

func (f *fakeProjects) Create(_ context.Context, in project.Create) (*project.Project, error) {
	if f.conflict {
		return nil, domain.Conflictf("project %q already exists", "acme")
	}
	slug := project.Slugify(in.Name)
	if slug == "" {
		return nil, domain.NewValidationError("name", in.Name, domain.ErrInvalidEntity)
	}
	return &project.Project{ID: "p1", Name: in.Name, Slug: slug}, nil
}

func (f *fakeProjects) List(context.Context) ([]project.Project, error) {
	return f.projects, nil
}

func (f *fakeProjects) Get(_ context.Context, slug string, _ bool) (*project.Project, error) {
	if slug != "acme" {
		return nil, domain.NotFoundf("project %q not found", slug)
	}
	return &project.Project{ID: "p1", Slug: "acme", GraphName: "project_acme"}, nil
}

func (f *fakeProjects) GetRef(_ context.Context, slug string) (project.Ref, error) {
	if slug != "acme" {
		return project.Ref{}, domain.NotFoundf("project %q not found", slug)
	}
	return project.Ref{ID: "p1", Slug: "acme", GraphName: "project_acme"}, nil
}

func (f *fakeProjects) Delete(_ context.Context, slug string) error {
	if slug != "acme" {
		return domain.NotFoundf("project %q not found", slug)
	}
	return nil
}

type fakeDocuments struct {
	created []document.CreateIn
}

func (f *fakeDocuments) Create(_ context.Context, _ string, in document.CreateIn) (*document.Document, error) {
	if strings.TrimSpace(in.RawContent) == "" {
		return nil, domain.ErrEmptyContent
	}
	f.created = append(f.created, in)
	return &document.Document{ID: "d1", Filename: in.Filename}, nil
}

func (f *fakeDocuments) List(context.Context, string, document.ListFilter) ([]document.Document, int, error) {
	return []document.Document{{ID: "d1"}}, 1, nil
}

func (f *fakeDocuments) Get(_ context.Context, _, id string) (*document.Document, error) {
	if id != "d1" {
		return nil, domain.NotFoundf("document %s not found", id)
	}
	return &document.Document{ID: "d1", RawContent: "hello"}, nil
}

func (f *fakeDocuments) Delete(_ context.Context, _, _, id string) error {
	if id != "d1" {
		return domain.NotFoundf("document %s not found", id)
	}
	return nil
}

type fakeIngestor struct {
	processed []string
}

func (f *fakeIngestor) ProcessDocument(_ context.Context, _ ingest.ProjectRef, id string) (ingest.Result, error) {
	f.processed = append(f.processed, id)
	return ingest.Result{DocumentID: id, ChunksCreated: 3}, nil
}

type fakeGraph struct {
	created           []graph.EntityCreate
	deletedIDs        []string
	dupGroups         []graph.DuplicateGroup
	localCalls        []string
	queryErr          error
	upsertDescription string
}

func (f *fakeGraph) CreateEntity(_ context.Context, _ string, in graph.EntityCreate) (graph.Entity, error) {
	f.created = append(f.created, in)
	return graph.Entity{ID: "1", Name: in.Name, Type: string(in.Type)}, nil
}

func (f *fakeGraph) GetEntity(_ context.Context, _, id string) (*graph.Entity, error) {
	if id != "1" {
		return nil, domain.NotFoundf("entity %s not found", id)
	}
	return &graph.Entity{ID: "1", Name: "Auth"}, nil
}

func (f *fakeGraph) ListEntities(context.Context, string, string, int, int) ([]graph.Entity, error) {
	return []graph.Entity{{ID: "1"}}, nil
}

func (f *fakeGraph) FindEntities(_ context.Context, _, _, entityType string, _ int) ([]graph.Entity, error) {
	all := []graph.Entity{
		{ID: "1", Name: "Auth", Type: "Concept"},
		{ID: "2", Name: "AuthAPI", Type: "API"},
	}
	if entityType == "" {
		return all, nil
	}
	var out []graph.Entity
	for _, e := range all {
		if e.Type == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGraph) UpsertEntity(_ context.Context, _ string, in graph.EntityCreate, description string) (graph.UpsertResult, error) {
	f.upsertDescription = description
	return graph.UpsertResult{Entity: graph.Entity{ID: "1", Name: in.Name}, Created: true}, nil
}

func (f *fakeGraph) UpdateEntity(_ context.Context, _, id string, _ domain.Properties) (*graph.Entity, error) {
	return &graph.Entity{ID: id}, nil
}

func (f *fakeGraph) DeleteEntity(_ context.Context, _, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeGraph) CreateRelationship(_ context.Context, _ string, in graph.RelationshipCreate) (graph.Relationship, error) {
	return graph.Relationship{ID: "9", SourceID: in.SourceID, TargetID: in.TargetID, Type: string(in.Type)}, nil
}

func (f *fakeGraph) ListRelationships(context.Context, string, int) ([]graph.Relationship, error) {
	return nil, nil
}

func (f *fakeGraph) EntityRelationships(context.Context, string, string, string, domain.RelationshipType) ([]graph.EntityRelationship, error) {
	return nil, nil
}

func (f *fakeGraph) BatchCreate(_ context.Context, _ string, entities []graph.BatchEntity, rels []graph.BatchRelationship) graph.BatchResult {
	return graph.BatchResult{EntitiesCreated: make([]graph.Entity, len(entities)), RelationshipsCreated: make([]graph.Relationship, len(rels))}
}

func (f *fakeGraph) BatchDelete(_ context.Context, _ string, ids []string) graph.BatchDeleteResult {
	f.deletedIDs = append(f.deletedIDs, ids...)
	return graph.BatchDeleteResult{Deleted: len(ids)}
}

func (f *fakeGraph) FindDuplicates(context.Context, string, string) ([]graph.DuplicateGroup, error) {
	return f.dupGroups, nil
}

func (f *fakeGraph) Deduplicate(_ context.Context, _ string, dryRun bool) (graph.DeduplicateResult, error) {
	return graph.DeduplicateResult{DryRun: dryRun, GroupsFound: len(f.dupGroups)}, nil
}

func (f *fakeGraph) ExecuteReadQuery(context.Context, string, string) ([]map[string]any, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []map[string]any{{"n": "x"}}, nil
}

func (f *fakeGraph) LocalGraph(_ context.Context, _, id string, _ int) (graph.GraphData, error) {
	f.localCalls = append(f.localCalls, id)
	return graph.GraphData{}, nil
}

func (f *fakeGraph) FullGraph(context.Context, string, []string, int) (graph.GraphData, error) {
	return graph.GraphData{
		Nodes: []graph.Node{{ID: "1", Name: "Auth", Type: "Concept"}, {ID: "2", Name: "API", Type: "API"}},
		Edges: []graph.Edge{{ID: "9", Source: "1", Target: "2", Type: "USES"}},
	}, nil
}

type fakeSearcher struct {
	fanoutRefs []search.ProjectRef
}

func (f *fakeSearcher) Search(context.Context, search.ProjectRef, search.Request, []float32) (search.Response, error) {
	return search.Response{Results: []search.Result{{ID: "entity_1", Score: 1}}}, nil
}

func (f *fakeSearcher) Fanout(_ context.Context, refs []search.ProjectRef, _ search.Request) (search.FanoutResponse, error) {
	f.fanoutRefs = refs
	return search.FanoutResponse{ProjectsSearched: len(refs)}, nil
}

type fakeSnapshots struct {
	triggers []string
}

func (f *fakeSnapshots) Create(_ context.Context, _, _, _, trigger string) (snapshot.Snapshot, error) {
	if trigger == "" {
		trigger = snapshot.TriggerManual
	}
	f.triggers = append(f.triggers, trigger)
	return snapshot.Snapshot{ID: "s1", Trigger: trigger}, nil
}

func (f *fakeSnapshots) List(context.Context, string, int) ([]snapshot.Snapshot, error) {
	return []snapshot.Snapshot{{ID: "s1"}}, nil
}

func (f *fakeSnapshots) Get(_ context.Context, _, id string) (*snapshot.Detail, error) {
	if id != "s1" {
		return nil, domain.NotFoundf("snapshot %s not found", id)
	}
	return &snapshot.Detail{Snapshot: snapshot.Snapshot{ID: "s1"}}, nil
}

func (f *fakeSnapshots) Delete(context.Context, string, string) error { return nil }

func (f *fakeSnapshots) Restore(_ context.Context, _, _, id string) (snapshot.RestoreResult, error) {
	return snapshot.RestoreResult{SnapshotID: id, EntitiesRestored: 2}, nil
}

type fixture struct {
	server    *Server
	mux       *http.ServeMux
	projects  *fakeProjects
	documents *fakeDocuments
	ingestor  *fakeIngestor
	graph     *fakeGraph
	searcher  *fakeSearcher
	snapshots *fakeSnapshots
}

func newFixture() *fixture {
	f := &fixture{
		projects:  &fakeProjects{},
		documents: &fakeDocuments{},
		ingestor:  &fakeIngestor{},
		graph:     &fakeGraph{},
		searcher:  &fakeSearcher{},
		snapshots: &fakeSnapshots{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.server = New(f.projects, f.documents, f.ingestor, f.graph, f.searcher,
		f.snapshots, metrics.NewRegistry(), "secret", log)
	f.mux = f.server.Routes()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return v
}

func TestHealthAndRoot(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/", ""); rec.Code != http.StatusOK {
		t.Errorf("root = %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestProjectCreate(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "POST", "/api/v1/projects", `{"name":"My Project"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	p := decodeBody[project.Project](t, rec)
	if p.Slug != "my-project" {
		t.Errorf("slug = %q", p.Slug)
	}
}

func TestProjectCreateConflict(t *testing.T) {
	f := newFixture()
	f.projects.conflict = true
	rec := f.do(t, "POST", "/api/v1/projects", `{"name":"Acme"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("code = %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["detail"] == "" {
		t.Error("conflict body should carry a detail message")
	}
}

func TestUnknownProjectIs404(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "GET", "/api/v1/projects/nope/documents", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestDocumentCreateAndValidation(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "POST", "/api/v1/projects/acme/documents",
		`{"filename":"spec.md","raw_content":"hello","content_type":"spec"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, "POST", "/api/v1/projects/acme/documents",
		`{"filename":"spec.md","raw_content":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty content code = %d", rec.Code)
	}
}

func TestDocumentProcess(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "POST", "/api/v1/projects/acme/documents/d1/process", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	res := decodeBody[ingest.Result](t, rec)
	if res.ChunksCreated != 3 || f.ingestor.processed[0] != "d1" {
		t.Errorf("result = %+v", res)
	}
}

func TestEntityCreateValidatesType(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "POST", "/api/v1/projects/acme/entities",
		`{"name":"Auth","type":"NotAType"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
	rec = f.do(t, "POST", "/api/v1/projects/acme/entities",
		`{"name":"Auth","type":"Concept"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("code = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestEntityCreateRequiresName(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "POST", "/api/v1/projects/acme/entities",
		`{"name":"  ","type":"Concept"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestEntityGetNotFound(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "GET", "/api/v1/projects/acme/entities/999", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestCypherQueryRestricted(t *testing.T) {
	f := newFixture()
	f.graph.queryErr = domain.ErrRestrictedQuery
	rec := f.do(t, "POST", "/api/v1/projects/acme/query/cypher",
		`{"query":"MATCH (n) DETACH DELETE n"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestBatchCreateCaps(t *testing.T) {
	f := newFixture()
	entities := make([]string, MaxBatchEntities+1)
	for i := range entities {
		entities[i] = `{"name":"e","type":"Concept"}`
	}
	body := `{"entities":[` + strings.Join(entities, ",") + `]}`
	rec := f.do(t, "POST", "/api/v1/projects/acme/batch", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("over-cap batch code = %d", rec.Code)
	}
}

func TestBatchDeleteTakesSnapshotFirst(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "DELETE", "/api/v1/projects/acme/entities/batch",
		`{"ids":["1","2"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(f.snapshots.triggers) != 1 || f.snapshots.triggers[0] != snapshot.TriggerPreBatchDelete {
		t.Errorf("triggers = %v", f.snapshots.triggers)
	}
	if len(f.graph.deletedIDs) != 2 {
		t.Errorf("deleted = %v", f.graph.deletedIDs)
	}
}

func TestBatchDeleteEmptyIDs(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "DELETE", "/api/v1/projects/acme/entities/batch", `{"ids":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
	if len(f.snapshots.triggers) != 0 {
		t.Error("rejected request must not snapshot")
	}
}

func TestDeduplicateSnapshotOnlyWhenWorkExists(t *testing.T) {
	f := newFixture()

	// Dry run never snapshots.
	rec := f.do(t, "POST", "/api/v1/projects/acme/entities/deduplicate", `{"dry_run":true}`)
	if rec.Code != http.StatusOK || len(f.snapshots.triggers) != 0 {
		t.Errorf("dry run: code = %d triggers = %v", rec.Code, f.snapshots.triggers)
	}

	// Real run with no duplicate groups skips the snapshot too.
	rec = f.do(t, "POST", "/api/v1/projects/acme/entities/deduplicate", `{"dry_run":false}`)
	if rec.Code != http.StatusOK || len(f.snapshots.triggers) != 0 {
		t.Errorf("no groups: code = %d triggers = %v", rec.Code, f.snapshots.triggers)
	}

	f.graph.dupGroups = []graph.DuplicateGroup{{Name: "auth"}}
	rec = f.do(t, "POST", "/api/v1/projects/acme/entities/deduplicate", `{"dry_run":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if len(f.snapshots.triggers) != 1 || f.snapshots.triggers[0] != snapshot.TriggerPreDeduplicate {
		t.Errorf("triggers = %v", f.snapshots.triggers)
	}
}

func TestEntityFindTypeFilter(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "GET", "/api/v1/projects/acme/entities/find?name=auth&type=API", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if total, _ := body["total"].(float64); total != 1 {
		t.Errorf("total = %v, want only the API-typed match", body["total"])
	}
	rec = f.do(t, "GET", "/api/v1/projects/acme/entities/find?name=auth&type=Bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type code = %d", rec.Code)
	}
	rec = f.do(t, "GET", "/api/v1/projects/acme/entities/find", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name code = %d", rec.Code)
	}
}

func TestVisualizationFocusUsesLocalGraph(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "GET", "/api/v1/projects/acme/visualization/graph?focus=7&depth=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if len(f.graph.localCalls) != 1 || f.graph.localCalls[0] != "7" {
		t.Errorf("local calls = %v", f.graph.localCalls)
	}
	rec = f.do(t, "GET", "/api/v1/projects/acme/visualization/graph/local/7", "")
	if rec.Code != http.StatusOK {
		t.Errorf("local route code = %d", rec.Code)
	}
}

func TestVisualizationStatsEnvelope(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "GET", "/api/v1/projects/acme/visualization/graph", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	stats, _ := body["stats"].(map[string]any)
	if stats == nil {
		t.Fatalf("no stats block: %v", body)
	}
	if n, _ := stats["node_count"].(float64); n != 2 {
		t.Errorf("node_count = %v", stats["node_count"])
	}
	if n, _ := stats["edge_count"].(float64); n != 1 {
		t.Errorf("edge_count = %v", stats["edge_count"])
	}
	types, _ := stats["node_types"].(map[string]any)
	if c, _ := types["Concept"].(float64); c != 1 {
		t.Errorf("node_types = %v", types)
	}
}

func TestVisualizationTypesValidated(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "GET", "/api/v1/projects/acme/visualization/graph?types=Concept,Bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, unknown labels must be rejected", rec.Code)
	}
}

func TestEntityUpsertDescription(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "PUT", "/api/v1/projects/acme/entities",
		`{"name":"Auth","type":"Concept","description":"login flow"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	if f.graph.upsertDescription != "login flow" {
		t.Errorf("description = %q", f.graph.upsertDescription)
	}
	rec = f.do(t, "PUT", "/api/v1/projects/acme/entities?description=from-query",
		`{"name":"Auth","type":"Concept"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d", rec.Code)
	}
	if f.graph.upsertDescription != "from-query" {
		t.Errorf("query description = %q", f.graph.upsertDescription)
	}
}

func TestAuthVerifyAlwaysMounted(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "GET", "/auth/verify", "")
	if rec.Code != http.StatusFound {
		t.Errorf("code = %d, want 302 redirect without a cookie", rec.Code)
	}
}

func TestSearchValidation(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "POST", "/api/v1/projects/acme/search", `{"query":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query code = %d", rec.Code)
	}
	rec = f.do(t, "POST", "/api/v1/projects/acme/search", `{"query":"q","mode":"psychic"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode code = %d", rec.Code)
	}
	rec = f.do(t, "POST", "/api/v1/projects/acme/search", `{"query":"auth"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestFanoutSearchUsesAllProjects(t *testing.T) {
	f := newFixture()
	f.projects.projects = []project.Project{
		{Slug: "a", GraphName: "project_a"},
		{Slug: "b", GraphName: "project_b"},
	}
	rec := f.do(t, "POST", "/api/v1/search", `{"query":"auth"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if len(f.searcher.fanoutRefs) != 2 || f.searcher.fanoutRefs[0].Slug != "a" {
		t.Errorf("refs = %+v", f.searcher.fanoutRefs)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	f := newFixture()
	rec := f.do(t, "POST", "/api/v1/projects/acme/snapshots", `{"label":"before refactor"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/api/v1/projects/acme/snapshots", ""); rec.Code != http.StatusOK {
		t.Errorf("list code = %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/api/v1/projects/acme/snapshots/s1", ""); rec.Code != http.StatusOK {
		t.Errorf("get code = %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/api/v1/projects/acme/snapshots/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing get code = %d", rec.Code)
	}
	rec = f.do(t, "POST", "/api/v1/projects/acme/snapshots/s1/restore", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("restore code = %d", rec.Code)
	}
	res := decodeBody[snapshot.RestoreResult](t, rec)
	if res.EntitiesRestored != 2 {
		t.Errorf("restore = %+v", res)
	}
	if rec := f.do(t, "DELETE", "/api/v1/projects/acme/snapshots/s1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete code = %d", rec.Code)
	}
}

func TestProjectDelete(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, "DELETE", "/api/v1/projects/acme", ""); rec.Code != http.StatusNoContent {
		t.Errorf("code = %d", rec.Code)
	}
	if rec := f.do(t, "DELETE", "/api/v1/projects/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing code = %d", rec.Code)
	}
}

package semantic

import (
	"context"
	"fmt"
	"log/slog"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Store talks to Qdrant over gRPC.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	dims        uint64
	log         *slog.Logger
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr string, dims int, log *slog.Logger) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		dims:        uint64(dims),
		log:         log,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error { return s.conn.Close() }

// CollectionName maps a project slug to its chunk collection.
func CollectionName(slug string) string {
	return "project_" + slug + "_chunks"
}

// CreateCollection creates the project's collection if it doesn't exist.
func (s *Store) CreateCollection(ctx context.Context, slug string) error {
	name := CollectionName(slug)
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     s.dims,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection removes the project's collection.
func (s *Store) DeleteCollection(ctx context.Context, slug string) error {
	name := CollectionName(slug)
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", name, err)
	}
	return nil
}

// UpsertChunks stores embedded chunks into the project's collection.
func (s *Store) UpsertChunks(ctx context.Context, slug string, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Vector}},
			},
			Payload: chunkPayload(r),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: CollectionName(slug),
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// DeletePoints removes specific points by id.
func (s *Store) DeletePoints(ctx context.Context, slug string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pids[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
	}
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: CollectionName(slug),
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: pids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete %d points: %w", len(ids), err)
	}
	return nil
}

// DeleteByDocument scrolls all points of a document and deletes them,
// returning how many were removed. Used before re-ingestion.
func (s *Store) DeleteByDocument(ctx context.Context, slug, documentID string) (int, error) {
	name := CollectionName(slug)
	filter := &pb.Filter{Must: []*pb.Condition{fieldMatch("document_id", documentID)}}

	var ids []*pb.PointId
	var offset *pb.PointId
	for {
		limit := uint32(100)
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: name,
			Filter:         filter,
			Limit:          &limit,
			Offset:         offset,
		})
		if err != nil {
			return 0, fmt.Errorf("semantic: scroll document %s: %w", documentID, err)
		}
		for _, p := range resp.GetResult() {
			ids = append(ids, p.GetId())
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: name,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: delete document %s points: %w", documentID, err)
	}
	return len(ids), nil
}

// Search performs k-NN similarity search in the project's collection, with an
// optional content-type union filter.
func (s *Store) Search(ctx context.Context, slug string, vector []float32, limit int, contentTypes []string) ([]ScoredChunk, error) {
	req := &pb.SearchPoints{
		CollectionName: CollectionName(slug),
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(contentTypes) > 0 {
		should := make([]*pb.Condition, 0, len(contentTypes))
		for _, ct := range contentTypes {
			should = append(should, fieldMatch("content_type", ct))
		}
		req.Filter = &pb.Filter{Should: should}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]ScoredChunk, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = scoredFromPayload(r.GetId().GetUuid(), r.GetScore(), r.GetPayload())
	}
	return results, nil
}

func scoredFromPayload(id string, score float32, payload map[string]*pb.Value) ScoredChunk {
	sc := ScoredChunk{ID: id, Score: score}
	if v, ok := payload["chunk_id"]; ok && v.GetStringValue() != "" {
		sc.ID = v.GetStringValue()
	}
	sc.DocumentID = payload["document_id"].GetStringValue()
	sc.Content = payload["content"].GetStringValue()
	sc.ContentType = payload["content_type"].GetStringValue()
	sc.ChunkIndex = int(payload["chunk_index"].GetIntegerValue())
	return sc
}

func chunkPayload(r ChunkRecord) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"chunk_id":     toValue(r.ID),
		"document_id":  toValue(r.DocumentID),
		"content":      toValue(r.Content),
		"content_type": toValue(r.ContentType),
		"chunk_index":  toValue(r.ChunkIndex),
	}
	if len(r.Metadata) > 0 {
		payload["metadata"] = toValue(r.Metadata)
	}
	return payload
}

func toValue(v any) *pb.Value {
	switch tv := v.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{}}
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	case []any:
		vals := make([]*pb.Value, len(tv))
		for i, item := range tv {
			vals[i] = toValue(item)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
	case map[string]any:
		fields := make(map[string]*pb.Value, len(tv))
		for k, item := range tv {
			fields[k] = toValue(item)
		}
		return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

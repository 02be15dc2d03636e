package retrieval

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore talks to Qdrant over its gRPC API.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

var _ VectorStore = (*QdrantStore)(nil)

func NewQdrantStore(addr string) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect %s: %w", addr, err)
	}

	s := newQdrantStore(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn))
	s.conn = conn
	return s, nil
}

func newQdrantStore(points pb.PointsClient, collections pb.CollectionsClient) *QdrantStore {
	return &QdrantStore{points: points, collections: collections}
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, vectorSize uint64) error {
	exists, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return fmt.Errorf("qdrant: check collection %s: %w", name, err)
	}
	if exists.GetResult().GetExists() {
		return s.checkVectorSize(ctx, name, vectorSize)
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", name, err)
	}
	return nil
}

// checkVectorSize compares the collection's unnamed vector params with the
// embedder dimension. Collections using named vectors are left alone.
func (s *QdrantStore) checkVectorSize(ctx context.Context, name string, vectorSize uint64) error {
	info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		return fmt.Errorf("qdrant: get collection %s: %w", name, err)
	}
	params := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return nil
	}
	if params.GetSize() != vectorSize {
		return fmt.Errorf("%w: qdrant collection %s has vector size %d, embedder produces %d",
			ErrVectorSizeMismatch, name, params.GetSize(), vectorSize)
	}
	return nil
}

func (s *QdrantStore) Count(ctx context.Context, collection string) (uint64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count %s: %w", collection, err)
	}
	return resp.GetResult().GetCount(), nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	qPoints := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		qPoints[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: toPayload(p.Payload),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         qPoints,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert into %s: %w", collection, err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		ScoreThreshold: &scoreThreshold,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search %s: %w", collection, err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		id := r.GetId().GetUuid()
		if id == "" {
			id = fmt.Sprintf("%d", r.GetId().GetNum())
		}
		results[i] = SearchResult{
			ID:    id,
			Score: r.GetScore(),
			Point: Point{ID: id, Payload: fromPayload(r.GetPayload())},
		}
	}
	return results, nil
}

func (s *QdrantStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func toPayload(in map[string]any) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: val}}
		case int:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(val)}}
		case int64:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: val}}
		case float64:
			out[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: val}}
		case bool:
			out[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: val}}
		}
	}
	return out
}

func fromPayload(in map[string]*pb.Value) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch knd := v.GetKind().(type) {
		case *pb.Value_StringValue:
			out[k] = knd.StringValue
		case *pb.Value_IntegerValue:
			out[k] = knd.IntegerValue
		case *pb.Value_DoubleValue:
			out[k] = knd.DoubleValue
		case *pb.Value_BoolValue:
			out[k] = knd.BoolValue
		}
	}
	return out
}

package retrieval

import (
	"context"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	"google.golang.org/grpc"
)

type fakePointsClient struct {
	pb.PointsClient

	upserts []*pb.UpsertPoints
	search  *pb.SearchPoints
	count   uint64
	results []*pb.ScoredPoint
}

func (f *fakePointsClient) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserts = append(f.upserts, in)
	f.count += uint64(len(in.GetPoints()))
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakePointsClient) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	return &pb.CountResponse{Result: &pb.CountResult{Count: f.count}}, nil
}

func (f *fakePointsClient) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.search = in
	return &pb.SearchResponse{Result: f.results}, nil
}

type fakeCollectionsClient struct {
	pb.CollectionsClient

	exists  bool
	size    uint64
	created []*pb.CreateCollection
}

func (f *fakeCollectionsClient) Get(_ context.Context, _ *pb.GetCollectionInfoRequest, _ ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	return &pb.GetCollectionInfoResponse{Result: &pb.CollectionInfo{
		Config: &pb.CollectionConfig{Params: &pb.CollectionParams{
			VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: f.size, Distance: pb.Distance_Cosine},
			}},
		}},
	}}, nil
}

func (f *fakeCollectionsClient) CollectionExists(_ context.Context, _ *pb.CollectionExistsRequest, _ ...grpc.CallOption) (*pb.CollectionExistsResponse, error) {
	return &pb.CollectionExistsResponse{Result: &pb.CollectionExists{Exists: f.exists}}, nil
}

func (f *fakeCollectionsClient) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.created = append(f.created, in)
	f.exists = true
	f.size = in.GetVectorsConfig().GetParams().GetSize()
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func TestQdrantSeedsAndSearches(t *testing.T) {
	t.Parallel()

	points := &fakePointsClient{
		results: []*pb.ScoredPoint{{
			Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: BaselinePolicyID}},
			Score: 0.83,
			Payload: map[string]*pb.Value{
				payloadText: {Kind: &pb.Value_StringValue{StringValue: BaselinePolicyText}},
				payloadType: {Kind: &pb.Value_StringValue{StringValue: BaselinePolicyType}},
			},
		}},
	}
	collections := &fakeCollectionsClient{}
	store := newQdrantStore(points, collections)

	idx, err := NewPolicyIndex(store, LexicalEmbedder{}, "policies", 0.2)
	require.NoError(t, err)

	docs, err := idx.Search(context.Background(), "annual leave entitlement", 3)
	require.NoError(t, err)

	require.Len(t, collections.created, 1)
	assert.Equal(t, "policies", collections.created[0].GetCollectionName())
	assert.EqualValues(t, defaultLexicalDims, collections.created[0].GetVectorsConfig().GetParams().GetSize())

	require.Len(t, points.upserts, 1)
	seed := points.upserts[0].GetPoints()[0]
	assert.Equal(t, BaselinePolicyID, seed.GetId().GetUuid())
	assert.Equal(t, BaselinePolicyType, seed.GetPayload()[payloadType].GetStringValue())

	require.NotNil(t, points.search)
	assert.EqualValues(t, 3, points.search.GetLimit())
	assert.InDelta(t, 0.2, points.search.GetScoreThreshold(), 1e-6)

	require.Len(t, docs, 1)
	assert.Equal(t, BaselinePolicyText, docs[0].Text)
	assert.InDelta(t, 0.83, docs[0].Score, 1e-6)

	_, err = idx.Search(context.Background(), "annual leave entitlement", 3)
	require.NoError(t, err)
	assert.Len(t, points.upserts, 1)
}

func TestQdrantSkipsSeedWhenPopulated(t *testing.T) {
	t.Parallel()

	points := &fakePointsClient{count: 4}
	collections := &fakeCollectionsClient{exists: true, size: defaultLexicalDims}
	idx, err := NewPolicyIndex(newQdrantStore(points, collections), LexicalEmbedder{}, "policies", 0.2)
	require.NoError(t, err)

	docs, err := idx.Search(context.Background(), "remote work", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, collections.created)
	assert.Empty(t, points.upserts)
}

func TestQdrantRejectsCollectionWithOtherVectorSize(t *testing.T) {
	t.Parallel()

	points := &fakePointsClient{count: 4}
	collections := &fakeCollectionsClient{exists: true, size: 1536}
	idx, err := NewPolicyIndex(newQdrantStore(points, collections), LexicalEmbedder{}, "policies", 0.2)
	require.NoError(t, err)

	err = idx.Prepare(context.Background())
	require.ErrorIs(t, err, ErrVectorSizeMismatch)
	assert.Contains(t, err.Error(), "1536")
	assert.Empty(t, collections.created)
	assert.Empty(t, points.upserts)

	_, err = idx.Search(context.Background(), "annual leave entitlement", 3)
	assert.ErrorIs(t, err, contractx.ErrPolicyIndexUnavailable)
}

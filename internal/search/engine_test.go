package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/embedding/embeddingtest"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
	"github.com/boilerplate-hub/repo-catalog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eligible = "my awesome boilerplate"

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: []float32{1}, want: 0},
		{name: "overlapping range only", a: []float32{1, 0}, b: []float32{1, 0, 5, 5}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Bounded(t *testing.T) {
	for i := 0; i < 50; i++ {
		a := embeddingtest.HashVector(fmt.Sprintf("a-%d", i))
		b := embeddingtest.HashVector(fmt.Sprintf("b-%d", i))
		score := CosineSimilarity(a, b)
		assert.False(t, math.IsNaN(score))
		assert.LessOrEqual(t, score, 1.0+1e-9)
		assert.GreaterOrEqual(t, score, -1.0-1e-9)
		assert.InDelta(t, score, CosineSimilarity(b, a), 1e-12)
	}
}

func TestParseType(t *testing.T) {
	for raw, want := range map[string]Type{
		"":            TypeCombined,
		"combined":    TypeCombined,
		"description": TypeDescription,
		"repository":  TypeRepository,
	} {
		got, err := ParseType(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("semantic")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

type fixture struct {
	mr     *miniredis.Miniredis
	stub   *embeddingtest.StubProvider
	engine *Engine
}

func setupEngine(t *testing.T, config Config) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	opener, err := store.NewRedisOpener(store.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)

	repo := repository.New(opener, repository.Options{ScanWorkers: config.ScanWorkers}, nil)
	stub := embeddingtest.NewStubProvider(nil)

	return &fixture{
		mr:     mr,
		stub:   stub,
		engine: NewEngine(repo, stub, config, nil),
	}
}

func (f *fixture) seed(id, category string, description, repositoryVec, combined string) {
	f.mr.HSet(id,
		repository.FieldID, id,
		repository.FieldRepositoryName, "acme/"+id,
		repository.FieldCategory, category,
		repository.FieldIsTemplate, "false",
		repository.FieldCreatedAt, "2025-01-01T00:00:00.000Z",
	)
	if description != "" {
		f.mr.HSet(id, repository.FieldDescriptionEmbeddings, description)
	}
	if repositoryVec != "" {
		f.mr.HSet(id, repository.FieldRepositoryEmbeddings, repositoryVec)
	}
	if combined != "" {
		f.mr.HSet(id, repository.FieldCombinedEmbeddings, combined)
	}
}

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearch_RanksAndTruncates(t *testing.T) {
	f := setupEngine(t, Config{})
	f.stub.Set("query", []float32{1, 0})

	f.seed("item:best", eligible, "", "", "[1,0]")
	f.seed("item:good", eligible, "", "", "[1,0.5]")
	f.seed("item:ok", eligible, "", "", "[1,2]")
	f.seed("item:worst", eligible, "", "", "[-1,0]")

	results, err := f.engine.Search(context.Background(), Request{Query: "query", Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"item:best", "item:good", "item:ok"}, ids(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_DefaultAndMaxLimit(t *testing.T) {
	f := setupEngine(t, Config{MaxLimit: 7})
	for i := 0; i < 10; i++ {
		f.seed(fmt.Sprintf("item:%d", i), eligible, "", "", "[1,1]")
	}

	results, err := f.engine.Search(context.Background(), Request{Query: "anything"})
	require.NoError(t, err)
	assert.Len(t, results, 5)

	results, err = f.engine.Search(context.Background(), Request{Query: "anything", Limit: -3})
	require.NoError(t, err)
	assert.Len(t, results, 5)

	results, err = f.engine.Search(context.Background(), Request{Query: "anything", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, results, 7)
}

func TestSearch_Eligibility(t *testing.T) {
	f := setupEngine(t, Config{})
	f.stub.Set("query", []float32{1, 0})

	f.seed("item:eligible", eligible, "", "", "[1,0]")
	f.seed("item:other-category", "something else", "", "", "[1,0]")
	f.seed("item:no-category", "", "", "", "[1,0]")
	f.seed("item:missing-field", eligible, "[1,0]", "", "")
	f.seed("item:corrupt", eligible, "", "", "not-json")

	results, err := f.engine.Search(context.Background(), Request{Query: "query", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"item:eligible"}, ids(results))
}

func TestSearch_ConfiguredCategory(t *testing.T) {
	f := setupEngine(t, Config{EligibleCategory: "starter kits"})

	f.seed("item:kit", "starter kits", "", "", "[1,0]")
	f.seed("item:default", eligible, "", "", "[1,0]")

	results, err := f.engine.Search(context.Background(), Request{Query: "query"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item:kit"}, ids(results))
}

func TestSearch_SelectsEmbeddingField(t *testing.T) {
	f := setupEngine(t, Config{ScanWorkers: 1})
	f.stub.Set("query", []float32{1, 0})

	f.seed("item:a", eligible, "[1,0]", "[0,1]", "[0,1]")
	f.seed("item:b", eligible, "[0,1]", "[1,0]", "[1,0]")

	for searchType, want := range map[Type]string{
		TypeDescription: "item:a",
		TypeRepository:  "item:b",
		TypeCombined:    "item:b",
	} {
		results, err := f.engine.Search(context.Background(), Request{Query: "query", Type: searchType, Limit: 1})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, want, results[0].ID, string(searchType))
	}
}

func TestSearch_PositiveOnly(t *testing.T) {
	f := setupEngine(t, Config{})
	f.stub.Set("query", []float32{1, 0})

	f.seed("item:pos", eligible, "", "", "[1,0]")
	f.seed("item:zero", eligible, "", "", "[0,1]")
	f.seed("item:neg", eligible, "", "", "[-1,0]")

	all, err := f.engine.Search(context.Background(), Request{Query: "query", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	positive, err := f.engine.Search(context.Background(), Request{Query: "query", Limit: 10, PositiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"item:pos"}, ids(positive))
}

func TestSearch_Validation(t *testing.T) {
	f := setupEngine(t, Config{})

	_, err := f.engine.Search(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.engine.Search(context.Background(), Request{Query: "q", Type: "fuzzy"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Empty(t, f.stub.Calls(), "invalid requests never reach the provider")
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	f := setupEngine(t, Config{})
	f.stub.FailOn("query", errors.New("provider down"))
	f.seed("item:a", eligible, "", "", "[1,0]")

	results, err := f.engine.Search(context.Background(), Request{Query: "query"})
	assert.ErrorIs(t, err, apperrors.ErrEmbeddingFailure)
	assert.Nil(t, results)
}

func TestSearch_StorageUnavailable(t *testing.T) {
	f := setupEngine(t, Config{})
	f.mr.Close()

	_, err := f.engine.Search(context.Background(), Request{Query: "query"})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestSearch_EmptyStore(t *testing.T) {
	f := setupEngine(t, Config{})

	results, err := f.engine.Search(context.Background(), Request{Query: "query"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_SkipsNonHashItemKeys(t *testing.T) {
	f := setupEngine(t, Config{ScanWorkers: 4})
	f.stub.Set("query", []float32{1, 0})

	f.seed("item:good", eligible, "", "", "[1,0]")
	require.NoError(t, f.mr.Set("item:stray", "not a hash"))

	results, err := f.engine.Search(context.Background(), Request{Query: "query"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item:good"}, ids(results))
}

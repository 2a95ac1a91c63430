package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/embedding/embeddingtest"
	"github.com/boilerplate-hub/repo-catalog/internal/github"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
	"github.com/boilerplate-hub/repo-catalog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Repository), args.Error(1)
}

type fixture struct {
	mr      *miniredis.Miniredis
	stub    *embeddingtest.StubProvider
	fetcher *MockFetcher
	service *Service
	clock   time.Time
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	opener, err := store.NewRedisOpener(store.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)

	repo := repository.New(opener, repository.Options{}, nil)
	stub := embeddingtest.NewStubProvider(nil)
	engine := search.NewEngine(repo, stub, search.Config{}, nil)
	fetcher := &MockFetcher{}

	f := &fixture{
		mr:      mr,
		stub:    stub,
		fetcher: fetcher,
		service: NewService(repo, engine, fetcher, stub, Config{}, nil),
		clock:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func (f *fixture) expectRepo(owner, name string, repo *github.Repository) {
	f.fetcher.On("GetRepository", mock.Anything, owner, name).Return(repo, nil)
}

func TestAddItem(t *testing.T) {
	f := setupService(t)
	f.expectRepo("acme", "widgets", &github.Repository{
		FullName:    "acme/widgets",
		Description: "A widget framework",
		Homepage:    "https://widgets.dev",
		IsTemplate:  true,
	})

	item, err := f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/widgets.git",
		URL:                 "tenant.example.com",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^item:\d+:[0-9a-f]{9}$`, item.ID)
	assert.Equal(t, "acme/widgets", item.RepositoryName)
	assert.Equal(t, "A widget framework", item.Description)
	assert.Equal(t, "https://widgets.dev", item.HomepageURL)
	assert.True(t, item.IsTemplate)
	assert.Equal(t, "my awesome boilerplate", item.Category)
	assert.Equal(t, item.CreatedAt, item.UpdatedAt)
	assert.Equal(t, "2025-03-01T12:00:01.000Z", item.CreatedAt)

	assert.Equal(t, []string{
		"A widget framework",
		"acme/widgets",
		"A widget framework acme/widgets",
	}, f.stub.Calls())

	for _, field := range []string{
		repository.FieldDescriptionEmbeddings,
		repository.FieldRepositoryEmbeddings,
		repository.FieldCombinedEmbeddings,
	} {
		assert.NotEmpty(t, f.mr.HGet(item.ID, field), field)
	}
	f.fetcher.AssertExpectations(t)
}

func TestAddItem_DefaultsFromSparseMetadata(t *testing.T) {
	f := setupService(t)
	f.expectRepo("acme", "bare", &github.Repository{})

	item, err := f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/bare/tree/main",
		URL:                 "tenant.example.com",
		Category:            "starter kits",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme/bare", item.RepositoryName)
	assert.Equal(t, "No description available", item.Description)
	assert.Equal(t, "starter kits", item.Category)
	assert.False(t, item.IsTemplate)
}

func TestAddItem_Validation(t *testing.T) {
	f := setupService(t)

	tests := []AddRequest{
		{URL: "tenant.example.com"},
		{GitHubRepositoryURL: "https://github.com/acme/widgets"},
		{GitHubRepositoryURL: "https://example.com/not-github", URL: "tenant.example.com"},
	}
	for _, req := range tests {
		_, err := f.service.AddItem(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	}
	f.fetcher.AssertNotCalled(t, "GetRepository", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_GitHubErrorsPropagate(t *testing.T) {
	f := setupService(t)
	rejected := apperrors.New(apperrors.ErrorTypeUpstreamRejected, "github.GetRepository", "Failed to fetch GitHub repository: 404", nil)
	f.fetcher.On("GetRepository", mock.Anything, "acme", "missing").Return(nil, rejected)

	_, err := f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/missing",
		URL:                 "tenant.example.com",
	})
	assert.ErrorIs(t, err, apperrors.ErrUpstreamRejected)
	assert.Empty(t, f.mr.Keys())
}

func TestAddItem_EmbeddingFailureWritesNothing(t *testing.T) {
	for _, failing := range []string{
		"A widget framework",
		"acme/widgets",
		"A widget framework acme/widgets",
	} {
		t.Run(failing, func(t *testing.T) {
			f := setupService(t)
			f.expectRepo("acme", "widgets", &github.Repository{FullName: "acme/widgets", Description: "A widget framework"})
			f.stub.FailOn(failing, errors.New("provider down"))

			_, err := f.service.AddItem(context.Background(), AddRequest{
				GitHubRepositoryURL: "https://github.com/acme/widgets",
				URL:                 "tenant.example.com",
			})
			assert.ErrorIs(t, err, apperrors.ErrEmbeddingFailure)
			assert.Empty(t, f.mr.Keys(), "nothing is persisted")
		})
	}
}

func TestGetAndDeleteItem_RequireID(t *testing.T) {
	f := setupService(t)

	_, err := f.service.GetItem(context.Background(), " ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.DeleteItem(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.GetItem(context.Background(), "item:unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListByURL_Validation(t *testing.T) {
	f := setupService(t)

	_, err := f.service.ListByURL(context.Background(), "  ", 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestListByURL_UnparsableTimestampsSortLast(t *testing.T) {
	f := setupService(t)

	f.mr.HSet("item:bad", repository.FieldURL, "a.com", repository.FieldCreatedAt, "yesterday")
	f.mr.HSet("item:old", repository.FieldURL, "a.com", repository.FieldCreatedAt, "2024-01-01T00:00:00.000Z")
	f.mr.HSet("item:new", repository.FieldURL, "a.com", repository.FieldCreatedAt, "2025-01-01T00:00:00.000Z")
	f.mr.HSet("item:other", repository.FieldURL, "b.com", repository.FieldCreatedAt, "2026-01-01T00:00:00.000Z")

	views, err := f.service.ListByURL(context.Background(), "a.com", 0)
	require.NoError(t, err)

	got := make([]string, len(views))
	for i, v := range views {
		got[i] = v.ID
	}
	assert.Equal(t, []string{"item:new", "item:old", "item:bad"}, got)
}

func TestEndToEnd_SearchFindsAddedItem(t *testing.T) {
	f := setupService(t)
	f.expectRepo("acme", "widgets", &github.Repository{FullName: "acme/widgets", Description: "A fast widget framework"})
	f.expectRepo("acme", "db", &github.Repository{FullName: "acme/db", Description: "An embedded database"})

	shared := []float32{0.9, 0.1, 0.3}
	f.stub.Set("A fast widget framework acme/widgets", shared)
	f.stub.Set("widget framework", shared)
	f.stub.Set("An embedded database acme/db", []float32{-0.2, 0.9, 0})

	added, err := f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/widgets",
		URL:                 "tenant.example.com",
	})
	require.NoError(t, err)
	_, err = f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/db",
		URL:                 "tenant.example.com",
	})
	require.NoError(t, err)

	results, err := f.service.Search(context.Background(), search.Request{Query: "widget framework"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, added.ID, results[0].ID)
	assert.GreaterOrEqual(t, results[0].Score, 0.9)
}

func TestEndToEnd_DescriptionSearch(t *testing.T) {
	f := setupService(t)
	f.expectRepo("acme", "widgets", &github.Repository{FullName: "acme/widgets", Description: "fast widget framework"})

	f.stub.Set("fast widget framework", []float32{0.9, 0.1, 0.3})
	f.stub.Set("widget framework", []float32{0.85, 0.15, 0.3})

	added, err := f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/widgets",
		URL:                 "tenant.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "my awesome boilerplate", added.Category)

	results, err := f.service.Search(context.Background(), search.Request{
		Query: "widget framework",
		Type:  search.TypeDescription,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, added.ID, results[0].ID)
	assert.Greater(t, results[0].Score, 0.9)
}

func TestEndToEnd_ListNewestFirst(t *testing.T) {
	f := setupService(t)
	for _, name := range []string{"one", "two", "three"} {
		f.expectRepo("acme", name, &github.Repository{FullName: "acme/" + name, Description: name})
	}
	f.expectRepo("acme", "elsewhere", &github.Repository{FullName: "acme/elsewhere"})

	var added []repository.ItemView
	for _, name := range []string{"one", "two", "three"} {
		item, err := f.service.AddItem(context.Background(), AddRequest{
			GitHubRepositoryURL: "https://github.com/acme/" + name,
			URL:                 "tenant.example.com",
		})
		require.NoError(t, err)
		added = append(added, item)
	}
	_, err := f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/elsewhere",
		URL:                 "other.example.com",
	})
	require.NoError(t, err)

	views, err := f.service.ListByURL(context.Background(), "tenant.example.com", 0)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, added[2].ID, views[0].ID)
	assert.Equal(t, added[1].ID, views[1].ID)
	assert.Equal(t, added[0].ID, views[2].ID)

	limited, err := f.service.ListByURL(context.Background(), "tenant.example.com", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestEndToEnd_DeleteThenGet(t *testing.T) {
	f := setupService(t)
	f.expectRepo("acme", "widgets", &github.Repository{FullName: "acme/widgets", Description: "widgets"})

	item, err := f.service.AddItem(context.Background(), AddRequest{
		GitHubRepositoryURL: "https://github.com/acme/widgets",
		URL:                 "tenant.example.com",
	})
	require.NoError(t, err)

	deleted, err := f.service.DeleteItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", deleted.RepositoryName)

	_, err = f.service.GetItem(context.Background(), item.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	keys, err := f.service.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestInitIndex(t *testing.T) {
	f := setupService(t)

	status, err := f.service.InitIndex(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Exists)

	status, err = f.service.InitIndex(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Exists)
}

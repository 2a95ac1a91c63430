package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/boilerplate-hub/repo-catalog/internal/catalog"
	"github.com/boilerplate-hub/repo-catalog/internal/embedding/embeddingtest"
	"github.com/boilerplate-hub/repo-catalog/internal/github"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
	"github.com/boilerplate-hub/repo-catalog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) catalogService {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(github.Repository{
			FullName:    "acme/widgets",
			Description: "Widget toolkit",
		})
	}))
	t.Cleanup(gh.Close)

	opener, err := store.NewRedisOpener(store.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)

	repo := repository.New(opener, repository.Options{}, nil)
	stub := embeddingtest.NewStubProvider(nil)
	engine := search.NewEngine(repo, stub, search.Config{}, nil)
	fetcher, err := github.NewClient(github.Config{BaseURL: gh.URL}, nil)
	require.NoError(t, err)
	return catalog.NewService(repo, engine, fetcher, stub, catalog.Config{}, nil)
}

func execute(t *testing.T, svc catalogService, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(func(context.Context) (catalogService, error) { return svc, nil }, &out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_ItemLifecycle(t *testing.T) {
	svc := newTestService(t)

	out, err := execute(t, svc, "add", "https://github.com/acme/widgets", "tenant.example.com", "--category", "starter")
	require.NoError(t, err)
	var added repository.ItemView
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, "acme/widgets", added.RepositoryName)
	assert.Equal(t, "starter", added.Category)

	out, err = execute(t, svc, "keys")
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{added.ID}, keys)

	out, err = execute(t, svc, "list", "tenant.example.com", "--limit", "5")
	require.NoError(t, err)
	var listed []repository.ItemView
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)

	out, err = execute(t, svc, "get", added.ID)
	require.NoError(t, err)
	assert.Contains(t, out, added.ID)

	out, err = execute(t, svc, "init-index")
	require.NoError(t, err)
	var status repository.IndexStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.Exists)
	assert.Equal(t, 1, status.Indexed)

	_, err = execute(t, svc, "delete", added.ID)
	require.NoError(t, err)

	_, err = execute(t, svc, "get", added.ID)
	assert.Error(t, err)
}

func TestCommands_Search(t *testing.T) {
	svc := newTestService(t)

	_, err := execute(t, svc, "add", "https://github.com/acme/widgets", "tenant.example.com")
	require.NoError(t, err)

	out, err := execute(t, svc, "search", "Widget toolkit", "--type", "description")
	require.NoError(t, err)
	var results []search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	_, err = execute(t, svc, "search", "x", "--type", "readme")
	assert.Error(t, err)
}

func TestCommands_ArgumentsAndOpenErrors(t *testing.T) {
	svc := newTestService(t)

	_, err := execute(t, svc, "get")
	assert.Error(t, err)

	var out bytes.Buffer
	cmd := newRootCmd(func(context.Context) (catalogService, error) {
		return nil, errors.New("store.url is required")
	}, &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"keys"})
	assert.ErrorContains(t, cmd.Execute(), "store.url is required")
	assert.Empty(t, out.String())
}

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes('manuals')/search.stats", r.URL.Path)
		assert.Equal(t, "2023-11-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		w.Write([]byte(`{"documentCount": 42, "storageSize": 1024}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	ok, err := c.Exists(context.Background(), "manuals")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExistsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	ok, err := c.Exists(context.Background(), "missing")
	require.NoError(t, err, "a missing index is a steady state, not an error")
	assert.False(t, ok)
}

func TestExistsEmptyIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documentCount": 0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	ok, err := c.Exists(context.Background(), "empty")
	require.NoError(t, err)
	assert.False(t, ok, "an index with no documents is not ready")
}

func TestExistsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	_, err := c.Exists(context.Background(), "manuals")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blacktop/skymirror/internal/mirror"
)

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("media bytes"))
	}))
	defer server.Close()

	got, err := NewFetcher().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, []byte("media bytes"), got)
}

func TestFetchNon2xxFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewFetcher().Fetch(context.Background(), server.URL)
	var fetchErr mirror.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, server.URL, fetchErr.URL)
}

func TestFetchEnforcesReadCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("way more than four bytes"))
	}))
	defer server.Close()

	f := NewFetcher()
	f.MaxBytes = 4
	_, err := f.Fetch(context.Background(), server.URL)
	var fetchErr mirror.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFetchUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewFetcher().Fetch(context.Background(), url)
	var fetchErr mirror.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"snatchbot/feed"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBody(t *testing.T) {
	var gotOutput, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOutput = r.URL.Query().Get("output")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"Mort": {"C7": {}}}`))
	}))
	defer server.Close()

	client := feed.NewClient(server.URL, "snatchbot test")
	body, err := client.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, `{"Mort": {"C7": {}}}`, string(body))
	assert.Equal(t, "json", gotOutput)
	assert.Equal(t, "snatchbot test", gotAgent)
}

func TestFetchKeepsEndpointQuery(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := feed.NewClient(server.URL+"?org=42", "")
	_, err := client.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, gotQuery["org"])
	assert.Equal(t, []string{"json"}, gotQuery["output"])
}

func TestFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := feed.NewClient(server.URL, "")
	_, err := client.Fetch(context.Background())

	var transportErr *feed.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestFetchConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := feed.NewClient(server.URL, "")
	_, err := client.Fetch(context.Background())

	var transportErr *feed.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestFetchContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := feed.NewClient(server.URL, "")
	_, err := client.Fetch(ctx)

	var transportErr *feed.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

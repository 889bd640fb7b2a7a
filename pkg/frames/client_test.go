package frames

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "framegen/pkg/errors"
	"framegen/pkg/logger"
)

func newTestClient(t *testing.T) (*Client, *httptest.Server, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(server.URL+"/api/search", server.URL+"/img", 5*time.Second, logger.NewNopLogger())
	return client, server, mux
}

func TestSearch(t *testing.T) {
	client, _, mux := newTestClient(t)

	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tastes like burning", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"Id": 1, "Episode": "S04E12", "Timestamp": 100},
			{"Id": 2, "Episode": "S08E25", "Timestamp": 31337},
		})
	})

	results, err := client.Search("tastes like burning")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Frame{Episode: "S04E12", Timestamp: 100}, results[0])
	assert.Equal(t, "S04E12_100", results[0].Key())
	assert.Equal(t, "S08E25_31337.jpg", results[1].Filename())
}

func TestSearchServerError(t *testing.T) {
	client, _, mux := newTestClient(t)

	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Search("unpossible")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestSearchMalformedJSON(t *testing.T) {
	client, _, mux := newTestClient(t)

	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	})

	_, err := client.Search("me fail English")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

func TestSearchUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/api/search", "http://127.0.0.1:1/img", time.Second, logger.NewNopLogger())

	_, err := client.Search("I'm Idaho")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestImageURL(t *testing.T) {
	client := NewClient("http://example.com/api/search", "http://example.com/img", time.Second, logger.NewNopLogger())

	url := client.ImageURL(Frame{Episode: "S04E12", Timestamp: 100})
	assert.Equal(t, "http://example.com/img/S04E12/100.jpg", url)
}

func TestDownloadFrame(t *testing.T) {
	client, _, mux := newTestClient(t)

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	mux.HandleFunc("/img/S04E12/100.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write(jpeg)
	})

	data, err := client.DownloadFrame(Frame{Episode: "S04E12", Timestamp: 100})
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)
}

func TestDownloadFrameNotFound(t *testing.T) {
	client, _, mux := newTestClient(t)

	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.DownloadFrame(Frame{Episode: "S99E99", Timestamp: 1})
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNotFound, errs.TypeOf(err))
}

package capability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genweave/genweave/pkg/graph"
)

func TestClient_FetchCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/object_info", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleObjectInfo))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	catalog, err := client.FetchCatalog(t.Context())
	require.NoError(t, err)
	assert.Contains(t, catalog, "KSampler")
	assert.Contains(t, catalog, "SaveImage")
}

func TestClient_FetchCatalog_EngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.FetchCatalog(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_SubmitPrompt(t *testing.T) {
	var received struct {
		Prompt   map[string]json.RawMessage `json:"prompt"`
		ClientID string                     `json:"client_id"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/prompt", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prompt_id": "abc-123", "number": 1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	b := graph.NewBuilder()
	b.AddNode("EmptyLatentImage", map[string]graph.InputValue{
		"width":  graph.Lit(512),
		"height": graph.Lit(512),
	})

	promptID, err := client.SubmitPrompt(t.Context(), b.Graph())
	require.NoError(t, err)
	assert.Equal(t, "abc-123", promptID)

	assert.Equal(t, client.ClientID(), received.ClientID)
	assert.Contains(t, received.Prompt, "1")
}

func TestClient_SubmitPrompt_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid prompt"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	b := graph.NewBuilder()
	b.AddNode("SaveImage", nil)

	_, err := client.SubmitPrompt(t.Context(), b.Graph())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

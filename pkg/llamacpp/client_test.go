package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/design-overlay/pkg/client"
)

func newServer(t *testing.T, status int, reply any, got *ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocatePrintZone(t *testing.T) {
	var got ChatCompletionRequest
	srv := newServer(t, http.StatusOK, map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{
				"role":    "assistant",
				"content": "```json\n{\"zone\":{\"label\":\"front\",\"confidence\":0.7,\"box\":{\"x\":0.3,\"y\":0.25,\"w\":0.4,\"h\":0.4}},\"tags\":[\"mug\"]}\n```",
			},
		}},
	}, &got)

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	res, err := c.LocatePrintZone(context.Background(), "minicpm-v", "locate", "iVBORw0KGgo=")
	require.NoError(t, err)
	assert.Equal(t, "front", res.Zone.Label)
	assert.InDelta(t, 0.25, res.Zone.Box.Y, 1e-9)

	assert.Equal(t, "minicpm-v", got.Model)
	require.Len(t, got.Messages, 1)
	raw, err := json.Marshal(got.Messages[0].Content)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "data:image/png;base64,iVBORw0KGgo=")
}

func TestLocatePrintZoneGarbageFallsBack(t *testing.T) {
	srv := newServer(t, http.StatusOK, map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "Sorry, no idea."}}},
	}, nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	res, err := c.LocatePrintZone(context.Background(), "m", "p", "")
	require.NoError(t, err)
	assert.Equal(t, client.FallbackZone, res.Zone.Box)
}

func TestSimpleQueryArrayContent(t *testing.T) {
	srv := newServer(t, http.StatusOK, map[string]any{
		"choices": []map[string]any{{"message": map[string]any{
			"role":    "assistant",
			"content": []map[string]any{{"type": "text", "text": "A red hoodie."}},
		}}},
	}, nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	out, err := c.SimpleQuery(context.Background(), "m", "describe", "/9j/4AAQ")
	require.NoError(t, err)
	assert.Equal(t, "A red hoodie.", out)
}

func TestErrors(t *testing.T) {
	_, err := NewClient("localhost:8080")
	assert.Error(t, err)

	srv := newServer(t, http.StatusInternalServerError, map[string]string{"error": "model not loaded"}, nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.LocatePrintZone(context.Background(), "m", "p", "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "500"))

	empty := newServer(t, http.StatusOK, map[string]any{"choices": []any{}}, nil)
	c, err = NewClient(empty.URL)
	require.NoError(t, err)
	_, err = c.SimpleQuery(context.Background(), "m", "p", "")
	assert.Error(t, err)
}

func TestSniffMime(t *testing.T) {
	assert.Equal(t, "image/png", sniffMime("iVBORw0KGgo"))
	assert.Equal(t, "image/webp", sniffMime("UklGRiQAAABXRUJQ"))
	assert.Equal(t, "image/jpeg", sniffMime("/9j/4AAQ"))
}

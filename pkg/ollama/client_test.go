package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("localhost")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:11434/api/chat")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestLocatePrintZone(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.ChatResponse{
			Model: got.Model,
			Message: api.Message{
				Role:    "assistant",
				Content: `{"zone":{"label":"front","confidence":0.9,"box":{"x":0.3,"y":0.2,"w":0.4,"h":0.5}},"description":"hoodie","tags":["hoodie"]}`,
			},
			Done: true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	img := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))
	res, err := c.LocatePrintZone(context.Background(), "llava", "locate", img)
	require.NoError(t, err)

	assert.Equal(t, "llava", got.Model)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Images, 1)
	assert.Equal(t, "fake image bytes", string(got.Messages[0].Images[0]))

	assert.Equal(t, "front", res.Zone.Label)
	assert.InDelta(t, 0.5, res.Zone.Box.H, 1e-9)
}

func TestLocatePrintZoneRejectsBadImage(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = c.LocatePrintZone(context.Background(), "llava", "locate", "%%% not base64")
	assert.Error(t, err)
}

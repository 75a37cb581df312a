package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/errx"
)

func TestClient_Complete(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}
		}`))
	}))
	defer server.Close()

	c, err := NewClient(context.Background(), "g-key", server.URL, "gemini-1.5-pro")
	require.NoError(t, err)

	res, err := c.Complete(context.Background(), analysis.Completion{
		SystemPrompt: "sys",
		UserContent:  "user",
		Config:       analysis.ModelConfig{ProviderModel: "gemini-1.5-flash", MaxOutputTokens: 1500, Temperature: 0.7},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "gemini-1.5-flash:generateContent"), path)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 5, res.Usage.TotalTokens)
}

func TestClient_CompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	c, err := NewClient(context.Background(), "bad", server.URL, "gemini-1.5-pro")
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), analysis.Completion{Config: analysis.ModelConfig{ProviderModel: "gemini-1.5-pro"}})
	require.Error(t, err)

	var e *errx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errx.KindUpstreamProvider, e.Kind)
	assert.Equal(t, "Google Gemini", e.Provider)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, "API key not valid", e.Body)
}

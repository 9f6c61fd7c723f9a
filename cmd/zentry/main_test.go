package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func localStore(t *testing.T) []string {
	t.Helper()
	return []string{"--store", "local", "--store_path", t.TempDir(), "--memory.user_id", "alice"}
}

func TestMemoriesCommands(t *testing.T) {
	store := localStore(t)

	out, err := run(t, append([]string{"memories", "add", "I love SUVs"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "stored")

	out, err = run(t, append([]string{"memories", "search", "Suggest a car"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Memory: I love SUVs")

	// the last --memory.user_id wins, so bob goes after the shared store flags
	args := append(append([]string{"memories", "search"}, store...), "--memory.user_id", "bob", "Suggest a car")
	out, err = run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "no memories")
}

func TestGenerateCommand(t *testing.T) {
	store := localStore(t)
	_, err := run(t, append([]string{"memories", "add", "I love SUVs"}, store...)...)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.Contains(string(body), "I love SUVs"), "memories are sent to the provider")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Try a Rav4."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}
		}`))
	}))
	t.Cleanup(server.Close)
	t.Setenv("ZENTRY_PROVIDER_API_KEY", "test-key")

	args := append([]string{"generate", "--provider", "openai", "--base_url", server.URL, "Suggest a car"}, store...)
	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Zentry Memories")
	assert.Contains(t, out, "Rav4")

	// generate waits for its background write before returning
	out, err = run(t, append([]string{"memories", "search", "--memory.top_k", "5", "cars"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Memory: Suggest a car")
}

func TestUnsupportedProvider(t *testing.T) {
	_, err := run(t, append([]string{"generate", "--provider", "mistral", "Hi"}, localStore(t)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not supported")
}

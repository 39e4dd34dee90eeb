package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

func TestNewClientValidation(t *testing.T) {
	logger := zerolog.Nop()

	_, err := NewClient(&Config{BaseURL: "", Timeout: time.Second}, logger)
	assert.Error(t, err)

	_, err = NewClient(&Config{BaseURL: "not a url", Timeout: time.Second}, logger)
	assert.Error(t, err)

	_, err = NewClient(&Config{BaseURL: "https://api.example.com", Timeout: 0}, logger)
	assert.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time", r.URL.Path)
		assert.Equal(t, "nakula-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	t.Cleanup(server.Close)

	config := testConfig(server.URL)
	config.Headers = map[string]string{"User-Agent": "nakula-test"}

	client, err := NewClient(config, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	req, err := client.Request()
	require.NoError(t, err)

	resp, err := req.Get("/time")
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.JSONEq(t, `{"ok": true}`, string(resp.Bytes()))
}

func TestCloseIsIdempotent(t *testing.T) {
	client, err := NewClient(testConfig("https://api.example.com"), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err = client.Request()
	assert.ErrorIs(t, err, core.ErrClientClosed)
}

func TestBaseURL(t *testing.T) {
	client, err := NewClient(testConfig("https://api.example.com"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "https://api.example.com", client.BaseURL())
}

package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"testing"

	"github.com/stretchr/testify/require"
)

// newBrowser is an HTTP client with a cookie jar that doesn't follow
// redirects.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func getJSON[T any](t *testing.T, c *http.Client, url string, wantStatus int) T {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	return readJSON[T](t, resp, wantStatus)
}

func postJSON[T any](t *testing.T, c *http.Client, url string, body any, wantStatus int) T {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	resp, err := c.Post(url, "application/json", r)
	require.NoError(t, err)
	return readJSON[T](t, resp, wantStatus)
}

func readJSON[T any](t *testing.T, resp *http.Response, wantStatus int) T {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "body: %s", body)

	var out T
	require.NoError(t, json.Unmarshal(body, &out), "body: %s", body)
	return out
}

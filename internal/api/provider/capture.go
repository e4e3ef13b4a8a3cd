package provider

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxCapturedBody bounds how much of a token response is kept for Details.
const maxCapturedBody = 16 << 10

// captureTransport keeps a copy of the last response body it saw. One is
// made per exchange.
type captureTransport struct {
	base http.RoundTripper
	body []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := c.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	c.body = raw
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}

// redactTokens masks bearer credentials in a JSON token response. Anything
// that isn't a JSON object is returned trimmed and otherwise untouched.
func redactTokens(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, k := range []string{"access_token", "refresh_token", "id_token"} {
		if _, ok := fields[k]; ok {
			fields[k] = "[redacted]"
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(out)
}

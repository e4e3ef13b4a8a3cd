package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/collab/pkg/httpx"
	"github.com/aussiebroadwan/collab/pkg/jwtx"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, remoteAddr string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"remote addr", nil, "192.168.1.1"},
		{"forwarded for wins", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1", "X-Real-IP": "203.0.113.2"}, "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.2 "}, "203.0.113.2"},
		{"empty forwarded for", map[string]string{"X-Forwarded-For": " ,10.0.0.1"}, "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("username")

	t.Run("reads and restores the body", func(t *testing.T) {
		body := `{"username":" Alice ","password":"secret"}`
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))

		require.Equal(t, "alice", extract(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	for name, body := range map[string]string{
		"missing field": `{"password":"x"}`,
		"not a string":  `{"username":42}`,
		"not json":      `username=alice`,
		"empty":         ``,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			require.Empty(t, extract(req))
		})
	}
}

func TestCompositeKeyExtractor(t *testing.T) {
	a := func(*http.Request) string { return "a" }
	none := func(*http.Request) string { return "" }
	b := func(*http.Request) string { return "b" }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "a:b", httpx.CompositeKeyExtractor(":", a, none, b)(req))
	require.Empty(t, httpx.CompositeKeyExtractor(":", none)(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}

	t.Run("blocks once the burst is spent", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, serve(h, "192.168.1.1:1").Code, "request %d", i+1)
		}

		rec := serve(h, "192.168.1.1:1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "20", rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.JSONEq(t, `{"error":"rate_limit_exceeded","error_description":"Too many requests. Please try again later."}`, rec.Body.String())
	})

	t.Run("rejections don't consume tokens", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute, Burst: 1}, httpx.IPKeyExtractor)(okHandler)

		require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1").Code)
		for range 3 {
			require.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.1:1").Code)
		}

		time.Sleep(1100 * time.Millisecond)
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1").Code)
	})

	t.Run("keys are independent", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, httpx.IPKeyExtractor)(okHandler)

		require.Equal(t, http.StatusOK, serve(h, "192.168.1.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, "192.168.1.1:1").Code)
		require.Equal(t, http.StatusOK, serve(h, "192.168.1.2:1").Code)
	})

	t.Run("unkeyed requests pass", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, "192.168.1.1:1").Code)
		}
	})
}

func TestRateLimitByUser(t *testing.T) {
	h := httpx.RateLimitByUser(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

	as := func(sub string) func(*http.Request) {
		return func(r *http.Request) {
			var c jwtx.Claims
			c.Subject = sub
			*r = *r.WithContext(httpx.ContextWithClaims(r.Context(), c))
		}
	}

	require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1", as("alice")).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.1:1", as("alice")).Code)
	require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1", as("bob")).Code, "same address, different user")
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	h := httpx.RateLimitByIPAndJSONField(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, "username")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The handler still sees the whole body.
			b, _ := io.ReadAll(r.Body)
			require.Contains(t, string(b), "password")
			w.WriteHeader(http.StatusOK)
		}),
	)

	login := func(username string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"`+username+`","password":"x"}`))
		req.RemoteAddr = "10.0.0.1:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, login("alice"))
	require.Equal(t, http.StatusTooManyRequests, login("ALICE"))
	require.Equal(t, http.StatusOK, login("bob"))
}

func TestRateLimitProfiles(t *testing.T) {
	for name, cfg := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
		"public":   httpx.PublicLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, cfg.RequestsPerWindow)
			require.Positive(t, cfg.Window)
			require.Positive(t, cfg.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
	require.Less(t, httpx.LenientLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	t.Run("defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.ParseRateLimitFromEnv("UNSET", def))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "100")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_TEST_BURST", "50")

		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 100, Window: 30 * time.Second, Burst: 50},
			httpx.ParseRateLimitFromEnv("TEST", def))
	})

	t.Run("partial", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_BURST", "3")

		got := httpx.ParseRateLimitFromEnv("TEST", def)
		require.Equal(t, 10, got.RequestsPerWindow)
		require.Equal(t, 3, got.Burst)
	})

	t.Run("non-positive keeps default", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "-1")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "0")

		require.Equal(t, def, httpx.ParseRateLimitFromEnv("TEST", def))
	})

	t.Run("garbage discards the override", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "100")
		t.Setenv("RATELIMIT_TEST_BURST", "lots")

		require.Equal(t, def, httpx.ParseRateLimitFromEnv("TEST", def))
	})
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1 << 30, Window: time.Minute, Burst: 1 << 20})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}

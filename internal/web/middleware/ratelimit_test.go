package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func rateLimitedHandler(rps, burst int) http.Handler {
	rl := NewRateLimiter(rps, burst)
	return rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(h http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	h := rateLimitedHandler(1, 3)

	for i := 0; i < 3; i++ {
		if code := doRequest(h, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, code)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	h := rateLimitedHandler(1, 2)

	doRequest(h, "10.0.0.1:1234")
	doRequest(h, "10.0.0.1:1234")
	if code := doRequest(h, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", code)
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	h := rateLimitedHandler(1, 1)

	if code := doRequest(h, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first client: status = %d, want 200", code)
	}
	if code := doRequest(h, "10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Fatalf("same IP, new port: status = %d, want 429 (limits are per IP)", code)
	}
	if code := doRequest(h, "10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("second client: status = %d, want 200", code)
	}
}

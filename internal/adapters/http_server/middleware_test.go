package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeout_JSONBody(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	rr := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(rr, httptest.NewRequest("GET", "/api/geocode", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	if rr.Body.String() != `{"error":"timeout"}` {
		t.Fatalf("body %q", rr.Body.String())
	}
}

func TestTimeout_HandlerContentTypeWins(t *testing.T) {
	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	Timeout(time.Second)(fast).ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" || rr.Body.String() != "ok" {
		t.Fatalf("got %q %q", ct, rr.Body.String())
	}
}

package google_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"campmap/internal/adapters/google"
	"campmap/internal/domain"
)

func okBody() map[string]any {
	return map[string]any{
		"status": "OK",
		"results": []any{map[string]any{
			"formatted_address": "Oliwa, Gdańsk, Polska",
			"geometry":          map[string]any{"location": map[string]any{"lat": 54.41, "lng": 18.56}},
		}},
	}
}

func TestClient_Lookup_SendsAddressAndKey(t *testing.T) {
	var gotAddr, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddr = r.URL.Query().Get("address")
		gotKey = r.URL.Query().Get("key")
		_ = json.NewEncoder(w).Encode(okBody())
	}))
	defer ts.Close()

	cl := google.New(ts.URL, 100, time.Second, 1)
	res, err := cl.Lookup(context.Background(), "Oliwa, Gdańsk", "secret")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotAddr != "Oliwa, Gdańsk" || gotKey != "secret" {
		t.Fatalf("unexpected query: address=%q key=%q", gotAddr, gotKey)
	}
	if res.Status != "OK" || len(res.Results) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c := res.Results[0]; c.Lat != 54.41 || c.Lng != 18.56 || c.Formatted != "Oliwa, Gdańsk, Polska" {
		t.Fatalf("unexpected coords: %+v", c)
	}
}

func TestClient_Lookup_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(500)
			return
		}
		_ = json.NewEncoder(w).Encode(okBody())
	}))
	defer ts.Close()

	cl := google.New(ts.URL, 100, time.Second, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cl.Lookup(ctx, "a", "k"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Lookup_BadStatusIsUpstreamUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl := google.New(ts.URL, 100, time.Second, 3)
	_, err := cl.Lookup(context.Background(), "a", "k")
	var de *domain.Error
	if !asDomain(err, &de) || de.Kind != domain.KindUpstreamUnavailable || de.Status != 403 {
		t.Fatalf("expected upstream unavailable 403, got %v", err)
	}
}

func TestClient_Lookup_TransportErrorHidesKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	cl := google.New(ts.URL, 100, 20*time.Millisecond, 1)
	_, err := cl.Lookup(context.Background(), "a", "top-secret")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if domain.KindOf(err) != domain.KindUpstreamUnavailable {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
	var de *domain.Error
	asDomain(err, &de)
	if de.Err != nil && strings.Contains(de.Err.Error(), "top-secret") {
		t.Fatalf("key leaked in error: %v", de.Err)
	}
	if strings.Contains(err.Error(), "top-secret") {
		t.Fatalf("key leaked in error: %v", err)
	}
}

func asDomain(err error, out **domain.Error) bool {
	de, ok := err.(*domain.Error)
	if ok {
		*out = de
	}
	return ok
}

func TestClient_Lookup_RetriesWaitOnLimiter(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(okBody())
	}))
	defer ts.Close()

	// one request per second: the retry must wait for its token, not only
	// for the ~200ms backoff
	cl := google.New(ts.URL, 1, time.Second, 2)
	start := time.Now()
	if _, err := cl.Lookup(context.Background(), "a", "k"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if el := time.Since(start); el < 800*time.Millisecond {
		t.Fatalf("retry bypassed the limiter: second attempt after %v", el)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 calls, got %d", hits)
	}
}

func TestClient_Lookup_DeadlineSharedByRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	cl := google.New(ts.URL, 100, 10*time.Second, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := cl.Lookup(ctx, "a", "k")
	if time.Since(start) > 2*time.Second {
		t.Fatalf("retries outlived the caller deadline")
	}
	var de *domain.Error
	if !asDomain(err, &de) || de.Kind != domain.KindUpstreamUnavailable || de.Status != 0 {
		t.Fatalf("expected upstream unavailable without status, got %v", err)
	}
}

package ddns_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"

	ddns "github.com/ali-hazime/cloudflare-ddns-client"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "192.168.2.1")
	}))
	defer srv.Close()
	wr := ddns.WebResolver(srv.URL)
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("192.168.2.1"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestLookupTrimsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "  93.184.216.34\n")
	}))
	defer srv.Close()
	wr := ddns.WebResolver(srv.URL)
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("93.184.216.34"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestFirstServiceWins(t *testing.T) {
	var mu sync.Mutex
	var secondHit bool
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "198.51.100.7")
	}))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		secondHit = true
		mu.Unlock()
		io.WriteString(w, "198.51.100.8")
	}))
	defer second.Close()

	wr := ddns.WebResolver(first.URL, second.URL)
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("198.51.100.7"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
	mu.Lock()
	if secondHit {
		t.Error("Expected the second service to be skipped after the first succeeded")
	}
	mu.Unlock()
}

func TestFallsThroughToNextService(t *testing.T) {
	// first errors at the HTTP level, second returns garbage, third works
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not an ip</html>")
	}))
	defer garbage.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "203.0.113.9\n")
	}))
	defer good.Close()

	wr := ddns.WebResolver(bad.URL, garbage.URL, good.URL)
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("203.0.113.9"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestAllServicesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wr := ddns.WebResolver(srv.URL, srv.URL, srv.URL)
	res, err := wr.Resolve(context.Background())
	if err == nil {
		t.Fatal("Expected error response; got err == nil")
	}
	if res.IsValid() {
		t.Fatalf("Expected the zero Addr; got %+v", res)
	}
}

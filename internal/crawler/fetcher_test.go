package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchPage(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><title>ok</title></html>"))
		case "/redirect":
			http.Redirect(w, r, "/", http.StatusMovedPermanently)
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("not html"))
		case "/missing":
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher("", 0)
	defer fetcher.Close()
	ctx := context.Background()

	t.Run("html page", func(t *testing.T) {
		result, ok := fetcher.FetchPage(ctx, server.URL+"/", time.Second)
		if !ok {
			t.Fatal("expected successful fetch")
		}
		if result.StatusCode != 200 {
			t.Errorf("status = %d", result.StatusCode)
		}
		if !strings.Contains(string(result.Body), "<title>ok</title>") {
			t.Errorf("body = %q", result.Body)
		}
		if !strings.Contains(gotUserAgent, "PageLens") {
			t.Errorf("identifying user-agent not sent: %q", gotUserAgent)
		}
	})

	t.Run("redirect followed to final URL", func(t *testing.T) {
		result, ok := fetcher.FetchPage(ctx, server.URL+"/redirect", time.Second)
		if !ok {
			t.Fatal("expected successful fetch")
		}
		if result.URL != server.URL+"/" {
			t.Errorf("final URL = %q, want %q", result.URL, server.URL+"/")
		}
	})

	t.Run("non-HTML discarded", func(t *testing.T) {
		if _, ok := fetcher.FetchPage(ctx, server.URL+"/image", time.Second); ok {
			t.Error("expected non-HTML response to be discarded")
		}
	})

	t.Run("non-2xx discarded", func(t *testing.T) {
		if _, ok := fetcher.FetchPage(ctx, server.URL+"/missing", time.Second); ok {
			t.Error("expected 404 to be discarded")
		}
	})

	t.Run("malformed URL", func(t *testing.T) {
		if _, ok := fetcher.FetchPage(ctx, "http://bad url", time.Second); ok {
			t.Error("expected malformed URL to fail")
		}
	})
}

func TestFetchPageTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	fetcher := NewFetcher("", 0)
	defer fetcher.Close()

	start := time.Now()
	_, ok := fetcher.FetchPage(context.Background(), server.URL+"/", 50*time.Millisecond)
	if ok {
		t.Fatal("expected timeout to fail the fetch")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fetch did not respect timeout, took %v", elapsed)
	}
}

func TestFetchDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer server.Close()

	fetcher := NewFetcher("", 0)
	defer fetcher.Close()

	body, ok := fetcher.FetchDocument(context.Background(), server.URL+"/robots.txt", time.Second)
	if !ok {
		t.Fatal("expected document fetch to succeed")
	}
	if !strings.Contains(string(body), "Disallow") {
		t.Errorf("body = %q", body)
	}

	if _, ok := fetcher.FetchDocument(context.Background(), server.URL+"/absent.txt", time.Second); ok {
		t.Error("expected absent document to fail")
	}
}

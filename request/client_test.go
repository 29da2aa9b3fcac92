package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

func TestExecuteRejectsNonHTTPScheme(t *testing.T) {
	client := NewClient(ClientConfig{})
	for _, url := range []string{"ftp://example.com/file", "file:///tmp/x", "example.com/no-scheme"} {
		_, err := client.Execute(http.MethodGet, url, nil, nil)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Execute(%q): expected ErrInvalidURL, got %v", url, err)
		}
	}
}

func TestExecuteBaseHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Timeout: 5 * time.Second})
	resp, err := client.Execute(http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	resp.Body.Close()

	if !slices.Contains(userAgents, gotUA) {
		t.Errorf("User-Agent %q not from the identity pool", gotUA)
	}
	if gotLang != "en-US,en" {
		t.Errorf("expected Accept-Language 'en-US,en', got %q", gotLang)
	}
}

func TestExecuteHeaderOverride(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(ClientConfig{UserAgent: "custom-agent"})
	resp, err := client.Execute(http.MethodGet, server.URL, map[string]string{"User-Agent": "per-call-agent"}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	resp.Body.Close()

	if gotUA != "per-call-agent" {
		t.Errorf("expected per-call header to win, got %q", gotUA)
	}
}

func TestPostEncodesJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	body, err := client.Post(server.URL, nil, map[string]string{"videoId": "abc123"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("expected response 'ok', got %q", body)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected content type application/json, got %q", gotContentType)
	}
	if gotBody["videoId"] != "abc123" {
		t.Errorf("body not JSON-encoded as expected: %v", gotBody)
	}
}

func TestExecuteRawBodyPassthrough(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	resp, err := client.Execute(http.MethodPost, server.URL, nil, []byte{0x00, 0x01, 0xff})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	resp.Body.Close()

	if string(gotBody) != string([]byte{0x00, 0x01, 0xff}) {
		t.Errorf("raw body was re-encoded: %v", gotBody)
	}
}

func TestHeadLowercasesHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Length", "2048")
		w.Header().Set("X-Custom-Header", "value")
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	headers, err := client.Head(server.URL)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if headers["content-length"] != "2048" {
		t.Errorf("expected content-length 2048, got %q", headers["content-length"])
	}
	if headers["x-custom-header"] != "value" {
		t.Errorf("expected lowercase custom header, got %v", headers)
	}
}

package download

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/LilHomer/pytube/request"
)

func serveRange(w http.ResponseWriter, r *http.Request, data []byte) {
	var start, end int64
	if _, err := fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-%d", &start, &end); err != nil {
		// Plain GET (segment 0 of a sequential size probe etc.).
		w.Write(data)
		return
	}
	if end >= int64(len(data)) {
		end = int64(len(data)) - 1
	}
	body := data[start : end+1]
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(body)
}

func TestRunWritesFile(t *testing.T) {
	data := bytes.Repeat([]byte("pullstream"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveRange(w, r, data)
	}))
	defer server.Close()

	outputPath := filepath.Join(t.TempDir(), "out", "file.bin")
	var last int64
	err := Run(Config{
		URL:        server.URL,
		OutputPath: outputPath,
		Progress: func(downloaded int64) {
			if downloaded < last {
				t.Errorf("progress went backwards: %d after %d", downloaded, last)
			}
			last = downloaded
		},
	}, request.NewClient(request.ClientConfig{}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("output file differs from resource: %d vs %d bytes", len(got), len(data))
	}
	if last != int64(len(data)) {
		t.Errorf("expected final progress %d, got %d", len(data), last)
	}
	if _, err := os.Stat(outputPath + ".part"); !os.IsNotExist(err) {
		t.Error("temporary .part file should be renamed away")
	}
}

func TestRunSequential(t *testing.T) {
	segments := map[string][]byte{
		"0": []byte("Segment-Count: 2\r\n"),
		"1": []byte("first segment body"),
		"2": []byte("second segment body"),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := segments[r.URL.Query().Get("sq")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		serveRange(w, r, data)
	}))
	defer server.Close()

	outputPath := filepath.Join(t.TempDir(), "seq.bin")
	err := Run(Config{
		URL:        server.URL + "/videoplayback?id=abc",
		OutputPath: outputPath,
		Sequential: true,
	}, request.NewClient(request.ClientConfig{}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := append(append(append([]byte(nil), segments["0"]...), segments["1"]...), segments["2"]...)
	if !bytes.Equal(got, want) {
		t.Errorf("expected concatenated segments, got %q", got)
	}
}

func TestRunPropagatesFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	outputPath := filepath.Join(t.TempDir(), "fail.bin")
	err := Run(Config{URL: url, OutputPath: outputPath}, request.NewClient(request.ClientConfig{}))
	if err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Error("failed download must not leave a finalized output file")
	}
}

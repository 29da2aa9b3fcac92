// Package download writes a fetched resource to disk, pulling chunks
// from the request layer one at a time.
package download

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/LilHomer/pytube/request"
)

// Config describes one download to disk.
type Config struct {
	URL        string
	OutputPath string
	Sequential bool
	MaxRetries int
	// Progress, when set, receives the cumulative byte count after
	// every chunk.
	Progress func(downloaded int64)
}

// chunkSource is what both stream kinds expose.
type chunkSource interface {
	Next() ([]byte, error)
	Close() error
}

// Run downloads cfg.URL into cfg.OutputPath via a temporary .part
// file that is renamed once the stream is exhausted. Streams are not
// resumable, so a pre-existing .part file is always truncated.
func Run(cfg Config, client *request.Client) error {
	outputDir := filepath.Dir(cfg.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %v", err)
	}
	tempOutputPath := fmt.Sprintf("%s.part", cfg.OutputPath)
	outFile, err := os.OpenFile(tempOutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error creating output file: %v", err)
	}
	defer outFile.Close()

	streamCfg := request.StreamConfig{URL: cfg.URL, MaxRetries: cfg.MaxRetries}
	var stream chunkSource
	if cfg.Sequential {
		stream = client.SeqStream(streamCfg)
	} else {
		stream = client.Stream(streamCfg)
	}
	defer stream.Close()

	log.Debug().Str("op", "download").Str("url", cfg.URL).Bool("sequential", cfg.Sequential).Msg("Starting download")
	var downloaded int64
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error fetching %s: %v", cfg.URL, err)
		}
		if _, err := outFile.Write(chunk); err != nil {
			return fmt.Errorf("error writing to output file: %v", err)
		}
		downloaded += int64(len(chunk))
		if cfg.Progress != nil {
			cfg.Progress(downloaded)
		}
	}
	if err := os.Rename(tempOutputPath, cfg.OutputPath); err != nil {
		return fmt.Errorf("error renaming (finalizing) output file: %v", err)
	}
	log.Debug().Str("op", "download").Int64("bytes", downloaded).Msg("Download completed")
	return nil
}

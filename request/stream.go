package request

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// DefaultRangeSize is the number of bytes requested per range window
// (9MB, what the segment servers hand out without throttling).
const DefaultRangeSize int64 = 9437184

// readBufferSize bounds a single body read, and therefore the largest
// chunk handed to the consumer.
const readBufferSize int64 = 2 * 1024 * 1024

// oversizedRange is the probe window used to learn the true total size
// from the Content-Length of the response.
const oversizedRange = "bytes=0-99999999999"

// StreamConfig describes one fetch. RangeSize defaults to
// DefaultRangeSize when zero.
type StreamConfig struct {
	URL        string
	MaxRetries int
	RangeSize  int64
}

// ChunkStream pulls a resource in bounded range windows and yields its
// bytes as a lazy, ordered sequence of chunks. It is a single-pass
// state machine: each Next call either returns the next non-empty
// chunk, io.EOF once downloaded has reached the resolved file size, or
// a fatal error that also terminates the stream. The file size starts
// out as a placeholder equal to the range size and is refined once by
// an oversized range probe issued alongside the first window.
type ChunkStream struct {
	client Executor
	cfg    StreamConfig
	policy retryPolicy

	downloaded int64
	fileSize   int64
	attempt    int
	probed     bool

	body io.ReadCloser
	buf  []byte
	err  error
}

// Stream starts a chunked range fetch of url. No request is issued
// until the first Next call.
func (c *Client) Stream(cfg StreamConfig) *ChunkStream {
	return NewChunkStream(c, cfg)
}

// NewChunkStream is the Executor-generic constructor used by SeqStream
// and by tests that stub the transport.
func NewChunkStream(client Executor, cfg StreamConfig) *ChunkStream {
	if cfg.RangeSize <= 0 {
		cfg.RangeSize = DefaultRangeSize
	}
	bufSize := readBufferSize
	if cfg.RangeSize < bufSize {
		bufSize = cfg.RangeSize
	}
	return &ChunkStream{
		client:   client,
		cfg:      cfg,
		policy:   newRetryPolicy(cfg.MaxRetries),
		fileSize: cfg.RangeSize, // fake filesize until the probe refines it
		buf:      make([]byte, bufSize),
	}
}

// Next returns the next chunk of the resource. It returns io.EOF once
// the stream is exhausted; any other error is fatal and sticky.
func (s *ChunkStream) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	for {
		if s.body == nil {
			if s.downloaded >= s.fileSize {
				s.err = io.EOF
				return nil, s.err
			}
			if err := s.openWindow(); err != nil {
				s.err = err
				return nil, s.err
			}
		}
		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.downloaded += int64(n)
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, nil
		}
		if err == nil {
			continue
		}
		s.body.Close()
		s.body = nil
		if err == io.EOF {
			// Window fully drained, budget resets for the next one.
			s.attempt = 0
			continue
		}
		if s.policy.retryable(err) {
			s.attempt++
			log.Debug().Str("op", "request/stream").Int("attempt", s.attempt).Msgf("Retrying after interrupted read: %v", err)
			if s.policy.exhausted(s.attempt) {
				s.err = &MaxRetriesError{URL: s.cfg.URL, Attempts: s.attempt}
				return nil, s.err
			}
			continue
		}
		s.err = err
		return nil, s.err
	}
}

// Downloaded reports the number of bytes yielded so far.
func (s *ChunkStream) Downloaded() int64 {
	return s.downloaded
}

// Close releases the in-flight response, if any. The stream yields
// io.EOF afterwards.
func (s *ChunkStream) Close() error {
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	if s.err == nil {
		s.err = io.EOF
	}
	return nil
}

// openWindow requests the next range window, retrying per-request
// timeouts up to the attempt budget. Any other transport error aborts
// the fetch immediately.
func (s *ChunkStream) openWindow() error {
	stop := s.fileSize
	if next := s.downloaded + s.cfg.RangeSize; next < stop {
		stop = next
	}
	rangeHeader := fmt.Sprintf("bytes=%d-%d", s.downloaded, stop-1)
	for {
		resp, err := s.client.Execute(http.MethodGet, s.cfg.URL, map[string]string{"Range": rangeHeader}, nil)
		if err == nil {
			s.body = resp.Body
			break
		}
		if !s.policy.retryable(err) {
			return err
		}
		s.attempt++
		log.Debug().Str("op", "request/stream").Int("attempt", s.attempt).Msgf("Retrying range %s: %v", rangeHeader, err)
		if s.policy.exhausted(s.attempt) {
			return &MaxRetriesError{URL: s.cfg.URL, Attempts: s.attempt}
		}
	}
	if s.fileSize == s.cfg.RangeSize && !s.probed {
		s.probeSize()
	}
	return nil
}

// probeSize requests an intentionally oversized range and takes the
// Content-Length of the response as the authoritative total size. It
// runs at most once; on failure the placeholder size stays in effect
// and the fetch stops at one range worth of data.
func (s *ChunkStream) probeSize() {
	s.probed = true
	resp, err := s.client.Execute(http.MethodGet, s.cfg.URL, map[string]string{"Range": oversizedRange}, nil)
	if err != nil {
		log.Error().Str("op", "request/stream").Err(err).Msg("Size probe request failed, keeping placeholder size")
		return
	}
	defer resp.Body.Close()
	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		log.Error().Str("op", "request/stream").Err(err).Msg("Size probe returned no usable Content-Length, keeping placeholder size")
		return
	}
	s.fileSize = size
}

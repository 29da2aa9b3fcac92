package request

import (
	"bytes"
	"fmt"
	"io"
	u "net/url"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
)

// segmentCountPattern matches the metadata line embedded in segment 0
// of a sequential resource. Its position within the header block is
// not fixed, so every CRLF-delimited line is scanned.
var segmentCountPattern = regexp.MustCompile(`Segment-Count: (\d+)`)

// SeqStream reconstructs a resource the server has pre-split into
// numbered segments, selected with the sq query parameter. Segment 0
// is fetched first and its body buffered to learn the segment count;
// segments 1..N follow strictly in order, each one requested only
// after the previous one completed. Chunks are yielded exactly as the
// underlying ChunkStream produces them.
type SeqStream struct {
	client *Client
	cfg    StreamConfig
	base   *u.URL
	query  u.Values

	seqNum       int
	segmentCount int
	counted      bool
	header       bytes.Buffer

	cur *ChunkStream
	err error
}

// SeqStream starts a sequential segment fetch of url. No request is
// issued until the first Next call.
func (c *Client) SeqStream(cfg StreamConfig) *SeqStream {
	s := &SeqStream{client: c, cfg: cfg}
	base, err := u.Parse(cfg.URL)
	if err != nil {
		s.err = fmt.Errorf("error parsing URL %s: %v", cfg.URL, err)
		return s
	}
	s.base = base
	s.query = base.Query()
	return s
}

// Next returns the next chunk of the concatenated segments, io.EOF
// after the final segment, or a fatal error.
func (s *SeqStream) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	for {
		if s.cur == nil {
			if s.counted && s.seqNum > s.segmentCount {
				s.err = io.EOF
				return nil, s.err
			}
			cfg := s.cfg
			cfg.URL = s.segmentURL(s.seqNum)
			s.cur = s.client.Stream(cfg)
		}
		chunk, err := s.cur.Next()
		if err == io.EOF {
			s.cur.Close()
			s.cur = nil
			if s.seqNum == 0 {
				count, cerr := parseSegmentCount("seq_stream", s.header.Bytes())
				if cerr != nil {
					s.err = cerr
					return nil, s.err
				}
				s.segmentCount = count
				s.counted = true
				log.Debug().Str("op", "request/sequence").Int("segments", count).Msg("Parsed segment count from header segment")
			}
			s.seqNum++
			continue
		}
		if err != nil {
			s.err = err
			return nil, s.err
		}
		if s.seqNum == 0 {
			s.header.Write(chunk)
		}
		return chunk, nil
	}
}

// Close releases the segment currently being fetched, if any.
func (s *SeqStream) Close() error {
	if s.cur != nil {
		s.cur.Close()
		s.cur = nil
	}
	if s.err == nil {
		s.err = io.EOF
	}
	return nil
}

// segmentURL rewrites the sq query parameter to select segment n.
func (s *SeqStream) segmentURL(n int) string {
	s.query.Set("sq", strconv.Itoa(n))
	rewritten := *s.base
	rewritten.RawQuery = s.query.Encode()
	return rewritten.String()
}

// parseSegmentCount scans a segment-0 body for the Segment-Count line.
// A body without one is a protocol violation and fails explicitly
// instead of leaving the segment loop without a bound.
func parseSegmentCount(caller string, header []byte) (int, error) {
	for _, line := range bytes.Split(header, []byte("\r\n")) {
		if m := segmentCountPattern.FindSubmatch(line); m != nil {
			count, err := strconv.Atoi(string(m[1]))
			if err == nil {
				return count, nil
			}
		}
	}
	return 0, &PatternNotMatchedError{Caller: caller, Pattern: segmentCountPattern.String()}
}

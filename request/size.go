package request

import (
	"fmt"
	u "net/url"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Resolver computes total resource sizes without downloading them,
// memoizing the result per URL for its lifetime. The cache is never
// evicted: a URL whose content changes after first resolution keeps
// reporting the stale size until Reset is called. That is an accepted
// limitation, not something the resolver tries to detect.
//
// There is no single-flight de-duplication; concurrent callers asking
// for the same URL may duplicate requests, but the cached value is the
// same either way.
type Resolver struct {
	client *Client
	mu     sync.Mutex
	cache  map[string]int64
}

func NewResolver(c *Client) *Resolver {
	return &Resolver{
		client: c,
		cache:  make(map[string]int64),
	}
}

// Reset clears the memoized sizes.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]int64)
	r.mu.Unlock()
}

func (r *Resolver) cached(url string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size, ok := r.cache[url]
	return size, ok
}

func (r *Resolver) store(url string, size int64) {
	r.mu.Lock()
	r.cache[url] = size
	r.mu.Unlock()
}

// Filesize resolves the byte length of a single-range resource from
// the Content-Length of one HEAD request.
func (r *Resolver) Filesize(url string) (int64, error) {
	if size, ok := r.cached(url); ok {
		return size, nil
	}
	size, err := r.headContentLength(url)
	if err != nil {
		return 0, err
	}
	r.store(url, size)
	return size, nil
}

// SeqFilesize resolves the byte length of a sequential resource:
// segment 0 is downloaded in full (its body carries the segment
// count), the remaining segments are sized with HEAD requests, and
// everything is summed including segment 0's own length.
func (r *Resolver) SeqFilesize(url string) (int64, error) {
	if size, ok := r.cached(url); ok {
		return size, nil
	}
	base, err := u.Parse(url)
	if err != nil {
		return 0, fmt.Errorf("error parsing URL %s: %v", url, err)
	}
	query := base.Query()
	query.Set("sq", "0")
	base.RawQuery = query.Encode()

	header, err := r.client.Get(base.String(), nil)
	if err != nil {
		return 0, err
	}
	total := int64(len(header))
	segmentCount, err := parseSegmentCount("seq_filesize", header)
	if err != nil {
		return 0, err
	}
	log.Debug().Str("op", "request/size").Int("segments", segmentCount).Msg("Sizing segments with HEAD requests")

	for seqNum := 1; seqNum <= segmentCount; seqNum++ {
		query.Set("sq", strconv.Itoa(seqNum))
		base.RawQuery = query.Encode()
		size, err := r.headContentLength(base.String())
		if err != nil {
			return 0, fmt.Errorf("error sizing segment %d: %v", seqNum, err)
		}
		total += size
	}
	r.store(url, total)
	return total, nil
}

func (r *Resolver) headContentLength(url string) (int64, error) {
	headers, err := r.client.Head(url)
	if err != nil {
		return 0, err
	}
	value, ok := headers["content-length"]
	if !ok {
		return 0, fmt.Errorf("no Content-Length header for %s", url)
	}
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing Content-Length %q for %s: %v", value, url, err)
	}
	return size, nil
}

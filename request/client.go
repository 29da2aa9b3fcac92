// Package request implements the low-level fetch layer: a thin HTTP
// transport wrapper, a chunked range-request stream, the sequential
// segment protocol layered on top of it, and remote size resolution.
package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	u "net/url"
	"strings"
	"time"
)

// ClientConfig mirrors the knobs exposed on the CLI. Zero values are
// replaced with defaults in NewClient.
type ClientConfig struct {
	Timeout   time.Duration
	KATimeout time.Duration
	ProxyURL  string
	UserAgent string
	Headers   map[string]string
}

// Executor is the transport consumed by the stream and size layers.
// *Client is the production implementation.
type Executor interface {
	Execute(method string, url string, headers map[string]string, body any) (*http.Response, error)
}

type Client struct {
	client *http.Client
	config ClientConfig
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	transport := &http.Transport{
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100, // for connection reuse
		DisableCompression:  true,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := u.Parse(cfg.ProxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &Client{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config: cfg,
	}
}

// Execute performs a single HTTP request. A non-[]byte body is JSON
// encoded before transmission. URLs without an http(s) scheme are
// rejected before any request goes out.
func (c *Client) Execute(method string, url string, headers map[string]string, body any) (*http.Response, error) {
	if !strings.HasPrefix(strings.ToLower(url), "http") {
		return nil, ErrInvalidURL
	}
	var reader io.Reader
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("error encoding request body: %v", err)
			}
			raw = encoded
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating %s request: %v", method, err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", GetRandomUserAgent())
	}
	req.Header.Set("Accept-Language", "en-US,en")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// Get fetches url and returns the full response body.
func (c *Client) Get(url string, extraHeaders map[string]string) ([]byte, error) {
	resp, err := c.Execute(http.MethodGet, url, extraHeaders, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}
	return data, nil
}

// Post sends data as a JSON body. The Content-Type is forced because
// the segment servers reject anything else with a 400.
func (c *Client) Post(url string, extraHeaders map[string]string, data any) ([]byte, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range extraHeaders {
		headers[k] = v
	}
	if data == nil {
		data = map[string]any{}
	}
	resp, err := c.Execute(http.MethodPost, url, headers, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}
	return body, nil
}

// Head issues a HEAD request and returns the response headers with
// lowercase keys, so lookups don't depend on server casing.
func (c *Client) Head(url string) (map[string]string, error) {
	resp, err := c.Execute(http.MethodHead, url, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	return headers, nil
}

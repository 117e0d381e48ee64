package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Expander expands ${name} placeholders, typically from a virtual user's
// variable store.
type Expander interface {
	Expand(template string) string
}

// Header is one request header. Headers keep their declaration order.
type Header struct {
	Key   string
	Value string
}

// Spec describes the request an HTTP sampler sends.
type Spec struct {
	Method      string
	URL         string
	Headers     []Header
	Body        []byte
	ContentType string
	Parts       []Part
}

type RequestBuilder struct {
	spec    Spec
	method  string
	headers []Header
}

func NewRequestBuilder(spec Spec) (*RequestBuilder, error) {
	if strings.TrimSpace(spec.URL) == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.TrimSpace(spec.Method)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	headers := make([]Header, 0, len(spec.Headers))
	for _, h := range spec.Headers {
		trimmedKey := strings.TrimSpace(h.Key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", h.Key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(h.Value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers = append(headers, Header{Key: canonicalKey, Value: h.Value})
	}

	return &RequestBuilder{spec: spec, method: method, headers: headers}, nil
}

// Method returns the normalized request method.
func (b *RequestBuilder) Method() string {
	return b.method
}

// Build creates a request with placeholders in the URL, header values and
// inline body expanded from vars. vars may be nil.
func (b *RequestBuilder) Build(ctx context.Context, vars Expander) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	expand := func(s string) string {
		if vars == nil {
			return s
		}
		return vars.Expand(s)
	}

	body, err := NewBodySource(b.spec, vars)
	if err != nil {
		return nil, err
	}
	reader, err := body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, b.method, expand(b.spec.URL), reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	req.Header = make(http.Header, len(b.headers)+1)
	for _, h := range b.headers {
		req.Header.Add(h.Key, expand(h.Value))
	}
	if ct := body.ContentType(); ct != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", ct)
	}

	if length, ok := body.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return body.NewReader()
	}

	return req, nil
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

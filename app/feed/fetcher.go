package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "TechForumMonitor/0.1 (+https://example.com)"
	DefaultTimeout   = 15 * time.Second
)

// TransportError reports a failed request or a non-2xx response.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that is not a readable RSS or Atom feed.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err came from retrieving or reading a feed.
func IsFetchError(err error) bool {
	var transportErr *TransportError
	var parseErr *ParseError
	return errors.As(err, &transportErr) || errors.As(err, &parseErr)
}

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Fetch downloads feedURL once and returns its normalized entries. The
// source is matched case-insensitively; an unknown source fails before any
// request is made.
func (f *Fetcher) Fetch(ctx context.Context, source string, feedURL string) (iter.Seq[Entry], error) {
	parsed, err := ParseSource(source)
	if err != nil {
		return nil, err
	}

	switch parsed {
	case SourceV2EX:
		return f.FetchV2EX(ctx, feedURL)
	case SourceNodeSeek:
		return f.FetchNodeSeek(ctx, feedURL)
	default:
		return f.FetchLinuxDo(ctx, feedURL)
	}
}

func (f *Fetcher) FetchV2EX(ctx context.Context, feedURL string) (iter.Seq[Entry], error) {
	return f.fetchGeneric(ctx, SourceV2EX, feedURL)
}

func (f *Fetcher) FetchNodeSeek(ctx context.Context, feedURL string) (iter.Seq[Entry], error) {
	return f.fetchGeneric(ctx, SourceNodeSeek, feedURL)
}

func (f *Fetcher) FetchLinuxDo(ctx context.Context, feedURL string) (iter.Seq[Entry], error) {
	return f.fetchGeneric(ctx, SourceLinuxDo, feedURL)
}

func (f *Fetcher) fetchGeneric(ctx context.Context, source Source, feedURL string) (iter.Seq[Entry], error) {
	data, err := f.download(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{URL: feedURL, Err: err}
	}

	return f.parser.Normalize(source, parsed), nil
}

func (f *Fetcher) download(ctx context.Context, feedURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			URL:        feedURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return data, nil
}

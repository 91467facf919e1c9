package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"slices"
	"time"

	"github.com/boradedesconto/offerfeed/pkg/errors"

	"github.com/google/uuid"
	"golang.org/x/net/html/charset"
)

const (
	userAgent = "offerfeed/1.0 (+https://boradedesconto.com.br)"

	// maxBodySize caps how much of a response body is read
	maxBodySize = 5 << 20
)

// Browser-like headers for merchant pages
var (
	browserAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}

	acceptLanguages = []string{
		"pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		"pt-BR,pt;q=0.8,en-US;q=0.5,en;q=0.3",
	}
)

// Doer is satisfied by *http.Client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns an HTTP client with the given timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// FetchJSON sends a GET request for a JSON document and returns the body
// converted to UTF-8. Rate limiting answers (429, 430) come back as rate
// limit errors, any other non-2xx status as a transport error.
func FetchJSON(ctx context.Context, doer Doer, url string) ([]byte, error) {
	return fetch(ctx, doer, url, func(req *http.Request) {
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Request-ID", uuid.NewString())
	})
}

// FetchHTML sends a GET request with randomized browser headers and returns
// the page converted to UTF-8. Errors follow FetchJSON.
func FetchHTML(ctx context.Context, doer Doer, url string) (io.Reader, error) {
	body, err := fetch(ctx, doer, url, func(req *http.Request) {
		req.Header.Set("User-Agent", browserAgents[rand.Intn(len(browserAgents))])
		req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		req.Header.Set("Cache-Control", "max-age=0")
		req.Header.Set("Upgrade-Insecure-Requests", "1")
	})
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(body), nil
}

func fetch(ctx context.Context, doer Doer, url string, setHeaders func(*http.Request)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewTransport("http", "failed to create request", err)
	}
	setHeaders(req)

	resp, err := doer.Do(req)
	if err != nil {
		return nil, errors.NewTransport("http", "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, errors.NewRateLimit("http", resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewTransport("http", fmt.Sprintf("fetch %s unexpected status code: %d", url, resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.NewTransport("http", "failed to read response body", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))
	if name == "utf-8" || name == "UTF-8" {
		return bodyBytes, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))); err != nil {
		return nil, errors.NewMalformed("http", "failed to convert body to UTF-8", err)
	}

	return buf.Bytes(), nil
}

// Package growthzone talks to the GrowthZone membership API: a read-only
// proxy for the front end, the changes-since feed with its timestamp format
// negotiation, and the Office MLS sync built on it.
package growthzone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the association's GrowthZone tenant.
const DefaultBaseURL = "https://bonitaspringsesterorealtorsfl.growthzoneapp.com"

var (
	ErrNoAPIKey         = errors.New("GrowthZone API key is not configured")
	ErrInvalidSince     = errors.New("missing or invalid since timestamp")
	ErrAllFormatsFailed = errors.New("all datetime formats failed upstream")
)

// Attempt records one candidate tried against the changes endpoint.
type Attempt struct {
	Candidate   string `json:"candidate"`
	UpstreamURL string `json:"upstreamUrl"`
}

// UpstreamError is a failed GrowthZone answer. Err is ErrAllFormatsFailed
// when every timestamp candidate was rejected.
type UpstreamError struct {
	Status   int
	URL      string
	Body     []byte
	Attempts []Attempt
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("growthzone: %v after %d attempts", e.Err, len(e.Attempts))
	}
	return fmt.Sprintf("growthzone: %s returned %d", e.URL, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Response is a raw upstream answer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	URL         string
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status <= 299 }

// Client sends authenticated GET requests to GrowthZone.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		BaseURL:    base,
		APIKey:     strings.TrimSpace(apiKey),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Get fetches path (relative to the API root) with query and returns the
// answer whatever its status. Only transport failures are errors.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "ApiKey "+c.APIKey)
	req.Header.Set("Accept", "*/*")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("growthzone request %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read growthzone response: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "text/plain"
	}
	return &Response{Status: resp.StatusCode, ContentType: ct, Body: body, URL: u}, nil
}

// Changes fetches the real-estate contacts changed since the given timestamp.
// Candidates from SinceCandidates are tried in order; a 500 caused by the
// upstream's DateTime parser moves on to the next one.
func (c *Client) Changes(ctx context.Context, since, options string) (*Response, error) {
	candidates, ok := SinceCandidates(since)
	if !ok {
		return nil, ErrInvalidSince
	}
	var query url.Values
	if options != "" {
		query = url.Values{"options": {options}}
	}

	var attempts []Attempt
	for _, cand := range candidates {
		path := "/api/realestate/contacts/getchangessince/" + url.PathEscape(cand)
		resp, err := c.Get(ctx, path, query)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, Attempt{Candidate: cand, UpstreamURL: resp.URL})
		if resp.OK() {
			return resp, nil
		}
		if resp.Status == http.StatusInternalServerError && isDateTimeFormatError(resp.Body) {
			continue
		}
		return nil, &UpstreamError{Status: resp.Status, URL: resp.URL, Body: resp.Body, Attempts: attempts}
	}
	return nil, &UpstreamError{Status: http.StatusInternalServerError, Attempts: attempts, Err: ErrAllFormatsFailed}
}

// isDateTimeFormatError recognises the .NET FormatException GrowthZone
// answers with when it cannot parse the timestamp segment.
func isDateTimeFormatError(body []byte) bool {
	const notValid = "String was not recognized as a valid DateTime"
	var v struct {
		Message          string
		ExceptionMessage string
		ExceptionType    string
	}
	if err := json.Unmarshal(body, &v); err == nil {
		msg := v.ExceptionMessage
		if msg == "" {
			msg = v.Message
		}
		return strings.Contains(msg, notValid) || strings.Contains(v.ExceptionType, "FormatException")
	}
	s := string(body)
	return strings.Contains(s, notValid) || strings.Contains(s, "System.FormatException")
}

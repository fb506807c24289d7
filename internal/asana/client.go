// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package asana

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PageSize is the page limit requested on collection endpoints.
const PageSize = 100

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "https://app.asana.com/api/1.0".
	BaseURL string
	// AccessToken is a personal access token sent as a bearer token.
	AccessToken string
	// NoVerify disables TLS certificate verification.
	NoVerify bool
	// DumpAPI prints "METHOD: path" for every request to DumpTo.
	DumpAPI bool
	// DumpTo receives the request dump; defaults to stdout.
	DumpTo io.Writer
	// Timeout bounds each request; defaults to 30 seconds.
	Timeout time.Duration
	// UserAgent is sent with every request when non-empty.
	UserAgent string
}

// Client implements API over the Asana REST endpoints.
type Client struct {
	// baseURL is the API root without a trailing slash
	baseURL string
	token   string
	// client is the underlying HTTP client with configured timeout and TLS settings
	client    *http.Client
	dump      io.Writer
	userAgent string
	// numRequests counts every request issued, successful or not
	numRequests int
}

// New creates a Client from options.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.NoVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --no-verify
	}
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		token:     opts.AccessToken,
		client:    &http.Client{Timeout: timeout, Transport: transport},
		userAgent: opts.UserAgent,
	}
	if opts.DumpAPI {
		c.dump = opts.DumpTo
		if c.dump == nil {
			c.dump = os.Stdout
		}
	}
	return c
}

// NumRequests implements API.
func (c *Client) NumRequests() int { return c.numRequests }

// envelope is the response wrapper used by every endpoint.
type envelope struct {
	Data     json.RawMessage `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

// get issues one GET and decodes the "data" member into out. It returns the
// next page offset, or "" on the last page.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (string, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.dump != nil {
		fmt.Fprintf(c.dump, "%s: %s\n", http.MethodGet, path)
	}
	c.numRequests++

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &DecodeError{Path: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newResponseError(resp, path, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", &DecodeError{Path: path, Err: err}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &DecodeError{Path: path + " data", Err: err}
		}
	}
	if env.NextPage != nil {
		return env.NextPage.Offset, nil
	}
	return "", nil
}

// collect follows next_page offsets until the collection is exhausted.
func (c *Client) collect(ctx context.Context, path string, fields []string) ([]Task, error) {
	var all []Task
	offset := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(PageSize))
		if sel := optFields(fields); sel != "" {
			q.Set("opt_fields", sel)
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		var page []Task
		next, err := c.get(ctx, path, q, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		offset = next
	}
}

// optFields renders a deduplicated, sorted opt_fields value.
func optFields(fields []string) string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package asana

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound matches API errors with status 404.
	ErrNotFound = errors.New("asana: not found")
	// ErrUnauthorized matches API errors with status 401.
	ErrUnauthorized = errors.New("asana: unauthorized")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status   int
	Path     string
	Messages []string
}

func (e *APIError) Error() string {
	msg := http.StatusText(e.Status)
	if len(e.Messages) > 0 {
		msg = strings.Join(e.Messages, "; ")
	}
	return fmt.Sprintf("asana: GET %s: %d %s", e.Path, e.Status, msg)
}

// DecodeError is a response body that could not be read or parsed, such as an
// HTML page served by a proxy in place of the API.
type DecodeError struct {
	// Path is the request path or the task field being decoded.
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("asana: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// RateLimitError is a 429 response. RetryAfter is zero when the header is absent.
type RateLimitError struct {
	APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.APIError.Error(), e.RetryAfter)
	}
	return e.APIError.Error()
}

// Unwrap exposes the embedded APIError to errors.As.
func (e *RateLimitError) Unwrap() error { return &e.APIError }

// newResponseError builds the error for a non-2xx response body.
func newResponseError(resp *http.Response, path string, body []byte) error {
	apiErr := APIError{Status: resp.StatusCode, Path: path, Messages: parseErrorMessages(body)}
	if resp.StatusCode == http.StatusTooManyRequests {
		rl := &RateLimitError{APIError: apiErr}
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil {
			rl.RetryAfter = time.Duration(secs) * time.Second
		}
		return rl
	}
	return &apiErr
}

// parseErrorMessages extracts messages from {"errors":[{"message":"..."}]}.
// A body that is not in that shape is returned trimmed as the only message.
func parseErrorMessages(body []byte) []string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		out := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			if m := strings.TrimSpace(e.Message); m != "" {
				out = append(out, m)
			}
		}
		return out
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		if len(s) > 200 {
			s = s[:200] + "..."
		}
		return []string{s}
	}
	return nil
}

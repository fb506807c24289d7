// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"asana2sql/cli/internal/asana"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "unauthorized", err: fmt.Errorf("me: %w", &asana.APIError{Status: 401}), want: KindUnauthorized},
		{name: "not found", err: &asana.APIError{Status: 404}, want: KindNotFound},
		{name: "rate limited", err: &asana.RateLimitError{APIError: asana.APIError{Status: 429}}, want: KindRateLimited},
		{name: "server", err: &asana.APIError{Status: 503}, want: KindServer},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "app.asana.test"}, want: KindDNS},
		{name: "refused", err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), want: KindRefused},
		{name: "tls", err: errors.New("x509: certificate signed by unknown authority"), want: KindTLS},
		{name: "generic", err: errors.New("boom"), want: KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	err := &asana.RateLimitError{APIError: asana.APIError{Status: 429}, RetryAfter: 30 * time.Second}
	Describe(&buf, err, "fetching tasks", "app.asana.com")

	out := buf.String()
	if !strings.Contains(out, "Rate limited by Asana while fetching tasks") {
		t.Errorf("missing title in %q", out)
	}
	if !strings.Contains(out, "retry after 30s") {
		t.Errorf("missing retry hint in %q", out)
	}
}

func TestExtractHostFromURL(t *testing.T) {
	if got := ExtractHostFromURL("https://app.asana.com/api/1.0"); got != "app.asana.com" {
		t.Errorf("got %q", got)
	}
	if got := ExtractHostFromURL("::"); got != "the Asana API" {
		t.Errorf("got %q", got)
	}
}

// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns Asana API and network failures into troubleshooting
// messages for the terminal.
package httperrors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"asana2sql/cli/internal/asana"

	"github.com/pterm/pterm"
)

// Kind classifies a failed API call.
type Kind int

const (
	KindGeneric Kind = iota
	KindTimeout
	KindDNS
	KindRefused
	KindTLS
	KindUnauthorized
	KindNotFound
	KindRateLimited
	KindServer
)

// Classify inspects err for the failure kinds the CLI explains.
func Classify(err error) Kind {
	var rl *asana.RateLimitError
	var apiErr *asana.APIError
	switch {
	case errors.As(err, &rl):
		return KindRateLimited
	case errors.Is(err, asana.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, asana.ErrNotFound):
		return KindNotFound
	case errors.As(err, &apiErr) && apiErr.Status >= 500:
		return KindServer
	case isTimeout(err):
		return KindTimeout
	case isDNS(err):
		return KindDNS
	case isRefused(err):
		return KindRefused
	case isTLS(err):
		return KindTLS
	}
	return KindGeneric
}

// FormatNetworkError prints an explanation of err and returns it
// wrapped. context completes the sentence "... while <context>".
func FormatNetworkError(err error, context, baseURL string) error {
	if err == nil {
		return nil
	}
	var b strings.Builder
	Describe(&b, err, context, ExtractHostFromURL(baseURL))
	pterm.Print(b.String())
	return fmt.Errorf("%s: %w", context, err)
}

// Describe writes the explanation of err to w.
func Describe(w io.Writer, err error, context, host string) {
	if w == nil {
		w = io.Discard
	}
	title, hints := explain(Classify(err), host, err)
	fmt.Fprintf(w, "%s while %s\n\n", title, context)
	for _, h := range hints {
		fmt.Fprintf(w, "  • %s\n", h)
	}
	fmt.Fprintln(w)
}

func explain(kind Kind, host string, err error) (string, []string) {
	switch kind {
	case KindTimeout:
		return "⏱️  Connection timeout", []string{
			"The Asana API took too long to respond",
			"Check your connection or raise --timeout in the config file",
		}
	case KindDNS:
		return "🌐 Cannot resolve " + host, []string{
			"Check that your internet connection is working",
			"Check --base-url for typos",
		}
	case KindRefused:
		return "🚫 Connection refused by " + host, []string{
			"Check --base-url and any proxy settings",
		}
	case KindTLS:
		return "🔒 Secure connection failed", []string{
			"Check your system date and time",
			"A proxy may be intercepting HTTPS; --no-verify skips certificate checks",
		}
	case KindUnauthorized:
		return "🔑 Asana rejected the access token", []string{
			"Create a personal access token in Asana under My Settings > Apps > Developer apps",
			"Run `asana2sql login` or pass --access-token",
		}
	case KindNotFound:
		return "❓ Not found", []string{
			"Check --project-id; the gid is the long number in the project URL",
			"The token's owner must have access to the project",
		}
	case KindRateLimited:
		hint := "Wait a minute and run the command again"
		var rl *asana.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			hint = fmt.Sprintf("Asana asks to retry after %s", rl.RetryAfter)
		}
		return "🐢 Rate limited by Asana", []string{hint}
	case KindServer:
		return "⚠️  Asana server error", []string{
			"This is not a problem with your setup",
			"Check https://status.asana.com and try again in a few minutes",
		}
	}
	hints := []string{"Check your internet connection and --base-url"}
	if err != nil {
		msg := err.Error()
		if len(msg) > 100 {
			msg = msg[:100] + "..."
		}
		hints = append(hints, "Details: "+msg)
	}
	return "❌ Cannot reach " + host, hints
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") || strings.Contains(s, "deadline exceeded")
}

func isDNS(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isTLS(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "tls") ||
		strings.Contains(s, "x509") ||
		strings.Contains(s, "certificate")
}

// ExtractHostFromURL returns the host of urlStr, or "the Asana API".
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "the Asana API"
	}
	return u.Host
}

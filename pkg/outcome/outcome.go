/*
	Copyright 2023 Cognitive3D

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		   http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

// Package outcome classifies raw HTTP results into typed outcomes with
// remediation hints. Classify is pure: no I/O, no logging.
package outcome

import (
	"net/http"
	"strings"
	"time"
)

type Kind string

const (
	Success               Kind = "success"
	Unauthorized          Kind = "unauthorized"
	Forbidden             Kind = "forbidden"
	NotFound              Kind = "not_found"
	RateLimited           Kind = "rate_limited"
	ServerError           Kind = "server_error"
	MalformedHTMLResponse Kind = "malformed_html_response"
	NetworkError          Kind = "network_error"
	UnknownHTTPError      Kind = "unknown_http_error"
)

// Result is the raw record of a single HTTP attempt. StatusCode is 0 when the
// request never reached the server. Immutable after construction.
type Result struct {
	StatusCode int
	Body       string
	Headers    http.Header
	Elapsed    time.Duration
	Err        string
}

// Outcome is the classified interpretation of a Result.
type Outcome struct {
	Kind   Kind
	Hint   string
	Result *Result
}

func (o *Outcome) Succeeded() bool {
	return o.Kind == Success
}

// Retryable reports whether the outcome is in the transient set: retrying may
// help for rate limits, server errors and network failures, never for
// authorization or routing failures.
func (o *Outcome) Retryable() bool {
	switch o.Kind {
	case RateLimited, ServerError, NetworkError:
		return true
	}
	return false
}

// Classify derives an Outcome from a Result. An HTML body overrides the status
// code: intercepting proxies and load balancers return HTML error pages with
// arbitrary status codes, and those must never be mistaken for API responses.
func Classify(res *Result) *Outcome {
	if res.StatusCode == 0 {
		return &Outcome{
			Kind:   NetworkError,
			Hint:   "the request never reached the server: check your network connection, DNS resolution and the target environment (" + res.Err + ")",
			Result: res,
		}
	}

	if isHTMLDocument(res.Body) {
		return &Outcome{
			Kind:   MalformedHTMLResponse,
			Hint:   "received an HTML page instead of an API response: a proxy or load balancer is likely intercepting the request; verify the base URL and any corporate proxy configuration",
			Result: res,
		}
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return &Outcome{Kind: Success, Result: res}
	case res.StatusCode == http.StatusUnauthorized:
		hint := "the API key was rejected: verify the developer key for this project in the dashboard"
		if strings.Contains(strings.ToLower(res.Body), "expired") {
			hint = "the API key has expired: generate a new developer key in the dashboard and update your configuration"
		}
		return &Outcome{Kind: Unauthorized, Hint: hint, Result: res}
	case res.StatusCode == http.StatusForbidden:
		return &Outcome{
			Kind:   Forbidden,
			Hint:   "the API key is valid but lacks access to this resource: confirm the key belongs to the scene's project",
			Result: res,
		}
	case res.StatusCode == http.StatusNotFound:
		return &Outcome{
			Kind:   NotFound,
			Hint:   "the resource does not exist: check the scene id and that the scene has been uploaded to this environment",
			Result: res,
		}
	case res.StatusCode == http.StatusTooManyRequests:
		return &Outcome{
			Kind:   RateLimited,
			Hint:   "the server is rate limiting requests: wait before retrying",
			Result: res,
		}
	case res.StatusCode >= 500:
		return &Outcome{
			Kind:   ServerError,
			Hint:   "the server failed to process the request: retry later, and contact support if the error persists",
			Result: res,
		}
	}

	return &Outcome{
		Kind:   UnknownHTTPError,
		Hint:   "unexpected response from the server: inspect the response body for details",
		Result: res,
	}
}

func isHTMLDocument(body string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(trimmed, "<html") || strings.HasPrefix(trimmed, "<!doctype")
}

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

package uploader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cognitive3d/uploader/pkg/outcome"
)

// send issues one authenticated request and captures everything the
// classifier needs. Transport-level failures (DNS, connection refused,
// timeout, TLS) come back as a Result with no status code and a populated Err
// rather than a Go error: the classification layer, not the transport,
// decides terminality.
//
// The Authorization value is the vendor's own APIKEY:DEVELOPER scheme, which
// net/http passes through verbatim; no auth helper is involved because those
// reject nonstandard header values.
func (c *Client) send(ctx context.Context, method string, requestURL string, body []byte, contentType string) *outcome.Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.options.Timeout)
	defer cancel()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return &outcome.Result{Err: err.Error(), Elapsed: time.Since(start)}
	}
	req.Header.Set("Authorization", c.authorizationHeader)
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", requestURL).
		Int("bytes", len(body)).
		Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", requestURL).Msg("transport failure")
		return &outcome.Result{Err: err.Error(), Elapsed: time.Since(start)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &outcome.Result{
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Err:        err.Error(),
			Elapsed:    time.Since(start),
		}
	}

	elapsed := time.Since(start)
	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("received response")

	return &outcome.Result{
		StatusCode: resp.StatusCode,
		Body:       string(responseBody),
		Headers:    resp.Header,
		Elapsed:    elapsed,
	}
}

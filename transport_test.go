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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendCapturesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "abc123")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	res := client.send(context.Background(), http.MethodGet, server.URL+"/scenes/x", nil, "")

	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "denied", res.Body)
	assert.Equal(t, "abc123", res.Headers.Get("X-Request-Id"))
	assert.Empty(t, res.Err)
	assert.Greater(t, res.Elapsed, time.Duration(0))
}

func TestSendTransportFailureIsAResultNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := newTestClient(t, serverURL)
	res := client.send(context.Background(), http.MethodGet, serverURL+"/scenes/x", nil, "")

	assert.Equal(t, 0, res.StatusCode)
	assert.NotEmpty(t, res.Err)
	assert.Equal(t, outcome.NetworkError, outcome.Classify(res).Kind)
}

func TestNewRejectsUnknownEnvironment(t *testing.T) {
	logger := zerolog.Nop()
	_, err := New(&Options{LogName: "service", Environment: "staging"}, &logger)
	require.ErrorIs(t, err, ErrUnknownEnvironment)
}

func TestNewResolvesEnvironmentBaseURLs(t *testing.T) {
	logger := zerolog.Nop()

	prod, err := New(&Options{LogName: "service", Environment: "prod"}, &logger)
	require.NoError(t, err)
	assert.Equal(t, "https://data.cognitive3d.com/v0", prod.baseURL.String())
	_ = prod.Close()

	dev, err := New(&Options{LogName: "service", Environment: "dev"}, &logger)
	require.NoError(t, err)
	assert.Equal(t, "https://data.c3ddev.com/v0", dev.baseURL.String())
	assert.Equal(t, DefaultTimeout, dev.options.Timeout)
	_ = dev.Close()
}

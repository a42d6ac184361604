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

// Package uploader pushes 3D scene and object assets to the Cognitive3D
// analytics platform: multipart uploads of scene/object files, object
// manifest reconciliation, and version-aware re-uploads.
//
// Operations return a classified outcome for anything that happened on the
// wire and a plain error for local failures (missing files, bad identifiers,
// unreadable JSON). Local validation always runs before the first network
// call, so a validation error implies no server-side effect.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cognitive3d/uploader/pkg/manifest"
	"github.com/rs/zerolog"
)

const (
	userAgent = "cognitive3d-uploader/1.0"

	// DefaultTimeout is generous because scene payloads run to tens of
	// megabytes.
	DefaultTimeout = 300 * time.Second

	// maxUploadFileSize is the per-file ceiling enforced before encoding.
	maxUploadFileSize = 100 << 20
)

var environmentBaseURLs = map[string]string{
	"prod": "https://data.cognitive3d.com/v0",
	"dev":  "https://data.c3ddev.com/v0",
}

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
)

type Options struct {
	LogName     string
	APIKey      string
	Environment string

	// BaseURL overrides the environment's base URL when set. Used by tests
	// and on-premise gateways.
	BaseURL string

	// Timeout bounds each request attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// ManifestDir is where object manifest files are read and written.
	// Empty means the working directory.
	ManifestDir string
}

type Client struct {
	logger              *zerolog.Logger
	options             *Options
	baseURL             *url.URL
	authorizationHeader string
	httpClient          *http.Client
	manifests           *manifest.Store
	context             context.Context
	cancel              context.CancelFunc
	wg                  sync.WaitGroup
}

func New(options *Options, logger *zerolog.Logger) (*Client, error) {
	l := logger.With().Str(options.LogName, "Cognitive3D").Logger()

	base := options.BaseURL
	if base == "" {
		var ok bool
		base, ok = environmentBaseURLs[options.Environment]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, options.Environment)
		}
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}

	authorizationHeader := fmt.Sprintf("APIKEY:DEVELOPER %s", options.APIKey)

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		logger:              &l,
		options:             options,
		baseURL:             baseURL,
		authorizationHeader: authorizationHeader,
		httpClient:          &http.Client{},
		manifests:           manifest.NewStore(options.ManifestDir),
		context:             ctx,
		cancel:              cancel,
	}

	return c, nil
}

func (c *Client) Close() error {
	c.logger.Debug().Msg("closing cognitive3d client")
	c.cancel()
	defer c.wg.Wait()
	return nil
}

// Manifests exposes the client's manifest store, for callers that want to
// inspect or pre-seed the on-disk state.
func (c *Client) Manifests() *manifest.Store {
	return c.manifests
}

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

// Package retry is an opt-in decorator around upload operations. Retry is
// policy, not a core invariant: callers choose which classified outcome kinds
// are worth another attempt. Validation errors (a Go error from the
// operation) are never retried.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/rs/zerolog"
)

// Policy configures backoff and the set of retryable outcome kinds.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	Retryable    []outcome.Kind
}

// DefaultPolicy retries only the transient kinds: rate limits, server errors
// and network failures. Authorization and routing failures are permanent.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
		Retryable: []outcome.Kind{
			outcome.RateLimited,
			outcome.ServerError,
			outcome.NetworkError,
		},
	}
}

func (p Policy) retryable(kind outcome.Kind) bool {
	for _, k := range p.Retryable {
		if k == kind {
			return true
		}
	}
	return false
}

// Operation is one attempt of an upload call: a classified outcome on
// network/HTTP completion, or a Go error for local failures.
type Operation func(ctx context.Context) (*outcome.Outcome, error)

// Do runs op until it succeeds, returns a non-retryable outcome, returns an
// error, or the attempt budget is exhausted. The last outcome is returned in
// every case so the caller can print its remediation hint.
func Do(ctx context.Context, policy Policy, logger *zerolog.Logger, op Operation) (*outcome.Outcome, error) {
	var last *outcome.Outcome

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		out, err := op(ctx)
		if err != nil {
			return out, err
		}
		last = out

		if out.Succeeded() {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("retry succeeded")
			}
			return out, nil
		}

		if !policy.retryable(out.Kind) {
			logger.Debug().Str("kind", string(out.Kind)).Msg("outcome is not retryable")
			return out, nil
		}

		if attempt == policy.MaxAttempts {
			logger.Warn().Int("attempts", attempt).Msg("retry budget exhausted")
			break
		}

		delay := backoffDelay(attempt, policy)
		logger.Debug().
			Str("kind", string(out.Kind)).
			Dur("delay", delay).
			Int("attempt", attempt).
			Msg("waiting before retry")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return last, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	return last, nil
}

func backoffDelay(attempt int, policy Policy) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	if policy.JitterFactor > 0 {
		jitter := delay * policy.JitterFactor * (2*rand.Float64() - 1)
		delay += jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

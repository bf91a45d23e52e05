// Package vision talks to hosted vision models and turns their replies into
// structured device identities.
package vision

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

var ErrNoProvider = errors.New("no vision provider configured")

// Request is one instruction-plus-image prompt.
type Request struct {
	Prompt string
	Image  []byte
	MIME   string
}

// Provider returns the model's raw text reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Throttled paces calls to a Provider. Waiting honours the caller's context.
type Throttled struct {
	next    Provider
	limiter *rate.Limiter
}

func NewThrottled(next Provider, rps float64) *Throttled {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Name() string {
	return t.next.Name()
}

func (t *Throttled) Complete(ctx context.Context, req Request) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for vision quota: %w", err)
	}
	return t.next.Complete(ctx, req)
}

package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// RateLimited wraps a provider with an outbound token bucket.
type RateLimited struct {
	next    models.Provider
	limiter *rate.Limiter
}

// NewRateLimited allows rpm calls per minute with a burst of one.
// A non-positive rpm returns next unchanged.
func NewRateLimited(next models.Provider, rpm int) models.Provider {
	if rpm <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

func (r *RateLimited) Name() string { return r.next.Name() }

// Complete waits for a token within ctx. A wait that would outlive the
// deadline is reported as rate limited rather than blocking until timeout.
func (r *RateLimited) Complete(ctx context.Context, prompt string, params models.CompletionParams) (models.Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return models.Completion{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return models.Completion{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return r.next.Complete(ctx, prompt, params)
}

var _ models.Provider = (*RateLimited)(nil)

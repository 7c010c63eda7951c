package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// Invoke calls p once with its own deadline and settles the call into an Outcome.
// It never returns an error: every failure is folded into Outcome.Failure.
func Invoke(ctx context.Context, p models.Provider, prompt string, params models.CompletionParams, timeout time.Duration) models.Outcome {
	outcome := models.Outcome{Provider: p.Name()}

	if err := ValidateParams(prompt, params); err != nil {
		outcome.Failure = &models.Failure{Kind: models.FailureProviderUnavailable, Message: err.Error()}
		return outcome
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := safeComplete(callCtx, p, prompt, params)
	outcome.LatencyMS = time.Since(start).Milliseconds()

	if err == nil && completion.Text == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		kind := Classify(err)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			kind = models.FailureTimeout
		}
		outcome.Failure = &models.Failure{Kind: kind, Message: err.Error()}
		return outcome
	}

	if completion.LatencyMS == 0 {
		completion.LatencyMS = outcome.LatencyMS
	}
	outcome.Completion = &completion
	return outcome
}

// ValidateParams enforces the call constraints shared by every provider.
func ValidateParams(prompt string, params models.CompletionParams) error {
	if prompt == "" {
		return errors.New("prompt must not be empty")
	}
	if params.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be > 0, got %d", params.MaxTokens)
	}
	if params.Temperature < 0 || params.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", params.Temperature)
	}
	return nil
}

// safeComplete turns a provider panic into an unavailable failure.
func safeComplete(ctx context.Context, p models.Provider, prompt string, params models.CompletionParams) (c models.Completion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrProviderUnavailable, r)
		}
	}()
	return p.Complete(ctx, prompt, params)
}

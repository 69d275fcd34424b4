package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/promptcheck/promptcheck/internal/config"
)

const (
	// DefaultTimeout bounds one call attempt when neither the test case nor
	// the global default sets timeout_s.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryAttempts is the total attempt budget when retry_attempts
	// is not configured.
	DefaultRetryAttempts = 3

	maxRetryDelay = 10 * time.Second
)

// retryBaseDelay is the first backoff step. Tests shrink it.
var retryBaseDelay = time.Second

// Call drives one logical LLM call for a test case: credential check, model
// fallback, parameter assembly, and the retry loop around single attempts.
// Every failure mode is reported inside the Response, never as a Go error.
func Call(ctx context.Context, p Provider, global *config.Config, testName, prompt string, mc config.ModelConfig) *Response {
	if p == nil {
		return &Response{Error: "llm: nil provider", AttemptsMade: 1}
	}
	if global == nil {
		global = config.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if p.NeedsCredential() && strings.TrimSpace(p.Credential()) == "" {
		return &Response{
			Error:         fmt.Sprintf("%s API key not found in configuration for test: %s", p.Name(), testName),
			ModelNameUsed: mc.ModelName,
			AttemptsMade:  1,
		}
	}

	// A model name left at the sentinel after resolution gets one more
	// chance against the global default, but only when the global default
	// actually names this backend.
	modelToCall := strings.TrimSpace(mc.ModelName)
	if modelToCall == config.DefaultSentinel {
		def := global.DefaultModel
		if strings.EqualFold(strings.TrimSpace(def.Provider), p.Name()) || strings.TrimSpace(def.Provider) == config.DefaultSentinel {
			modelToCall = strings.TrimSpace(def.ModelName)
		}
	}
	if modelToCall == "" || modelToCall == config.DefaultSentinel {
		return &Response{
			Error:        fmt.Sprintf("No valid %s model name specified for test: %s", p.Name(), testName),
			AttemptsMade: 1,
		}
	}

	timeout := DefaultTimeout
	if mc.Parameters.TimeoutS != nil {
		timeout = secondsToDuration(*mc.Parameters.TimeoutS)
	} else if global.DefaultModel.Parameters.TimeoutS != nil {
		timeout = secondsToDuration(*global.DefaultModel.Parameters.TimeoutS)
	}

	retryAttempts := DefaultRetryAttempts
	if mc.Parameters.RetryAttempts != nil {
		retryAttempts = *mc.Parameters.RetryAttempts
	} else if global.DefaultModel.Parameters.RetryAttempts != nil {
		retryAttempts = *global.DefaultModel.Parameters.RetryAttempts
	}
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	bag := config.MergeParameters(global.DefaultModel.Parameters, mc.Parameters).Bag()
	delete(bag, "timeout_s")
	delete(bag, "retry_attempts")

	req := &AttemptRequest{
		Model:      modelToCall,
		Messages:   []Message{{Role: "user", Content: prompt}},
		Parameters: bag,
	}

	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := p.ExecuteAttempt(attemptCtx, req)
		cancel()

		if err == nil && resp != nil {
			resp.AttemptsMade = attempt
			if resp.ModelNameUsed == "" {
				resp.ModelNameUsed = modelToCall
			}
			return resp
		}
		if err == nil {
			err = errors.New("nil response from backend")
		}
		lastErr = err

		if !IsTransient(err) || attempt == retryAttempts {
			break
		}
		slog.Warn("transient llm failure, backing off",
			"provider", p.Name(),
			"test", testName,
			"attempt", attempt,
			"error", err,
		)
		if serr := sleepWithContext(ctx, retryBackoff(retryBaseDelay, attempt-1)); serr != nil {
			lastErr = serr
			break
		}
	}

	return &Response{
		Error: fmt.Sprintf("LLM call ultimately failed after %d attempts for test '%s': %s - %s",
			retryAttempts, testName, errorKind(lastErr), truncate(errorMessage(lastErr), 200)),
		ModelNameUsed: modelToCall,
		AttemptsMade:  retryAttempts,
	}
}

func retryBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 0 {
		return 0
	}
	d := base * time.Duration(1<<attempt)
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errorKind(err error) string {
	var te *TransientError
	if errors.As(err, &te) {
		return te.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	var te *TransientError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}

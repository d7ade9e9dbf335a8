// Package embedding adapts the external embedding provider behind the
// EmbeddingProvider port.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	pkgerrors "recall-backend/pkg/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config configures the OpenAI-backed provider
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxRetries bounds attempts on rate-limit and network failures.
	MaxRetries   int
	InitialDelay time.Duration
}

// OpenAIProvider computes embeddings through the OpenAI API. Calls run
// behind a circuit breaker so a degraded provider sheds load quickly instead
// of stalling every semantic retrieval, and failed calls are retried on the
// rate-limit/network error class.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	retries int
	delay   time.Duration
	logger  *zap.Logger
}

// NewOpenAIProvider creates the provider
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 200 * time.Millisecond
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-provider",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		breaker: breaker,
		retries: cfg.MaxRetries,
		delay:   cfg.InitialDelay,
		logger:  logger,
	}
}

// Embed computes one embedding vector for the text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := p.breaker.Execute(func() (any, error) {
		return p.embedWithRetry(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.NewExternalError("embedding provider", err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

// embedWithRetry retries on the rate-limit/network error class with
// exponential backoff and jitter.
func (p *OpenAIProvider) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		embedding, err := p.embed(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == p.retries {
			break
		}
		backoff := p.delay * time.Duration(1<<(attempt-1))
		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		p.logger.Debug("embedding call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}
	return nil, pkgerrors.NewExternalError("embedding provider", lastErr)
}

func (p *OpenAIProvider) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}
	raw := resp.Data[0].Embedding
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}

// isRetryable classifies rate-limit and network errors as retryable
func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection")
}

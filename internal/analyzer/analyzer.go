// Package analyzer classifies articles against an OpenAI-compatible chat
// completions endpoint.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	requestTemperature = 0.2
	requestMaxTokens   = 300
)

var errEmptyChoices = errors.New("chat completion returned no choices")

// Input is one article to classify. KnownCategories steers the model toward
// the existing vocabulary.
type Input struct {
	Title           string
	Description     string
	SourceName      string
	KnownCategories []string
}

type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Analyzer struct {
	client  completionClient
	model   string
	retries int
	timeout time.Duration
	logger  *zerolog.Logger
}

type Options struct {
	APIURL  string
	APIKey  string
	Model   string
	Retries int
	Timeout time.Duration
}

func New(opts Options, logger *zerolog.Logger) *Analyzer {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimSuffix(opts.APIURL, "/")

	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Analyzer{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		retries: retries,
		timeout: timeout,
		logger:  logger,
	}
}

// Analyze classifies a single article. It never fails the pipeline: any
// unrecoverable error yields the fallback verdict with Err set.
func (a *Analyzer) Analyze(ctx context.Context, in Input) Verdict {
	var lastErr error

	for attempt := 0; attempt < a.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second

			a.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Str("title", in.Title).
				Msg("classification failed, retrying")

			select {
			case <-ctx.Done():
				return fallbackWithErr(ctx.Err())
			case <-time.After(backoff):
			}
		}

		content, err := a.complete(ctx, buildPrompt(in))
		if err != nil {
			// Transport and timeout errors are worth retrying. A response
			// the endpoint did produce is not.
			if errors.Is(err, errEmptyChoices) {
				return fallbackWithErr(err)
			}

			lastErr = err
			continue
		}

		v, err := parseVerdict(content)
		if err != nil {
			a.logger.Warn().Err(err).Str("title", in.Title).Msg("unusable model output")
			return fallbackWithErr(err)
		}

		return v
	}

	return fallbackWithErr(lastErr)
}

// AnalyzeBatch classifies articles sequentially, sleeping delay between calls.
// The returned slice is index-aligned with the input.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, inputs []Input, delay time.Duration) []Verdict {
	verdicts := make([]Verdict, len(inputs))

	for i, in := range inputs {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				for j := i; j < len(inputs); j++ {
					verdicts[j] = fallbackWithErr(ctx.Err())
				}
				return verdicts
			case <-time.After(delay):
			}
		}

		verdicts[i] = a.analyzeSafe(ctx, in)
	}

	return verdicts
}

func (a *Analyzer) analyzeSafe(ctx context.Context, in Input) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Str("title", in.Title).Msg("classification panicked")
			v = fallbackWithErr(fmt.Errorf("panic: %v", r))
		}
	}()

	return a.Analyze(ctx, in)
}

// TestConnection probes the endpoint with a trivial prompt.
func (a *Analyzer) TestConnection(ctx context.Context) bool {
	content, err := a.complete(ctx, `Reply with exactly "OK".`)
	if err != nil {
		a.logger.Error().Err(err).Msg("classification endpoint unreachable")
		return false
	}

	return strings.Contains(strings.ToUpper(content), "OK")
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: requestTemperature,
		MaxTokens:   requestMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errEmptyChoices
	}

	return resp.Choices[0].Message.Content, nil
}

func fallbackWithErr(err error) Verdict {
	v := fallbackVerdict()
	if err != nil {
		v.Err = err.Error()
	}

	return v
}

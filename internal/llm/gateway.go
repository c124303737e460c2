// Package llm is the provider-aware LLM Gateway (spec §4.4): a chat
// completion adapter over OpenAI-compatible and Anthropic-native backends,
// with timeouts, empty-content detection, and error sanitization. The
// Gateway never retries; callers convert a failed/empty call into a
// skip-with-reason for the current point.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/veritas/internal/cache"
	"github.com/hyperifyio/veritas/internal/httpclient"
)

// Provider identifies which wire format a Gateway speaks.
type Provider string

const (
	OpenAICompatible Provider = "openai_compatible"
	AnthropicNative  Provider = "anthropic_native"
)

// Message is a role/content pair, the provider-neutral input shape.
type Message struct {
	Role    string
	Content string
}

// Response is the provider-neutral output of one completion call.
type Response struct {
	Content      string
	FinishReason string
}

var (
	// ErrEmptyContent means the call returned 2xx but no usable content
	// (missing choices/content array, or an empty/whitespace string).
	ErrEmptyContent = errors.New("llm: empty content")
	// ErrNotConfigured means the Gateway is missing required fields.
	ErrNotConfigured = errors.New("llm: gateway not configured")
)

// Options bounds one completion call.
type Options struct {
	MaxTokens int
	Timeout   time.Duration
}

// Gateway dispatches a chat completion to the configured provider and
// returns provider-neutral text, or a sanitized error.
type Gateway interface {
	Complete(ctx context.Context, model string, messages []Message, opts Options) (Response, error)
}

// Config selects and configures a Gateway.
type Config struct {
	Provider  Provider
	BaseURL   string
	APIKey    string
	SSLVerify bool

	// Cache, when set, wraps the returned Gateway with an on-disk response
	// cache keyed by model and message digest, so repeated identical calls
	// (e.g. a retried clarification step against the same overview content)
	// skip the network entirely.
	Cache *cache.LLMCache
}

// New builds a Gateway for the configured provider. The OpenAI-compatible
// path is backed by the same go-openai client the teacher's planner/synth
// stages use; the Anthropic path speaks the Messages API directly over HTTP.
func New(cfg Config) Gateway {
	client := httpclient.NewHighThroughput(cfg.SSLVerify)
	var gw Gateway
	switch cfg.Provider {
	case AnthropicNative:
		gw = &anthropicGateway{baseURL: anthropicBaseOrDefault(cfg.BaseURL), apiKey: cfg.APIKey, httpClient: client}
	default:
		occ := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			occ.BaseURL = cfg.BaseURL
		}
		occ.HTTPClient = client
		gw = &openAIGateway{inner: &OpenAIProvider{Inner: openai.NewClientWithConfig(occ)}}
	}
	if cfg.Cache != nil {
		return &cachedGateway{inner: gw, cache: cfg.Cache}
	}
	return gw
}

// cachedGateway fronts another Gateway with cache.LLMCache, grounded on the
// teacher's on-disk conditional-GET cache idiom (internal/cache) but keyed
// on the request's model and message content rather than a URL, since an
// LLM call has no natural cache key of its own.
type cachedGateway struct {
	inner Gateway
	cache *cache.LLMCache
}

func (g *cachedGateway) Complete(ctx context.Context, model string, messages []Message, opts Options) (Response, error) {
	key := cache.KeyFrom(model, digestMessages(messages))
	if raw, ok, err := g.cache.Get(ctx, key); err == nil && ok {
		var resp Response
		if json.Unmarshal(raw, &resp) == nil && resp.Content != "" {
			return resp, nil
		}
	}
	resp, err := g.inner.Complete(ctx, model, messages, opts)
	if err == nil && resp.Content != "" {
		if raw, marshalErr := json.Marshal(resp); marshalErr == nil {
			_ = g.cache.Save(ctx, key, raw)
		}
	}
	return resp, err
}

// digestMessages folds a message slice into the single string cache.KeyFrom
// hashes; role boundaries are kept so "user:X" and "system:X" never collide.
func digestMessages(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteByte('\n')
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

type openAIGateway struct {
	inner Client
}

func (g *openAIGateway) Complete(ctx context.Context, model string, messages []Message, opts Options) (Response, error) {
	if g.inner == nil || model == "" {
		return Response{}, ErrNotConfigured
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		Temperature: 0.3,
		N:           1,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	resp, err := g.inner.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, classifyTransportError(err)
	}
	if len(resp.Choices) == 0 {
		log.Warn().Str("model", model).Msg("llm: 2xx response had no choices")
		return Response{}, ErrEmptyContent
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		log.Warn().Str("model", model).Str("finish_reason", string(resp.Choices[0].FinishReason)).Msg("llm: 2xx response had empty content")
		return Response{FinishReason: string(resp.Choices[0].FinishReason)}, ErrEmptyContent
	}
	return Response{Content: content, FinishReason: string(resp.Choices[0].FinishReason)}, nil
}

func toOpenAIMessages(in []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, m := range in {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("llm: timeout: %w", err)
	}
	return fmt.Errorf("llm: transport: %s", sanitizeError(err.Error()))
}

func anthropicBaseOrDefault(base string) string {
	if strings.TrimSpace(base) == "" {
		return "https://api.anthropic.com"
	}
	return strings.TrimRight(base, "/")
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// anthropicGateway speaks the Anthropic Messages API directly: the
// system-role message is extracted into a top-level field and the remaining
// messages are submitted in order (spec §4.4, §6).
type anthropicGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *anthropicGateway) Complete(ctx context.Context, model string, messages []Message, opts Options) (Response, error) {
	if g.apiKey == "" || model == "" {
		return Response{}, ErrNotConfigured
	}
	var system strings.Builder
	converted := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
			continue
		}
		converted = append(converted, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		System:    system.String(),
		Messages:  converted,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: encode request: %w", err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("llm: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := g.httpClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("llm: read response: %w", err)
	}
	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("llm: decode response: %w", sanitizeErr(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = fmt.Sprintf("status %d: %s: %s", resp.StatusCode, parsed.Error.Type, parsed.Error.Message)
		}
		return Response{}, fmt.Errorf("llm: http error: %s", sanitizeError(msg))
	}
	if len(parsed.Content) == 0 {
		log.Warn().Str("model", model).Str("stop_reason", parsed.StopReason).Msg("llm: 2xx response had no content blocks")
		return Response{FinishReason: parsed.StopReason}, ErrEmptyContent
	}
	text := strings.TrimSpace(parsed.Content[0].Text)
	if text == "" {
		log.Warn().Str("model", model).Str("stop_reason", parsed.StopReason).Msg("llm: 2xx response had empty content")
		return Response{FinishReason: parsed.StopReason}, ErrEmptyContent
	}
	return Response{Content: text, FinishReason: parsed.StopReason}, nil
}

func sanitizeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", sanitizeError(err.Error()))
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rephrase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/olegiv/polite/internal/model"
)

const rewritePromptTemplate = `The following message is labeled as "%s". ` +
	"Rewrite it so it sounds friendly, polite, and professional for a workplace chat (Slack / Teams). " +
	"Keep it SHORT, one or two lines, and avoid email phrases like 'Dear', 'Thanks', or sign-offs.\n\n" +
	"Guidelines:\n" +
	"- If angry / harsh: soften and make collaborative.\n" +
	"- If blunt / short: add polite context without fluff.\n" +
	"- If too informal: make slightly more professional (no slang / emojis).\n" +
	"- If unclear: gently clarify while staying concise.\n\n" +
	"Examples:\n" +
	"Any update? -> Just checking in, do you have any updates when you get a chance?\n" +
	"Fix it. -> Could you please make the necessary changes when you have a moment?\n" +
	"No. -> Unfortunately, I'll have to pass for now due to current priorities.\n" +
	"Why is this wrong? -> Could you help me understand what might have caused this issue?\n\n" +
	"Now rewrite this message:\n\"%s\""

// OpenAIConfig configures OpenAIProvider.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string // optional
	ClassifyModel string
	RewriteModel  string
}

// OpenAIProvider classifies the tone of a message and rewrites it with a
// chat completion model.
type OpenAIProvider struct {
	client        openai.Client
	classifyModel string
	rewriteModel  string
	sanitizer     *bluemonday.Policy
}

// NewOpenAIProvider creates an OpenAIProvider. Requests are never retried.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIProvider{
		client:        openai.NewClient(opts...),
		classifyModel: cfg.ClassifyModel,
		rewriteModel:  cfg.RewriteModel,
		sanitizer:     bluemonday.StrictPolicy(),
	}
}

// Rephrase returns {original, tone, rephrased} for message.
func (p *OpenAIProvider) Rephrase(ctx context.Context, message string) (json.RawMessage, error) {
	original := strings.TrimSpace(message)

	tone, err := p.classify(ctx, original)
	if err != nil {
		return nil, err
	}

	rephrased, err := p.complete(ctx, p.rewriteModel, fmt.Sprintf(rewritePromptTemplate, tone, original), 0.5, 120)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(model.Suggestion{
		Original:  original,
		Tone:      tone,
		Rephrased: rephrased,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal suggestion: %w", err)
	}
	return out, nil
}

func (p *OpenAIProvider) classify(ctx context.Context, message string) (string, error) {
	prompt := "You are a tone classifier. " +
		"Categories: " + strings.Join(model.KnownTones, ", ") + ".\n" +
		"Return ONLY the category name.\n\n" +
		"Message:\n" + message

	content, err := p.complete(ctx, p.classifyModel, prompt, 0, 2)
	if err != nil {
		return "", err
	}
	return ParseTone(content), nil
}

func (p *OpenAIProvider) complete(ctx context.Context, chatModel, prompt string, temperature float64, maxTokens int64) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &model.UpstreamError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", &model.UpstreamError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &model.UpstreamError{Err: errors.New("openai: no choices returned")}
	}

	// Model output is plain text; strip any markup and undo entity escaping.
	text := html.UnescapeString(p.sanitizer.Sanitize(resp.Choices[0].Message.Content))
	return strings.TrimSpace(text), nil
}

// ParseTone maps a classifier answer onto a known tone, defaulting to neutral.
func ParseTone(answer string) string {
	tone := strings.ToLower(strings.Trim(strings.TrimSpace(answer), ".\"'"))
	if slices.Contains(model.KnownTones, tone) {
		return tone
	}
	return model.ToneNeutral
}

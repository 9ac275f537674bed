package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/windfall/fluentmind/internal/metrics"
)

// Transcription is the speech-to-text result for one upload.
type Transcription struct {
	Text     string   `json:"text"`
	Language *string  `json:"language"`
	Duration *float64 `json:"duration"`
}

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// ChatModel answers feedback prompts.
	ChatModel string
	// TranscriptionModel converts speech to text.
	TranscriptionModel string
}

// OpenAIClient wraps the OpenAI API client.
type OpenAIClient struct {
	client       *openai.Client
	chatModel    string
	whisperModel string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	whisperModel := cfg.TranscriptionModel
	if whisperModel == "" {
		whisperModel = openai.Whisper1
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(clientCfg),
		chatModel:    chatModel,
		whisperModel: whisperModel,
	}
}

// Transcribe sends audio to the transcription endpoint. filename's
// extension tells the provider the container format.
func (c *OpenAIClient) Transcribe(ctx context.Context, filename string, audio []byte) (t *Transcription, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("openai", "transcribe", time.Since(start), err) }()

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.whisperModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	t = &Transcription{Text: resp.Text}
	if resp.Language != "" {
		lang := resp.Language
		t.Language = &lang
	}
	if resp.Duration > 0 {
		d := resp.Duration
		t.Duration = &d
	}
	return t, nil
}

// CompleteJSON runs a chat completion in JSON-object mode and returns the
// raw message content.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, systemPrompt, text string) (content string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("openai", "feedback", time.Since(start), err) }()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/SAP-F-2025/mastery-service/internal/config"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
)

// httpClient talks to an OpenAI-compatible chat completion endpoint. The
// instruction prompt goes into the system message, the context text into
// the user message.
type httpClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	logger  utils.Logger
}

func NewHTTPClient(cfg config.GeneratorConfig, logger utils.Logger) Client {
	return &httpClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  logger,
	}
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string                  `json:"model"`
	Messages []chatCompletionMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

func (c *httpClient) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: c.model,
		Messages: []chatCompletionMessage{
			{Role: "system", Content: req.InstructionPrompt},
			{Role: "user", Content: req.ContextText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generator request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Generator call failed",
			"status", resp.StatusCode,
			"body", string(payload))
		return "", &TransportError{Err: fmt.Errorf("generator returned status %d", resp.StatusCode)}
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to decode completion: %w", err)}
	}
	if len(completion.Choices) == 0 {
		return "", &TransportError{Err: fmt.Errorf("generator returned no choices")}
	}

	return completion.Choices[0].Message.Content, nil
}

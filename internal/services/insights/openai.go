package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"StockCast/internal/domain/service"
	pkghttp "StockCast/pkg/http"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client  *pkghttp.Client
	baseURL string
	apiKey  string
	model   string
}

var _ service.NarrativeGenerator = (*OpenAIGenerator)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenAIGenerator(client *pkghttp.Client, baseURL, apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model}, nil
}

func (o *OpenAIGenerator) Name() string { return "openai" }

func (o *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var resp chatResponse
	err := o.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    o.baseURL + "/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + o.apiKey,
		},
		Body: chatRequest{
			Model:    o.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

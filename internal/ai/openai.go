package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
)

// OpenAI talks to an OpenAI-compatible API (chat completions and image
// generations).
type OpenAI struct {
	BaseURL    string
	APIKey     string
	Model      string
	ImageModel string

	client *retryablehttp.Client
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + o.APIKey}
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	model := o.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	body := map[string]any{
		"model":    model,
		"messages": []map[string]string{
			{"role": "system", "content": "You design cards for a fantasy trading card game."},
			{"role": "user", "content": prompt},
		},
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, o.Name(), o.BaseURL+"/v1/chat/completions", o.headers(), body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices", ErrProvider)
	}
	return out.Choices[0].Message.Content, nil
}

func (o *OpenAI) Image(ctx context.Context, prompt string) ([]byte, error) {
	model := o.ImageModel
	if model == "" {
		model = "dall-e-3"
	}
	body := map[string]any{
		"model":           model,
		"prompt":          prompt,
		"size":            "1024x1024",
		"response_format": "b64_json",
		"n":               1,
	}
	var out struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := postJSON(ctx, o.client, o.Name(), o.BaseURL+"/v1/images/generations", o.headers(), body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: openai: no image", ErrProvider)
	}
	b, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", ErrProvider, err)
	}
	return b, nil
}

package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
)

// Ollama talks to a local Ollama server. Image generation goes through
// /api/generate with an image-capable model and fails when the model
// returns no image.
type Ollama struct {
	BaseURL string
	Model   string

	client *retryablehttp.Client
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaGenerateResponse struct {
	Response string   `json:"response"`
	Image    string   `json:"image"`
	Images   []string `json:"images"`
}

func (o *Ollama) generate(ctx context.Context, prompt string) (ollamaGenerateResponse, error) {
	var out ollamaGenerateResponse
	body := map[string]any{"model": o.model(), "prompt": prompt, "stream": false}
	err := postJSON(ctx, o.client, o.Name(), o.BaseURL+"/api/generate", nil, body, &out)
	return out, err
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := o.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

func (o *Ollama) Image(ctx context.Context, prompt string) ([]byte, error) {
	out, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	enc := out.Image
	if enc == "" && len(out.Images) > 0 {
		enc = out.Images[0]
	}
	if enc == "" {
		return nil, fmt.Errorf("%w: ollama: model %s returned no image", ErrProvider, o.model())
	}
	b, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", ErrProvider, err)
	}
	return b, nil
}

func (o *Ollama) model() string {
	if o.Model == "" {
		return "llama3.2"
	}
	return o.Model
}

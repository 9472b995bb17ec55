// Package ai generates card art and card text through a configured model
// provider.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/youruser/cardsmith/internal/cards"
)

var (
	// ErrNoProvider means no endpoint or credential is configured.
	ErrNoProvider = errors.New("no ai provider configured")
	ErrValidation = errors.New("invalid ai request")
	// ErrProvider wraps failures reported by the remote provider.
	ErrProvider = errors.New("ai provider error")
)

// Power levels accepted by GenerateCardText.
const (
	MinPower = 1
	MaxPower = 10
)

type Config struct {
	Provider          string `toml:"provider"` // "ollama", "openai" or empty
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	ImageModel        string `toml:"image_model"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Provider is a text and image model backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
	// Image returns PNG bytes for prompt.
	Image(ctx context.Context, prompt string) ([]byte, error)
}

// CardContext is what the text generator knows about the card.
type CardContext struct {
	Name     string `json:"name"`
	ManaCost string `json:"manaCost"`
	CardType string `json:"cardType"`
	Subtype  string `json:"subtype"`
	Rarity   string `json:"rarity"`
}

// ContextFromCard extracts the prompt context from card data.
func ContextFromCard(c cards.CardData) CardContext {
	return CardContext{
		Name:     c.Name,
		ManaCost: c.ManaCost,
		CardType: string(c.CardType),
		Subtype:  c.Subtype,
		Rarity:   string(c.Rarity),
	}
}

type Service struct {
	provider Provider
	limiter  *rate.Limiter
}

// New builds the service for cfg. An unusable configuration yields a
// service whose calls fail with ErrNoProvider.
func New(cfg Config) (*Service, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.Logger = nil
	client.HTTPClient.Timeout = 120 * time.Second
	if cfg.TimeoutSeconds > 0 {
		client.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "":
	case "ollama":
		if cfg.BaseURL != "" {
			p = &Ollama{BaseURL: strings.TrimRight(cfg.BaseURL, "/"), Model: cfg.Model, client: client}
		}
	case "openai":
		if cfg.APIKey != "" {
			base := cfg.BaseURL
			if base == "" {
				base = "https://api.openai.com"
			}
			p = &OpenAI{
				BaseURL:    strings.TrimRight(base, "/"),
				APIKey:     cfg.APIKey,
				Model:      cfg.Model,
				ImageModel: cfg.ImageModel,
				client:     client,
			}
		}
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	return NewWithProvider(p, cfg.RequestsPerMinute), nil
}

// NewWithProvider wraps p with a per-minute request limit; rpm <= 0 means
// unlimited.
func NewWithProvider(p Provider, rpm int) *Service {
	lim := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	return &Service{provider: p, limiter: lim}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool { return s != nil && s.provider != nil }

func (s *Service) ready(ctx context.Context) error {
	if !s.Enabled() {
		return ErrNoProvider
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// GenerateArt returns a PNG data URI for prompt.
func (s *Service) GenerateArt(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	png, err := s.provider.Image(ctx, artPrompt(prompt))
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GenerateCardText writes rules and flavor text for a card of the given
// power level (MinPower to MaxPower) around theme.
func (s *Service) GenerateCardText(ctx context.Context, card CardContext, power int, theme string) (string, string, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return "", "", fmt.Errorf("%w: theme is required", ErrValidation)
	}
	if power < MinPower || power > MaxPower {
		return "", "", fmt.Errorf("%w: power level %d outside %d-%d", ErrValidation, power, MinPower, MaxPower)
	}
	if err := s.ready(ctx); err != nil {
		return "", "", err
	}
	out, err := s.provider.Complete(ctx, textPrompt(card, power, theme))
	if err != nil {
		return "", "", err
	}
	rules, flavor, err := parseCardText(out)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrProvider, s.provider.Name(), err)
	}
	return rules, flavor, nil
}

func artPrompt(prompt string) string {
	return "Trading card illustration, painterly fantasy art, no text or borders. " + prompt
}

func textPrompt(c CardContext, power int, theme string) string {
	var b strings.Builder
	b.WriteString("Write rules text and flavor text for a fantasy trading card.\n")
	fmt.Fprintf(&b, "Theme: %s\n", theme)
	fmt.Fprintf(&b, "Power level: %d of %d\n", power, MaxPower)
	if c.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", c.Name)
	}
	if c.ManaCost != "" {
		fmt.Fprintf(&b, "Mana cost: %s\n", c.ManaCost)
	}
	if c.CardType != "" {
		fmt.Fprintf(&b, "Type: %s", c.CardType)
		if c.Subtype != "" {
			fmt.Fprintf(&b, " - %s", c.Subtype)
		}
		b.WriteString("\n")
	}
	if c.Rarity != "" {
		fmt.Fprintf(&b, "Rarity: %s\n", c.Rarity)
	}
	b.WriteString("Use symbols like {T}, {W}, {2} for costs. ")
	b.WriteString(`Answer with JSON only: {"rulesText": "...", "flavorText": "..."}`)
	return b.String()
}

// parseCardText reads the JSON object out of a model answer, tolerating
// prose or code fences around it.
func parseCardText(s string) (string, string, error) {
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", "", errors.New("no json object in answer")
	}
	var v struct {
		RulesText  string `json:"rulesText"`
		FlavorText string `json:"flavorText"`
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &v); err != nil {
		return "", "", err
	}
	if v.RulesText == "" && v.FlavorText == "" {
		return "", "", errors.New("empty answer")
	}
	return v.RulesText, v.FlavorText, nil
}

// postJSON sends body to url and decodes a JSON answer into out.
func postJSON(ctx context.Context, client *retryablehttp.Client, provider, url string, headers map[string]string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, b)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProvider, provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrProvider, provider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrProvider, provider, err)
	}
	return nil
}

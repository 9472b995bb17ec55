package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/cardsmith/internal/cards"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\nfake")

func TestNoProvider(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{Provider: "openai"},
		{Provider: "ollama"},
	} {
		s, err := New(cfg)
		require.NoError(t, err)
		assert.False(t, s.Enabled())
		_, err = s.GenerateArt(context.Background(), "a dragon")
		assert.ErrorIs(t, err, ErrNoProvider)
		_, _, err = s.GenerateCardText(context.Background(), CardContext{}, 5, "fire")
		assert.ErrorIs(t, err, ErrNoProvider)
	}

	_, err := New(Config{Provider: "skynet"})
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	s := NewWithProvider(nil, 0)
	_, _, err := s.GenerateCardText(context.Background(), CardContext{}, 5, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = s.GenerateCardText(context.Background(), CardContext{}, 11, "fire")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.GenerateArt(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpenAIProvider(t *testing.T) {
	var chatBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/chat/completions":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&chatBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{
					"content": "Sure!\n```json\n{\"rulesText\": \"Flying\\n{T}: Add {R}.\", \"flavorText\": \"Burn bright.\"}\n```",
				}}},
			})
		case "/v1/images/generations":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(pngMagic)}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := New(Config{Provider: "openai", BaseURL: srv.URL + "/", APIKey: "sk-test", Model: "m1"})
	require.NoError(t, err)
	require.True(t, s.Enabled())

	c := cards.New()
	c.Name = "Ember Drake"
	rules, flavor, err := s.GenerateCardText(context.Background(), ContextFromCard(c), 7, "volcanic dragons")
	require.NoError(t, err)
	assert.Equal(t, "Flying\n{T}: Add {R}.", rules)
	assert.Equal(t, "Burn bright.", flavor)
	assert.Equal(t, "m1", chatBody["model"])
	msgs := chatBody["messages"].([]any)
	prompt := msgs[len(msgs)-1].(map[string]any)["content"].(string)
	assert.Contains(t, prompt, "Theme: volcanic dragons")
	assert.Contains(t, prompt, "Name: Ember Drake")
	assert.Contains(t, prompt, "Power level: 7 of 10")

	ref, err := s.GenerateArt(context.Background(), "a drake over lava")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngMagic), ref)
}

func TestOllamaProvider(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Stream)
		gotModel = body.Model
		if strings.HasPrefix(body.Prompt, "Trading card illustration") {
			_ = json.NewEncoder(w).Encode(map[string]any{"images": []string{base64.StdEncoding.EncodeToString(pngMagic)}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": `{"rulesText":"Trample","flavorText":""}`})
	}))
	defer srv.Close()

	s, err := New(Config{Provider: "ollama", BaseURL: srv.URL})
	require.NoError(t, err)
	rules, flavor, err := s.GenerateCardText(context.Background(), CardContext{CardType: "Creature"}, 3, "forest beasts")
	require.NoError(t, err)
	assert.Equal(t, "Trample", rules)
	assert.Empty(t, flavor)
	assert.Equal(t, "llama3.2", gotModel)

	ref, err := s.GenerateArt(context.Background(), "an elk")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "data:image/png;base64,"))
}

func TestProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/images/generations" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "I cannot do that."}}},
		})
	}))
	defer srv.Close()

	s, err := New(Config{Provider: "openai", BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	_, err = s.GenerateArt(context.Background(), "x")
	assert.ErrorIs(t, err, ErrProvider)
	_, _, err = s.GenerateCardText(context.Background(), CardContext{}, 5, "fire")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestParseCardText(t *testing.T) {
	r, f, err := parseCardText(`{"rulesText":"A","flavorText":"B"}`)
	require.NoError(t, err)
	assert.Equal(t, "A", r)
	assert.Equal(t, "B", f)

	_, _, err = parseCardText("no json here")
	assert.Error(t, err)
	_, _, err = parseCardText(`{"other": 1}`)
	assert.Error(t, err)
}

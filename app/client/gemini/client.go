package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"loveoracle/app/config"

	"github.com/samber/do"
	"google.golang.org/genai"
)

type Client struct {
	cfg   *config.Config
	inner *genai.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	inner, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.Gemini.TimeoutSec) * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		cfg:   cfg,
		inner: inner,
	}, nil
}

// Open starts a new chat with systemInstruction fixed as the system context
// for the chat's whole lifetime.
func (c *Client) Open(ctx context.Context, systemInstruction string) (*Dialogue, error) {
	chat, err := c.inner.Chats.Create(ctx, c.cfg.Gemini.Model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return &Dialogue{chat: chat}, nil
}
